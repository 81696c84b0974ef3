package hunt

// EventKind discriminates entries in the runner's event stream.
type EventKind int

const (
	EventLog EventKind = iota
	EventProgress
	EventItem
	EventFinished
)

// Runner states. Cancelling is informational: the cancel signal has
// been raised but the in-flight item has not yet reached a checkpoint.
const (
	StateIdle       = "idle"
	StateRunning    = "running"
	StateCancelling = "cancelling"
	StateDone       = "done"
)

// Event is one entry in the ordered, lossless stream from the worker
// to the consumer. Which fields are meaningful depends on Kind.
type Event struct {
	Kind    EventKind
	Message string // EventLog
	Value   int    // EventProgress: items handled so far
	Total   int    // EventProgress: batch size
	Item    Item   // EventItem: copy of the item after the update
	State   string // EventFinished: terminal runner state
}
