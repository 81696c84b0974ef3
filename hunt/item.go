package hunt

// Item is one batch entry. The worker goroutine is the sole mutator
// while a run is live; everyone else sees copies delivered through the
// event stream.
type Item struct {
	ID         string
	SourceURL  string
	Status     string
	Reason     string
	ResultPath string
}
