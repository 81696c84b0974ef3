package hunt

import "fmt"

// Item statuses. During a run an item only ever moves forward:
// queued -> searching -> {success, failed, invalid_url}. The one
// exception is the retry reset performed between runs, which takes a
// failed item back to queued. Invalid URLs are excluded from retry
// because the input itself, not the archive lookup, was malformed.
const (
	StatusQueued     = "queued"
	StatusSearching  = "searching"
	StatusSuccess    = "success"
	StatusFailed     = "failed"
	StatusInvalidURL = "invalid_url"
)

var allowedTransitions = map[string]map[string]bool{
	StatusQueued: {
		StatusSearching: true,
	},
	StatusSearching: {
		StatusSuccess:    true,
		StatusFailed:     true,
		StatusInvalidURL: true,
	},
	StatusFailed: {
		StatusQueued: true, // retry reset between runs
	},
	StatusSuccess:    {},
	StatusInvalidURL: {},
}

func IsKnownStatus(status string) bool {
	_, ok := allowedTransitions[status]
	return ok
}

func CanTransition(from, to string) bool {
	next, ok := allowedTransitions[from]
	if !ok {
		return false
	}
	return next[to]
}

func transition(it *Item, toStatus, reason string) error {
	if !CanTransition(it.Status, toStatus) {
		return fmt.Errorf("invalid item status transition: %q -> %q (item_id=%s)", it.Status, toStatus, it.ID)
	}
	it.Status = toStatus
	it.Reason = reason
	return nil
}
