package reconcile

import "fmt"

// State is the sync state of one line item.
//
//	New ──create ok──▶ Synced ──edit──▶ Dirty ──update ok──▶ Synced
//	Synced ──delete──▶ PendingDelete ──delete ok──▶ Removed
//
// A failed transition returns the item to the state it had before.
type State int

const (
	_ State = iota
	New
	Synced
	Dirty
	PendingDelete
	Removed
)

func (s State) String() string {
	switch s {
	case New:
		return "new"
	case Synced:
		return "synced"
	case Dirty:
		return "dirty"
	case PendingDelete:
		return "pending_delete"
	case Removed:
		return "removed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Pending reports whether a remote call for the item is in flight.
func (s State) Pending() bool {
	return s == New || s == Dirty || s == PendingDelete
}
