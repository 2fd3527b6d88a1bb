package canvas

import "time"

// ChangeKind identifies which Store operation produced a change
type ChangeKind string

const (
	ChangeLocal    ChangeKind = "local"
	ChangeRemote   ChangeKind = "remote"
	ChangeRemoved  ChangeKind = "removed"
	ChangeUndo     ChangeKind = "undo"
	ChangeRedo     ChangeKind = "redo"
	ChangeSnapshot ChangeKind = "snapshot"
)

// Change describes a mutation of the Store
type Change struct {
	Kind     ChangeKind
	ActionID string
	Len      int
	CanUndo  bool
	CanRedo  bool
	At       time.Time
}

// Listener observes Store mutations. Implementations must not call back into the
// Store's mutating methods synchronously.
type Listener interface {
	CanvasChanged(change Change)
}

// ListenerFunc adapts a function to the Listener interface
type ListenerFunc func(change Change)

// CanvasChanged calls f(change)
func (f ListenerFunc) CanvasChanged(change Change) {
	f(change)
}
