package canvas

import (
	"sync"

	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/syncboard/go/internal/models"
)

const (
	// DefaultLogCapacity bounds the local Action Log; it matches what the server persists.
	DefaultLogCapacity = 1000
	// DefaultUndoDepth bounds the redo history.
	DefaultUndoDepth = 50
)

// StoreConfig holds the bounds of a Store
type StoreConfig struct {
	// LogCapacity is the maximum number of log entries; 0 disables eviction.
	LogCapacity int
	// UndoDepth is the maximum number of undone actions kept for redo.
	UndoDepth int
}

// DefaultStoreConfig returns the default Store bounds
func DefaultStoreConfig() StoreConfig {
	return StoreConfig{
		LogCapacity: DefaultLogCapacity,
		UndoDepth:   DefaultUndoDepth,
	}
}

// Store is a client's replica of one room's Action Log. It applies local and remote
// actions with replace-on-id semantics and keeps undo/redo history for actions the
// local user authored. Remote actions never enter the undo history.
type Store struct {
	mu     sync.Mutex
	log    []models.DrawAction
	own    []string
	undone []models.DrawAction

	userID string
	clock  clockwork.Clock
	config StoreConfig

	listenersMu sync.RWMutex
	listeners   []Listener
}

// NewStore creates an empty store for the given local user
func NewStore(userID string, config StoreConfig, clock clockwork.Clock) *Store {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if config.UndoDepth <= 0 {
		config.UndoDepth = DefaultUndoDepth
	}
	return &Store{
		userID: userID,
		clock:  clock,
		config: config,
	}
}

// Subscribe registers a listener notified after every mutation
func (s *Store) Subscribe(l Listener) {
	s.listenersMu.Lock()
	defer s.listenersMu.Unlock()
	s.listeners = append(s.listeners, l)
}

// ApplyLocal records an action authored by the local user. Repeated emissions of the
// same stroke id keep a single undo entry. Any pending redo history is discarded.
func (s *Store) ApplyLocal(action models.DrawAction) {
	s.mu.Lock()
	s.upsert(action.Clone())
	s.pushOwn(action.ID)
	s.undone = nil
	s.enforceCapacity()
	change := s.change(ChangeLocal, action.ID)
	s.mu.Unlock()

	s.notify(change)
}

// ApplyRemote records an action received from another participant
func (s *Store) ApplyRemote(action models.DrawAction) {
	s.mu.Lock()
	s.upsert(action.Clone())
	s.enforceCapacity()
	change := s.change(ChangeRemote, action.ID)
	s.mu.Unlock()

	s.notify(change)
}

// RemoveByID deletes the entry with the given id, typically after another client's
// undo. Returns false when the entry is already gone.
func (s *Store) RemoveByID(id string) bool {
	s.mu.Lock()
	_, removed := s.remove(id)
	change := s.change(ChangeRemoved, id)
	s.mu.Unlock()

	if removed {
		s.notify(change)
	}
	return removed
}

// Undo removes the local user's most recent own action still present in the log and
// returns it so the caller can tell peers. Other participants' actions are never undone.
func (s *Store) Undo() (models.DrawAction, bool) {
	s.mu.Lock()
	var (
		undone models.DrawAction
		found  bool
	)
	for len(s.own) > 0 && !found {
		id := s.own[len(s.own)-1]
		s.own = s.own[:len(s.own)-1]
		undone, found = s.remove(id)
	}
	if !found {
		s.mu.Unlock()
		return models.DrawAction{}, false
	}

	s.undone = append(s.undone, undone)
	if over := len(s.undone) - s.config.UndoDepth; over > 0 {
		s.undone = append([]models.DrawAction(nil), s.undone[over:]...)
	}
	change := s.change(ChangeUndo, undone.ID)
	s.mu.Unlock()

	s.notify(change)
	return undone.Clone(), true
}

// Redo re-applies the most recently undone action as a new own action and returns it
// for re-broadcast as an ordinary draw.
func (s *Store) Redo() (models.DrawAction, bool) {
	s.mu.Lock()
	if len(s.undone) == 0 {
		s.mu.Unlock()
		return models.DrawAction{}, false
	}

	action := s.undone[len(s.undone)-1]
	s.undone = s.undone[:len(s.undone)-1]
	s.upsert(action)
	s.pushOwn(action.ID)
	s.enforceCapacity()
	change := s.change(ChangeRedo, action.ID)
	s.mu.Unlock()

	s.notify(change)
	return action.Clone(), true
}

// Clear appends a clear action authored by the local user and returns it
func (s *Store) Clear() models.DrawAction {
	now := s.clock.Now()
	action := models.DrawAction{
		ID:        NewActionID(s.userID, now),
		Type:      models.ActionTypeClear,
		UserID:    s.userID,
		Timestamp: now.UnixMilli(),
	}
	s.ApplyLocal(action)
	return action
}

// CanUndo reports whether the local user has an action to undo
func (s *Store) CanUndo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.own) > 0
}

// CanRedo reports whether there is an undone action to restore
func (s *Store) CanRedo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.undone) > 0
}

// LoadSnapshot replaces the log with a persisted snapshot. Loaded actions carry no
// local authorship, so both history stacks are reset.
func (s *Store) LoadSnapshot(actions []models.DrawAction) {
	s.mu.Lock()
	s.log = nil
	for _, a := range actions {
		s.upsert(a.Clone())
	}
	s.own = nil
	s.undone = nil
	s.enforceCapacity()
	change := s.change(ChangeSnapshot, "")
	s.mu.Unlock()

	s.notify(change)
}

// Actions returns a copy of the log
func (s *Store) Actions() []models.DrawAction {
	s.mu.Lock()
	defer s.mu.Unlock()
	return models.CloneActions(s.log)
}

// Visible returns the entries a renderer would draw
func (s *Store) Visible() []models.DrawAction {
	return VisibleActions(s.Actions())
}

// Len returns the number of log entries
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.log)
}

// OwnActionIDs returns the undo stack, oldest first
func (s *Store) OwnActionIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.own...)
}

// UserID returns the local user the store records authorship for
func (s *Store) UserID() string {
	return s.userID
}

func (s *Store) indexOf(id string) int {
	for i := range s.log {
		if s.log[i].ID == id {
			return i
		}
	}
	return -1
}

// upsert replaces the entry with the same id in place, or appends
func (s *Store) upsert(action models.DrawAction) {
	if i := s.indexOf(action.ID); i >= 0 {
		s.log[i] = action
		return
	}
	s.log = append(s.log, action)
}

func (s *Store) remove(id string) (models.DrawAction, bool) {
	i := s.indexOf(id)
	if i < 0 {
		return models.DrawAction{}, false
	}
	removed := s.log[i]
	s.log = append(s.log[:i], s.log[i+1:]...)
	return removed, true
}

func (s *Store) pushOwn(id string) {
	for i, existing := range s.own {
		if existing == id {
			s.own = append(s.own[:i], s.own[i+1:]...)
			break
		}
	}
	s.own = append(s.own, id)
}

// enforceCapacity evicts the oldest entries and prunes their ids from the undo stack
// under the same lock, so the stack never references an evicted entry.
func (s *Store) enforceCapacity() {
	limit := s.config.LogCapacity
	if limit <= 0 || len(s.log) <= limit {
		return
	}

	over := len(s.log) - limit
	evicted := make(map[string]struct{}, over)
	for _, a := range s.log[:over] {
		evicted[a.ID] = struct{}{}
	}
	s.log = append([]models.DrawAction(nil), s.log[over:]...)

	if len(s.own) == 0 {
		return
	}
	kept := s.own[:0]
	for _, id := range s.own {
		if _, gone := evicted[id]; !gone {
			kept = append(kept, id)
		}
	}
	s.own = kept
}

func (s *Store) change(kind ChangeKind, id string) Change {
	return Change{
		Kind:     kind,
		ActionID: id,
		Len:      len(s.log),
		CanUndo:  len(s.own) > 0,
		CanRedo:  len(s.undone) > 0,
		At:       s.clock.Now(),
	}
}

func (s *Store) notify(change Change) {
	s.listenersMu.RLock()
	listeners := append([]Listener(nil), s.listeners...)
	s.listenersMu.RUnlock()

	for _, l := range listeners {
		l.CanvasChanged(change)
	}
}
