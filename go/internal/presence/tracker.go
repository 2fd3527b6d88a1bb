package presence

import (
	"sort"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/syncboard/go/internal/models"
	"github.com/rs/zerolog/log"
)

// ConnectedUser is one roster entry
type ConnectedUser struct {
	ID       string           `json:"id"`
	Name     string           `json:"name"`
	SocketID string           `json:"socketId"`
	Cursor   *models.Position `json:"cursor,omitempty"`

	JoinedAt time.Time `json:"-"`
}

// JoinResult describes the roster after a join
type JoinResult struct {
	Roster []ConnectedUser
	// Superseded is the connection id that previously held the user's entry, if any.
	Superseded string
}

// Tracker keeps the per-room rosters of connected users. A user has at most one entry
// per room; joining again from a new connection replaces the old entry.
type Tracker struct {
	mu    sync.RWMutex
	rooms map[string]*room
	clock clockwork.Clock
}

type room struct {
	mu    sync.Mutex
	users []ConnectedUser
	// closed is set once the room has been dropped from the registry
	closed bool
}

// NewTracker creates an empty tracker
func NewTracker(clock clockwork.Clock) *Tracker {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Tracker{
		rooms: make(map[string]*room),
		clock: clock,
	}
}

// Join adds or replaces the entry of user in roomID, bound to connID. The cursor of a
// replaced entry is reset and the entry keeps its position in join order.
func (t *Tracker) Join(roomID string, user models.UserRef, connID string) JoinResult {
	for {
		r := t.getOrCreate(roomID)
		r.mu.Lock()
		if r.closed {
			r.mu.Unlock()
			continue
		}

		var result JoinResult
		entry := ConnectedUser{
			ID:       user.ID,
			Name:     user.Name,
			SocketID: connID,
			JoinedAt: t.clock.Now(),
		}
		if i := r.indexOfUser(user.ID); i >= 0 {
			if r.users[i].SocketID != connID {
				result.Superseded = r.users[i].SocketID
			}
			entry.JoinedAt = r.users[i].JoinedAt
			r.users[i] = entry
		} else {
			r.users = append(r.users, entry)
		}
		result.Roster = r.snapshot()
		r.mu.Unlock()

		log.Debug().
			Str("room_id", roomID).
			Str("user_id", user.ID).
			Str("connection_id", connID).
			Str("superseded", result.Superseded).
			Int("roster_size", len(result.Roster)).
			Msg("user joined room")
		return result
	}
}

// UpdateCursor records the last cursor position of a user. It reports false when the
// user has no entry in the room.
func (t *Tracker) UpdateCursor(roomID, userID string, pos models.Position) bool {
	r := t.get(roomID)
	if r == nil {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.indexOfUser(userID)
	if i < 0 {
		return false
	}
	p := pos
	r.users[i].Cursor = &p
	return true
}

// LeaveRoom removes connID's entry from one room. It reports whether an entry was removed.
func (t *Tracker) LeaveRoom(roomID, connID string) bool {
	r := t.get(roomID)
	if r == nil {
		return false
	}
	removed, empty := r.removeConnection(connID)
	if empty {
		t.dropIfEmpty(roomID, r)
	}
	return removed
}

// Leave removes every entry bound to connID and returns the affected room ids in
// sorted order. An entry that was superseded by a newer connection is not touched.
func (t *Tracker) Leave(connID string) []string {
	t.mu.RLock()
	candidates := make(map[string]*room, len(t.rooms))
	for id, r := range t.rooms {
		candidates[id] = r
	}
	t.mu.RUnlock()

	var affected []string
	for roomID, r := range candidates {
		removed, empty := r.removeConnection(connID)
		if !removed {
			continue
		}
		affected = append(affected, roomID)
		if empty {
			t.dropIfEmpty(roomID, r)
		}
	}
	sort.Strings(affected)

	if len(affected) > 0 {
		log.Debug().
			Str("connection_id", connID).
			Strs("rooms", affected).
			Msg("connection left rooms")
	}
	return affected
}

// Roster returns the room's entries in join order
func (t *Tracker) Roster(roomID string) []ConnectedUser {
	r := t.get(roomID)
	if r == nil {
		return []ConnectedUser{}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshot()
}

// Has reports whether connID holds an entry in roomID
func (t *Tracker) Has(roomID, connID string) bool {
	r := t.get(roomID)
	if r == nil {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.indexOfConnection(connID) >= 0
}

// RoomCount returns the number of rooms with at least one entry
func (t *Tracker) RoomCount() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.rooms)
}

func (t *Tracker) get(roomID string) *room {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.rooms[roomID]
}

func (t *Tracker) getOrCreate(roomID string) *room {
	if r := t.get(roomID); r != nil {
		return r
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	r, ok := t.rooms[roomID]
	if !ok {
		r = &room{}
		t.rooms[roomID] = r
	}
	return r
}

func (t *Tracker) dropIfEmpty(roomID string, r *room) {
	t.mu.Lock()
	defer t.mu.Unlock()
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.users) == 0 && t.rooms[roomID] == r {
		r.closed = true
		delete(t.rooms, roomID)
	}
}

func (r *room) removeConnection(connID string) (removed, empty bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.indexOfConnection(connID)
	if i < 0 {
		return false, len(r.users) == 0
	}
	r.users = append(r.users[:i], r.users[i+1:]...)
	return true, len(r.users) == 0
}

func (r *room) indexOfUser(userID string) int {
	for i, u := range r.users {
		if u.ID == userID {
			return i
		}
	}
	return -1
}

func (r *room) indexOfConnection(connID string) int {
	for i, u := range r.users {
		if u.SocketID == connID {
			return i
		}
	}
	return -1
}

func (r *room) snapshot() []ConnectedUser {
	out := make([]ConnectedUser, len(r.users))
	for i, u := range r.users {
		if u.Cursor != nil {
			c := *u.Cursor
			u.Cursor = &c
		}
		out[i] = u
	}
	return out
}
