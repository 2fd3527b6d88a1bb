package relay

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/mcdev12/syncboard/go/internal/models"
	"github.com/mcdev12/syncboard/go/internal/presence"
	"github.com/rs/zerolog/log"
)

var (
	// ErrNotMember is returned when a connection relays into a room it has not joined
	ErrNotMember = errors.New("connection has not joined the room")
	// ErrInvalidFrame is returned for payloads missing required fields
	ErrInvalidFrame = errors.New("invalid frame")
)

// Peer is a recipient of relayed frames. Send must not block; it reports false when
// the frame was dropped.
type Peer interface {
	ID() string
	Send(frame []byte) bool
}

// Hub fans real-time events out to the members of each room. It never stores or
// replays actions; late joiners read the persisted snapshot instead.
type Hub struct {
	mu    sync.RWMutex
	rooms map[string]*roomMembers

	presence *presence.Tracker
	bus      Bus
}

type roomMembers struct {
	mu      sync.Mutex
	members map[string]Peer
	closed  bool
}

// RoomStats is the number of local connections in a room
type RoomStats struct {
	RoomID      string `json:"room_id"`
	Connections int    `json:"connections"`
}

// Stats summarizes the hub's connections
type Stats struct {
	TotalConnections int         `json:"total_connections"`
	ActiveRooms      int         `json:"active_rooms"`
	Rooms            []RoomStats `json:"rooms"`
}

// NewHub creates a hub. bus may be nil for a single instance.
func NewHub(tracker *presence.Tracker, bus Bus) *Hub {
	return &Hub{
		rooms:    make(map[string]*roomMembers),
		presence: tracker,
		bus:      bus,
	}
}

// Presence returns the hub's roster tracker
func (h *Hub) Presence() *presence.Tracker {
	return h.presence
}

// Join subscribes peer to roomID as user and sends the updated roster to every member,
// the joiner included. An older connection of the same user is unsubscribed.
func (h *Hub) Join(roomID string, user models.UserRef, peer Peer) error {
	if roomID == "" || user.ID == "" {
		return fmt.Errorf("%w: roomId and user.id are required", ErrInvalidFrame)
	}

	r := h.getOrCreate(roomID)
	r.mu.Lock()
	for r.closed {
		r.mu.Unlock()
		r = h.getOrCreate(roomID)
		r.mu.Lock()
	}
	result := h.presence.Join(roomID, user, peer.ID())
	if result.Superseded != "" {
		delete(r.members, result.Superseded)
	}
	r.members[peer.ID()] = peer
	targets := r.snapshot("")
	r.mu.Unlock()

	if result.Superseded != "" {
		log.Info().
			Str("room_id", roomID).
			Str("user_id", user.ID).
			Str("connection_id", peer.ID()).
			Str("superseded_connection_id", result.Superseded).
			Msg("connection superseded")
	}

	h.sendRoster(roomID, result.Roster, targets)
	return nil
}

// LeaveRoom unsubscribes peer from one room and updates that room's roster
func (h *Hub) LeaveRoom(roomID string, peer Peer) {
	r := h.get(roomID)
	if r == nil {
		return
	}

	r.mu.Lock()
	if r.members[peer.ID()] != peer {
		r.mu.Unlock()
		return
	}
	delete(r.members, peer.ID())
	h.presence.LeaveRoom(roomID, peer.ID())
	roster := h.presence.Roster(roomID)
	targets := r.snapshot("")
	r.mu.Unlock()

	h.dropIfEmpty(roomID, r)
	h.sendRoster(roomID, roster, targets)
}

// Leave removes peer from every room it joined and updates each affected roster
func (h *Hub) Leave(peer Peer) {
	affected := h.presence.Leave(peer.ID())

	for _, roomID := range affected {
		r := h.get(roomID)
		if r == nil {
			continue
		}
		r.mu.Lock()
		if r.members[peer.ID()] == peer {
			delete(r.members, peer.ID())
		}
		roster := h.presence.Roster(roomID)
		targets := r.snapshot("")
		r.mu.Unlock()

		h.dropIfEmpty(roomID, r)
		h.sendRoster(roomID, roster, targets)
	}
}

// RelayDraw forwards a draw action to every other member of the room
func (h *Hub) RelayDraw(roomID string, action models.DrawAction, sender Peer) error {
	return h.relayAction(EventDrawAction, roomID, action, sender)
}

// RelayUndo forwards an undone action to every other member of the room
func (h *Hub) RelayUndo(roomID string, action models.DrawAction, sender Peer) error {
	return h.relayAction(EventDrawUndo, roomID, action, sender)
}

func (h *Hub) relayAction(eventType EventType, roomID string, action models.DrawAction, sender Peer) error {
	if action.ID == "" {
		return fmt.Errorf("%w: action.id is required", ErrInvalidFrame)
	}
	targets, err := h.othersInRoom(roomID, sender)
	if err != nil {
		return err
	}

	frame, err := EncodeFrame(eventType, action)
	if err != nil {
		return err
	}
	h.fanOut(roomID, eventType, frame, targets)
	h.publish(roomID, frame)
	return nil
}

// RelayCursor records the user's cursor and forwards it to the other members
func (h *Hub) RelayCursor(roomID, userID string, pos models.Position, sender Peer) error {
	targets, err := h.othersInRoom(roomID, sender)
	if err != nil {
		return err
	}
	h.presence.UpdateCursor(roomID, userID, pos)

	frame, err := EncodeFrame(EventCursorMove, CursorPayload{UserID: userID, Position: pos})
	if err != nil {
		return err
	}
	h.fanOut(roomID, EventCursorMove, frame, targets)
	h.publish(roomID, frame)
	return nil
}

// CanvasSaved tells every member of the room that its canvas was persisted
func (h *Hub) CanvasSaved(roomID string, savedActions int, truncated bool, savedAt time.Time) {
	frame, err := EncodeFrame(EventCanvasSaved, CanvasSavedPayload{
		RoomID:       roomID,
		SavedActions: savedActions,
		Truncated:    truncated,
		SavedAt:      savedAt,
	})
	if err != nil {
		log.Error().Err(err).Str("room_id", roomID).Msg("failed to encode save notification")
		return
	}
	h.deliver(roomID, frame)
	h.publish(roomID, frame)
}

// deliver sends a frame to every local member of the room
func (h *Hub) deliver(roomID string, frame []byte) {
	r := h.get(roomID)
	if r == nil {
		return
	}
	r.mu.Lock()
	targets := r.snapshot("")
	r.mu.Unlock()
	h.fanOut(roomID, "", frame, targets)
}

// Stats returns connection counts per room, busiest first
func (h *Hub) Stats() Stats {
	h.mu.RLock()
	rooms := make(map[string]*roomMembers, len(h.rooms))
	for id, r := range h.rooms {
		rooms[id] = r
	}
	h.mu.RUnlock()

	stats := Stats{Rooms: []RoomStats{}}
	for id, r := range rooms {
		r.mu.Lock()
		n := len(r.members)
		r.mu.Unlock()
		if n == 0 {
			continue
		}
		stats.TotalConnections += n
		stats.Rooms = append(stats.Rooms, RoomStats{RoomID: id, Connections: n})
	}
	stats.ActiveRooms = len(stats.Rooms)
	sort.Slice(stats.Rooms, func(i, j int) bool {
		if stats.Rooms[i].Connections != stats.Rooms[j].Connections {
			return stats.Rooms[i].Connections > stats.Rooms[j].Connections
		}
		return stats.Rooms[i].RoomID < stats.Rooms[j].RoomID
	})
	return stats
}

// Run delivers frames published by other instances until ctx is done
func (h *Hub) Run(ctx context.Context) error {
	if h.bus == nil {
		<-ctx.Done()
		return nil
	}
	return h.bus.Subscribe(ctx, h.deliver)
}

func (h *Hub) othersInRoom(roomID string, sender Peer) ([]Peer, error) {
	r := h.get(roomID)
	if r == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotMember, roomID)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.members[sender.ID()] != sender {
		return nil, fmt.Errorf("%w: %s", ErrNotMember, roomID)
	}
	return r.snapshot(sender.ID()), nil
}

func (h *Hub) sendRoster(roomID string, roster []presence.ConnectedUser, targets []Peer) {
	if len(targets) == 0 {
		return
	}
	frame, err := EncodeFrame(EventRoomUsers, roster)
	if err != nil {
		log.Error().Err(err).Str("room_id", roomID).Msg("failed to encode roster")
		return
	}
	h.fanOut(roomID, EventRoomUsers, frame, targets)
}

func (h *Hub) fanOut(roomID string, eventType EventType, frame []byte, targets []Peer) {
	dropped := 0
	for _, peer := range targets {
		if !peer.Send(frame) {
			dropped++
		}
	}

	ev := log.Debug()
	if dropped > 0 {
		ev = log.Warn()
	}
	ev.Str("room_id", roomID).
		Str("event_type", string(eventType)).
		Int("connections", len(targets)).
		Int("dropped", dropped).
		Msg("event relayed")
}

func (h *Hub) publish(roomID string, frame []byte) {
	if h.bus == nil {
		return
	}
	if err := h.bus.Publish(roomID, frame); err != nil {
		log.Warn().Err(err).Str("room_id", roomID).Msg("failed to publish to bus")
	}
}

func (h *Hub) get(roomID string) *roomMembers {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.rooms[roomID]
}

func (h *Hub) getOrCreate(roomID string) *roomMembers {
	if r := h.get(roomID); r != nil {
		return r
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	r, ok := h.rooms[roomID]
	if !ok {
		r = &roomMembers{members: make(map[string]Peer)}
		h.rooms[roomID] = r
	}
	return r
}

// dropIfEmpty removes an empty room from the registry. A closed room is never joined;
// Join looks it up again instead.
func (h *Hub) dropIfEmpty(roomID string, r *roomMembers) {
	h.mu.Lock()
	defer h.mu.Unlock()
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.members) == 0 && h.rooms[roomID] == r {
		r.closed = true
		delete(h.rooms, roomID)
	}
}

func (r *roomMembers) snapshot(except string) []Peer {
	out := make([]Peer, 0, len(r.members))
	for id, p := range r.members {
		if id != except {
			out = append(out, p)
		}
	}
	return out
}
