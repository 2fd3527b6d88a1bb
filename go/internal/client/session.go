package client

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/syncboard/go/internal/canvas"
	"github.com/mcdev12/syncboard/go/internal/models"
	"github.com/mcdev12/syncboard/go/internal/presence"
	"github.com/mcdev12/syncboard/go/internal/relay"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

// Transport sends frames to the relay; *Conn implements it
type Transport interface {
	Send(eventType relay.EventType, payload interface{}) error
}

// RoomAPI is the persistence surface a session needs; *rooms.RoomServiceClient
// implements it
type RoomAPI interface {
	CanvasSaver
	GetRoom(ctx context.Context, slug string) (*models.Room, error)
}

// SessionConfig holds the settings of one participant in one room
type SessionConfig struct {
	Slug string
	User models.UserRef

	Store    canvas.StoreConfig
	Stroke   canvas.StrokeConfig
	AutoSave AutoSaverConfig
	// CursorInterval is the minimum spacing of cursor updates.
	CursorInterval time.Duration
}

// DefaultSessionConfig returns the default settings for user in the room slug
func DefaultSessionConfig(slug string, user models.UserRef) SessionConfig {
	return SessionConfig{
		Slug:           slug,
		User:           user,
		Store:          canvas.DefaultStoreConfig(),
		Stroke:         canvas.DefaultStrokeConfig(),
		AutoSave:       DefaultAutoSaverConfig(),
		CursorInterval: 50 * time.Millisecond,
	}
}

// Session ties a local replica to the relay and the persistence API: gestures are
// applied optimistically and broadcast, inbound frames are reconciled into the store
// and the log is autosaved in the background.
type Session struct {
	config    SessionConfig
	transport Transport
	api       RoomAPI
	clock     clockwork.Clock

	store    *canvas.Store
	saver    *AutoSaver
	cursors  *rate.Limiter
	recorder *canvas.StrokeRecorder

	mu        sync.Mutex
	style     canvas.Style
	room      *models.Room
	roster    []presence.ConnectedUser
	positions map[string]models.Position
	lastSave  *relay.CanvasSavedPayload
}

// NewSession creates a session; call Enter to load the room and join it
func NewSession(config SessionConfig, transport Transport, api RoomAPI, clock clockwork.Clock) *Session {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	limit := rate.Inf
	if config.CursorInterval > 0 {
		limit = rate.Every(config.CursorInterval)
	}

	store := canvas.NewStore(config.User.ID, config.Store, clock)
	saver := NewAutoSaver(api, config.Slug, store, config.AutoSave, clock)
	store.Subscribe(saver)

	return &Session{
		config:    config,
		transport: transport,
		api:       api,
		clock:     clock,
		store:     store,
		saver:     saver,
		cursors:   rate.NewLimiter(limit, 1),
		recorder:  canvas.NewStrokeRecorder(config.User.ID, config.Stroke, clock),
		style:     canvas.DefaultStyle(),
		positions: make(map[string]models.Position),
	}
}

// Enter reads the room's snapshot once, loads it, then joins the relay room. A room
// that does not exist is a terminal error; the caller must not retry.
func (s *Session) Enter(ctx context.Context) error {
	room, err := s.api.GetRoom(ctx, s.config.Slug)
	if err != nil {
		return fmt.Errorf("load room %s: %w", s.config.Slug, err)
	}

	s.mu.Lock()
	s.room = room
	s.mu.Unlock()

	s.store.LoadSnapshot(room.Actions())
	log.Debug().
		Str("slug", s.config.Slug).
		Int("actions", s.store.Len()).
		Msg("loaded canvas snapshot")

	return s.Rejoin()
}

// Rejoin announces the session to the relay again, e.g. after reconnecting
func (s *Session) Rejoin() error {
	if err := s.transport.Send(relay.EventJoinRoom, relay.JoinRoomPayload{
		RoomID: s.config.Slug,
		User:   s.config.User,
	}); err != nil {
		return fmt.Errorf("join room %s: %w", s.config.Slug, err)
	}
	return nil
}

// Leave flushes unsaved actions and leaves the relay room. It reports whether an exit
// flush was started.
func (s *Session) Leave() bool {
	flushed := s.saver.FlushOnExit()
	s.send(relay.EventLeaveRoom, relay.LeaveRoomPayload{RoomID: s.config.Slug})
	return flushed
}

// Store returns the session's replica
func (s *Session) Store() *canvas.Store { return s.store }

// Saver returns the session's autosaver
func (s *Session) Saver() *AutoSaver { return s.saver }

// Room returns the room loaded by Enter
func (s *Session) Room() *models.Room {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.room
}

// SetStyle sets the tool, color and brush size of the next stroke
func (s *Session) SetStyle(style canvas.Style) {
	s.mu.Lock()
	s.style = style
	s.mu.Unlock()
}

// Style returns the current brush state
func (s *Session) Style() canvas.Style {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.style
}

// BeginStroke starts a stroke at p and returns its id
func (s *Session) BeginStroke(p models.Point) string {
	return s.recorder.Begin(s.Style(), p)
}

// ExtendStroke adds a point and broadcasts an incremental update when one is due.
// Incremental updates are not applied to the local log.
func (s *Session) ExtendStroke(p models.Point) {
	if update, ok := s.recorder.Extend(p); ok {
		s.sendAction(relay.EventDrawAction, update)
	}
}

// EndStroke commits the stroke locally and broadcasts its final form
func (s *Session) EndStroke() (models.DrawAction, bool) {
	action, ok := s.recorder.Finish()
	if !ok {
		return models.DrawAction{}, false
	}
	s.store.ApplyLocal(action)
	s.sendAction(relay.EventDrawAction, action)
	return action, true
}

// Undo removes the local user's most recent action everywhere
func (s *Session) Undo() bool {
	action, ok := s.store.Undo()
	if ok {
		s.sendAction(relay.EventDrawUndo, action)
	}
	return ok
}

// Redo restores the most recently undone action as a new draw
func (s *Session) Redo() bool {
	action, ok := s.store.Redo()
	if ok {
		s.sendAction(relay.EventDrawAction, action)
	}
	return ok
}

// Clear wipes the canvas for everyone; it is undoable like any own action
func (s *Session) Clear() models.DrawAction {
	action := s.store.Clear()
	s.sendAction(relay.EventDrawAction, action)
	return action
}

// MoveCursor broadcasts the cursor position, at most once per CursorInterval. It
// reports whether the update was sent.
func (s *Session) MoveCursor(pos models.Position) bool {
	if !s.cursors.AllowN(s.clock.Now(), 1) {
		return false
	}
	s.send(relay.EventCursorMove, relay.CursorMovePayload{
		RoomID:   s.config.Slug,
		UserID:   s.config.User.ID,
		Position: pos,
	})
	return true
}

// Roster returns the last roster received from the relay
func (s *Session) Roster() []presence.ConnectedUser {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]presence.ConnectedUser(nil), s.roster...)
}

// Cursor returns the last known cursor of a peer
func (s *Session) Cursor(userID string) (models.Position, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	pos, ok := s.positions[userID]
	return pos, ok
}

// LastServerSave returns the most recent canvas:saved notification, if any
func (s *Session) LastServerSave() (relay.CanvasSavedPayload, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lastSave == nil {
		return relay.CanvasSavedPayload{}, false
	}
	return *s.lastSave, true
}

// HandleFrame reconciles one frame from the relay into the session
func (s *Session) HandleFrame(frame relay.Frame) {
	var err error
	switch frame.Type {
	case relay.EventDrawAction:
		var action models.DrawAction
		if err = frame.DecodePayload(&action); err == nil {
			s.store.ApplyRemote(action)
		}

	case relay.EventDrawUndo:
		var action models.DrawAction
		if err = frame.DecodePayload(&action); err == nil {
			s.store.RemoveByID(action.ID)
		}

	case relay.EventRoomUsers:
		var roster []presence.ConnectedUser
		if err = frame.DecodePayload(&roster); err == nil {
			s.setRoster(roster)
		}

	case relay.EventCursorMove:
		var p relay.CursorPayload
		if err = frame.DecodePayload(&p); err == nil {
			s.mu.Lock()
			s.positions[p.UserID] = p.Position
			s.mu.Unlock()
		}

	case relay.EventCanvasSaved:
		var p relay.CanvasSavedPayload
		if err = frame.DecodePayload(&p); err == nil {
			s.mu.Lock()
			s.lastSave = &p
			s.mu.Unlock()
		}

	case relay.EventError:
		var p relay.ErrorPayload
		if err = frame.DecodePayload(&p); err == nil {
			log.Warn().Str("slug", s.config.Slug).Str("message", p.Message).Msg("relay rejected a frame")
		}

	default:
		log.Debug().Str("event_type", string(frame.Type)).Msg("ignoring unknown relay event")
	}

	if err != nil {
		log.Warn().Err(err).Str("slug", s.config.Slug).Msg("dropping undecodable relay frame")
	}
}

// setRoster replaces the roster and takes cursors from it: users who left or whose
// cursor was reset by a re-join lose their cached position
func (s *Session) setRoster(roster []presence.ConnectedUser) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.roster = roster

	present := make(map[string]bool, len(roster))
	for _, u := range roster {
		present[u.ID] = true
		if u.Cursor != nil {
			s.positions[u.ID] = *u.Cursor
		} else {
			delete(s.positions, u.ID)
		}
	}
	for id := range s.positions {
		if !present[id] {
			delete(s.positions, id)
		}
	}
}

func (s *Session) sendAction(eventType relay.EventType, action models.DrawAction) {
	s.send(eventType, relay.DrawPayload{RoomID: s.config.Slug, Action: action})
}

// send is fire-and-forget; peers converge through later updates and snapshots
func (s *Session) send(eventType relay.EventType, payload interface{}) {
	if err := s.transport.Send(eventType, payload); err != nil {
		log.Warn().Err(err).Str("event_type", string(eventType)).Str("slug", s.config.Slug).Msg("failed to send to relay")
	}
}
