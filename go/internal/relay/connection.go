package relay

import (
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// ConnectionConfig holds configuration for WebSocket connections
type ConnectionConfig struct {
	WriteTimeout    time.Duration
	ReadTimeout     time.Duration
	PingInterval    time.Duration
	MaxMessageSize  int64
	ReadBufferSize  int
	WriteBufferSize int
	SendBufferSize  int
	CheckOrigin     func(r *http.Request) bool
}

// DefaultConnectionConfig returns default WebSocket configuration
func DefaultConnectionConfig() ConnectionConfig {
	return ConnectionConfig{
		WriteTimeout:    10 * time.Second,
		ReadTimeout:     60 * time.Second,
		PingInterval:    30 * time.Second,
		MaxMessageSize:  512 * 1024, // long strokes carry thousands of points
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		SendBufferSize:  256,
		CheckOrigin: func(r *http.Request) bool {
			return true
		},
	}
}

// Connection is one client's WebSocket. It may join several rooms.
type Connection struct {
	id   string
	conn *websocket.Conn
	send chan []byte
	hub  *Hub

	config ConnectionConfig

	mu     sync.Mutex
	userID string

	closeOnce sync.Once
	done      chan struct{}

	ConnectedAt time.Time
}

func newConnection(conn *websocket.Conn, hub *Hub, config ConnectionConfig) *Connection {
	if config.SendBufferSize <= 0 {
		config.SendBufferSize = 256
	}
	return &Connection{
		id:          uuid.New().String(),
		conn:        conn,
		send:        make(chan []byte, config.SendBufferSize),
		hub:         hub,
		config:      config,
		done:        make(chan struct{}),
		ConnectedAt: time.Now(),
	}
}

// ID returns the connection id, which is the roster's socketId
func (c *Connection) ID() string {
	return c.id
}

// UserID returns the user the connection last joined as
func (c *Connection) UserID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.userID
}

// Send enqueues a frame without blocking. When the buffer is full the frame is dropped
// for this connection only; a dead peer is reaped by the write deadline or read timeout.
func (c *Connection) Send(frame []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}

	select {
	case c.send <- frame:
		return true
	default:
		log.Warn().
			Str("connection_id", c.id).
			Str("user_id", c.UserID()).
			Msg("connection send buffer full, dropping frame")
		return false
	}
}

// Close stops the write loop and closes the socket. It is safe to call more than once.
func (c *Connection) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
	})
}

func (c *Connection) setUser(userID string) {
	c.mu.Lock()
	c.userID = userID
	c.mu.Unlock()
}

// writePump handles sending messages to the WebSocket connection
func (c *Connection) writePump() {
	ticker := time.NewTicker(c.config.PingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Error().
					Err(err).
					Str("connection_id", c.id).
					Msg("failed to write message to WebSocket")
				c.Close()
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Error().
					Err(err).
					Str("connection_id", c.id).
					Msg("failed to send ping")
				c.Close()
				return
			}

		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
			c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		}
	}
}

// readPump reads frames until the socket fails, then leaves every joined room
func (c *Connection) readPump() {
	defer func() {
		c.hub.Leave(c)
		c.Close()
		c.conn.Close()

		log.Info().
			Str("connection_id", c.id).
			Str("user_id", c.UserID()).
			Dur("connected_for", time.Since(c.ConnectedAt)).
			Msg("connection closed")
	}()

	c.conn.SetReadLimit(c.config.MaxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(c.config.ReadTimeout))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(c.config.ReadTimeout))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				log.Error().
					Err(err).
					Str("connection_id", c.id).
					Msg("unexpected WebSocket close error")
			}
			return
		}

		c.handleClientMessage(message)
		c.conn.SetReadDeadline(time.Now().Add(c.config.ReadTimeout))
	}
}

// handleClientMessage dispatches one client frame to the hub. Rejected frames are
// answered with an error frame; the connection stays open.
func (c *Connection) handleClientMessage(message []byte) {
	frame, err := DecodeFrame(message)
	if err != nil {
		c.reject(err)
		return
	}

	switch frame.Type {
	case EventJoinRoom:
		var p JoinRoomPayload
		if err = frame.DecodePayload(&p); err == nil {
			if err = c.hub.Join(p.RoomID, p.User, c); err == nil {
				c.setUser(p.User.ID)
				log.Info().
					Str("connection_id", c.id).
					Str("user_id", p.User.ID).
					Str("room_id", p.RoomID).
					Msg("connection joined room")
			}
		}

	case EventLeaveRoom:
		var p LeaveRoomPayload
		if err = frame.DecodePayload(&p); err == nil {
			c.hub.LeaveRoom(p.RoomID, c)
		}

	case EventDrawAction, EventDrawUndo:
		var p DrawPayload
		if err = frame.DecodePayload(&p); err == nil {
			if frame.Type == EventDrawAction {
				err = c.hub.RelayDraw(p.RoomID, p.Action, c)
			} else {
				err = c.hub.RelayUndo(p.RoomID, p.Action, c)
			}
		}

	case EventCursorMove:
		var p CursorMovePayload
		if err = frame.DecodePayload(&p); err == nil {
			userID := p.UserID
			if userID == "" {
				userID = c.UserID()
			}
			err = c.hub.RelayCursor(p.RoomID, userID, p.Position, c)
		}

	default:
		log.Debug().
			Str("connection_id", c.id).
			Str("event_type", string(frame.Type)).
			Msg("ignoring unknown client event")
		return
	}

	if err != nil {
		c.reject(err)
	}
}

func (c *Connection) reject(err error) {
	ev := log.Debug()
	if !errors.Is(err, ErrNotMember) {
		ev = log.Warn()
	}
	ev.Err(err).Str("connection_id", c.id).Msg("rejected client frame")

	frame, encErr := EncodeFrame(EventError, ErrorPayload{Message: err.Error()})
	if encErr != nil {
		return
	}
	c.Send(frame)
}
