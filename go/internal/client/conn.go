package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/mcdev12/syncboard/go/internal/relay"
	"github.com/rs/zerolog/log"
)

// ErrNotConnected is returned when sending on a closed or never opened connection
var ErrNotConnected = errors.New("not connected")

// ConnConfig holds configuration for the client transport
type ConnConfig struct {
	URL          string
	DialTimeout  time.Duration
	WriteTimeout time.Duration
	Header       http.Header
}

// DefaultConnConfig returns client transport defaults for the relay at url
func DefaultConnConfig(url string) ConnConfig {
	return ConnConfig{
		URL:          url,
		DialTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
}

// FrameHandler receives every frame read from the relay, in order
type FrameHandler func(relay.Frame)

// Conn is a client's WebSocket to the relay. Frames are handed to the handler from a
// single read goroutine; writes are serialized.
type Conn struct {
	config ConnConfig

	mu      sync.Mutex
	handler FrameHandler
	ws      *websocket.Conn
	closed  chan struct{}
}

// NewConn creates an unconnected transport
func NewConn(config ConnConfig) *Conn {
	return &Conn{config: config}
}

// OnFrame sets the handler for frames read after the next Connect
func (c *Conn) OnFrame(handler FrameHandler) {
	c.mu.Lock()
	c.handler = handler
	c.mu.Unlock()
}

// Connect dials the relay and starts reading. A dropped connection is not redialed;
// callers connect again and re-join their rooms.
func (c *Conn) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ws != nil {
		return nil
	}

	dialer := websocket.Dialer{HandshakeTimeout: c.config.DialTimeout}
	ws, _, err := dialer.DialContext(ctx, c.config.URL, c.config.Header)
	if err != nil {
		return fmt.Errorf("dial relay %s: %w", c.config.URL, err)
	}

	c.ws = ws
	c.closed = make(chan struct{})
	go c.readLoop(ws, c.closed, c.handler)

	log.Debug().Str("url", c.config.URL).Msg("connected to relay")
	return nil
}

// Send writes one frame
func (c *Conn) Send(eventType relay.EventType, payload interface{}) error {
	frame, err := relay.EncodeFrame(eventType, payload)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ws == nil {
		return ErrNotConnected
	}
	c.ws.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
	if err := c.ws.WriteMessage(websocket.TextMessage, frame); err != nil {
		return fmt.Errorf("write %s: %w", eventType, err)
	}
	return nil
}

// Close sends a close frame and shuts the socket
func (c *Conn) Close() error {
	c.mu.Lock()
	ws, closed := c.ws, c.closed
	c.ws = nil
	c.mu.Unlock()

	if ws == nil {
		return nil
	}
	ws.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
	ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	err := ws.Close()
	<-closed
	return err
}

// Done is closed when the current connection's read loop ends
func (c *Conn) Done() <-chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed == nil {
		done := make(chan struct{})
		close(done)
		return done
	}
	return c.closed
}

func (c *Conn) readLoop(ws *websocket.Conn, closed chan struct{}, handler FrameHandler) {
	defer func() {
		c.mu.Lock()
		if c.ws == ws {
			c.ws = nil
		}
		c.mu.Unlock()
		ws.Close()
		close(closed)
	}()

	for {
		_, raw, err := ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Warn().Err(err).Msg("relay connection lost")
			}
			return
		}
		frame, err := relay.DecodeFrame(raw)
		if err != nil {
			log.Warn().Err(err).Msg("dropping malformed frame from relay")
			continue
		}
		if handler != nil {
			handler(frame)
		}
	}
}
