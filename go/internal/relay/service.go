package relay

import (
	"context"
	"net/http"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/syncboard/go/internal/presence"
	"github.com/rs/zerolog/log"
)

// Service is the real-time relay: a hub, its WebSocket endpoint and an optional bus
// to other instances.
type Service struct {
	hub       *Hub
	wsHandler *WebSocketHandler
	bus       Bus
}

// Config holds configuration for the relay service
type Config struct {
	ConnectionConfig ConnectionConfig
}

// DefaultConfig returns default configuration for the relay
func DefaultConfig() Config {
	return Config{
		ConnectionConfig: DefaultConnectionConfig(),
	}
}

// NewService creates a relay service. bus may be nil.
func NewService(config Config, bus Bus, clock clockwork.Clock) *Service {
	hub := NewHub(presence.NewTracker(clock), bus)
	return &Service{
		hub:       hub,
		wsHandler: NewWebSocketHandler(hub, config.ConnectionConfig),
		bus:       bus,
	}
}

// Start relays frames from other instances until ctx is cancelled
func (s *Service) Start(ctx context.Context) error {
	log.Info().Bool("bus", s.bus != nil).Msg("starting relay service")

	err := s.hub.Run(ctx)

	log.Info().Msg("relay service shutting down")
	if stopErr := s.Stop(); stopErr != nil && err == nil {
		err = stopErr
	}
	return err
}

// Stop closes the bus
func (s *Service) Stop() error {
	if s.bus == nil {
		return nil
	}
	return s.bus.Close()
}

// RegisterRoutes registers the WebSocket HTTP routes
func (s *Service) RegisterRoutes(mux *http.ServeMux) {
	s.wsHandler.RegisterRoutes(mux)
	log.Info().Msg("relay routes registered")
}

// Hub returns the service's hub
func (s *Service) Hub() *Hub {
	return s.hub
}

// CanvasSaved broadcasts a save notification to the room
func (s *Service) CanvasSaved(roomID string, savedActions int, truncated bool, savedAt time.Time) {
	s.hub.CanvasSaved(roomID, savedActions, truncated, savedAt)
}
