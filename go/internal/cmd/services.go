package main

import (
	"database/sql"
	"fmt"

	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/syncboard/go/internal/relay"
	"github.com/mcdev12/syncboard/go/internal/rooms"
	roomsdb "github.com/mcdev12/syncboard/go/internal/rooms/db"
)

type Services struct {
	Rooms     *rooms.Service
	RoomsHTTP *rooms.HTTPHandler
	Relay     *relay.Service
}

func setupServices(database *sql.DB, dialect roomsdb.Dialect, config *Config) (*Services, error) {
	// Wire up dependency injection chain
	// Database layer → Repository layer → App layer → Service layer
	// The relay is built first so saves can be announced to the room.
	clock := clockwork.NewRealClock()

	bus, err := setupBus(config)
	if err != nil {
		return nil, err
	}

	relayConfig := relay.DefaultConfig()
	if config.Relay.MaxMessageSize > 0 {
		relayConfig.ConnectionConfig.MaxMessageSize = config.Relay.MaxMessageSize
	}
	if config.Relay.SendBufferSize > 0 {
		relayConfig.ConnectionConfig.SendBufferSize = config.Relay.SendBufferSize
	}
	relayService := relay.NewService(relayConfig, bus, clock)

	// Rooms
	queries := roomsdb.New(database, dialect)
	roomsRepo := rooms.NewRepository(queries, database)
	appConfig := rooms.DefaultAppConfig()
	if config.Relay.MaxStoredActions > 0 {
		appConfig.MaxStoredActions = config.Relay.MaxStoredActions
	}
	roomsApp := rooms.NewApp(roomsRepo, appConfig, clock, relayService)

	return &Services{
		Rooms:     rooms.NewService(roomsApp),
		RoomsHTTP: rooms.NewHTTPHandler(roomsApp),
		Relay:     relayService,
	}, nil
}

// setupBus returns nil when cross-instance relaying is off
func setupBus(config *Config) (relay.Bus, error) {
	if !config.NATS.Enabled {
		return nil, nil
	}
	natsConfig := relay.DefaultNATSConfig()
	if config.NATS.URL != "" {
		natsConfig.URL = config.NATS.URL
	}
	if config.NATS.SubjectPrefix != "" {
		natsConfig.SubjectPrefix = config.NATS.SubjectPrefix
	}
	bus, err := relay.NewNATSBus(natsConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create NATS bus: %w", err)
	}
	return bus, nil
}
