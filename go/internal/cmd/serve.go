package main

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/mcdev12/syncboard/go/internal/discovery"
	roomsdb "github.com/mcdev12/syncboard/go/internal/rooms/db"
)

var serveFlags struct {
	mdns bool
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the relay, the room API and the REST endpoints",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Flags().Changed("mdns") {
			config.Discovery.MDNS = serveFlags.mdns
		}
		return serve(cmd.Context(), config)
	},
}

func init() {
	serveCmd.Flags().BoolVar(&serveFlags.mdns, "mdns", false, "advertise the relay on the local network")
}

func serve(ctx context.Context, config *Config) error {
	dbCfg := config.databaseConfig()
	database, dialect, err := setupDatabase(ctx, dbCfg)
	if err != nil {
		return err
	}
	defer database.Close()

	if config.Database.Migrate {
		if err := roomsdb.Migrate(ctx, database, dialect); err != nil {
			return err
		}
	}

	services, err := setupServices(database, dialect, config)
	if err != nil {
		return err
	}
	server := setupServer(config, services)

	log.Info().
		Str("port", config.Server.Port).
		Str("store", dbCfg.Driver).
		Bool("nats", config.NATS.Enabled).
		Bool("mdns", config.Discovery.MDNS).
		Msg("starting syncboard")

	// Context for the relay's bus subscription
	relayCtx, cancelRelay := context.WithCancel(context.Background())
	defer cancelRelay()
	relayDone := make(chan struct{})
	go func() {
		defer close(relayDone)
		if err := services.Relay.Start(relayCtx); err != nil {
			log.Error().Err(err).Msg("relay service failed")
		}
	}()

	if config.Discovery.MDNS {
		port, _ := strconv.Atoi(config.Server.Port)
		advertiser, err := discovery.Advertise(config.Discovery.Instance, port)
		if err != nil {
			log.Warn().Err(err).Msg("mDNS advertisement disabled")
		} else {
			defer advertiser.Shutdown()
		}
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info().Str("addr", server.Addr).Msg("HTTP server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	// Wait for interrupt signal or a server failure
	select {
	case <-ctx.Done():
		log.Info().Msg("received shutdown signal")
	case err := <-serverErr:
		if err != nil {
			cancelRelay()
			<-relayDone
			return err
		}
	}

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), config.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown failed")
	}

	cancelRelay()
	select {
	case <-relayDone:
	case <-time.After(time.Second):
		log.Warn().Msg("relay did not stop in time")
	}

	log.Info().Msg("syncboard shutdown complete")
	return nil
}
