package main

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"

	"github.com/mcdev12/syncboard/go/internal/dbconfig"
	roomsdb "github.com/mcdev12/syncboard/go/internal/rooms/db"
)

func setupDatabase(ctx context.Context, cfg dbconfig.Config) (*sql.DB, roomsdb.Dialect, error) {
	dialect := roomsdb.ParseDialect(cfg.Driver)
	driverName := "postgres"
	if dialect == roomsdb.SQLite {
		driverName = "sqlite"
	}

	database, err := sql.Open(driverName, cfg.DSN())
	if err != nil {
		return nil, dialect, fmt.Errorf("failed to create database connection: %w", err)
	}
	if dialect == roomsdb.SQLite {
		// sqlite serializes writers
		database.SetMaxOpenConns(1)
	}

	if err := database.PingContext(ctx); err != nil {
		database.Close()
		return nil, dialect, fmt.Errorf("failed to ping database: %w", err)
	}

	ev := log.Info().Str("driver", cfg.Driver)
	if dialect == roomsdb.SQLite {
		ev = ev.Str("path", cfg.SQLitePath)
	} else {
		ev = ev.Str("host", cfg.Host).Int("port", cfg.Port).Str("database", cfg.Database)
	}
	ev.Msg("connected to database")

	return database, dialect, nil
}

// migrateDatabase applies the schema. Postgres goes through a pgx pool so the DDL runs
// over the simple protocol in one round trip.
func migrateDatabase(ctx context.Context, cfg dbconfig.Config) error {
	dialect := roomsdb.ParseDialect(cfg.Driver)
	if dialect == roomsdb.Postgres {
		pool, err := pgxpool.New(ctx, cfg.DSN())
		if err != nil {
			return fmt.Errorf("failed to connect: %w", err)
		}
		defer pool.Close()

		if _, err := pool.Exec(ctx, roomsdb.Schema(dialect)); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
		log.Info().Str("database", cfg.Database).Msg("schema applied")
		return nil
	}

	database, _, err := setupDatabase(ctx, cfg)
	if err != nil {
		return err
	}
	defer database.Close()

	if err := roomsdb.Migrate(ctx, database, dialect); err != nil {
		return err
	}
	log.Info().Str("path", cfg.SQLitePath).Msg("schema applied")
	return nil
}
