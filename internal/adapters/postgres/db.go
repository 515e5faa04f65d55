package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// schema creates the permission tables. Every statement is idempotent.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS permission_groups (
		name       TEXT PRIMARY KEY,
		priority   INTEGER NOT NULL DEFAULT 0,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS permission_grants (
		target_kind TEXT NOT NULL,
		target_id   TEXT NOT NULL,
		permission  TEXT NOT NULL,
		granted_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
		PRIMARY KEY (target_kind, target_id, permission)
	)`,
	`CREATE TABLE IF NOT EXISTS player_groups (
		player_id  TEXT NOT NULL,
		group_name TEXT NOT NULL REFERENCES permission_groups(name) ON DELETE CASCADE,
		PRIMARY KEY (player_id, group_name)
	)`,
	`INSERT INTO permission_groups (name) VALUES ('default') ON CONFLICT DO NOTHING`,
}

// DB holds the connection pool.
type DB struct {
	pool *pgxpool.Pool
	log  zerolog.Logger
}

// NewDB creates and tests a new database connection.
func NewDB(ctx context.Context, connString string, baseLogger *zerolog.Logger) (*DB, error) {
	log := baseLogger.With().Str("component", "postgres").Logger()

	poolConfig, err := pgxpool.ParseConfig(connString)
	if err != nil {
		log.Error().Err(err).Msg("Failed to parse DB connection string")
		return nil, err
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		log.Error().Err(err).Msg("Failed to create connection pool")
		return nil, err
	}

	// Ping the database to ensure a valid connection
	if err := pool.Ping(ctx); err != nil {
		log.Error().Err(err).Msg("Failed to ping database")
		pool.Close() // Clean up
		return nil, err
	}

	log.Info().Msg("Database connection pool established")
	return &DB{pool: pool, log: log}, nil
}

// Migrate creates the permission schema if it does not exist yet.
func (db *DB) Migrate(ctx context.Context) error {
	for i, stmt := range schema {
		if _, err := db.pool.Exec(ctx, stmt); err != nil {
			db.log.Error().Err(err).Int("statement", i).Msg("Migration failed")
			return fmt.Errorf("migration statement %d: %w", i, err)
		}
	}
	db.log.Info().Int("statements", len(schema)).Msg("Schema is up to date")
	return nil
}

// Close gracefully closes the connection pool.
func (db *DB) Close() {
	db.log.Info().Msg("Closing database connection pool")
	db.pool.Close()
}
