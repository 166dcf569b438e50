// FilePath: internal/database/database.go
package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	nuts "github.com/vaudience/go-nuts"

	"github.com/eval-printer/SmartHome-Demo/internal/config"
)

// DB is the interface the repositories depend on
type DB interface {
	Close() error
	Ping(ctx context.Context) error
	GetDB() *sqlx.DB
}

// PostgresDB represents a PostgreSQL database connection
type PostgresDB struct {
	db *sqlx.DB
}

// Transaction represents a database transaction
type Transaction interface {
	Commit() error
	Rollback() error
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// Repository represents common repository operations
type Repository interface {
	BeginTx(ctx context.Context) (Transaction, error)
}

// schema is applied at start-up; every statement is idempotent
var schema = []string{
	`CREATE TABLE IF NOT EXISTS readings (
		id          TEXT PRIMARY KEY,
		slot        TEXT NOT NULL,
		uri         TEXT NOT NULL,
		attribute   TEXT NOT NULL,
		value       TEXT NOT NULL,
		observed_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS readings_slot_observed_at ON readings (slot, observed_at DESC)`,
	`CREATE TABLE IF NOT EXISTS sensors (
		name       TEXT PRIMARY KEY,
		address    TEXT NOT NULL,
		active     BOOLEAN NOT NULL,
		first_seen TIMESTAMPTZ NOT NULL,
		last_seen  TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS rule_config (
		id              SMALLINT PRIMARY KEY DEFAULT 1 CHECK (id = 1),
		density         INTEGER NOT NULL,
		heart_rate      INTEGER NOT NULL,
		kitchen_monitor BOOLEAN NOT NULL,
		crazy_jumping   BOOLEAN NOT NULL,
		updated_at      TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS commands (
		request_id TEXT PRIMARY KEY,
		slot       TEXT NOT NULL,
		uri        TEXT NOT NULL,
		rule       TEXT NOT NULL,
		delta      JSONB NOT NULL,
		issued_at  TIMESTAMPTZ NOT NULL
	)`,
}

// NewPostgresDB creates a new PostgreSQL database connection
func NewPostgresDB(cfg config.PostgresConfig) (DB, error) {
	dsn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode,
	)

	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("error connecting to PostgreSQL: %w", err)
	}

	nuts.L.Infof("[PostgresDB] Connected to %s:%d/%s", cfg.Host, cfg.Port, cfg.DBName)
	return &PostgresDB{db: db}, nil
}

// Migrate creates the tables used by the gateway
func Migrate(ctx context.Context, db DB) error {
	for _, stmt := range schema {
		if _, err := db.GetDB().ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("error applying schema: %w", err)
		}
	}
	return nil
}

// Implementation of DB interface for PostgresDB
func (p *PostgresDB) Close() error {
	return p.db.Close()
}

func (p *PostgresDB) Ping(ctx context.Context) error {
	return p.db.PingContext(ctx)
}

func (p *PostgresDB) GetDB() *sqlx.DB {
	return p.db
}
