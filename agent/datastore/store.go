package datastore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/pgdriver"
	_ "modernc.org/sqlite"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

type Config struct {
	Driver string `split_words:"true" default:"sqlite"`
	// DSN is a file path for sqlite and a postgres:// URL for postgres.
	DSN  string `split_words:"true" default:"support.db"`
	Seed bool   `split_words:"true" default:"true"`
}

func (c Config) Validate() error {
	switch strings.ToLower(strings.TrimSpace(c.Driver)) {
	case DriverSQLite, DriverPostgres:
	default:
		return fmt.Errorf("unsupported datastore driver %q", c.Driver)
	}
	if strings.TrimSpace(c.DSN) == "" {
		return errors.New("datastore dsn is required")
	}
	return nil
}

// Store is the customer and ticket database behind the data tools.
type Store struct {
	db  *bun.DB
	now func() time.Time
}

// Open connects, migrates and optionally seeds the database.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var db *bun.DB
	switch strings.ToLower(strings.TrimSpace(cfg.Driver)) {
	case DriverPostgres:
		sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(cfg.DSN)))
		db = bun.NewDB(sqldb, pgdialect.New())
	default:
		sqldb, err := sql.Open("sqlite", sqliteDSN(cfg.DSN))
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		// single writer
		sqldb.SetMaxOpenConns(1)
		db = bun.NewDB(sqldb, sqlitedialect.New())
	}

	store := New(db)
	if err := store.Migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate schema: %w", err)
	}
	if cfg.Seed {
		if err := store.SeedIfEmpty(ctx); err != nil {
			db.Close()
			return nil, fmt.Errorf("seed sample data: %w", err)
		}
	}
	return store, nil
}

func New(db *bun.DB) *Store {
	return &Store{db: db, now: func() time.Time { return time.Now().UTC() }}
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.NewCreateTable().
		Model((*customerRow)(nil)).
		IfNotExists().
		Exec(ctx); err != nil {
		return fmt.Errorf("create customers: %w", err)
	}
	if _, err := s.db.NewCreateTable().
		Model((*ticketRow)(nil)).
		IfNotExists().
		ForeignKey(`("customer_id") REFERENCES "customers" ("id") ON DELETE CASCADE`).
		Exec(ctx); err != nil {
		return fmt.Errorf("create tickets: %w", err)
	}
	if _, err := s.db.NewCreateIndex().
		Model((*ticketRow)(nil)).
		Index("idx_tickets_customer_id").
		IfNotExists().
		Column("customer_id").
		Exec(ctx); err != nil {
		return fmt.Errorf("create tickets index: %w", err)
	}
	return nil
}

func sqliteDSN(path string) string {
	path = strings.TrimSpace(path)
	if strings.HasPrefix(path, "file:") {
		return path
	}
	return fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)&_pragma=busy_timeout(5000)", path)
}
