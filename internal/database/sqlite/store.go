package sqlite

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
	moderncsqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/frostdev-ops/home-panel-go/internal/database/repositories"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// Options configures the SQLite store
type Options struct {
	Path           string
	MaxConnections int
}

// Store implements repositories.Store on SQLite. Write transactions are
// serialized in-process so that concurrent mutations never race for the
// database write lock.
type Store struct {
	db      *sqlx.DB
	log     *logrus.Logger
	writeMu sync.Mutex
}

// Open opens (creating if needed) the database at opts.Path
func Open(opts Options, log *logrus.Logger) (*Store, error) {
	if dir := filepath.Dir(opts.Path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sqlx.Open("sqlite", dsn(opts.Path))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	maxConns := opts.MaxConnections
	if maxConns <= 0 {
		maxConns = 4
	}
	db.SetMaxOpenConns(maxConns)
	db.SetMaxIdleConns(maxConns)
	db.SetConnMaxLifetime(time.Hour)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.WithFields(logrus.Fields{
		"path":            opts.Path,
		"max_connections": maxConns,
	}).Info("SQLite store opened")

	return &Store{db: db, log: log}, nil
}

// Pragmas are applied per connection through the DSN so every pooled
// connection enforces foreign keys and waits on a busy database.
func dsn(path string) string {
	pragmas := []string{
		"_pragma=foreign_keys(1)",
		"_pragma=journal_mode(WAL)",
		"_pragma=synchronous(NORMAL)",
		"_pragma=busy_timeout(5000)",
		"_time_format=sqlite",
	}
	return "file:" + path + "?" + strings.Join(pragmas, "&")
}

// DB exposes the underlying handle for migrations and health checks
func (s *Store) DB() *sqlx.DB {
	return s.db
}

// Migrate applies all pending up migrations
func (s *Store) Migrate() error {
	m, err := s.migrator()
	if err != nil {
		return err
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	version, dirty, _ := m.Version()
	s.log.WithFields(logrus.Fields{"version": version, "dirty": dirty}).Info("Database migrations applied")
	return nil
}

// MigrateDown rolls back the given number of migrations, or all of them when steps <= 0
func (s *Store) MigrateDown(steps int) error {
	m, err := s.migrator()
	if err != nil {
		return err
	}
	if steps > 0 {
		err = m.Steps(-steps)
	} else {
		err = m.Down()
	}
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to roll back migrations: %w", err)
	}
	return nil
}

// MigrationVersion reports the current schema version
func (s *Store) MigrationVersion() (uint, bool, error) {
	m, err := s.migrator()
	if err != nil {
		return 0, false, err
	}
	version, dirty, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	return version, dirty, err
}

func (s *Store) migrator() (*migrate.Migrate, error) {
	source, err := iofs.New(migrationFS, "migrations")
	if err != nil {
		return nil, fmt.Errorf("failed to load embedded migrations: %w", err)
	}
	driver, err := migratesqlite.WithInstance(s.db.DB, &migratesqlite.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to create migration driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", source, "sqlite", driver)
	if err != nil {
		return nil, fmt.Errorf("failed to create migration instance: %w", err)
	}
	return m, nil
}

// View runs fn in a read-only transaction
func (s *Store) View(ctx context.Context, fn func(tx repositories.Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin read transaction: %w", err)
	}
	defer tx.Rollback()
	return fn(&txScope{ctx: ctx, tx: tx})
}

// Update runs fn in a write transaction, committing if fn returns nil
func (s *Store) Update(ctx context.Context, fn func(tx repositories.Tx) error) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if err := fn(&txScope{ctx: ctx, tx: tx}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			s.log.WithError(rbErr).Warn("Failed to roll back transaction")
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Close closes the database
func (s *Store) Close() error {
	return s.db.Close()
}

type txScope struct {
	ctx context.Context
	tx  *sqlx.Tx
}

func (t *txScope) Devices() repositories.DeviceRepository         { return &DeviceRepository{t} }
func (t *txScope) Rooms() repositories.RoomRepository             { return &RoomRepository{t} }
func (t *txScope) Scenes() repositories.SceneRepository           { return &SceneRepository{t} }
func (t *txScope) Automations() repositories.AutomationRepository { return &AutomationRepository{t} }
func (t *txScope) Users() repositories.UserRepository             { return &UserRepository{t} }

func now() time.Time {
	return time.Now().UTC()
}

func stamp(created, updated *time.Time) {
	ts := now()
	if created.IsZero() {
		*created = ts
	}
	*updated = ts
}

// translate maps driver errors onto the repository sentinel errors
func translate(err error, op string) error {
	if err == nil {
		return nil
	}
	var sqliteErr *moderncsqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return fmt.Errorf("%s: %w", op, repositories.ErrConflict)
		}
	}
	return fmt.Errorf("failed to %s: %w", op, err)
}

func expectOne(res interface{ RowsAffected() (int64, error) }, op string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to %s: %w", op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", op, repositories.ErrNotFound)
	}
	return nil
}
