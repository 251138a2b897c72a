// Package migration wraps golang-migrate/migrate for the knowledge
// schema: knowledge_items and session_exchanges.
package migration

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jmoiron/sqlx"
)

// Config configures a Manager.
type Config struct {
	MigrationsPath   string
	MigrationTimeout time.Duration
	Steps            int
}

func (c Config) withDefaults() Config {
	if c.MigrationsPath == "" {
		c.MigrationsPath = "migrations/sql"
	}
	if c.MigrationTimeout == 0 {
		c.MigrationTimeout = time.Minute
	}
	return c
}

// Manager runs schema migrations against a Postgres database.
type Manager struct {
	db       *sqlx.DB
	config   Config
	migrator *migrate.Migrate
}

// NewManager constructs a Manager bound to db.
func NewManager(db *sqlx.DB, config Config) (*Manager, error) {
	if db == nil {
		return nil, errors.New("migration: db connection cannot be nil")
	}
	return &Manager{db: db, config: config.withDefaults()}, nil
}

// Init prepares the underlying migrate.Migrate instance.
func (m *Manager) Init() error {
	driver, err := postgres.WithInstance(m.db.DB, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("create postgres driver: %w", err)
	}
	sourceURL := fmt.Sprintf("file://%s", m.config.MigrationsPath)
	migrator, err := migrate.NewWithDatabaseInstance(sourceURL, "postgres", driver)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}
	m.migrator = migrator
	return nil
}

func (m *Manager) ensureInit() error {
	if m.migrator == nil {
		return m.Init()
	}
	return nil
}

// Up applies all pending migrations, or the configured number of steps.
func (m *Manager) Up(ctx context.Context) error {
	if err := m.ensureInit(); err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, m.config.MigrationTimeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		var err error
		if m.config.Steps > 0 {
			err = m.migrator.Steps(m.config.Steps)
		} else {
			err = m.migrator.Up()
		}
		if errors.Is(err, migrate.ErrNoChange) {
			err = nil
		}
		done <- err
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("migration error: %w", err)
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("migration timeout after %s", m.config.MigrationTimeout)
	}
}

// Down rolls back the most recently applied migration.
func (m *Manager) Down() error {
	if err := m.ensureInit(); err != nil {
		return err
	}
	return m.migrator.Steps(-1)
}

// Reset rolls back every migration.
func (m *Manager) Reset() error {
	if err := m.ensureInit(); err != nil {
		return err
	}
	err := m.migrator.Down()
	if errors.Is(err, migrate.ErrNoChange) {
		return nil
	}
	return err
}

// Version reports the current schema version and dirty flag.
func (m *Manager) Version() (uint, bool, error) {
	if err := m.ensureInit(); err != nil {
		return 0, false, err
	}
	return m.migrator.Version()
}

// Close releases the underlying migrator's resources.
func (m *Manager) Close() error {
	if m.migrator == nil {
		return nil
	}
	srcErr, dbErr := m.migrator.Close()
	if srcErr != nil {
		return srcErr
	}
	return dbErr
}
