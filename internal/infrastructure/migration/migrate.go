// Package migration applies the SQL schema migrations with golang-migrate.
package migration

import (
	"database/sql"
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"go.uber.org/zap"
)

// Migrator wraps a golang-migrate instance bound to one postgres database
type Migrator struct {
	migrate *migrate.Migrate
	logger  *zap.Logger
}

// Source selects where migration files come from. Exactly one of FS or
// Path is used; FS wins when both are set.
type Source struct {
	FS   fs.FS
	Path string
}

// New creates a Migrator over an open postgres connection
func New(db *sql.DB, src Source, logger *zap.Logger) (*Migrator, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return nil, fmt.Errorf("create postgres driver: %w", err)
	}

	var m *migrate.Migrate
	if src.FS != nil {
		source, err := iofs.New(src.FS, ".")
		if err != nil {
			return nil, fmt.Errorf("open embedded migrations: %w", err)
		}
		m, err = migrate.NewWithInstance("iofs", source, "postgres", driver)
		if err != nil {
			return nil, fmt.Errorf("create migrate instance: %w", err)
		}
	} else {
		if src.Path == "" {
			return nil, errors.New("migration: no source configured")
		}
		m, err = migrate.NewWithDatabaseInstance("file://"+src.Path, "postgres", driver)
		if err != nil {
			return nil, fmt.Errorf("create migrate instance: %w", err)
		}
	}
	return &Migrator{migrate: m, logger: logger}, nil
}

// Up runs all pending migrations
func (m *Migrator) Up() error {
	m.logger.Info("Running migrations up")
	if err := m.migrate.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			m.logger.Info("No migrations to apply")
			return nil
		}
		return fmt.Errorf("migration up failed: %w", err)
	}
	return m.logVersion("Migrations completed")
}

// Down rolls back every migration
func (m *Migrator) Down() error {
	m.logger.Info("Running migrations down")
	if err := m.migrate.Down(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			m.logger.Info("No migrations to roll back")
			return nil
		}
		return fmt.Errorf("migration down failed: %w", err)
	}
	m.logger.Info("All migrations rolled back")
	return nil
}

// Steps applies n migrations (positive = up, negative = down)
func (m *Migrator) Steps(n int) error {
	m.logger.Info("Running migration steps", zap.Int("steps", n))
	if err := m.migrate.Steps(n); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			m.logger.Info("No migrations to apply")
			return nil
		}
		return fmt.Errorf("migration steps failed: %w", err)
	}
	return m.logVersion("Migration steps completed")
}

// GoTo migrates up or down to a specific version
func (m *Migrator) GoTo(version uint) error {
	m.logger.Info("Migrating to version", zap.Uint("target_version", version))
	if err := m.migrate.Migrate(version); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			m.logger.Info("Already at target version")
			return nil
		}
		return fmt.Errorf("migration to version %d failed: %w", version, err)
	}
	return m.logVersion("Migration to version completed")
}

// Version returns the current version; 0 when nothing was applied yet
func (m *Migrator) Version() (uint, bool, error) {
	version, dirty, err := m.migrate.Version()
	if err != nil {
		if errors.Is(err, migrate.ErrNilVersion) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("read migration version: %w", err)
	}
	return version, dirty, nil
}

// Force sets the recorded version without running anything. It is the
// way out of a dirty state after a failed migration was fixed by hand.
func (m *Migrator) Force(version int) error {
	m.logger.Warn("Forcing migration version", zap.Int("version", version))
	if err := m.migrate.Force(version); err != nil {
		return fmt.Errorf("force version %d: %w", version, err)
	}
	return nil
}

// Close releases the source and the database driver
func (m *Migrator) Close() error {
	sourceErr, dbErr := m.migrate.Close()
	return errors.Join(sourceErr, dbErr)
}

func (m *Migrator) logVersion(msg string) error {
	version, dirty, err := m.Version()
	if err != nil {
		return err
	}
	m.logger.Info(msg, zap.Uint("version", version), zap.Bool("dirty", dirty))
	return nil
}
