package migration

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"go.uber.org/zap"
)

// Migrator applies versioned SQL migrations from a directory. Schema changes
// to the event log and read-model tables go through here in deployments;
// gorm AutoMigrate covers development and tests.
type Migrator struct {
	migrate *migrate.Migrate
	logger  *zap.Logger
}

// New creates a Migrator over an open postgres connection.
func New(db *sql.DB, migrationsPath string, logger *zap.Logger) (*Migrator, error) {
	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return nil, fmt.Errorf("create postgres driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance("file://"+migrationsPath, "postgres", driver)
	if err != nil {
		return nil, fmt.Errorf("create migrate instance: %w", err)
	}

	return &Migrator{migrate: m, logger: logger}, nil
}

// Up applies all pending migrations.
func (m *Migrator) Up() error {
	if done, err := m.outcome(m.migrate.Up(), "migration up failed"); err != nil || !done {
		return err
	}
	m.logVersion("Migrations applied")
	return nil
}

// Down rolls back all migrations.
func (m *Migrator) Down() error {
	if done, err := m.outcome(m.migrate.Down(), "migration down failed"); err != nil || !done {
		return err
	}
	m.logger.Info("All migrations rolled back")
	return nil
}

// Steps applies n migrations (positive = up, negative = down).
func (m *Migrator) Steps(n int) error {
	if done, err := m.outcome(m.migrate.Steps(n), "migration steps failed"); err != nil || !done {
		return err
	}
	m.logVersion("Migration steps completed", zap.Int("steps", n))
	return nil
}

// GoTo migrates to a specific version, up or down.
func (m *Migrator) GoTo(version uint) error {
	done, err := m.outcome(m.migrate.Migrate(version), fmt.Sprintf("migration to version %d failed", version))
	if err != nil {
		return err
	}
	if !done {
		m.logger.Info("Already at target version", zap.Uint("version", version))
		return nil
	}
	m.logger.Info("Migrated to version", zap.Uint("version", version))
	return nil
}

// Version returns the current migration version. A result of zero means no
// migrations have been applied.
func (m *Migrator) Version() (uint, bool, error) {
	version, dirty, err := m.migrate.Version()
	switch {
	case errors.Is(err, migrate.ErrNilVersion):
		return 0, false, nil
	case err != nil:
		return 0, false, fmt.Errorf("get migration version: %w", err)
	}
	return version, dirty, nil
}

// Force sets the migration version without running migrations. It exists to
// recover a dirty database state after a failed migration.
func (m *Migrator) Force(version int) error {
	m.logger.Warn("Forcing migration version", zap.Int("version", version))
	if err := m.migrate.Force(version); err != nil {
		return fmt.Errorf("force version %d: %w", version, err)
	}
	return nil
}

// Close releases the migrator's source and database handles.
func (m *Migrator) Close() error {
	sourceErr, dbErr := m.migrate.Close()
	if sourceErr != nil {
		return fmt.Errorf("close source: %w", sourceErr)
	}
	if dbErr != nil {
		return fmt.Errorf("close database: %w", dbErr)
	}
	return nil
}

// outcome folds golang-migrate's ErrNoChange sentinel into (changed, error).
func (m *Migrator) outcome(err error, failMsg string) (bool, error) {
	switch {
	case errors.Is(err, migrate.ErrNoChange):
		m.logger.Info("Schema already up to date")
		return false, nil
	case err != nil:
		return false, fmt.Errorf("%s: %w", failMsg, err)
	}
	return true, nil
}

func (m *Migrator) logVersion(msg string, extra ...zap.Field) {
	version, dirty, err := m.migrate.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		m.logger.Warn("Could not read migration version", zap.Error(err))
		return
	}
	fields := append(extra, zap.Uint("version", version), zap.Bool("dirty", dirty))
	m.logger.Info(msg, fields...)
}
