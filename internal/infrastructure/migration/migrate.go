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

// Runner drives schema migrations over an open postgres connection.
type Runner struct {
	m   *migrate.Migrate
	log *zap.Logger
}

// NewRunner wraps db with a file-source migrator reading from scriptsDir.
func NewRunner(db *sql.DB, scriptsDir string, log *zap.Logger) (*Runner, error) {
	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return nil, fmt.Errorf("postgres migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance("file://"+scriptsDir, "postgres", driver)
	if err != nil {
		return nil, fmt.Errorf("open migration source: %w", err)
	}
	return &Runner{m: m, log: log}, nil
}

// Up applies every pending migration.
func (r *Runner) Up() error {
	err := r.m.Up()
	if errors.Is(err, migrate.ErrNoChange) {
		r.log.Info("Schema already up to date")
		return nil
	}
	if err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return r.logVersion("Migrations applied")
}

// Down rolls back every applied migration.
func (r *Runner) Down() error {
	err := r.m.Down()
	if errors.Is(err, migrate.ErrNoChange) {
		r.log.Info("No migrations to roll back")
		return nil
	}
	if err != nil {
		return fmt.Errorf("roll back migrations: %w", err)
	}
	r.log.Info("All migrations rolled back")
	return nil
}

// Steps applies n migrations. Negative n rolls back.
func (r *Runner) Steps(n int) error {
	err := r.m.Steps(n)
	if errors.Is(err, migrate.ErrNoChange) {
		r.log.Info("Schema already up to date")
		return nil
	}
	if err != nil {
		return fmt.Errorf("step migrations: %w", err)
	}
	return r.logVersion("Migration steps applied")
}

// To migrates up or down until the schema sits at version.
func (r *Runner) To(version uint) error {
	err := r.m.Migrate(version)
	if errors.Is(err, migrate.ErrNoChange) {
		r.log.Info("Already at requested version", zap.Uint("version", version))
		return nil
	}
	if err != nil {
		return fmt.Errorf("migrate to version %d: %w", version, err)
	}
	return r.logVersion("Migrated to version")
}

// Version reports the current schema version. A fresh database reports
// version zero and no error.
func (r *Runner) Version() (uint, bool, error) {
	version, dirty, err := r.m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("read schema version: %w", err)
	}
	return version, dirty, nil
}

// Force overwrites the recorded schema version without running any scripts.
// Only for recovering from a dirty state.
func (r *Runner) Force(version int) error {
	r.log.Warn("Forcing schema version", zap.Int("version", version))
	if err := r.m.Force(version); err != nil {
		return fmt.Errorf("force version %d: %w", version, err)
	}
	return nil
}

// Close releases the migration source and database handles.
func (r *Runner) Close() error {
	sourceErr, dbErr := r.m.Close()
	if sourceErr != nil {
		return fmt.Errorf("close migration source: %w", sourceErr)
	}
	if dbErr != nil {
		return fmt.Errorf("close migration database: %w", dbErr)
	}
	return nil
}

func (r *Runner) logVersion(msg string) error {
	version, dirty, err := r.Version()
	if err != nil {
		return err
	}
	r.log.Info(msg, zap.Uint("version", version), zap.Bool("dirty", dirty))
	return nil
}
