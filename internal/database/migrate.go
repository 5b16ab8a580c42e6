package database

import (
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/golang/glog"
	"github.com/vedran77/huddle/migrations"
)

type MigrateDirection string

const (
	MigrateUp   MigrateDirection = "up"
	MigrateDown MigrateDirection = "down"
)

var ErrUnknownDirection = errors.New("unknown migration direction")

var newMigrator = func(databaseURL string) (migrator, error) {
	src, err := iofs.New(migrations.FS, ".")
	if err != nil {
		return nil, fmt.Errorf("opening migration source: %w", err)
	}
	m, err := migrate.NewWithSourceInstance("iofs", src, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("creating migrator: %w", err)
	}
	return m, nil
}

type migrator interface {
	Up() error
	Down() error
	Version() (uint, bool, error)
	Close() (error, error)
}

// Migrate applies or reverts the embedded migrations against a pgx5:// URL.
// Running with nothing to apply is not an error.
func Migrate(databaseURL string, direction MigrateDirection) error {
	var run func(migrator) error
	switch direction {
	case MigrateUp:
		run = migrator.Up
	case MigrateDown:
		run = migrator.Down
	default:
		return fmt.Errorf("%w: %q", ErrUnknownDirection, direction)
	}

	m, err := newMigrator(databaseURL)
	if err != nil {
		return err
	}
	defer m.Close()

	if err := run(m); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrating %s: %w", direction, err)
	}

	version, dirty, err := m.Version()
	switch {
	case errors.Is(err, migrate.ErrNilVersion):
		glog.Infof("[migrate] %s complete, no version applied", direction)
	case err != nil:
		return fmt.Errorf("reading migration version: %w", err)
	default:
		glog.Infof("[migrate] %s complete, version=%d dirty=%t", direction, version, dirty)
	}
	return nil
}
