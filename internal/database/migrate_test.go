package database

import (
	"errors"
	"testing"

	"github.com/golang-migrate/migrate/v4"
)

type fakeMigrator struct {
	upErr   error
	downErr error
	ups     int
	downs   int
	closed  bool
}

func (f *fakeMigrator) Up() error                    { f.ups++; return f.upErr }
func (f *fakeMigrator) Down() error                  { f.downs++; return f.downErr }
func (f *fakeMigrator) Version() (uint, bool, error) { return 1, false, nil }
func (f *fakeMigrator) Close() (error, error)        { f.closed = true; return nil, nil }

func stubMigrator(t *testing.T, m *fakeMigrator) {
	t.Helper()
	orig := newMigrator
	t.Cleanup(func() { newMigrator = orig })
	newMigrator = func(string) (migrator, error) { return m, nil }
}

func TestMigrate_UpTreatsNoChangeAsSuccess(t *testing.T) {
	m := &fakeMigrator{upErr: migrate.ErrNoChange}
	stubMigrator(t, m)

	if err := Migrate("pgx5://db", MigrateUp); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.ups != 1 || !m.closed {
		t.Fatalf("expected one up and a close, got ups=%d closed=%t", m.ups, m.closed)
	}
}

func TestMigrate_DownPropagatesFailure(t *testing.T) {
	boom := errors.New("boom")
	m := &fakeMigrator{downErr: boom}
	stubMigrator(t, m)

	if err := Migrate("pgx5://db", MigrateDown); !errors.Is(err, boom) {
		t.Fatalf("expected %v, got %v", boom, err)
	}
	if m.downs != 1 {
		t.Fatalf("expected one down, got %d", m.downs)
	}
}

func TestMigrate_UnknownDirection(t *testing.T) {
	m := &fakeMigrator{}
	stubMigrator(t, m)

	if err := Migrate("pgx5://db", "sideways"); !errors.Is(err, ErrUnknownDirection) {
		t.Fatalf("expected ErrUnknownDirection, got %v", err)
	}
	if m.ups+m.downs != 0 {
		t.Fatal("expected no migration to run")
	}
}
