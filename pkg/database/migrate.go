package database

import (
	"context"
	"database/sql"
	"io/fs"
	"os"

	"github.com/go-faster/errors"
	"github.com/pressly/goose/v3"

	"github.com/iota-uz/termstore/migrations"
)

// MigrationsFS prefers an on-disk migrations directory and falls back to the
// migrations compiled into the binary.
func MigrationsFS(dir string) fs.FS {
	if dir != "" {
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			return os.DirFS(dir)
		}
	}
	return migrations.FS
}

type Migrator struct {
	provider *goose.Provider
}

func NewMigrator(db *sql.DB, fsys fs.FS) (*Migrator, error) {
	provider, err := goose.NewProvider(goose.DialectPostgres, db, fsys)
	if err != nil {
		return nil, errors.Wrap(err, "init goose provider")
	}
	return &Migrator{provider: provider}, nil
}

// Up applies every pending migration.
func (m *Migrator) Up(ctx context.Context) ([]*goose.MigrationResult, error) {
	res, err := m.provider.Up(ctx)
	if err != nil {
		return res, errors.Wrap(err, "migrate up")
	}
	return res, nil
}

// Down rolls back the most recent migration.
func (m *Migrator) Down(ctx context.Context) (*goose.MigrationResult, error) {
	res, err := m.provider.Down(ctx)
	if err != nil {
		return res, errors.Wrap(err, "migrate down")
	}
	return res, nil
}

func (m *Migrator) Status(ctx context.Context) ([]*goose.MigrationStatus, error) {
	st, err := m.provider.Status(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "migrate status")
	}
	return st, nil
}
