package migration

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	// Database drivers for postgres:// and sqlite3:// URLs.
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

// Migrator is the subset of migrate.Migrate used here.
type Migrator interface {
	Up() error
	Close() (error, error)
}

// MigrationEngine builds a Migrator; tests swap it to avoid touching a database.
type MigrationEngine func(fsys fs.FS, dir, databaseURL string) (Migrator, error)

// Migration applies the SQL files under dir of fsys to one database.
type Migration struct {
	fsys        fs.FS
	dir         string
	databaseURL string
	engine      MigrationEngine
}

func NewMigration(fsys fs.FS, dir, databaseURL string, engine MigrationEngine) *Migration {
	if engine == nil {
		engine = DefaultEngine
	}
	return &Migration{
		fsys:        fsys,
		dir:         dir,
		databaseURL: databaseURL,
		engine:      engine,
	}
}

// DefaultEngine reads migrations from an embedded filesystem.
func DefaultEngine(fsys fs.FS, dir, databaseURL string) (Migrator, error) {
	src, err := iofs.New(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("open migrations %s: %w", dir, err)
	}
	return migrate.NewWithSourceInstance("iofs", src, databaseURL)
}

// Up applies all pending migrations. An up-to-date schema is not an error.
func (mg *Migration) Up() (err error) {
	m, err := mg.engine(mg.fsys, mg.dir, mg.databaseURL)
	if err != nil {
		return err
	}
	defer func() {
		serr, dberr := m.Close()
		if serr != nil {
			err = errors.Join(err, fmt.Errorf("migration source: %w", serr))
		}
		if dberr != nil {
			err = errors.Join(err, fmt.Errorf("migration database: %w", dberr))
		}
	}()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration up: %w", err)
	}
	return nil
}
