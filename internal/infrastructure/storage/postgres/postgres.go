package postgres

import (
	"context"
	"embed"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/exp/slog"

	"iotsync/internal/infrastructure/migration"
)

//go:embed migrations/*.sql
var migrations embed.FS

type Storage struct {
	pool *pgxpool.Pool
}

// New migrates the database at databaseURI and opens a pool to it.
func New(ctx context.Context, databaseURI string, log *slog.Logger) (*Storage, error) {
	if err := migration.NewMigration(migrations, "migrations", databaseURI, nil).Up(); err != nil {
		return nil, fmt.Errorf("migration error: %w", err)
	}

	pool, err := pgxpool.New(ctx, databaseURI)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	log.Info("connected to postgres", "component", "postgres")
	return &Storage{pool: pool}, nil
}

func (s *Storage) Close() error {
	s.pool.Close()
	return nil
}

func (s *Storage) Pool() *pgxpool.Pool {
	return s.pool
}

func (s *Storage) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}
