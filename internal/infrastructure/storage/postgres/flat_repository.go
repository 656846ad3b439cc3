package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/exp/slog"

	"iotsync/internal/infrastructure/remote"
)

// FlatRepository stores flat-keyed nodes, one row per path, indexed by the
// parent path so a whole level can be read at once.
type FlatRepository struct {
	pool *pgxpool.Pool
	log  *slog.Logger
}

func NewFlatRepository(pool *pgxpool.Pool, log *slog.Logger) *FlatRepository {
	return &FlatRepository{
		pool: pool,
		log:  log.With("component", "flat_repository"),
	}
}

// GetAll returns the direct children of path keyed by their last segment.
func (r *FlatRepository) GetAll(ctx context.Context, path string) (map[string]any, error) {
	const query = `SELECT path, value FROM kv_nodes WHERE parent = $1 ORDER BY path`

	rows, err := r.pool.Query(ctx, query, remote.JoinPath(path))
	if err != nil {
		r.log.Error("failed to list nodes", "path", path, "error", err)
		return nil, fmt.Errorf("list nodes: %w", err)
	}
	defer rows.Close()

	var out map[string]any
	for rows.Next() {
		var (
			child string
			raw   []byte
		)
		if err := rows.Scan(&child, &raw); err != nil {
			return nil, fmt.Errorf("scan node: %w", err)
		}
		var value any
		if err := json.Unmarshal(raw, &value); err != nil {
			return nil, fmt.Errorf("decode node %s: %w", child, err)
		}
		if out == nil {
			out = make(map[string]any)
		}
		_, leaf := SplitPath(child)
		out[leaf] = value
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list nodes: %w", err)
	}
	return out, nil
}

// Set overwrites the node at path.
func (r *FlatRepository) Set(ctx context.Context, path string, value map[string]any) error {
	const query = `
		INSERT INTO kv_nodes (path, parent, value, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (path) DO UPDATE SET
			value = EXCLUDED.value,
			updated_at = EXCLUDED.updated_at`

	path = remote.JoinPath(path)
	if path == "" {
		return remote.ErrEmptyPath
	}
	parent, _ := SplitPath(path)

	body, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode node: %w", err)
	}

	if _, err := r.pool.Exec(ctx, query, path, parent, body); err != nil {
		r.log.Error("failed to set node", "path", path, "error", err)
		return fmt.Errorf("set node: %w", err)
	}
	return nil
}

// Delete removes path and everything below it and returns the row count.
func (r *FlatRepository) Delete(ctx context.Context, path string) (int64, error) {
	const query = `DELETE FROM kv_nodes WHERE path = $1 OR path LIKE $2`

	path = remote.JoinPath(path)
	if path == "" {
		return 0, remote.ErrEmptyPath
	}

	tag, err := r.pool.Exec(ctx, query, path, escapeLike(path)+"/%")
	if err != nil {
		r.log.Error("failed to delete nodes", "path", path, "error", err)
		return 0, fmt.Errorf("delete nodes: %w", err)
	}
	return tag.RowsAffected(), nil
}

// SplitPath returns the parent path and the last segment.
func SplitPath(path string) (string, string) {
	path = remote.JoinPath(path)
	i := strings.LastIndex(path, "/")
	if i < 0 {
		return "", path
	}
	return path[:i], path[i+1:]
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
