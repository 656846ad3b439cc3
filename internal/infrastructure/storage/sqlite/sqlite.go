// Package sqlite is the device-local record store.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	_ "github.com/mattn/go-sqlite3"
	"golang.org/x/exp/slog"

	"iotsync/internal/domain/record"
	"iotsync/internal/infrastructure/migration"
)

//go:embed migrations/*.sql
var migrations embed.FS

// LocalStore keeps every synchronized table in one SQLite file. Each row is a
// JSON object tagged with its table name.
type LocalStore struct {
	db  *sql.DB
	log *slog.Logger
}

// New opens (creating if needed) the database at path and migrates it.
func New(ctx context.Context, path string, log *slog.Logger) (*LocalStore, error) {
	if err := migration.NewMigration(migrations, "migrations", "sqlite3://"+path, nil).Up(); err != nil {
		return nil, fmt.Errorf("migrate local store: %w", err)
	}

	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open local store: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping local store: %w", err)
	}

	return &LocalStore{
		db:  db,
		log: log.With("component", "sqlite_store", "path", path),
	}, nil
}

func (s *LocalStore) Close() error {
	return s.db.Close()
}

// Fetch returns the table's records matching every pair of match, oldest
// first. Values compare by their string rendering so "5" matches 5.
func (s *LocalStore) Fetch(ctx context.Context, table string, match record.Match) ([]record.Record, error) {
	rows, err := s.query(ctx, table, match)
	if err != nil {
		return nil, err
	}

	out := make([]record.Record, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.rec)
	}
	return out, nil
}

func (s *LocalStore) Insert(ctx context.Context, table string, rec record.Record) error {
	body, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, `INSERT INTO local_records (tbl, body) VALUES (?, ?)`, table, string(body)); err != nil {
		return fmt.Errorf("insert into %s: %w", table, err)
	}
	return nil
}

// Update merges patch into every matching record. Matching nothing is not an
// error.
func (s *LocalStore) Update(ctx context.Context, table string, patch record.Record, match record.Match) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin update: %w", err)
	}
	defer tx.Rollback()

	rows, err := s.queryTx(ctx, tx, table, match)
	if err != nil {
		return err
	}

	for _, r := range rows {
		r.rec.Merge(patch)
		body, err := json.Marshal(r.rec)
		if err != nil {
			return fmt.Errorf("encode record: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `UPDATE local_records SET body = ? WHERE seq = ?`, string(body), r.seq); err != nil {
			return fmt.Errorf("update %s: %w", table, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit update: %w", err)
	}
	s.log.Debug("records updated", "table", table, "count", len(rows))
	return nil
}

// Count returns the number of records per table.
func (s *LocalStore) Count(ctx context.Context) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT tbl, COUNT(*) FROM local_records GROUP BY tbl`)
	if err != nil {
		return nil, fmt.Errorf("count records: %w", err)
	}
	defer rows.Close()

	out := make(map[string]int)
	for rows.Next() {
		var (
			tbl string
			n   int
		)
		if err := rows.Scan(&tbl, &n); err != nil {
			return nil, fmt.Errorf("scan count: %w", err)
		}
		out[tbl] = n
	}
	return out, rows.Err()
}

type row struct {
	seq int64
	rec record.Record
}

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func (s *LocalStore) query(ctx context.Context, table string, match record.Match) ([]row, error) {
	return s.queryTx(ctx, s.db, table, match)
}

func (s *LocalStore) queryTx(ctx context.Context, q querier, table string, match record.Match) ([]row, error) {
	where, args, err := buildWhere(table, match)
	if err != nil {
		return nil, err
	}

	rows, err := q.QueryContext(ctx, `SELECT seq, body FROM local_records WHERE `+where+` ORDER BY seq`, args...)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", table, err)
	}
	defer rows.Close()

	var out []row
	for rows.Next() {
		var (
			r    row
			body string
		)
		if err := rows.Scan(&r.seq, &body); err != nil {
			return nil, fmt.Errorf("scan %s: %w", table, err)
		}
		if r.rec, err = record.Decode([]byte(body)); err != nil {
			return nil, fmt.Errorf("decode %s row %d: %w", table, r.seq, err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// fieldText renders a JSON field the way record.String renders Go values.
const fieldText = `CASE json_type(body, ?) WHEN 'true' THEN 'true' WHEN 'false' THEN 'false' ELSE CAST(json_extract(body, ?) AS TEXT) END = ?`

// fieldNumber compares JSON numbers as numbers and any other JSON value as
// text against the number's rendering.
const fieldNumber = `CASE WHEN json_type(body, ?) IN ('integer', 'real') THEN json_extract(body, ?) = ? ELSE json_extract(body, ?) = ? END`

func buildWhere(table string, match record.Match) (string, []any, error) {
	fields := make([]string, 0, len(match))
	for f := range match {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	conds := []string{"tbl = ?"}
	args := []any{table}
	for _, f := range fields {
		if f == "" || strings.ContainsAny(f, `"\`) {
			return "", nil, fmt.Errorf("invalid match field %q", f)
		}
		path := `$."` + f + `"`
		if n, ok := number(match[f]); ok {
			conds = append(conds, "("+fieldNumber+")")
			args = append(args, path, path, n, path, record.String(match[f]))
			continue
		}
		conds = append(conds, fieldText)
		args = append(args, path, path, record.String(match[f]))
	}
	return strings.Join(conds, " AND "), args, nil
}

// number returns v as a value SQLite binds as INTEGER or REAL.
func number(v any) (any, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return int64(n), true
	case int64:
		return n, true
	}
	return nil, false
}
