package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id          TEXT PRIMARY KEY,
	task_key    TEXT NOT NULL,
	status_code TEXT NOT NULL DEFAULT '',
	request     TEXT NOT NULL,
	response    TEXT,
	dedupe_keys TEXT NOT NULL DEFAULT '[]',
	created_at  DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_runs_task_key ON runs(task_key, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at);
`

const sqliteRunColumns = `id, task_key, status_code, request, response, dedupe_keys, created_at`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) SaveRun(ctx context.Context, r *Run) error {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}
	keys, err := json.Marshal(nonNilKeys(r.DedupeKeys))
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal dedupe keys")
	}
	var response sql.NullString
	if len(r.Response) > 0 {
		response = sql.NullString{String: string(r.Response), Valid: true}
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO runs (`+sqliteRunColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.TaskKey, r.StatusCode, string(r.Request), response, string(keys), r.CreatedAt,
	)
	return eris.Wrapf(err, "sqlite: insert run %s", r.ID)
}

func (s *SQLiteStore) GetRun(ctx context.Context, id string) (*Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+sqliteRunColumns+` FROM runs WHERE id = ?`, id,
	)
	return scanRun(row)
}

func (s *SQLiteStore) LatestRun(ctx context.Context, taskKey string) (*Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+sqliteRunColumns+` FROM runs WHERE task_key = ?
		 ORDER BY created_at DESC, rowid DESC LIMIT 1`,
		taskKey,
	)
	return scanRun(row)
}

func (s *SQLiteStore) ListRuns(ctx context.Context, filter RunFilter) ([]Run, error) {
	query := `SELECT ` + sqliteRunColumns + ` FROM runs WHERE 1=1`
	var args []any

	if filter.TaskKey != "" {
		query += ` AND task_key = ?`
		args = append(args, filter.TaskKey)
	}
	query += ` ORDER BY created_at DESC, rowid DESC LIMIT ?`
	args = append(args, limitOrDefault(filter.Limit))

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs")
	}
	defer rows.Close() //nolint:errcheck

	var runs []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *r)
	}
	return runs, eris.Wrap(rows.Err(), "sqlite: list runs iterate")
}

type scannable interface {
	Scan(dest ...any) error
}

func scanRun(row scannable) (*Run, error) {
	var r Run
	var request, keys string
	var response sql.NullString

	err := row.Scan(&r.ID, &r.TaskKey, &r.StatusCode, &request, &response, &keys, &r.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan run")
	}
	r.Request = json.RawMessage(request)
	if response.Valid {
		r.Response = json.RawMessage(response.String)
	}
	if err := json.Unmarshal([]byte(keys), &r.DedupeKeys); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal dedupe keys")
	}
	return &r, nil
}

func nonNilKeys(keys []string) []string {
	if keys == nil {
		return []string{}
	}
	return keys
}
