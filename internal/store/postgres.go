package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"
)

// Pool is the subset of pgxpool.Pool the store uses. pgxmock satisfies it
// in tests.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool Pool
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// preparedStatements lists queries to prepare on each new connection.
var preparedStatements = map[string]string{
	"insert_run": `INSERT INTO prospect_runs (` + pgRunColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
	"get_run":    `SELECT ` + pgRunColumns + ` FROM prospect_runs WHERE id = $1`,
	"latest_run": `SELECT ` + pgRunColumns + ` FROM prospect_runs WHERE task_key = $1 ORDER BY created_at DESC LIMIT 1`,
}

const pgRunColumns = `id, task_key, status_code, request, response, dedupe_keys, created_at`

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(4)
	minConns := int32(1)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS prospect_runs (
	id          TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	task_key    TEXT NOT NULL,
	status_code TEXT NOT NULL DEFAULT '',
	request     JSONB NOT NULL,
	response    JSONB,
	dedupe_keys JSONB NOT NULL DEFAULT '[]'::jsonb,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_prospect_runs_task_key ON prospect_runs(task_key, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_prospect_runs_created_at ON prospect_runs(created_at);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) SaveRun(ctx context.Context, r *Run) error {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}
	keys, err := json.Marshal(nonNilKeys(r.DedupeKeys))
	if err != nil {
		return eris.Wrap(err, "postgres: marshal dedupe keys")
	}
	var response []byte
	if len(r.Response) > 0 {
		response = r.Response
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO prospect_runs (`+pgRunColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		r.ID, r.TaskKey, r.StatusCode, []byte(r.Request), response, keys, r.CreatedAt,
	)
	return eris.Wrapf(err, "postgres: insert run %s", r.ID)
}

func (s *PostgresStore) GetRun(ctx context.Context, id string) (*Run, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+pgRunColumns+` FROM prospect_runs WHERE id = $1`, id,
	)
	r, err := scanPgRun(row)
	return r, eris.Wrapf(err, "postgres: get run %s", id)
}

func (s *PostgresStore) LatestRun(ctx context.Context, taskKey string) (*Run, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+pgRunColumns+` FROM prospect_runs WHERE task_key = $1 ORDER BY created_at DESC LIMIT 1`,
		taskKey,
	)
	r, err := scanPgRun(row)
	return r, eris.Wrap(err, "postgres: latest run")
}

func (s *PostgresStore) ListRuns(ctx context.Context, filter RunFilter) ([]Run, error) {
	query := `SELECT ` + pgRunColumns + ` FROM prospect_runs WHERE true`
	args := []any{}
	argIdx := 1

	if filter.TaskKey != "" {
		query += fmt.Sprintf(` AND task_key = $%d`, argIdx)
		args = append(args, filter.TaskKey)
		argIdx++
	}
	query += fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d`, argIdx)
	args = append(args, limitOrDefault(filter.Limit))
	argIdx++

	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, argIdx)
		args = append(args, filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list runs")
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		r, err := scanPgRun(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: list runs")
		}
		runs = append(runs, *r)
	}
	return runs, eris.Wrap(rows.Err(), "postgres: list runs iterate")
}

func scanPgRun(row pgx.Row) (*Run, error) {
	var r Run
	var request, response, keys []byte

	err := row.Scan(&r.ID, &r.TaskKey, &r.StatusCode, &request, &response, &keys, &r.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrap(err, "scan run")
	}
	r.Request = json.RawMessage(request)
	if len(response) > 0 {
		r.Response = json.RawMessage(response)
	}
	if len(keys) > 0 {
		if err := json.Unmarshal(keys, &r.DedupeKeys); err != nil {
			return nil, eris.Wrap(err, "unmarshal dedupe keys")
		}
	}
	return &r, nil
}
