package store

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newMockPostgresStore creates a PostgresStore backed by pgxmock for unit testing.
func newMockPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	s := &PostgresStore{pool: mock}
	return s, mock
}

var runColumns = []string{"id", "task_key", "status_code", "request", "response", "dedupe_keys", "created_at"}

func TestPostgresStore_Migrate(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS prospect_runs`).
		WillReturnResult(pgxmock.NewResult("CREATE", 0))

	require.NoError(t, s.Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SaveRun(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`INSERT INTO prospect_runs`).
		WithArgs(pgxmock.AnyArg(), "task-1", "OK", []byte(`{"a":1}`), pgxmock.AnyArg(), []byte(`["k1"]`), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	run := &Run{TaskKey: "task-1", StatusCode: "OK", Request: json.RawMessage(`{"a":1}`), DedupeKeys: []string{"k1"}}
	require.NoError(t, s.SaveRun(context.Background(), run))
	assert.NotEmpty(t, run.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetRun(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	created := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`SELECT id, task_key, status_code, request, response, dedupe_keys, created_at FROM prospect_runs WHERE id = \$1`).
		WithArgs("run-1").
		WillReturnRows(pgxmock.NewRows(runColumns).
			AddRow("run-1", "task-1", "OK", []byte(`{}`), []byte(`{"leads":[]}`), []byte(`["k1","k2"]`), created))

	got, err := s.GetRun(context.Background(), "run-1")
	require.NoError(t, err)
	assert.Equal(t, "task-1", got.TaskKey)
	assert.Equal(t, []string{"k1", "k2"}, got.DedupeKeys)
	assert.JSONEq(t, `{"leads":[]}`, string(got.Response))
	assert.Equal(t, created, got.CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetRun_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`FROM prospect_runs WHERE id = \$1`).
		WithArgs("nonexistent-run").
		WillReturnError(pgx.ErrNoRows)

	_, err := s.GetRun(context.Background(), "nonexistent-run")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Contains(t, err.Error(), "get run")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_LatestRun(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`WHERE task_key = \$1 ORDER BY created_at DESC LIMIT 1`).
		WithArgs("task-1").
		WillReturnRows(pgxmock.NewRows(runColumns).
			AddRow("run-2", "task-1", "OK", []byte(`{}`), nil, []byte(`[]`), time.Now()))

	got, err := s.LatestRun(context.Background(), "task-1")
	require.NoError(t, err)
	assert.Equal(t, "run-2", got.ID)
	assert.Nil(t, got.Response)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListRuns(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`AND task_key = \$1 ORDER BY created_at DESC LIMIT \$2 OFFSET \$3`).
		WithArgs("task-1", 10, 5).
		WillReturnRows(pgxmock.NewRows(runColumns).
			AddRow("a", "task-1", "OK", []byte(`{}`), nil, []byte(`[]`), time.Now()).
			AddRow("b", "task-1", "NO_RELEVANT_RESULTS", []byte(`{}`), nil, []byte(`[]`), time.Now()))

	runs, err := s.ListRuns(context.Background(), RunFilter{TaskKey: "task-1", Limit: 10, Offset: 5})
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "NO_RELEVANT_RESULTS", runs[1].StatusCode)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListRuns_DefaultLimit(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`WHERE true ORDER BY created_at DESC LIMIT \$1`).
		WithArgs(100).
		WillReturnRows(pgxmock.NewRows(runColumns))

	runs, err := s.ListRuns(context.Background(), RunFilter{})
	require.NoError(t, err)
	assert.Empty(t, runs)
	assert.NoError(t, mock.ExpectationsWereMet())
}
