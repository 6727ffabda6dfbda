package store

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/prospect-cli/internal/model"
)

func newTestSQLite(t *testing.T) Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	s, err := NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() }) //nolint:errcheck
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func storeTestSuite(t *testing.T, newStore func(t *testing.T) Store) {
	t.Run("SaveAndGetRun", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		run := &Run{
			TaskKey:    "task-1",
			StatusCode: "OK",
			Request:    json.RawMessage(`{"taskText":"ищем бухгалтера"}`),
			Response:   json.RawMessage(`{"leads":[]}`),
			DedupeKeys: []string{"https://a.ru/1", "fp:abc"},
		}
		require.NoError(t, s.SaveRun(ctx, run))
		assert.NotEmpty(t, run.ID)
		assert.False(t, run.CreatedAt.IsZero())

		got, err := s.GetRun(ctx, run.ID)
		require.NoError(t, err)
		assert.Equal(t, run.ID, got.ID)
		assert.Equal(t, "task-1", got.TaskKey)
		assert.Equal(t, "OK", got.StatusCode)
		assert.JSONEq(t, `{"taskText":"ищем бухгалтера"}`, string(got.Request))
		assert.JSONEq(t, `{"leads":[]}`, string(got.Response))
		assert.Equal(t, []string{"https://a.ru/1", "fp:abc"}, got.DedupeKeys)
	})

	t.Run("SaveRunWithoutResponse", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		run := &Run{ID: "fixed-id", TaskKey: "t", Request: json.RawMessage(`{}`)}
		require.NoError(t, s.SaveRun(ctx, run))

		got, err := s.GetRun(ctx, "fixed-id")
		require.NoError(t, err)
		assert.Nil(t, got.Response)
		assert.Empty(t, got.DedupeKeys)
	})

	t.Run("GetRunNotFound", func(t *testing.T) {
		s := newStore(t)
		_, err := s.GetRun(context.Background(), "nonexistent-id")
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("LatestRun", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
		for i, id := range []string{"old", "new", "other"} {
			key := "task-a"
			if id == "other" {
				key = "task-b"
			}
			require.NoError(t, s.SaveRun(ctx, &Run{
				ID:        id,
				TaskKey:   key,
				Request:   json.RawMessage(`{}`),
				CreatedAt: base.Add(time.Duration(i) * time.Hour),
			}))
		}

		got, err := s.LatestRun(ctx, "task-a")
		require.NoError(t, err)
		assert.Equal(t, "new", got.ID)

		_, err = s.LatestRun(ctx, "task-missing")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("ListRuns", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
		for i := 0; i < 5; i++ {
			key := "even"
			if i%2 == 1 {
				key = "odd"
			}
			require.NoError(t, s.SaveRun(ctx, &Run{
				TaskKey:   key,
				Request:   json.RawMessage(`{}`),
				CreatedAt: base.Add(time.Duration(i) * time.Minute),
			}))
		}

		all, err := s.ListRuns(ctx, RunFilter{})
		require.NoError(t, err)
		require.Len(t, all, 5)
		assert.True(t, all[0].CreatedAt.After(all[4].CreatedAt))

		even, err := s.ListRuns(ctx, RunFilter{TaskKey: "even"})
		require.NoError(t, err)
		assert.Len(t, even, 3)

		page, err := s.ListRuns(ctx, RunFilter{Limit: 2, Offset: 1})
		require.NoError(t, err)
		require.Len(t, page, 2)
		assert.Equal(t, all[1].ID, page[0].ID)
	})
}

func TestSQLiteStore(t *testing.T) {
	storeTestSuite(t, newTestSQLite)
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	st, err := Open(ctx, DriverSQLite, filepath.Join(t.TempDir(), "open.db"))
	require.NoError(t, err)
	require.NoError(t, st.SaveRun(ctx, &Run{TaskKey: "k", Request: json.RawMessage(`{}`)}))
	require.NoError(t, st.Close())

	_, err = Open(ctx, "mongo", "")
	assert.Error(t, err)

	_, err = Open(ctx, DriverPostgres, "")
	assert.Error(t, err)
}

func TestTaskKey(t *testing.T) {
	a := TaskKey("Ищем  бухгалтера", model.GeoCIS, model.ObjectiveBuyers)
	b := TaskKey("ищем бухгалтера", "", "")
	assert.Equal(t, a, b)
	assert.Len(t, a, 40)

	assert.NotEqual(t, a, TaskKey("ищем бухгалтера", model.GeoGlobal, model.ObjectiveBuyers))
	assert.NotEqual(t, a, TaskKey("ищем бухгалтера", model.GeoCIS, model.ObjectiveCompetitors))
}
