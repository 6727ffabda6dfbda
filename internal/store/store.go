// Package store persists prospecting runs so later runs can continue or
// refresh them. Requests and responses are stored as opaque JSON.
package store

import (
	"context"
	"crypto/sha1" //nolint:gosec // key derivation, not a security boundary
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/prospect-cli/internal/model"
	"github.com/sells-group/prospect-cli/internal/textnorm"
)

// Supported drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// ErrNotFound is returned when a run does not exist.
var ErrNotFound = eris.New("store: run not found")

// Run is one persisted pipeline run.
type Run struct {
	ID         string          `json:"id"`
	TaskKey    string          `json:"taskKey"`
	StatusCode string          `json:"statusCode"`
	Request    json.RawMessage `json:"request"`
	Response   json.RawMessage `json:"response,omitempty"`
	DedupeKeys []string        `json:"dedupeKeys"`
	CreatedAt  time.Time       `json:"createdAt"`
}

// RunFilter specifies criteria for listing runs.
type RunFilter struct {
	TaskKey string `json:"task_key,omitempty"`
	Limit   int    `json:"limit,omitempty"`
	Offset  int    `json:"offset,omitempty"`
}

// Store defines the persistence interface for runs.
type Store interface {
	// SaveRun inserts r, assigning ID and CreatedAt when empty.
	SaveRun(ctx context.Context, r *Run) error
	GetRun(ctx context.Context, id string) (*Run, error)
	// LatestRun returns the newest run for taskKey, or ErrNotFound.
	LatestRun(ctx context.Context, taskKey string) (*Run, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]Run, error)

	Migrate(ctx context.Context) error
	Close() error
}

// Open connects to the configured driver and migrates the schema.
func Open(ctx context.Context, driver, dsn string) (Store, error) {
	var (
		st  Store
		err error
	)
	switch driver {
	case DriverSQLite, "":
		if dsn == "" {
			dsn = "prospect.db"
		}
		st, err = NewSQLite(dsn)
	case DriverPostgres:
		if dsn == "" {
			return nil, eris.New("store: postgres requires a database url")
		}
		st, err = NewPostgres(ctx, dsn, nil)
	default:
		return nil, eris.Errorf("store: unknown driver %q", driver)
	}
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close() //nolint:errcheck
		return nil, err
	}
	return st, nil
}

// TaskKey identifies "the same task" across runs: normalized task text,
// geo scope and objective.
func TaskKey(text string, scope model.GeoScope, objective model.Objective) string {
	if scope == "" {
		scope = model.GeoCIS
	}
	if objective == "" {
		objective = model.ObjectiveBuyers
	}
	raw := strings.Join([]string{textnorm.Normalize(text), string(scope), string(objective)}, "|")
	h := sha1.Sum([]byte(raw)) //nolint:gosec
	return fmt.Sprintf("%x", h)
}

func limitOrDefault(n int) int {
	if n <= 0 {
		return 100
	}
	return n
}
