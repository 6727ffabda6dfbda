package search

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/prospect-cli/internal/model"
	"github.com/sells-group/prospect-cli/internal/plan"
	"github.com/sells-group/prospect-cli/internal/resilience"
)

func testPlan(texts ...string) plan.Plan {
	var p plan.Plan
	for _, t := range texts {
		p.Queries = append(p.Queries, plan.Query{Text: t})
	}
	return p
}

func TestClampCalls(t *testing.T) {
	tests := []struct {
		requested, fallback, size, want int
	}{
		{requested: 5, fallback: 12, size: 20, want: 5},
		{requested: 50, fallback: 12, size: 20, want: 20},
		{requested: 0, fallback: 12, size: 20, want: 12},
		{requested: -1, fallback: 0, size: 20, want: 1},
		{requested: 3, fallback: 12, size: 0, want: 1},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ClampCalls(tt.requested, tt.fallback, tt.size))
	}
}

func TestExecutor_BudgetAndDedupe(t *testing.T) {
	prov := new(mockProvider)
	prov.On("Search", mock.Anything, mock.MatchedBy(func(r Request) bool { return r.Query == "q1" })).
		Return(okResponse(
			Result{URL: "https://hh.ru/vacancy/1?utm_source=a", Title: "Бухгалтер"},
			Result{URL: "https://romashka.ru/support/x"},
		), nil)
	prov.On("Search", mock.Anything, mock.MatchedBy(func(r Request) bool { return r.Query == "q2" })).
		Return(okResponse(
			Result{URL: "https://hh.ru/vacancy/1?utm_source=b", Title: "Бухгалтер"},
			Result{URL: "https://hh.ru/vacancy/2", Title: "Главный бухгалтер"},
		), nil)

	ex := NewExecutor(prov, nil, nil)
	out := ex.Run(context.Background(), testPlan("q1", "q2", "q3"), newTestFilter(model.GeoCIS), Options{MaxCalls: 2})

	require.Len(t, out.Candidates, 2)
	assert.Equal(t, "https://hh.ru/vacancy/1", out.Candidates[0].URL)
	assert.Equal(t, "https://hh.ru/vacancy/2", out.Candidates[1].URL)
	assert.Equal(t, "mock", out.Candidates[0].Provider)
	assert.Equal(t, 2, out.Stats.CallsMade)
	assert.Equal(t, []string{"q1", "q2"}, out.Stats.QueriesUsed)
	assert.Equal(t, 1, out.Stats.FilteredReasons[model.ReasonDuplicateURL])
	assert.Equal(t, 1, out.Stats.FilteredReasons[model.ReasonBlockedDocsSupport])
	assert.Equal(t, []string{"https://romashka.ru/support/x"}, out.Stats.FilteredSamples[model.ReasonBlockedDocsSupport])
	assert.Equal(t, StopBudget, out.Stats.StopReason)
	prov.AssertNotCalled(t, "Search", mock.Anything, mock.MatchedBy(func(r Request) bool { return r.Query == "q3" }))
}

func TestExecutor_EarlyStop(t *testing.T) {
	prov := new(mockProvider)
	prov.On("Search", mock.Anything, mock.Anything).
		Return(okResponse(
			Result{URL: "https://hh.ru/vacancy/1", Title: "Бухгалтер"},
			Result{URL: "https://hh.ru/vacancy/2", Title: "Бухгалтер"},
			Result{URL: "https://hh.ru/vacancy/3", Title: "Бухгалтер"},
		), nil).Once()

	ex := NewExecutor(prov, nil, nil)
	out := ex.Run(context.Background(), testPlan("q1", "q2"), newTestFilter(model.GeoCIS), Options{MaxCalls: 2, StopAfter: 3})
	assert.Len(t, out.Candidates, 3)
	assert.Equal(t, 1, out.Stats.CallsMade)
	assert.Equal(t, StopTarget, out.Stats.StopReason)
	prov.AssertExpectations(t)
}

func TestExecutor_FailuresAndBreaker(t *testing.T) {
	prov := new(mockProvider)
	prov.On("Search", mock.Anything, mock.Anything).Return(nil, resilience.NewTransientError(errors.New("503"), 503))

	breaker := resilience.NewCircuitBreaker(resilience.NewCircuitConfig(2, time.Minute))
	ex := NewExecutor(prov, nil, breaker)
	out := ex.Run(context.Background(), testPlan("q1", "q2", "q3", "q4"), newTestFilter(model.GeoCIS), Options{MaxCalls: 4})

	assert.Equal(t, 2, out.Stats.CallsMade)
	assert.Equal(t, 2, out.Stats.CallsFailed)
	assert.Equal(t, 2, out.Stats.ErrorCodes[resilience.CodeTransient])
	assert.Equal(t, StopCircuitOpen, out.Stats.StopReason)
	assert.True(t, out.Stats.AllFailed())
	assert.Empty(t, out.Candidates)
	prov.AssertNumberOfCalls(t, "Search", 2)
}

func TestExecutor_OpenBreakerMakesNoCalls(t *testing.T) {
	prov := new(mockProvider)
	prov.On("Search", mock.Anything, mock.Anything).Return(nil, resilience.NewTransientError(errors.New("503"), 503))

	breaker := resilience.NewCircuitBreaker(resilience.NewCircuitConfig(1, time.Minute))
	ex := NewExecutor(prov, nil, breaker)
	first := ex.Run(context.Background(), testPlan("q1", "q2"), newTestFilter(model.GeoCIS), Options{MaxCalls: 2})
	second := ex.Run(context.Background(), testPlan("q1", "q2"), newTestFilter(model.GeoCIS), Options{MaxCalls: 2})

	assert.Equal(t, 1, first.Stats.CallsMade)
	assert.Zero(t, second.Stats.CallsMade)
	assert.Equal(t, StopCircuitOpen, second.Stats.StopReason)
	assert.True(t, second.Stats.AllFailed())
	prov.AssertNumberOfCalls(t, "Search", 1)
}

func TestStats_AllFailed(t *testing.T) {
	tests := []struct {
		name  string
		stats Stats
		want  bool
	}{
		{name: "no calls", stats: Stats{StopReason: StopBudget}},
		{name: "canceled before any call", stats: Stats{StopReason: StopCanceled}},
		{name: "every call failed", stats: Stats{CallsMade: 2, CallsFailed: 2, StopReason: StopBudget}, want: true},
		{name: "one call succeeded", stats: Stats{CallsMade: 2, CallsFailed: 1, StopReason: StopCircuitOpen}},
		{name: "circuit open before any call", stats: Stats{StopReason: StopCircuitOpen}, want: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.stats.AllFailed())
		})
	}
}

func TestExecutor_NotOKResponse(t *testing.T) {
	prov := new(mockProvider)
	prov.On("Search", mock.Anything, mock.Anything).
		Return(&Response{OK: false, Provider: "mock", ErrorCode: "quota_exceeded"}, nil).Once()
	prov.On("Search", mock.Anything, mock.Anything).
		Return(okResponse(Result{URL: "https://hh.ru/vacancy/9", Title: "Бухгалтер"}), nil).Once()

	ex := NewExecutor(prov, nil, nil)
	out := ex.Run(context.Background(), testPlan("q1", "q2"), newTestFilter(model.GeoCIS), Options{MaxCalls: 5})
	assert.Equal(t, 2, out.Stats.CallsMade)
	assert.Equal(t, 1, out.Stats.CallsFailed)
	assert.Equal(t, 1, out.Stats.ErrorCodes["quota_exceeded"])
	assert.False(t, out.Stats.AllFailed())
	assert.Len(t, out.Candidates, 1)
}

func TestExecutor_PerCallTimeout(t *testing.T) {
	prov := new(mockProvider)
	prov.On("Search", mock.Anything, mock.Anything).Return(nil, context.DeadlineExceeded).Run(func(args mock.Arguments) {
		ctx := args.Get(0).(context.Context)
		<-ctx.Done()
	})

	ex := NewExecutor(prov, nil, nil)
	start := time.Now()
	out := ex.Run(context.Background(), testPlan("q1"), newTestFilter(model.GeoCIS), Options{MaxCalls: 1, Timeout: 20 * time.Millisecond})
	assert.Less(t, time.Since(start), time.Second)
	assert.Equal(t, 1, out.Stats.ErrorCodes[resilience.CodeTimeout])
}

func TestExecutor_CanceledContext(t *testing.T) {
	prov := new(mockProvider)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	out := NewExecutor(prov, nil, nil).Run(ctx, testPlan("q1"), newTestFilter(model.GeoCIS), Options{MaxCalls: 1})
	assert.Equal(t, StopCanceled, out.Stats.StopReason)
	assert.Zero(t, out.Stats.CallsMade)
	prov.AssertNotCalled(t, "Search", mock.Anything, mock.Anything)
}

func TestExecutor_PassesRequestHints(t *testing.T) {
	prov := new(mockProvider)
	prov.On("Search", mock.Anything, Request{
		Query:    "site:hh.ru бухгалтер",
		Limit:    5,
		Geo:      model.GeoCIS,
		Country:  "ru",
		Language: "ru",
		Site:     "hh.ru",
		Source:   "job",
	}).Return(okResponse(), nil)

	p := plan.Plan{Queries: []plan.Query{{Text: "site:hh.ru бухгалтер", Site: "hh.ru", Family: "job"}}}
	out := NewExecutor(prov, nil, nil).Run(context.Background(), p, newTestFilter(model.GeoCIS), Options{
		MaxCalls: 1, ResultsPerQuery: 5, Geo: model.GeoCIS, Country: "ru", Language: "ru",
	})
	assert.Equal(t, 1, out.Stats.CallsMade)
	prov.AssertExpectations(t)
}
