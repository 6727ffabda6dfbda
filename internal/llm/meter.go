package llm

import (
	"context"
	"sync"

	"github.com/sells-group/prospect-cli/internal/cost"
	"github.com/sells-group/prospect-cli/internal/model"
)

// Meter wraps a Generator and accumulates token usage and cost. One Meter is
// created per run; it is safe for concurrent use.
type Meter struct {
	gen  Generator
	calc *cost.Calculator

	mu    sync.Mutex
	usage model.Usage
}

// NewMeter wraps gen. A nil calc records tokens without cost.
func NewMeter(gen Generator, calc *cost.Calculator) *Meter {
	return &Meter{gen: gen, calc: calc}
}

// Name implements Generator.
func (m *Meter) Name() string { return m.gen.Name() }

// Generate implements Generator.
func (m *Meter) Generate(ctx context.Context, req Request) (*Result, error) {
	res, err := m.gen.Generate(ctx, req)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.usage.LLMCalls++
	if err != nil {
		m.usage.LLMFailures++
		return nil, err
	}
	m.usage.InputTokens += res.InputTokens
	m.usage.OutputTokens += res.OutputTokens
	if m.calc != nil {
		m.usage.Cost += m.calc.Generation(res.Provider, res.Model,
			res.InputTokens, res.OutputTokens, res.CacheWriteTokens, res.CacheReadTokens)
	}
	return res, nil
}

// Usage returns the usage recorded so far.
func (m *Meter) Usage() model.Usage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.usage
}
