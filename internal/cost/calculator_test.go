package cost

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func testRates() Rates {
	return Rates{
		Anthropic: map[string]ModelRate{
			"haiku": {
				Input: 0.80, Output: 4.00,
				CacheWriteMul: 1.25, CacheReadMul: 0.1,
			},
			"sonnet": {
				Input: 3.00, Output: 15.00,
				CacheWriteMul: 1.25, CacheReadMul: 0.1,
			},
		},
		Jina:       JinaRate{PerMTok: 0.02, PerSearch: 0.002},
		Perplexity: PerplexityRate{PerQuery: 0.005, PerMTok: 1.0},
		Firecrawl:  FirecrawlRate{PlanMonthly: 19.0, CreditsIncluded: 3000},
	}
}

func TestClaude(t *testing.T) {
	t.Parallel()
	calc := NewCalculator(testRates())

	tests := []struct {
		name       string
		model      string
		input      int
		output     int
		cacheWrite int
		cacheRead  int
		want       float64
	}{
		{
			name:  "haiku simple",
			model: "haiku", input: 1000000, output: 100000,
			want: 0.80 + 0.40,
		},
		{
			name:  "haiku with cache",
			model: "haiku", input: 500000, output: 50000,
			cacheWrite: 200000, cacheRead: 300000,
			// in 0.40, out 0.20, cw 0.2*0.80*1.25, cr 0.3*0.80*0.1
			want: 0.40 + 0.20 + 0.20 + 0.024,
		},
		{
			name:  "sonnet",
			model: "sonnet", input: 1000000, output: 100000,
			want: 3.00 + 1.50,
		},
		{
			name:  "unknown model returns 0",
			model: "unknown", input: 1000000, output: 1000000,
			want: 0,
		},
		{
			name:  "zero tokens returns 0",
			model: "haiku",
			want:  0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := calc.Claude(tt.model, tt.input, tt.output, tt.cacheWrite, tt.cacheRead)
			assert.InDelta(t, tt.want, got, 0.001)
		})
	}
}

func TestGeneration(t *testing.T) {
	t.Parallel()
	calc := NewCalculator(testRates())

	assert.InDelta(t, 1.20, calc.Generation("anthropic", "haiku", 1000000, 100000, 0, 0), 0.001)
	assert.InDelta(t, 0.005+0.5, calc.Generation("perplexity", "sonar", 400000, 100000, 0, 0), 0.0001)
	assert.Zero(t, calc.Generation("other", "x", 1000, 1000, 0, 0))
}

func TestJina(t *testing.T) {
	t.Parallel()
	calc := NewCalculator(testRates())

	tests := []struct {
		name   string
		tokens int
		want   float64
	}{
		{"1M tokens", 1000000, 0.02},
		{"500K tokens", 500000, 0.01},
		{"zero tokens", 0, 0},
		{"small", 2150, 2150.0 / 1e6 * 0.02},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := calc.Jina(tt.tokens)
			assert.InDelta(t, tt.want, got, 0.0001)
		})
	}
}

func TestSearchAndScrape(t *testing.T) {
	t.Parallel()
	calc := NewCalculator(testRates())
	assert.InDelta(t, 0.024, calc.Search(12), 0.00001)
	assert.InDelta(t, 19.0/3000, calc.FirecrawlScrape(), 0.00001)

	free := NewCalculator(Rates{})
	assert.Zero(t, free.FirecrawlScrape())
}

func TestDefaultRates(t *testing.T) {
	t.Parallel()
	rates := DefaultRates()

	assert.Contains(t, rates.Anthropic, "claude-haiku-4-5-20251001")
	assert.Contains(t, rates.Anthropic, "claude-sonnet-4-5-20250929")
	assert.InDelta(t, 0.02, rates.Jina.PerMTok, 0.001)
	assert.InDelta(t, 0.005, rates.Perplexity.PerQuery, 0.001)
}
