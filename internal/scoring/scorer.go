package scoring

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/prospect-cli/internal/geo"
	"github.com/sells-group/prospect-cli/internal/model"
	"github.com/sells-group/prospect-cli/internal/refdata"
)

// Input is one scoring pass.
type Input struct {
	Intent     model.Intent
	Profile    geo.Profile
	Negatives  []string
	Candidates []model.Candidate
}

// Stats summarize a scoring pass.
type Stats struct {
	Heuristic int        `json:"heuristic"`
	LLM       int        `json:"llm"`
	Merged    int        `json:"merged"`
	Batches   BatchStats `json:"batches"`
}

// Scorer runs the heuristic and provider paths and merges them.
type Scorer struct {
	data *refdata.Data
	llm  *LLMScorer
}

// NewScorer creates a Scorer. A nil llm scores heuristically only.
func NewScorer(data *refdata.Data, llm *LLMScorer) *Scorer {
	return &Scorer{data: data, llm: llm}
}

// Score assesses every candidate. Output order follows input order.
func (s *Scorer) Score(ctx context.Context, in Input) ([]model.ScoredCandidate, Stats) {
	heur := make([]Assessment, len(in.Candidates))
	var (
		partials map[string]Partial
		batches  BatchStats
	)

	var g errgroup.Group
	g.Go(func() error {
		for i, c := range in.Candidates {
			heur[i] = Heuristic(c, in.Intent, in.Profile, in.Negatives, s.data)
		}
		return nil
	})
	g.Go(func() error {
		partials, batches = s.llm.Score(ctx, in.Intent, in.Candidates)
		return nil
	})
	_ = g.Wait()

	stats := Stats{Batches: batches}
	out := make([]model.ScoredCandidate, len(in.Candidates))
	for i, c := range in.Candidates {
		var p *Partial
		if v, ok := partials[c.ID]; ok {
			p = &v
		}
		a := Merge(heur[i], p)
		switch a.By {
		case ByLLM:
			stats.LLM++
		case ByMerged:
			stats.Merged++
		default:
			stats.Heuristic++
		}
		out[i] = model.ScoredCandidate{
			Candidate:       c,
			RelevanceScore:  a.Relevance,
			IntentScore:     a.Intent,
			EntityRole:      a.Role,
			SourceType:      c.SourceKind,
			HasBuyingSignal: a.HasBuyingSignal,
			Reason:          a.Reason,
			Evidence:        a.Evidence,
			ContactHint:     a.ContactHint,
			ScoredBy:        a.By,
		}
	}

	zap.L().Info("scoring: done",
		zap.String("stage", "scoring"),
		zap.Int("candidates", len(out)),
		zap.Int("heuristic", stats.Heuristic),
		zap.Int("llm", stats.LLM),
		zap.Int("merged", stats.Merged),
		zap.Int("failed_batches", batches.Failed),
	)
	return out, stats
}
