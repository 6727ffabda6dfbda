package scoring

import (
	"context"
	"encoding/json"
	"math"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/prospect-cli/internal/llm"
	"github.com/sells-group/prospect-cli/internal/model"
	"github.com/sells-group/prospect-cli/internal/resilience"
	"github.com/sells-group/prospect-cli/internal/textnorm"
)

// Batching defaults.
const (
	DefaultBatchSize   = 12
	DefaultParallelism = 2
)

// candidateTextRunes caps the page text sent per candidate.
const candidateTextRunes = 700

const scoringPrompt = `You rate web pages as B2B sales leads for the offer described in "intent".
For every candidate return one result with the same id.

- relevanceScore (0-100): how closely the page matches the offer and the ideal customer.
- intentScore (0-100): how strongly the page shows someone wanting to buy or hire for this offer now.
- entityRole: "buyer" if the author needs the offer, "vendor" if the author sells it, "media" for news and articles, "directory" for catalogs and listings, "other" otherwise.
- hasBuyingSignal: true only if the page states a concrete need, tender, vacancy or request.
- reason: one short sentence.
- evidence: a short quote from the page supporting the scores.
- contactHint: an email, phone or contact channel from the page, or empty.
Judge only from the given text. Do not invent facts.`

var scoringSchema = json.RawMessage(`{
  "type": "object",
  "properties": {
    "results": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "id": {"type": "string"},
          "relevanceScore": {"type": "integer", "minimum": 0, "maximum": 100},
          "intentScore": {"type": "integer", "minimum": 0, "maximum": 100},
          "entityRole": {"type": "string", "enum": ["buyer", "vendor", "media", "directory", "other"]},
          "hasBuyingSignal": {"type": "boolean"},
          "reason": {"type": "string"},
          "evidence": {"type": "string"},
          "contactHint": {"type": "string"}
        },
        "required": ["id"]
      }
    }
  },
  "required": ["results"]
}`)

// Partial is a provider's assessment of one candidate. A nil field was
// missing or not well-typed.
type Partial struct {
	Relevance       *int
	Intent          *int
	Role            *model.EntityRole
	HasBuyingSignal *bool
	Reason          *string
	Evidence        *string
	ContactHint     *string
}

// BatchStats count provider batches.
type BatchStats struct {
	Batches int `json:"batches"`
	Failed  int `json:"failed"`
	// Codes counts failures by error code.
	Codes map[string]int `json:"codes,omitempty"`
	// Kinds counts failures by timeout, malformed or unavailable.
	Kinds map[string]int `json:"kinds,omitempty"`
}

// LLMScorer scores candidates in batches through a Generator.
type LLMScorer struct {
	gen         llm.Generator
	timeout     time.Duration
	batchSize   int
	parallelism int
}

// NewLLMScorer creates an LLMScorer. timeout bounds each batch.
func NewLLMScorer(gen llm.Generator, timeout time.Duration) *LLMScorer {
	if timeout <= 0 {
		timeout = model.PresetFor(model.ModeStandard).LLMBatchTimeout
	}
	return &LLMScorer{gen: gen, timeout: timeout, batchSize: DefaultBatchSize, parallelism: DefaultParallelism}
}

// WithBatching overrides batch size and parallelism. Non-positive values
// keep the current setting.
func (s *LLMScorer) WithBatching(size, parallelism int) *LLMScorer {
	if size > 0 {
		s.batchSize = size
	}
	if parallelism > 0 {
		s.parallelism = parallelism
	}
	return s
}

type promptIntent struct {
	Offer      string          `json:"offer"`
	Keywords   []string        `json:"keywords,omitempty"`
	Industries []string        `json:"industries,omitempty"`
	Roles      []string        `json:"roles,omitempty"`
	Geo        model.GeoScope  `json:"geoScope"`
	Countries  []string        `json:"countries,omitempty"`
	Objective  model.Objective `json:"objective"`
	Exclude    []string        `json:"exclude,omitempty"`
}

type promptCandidate struct {
	ID         string           `json:"id"`
	URL        string           `json:"url"`
	SourceKind model.SourceKind `json:"sourceKind"`
	Title      string           `json:"title"`
	Snippet    string           `json:"snippet,omitempty"`
	Text       string           `json:"text,omitempty"`
}

// Score returns partial assessments keyed by candidate ID. Candidates of a
// failed batch are absent from the map.
func (s *LLMScorer) Score(ctx context.Context, in model.Intent, cands []model.Candidate) (map[string]Partial, BatchStats) {
	out := make(map[string]Partial, len(cands))
	stats := BatchStats{Codes: map[string]int{}, Kinds: map[string]int{}}
	if s == nil || s.gen == nil || len(cands) == 0 {
		return out, stats
	}
	log := zap.L().With(zap.String("stage", "scoring"), zap.String("provider", s.gen.Name()))

	pi := promptIntent{
		Offer:      in.Offer.ProductOrService,
		Keywords:   in.Offer.Keywords,
		Industries: in.ICP.Industries,
		Roles:      in.ICP.Roles,
		Geo:        in.ICP.GeoScope,
		Countries:  in.ICP.Countries,
		Objective:  in.Objective,
		Exclude:    in.Constraints.MustNotHave,
	}

	var batches [][]model.Candidate
	for start := 0; start < len(cands); start += s.batchSize {
		batches = append(batches, cands[start:min(start+s.batchSize, len(cands))])
	}
	stats.Batches = len(batches)

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.parallelism)
	for bi, batch := range batches {
		g.Go(func() error {
			res, err := s.scoreBatch(gctx, pi, batch)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				code := resilience.Code(err)
				stats.Failed++
				stats.Codes[code]++
				stats.Kinds[resilience.Taxonomy(err).Error()]++
				log.Warn("scoring: batch failed, using heuristic scores",
					zap.Int("batch", bi),
					zap.Int("size", len(batch)),
					zap.String("code", code),
					zap.Error(err),
				)
				return nil
			}
			for id, p := range res {
				out[id] = p
			}
			return nil
		})
	}
	_ = g.Wait()
	return out, stats
}

func (s *LLMScorer) scoreBatch(ctx context.Context, pi promptIntent, batch []model.Candidate) (map[string]Partial, error) {
	pcs := make([]promptCandidate, len(batch))
	ids := make(map[string]bool, len(batch))
	for i, c := range batch {
		ids[c.ID] = true
		pcs[i] = promptCandidate{
			ID:         c.ID,
			URL:        c.URL,
			SourceKind: c.SourceKind,
			Title:      c.Title,
			Snippet:    c.Snippet,
			Text:       textnorm.Truncate(strings.Join(strings.Fields(c.PageText), " "), candidateTextRunes),
		}
	}
	payload, err := json.Marshal(struct {
		Intent     promptIntent      `json:"intent"`
		Candidates []promptCandidate `json:"candidates"`
	}{pi, pcs})
	if err != nil {
		return nil, err
	}

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	res, err := s.gen.Generate(callCtx, llm.Request{
		System:      scoringPrompt,
		Prompt:      string(payload),
		Schema:      scoringSchema,
		MaxTokens:   256 * len(batch),
		CacheSystem: true,
	})
	if err != nil {
		return nil, err
	}

	var reply struct {
		Results []map[string]json.RawMessage `json:"results"`
	}
	if err := llm.Decode(res, &reply); err != nil {
		return nil, err
	}

	out := make(map[string]Partial, len(reply.Results))
	for _, r := range reply.Results {
		var id string
		if json.Unmarshal(r["id"], &id) != nil || !ids[id] {
			continue
		}
		out[id] = parsePartial(r)
	}
	return out, nil
}

// parsePartial keeps each field only when it is present and well-typed.
func parsePartial(r map[string]json.RawMessage) Partial {
	var p Partial
	p.Relevance = parseScore(r["relevanceScore"])
	p.Intent = parseScore(r["intentScore"])
	if s := parseString(r["entityRole"]); s != nil {
		if role, ok := model.ParseEntityRole(*s); ok {
			p.Role = &role
		}
	}
	if raw := r["hasBuyingSignal"]; present(raw) {
		var b bool
		if json.Unmarshal(raw, &b) == nil {
			p.HasBuyingSignal = &b
		}
	}
	p.Reason = parseString(r["reason"])
	p.Evidence = parseString(r["evidence"])
	p.ContactHint = parseString(r["contactHint"])
	return p
}

func present(raw json.RawMessage) bool {
	return len(raw) > 0 && string(raw) != "null"
}

func parseScore(raw json.RawMessage) *int {
	if !present(raw) {
		return nil
	}
	var f float64
	if json.Unmarshal(raw, &f) != nil || f < 0 || f > 100 || math.IsNaN(f) {
		return nil
	}
	v := int(math.Round(f))
	return &v
}

func parseString(raw json.RawMessage) *string {
	if !present(raw) {
		return nil
	}
	var s string
	if json.Unmarshal(raw, &s) != nil {
		return nil
	}
	if s = strings.TrimSpace(s); s == "" {
		return nil
	}
	return &s
}
