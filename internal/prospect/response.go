package prospect

import (
	"github.com/sells-group/prospect-cli/internal/dedupe"
	"github.com/sells-group/prospect-cli/internal/enrich"
	"github.com/sells-group/prospect-cli/internal/model"
	"github.com/sells-group/prospect-cli/internal/plan"
	"github.com/sells-group/prospect-cli/internal/scoring"
)

// Response is the pipeline output.
type Response struct {
	Leads  []model.Lead      `json:"leads"`
	Proofs []model.ProofItem `json:"proofs"`
	// Segments are ICP suggestions, filled only when Leads is empty.
	Segments []model.Segment `json:"segments,omitempty"`
	Meta     Meta            `json:"meta"`
}

// Meta carries run diagnostics.
type Meta struct {
	StatusCode  model.StatusCode `json:"statusCode"`
	RunID       string           `json:"runId"`
	TaskKey     string           `json:"taskKey"`
	Intent      model.Intent     `json:"intent"`
	SearchPlan  SearchPlan       `json:"searchPlan"`
	SearchDebug SearchDebug      `json:"searchDebug"`
	Enrichment  enrich.Stats     `json:"enrichment"`
	Scoring     scoring.Stats    `json:"scoring"`
	Limitations []string         `json:"limitations"`
	Assumptions []string         `json:"assumptions"`
	Usage       Usage            `json:"usage"`
	CostUSD     float64          `json:"costUsd"`
	PriorRunID  string           `json:"priorRunId,omitempty"`
	Diff        *dedupe.Diff     `json:"diff,omitempty"`
	Stages      []StageTiming    `json:"stages"`
}

// SearchPlan is the plan and the part of it that ran.
type SearchPlan struct {
	Queries     []plan.Query `json:"queries"`
	QueriesUsed []string     `json:"queriesUsed"`
}

// SearchDebug explains what the search and filter stages did.
type SearchDebug struct {
	GeoScope         model.GeoScope      `json:"geoScope"`
	FilteredReasons  map[string]int      `json:"filteredReasons"`
	FilteredSamples  map[string][]string `json:"filteredSamples"`
	NegativeKeywords []string            `json:"negativeKeywords"`
	CallsMade        int                 `json:"callsMade"`
	CallsFailed      int                 `json:"callsFailed"`
	ErrorCodes       map[string]int      `json:"errorCodes,omitempty"`
	StopReason       string              `json:"stopReason,omitempty"`
}

// Usage is model.Usage plus the combined LLM token count.
type Usage struct {
	model.Usage
	LLMTokens int `json:"llmTokens"`
}

// StageTiming records how long a stage took.
type StageTiming struct {
	Name       string `json:"name"`
	DurationMS int64  `json:"durationMs"`
}
