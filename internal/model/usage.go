package model

// Usage counts the external calls and tokens a run consumed.
type Usage struct {
	LLMCalls     int     `json:"llmCalls"`
	LLMFailures  int     `json:"llmFailures"`
	InputTokens  int     `json:"inputTokens"`
	OutputTokens int     `json:"outputTokens"`
	SearchCalls  int     `json:"searchCalls"`
	FetchCalls   int     `json:"fetchCalls"`
	FetchTokens  int     `json:"fetchTokens"`
	Cost         float64 `json:"costUsd"`
}

// Add merges usage from another instance.
func (u *Usage) Add(other Usage) {
	u.LLMCalls += other.LLMCalls
	u.LLMFailures += other.LLMFailures
	u.InputTokens += other.InputTokens
	u.OutputTokens += other.OutputTokens
	u.SearchCalls += other.SearchCalls
	u.FetchCalls += other.FetchCalls
	u.FetchTokens += other.FetchTokens
	u.Cost += other.Cost
}
