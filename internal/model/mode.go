package model

import "time"

// Preset is the budget and timeout table for one Mode.
type Preset struct {
	IntentTimeout   time.Duration
	SearchTimeout   time.Duration
	LLMBatchTimeout time.Duration
	// EnrichBudget caps page fetches before the max-calls adjustment.
	EnrichBudget int
	// MaxCalls is the search-call budget when a request does not set one.
	MaxCalls   int
	MinQueries int
	MaxQueries int
}

var presets = map[Mode]Preset{
	ModeQuick: {
		IntentTimeout:   12 * time.Second,
		SearchTimeout:   8 * time.Second,
		LLMBatchTimeout: 15 * time.Second,
		EnrichBudget:    3,
		MaxCalls:        6,
		MinQueries:      4,
		MaxQueries:      12,
	},
	ModeStandard: {
		IntentTimeout:   15 * time.Second,
		SearchTimeout:   15 * time.Second,
		LLMBatchTimeout: 25 * time.Second,
		EnrichBudget:    6,
		MaxCalls:        12,
		MinQueries:      6,
		MaxQueries:      24,
	},
	ModeDeep: {
		IntentTimeout:   20 * time.Second,
		SearchTimeout:   22 * time.Second,
		LLMBatchTimeout: 40 * time.Second,
		EnrichBudget:    12,
		MaxCalls:        24,
		MinQueries:      10,
		MaxQueries:      40,
	},
}

// PresetFor returns the preset for m. Unknown modes get the standard preset.
func PresetFor(m Mode) Preset {
	if p, ok := presets[m]; ok {
		return p
	}
	return presets[ModeStandard]
}
