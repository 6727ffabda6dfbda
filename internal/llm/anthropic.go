package llm

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/prospect-cli/pkg/anthropic"
)

// DefaultAnthropicModel is used when no model is configured.
const DefaultAnthropicModel = "claude-haiku-4-5-20251001"

// AnthropicGenerator generates through the Anthropic Messages API.
type AnthropicGenerator struct {
	client anthropic.Client
	model  string
}

// NewAnthropicGenerator wraps an Anthropic client.
func NewAnthropicGenerator(client anthropic.Client, model string) *AnthropicGenerator {
	if model == "" {
		model = DefaultAnthropicModel
	}
	return &AnthropicGenerator{client: client, model: model}
}

// Name implements Generator.
func (g *AnthropicGenerator) Name() string { return "anthropic" }

// Generate implements Generator.
func (g *AnthropicGenerator) Generate(ctx context.Context, req Request) (*Result, error) {
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 1024
	}
	system := req.System + "\n\n" + schemaInstruction(req.Schema)
	var blocks []anthropic.SystemBlock
	if req.CacheSystem {
		blocks = anthropic.BuildCachedSystemBlocks(system)
	} else {
		blocks = []anthropic.SystemBlock{{Text: system}}
	}
	temp := req.Temperature

	resp, err := g.client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:       g.model,
		MaxTokens:   int64(maxTokens),
		System:      blocks,
		Messages:    []anthropic.Message{{Role: "user", Content: req.Prompt}},
		Temperature: &temp,
	})
	if err != nil {
		return nil, eris.Wrap(err, "llm: anthropic generate")
	}

	data, err := extractJSON(resp.Text())
	if err != nil {
		return nil, err
	}
	return &Result{
		Data:             data,
		InputTokens:      int(resp.Usage.InputTokens),
		OutputTokens:     int(resp.Usage.OutputTokens),
		CacheReadTokens:  int(resp.Usage.CacheReadInputTokens),
		CacheWriteTokens: int(resp.Usage.CacheCreationInputTokens),
		Model:            g.model,
		Provider:         g.Name(),
	}, nil
}
