package llm

import (
	"context"
	"errors"

	"github.com/rotisserie/eris"

	"github.com/sells-group/prospect-cli/internal/resilience"
	"github.com/sells-group/prospect-cli/pkg/perplexity"
)

// PerplexityGenerator generates through Perplexity chat completions with a
// json_schema response format.
type PerplexityGenerator struct {
	client perplexity.Client
	model  string
}

// NewPerplexityGenerator wraps a Perplexity client. An empty model uses the
// client's default.
func NewPerplexityGenerator(client perplexity.Client, model string) *PerplexityGenerator {
	return &PerplexityGenerator{client: client, model: model}
}

// Name implements Generator.
func (g *PerplexityGenerator) Name() string { return "perplexity" }

// Generate implements Generator.
func (g *PerplexityGenerator) Generate(ctx context.Context, req Request) (*Result, error) {
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 1024
	}
	temp := req.Temperature

	resp, err := g.client.ChatCompletion(ctx, perplexity.ChatCompletionRequest{
		Model: g.model,
		Messages: []perplexity.Message{
			{Role: "system", Content: req.System + "\n\n" + schemaInstruction(req.Schema)},
			{Role: "user", Content: req.Prompt},
		},
		Temperature:    &temp,
		MaxTokens:      &maxTokens,
		ResponseFormat: perplexity.SchemaFormat(req.Schema),
	})
	if err != nil {
		var apiErr *perplexity.APIError
		if errors.As(err, &apiErr) && resilience.IsTransientHTTPStatus(apiErr.StatusCode) {
			err = resilience.NewTransientError(err, apiErr.StatusCode)
		}
		return nil, eris.Wrap(err, "llm: perplexity generate")
	}

	data, err := extractJSON(resp.Text())
	if err != nil {
		return nil, err
	}
	return &Result{
		Data:         data,
		InputTokens:  resp.Usage.PromptTokens,
		OutputTokens: resp.Usage.CompletionTokens,
		Model:        g.model,
		Provider:     g.Name(),
	}, nil
}
