// Package llm adapts text-generation providers to one contract: a prompt and
// a JSON schema in, a JSON document out. Providers fail loudly; a reply that
// is not a JSON document is an error, never a partial success.
package llm

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/prospect-cli/internal/model"
)

// Request is one generation call.
type Request struct {
	// System carries the instructions shared by every call of a stage.
	System string
	Prompt string
	// Schema is the JSON Schema the reply must follow.
	Schema      json.RawMessage
	MaxTokens   int
	Temperature float64
	// CacheSystem marks the system prompt as reusable across calls.
	CacheSystem bool
}

// Result is a successful generation.
type Result struct {
	Data         json.RawMessage
	InputTokens  int
	OutputTokens int
	// CacheReadTokens and CacheWriteTokens are reported by providers with
	// prompt caching.
	CacheReadTokens  int
	CacheWriteTokens int
	Model            string
	Provider         string
}

// Generator produces structured output.
type Generator interface {
	Generate(ctx context.Context, req Request) (*Result, error)
	Name() string
}

// Decode unmarshals a result into out. Decoding failures are reported as
// model.ErrMalformedResponse.
func Decode(res *Result, out any) error {
	if res == nil || len(res.Data) == 0 {
		return eris.Wrap(model.ErrMalformedResponse, "llm: empty result")
	}
	if err := json.Unmarshal(res.Data, out); err != nil {
		return eris.Wrapf(model.ErrMalformedResponse, "llm: decode: %v", err)
	}
	return nil
}

// extractJSON pulls a JSON object or array out of model text that may be
// wrapped in markdown code fences or prose.
func extractJSON(text string) (json.RawMessage, error) {
	text = strings.TrimSpace(text)

	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```json")
		text = strings.TrimPrefix(text, "```")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
		text = strings.TrimSpace(text)
	}

	start := strings.IndexAny(text, "{[")
	if start < 0 {
		return nil, eris.Wrap(model.ErrMalformedResponse, "llm: no json in reply")
	}
	closer := "}"
	if text[start] == '[' {
		closer = "]"
	}
	end := strings.LastIndex(text, closer)
	if end <= start {
		return nil, eris.Wrap(model.ErrMalformedResponse, "llm: unterminated json in reply")
	}
	raw := text[start : end+1]
	if !json.Valid([]byte(raw)) {
		return nil, eris.Wrap(model.ErrMalformedResponse, "llm: invalid json in reply")
	}
	return json.RawMessage(raw), nil
}

// schemaInstruction renders the output contract appended to every prompt.
func schemaInstruction(schema json.RawMessage) string {
	if len(schema) == 0 {
		return "Reply with a single JSON document and nothing else."
	}
	return "Reply with a single JSON document that validates against this JSON Schema, and nothing else:\n" + string(schema)
}
