package fetch

import (
	"context"
	"errors"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/prospect-cli/internal/resilience"
	"github.com/sells-group/prospect-cli/pkg/jina"
)

// JinaSource reads pages through Jina Reader.
type JinaSource struct {
	client jina.Client
}

// NewJinaSource wraps a Jina client.
func NewJinaSource(client jina.Client) *JinaSource {
	return &JinaSource{client: client}
}

// Name implements Source.
func (j *JinaSource) Name() string { return "jina" }

// Fetch implements Source.
func (j *JinaSource) Fetch(ctx context.Context, targetURL string, _ Options) (*Page, error) {
	resp, err := j.client.Read(ctx, targetURL)
	if err != nil {
		var se *jina.StatusError
		if errors.As(err, &se) && resilience.IsTransientHTTPStatus(se.StatusCode) {
			err = resilience.NewTransientError(err, se.StatusCode)
		}
		return nil, eris.Wrap(err, "fetch: jina read")
	}
	if resp == nil {
		return nil, eris.New("fetch: jina returned no data")
	}

	p := &Page{
		URL:    firstNonEmpty(resp.Data.URL, targetURL),
		Title:  strings.TrimSpace(resp.Data.Title),
		Text:   resp.Data.Content,
		Source: j.Name(),
		Tokens: resp.Data.Usage.Tokens,
	}
	status := resp.Code
	if status == 200 {
		status = 0
	}
	markBlocked(p, status)
	return p, nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
