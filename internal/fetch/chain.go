package fetch

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/prospect-cli/internal/resilience"
)

// ErrSkipped is returned for URLs the path matcher excludes.
var ErrSkipped = eris.New("fetch: url skipped")

// Chain tries sources in priority order. It returns the first unblocked
// page; when every source that answered served a block page, the last of
// those is returned with Blocked set.
type Chain struct {
	matcher  *PathMatcher
	sources  []Source
	breakers *resilience.ServiceBreakers
}

// NewChain creates a Chain. Breakers are shared per source name so a source
// that keeps failing is skipped until its reset timeout passes; nil gets a
// private registry with default settings.
func NewChain(matcher *PathMatcher, breakers *resilience.ServiceBreakers, sources ...Source) *Chain {
	if matcher == nil {
		matcher = NewPathMatcher(nil)
	}
	if breakers == nil {
		breakers = resilience.NewServiceBreakers(resilience.DefaultCircuitBreakerConfig())
	}
	return &Chain{matcher: matcher, sources: sources, breakers: breakers}
}

// Len returns the number of configured sources.
func (c *Chain) Len() int { return len(c.sources) }

// FetchPage implements Fetcher.
func (c *Chain) FetchPage(ctx context.Context, targetURL string, opts Options) (*Page, error) {
	if c.matcher.IsExcluded(targetURL) {
		return nil, eris.Wrapf(ErrSkipped, "fetch: %s", targetURL)
	}

	var (
		lastErr     error
		blockedPage *Page
	)
	for _, s := range c.sources {
		if ctx.Err() != nil {
			return nil, eris.Wrap(ctx.Err(), "fetch: canceled")
		}
		breaker := c.breakers.Get(s.Name())
		if breaker.Open() {
			zap.L().Debug("fetch: source circuit open, skipping", zap.String("source", s.Name()))
			continue
		}

		page, err := resilience.ExecuteVal(ctx, breaker, func(ctx context.Context) (*Page, error) {
			return s.Fetch(ctx, targetURL, opts)
		})
		if err != nil {
			zap.L().Debug("fetch: source failed, trying next",
				zap.String("source", s.Name()),
				zap.String("url", targetURL),
				zap.Error(err),
			)
			lastErr = err
			continue
		}
		if page.Blocked {
			zap.L().Debug("fetch: page blocked, trying next",
				zap.String("source", s.Name()),
				zap.String("url", targetURL),
				zap.String("block", string(page.BlockType)),
			)
			blockedPage = page
			continue
		}
		return page, nil
	}

	if blockedPage != nil {
		return blockedPage, nil
	}
	if lastErr != nil {
		return nil, eris.Wrap(lastErr, "fetch: all sources failed")
	}
	return nil, eris.Errorf("fetch: no available source for %s", targetURL)
}
