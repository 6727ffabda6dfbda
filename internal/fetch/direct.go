package fetch

import (
	"bytes"
	"context"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rotisserie/eris"

	"github.com/sells-group/prospect-cli/internal/resilience"
)

// maxDirectBody caps how much of a page DirectSource reads.
const maxDirectBody = 512 * 1024

// DirectSource fetches HTML over plain HTTP and extracts text locally. It
// needs no API key and is the last resort in a chain.
type DirectSource struct {
	client    *http.Client
	userAgent string
}

// NewDirectSource creates a DirectSource. A nil client gets a default with
// conservative dial and handshake timeouts.
func NewDirectSource(client *http.Client, userAgent string) *DirectSource {
	if client == nil {
		client = &http.Client{
			Timeout: 15 * time.Second,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout: 10 * time.Second,
				}).DialContext,
				TLSHandshakeTimeout: 10 * time.Second,
			},
		}
	}
	if userAgent == "" {
		userAgent = "Mozilla/5.0 (compatible; ProspectBot/1.0)"
	}
	return &DirectSource{client: client, userAgent: userAgent}
}

// Name implements Source.
func (d *DirectSource) Name() string { return "direct" }

// Fetch implements Source.
func (d *DirectSource) Fetch(ctx context.Context, targetURL string, _ Options) (*Page, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, targetURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "fetch: direct create request")
	}
	req.Header.Set("User-Agent", d.userAgent)
	req.Header.Set("Accept-Language", "ru,en;q=0.8")

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "fetch: direct get")
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxDirectBody))
	if err != nil {
		return nil, eris.Wrap(err, "fetch: direct read body")
	}

	if blocked, typ := detectHTTPBlock(resp, body); blocked {
		return &Page{URL: targetURL, Source: d.Name(), Blocked: true, BlockType: typ}, nil
	}
	if resp.StatusCode >= 400 {
		err := eris.Errorf("fetch: direct status %d", resp.StatusCode)
		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			return nil, resilience.NewTransientError(err, resp.StatusCode)
		}
		return nil, err
	}

	title, text, err := extractText(body)
	if err != nil {
		return nil, err
	}
	p := &Page{
		URL:    targetURL,
		Title:  title,
		Text:   text,
		HTML:   string(body),
		Source: d.Name(),
	}
	markBlocked(p, 0)
	return p, nil
}

// detectHTTPBlock looks at headers and raw markup, which the extracted text
// no longer carries.
func detectHTTPBlock(resp *http.Response, body []byte) (bool, BlockType) {
	if resp.StatusCode == 403 || resp.StatusCode == 503 {
		if resp.Header.Get("cf-ray") != "" || resp.Header.Get("cf-mitigated") != "" ||
			strings.EqualFold(resp.Header.Get("server"), "cloudflare") {
			return true, BlockCloudflare
		}
	}
	if len(body) < challengeMaxLen {
		lower := strings.ToLower(string(body))
		if strings.Contains(lower, "<noscript") && strings.Contains(lower, "javascript") {
			return true, BlockJSShell
		}
		if strings.Contains(lower, `http-equiv="refresh"`) {
			return true, BlockJSShell
		}
	}
	return false, BlockNone
}

// extractText returns the page title and readable text with scripts, styles
// and page chrome removed.
func extractText(body []byte) (string, string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return "", "", eris.Wrap(err, "fetch: parse html")
	}
	title := strings.TrimSpace(doc.Find("title").First().Text())
	doc.Find("script, style, noscript, nav, footer, header, svg, iframe").Remove()

	var lines []string
	doc.Find("body").Find("h1, h2, h3, h4, p, li, td, th, dd, dt, blockquote, pre, address, a[href^='mailto:'], a[href^='tel:']").Each(func(_ int, s *goquery.Selection) {
		if s.Children().Filter("p, li, td, h1, h2, h3, h4").Length() > 0 {
			return
		}
		line := strings.Join(strings.Fields(s.Text()), " ")
		if href, ok := s.Attr("href"); ok && (strings.HasPrefix(href, "mailto:") || strings.HasPrefix(href, "tel:")) {
			line = strings.TrimPrefix(strings.TrimPrefix(href, "mailto:"), "tel:")
		}
		if line != "" {
			lines = append(lines, line)
		}
	})
	if len(lines) == 0 {
		lines = append(lines, strings.Join(strings.Fields(doc.Find("body").Text()), " "))
	}
	return title, strings.TrimSpace(strings.Join(lines, "\n")), nil
}
