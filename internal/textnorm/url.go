package textnorm

import (
	"net/url"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
)

// trackingParams are dropped during canonicalization. Entries ending in "_"
// match by prefix.
var trackingParams = []string{
	"utm_",
	"gclid",
	"fbclid",
	"yclid",
	"_openstat",
	"ref",
	"ref_src",
	"mc_cid",
	"mc_eid",
	"from",
	"igshid",
}

func isTrackingParam(key string) bool {
	key = strings.ToLower(key)
	for _, p := range trackingParams {
		if strings.HasSuffix(p, "_") {
			if strings.HasPrefix(key, p) {
				return true
			}
			continue
		}
		if key == p {
			return true
		}
	}
	return false
}

// parseAbsolute parses raw and requires an http(s) scheme and a host.
func parseAbsolute(raw string) (*url.URL, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, eris.New("textnorm: empty url")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, eris.Wrap(err, "textnorm: parse url")
	}
	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return nil, eris.Errorf("textnorm: not an absolute http url: %q", raw)
	}
	if u.Hostname() == "" {
		return nil, eris.Errorf("textnorm: missing host: %q", raw)
	}
	return u, nil
}

// CanonicalURL normalizes an absolute URL: lowercase scheme and host, no
// "www." prefix, no fragment, no tracking parameters, sorted query, and no
// trailing slash.
func CanonicalURL(raw string) (string, error) {
	u, err := parseAbsolute(raw)
	if err != nil {
		return "", err
	}
	return canonical(u, true), nil
}

// ThreadURL is CanonicalURL without the query string.
func ThreadURL(raw string) (string, error) {
	u, err := parseAbsolute(raw)
	if err != nil {
		return "", err
	}
	return canonical(u, false), nil
}

func canonical(u *url.URL, keepQuery bool) string {
	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	if port := u.Port(); port != "" && port != "80" && port != "443" {
		host += ":" + port
	}

	var b strings.Builder
	b.WriteString(strings.ToLower(u.Scheme))
	b.WriteString("://")
	b.WriteString(host)
	b.WriteString(strings.TrimRight(u.EscapedPath(), "/"))

	if keepQuery {
		q := u.Query()
		keys := make([]string, 0, len(q))
		for k := range q {
			if !isTrackingParam(k) {
				keys = append(keys, k)
			}
		}
		if len(keys) > 0 {
			sort.Strings(keys)
			vals := url.Values{}
			for _, k := range keys {
				vals[k] = q[k]
			}
			b.WriteString("?")
			b.WriteString(vals.Encode())
		}
	}
	return b.String()
}

// Host returns the lowercase host of raw without "www." or port, or "" when
// raw does not parse.
func Host(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
}

// HostMatches reports whether host equals domain or is a subdomain of it.
func HostMatches(host, domain string) bool {
	domain = strings.TrimPrefix(strings.ToLower(domain), "www.")
	if domain == "" {
		return false
	}
	return host == domain || strings.HasSuffix(host, "."+domain)
}

// Path returns the lowercase path of raw.
func Path(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Path)
}
