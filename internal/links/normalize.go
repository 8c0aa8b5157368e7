package links

import (
	"fmt"
	"net/url"
	"strings"
)

// baseContext carries the parsed seed URL parts classification needs.
type baseContext struct {
	url  *url.URL
	host string
}

func parseBase(baseURL string) (*baseContext, error) {
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if parsed.Host == "" {
		return nil, fmt.Errorf("base url %q has no host", baseURL)
	}
	return &baseContext{url: parsed, host: canonicalHost(parsed.Host)}, nil
}

// canonicalHost lowercases and drops a leading www so both spellings of a
// domain compare equal.
func canonicalHost(host string) string {
	host = strings.ToLower(host)
	return strings.TrimPrefix(host, "www.")
}

// normalize resolves raw against the base and cleans it up: ampersand
// re-encoding collapsed, fragments dropped, JS-polluted query parameters
// stripped, trailing slash removed from file-like paths.
func normalize(raw string, base *baseContext) (*url.URL, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "#" {
		return nil, false
	}
	lower := strings.ToLower(raw)
	if strings.HasPrefix(lower, "javascript:") ||
		strings.HasPrefix(lower, "mailto:") ||
		strings.HasPrefix(lower, "tel:") ||
		strings.HasPrefix(lower, "data:") ||
		strings.HasPrefix(raw, "#") {
		return nil, false
	}

	raw = collapseAmpersands(raw)

	parsed, err := url.Parse(raw)
	if err != nil {
		return nil, false
	}
	if !parsed.IsAbs() {
		parsed = base.url.ResolveReference(parsed)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, false
	}

	parsed.Fragment = ""
	stripPollutedParams(parsed)
	trimFileTrailingSlash(parsed)
	return parsed, true
}

// collapseAmpersands undoes repeated entity encoding (&amp;amp; → &).
func collapseAmpersands(raw string) string {
	for strings.Contains(raw, "&amp;") {
		raw = strings.ReplaceAll(raw, "&amp;", "&")
	}
	return raw
}

// stripPollutedParams drops query parameters whose values carry JS artifacts
// picked up from onclick scraping.
func stripPollutedParams(u *url.URL) {
	if u.RawQuery == "" {
		return
	}
	query := u.Query()
	changed := false
	for key, values := range query {
		for _, v := range values {
			if strings.ContainsAny(v, "(){}'\"") || strings.Contains(strings.ToLower(v), "javascript") {
				query.Del(key)
				changed = true
				break
			}
		}
	}
	if changed {
		u.RawQuery = query.Encode()
	}
}

// trimFileTrailingSlash removes a trailing slash when the last path segment
// looks like a file.
func trimFileTrailingSlash(u *url.URL) {
	path := u.Path
	if len(path) < 2 || !strings.HasSuffix(path, "/") {
		return
	}
	trimmed := strings.TrimSuffix(path, "/")
	last := trimmed[strings.LastIndexByte(trimmed, '/')+1:]
	if strings.ContainsRune(last, '.') {
		u.Path = trimmed
	}
}
