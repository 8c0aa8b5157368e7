// Package links parses HTML and splits outbound URLs into same-domain pages
// worth crawling and document artifacts worth downloading.
package links

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/HariharanV1992/CrawlChat-sub000/internal/logger"
)

// Links is the classified output for one page. Pages keep insertion order;
// Documents are sorted PDFs first.
type Links struct {
	Pages     []string
	Documents []string
}

// Extractor scans anchors, onclick handlers, data-url attributes, and script
// bodies for crawlable URLs.
type Extractor struct {
	log logger.Interface
}

func NewExtractor(log logger.Interface) *Extractor {
	return &Extractor{log: log}
}

var (
	// quoted paths ending in a document extension, as they appear inside
	// onclick handlers and script bodies
	docPathPattern = regexp.MustCompile(`(?i)['"(]\s*([^'"()\s<>]+\.(?:pdf|docx?|xlsx?|pptx?|csv|json))\s*['")]`)
	// absolute URLs anywhere in script text
	absURLPattern = regexp.MustCompile(`(?i)https?://[^\s'"<>()]+`)
)

// Extract classifies every URL found in body against base. The result is
// deterministic for identical input.
func (e *Extractor) Extract(body string, baseURL string) (Links, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return Links{}, fmt.Errorf("parse html: %w", err)
	}

	base, err := parseBase(baseURL)
	if err != nil {
		return Links{}, err
	}

	collector := newCollector(base)

	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		if href, ok := s.Attr("href"); ok {
			collector.add(href, false)
		}
	})

	doc.Find("[onclick]").Each(func(_ int, s *goquery.Selection) {
		if handler, ok := s.Attr("onclick"); ok {
			for _, candidate := range scanEmbedded(handler) {
				collector.add(candidate, true)
			}
		}
	})

	doc.Find("[data-url]").Each(func(_ int, s *goquery.Selection) {
		if dataURL, ok := s.Attr("data-url"); ok {
			collector.add(dataURL, false)
		}
	})

	doc.Find("script").Each(func(_ int, s *goquery.Selection) {
		for _, candidate := range scanEmbedded(s.Text()) {
			collector.add(candidate, true)
		}
	})

	result := collector.result()
	e.log.Debug("extracted links",
		"base", baseURL,
		"pages", len(result.Pages),
		"documents", len(result.Documents),
	)
	return result, nil
}

// scanEmbedded pulls URL-like strings out of JS text. Only document-shaped
// candidates are worth the noise of script scraping.
func scanEmbedded(text string) []string {
	var out []string
	for _, match := range docPathPattern.FindAllStringSubmatch(text, -1) {
		out = append(out, match[1])
	}
	for _, match := range absURLPattern.FindAllString(text, -1) {
		out = append(out, match)
	}
	return out
}

// collector accumulates classified URLs with in-order dedup.
type collector struct {
	base      *baseContext
	seenPage  map[string]bool
	seenDoc   map[string]bool
	pages     []string
	documents []string
}

func newCollector(base *baseContext) *collector {
	return &collector{
		base:     base,
		seenPage: make(map[string]bool),
		seenDoc:  make(map[string]bool),
	}
}

// add normalizes and classifies one candidate. documentOnly marks candidates
// harvested from scripts, which never contribute page links.
func (c *collector) add(raw string, documentOnly bool) {
	normalized, ok := normalize(raw, c.base)
	if !ok {
		return
	}

	switch classify(normalized, c.base) {
	case kindDocument:
		if !c.seenDoc[normalized.String()] {
			c.seenDoc[normalized.String()] = true
			c.documents = append(c.documents, normalized.String())
		}
	case kindPage:
		if documentOnly {
			return
		}
		if !c.seenPage[normalized.String()] {
			c.seenPage[normalized.String()] = true
			c.pages = append(c.pages, normalized.String())
		}
	case kindIrrelevant:
	}
}

func (c *collector) result() Links {
	return Links{
		Pages:     c.pages,
		Documents: sortPDFsFirst(c.documents),
	}
}

// sortPDFsFirst stably partitions documents so PDFs come before everything
// else.
func sortPDFsFirst(docs []string) []string {
	if len(docs) < 2 {
		return docs
	}
	sorted := make([]string, 0, len(docs))
	for _, d := range docs {
		if strings.HasSuffix(strings.ToLower(stripQuery(d)), ".pdf") {
			sorted = append(sorted, d)
		}
	}
	for _, d := range docs {
		if !strings.HasSuffix(strings.ToLower(stripQuery(d)), ".pdf") {
			sorted = append(sorted, d)
		}
	}
	return sorted
}

func stripQuery(u string) string {
	if i := strings.IndexByte(u, '?'); i >= 0 {
		return u[:i]
	}
	return u
}
