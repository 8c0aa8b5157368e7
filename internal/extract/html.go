package extract

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// nonContentSelectors lists elements stripped before extracting body text.
const nonContentSelectors = "script, style, noscript, nav, header, footer, aside, iframe"

// contentSelectors are tried in order before falling back to the whole body.
// Finance and news sites wrap the substance in these containers while the
// rest of the page is chrome.
var contentSelectors = []string{
	"article",
	"main",
	"[role='main']",
	".article-body",
	".story-body",
	".post-content",
	".entry-content",
	".market-data",
	".financial-content",
	".news-content",
	"#content",
	".content",
}

// ExtractHTML strips markup down to readable text and the page title.
func ExtractHTML(body []byte) (text, title string, err error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return "", "", fmt.Errorf("parse html: %w", err)
	}

	title = strings.TrimSpace(doc.Find("title").First().Text())
	if title == "" {
		if ogTitle, exists := doc.Find("meta[property='og:title']").Attr("content"); exists {
			title = strings.TrimSpace(ogTitle)
		}
	}

	for _, sel := range contentSelectors {
		container := doc.Find(sel).First()
		if container.Length() == 0 {
			continue
		}
		container.Find(nonContentSelectors).Remove()
		if text := normalizeWhitespace(container.Text()); len(text) > 100 {
			return text, title, nil
		}
	}

	body2 := doc.Find("body").First()
	if body2.Length() > 0 {
		body2.Find(nonContentSelectors).Remove()
		return normalizeWhitespace(body2.Text()), title, nil
	}
	return normalizeWhitespace(doc.Text()), title, nil
}

// normalizeWhitespace collapses intra-line whitespace runs and blank-line
// runs while keeping paragraph breaks.
func normalizeWhitespace(s string) string {
	var out []string
	blank := false
	for _, line := range strings.Split(s, "\n") {
		line = strings.Join(strings.Fields(line), " ")
		if line == "" {
			blank = true
			continue
		}
		if blank && len(out) > 0 {
			out = append(out, "")
		}
		blank = false
		out = append(out, line)
	}
	return strings.Join(out, "\n")
}
