package links

import (
	"net/url"
	"path"
	"regexp"
	"strings"

	ahocorasick "github.com/cloudflare/ahocorasick"
)

type linkKind int

const (
	kindIrrelevant linkKind = iota
	kindPage
	kindDocument
)

// documentExtensions are artifact types worth downloading.
var documentExtensions = map[string]bool{
	".pdf": true, ".doc": true, ".docx": true,
	".xlsx": true, ".xls": true,
	".ppt": true, ".pptx": true,
	".csv": true, ".json": true,
}

// documentPathHints mark URLs that serve documents without an extension.
var documentPathHints = []string{"/pdf/", "/document/", "/documents/", "/file/", "/files/", "/download/", "/downloads/"}

// financialPhrases flag filing-style artifacts regardless of extension.
var financialPhrases = []string{
	"annual-report", "annual_report", "annualreport",
	"quarterly-report", "quarterly_report",
	"10-k", "10k", "10-q", "8-k",
	"proxy-statement", "prospectus", "filing",
	"financial-statement", "earnings-release",
}

// excludedPagePatterns keep the crawler out of auth flows and non-content
// sections.
var excludedPagePatterns = []string{
	"login", "logout", "signin", "sign-in", "signup", "sign-up", "register",
	"admin", "private", "account", "password", "cart", "checkout",
	"test", "dev", "staging",
}

// relevanceKeywords let a page through even when an exclusion pattern fires.
var relevanceKeywords = []string{
	"report", "document", "news", "article", "publication", "research",
	"investor", "press", "about", "filing", "statement", "disclosure",
}

// One automaton per phrase list; each URL is scanned in a single pass.
var (
	financialMatcher = ahocorasick.NewStringMatcher(financialPhrases)
	excludedMatcher  = ahocorasick.NewStringMatcher(excludedPagePatterns)
	relevanceMatcher = ahocorasick.NewStringMatcher(relevanceKeywords)
)

var apiVersionPattern = regexp.MustCompile(`/v[1-3]/`)

// apiParamKeys mark machine-endpoint query strings.
var apiParamKeys = []string{"api_key", "apikey", "token", "auth", "callback"}

func classify(u *url.URL, base *baseContext) linkKind {
	if isDocument(u) {
		return kindDocument
	}
	if isSameDomainPage(u, base) {
		return kindPage
	}
	return kindIrrelevant
}

func isDocument(u *url.URL) bool {
	if isAPIShaped(u) {
		return false
	}
	lowerPath := strings.ToLower(u.Path)
	if documentExtensions[path.Ext(lowerPath)] {
		return true
	}
	for _, hint := range documentPathHints {
		if strings.Contains(lowerPath, hint) {
			return true
		}
	}
	lowerURL := strings.ToLower(u.String())
	return len(financialMatcher.Match([]byte(lowerURL))) > 0
}

// isAPIShaped filters machine endpoints that look like documents only
// because they end in .json.
func isAPIShaped(u *url.URL) bool {
	lowerPath := strings.ToLower(u.Path)
	if strings.Contains(lowerPath, "/api/") || apiVersionPattern.MatchString(lowerPath) {
		return true
	}
	if strings.Contains(lowerPath, "customresponse.json") {
		return true
	}
	query := u.Query()
	for _, key := range apiParamKeys {
		if query.Has(key) {
			return true
		}
	}
	return false
}

func isSameDomainPage(u *url.URL, base *baseContext) bool {
	if canonicalHost(u.Host) != base.host {
		return false
	}

	lowerURL := []byte(strings.ToLower(u.String()))
	if len(excludedMatcher.Match(lowerURL)) == 0 {
		return true
	}
	// An excluded pattern fired; a relevance keyword can still let the
	// page through.
	return len(relevanceMatcher.Match(lowerURL)) > 0
}
