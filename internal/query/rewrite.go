package query

import (
	"path/filepath"
	"strings"
)

// genericPatterns map vague queries to canonical search terms. Vague
// phrasing embeds almost nothing for similarity search to bite on, so the
// rewrite concatenates content words instead.
var genericPatterns = []struct {
	pattern string
	terms   []string
}{
	{"compare both", []string{"comparison", "differences", "similarities", "key points"}},
	{"compare the documents", []string{"comparison", "differences", "similarities", "key points"}},
	{"summarize both", []string{"summary", "overview", "key points", "main topics"}},
	{"summarise both", []string{"summary", "overview", "key points", "main topics"}},
	{"short notes", []string{"key points", "main topics", "important details", "summary"}},
	{"what is in the document", []string{"document contents", "main topics", "key information", "overview"}},
	{"what are the documents about", []string{"document contents", "main topics", "key information", "overview"}},
	{"what do the documents say", []string{"document contents", "main topics", "key information"}},
	{"tell me about the document", []string{"document contents", "main topics", "overview"}},
}

// RewriteForSearch expands a generic query with canonical terms plus
// alphabetic tokens from the session's filenames. The rewritten form is
// for retrieval only; the LLM still sees the user's own words. Returns
// the query unchanged when no pattern applies.
func RewriteForSearch(queryText string, filenames []string) (string, bool) {
	padded := " " + normalizeQuery(queryText) + " "
	for _, gp := range genericPatterns {
		if !strings.Contains(padded, " "+gp.pattern+" ") {
			continue
		}
		parts := make([]string, 0, 2+len(gp.terms))
		parts = append(parts, queryText)
		parts = append(parts, gp.terms...)
		parts = append(parts, FilenameTokens(filenames)...)
		return strings.Join(parts, " "), true
	}
	return queryText, false
}

// FilenameTokens extracts lowercase alphabetic tokens longer than three
// characters from filenames, extension stripped, deduplicated in
// first-seen order. Retrieval fallbacks use the same tokens.
func FilenameTokens(filenames []string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, name := range filenames {
		base := strings.TrimSuffix(name, filepath.Ext(name))
		for _, token := range strings.FieldsFunc(strings.ToLower(base), func(r rune) bool {
			return r < 'a' || r > 'z'
		}) {
			if len(token) <= 3 || seen[token] {
				continue
			}
			seen[token] = true
			out = append(out, token)
		}
	}
	return out
}

// followUpWords are single-word discourse markers; any whole-word hit
// marks the query as a follow-up.
var followUpWords = map[string]bool{
	"it": true, "this": true, "that": true, "they": true, "them": true,
	"those": true, "these": true, "and": true, "also": true, "too": true,
}

// followUpPhrases are multi-word markers matched as word sequences.
var followUpPhrases = []string{"what about", "how about", "as well"}

const followUpMaxWords = 5

// IsFollowUp reports whether the query depends on the previous turn:
// five or fewer words, or any follow-up marker.
func IsFollowUp(queryText string) bool {
	normalized := normalizeQuery(queryText)
	words := strings.Fields(normalized)
	if len(words) == 0 {
		return false
	}
	if len(words) <= followUpMaxWords {
		return true
	}
	for _, w := range words {
		if followUpWords[w] {
			return true
		}
	}
	padded := " " + normalized + " "
	for _, phrase := range followUpPhrases {
		if strings.Contains(padded, " "+phrase+" ") {
			return true
		}
	}
	return false
}

// PrefixWithPrevious joins the previous user turn onto a follow-up so
// classification and retrieval see the full intent. No previous turn
// leaves the query as is.
func PrefixWithPrevious(queryText, previous string) string {
	previous = strings.TrimSpace(previous)
	if previous == "" {
		return queryText
	}
	return previous + " " + strings.TrimSpace(queryText)
}
