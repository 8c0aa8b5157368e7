package query

import (
	"regexp"
	"strings"
	"unicode"

	ahocorasick "github.com/cloudflare/ahocorasick"
)

// yearSpanPattern gates multi_year_calculation: calculation keywords on
// their own do not imply a multi-period request.
var yearSpanPattern = regexp.MustCompile(`\b\d+\s*(?:years?|yrs?)\b`)

// Classifier routes queries to categories with one Aho-Corasick automaton
// per category, checked in priority order. Keywords are padded with
// spaces and matched against padded normalized text, which turns the
// automaton's substring semantics into whole-word matching.
type Classifier struct {
	matchers map[Category]*ahocorasick.Matcher
}

// NewClassifier builds the automata once; the keyword sets are fixed.
func NewClassifier() *Classifier {
	matchers := make(map[Category]*ahocorasick.Matcher, len(categoryKeywords))
	for cat, keywords := range categoryKeywords {
		padded := make([]string, 0, len(keywords))
		for _, kw := range keywords {
			normalized := normalizeQuery(kw)
			if normalized == "" {
				continue
			}
			padded = append(padded, " "+normalized+" ")
		}
		matchers[cat] = ahocorasick.NewStringMatcher(padded)
	}
	return &Classifier{matchers: matchers}
}

// Classify returns the first category in priority order with a hit.
// multi_year_calculation fires on calculation keywords plus a year span;
// queries that match nothing are general.
func (c *Classifier) Classify(queryText string) Category {
	normalized := normalizeQuery(queryText)
	padded := " " + normalized + " "
	hasYearSpan := yearSpanPattern.MatchString(normalized)

	for _, cat := range categoryOrder {
		if cat == CategoryMultiYearCalc {
			if hasYearSpan && c.hits(CategoryCalculation, padded) {
				return CategoryMultiYearCalc
			}
			continue
		}
		if c.hits(cat, padded) {
			return cat
		}
	}
	return CategoryGeneral
}

func (c *Classifier) hits(cat Category, padded string) bool {
	m := c.matchers[cat]
	if m == nil {
		return false
	}
	return len(m.Match([]byte(padded))) > 0
}

// normalizeQuery lowercases the text and collapses every run outside
// letters and digits to a single space, so punctuation never defeats a
// keyword.
func normalizeQuery(text string) string {
	var b strings.Builder
	b.Grow(len(text))

	inGap := false
	for _, r := range strings.ToLower(text) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if inGap && b.Len() > 0 {
				b.WriteByte(' ')
			}
			inGap = false
			b.WriteRune(r)
			continue
		}
		inGap = true
	}
	return b.String()
}
