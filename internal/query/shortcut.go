package query

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

var (
	yearsShortcutPattern = regexp.MustCompile(`\b([0-9]{1,3})\s*(?:years?|yrs?)\b`)
	monthlyPattern       = regexp.MustCompile(`\b(?:per month|monthly|a month|each month|every month)\b`)
)

// TryShortcut answers a multi-year or monthly arithmetic follow-up from a
// cached base figure, skipping retrieval and the LLM entirely. It returns
// false when the query carries no period or no base figure is cached.
func (c *NumericContextCache) TryShortcut(ctx context.Context, sessionID, queryText string) (string, bool) {
	normalized := normalizeQuery(queryText)

	yearsMatch := yearsShortcutPattern.FindStringSubmatch(normalized)
	monthly := monthlyPattern.MatchString(normalized)
	if yearsMatch == nil && !monthly {
		return "", false
	}

	label, baseKey := "take-home salary", KeyTakeHomeSalary
	raw, ok := c.Get(ctx, sessionID, baseKey)
	if !ok {
		label, baseKey = "gross salary", KeyGrossSalary
		raw, ok = c.Get(ctx, sessionID, baseKey)
	}
	if !ok {
		return "", false
	}
	base, err := strconv.ParseFloat(raw, 64)
	if err != nil || base <= 0 {
		return "", false
	}
	currency, _ := c.Get(ctx, sessionID, baseKey+currencySuffix)

	if yearsMatch != nil {
		years, err := strconv.Atoi(yearsMatch[1])
		if err != nil || years <= 0 {
			return "", false
		}
		total := base * float64(years)
		return fmt.Sprintf("The %s for %d years would be %s (%s × %d).",
			label, years, formatAmount(total, currency), formatAmount(base, currency), years), true
	}

	perMonth := base / 12
	return fmt.Sprintf("The %s per month would be %s (%s ÷ 12).",
		label, formatAmount(perMonth, currency), formatAmount(base, currency)), true
}

// formatAmount renders a figure with thousands separators and the cached
// currency symbol. Whole amounts print without decimals.
func formatAmount(value float64, currency string) string {
	var digits string
	if value == math.Trunc(value) {
		digits = strconv.FormatInt(int64(value), 10)
	} else {
		digits = strconv.FormatFloat(value, 'f', 2, 64)
	}

	intPart, fracPart, _ := strings.Cut(digits, ".")
	grouped := groupThousands(intPart)
	if fracPart != "" {
		grouped += "." + fracPart
	}
	return currency + grouped
}

func groupThousands(digits string) string {
	if len(digits) <= 3 {
		return digits
	}
	var b strings.Builder
	lead := len(digits) % 3
	if lead > 0 {
		b.WriteString(digits[:lead])
	}
	for i := lead; i < len(digits); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}
