package query_test

import (
	"testing"

	"github.com/HariharanV1992/CrawlChat-sub000/internal/query"
)

func TestClassifyAllCategories(t *testing.T) {
	t.Parallel()

	c := query.NewClassifier()

	cases := []struct {
		name  string
		query string
		want  query.Category
	}{
		{"concise", "In one line, what is the revenue?", query.CategoryConciseResponse},
		{"technical_document", "Explain the API endpoint configuration", query.CategoryTechnicalDocument},
		{"legal_document", "What does the contract say about liability?", query.CategoryLegalDocument},
		{"educational", "Teach me the concept from this course material", query.CategoryEducationalContent},
		{"market_crash", "Why did the market crash in 2008?", query.CategoryMarketCrashAnalysis},
		{"stock_prediction", "What is the price target for next quarter?", query.CategoryStockPrediction},
		{"stock_analysis", "Analyze the balance sheet and revenue growth", query.CategoryStockAnalysis},
		{"market_education", "What is a mutual fund?", query.CategoryMarketEducation},
		{"investment_guidance", "Should I invest in index funds for retirement?", query.CategoryInvestmentGuidance},
		{"market_research", "What is the market size and competitive landscape?", query.CategoryMarketResearch},
		{"technical_analysis", "Is the moving average showing a breakout?", query.CategoryTechnicalAnalysis},
		{"news_analysis", "Summarize the latest news announcement", query.CategoryNewsAnalysis},
		{"multi_year_calculation", "How much would I earn in 5 years?", query.CategoryMultiYearCalc},
		{"calculation", "Calculate my take home salary after tax", query.CategoryCalculation},
		{"summary", "Give me a summary of the key points", query.CategorySummary},
		{"general", "Hello there, can you help me understand something interesting?", query.CategoryGeneral},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := c.Classify(tc.query); got != tc.want {
				t.Errorf("Classify(%q) = %s, want %s", tc.query, got, tc.want)
			}
		})
	}
}

func TestClassifyPriorityOrder(t *testing.T) {
	t.Parallel()

	c := query.NewClassifier()

	// Crash analysis outranks stock prediction even when both hit.
	if got := c.Classify("Will the stock recover after the crash?"); got != query.CategoryMarketCrashAnalysis {
		t.Errorf("expected market_crash_analysis to win, got %s", got)
	}
	// News outranks summary.
	if got := c.Classify("Summarize the latest news announcement"); got != query.CategoryNewsAnalysis {
		t.Errorf("expected news_analysis to win over summary, got %s", got)
	}
	// A concise request beats every topical category.
	if got := c.Classify("In one line, what does the contract say?"); got != query.CategoryConciseResponse {
		t.Errorf("expected concise_response to win, got %s", got)
	}
}

func TestClassifyMultiYearNeedsBothSignals(t *testing.T) {
	t.Parallel()

	c := query.NewClassifier()

	// Calculation keywords without a year span stay plain calculation.
	if got := c.Classify("How much tax do I pay?"); got != query.CategoryCalculation {
		t.Errorf("expected calculation, got %s", got)
	}
	// A year span without calculation keywords is not a calculation at all.
	if got := c.Classify("What changed in 5 years?"); got != query.CategoryGeneral {
		t.Errorf("expected general, got %s", got)
	}
}

func TestClassifyWholeWordsOnly(t *testing.T) {
	t.Parallel()

	c := query.NewClassifier()

	// "newsletter" must not trigger the "news" keyword.
	if got := c.Classify("Describe their newsletter subscription funnel in detail please"); got == query.CategoryNewsAnalysis {
		t.Error("substring match leaked: newsletter classified as news_analysis")
	}
	// "rapid" must not trigger "api".
	if got := c.Classify("Describe the rapid growth the documents mention overall"); got == query.CategoryTechnicalDocument {
		t.Error("substring match leaked: rapid classified as technical_document")
	}
}

func TestClassifyPunctuationInsensitive(t *testing.T) {
	t.Parallel()

	c := query.NewClassifier()
	if got := c.Classify("TL;DR: the quarterly filing, please?"); got != query.CategoryConciseResponse {
		t.Errorf("expected concise_response for tl;dr, got %s", got)
	}
}
