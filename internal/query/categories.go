// Package query classifies user queries, rewrites them for retrieval and
// answers arithmetic follow-ups from cached numbers without an LLM call.
package query

// Category is the intent class a query is routed under. The category
// selects the system prompt and the retrieval threshold profile.
type Category string

const (
	CategoryConciseResponse     Category = "concise_response"
	CategoryTechnicalDocument   Category = "technical_document"
	CategoryLegalDocument       Category = "legal_document"
	CategoryEducationalContent  Category = "educational_content"
	CategoryMarketCrashAnalysis Category = "market_crash_analysis"
	CategoryStockPrediction     Category = "stock_prediction"
	CategoryStockAnalysis       Category = "stock_analysis"
	CategoryMarketEducation     Category = "market_education"
	CategoryInvestmentGuidance  Category = "investment_guidance"
	CategoryMarketResearch      Category = "market_research"
	CategoryTechnicalAnalysis   Category = "technical_analysis"
	CategoryNewsAnalysis        Category = "news_analysis"
	CategoryMultiYearCalc       Category = "multi_year_calculation"
	CategoryCalculation         Category = "calculation"
	CategorySummary             Category = "summary"
	CategoryGeneral             Category = "general"
)

// categoryOrder is the match priority: the first category whose keywords
// hit wins. General is the default and has no keywords.
var categoryOrder = []Category{
	CategoryConciseResponse,
	CategoryTechnicalDocument,
	CategoryLegalDocument,
	CategoryEducationalContent,
	CategoryMarketCrashAnalysis,
	CategoryStockPrediction,
	CategoryStockAnalysis,
	CategoryMarketEducation,
	CategoryInvestmentGuidance,
	CategoryMarketResearch,
	CategoryTechnicalAnalysis,
	CategoryNewsAnalysis,
	CategoryMultiYearCalc,
	CategoryCalculation,
	CategorySummary,
}

// categoryKeywords drive classification. Matching is done on lowercased
// text with punctuation collapsed, against whole-word automata.
// multi_year_calculation shares the calculation keywords and additionally
// requires a year span in the query.
var categoryKeywords = map[Category][]string{
	CategoryConciseResponse: {
		"in one line", "one line answer", "one liner", "in short",
		"short answer", "briefly", "in brief", "concise", "one sentence",
		"in a word", "tldr", "tl dr",
	},
	CategoryTechnicalDocument: {
		"api", "sdk", "architecture", "technical specification", "schema",
		"protocol", "endpoint", "source code", "configuration",
		"deployment", "integration guide", "developer documentation",
	},
	CategoryLegalDocument: {
		"legal", "contract", "agreement", "clause", "liability",
		"terms and conditions", "compliance", "regulation", "statute",
		"jurisdiction", "indemnity", "arbitration", "confidentiality",
	},
	CategoryEducationalContent: {
		"explain like", "tutorial", "lesson", "teach me", "course",
		"study material", "syllabus", "curriculum", "exam", "homework",
		"explain the concept",
	},
	CategoryMarketCrashAnalysis: {
		"crash", "recession", "bear market", "market fall", "correction",
		"downturn", "collapse", "sell off", "selloff", "panic selling",
	},
	CategoryStockPrediction: {
		"predict", "forecast", "price target", "will the stock",
		"future price", "projection", "outlook", "where is the stock headed",
	},
	CategoryStockAnalysis: {
		"stock analysis", "share price", "valuation", "pe ratio",
		"earnings per share", "balance sheet", "fundamental analysis",
		"quarterly results", "revenue growth", "profit margin",
		"cash flow", "annual report",
	},
	CategoryMarketEducation: {
		"what is a stock", "what is a share", "how does the market",
		"basics of investing", "what is an etf", "what is a mutual fund",
		"how do dividends", "what is an ipo", "what is a bond",
	},
	CategoryInvestmentGuidance: {
		"should i invest", "invest in", "portfolio", "asset allocation",
		"diversify", "risk appetite", "sip", "retirement planning",
		"long term investment", "where to invest",
	},
	CategoryMarketResearch: {
		"market research", "industry report", "market size", "competitors",
		"market share", "sector overview", "industry trends",
		"competitive landscape",
	},
	CategoryTechnicalAnalysis: {
		"moving average", "rsi", "macd", "support and resistance",
		"candlestick", "chart pattern", "breakout", "trendline",
		"bollinger", "volume analysis", "fibonacci",
	},
	CategoryNewsAnalysis: {
		"news", "headline", "announcement", "press release",
		"latest update", "recent development", "what happened today",
	},
	CategoryCalculation: {
		"calculate", "compute", "how much", "total", "sum of", "salary",
		"tax", "deduction", "take home", "net pay", "gross", "percentage",
		"interest", "emi", "installment", "per month", "monthly",
	},
	CategorySummary: {
		"summarize", "summarise", "summary", "overview", "key points",
		"main points", "gist", "recap", "highlights", "key takeaways",
	},
}

// systemPrompts are the fixed instructions each category prepends.
var systemPrompts = map[Category]string{
	CategoryConciseResponse: "You are a precise assistant. Answer in a single short sentence " +
		"using only the provided document content. No preamble, no elaboration.",
	CategoryTechnicalDocument: "You are a technical documentation expert. Answer using the provided " +
		"documents, preserving exact names, versions, parameters and code identifiers. " +
		"Quote configuration values verbatim and say when the documents do not cover something.",
	CategoryLegalDocument: "You are a legal document analyst. Base every statement on the provided " +
		"documents, cite the relevant clause or section when possible, and never offer legal advice " +
		"beyond describing what the documents say.",
	CategoryEducationalContent: "You are a patient teacher. Explain the material from the provided " +
		"documents step by step in plain language, using short examples where they help.",
	CategoryMarketCrashAnalysis: "You are a financial analyst specializing in market downturns. Using the " +
		"provided documents, describe causes, historical parallels and documented impacts. Do not " +
		"speculate beyond the document content and do not give investment advice.",
	CategoryStockPrediction: "You are a financial analyst. The documents may contain projections or " +
		"estimates; report them with their stated assumptions and dates. Make clear that these are " +
		"the documents' projections, not advice or guarantees.",
	CategoryStockAnalysis: "You are an equity research assistant. Analyze the company fundamentals " +
		"present in the provided documents: revenue, margins, ratios and management commentary. " +
		"Use exact figures from the documents and name the reporting period.",
	CategoryMarketEducation: "You are a financial educator. Define terms and explain mechanisms in " +
		"beginner-friendly language, grounding examples in the provided documents when available.",
	CategoryInvestmentGuidance: "You are a financial information assistant. Summarize what the provided " +
		"documents say about the investment topic, including stated risks. State clearly that this " +
		"is information from the documents, not personalized financial advice.",
	CategoryMarketResearch: "You are a market research analyst. Extract market sizes, segments, " +
		"competitors and trends from the provided documents, attributing each figure to its source " +
		"document.",
	CategoryTechnicalAnalysis: "You are a technical analysis assistant. Describe the indicators, levels " +
		"and patterns discussed in the provided documents without issuing trade recommendations.",
	CategoryNewsAnalysis: "You are a news analyst. Summarize the events described in the provided " +
		"documents with their dates, parties involved and stated implications. Distinguish reported " +
		"facts from commentary.",
	CategoryMultiYearCalc: "You are a precise calculator. Work strictly from numbers in the provided " +
		"documents or conversation, show the arithmetic for each year or period, and present the " +
		"final multi-period total clearly.",
	CategoryCalculation: "You are a precise calculator. Use only numbers from the provided documents " +
		"or conversation, show your working, and state the final figure unambiguously with its unit " +
		"or currency symbol as given in the source.",
	CategorySummary: "You are a summarization assistant. Produce a faithful, well-organized summary " +
		"of the provided documents, leading with the most important points. Do not introduce " +
		"information that is not in the documents.",
	CategoryGeneral: "You are a helpful assistant answering questions about the user's documents. " +
		"Ground every answer in the provided document content and say plainly when the documents " +
		"do not contain the answer.",
}

// SystemPrompt returns the fixed prompt for the category, falling back to
// the general prompt for unknown values.
func SystemPrompt(c Category) string {
	if p, ok := systemPrompts[c]; ok {
		return p
	}
	return systemPrompts[CategoryGeneral]
}

// CalculationLike reports whether the category carries arithmetic intent.
// The retriever starts these at a stricter similarity threshold.
func CalculationLike(c Category) bool {
	return c == CategoryCalculation || c == CategoryMultiYearCalc
}
