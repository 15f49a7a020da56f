package keyword

// stopWords is a reduced stopword set for filings; words that carry
// financial meaning are intentionally absent.
var stopWords = []string{
	"the", "a", "an", "and", "or", "but", "in", "on", "at", "to", "for",
	"of", "with", "by", "from", "as", "is", "was", "are", "were", "be",
	"been", "being", "have", "has", "had", "do", "does", "did", "will",
	"would", "should", "could", "may", "might", "must", "can", "this",
	"that", "these", "those", "it", "its", "they", "them", "their",
	"we", "our", "us", "you", "your", "he", "she", "his", "her",
}

// financialPhrases are multi-word terms kept atomic during tokenization.
var financialPhrases = []string{
	"operating income", "net income", "gross profit", "revenue growth",
	"cash flow", "operating cash flow", "free cash flow", "cash flow from operations",
	"total revenue", "net revenue", "gross revenue", "revenue recognition",
	"earnings per share", "diluted eps", "basic eps",
	"return on equity", "return on assets", "return on investment",
	"ebitda", "adjusted ebitda", "non-gaap",
	"cost of revenue", "cost of goods sold", "operating expenses",
	"research and development", "sales and marketing", "general and administrative",
	"total assets", "total liabilities", "shareholders equity", "stockholders equity",
	"working capital", "current assets", "current liabilities",
	"debt to equity", "debt ratio", "leverage ratio",
	"year over year", "quarter over quarter", "sequential growth",
	"fiscal year", "annual report", "quarterly report",
	"amazon web services", "aws", "azure", "google cloud",
	"segment revenue", "geographic revenue", "product revenue", "service revenue",
}

var financialAbbreviations = []string{
	"gaap", "ifrs", "eps", "ebitda", "roi", "roe", "roa", "pe", "p/e",
	"aws", "azure", "gcp", "ai", "ml", "iot", "saas", "paas", "iaas",
}

// financialMetrics are single words that survive stopword removal and get
// a relevance boost.
var financialMetrics = []string{
	"revenue", "income", "profit", "loss", "earnings", "expenses", "costs",
	"assets", "liabilities", "equity", "debt", "cash", "capital",
	"margin", "ratio", "growth", "decline", "increase", "decrease",
	"million", "billion", "trillion", "percent", "percentage",
}
