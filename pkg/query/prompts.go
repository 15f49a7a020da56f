package query

import "fmt"

// extractionSystemPrompt primes the model for entity extraction and
// keyword augmentation over financial filings.
const extractionSystemPrompt = `You are an expert financial query processor for analyzing financial reports (10-K filings, annual reports).

Your role is to:
1. Extract entities (companies, years, year ranges) from queries
2. Extract metadata filters (document type, sector, quarter, etc.) from queries
3. Augment queries with financial terminology for better retrieval
4. Normalize company names to standard format

Available Companies (use exact names):
- alphabet (for Google, Alphabet, Google Cloud)
- amazon (for Amazon, AWS, Amazon Web Services)
- apple (for Apple, Apple Inc.)
- meta (for Meta, Facebook, Meta Platforms)
- microsoft (for Microsoft, MSFT, Azure)
- nvidia (for NVIDIA, Nvidia)
- tesla (for Tesla, TSLA)

Year Range Detection:
- "from 2018 to 2022" -> year_range: [2018, 2022]
- "2018-2022" -> year_range: [2018, 2022]
- "2018, 2019, 2020" -> year_range: [2018, 2020]
- Single year "2017" -> year: 2017

Financial Domain Knowledge:
- Revenue synonyms: revenue, net revenue, total revenue, sales, net sales, top line
- Income synonyms: income, net income, earnings, net earnings, profit, bottom line
- Operating metrics: operating income, operating profit, EBIT, EBITDA
- Always add relevant financial synonyms and terminology as keywords

Always output valid JSON only.`

// extractionPrompt asks for complete processing of one query.
func extractionPrompt(query string) string {
	return fmt.Sprintf(`Process this financial query completely:

Query: %q

1. Entity Extraction:
   - Extract ALL companies mentioned (normalize to: alphabet, amazon, apple, meta, microsoft, nvidia, tesla)
   - Extract year if a single year is mentioned, year_range [min, max] if a range or multiple years are mentioned

2. Metadata Extraction (omit any field that is not clearly implied by the query):
   - document_type: "10-K" | "10-Q" | "8-K" | "Annual Report" | "Quarterly Report" | "Earnings Release" | "Proxy Statement" | "Other"
   - document_category: "sec_filing" | "earnings_release" | "annual_report" | "quarterly_report" | "proxy_statement" | "other"
   - fiscal_quarter: 1 | 2 | 3 | 4 (from "Q1", "first quarter", ...)
   - sector: "Technology" | "Healthcare" | "Financial Services" | "Consumer Discretionary" | "Energy" | "Industrials" | "Communication Services" | "Other"
   - period_type: "annual" | "quarterly" | "monthly"
   - reporting_standard: "GAAP" | "IFRS" | "Other"
   - exchange: "NYSE" | "NASDAQ" | "LSE" | "TSE" | "HKEX" | "Other"
   - has_financial_statements: true if the query concerns revenue, income, earnings, balance sheet or other financial data
   - has_mda: true if the query concerns the MD&A or management discussion section
   - has_risk_factors: true if the query concerns risks or risk factors
   - chunk_type: "table" for specific metric values, "paragraph" for explanations, "heading" for section lookups
   - needs_year_expansion: true for trends, comparisons over time, growth, year-over-year or multi-year analysis;
     false for a specific value in a specific year; omit when no year context exists

3. Query Augmentation:
   - augmented_query: space-separated keywords ONLY, no stopwords, no sentences
   - Add financial synonyms, expand abbreviations (AWS -> amazon aws, Azure -> microsoft azure)
   - For metric value queries add table keywords: "table", "breakdown", "segment", "category"

4. Also output:
   - query_type: "numerical_lookup" | "comparison" | "trend" | "explanation" | "general"
   - keywords: list of important keywords
   - reasoning: brief explanation

Example:
Query: "What was NVIDIA's revenue in 2017?"
Output:
{
    "companies": ["nvidia"],
    "year": 2017,
    "query_type": "numerical_lookup",
    "has_financial_statements": true,
    "chunk_type": "table",
    "needs_year_expansion": false,
    "augmented_query": "nvidia revenue 2017 total net sales earnings financial fiscal table breakdown",
    "keywords": ["revenue", "net sales", "earnings", "table", "breakdown"],
    "reasoning": "Extracted NVIDIA and 2017. Specific value in a specific year, no expansion."
}

Output ONLY valid JSON:`, query)
}

// decompositionPrompt asks whether the query splits into independent
// sub-queries. Comparisons are a single intent and must not be split.
func decompositionPrompt(query string) string {
	return fmt.Sprintf(`Analyze this query and determine if it needs decomposition into sub-queries.

Query: %q

A query needs decomposition if it:
- Contains multiple questions (separated by periods, question marks, or "and", "also")
- Asks for multiple unrelated metrics in one query
- Requires information from different contexts that should be retrieved separately
- Has multiple independent parts that can be answered separately

If decomposition is needed, break into focused sub-queries.
Each sub-query should be independently answerable and focused on one aspect.

Example 1:
Query: "What was Apple's revenue in 2022? Also show their net income and compare to Microsoft."
Sub-queries:
1. "Apple revenue 2022" (intent: revenue_lookup, companies: ["apple"], years: [2022], metrics: ["revenue"])
2. "Apple net income 2022" (intent: income_lookup, companies: ["apple"], years: [2022], metrics: ["net_income"])
3. "Microsoft revenue 2022" (intent: revenue_lookup, companies: ["microsoft"], years: [2022], metrics: ["revenue"])

Example 2:
Query: "Compare Alphabet and Apple revenue growth from 2018 to 2022"
This is a SINGLE query (comparison is one intent) - does NOT need decomposition.

Output JSON with:
- needs_decomposition: boolean
- sub_queries: list of objects (each with sub_query, intent, companies, years, metrics, priority)
- reasoning: brief explanation

If needs_decomposition is false, sub_queries must be an empty list.
Output ONLY valid JSON:`, query)
}

// refinementPrompt asks for a rewritten retrieval query covering the
// identified gaps.
func refinementPrompt(query string, gaps, companies []string, years []int) string {
	return fmt.Sprintf(`The previous retrieval was insufficient. Refine the query to get better results.

Original query: %q
Gaps identified: %s
Retrieved companies: %s
Retrieved years: %s

Suggest a refined retrieval query (space-separated keywords) that will surface the missing information.

Output ONLY valid JSON:
{
    "refined_query": "refined keyword query",
    "additional_keywords": ["keyword1", "keyword2"]
}`, query, joinOrNone(gaps), joinOrNone(companies), joinInts(years))
}
