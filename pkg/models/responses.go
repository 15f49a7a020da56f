package models

// The types below mirror the fixed result shapes the language-model
// capability is asked to produce. Extraction failures never surface to the
// caller; each consumer degrades to a heuristic fallback.

// ExtractionResult is the structured output of query entity extraction.
type ExtractionResult struct {
	Companies              []string   `json:"companies"`
	Year                   int        `json:"year,omitempty"`
	YearRange              *YearRange `json:"year_range,omitempty"`
	QueryType              string     `json:"query_type,omitempty"`
	DocumentType           string     `json:"document_type,omitempty"`
	DocumentCategory       string     `json:"document_category,omitempty"`
	FiscalQuarter          int        `json:"fiscal_quarter,omitempty"`
	Sector                 string     `json:"sector,omitempty"`
	PeriodType             string     `json:"period_type,omitempty"`
	ReportingStandard      string     `json:"reporting_standard,omitempty"`
	Exchange               string     `json:"exchange,omitempty"`
	HasFinancialStatements *bool      `json:"has_financial_statements,omitempty"`
	HasMDA                 *bool      `json:"has_mda,omitempty"`
	HasRiskFactors         *bool      `json:"has_risk_factors,omitempty"`
	ChunkType              string     `json:"chunk_type,omitempty"`
	NeedsYearExpansion     *bool      `json:"needs_year_expansion,omitempty"`
	AugmentedQuery         string     `json:"augmented_query"`
	Keywords               []string   `json:"keywords,omitempty"`
	Reasoning              string     `json:"reasoning,omitempty"`
}

// DecompositionResult is the structured output of the compound-query
// detector.
type DecompositionResult struct {
	NeedsDecomposition bool       `json:"needs_decomposition"`
	SubQueries         []SubQuery `json:"sub_queries"`
	Reasoning          string     `json:"reasoning,omitempty"`
}

// ValidationResult is the sufficiency judgment for retrieved evidence.
type ValidationResult struct {
	Sufficient bool     `json:"sufficient"`
	Gaps       []string `json:"gaps"`
}

// RefinementResult is a rewritten query for a retry attempt.
type RefinementResult struct {
	RefinedQuery       string   `json:"refined_query"`
	AdditionalKeywords []string `json:"additional_keywords,omitempty"`
}

// AnalysisResult holds the findings extracted from the evidence set. Metric
// may be empty when no evidence was available.
type AnalysisResult struct {
	Metric   string `json:"metric,omitempty"`
	Analysis string `json:"analysis"`
}

// AnalysisValidation flags analysis gaps without blocking the pipeline.
type AnalysisValidation struct {
	Valid    bool     `json:"valid"`
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}
