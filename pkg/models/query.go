package models

// Query is the raw user input plus session identity. Immutable once created.
type Query struct {
	Text      string `json:"text"`
	UserID    string `json:"user_id"`
	SessionID string `json:"session_id"`
}

// YearRange is an inclusive fiscal-year span.
type YearRange struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

// QueryFilters carries the metadata predicates extracted from a query or
// supplied by the caller. Zero values mean "no filter"; pointer fields
// distinguish "unset" from an explicit false.
type QueryFilters struct {
	Company                string     `json:"company,omitempty"`
	Companies              []string   `json:"companies,omitempty"`
	Year                   int        `json:"year,omitempty"`
	YearRange              *YearRange `json:"year_range,omitempty"`
	DocumentType           string     `json:"document_type,omitempty"`
	DocumentCategory       string     `json:"document_category,omitempty"`
	FiscalQuarter          int        `json:"fiscal_quarter,omitempty"`
	Sector                 string     `json:"sector,omitempty"`
	Sectors                []string   `json:"sectors,omitempty"`
	Industry               string     `json:"industry,omitempty"`
	PeriodType             string     `json:"period_type,omitempty"`
	ReportingStandard      string     `json:"reporting_standard,omitempty"`
	Country                string     `json:"country,omitempty"`
	Exchange               string     `json:"exchange,omitempty"`
	ChunkType              string     `json:"chunk_type,omitempty"`
	HasFinancialStatements *bool      `json:"has_financial_statements,omitempty"`
	HasMDA                 *bool      `json:"has_mda,omitempty"`
	HasRiskFactors         *bool      `json:"has_risk_factors,omitempty"`
	HasTable               *bool      `json:"has_table,omitempty"`
}

// ProcessedQuery is the analysis result for a single (non-decomposed) query.
type ProcessedQuery struct {
	QueryText      string       `json:"query_text"`
	AugmentedQuery string       `json:"augmented_query"`
	Embedding      []float32    `json:"embedding,omitempty"`
	Companies      []string     `json:"companies"`
	Years          []int        `json:"years,omitempty"`
	YearRange      *YearRange   `json:"year_range,omitempty"`
	QueryType      string       `json:"query_type"`
	Filters        QueryFilters `json:"filters"`
}

// SubQuery is one decomposed facet of a compound query. Created only by the
// decomposer.
type SubQuery struct {
	Text           string     `json:"sub_query"`
	Intent         string     `json:"intent"`
	Companies      []string   `json:"companies"`
	Years          []int      `json:"years,omitempty"`
	YearRange      *YearRange `json:"year_range,omitempty"`
	Metrics        []string   `json:"metrics,omitempty"`
	Priority       int        `json:"priority"`
	AugmentedQuery string     `json:"augmented_query,omitempty"`
}
