// Package query turns raw user questions into retrieval-ready queries:
// entity extraction, keyword augmentation, decomposition and refinement.
package query

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/finsight-ai/ragengine/pkg/config"
	"github.com/finsight-ai/ragengine/pkg/embedding"
	"github.com/finsight-ai/ragengine/pkg/llm"
	"github.com/finsight-ai/ragengine/pkg/models"
)

// Overrides are caller-supplied filters that take precedence over whatever
// the extraction finds in the query text.
type Overrides struct {
	Company string
	Year    int
}

// Processor analyzes queries with the language model and embeds the
// augmented form for retrieval.
type Processor struct {
	llm      llm.Client
	embedder embedding.Embedder
}

// NewProcessor returns a Processor using the given model client and
// embedder.
func NewProcessor(client llm.Client, embedder embedding.Embedder) *Processor {
	return &Processor{llm: client, embedder: embedder}
}

// Process extracts entities and filters from the query, augments it with
// financial keywords and computes its embedding. When extraction fails the
// raw query is used unaugmented; an embedding failure is fatal since
// retrieval cannot proceed without a vector.
func (p *Processor) Process(ctx context.Context, queryText string, ov Overrides) (*models.ProcessedQuery, error) {
	processed := p.analyze(ctx, queryText, ov)

	vector, err := p.embedder.EmbedQuery(ctx, processed.AugmentedQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	processed.Embedding = vector

	return processed, nil
}

// Augment runs entity extraction and keyword augmentation without
// computing an embedding. Used for sub-queries, where the retrieval
// engine embeds the augmented text itself.
func (p *Processor) Augment(ctx context.Context, queryText string, ov Overrides) *models.ProcessedQuery {
	return p.analyze(ctx, queryText, ov)
}

func (p *Processor) analyze(ctx context.Context, queryText string, ov Overrides) *models.ProcessedQuery {
	messages := []models.Message{
		{Role: models.RoleSystem, Content: extractionSystemPrompt, Timestamp: time.Now()},
		{Role: models.RoleUser, Content: extractionPrompt(queryText), Timestamp: time.Now()},
	}

	extraction, err := llm.Structured[models.ExtractionResult](ctx, p.llm, messages, llm.ExtractionOptions())
	if err != nil {
		log.Warn().Err(err).Msg("query extraction failed, using raw query")
		return fallbackQuery(queryText, ov)
	}

	companies := normalizeCompanies(extraction.Companies)

	company := ov.Company
	if company == "" && len(companies) > 0 {
		company = companies[0]
	}
	company = strings.ToLower(company)

	year := ov.Year
	if year == 0 {
		year = extraction.Year
	}
	yearRange := extraction.YearRange

	// Trend and comparison queries benefit from adjacent-year context since
	// filings report prior-year figures alongside current ones.
	if extraction.NeedsYearExpansion != nil && *extraction.NeedsYearExpansion {
		if yearRange != nil {
			expanded := models.YearRange{Min: yearRange.Min - 1, Max: yearRange.Max + 1}.
				Clamp(config.MinSupportedYear, config.MaxSupportedYear)
			yearRange = &expanded
		} else if year != 0 {
			expanded := models.YearRange{Min: year - 1, Max: year + 1}.
				Clamp(config.MinSupportedYear, config.MaxSupportedYear)
			yearRange = &expanded
			year = 0
		}
	}

	filters := models.QueryFilters{
		Company:                company,
		Year:                   year,
		YearRange:              yearRange,
		DocumentType:           extraction.DocumentType,
		DocumentCategory:       extraction.DocumentCategory,
		FiscalQuarter:          extraction.FiscalQuarter,
		Sector:                 extraction.Sector,
		PeriodType:             extraction.PeriodType,
		ReportingStandard:      extraction.ReportingStandard,
		Country:                "",
		Exchange:               extraction.Exchange,
		ChunkType:              extraction.ChunkType,
		HasFinancialStatements: extraction.HasFinancialStatements,
		HasMDA:                 extraction.HasMDA,
		HasRiskFactors:         extraction.HasRiskFactors,
	}
	if len(companies) > 1 {
		filters.Companies = companies
	}

	augmented := extraction.AugmentedQuery
	if augmented == "" {
		augmented = queryText
	}

	queryType := extraction.QueryType
	if queryType == "" {
		queryType = "general"
	}

	var years []int
	if year != 0 {
		years = []int{year}
	}

	return &models.ProcessedQuery{
		QueryText:      queryText,
		AugmentedQuery: augmented,
		Companies:      companies,
		Years:          years,
		YearRange:      yearRange,
		QueryType:      queryType,
		Filters:        filters,
	}
}

// Refine asks for a rewritten retrieval query covering the given gaps and
// returns the refined keyword query. The original augmented query is
// returned unchanged when refinement fails.
func (p *Processor) Refine(ctx context.Context, processed *models.ProcessedQuery, gaps []string) string {
	messages := []models.Message{
		{Role: models.RoleSystem, Content: extractionSystemPrompt, Timestamp: time.Now()},
		{
			Role:      models.RoleUser,
			Content:   refinementPrompt(processed.QueryText, gaps, processed.Companies, processed.Years),
			Timestamp: time.Now(),
		},
	}

	result, err := llm.Structured[models.RefinementResult](ctx, p.llm, messages, llm.ExtractionOptions())
	if err != nil || result.RefinedQuery == "" {
		log.Warn().Err(err).Msg("query refinement failed, keeping previous query")
		return processed.AugmentedQuery
	}

	refined := result.RefinedQuery
	if len(result.AdditionalKeywords) > 0 {
		refined += " " + strings.Join(result.AdditionalKeywords, " ")
	}
	return refined
}

func fallbackQuery(queryText string, ov Overrides) *models.ProcessedQuery {
	filters := models.QueryFilters{
		Company: strings.ToLower(ov.Company),
		Year:    ov.Year,
	}
	var companies []string
	if filters.Company != "" {
		companies = []string{filters.Company}
	}
	var years []int
	if ov.Year != 0 {
		years = []int{ov.Year}
	}
	return &models.ProcessedQuery{
		QueryText:      queryText,
		AugmentedQuery: queryText,
		Companies:      companies,
		Years:          years,
		QueryType:      "general",
		Filters:        filters,
	}
}

func normalizeCompanies(companies []string) []string {
	known := make(map[string]bool, len(config.Companies))
	for _, c := range config.Companies {
		known[c] = true
	}

	var out []string
	for _, c := range companies {
		c = strings.ToLower(strings.TrimSpace(c))
		if c == "" || !known[c] {
			continue
		}
		out = append(out, c)
	}
	return out
}

func joinOrNone(items []string) string {
	if len(items) == 0 {
		return "None"
	}
	return strings.Join(items, ", ")
}

func joinInts(years []int) string {
	if len(years) == 0 {
		return "None"
	}
	parts := make([]string, len(years))
	for i, y := range years {
		parts[i] = strconv.Itoa(y)
	}
	return strings.Join(parts, ", ")
}
