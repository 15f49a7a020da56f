package agent

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/finsight-ai/ragengine/pkg/llm"
	"github.com/finsight-ai/ragengine/pkg/models"
)

// runAnalysisStage extracts metrics and calculations from the evidence,
// then validates the analysis. Validation findings are recorded but never
// block the pipeline; a weak analysis still produces an answer.
func (o *Orchestrator) runAnalysisStage(ctx context.Context, s *State) error {
	if len(s.Retrieved) == 0 {
		log.Warn().Msg("analysis: no retrieved context")
		s.Analysis = &models.AnalysisResult{Analysis: "No retrieved context available for analysis."}
		return nil
	}

	companies, years := requiredEntities(s.Processed)

	messages := []models.Message{
		{Role: models.RoleSystem, Content: analysisSystemPrompt, Timestamp: time.Now()},
		{
			Role:      models.RoleUser,
			Content:   analysisPrompt(s.Query, formatContext(s.Retrieved), companies, years),
			Timestamp: time.Now(),
		},
	}

	analysis, err := llm.Structured[models.AnalysisResult](ctx, o.llm, messages,
		llm.Options{Temperature: 0.2, TopP: 0.9, MaxTokens: 2048})
	if err != nil {
		log.Error().Err(err).Msg("analysis failed")
		s.Analysis = &models.AnalysisResult{Analysis: fmt.Sprintf("Error during analysis: %v", err)}
		return nil
	}
	s.Analysis = &analysis

	log.Info().Str("metric", analysis.Metric).Msg("analysis complete")

	o.validateAnalysis(ctx, s, companies, years)
	return nil
}

func (o *Orchestrator) validateAnalysis(ctx context.Context, s *State, companies, years string) {
	messages := []models.Message{
		{Role: models.RoleSystem, Content: analysisSystemPrompt, Timestamp: time.Now()},
		{
			Role:      models.RoleUser,
			Content:   analysisValidationPrompt(s.Query, s.Analysis, companies, years),
			Timestamp: time.Now(),
		},
	}

	result, err := llm.Structured[models.AnalysisValidation](ctx, o.llm, messages, llm.ExtractionOptions())
	if err != nil {
		log.Warn().Err(err).Msg("analysis validation failed")
		s.AnalysisErrors = []string{fmt.Sprintf("validation error: %v", err)}
		return
	}

	if len(result.Warnings) > 0 {
		log.Warn().Strs("warnings", result.Warnings).Msg("analysis validation warnings")
	}
	if !result.Valid {
		log.Error().Strs("errors", result.Errors).Msg("analysis validation errors")
		s.AnalysisErrors = result.Errors
		return
	}
	s.AnalysisErrors = nil
}

// formatContext renders the evidence set for the analysis prompt, each
// chunk numbered and attributed.
func formatContext(chunks []models.RetrievedChunk) string {
	parts := make([]string, 0, len(chunks))
	for i, chunk := range chunks {
		parts = append(parts, fmt.Sprintf("[%d] Company: %s, Year: %d\n%s",
			i+1, displayCompany(chunk), chunk.FiscalYear(), chunk.Content))
	}
	return strings.Join(parts, "\n\n---\n\n")
}

func requiredEntities(processed *models.ProcessedQuery) (companies, years string) {
	companies, years = "Any", "Any"
	if processed == nil {
		return
	}
	if len(processed.Companies) > 0 {
		companies = strings.Join(processed.Companies, ", ")
	}
	if len(processed.Years) > 0 {
		parts := make([]string, len(processed.Years))
		for i, y := range processed.Years {
			parts[i] = fmt.Sprintf("%d", y)
		}
		years = strings.Join(parts, ", ")
	}
	return
}
