package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/finsight-ai/ragengine/pkg/config"
	"github.com/finsight-ai/ragengine/pkg/llm"
	"github.com/finsight-ai/ragengine/pkg/models"
)

var chartPlaceholderRe = regexp.MustCompile(`\[CHART:(\d+)\]`)

// runGenerationStage produces the final answer: markdown text with chart
// placeholders, one chart config per distinct placeholder, a chart-shape
// quality gate with a bounded self-heal loop, and source citations.
func (o *Orchestrator) runGenerationStage(ctx context.Context, s *State) error {
	o.explain(ctx, s)

	for {
		s.ValidationErrors = checkCharts(s.Response.Charts)
		s.ResponseValid = len(s.ValidationErrors) == 0

		if s.ResponseValid {
			break
		}
		if s.SelfHealAttempts >= config.MaxSelfHealAttempts {
			log.Warn().Strs("errors", s.ValidationErrors).
				Msg("self-heal attempts exhausted, accepting response")
			s.ResponseValid = true
			break
		}
		o.selfHeal(ctx, s)
	}

	log.Info().Int("charts", len(s.Response.Charts)).Int("sources", len(s.Response.Sources)).
		Msg("generation complete")
	return nil
}

// explain generates the answer text, then the chart configurations for
// every [CHART:N] placeholder it contains, in parallel.
func (o *Orchestrator) explain(ctx context.Context, s *State) {
	analyzedData := ""
	if s.Analysis != nil {
		analyzedData = s.Analysis.Analysis
	}
	dataEmpty := analyzedData == "" ||
		containsFold(analyzedData, "cannot find") ||
		containsFold(analyzedData, "not available")

	sources := ExtractSources(s.Retrieved)
	sourcesText := FormatSources(sources)

	messages := []models.Message{
		{Role: models.RoleSystem, Content: generationSystemPrompt, Timestamp: time.Now()},
		{
			Role:      models.RoleUser,
			Content:   generationPrompt(s.Query, analyzedData, sourcesText),
			Timestamp: time.Now(),
		},
	}

	text := ""
	reply, err := o.llm.Chat(ctx, messages, llm.Options{Temperature: 0.4, TopP: 0.9, MaxTokens: 2048})
	if err != nil {
		log.Error().Err(err).Msg("answer generation failed")
	} else {
		text = strings.TrimSpace(reply.Content)
	}
	if text == "" {
		text = fmt.Sprintf("I apologize, but I was unable to generate a response for your query: %s.", s.Query)
	}
	if dataEmpty && !containsFold(text, "cannot find") && !containsFold(text, "not available") {
		text = "I cannot find this information in the available financial reports.\n\n" + text
	}

	charts := o.generateCharts(ctx, countPlaceholders(text), s.Query, analyzedData)
	text = removeSourcesSection(text)

	metadata := map[string]any{"query": s.Query}
	if s.Processed != nil {
		metadata["companies"] = s.Processed.Companies
	}
	if s.Analysis != nil {
		metadata["metric"] = s.Analysis.Metric
	}

	s.Response = &models.AnswerResponse{
		Text:     text,
		Charts:   charts,
		Sources:  sources,
		Metadata: metadata,
	}
	log.Info().Int("chars", len(text)).Int("charts", len(charts)).Msg("answer text generated")
}

func countPlaceholders(text string) int {
	seen := make(map[string]bool)
	for _, m := range chartPlaceholderRe.FindAllStringSubmatch(text, -1) {
		seen[m[1]] = true
	}
	return len(seen)
}

func (o *Orchestrator) generateCharts(ctx context.Context, n int, queryText, analyzedData string) []models.ChartSpec {
	if n == 0 {
		return nil
	}

	results := make([]models.ChartSpec, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = o.generateChart(ctx, i+1, queryText, analyzedData)
		}()
	}
	wg.Wait()

	charts := make([]models.ChartSpec, 0, n)
	for _, chart := range results {
		if chart != nil {
			charts = append(charts, chart)
		}
	}
	log.Info().Int("generated", len(charts)).Int("requested", n).Msg("charts generated")
	return charts
}

// generateChart asks for one Chart.js config. A failed generation yields
// nil; the quality gate never sees it.
func (o *Orchestrator) generateChart(ctx context.Context, index int, queryText, analyzedData string) models.ChartSpec {
	messages := []models.Message{
		{Role: models.RoleSystem, Content: chartSystemPrompt, Timestamp: time.Now()},
		{Role: models.RoleUser, Content: chartPrompt(queryText, analyzedData), Timestamp: time.Now()},
	}

	reply, err := o.llm.Chat(ctx, messages,
		llm.Options{Temperature: 0.3, TopP: 0.9, MaxTokens: 1024, JSON: true})
	if err != nil {
		log.Error().Err(err).Int("chart", index).Msg("chart generation failed")
		return nil
	}

	raw := llm.StripFences(reply.Content)

	var chart models.ChartSpec
	if err := json.Unmarshal([]byte(raw), &chart); err == nil {
		return chart
	}
	var charts []models.ChartSpec
	if err := json.Unmarshal([]byte(raw), &charts); err == nil && len(charts) > 0 {
		return charts[0]
	}

	log.Error().Int("chart", index).Msg("chart response was not valid JSON")
	return nil
}

// checkCharts validates the structural shape every renderer requires:
// a supported type and data with labels and datasets. Text is not
// validated here.
func checkCharts(charts []models.ChartSpec) []string {
	var errs []string
	for i, chart := range charts {
		switch chart.ChartType() {
		case "line", "bar", "pie", "doughnut":
		case "":
			errs = append(errs, fmt.Sprintf("chart %d: missing type", i+1))
		default:
			errs = append(errs, fmt.Sprintf("chart %d: invalid type %q", i+1, chart.ChartType()))
		}

		data, ok := chart["data"].(map[string]any)
		if !ok {
			errs = append(errs, fmt.Sprintf("chart %d: missing data object", i+1))
			continue
		}
		if _, ok := data["labels"]; !ok {
			errs = append(errs, fmt.Sprintf("chart %d: data missing labels", i+1))
		}
		if _, ok := data["datasets"]; !ok {
			errs = append(errs, fmt.Sprintf("chart %d: data missing datasets", i+1))
		}
	}
	return errs
}

// selfHeal asks the model to repair broken chart configs. Text is never
// touched. A failed repair keeps the current charts; the loop's attempt
// budget decides when to stop trying.
func (o *Orchestrator) selfHeal(ctx context.Context, s *State) {
	s.SelfHealAttempts++

	current, err := json.MarshalIndent(s.Response.Charts, "", "  ")
	if err != nil {
		log.Error().Err(err).Msg("self-heal: failed to encode charts")
		return
	}

	messages := []models.Message{
		{Role: models.RoleSystem, Content: selfHealSystemPrompt, Timestamp: time.Now()},
		{
			Role:      models.RoleUser,
			Content:   selfHealPrompt(s.Query, s.ValidationErrors, string(current)),
			Timestamp: time.Now(),
		},
	}

	reply, err := o.llm.Chat(ctx, messages,
		llm.Options{Temperature: 0.2, TopP: 0.9, MaxTokens: 2048, JSON: true})
	if err != nil {
		log.Error().Err(err).Msg("self-heal failed")
		return
	}

	raw := llm.StripFences(reply.Content)

	var healed []models.ChartSpec
	if err := json.Unmarshal([]byte(raw), &healed); err != nil {
		var single models.ChartSpec
		if err := json.Unmarshal([]byte(raw), &single); err != nil {
			log.Error().Msg("self-heal response was not valid JSON, keeping charts")
			return
		}
		healed = []models.ChartSpec{single}
	}

	s.Response.Charts = healed
	log.Info().Int("attempt", s.SelfHealAttempts).Msg("charts healed")
}

// removeSourcesSection strips a trailing Sources section if the model
// added one despite instructions.
func removeSourcesSection(text string) string {
	if !strings.Contains(text, "## Sources") && !strings.Contains(text, "### Sources") {
		return text
	}

	var kept []string
	skip := false
	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "## Sources") || strings.HasPrefix(trimmed, "### Sources") {
			skip = true
			continue
		}
		if skip && strings.HasPrefix(trimmed, "#") {
			skip = false
		}
		if skip {
			continue
		}
		kept = append(kept, line)
	}
	return strings.TrimSpace(strings.Join(kept, "\n"))
}
