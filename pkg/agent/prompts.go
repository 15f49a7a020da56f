package agent

import (
	"fmt"
	"strings"

	"github.com/finsight-ai/ragengine/pkg/models"
)

const validationSystemPrompt = `You are a retrieval quality judge for a financial document search system.
Given a user query and the retrieved excerpts, decide whether the excerpts
contain enough information to answer the query. Respond with JSON only:
{"sufficient": true|false, "gaps": ["description of each missing piece"]}`

func validationPrompt(query string, chunks []models.RetrievedChunk) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Query: %s\n\nRetrieved content:\n", query)

	if len(chunks) == 0 {
		b.WriteString("No content retrieved\n")
	}
	for i, chunk := range chunks {
		if i >= 5 {
			break
		}
		fmt.Fprintf(&b, "[%d] Company: %s, Year: %d\n%s\n\n",
			i+1, displayCompany(chunk), chunk.FiscalYear(), chunk.Content)
	}

	b.WriteString(`Is this content sufficient to answer the query? List concrete gaps
(missing companies, years or metrics) when it is not.`)
	return b.String()
}

const analysisSystemPrompt = `You are a financial analyst. Extract the requested metrics from the
provided report excerpts, perform any needed calculations, and state the
findings precisely with specific values. Use only the provided excerpts;
never invent numbers. Respond with JSON only:
{"metric": "primary metric analyzed", "analysis": "complete analysis in natural language"}`

func analysisPrompt(query, contextText, companies, years string) string {
	return fmt.Sprintf(`Analyze the following excerpts to answer the query.

Query: %s

Required companies: %s
Required years: %s

Excerpts:
%s

Provide the analysis with specific values, calculations performed and key
insights. Format: "I found [company]'s [metric] in [year]: [value].
[Calculations if any]. [Key insights]."`, query, companies, years, contextText)
}

func analysisValidationPrompt(query string, analysis *models.AnalysisResult, companies, years string) string {
	return fmt.Sprintf(`Validate this analysis for the query: %s

Metric: %s
Analysis: %s

Required companies: %s
Required years: %s

Check that the requested companies and years are mentioned, that specific
values are included, and that the analysis is consistent with the query.
Respond with JSON only:
{"valid": true|false, "errors": [...], "warnings": [...]}`,
		query, analysis.Metric, analysis.Analysis, companies, years)
}

const generationSystemPrompt = `You are a financial assistant producing the final answer for the user.
Write clear markdown. Use LaTeX for formulas where helpful. When a chart
would aid the answer, insert a placeholder like [CHART:1] where it should
appear; number placeholders sequentially. Do NOT include a Sources section;
sources are appended separately. Base the answer strictly on the analyzed
data.`

func generationPrompt(query, analyzedData, sourcesText string) string {
	if sourcesText == "" {
		sourcesText = "No sources available"
	}
	return fmt.Sprintf(`Query: %s

Analyzed data:
%s

Available sources:
%s

Write the answer.`, query, analyzedData, sourcesText)
}

const chartSystemPrompt = `You are a Chart.js expert. Generate valid Chart.js configuration JSON
only. No markdown, no explanations, no backticks.`

func chartPrompt(query, analyzedData string) string {
	if analyzedData == "" {
		analyzedData = "No data available"
	}
	return fmt.Sprintf(`Generate a Chart.js configuration JSON object for the following
data visualization request.

Query: %s
Analyzed data: %s

The object must contain:
- "type": "line" | "bar" | "pie" | "doughnut"
- "data": {"labels": [...], "datasets": [...]}
- "options": {...} (optional)

Return ONLY the JSON object.`, query, analyzedData)
}

const selfHealSystemPrompt = `You repair broken Chart.js configurations. Return the corrected
configurations as a JSON array only. No markdown, no explanations, no
backticks.`

func selfHealPrompt(query string, errors []string, currentCharts string) string {
	return fmt.Sprintf(`The following Chart.js configurations failed validation.

Query: %s

Errors:
%s

Current configurations:
%s

Fix every error. Each configuration needs "type" (line, bar, pie or
doughnut) and "data" with "labels" and "datasets". Return the corrected
JSON array.`, query, strings.Join(errors, "\n"), currentCharts)
}

func displayCompany(chunk models.RetrievedChunk) string {
	if name, ok := chunk.Metadata["company_name"].(string); ok && name != "" {
		return name
	}
	if c := chunk.Company(); c != "" {
		return c
	}
	return "Unknown"
}
