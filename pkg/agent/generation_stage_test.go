package agent

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/finsight-ai/ragengine/pkg/models"
)

func TestCheckCharts(t *testing.T) {
	valid := models.ChartSpec{
		"type": "bar",
		"data": map[string]any{"labels": []any{"2023"}, "datasets": []any{}},
	}
	assert.Empty(t, checkCharts([]models.ChartSpec{valid}))

	errs := checkCharts([]models.ChartSpec{{"type": "scatter", "data": map[string]any{}}})
	assert.Len(t, errs, 3)

	errs = checkCharts([]models.ChartSpec{{"data": map[string]any{"labels": []any{}, "datasets": []any{}}}})
	assert.Len(t, errs, 1)
	assert.Contains(t, errs[0], "missing type")

	errs = checkCharts([]models.ChartSpec{{"type": "pie"}})
	assert.Len(t, errs, 1)
	assert.Contains(t, errs[0], "missing data")
}

func TestCountPlaceholders(t *testing.T) {
	assert.Equal(t, 0, countPlaceholders("plain answer"))
	assert.Equal(t, 1, countPlaceholders("see [CHART:1] below"))
	assert.Equal(t, 2, countPlaceholders("[CHART:1] and [CHART:2] and [CHART:1] again"))
}

func TestRemoveSourcesSection(t *testing.T) {
	text := "## Answer\nRevenue grew.\n\n## Sources\n- Apple 10-K\n- Apple 10-Q"
	assert.Equal(t, "## Answer\nRevenue grew.", removeSourcesSection(text))

	withFollowing := "Intro\n\n### Sources\n- a\n\n## Notes\nKeep this"
	cleaned := removeSourcesSection(withFollowing)
	assert.NotContains(t, cleaned, "- a")
	assert.Contains(t, cleaned, "Keep this")

	plain := "No sources section here"
	assert.Equal(t, plain, removeSourcesSection(plain))
}

func TestSameGapSet(t *testing.T) {
	assert.True(t, sameGapSet([]string{"a", "b"}, []string{"b", "a"}))
	assert.False(t, sameGapSet([]string{"a"}, []string{"a", "b"}))
	assert.False(t, sameGapSet([]string{"a", "b"}, []string{"a"}))
	assert.False(t, sameGapSet(nil, []string{"a"}))
	assert.False(t, sameGapSet([]string{"a"}, nil))
}
