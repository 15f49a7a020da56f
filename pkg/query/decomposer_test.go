package query

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecomposeSplitsCompoundQuery(t *testing.T) {
	client := &mockLLM{replies: []string{`{
		"needs_decomposition": true,
		"sub_queries": [
			{"sub_query": "Apple revenue 2022", "intent": "revenue_lookup", "companies": ["Apple"], "years": [2022], "metrics": ["revenue"], "priority": 1},
			{"sub_query": "Apple net income 2022", "intent": "income_lookup", "companies": ["apple"], "years": [2022], "metrics": ["net_income"], "priority": 2}
		],
		"reasoning": "two independent metrics"
	}`}}

	d := NewDecomposer(client)
	result := d.Decompose(context.Background(), "What was Apple's revenue in 2022? Also show their net income.")

	require.True(t, result.NeedsDecomposition)
	require.Len(t, result.SubQueries, 2)
	assert.Equal(t, "revenue_lookup", result.SubQueries[0].Intent)
	assert.Equal(t, []string{"apple"}, result.SubQueries[0].Companies)
}

func TestDecomposeComparisonStaysSingle(t *testing.T) {
	client := &mockLLM{replies: []string{`{
		"needs_decomposition": false,
		"sub_queries": [],
		"reasoning": "comparison is one intent"
	}`}}

	d := NewDecomposer(client)
	result := d.Decompose(context.Background(), "Compare Alphabet and Apple revenue growth from 2018 to 2022")

	assert.False(t, result.NeedsDecomposition)
	assert.Empty(t, result.SubQueries)
}

func TestDecomposeErrorMeansSingleQuery(t *testing.T) {
	client := &mockLLM{err: errors.New("model unavailable")}

	d := NewDecomposer(client)
	result := d.Decompose(context.Background(), "Apple revenue 2022")

	assert.False(t, result.NeedsDecomposition)
	assert.Empty(t, result.SubQueries)
}

func TestDecomposeFlagWithoutSubQueries(t *testing.T) {
	client := &mockLLM{replies: []string{`{"needs_decomposition": true, "sub_queries": []}`}}

	d := NewDecomposer(client)
	result := d.Decompose(context.Background(), "Apple revenue 2022")

	assert.False(t, result.NeedsDecomposition)
}

func TestDecomposeDefaultsIntent(t *testing.T) {
	client := &mockLLM{replies: []string{`{
		"needs_decomposition": true,
		"sub_queries": [
			{"sub_query": "Apple revenue 2022", "companies": ["apple"]},
			{"sub_query": "Tesla deliveries 2022", "companies": ["tesla"]}
		]
	}`}}

	d := NewDecomposer(client)
	result := d.Decompose(context.Background(), "Apple revenue and Tesla deliveries in 2022")

	require.Len(t, result.SubQueries, 2)
	for _, sq := range result.SubQueries {
		assert.Equal(t, "general", sq.Intent)
	}
}
