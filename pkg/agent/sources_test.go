package agent

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finsight-ai/ragengine/pkg/models"
)

func chunkWithMeta(meta map[string]any) models.RetrievedChunk {
	return models.RetrievedChunk{Content: "text", Score: 0.9, Metadata: meta}
}

func TestExtractSourcesDeduplicates(t *testing.T) {
	chunks := []models.RetrievedChunk{
		chunkWithMeta(map[string]any{
			"company_name": "Apple Inc.", "company": "apple", "company_ticker": "AAPL",
			"fiscal_year": 2023, "document_type": "10-K", "page_idx": 12,
		}),
		chunkWithMeta(map[string]any{
			"company_name": "Apple Inc.", "company": "apple", "company_ticker": "AAPL",
			"fiscal_year": 2023, "document_type": "10-K", "page_idx": 12,
		}),
		chunkWithMeta(map[string]any{
			"company_name": "Apple Inc.", "company": "apple", "company_ticker": "AAPL",
			"fiscal_year": 2023, "document_type": "10-K", "page_idx": 47,
		}),
	}

	sources := ExtractSources(chunks)
	require.Len(t, sources, 2)
	assert.Equal(t, "Apple Inc.", sources[0].Company)
	assert.Equal(t, 12, sources[0].Page)
	assert.Equal(t, 47, sources[1].Page)
}

func TestExtractSourcesQuarterlyDisplay(t *testing.T) {
	sources := ExtractSources([]models.RetrievedChunk{
		chunkWithMeta(map[string]any{
			"company": "microsoft", "fiscal_year": 2023,
			"document_type": "10-Q", "fiscal_quarter": 2, "page_idx": 5,
		}),
	})
	require.Len(t, sources, 1)
	assert.Equal(t, "10-Q Q2", sources[0].DocumentDisplay)
}

func TestExtractSourcesFallsBackToCompanyField(t *testing.T) {
	sources := ExtractSources([]models.RetrievedChunk{
		chunkWithMeta(map[string]any{"company": "tesla", "fiscal_year": 2022, "page_idx": 3}),
	})
	require.Len(t, sources, 1)
	assert.Equal(t, "tesla", sources[0].Company)
	assert.Equal(t, "Document", sources[0].DocumentDisplay)
}

func TestFormatSources(t *testing.T) {
	text := FormatSources([]models.Source{
		{Company: "Apple Inc.", Ticker: "AAPL", Year: 2023, DocumentDisplay: "10-K", Page: 12},
		{Company: "Microsoft Corporation", Year: 2023, DocumentDisplay: "10-Q Q2", Page: 5},
	})

	assert.Contains(t, text, "- Apple Inc. (AAPL) 2023 10-K Page 12")
	assert.Contains(t, text, "- Microsoft Corporation 2023 10-Q Q2 Page 5")
}

func TestFormatSourcesEmpty(t *testing.T) {
	assert.Equal(t, "", FormatSources(nil))
}
