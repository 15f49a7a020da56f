package agent

import (
	"fmt"
	"strings"

	"github.com/finsight-ai/ragengine/pkg/models"
)

// ExtractSources derives unique citations from the retrieved chunks. Two
// chunks from the same company, year, document and page collapse to one
// source, in retrieval order.
func ExtractSources(chunks []models.RetrievedChunk) []models.Source {
	var sources []models.Source
	seen := make(map[string]bool)

	for _, chunk := range chunks {
		src := models.Source{
			Company:       displayCompany(chunk),
			Ticker:        metaString(chunk.Metadata, "company_ticker"),
			Year:          chunk.FiscalYear(),
			FiscalQuarter: metaInt(chunk.Metadata, "fiscal_quarter"),
			DocumentType:  metaString(chunk.Metadata, "document_type"),
			Page:          metaInt(chunk.Metadata, "page_idx"),
			Sector:        metaString(chunk.Metadata, "company_sector"),
		}
		src.DocumentDisplay = documentDisplay(src.DocumentType, src.FiscalQuarter)

		key := fmt.Sprintf("%s|%d|%s|%d|%d",
			strings.ToLower(src.Company), src.Year, src.DocumentType, src.FiscalQuarter, src.Page)
		if seen[key] {
			continue
		}
		seen[key] = true
		sources = append(sources, src)
	}
	return sources
}

// FormatSources renders sources as a bulleted list for prompts, e.g.
// "- Apple Inc. (AAPL) 2024 10-K Q4, Page 45".
func FormatSources(sources []models.Source) string {
	if len(sources) == 0 {
		return ""
	}

	lines := make([]string, 0, len(sources))
	for _, s := range sources {
		var parts []string
		if s.Company != "" {
			parts = append(parts, s.Company)
		}
		if s.Ticker != "" {
			parts = append(parts, "("+s.Ticker+")")
		}
		if s.Year != 0 {
			parts = append(parts, fmt.Sprintf("%d", s.Year))
		}
		if s.DocumentDisplay != "" {
			parts = append(parts, s.DocumentDisplay)
		}
		parts = append(parts, fmt.Sprintf("Page %d", s.Page))
		lines = append(lines, "- "+strings.Join(parts, " "))
	}
	return strings.Join(lines, "\n")
}

func documentDisplay(docType string, quarter int) string {
	if docType == "" {
		return "Document"
	}
	if quarter != 0 && (docType == "10-Q" || docType == "10Q") {
		return fmt.Sprintf("%s Q%d", docType, quarter)
	}
	return docType
}

func metaString(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}

func metaInt(m map[string]any, key string) int {
	switch v := m[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return 0
}
