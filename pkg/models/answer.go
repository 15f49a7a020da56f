package models

// ChartSpec is one chart configuration as produced by the generation stage.
// It stays schemaless because malformed specs must survive parsing so the
// self-heal loop can repair them; structural checks happen in the quality
// gate, not at unmarshal time.
type ChartSpec map[string]any

// ChartType returns the chart config's "type" value, or "".
func (c ChartSpec) ChartType() string {
	if v, ok := c["type"].(string); ok {
		return v
	}
	return ""
}

// Source is one citation derived from a retrieved chunk.
type Source struct {
	Company         string `json:"company"`
	Ticker          string `json:"ticker,omitempty"`
	Year            int    `json:"year"`
	FiscalQuarter   int    `json:"fiscal_quarter,omitempty"`
	DocumentType    string `json:"document_type,omitempty"`
	DocumentDisplay string `json:"document_display"`
	Page            int    `json:"page"`
	Sector          string `json:"sector,omitempty"`
}

// AnswerResponse is the final deliverable: markdown text with [CHART:N]
// placeholders, the matching chart specs, and source citations.
type AnswerResponse struct {
	Text     string         `json:"text"`
	Charts   []ChartSpec    `json:"charts"`
	Sources  []Source       `json:"sources"`
	Metadata map[string]any `json:"metadata"`
}
