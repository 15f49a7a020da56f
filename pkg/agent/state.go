// Package agent orchestrates the three-stage answer workflow: query
// planning and retrieval, analysis, and response generation with chart
// self-healing. Each stage reads and writes a single State owned by the
// running orchestrator.
package agent

import (
	"github.com/finsight-ai/ragengine/pkg/models"
)

// State is the workflow state threaded through the stages. It has a
// single writer, the orchestrator run that created it; nodes return
// typed results the stage runner merges in. The caller always receives
// the state back, even when a stage failed partway.
type State struct {
	// Input.
	Query     string
	UserID    string
	SessionID string
	Messages  []models.Message

	// Memory.
	RelevantHistory     []models.Conversation
	ConversationSummary string

	// Query planning.
	IsDecomposed    bool
	SubQueries      []models.SubQuery
	Processed       *models.ProcessedQuery
	SubQueryResults map[string][]models.RetrievedChunk

	// Retrieval loop.
	Retrieved           []models.RetrievedChunk
	RetrievalSufficient bool
	RetrievalAttempts   int
	Gaps                []string
	previousGaps        []string

	// Analysis.
	Analysis       *models.AnalysisResult
	AnalysisErrors []string

	// Generation.
	Response         *models.AnswerResponse
	ResponseValid    bool
	ValidationErrors []string
	SelfHealAttempts int

	// Err is the first stage error, kept so callers of a failed run can
	// still inspect the partial state.
	Err error
}

// NewState initializes workflow state for one query.
func NewState(q models.Query, history []models.Message) *State {
	return &State{
		Query:     q.Text,
		UserID:    q.UserID,
		SessionID: q.SessionID,
		Messages:  history,
	}
}

// sameGapSet reports whether two gap lists describe the same gaps,
// ignoring order and duplicates. Equal sets mean a refinement attempt
// made no progress.
func sameGapSet(a, b []string) bool {
	if len(a) == 0 || len(b) == 0 {
		return false
	}
	set := make(map[string]bool, len(a))
	for _, g := range a {
		set[g] = true
	}
	for _, g := range b {
		if !set[g] {
			return false
		}
	}
	for _, g := range b {
		set[g] = false
	}
	for _, g := range a {
		if set[g] {
			return false
		}
	}
	return true
}
