package agent

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finsight-ai/ragengine/pkg/llm"
	"github.com/finsight-ai/ragengine/pkg/memory"
	"github.com/finsight-ai/ragengine/pkg/models"
	"github.com/finsight-ai/ragengine/pkg/query"
	"github.com/finsight-ai/ragengine/pkg/retrieval"
	"github.com/finsight-ai/ragengine/pkg/vector"
)

// scriptedLLM routes each chat call to the first rule whose marker
// appears in the prompt. Replies are consumed in order; the last reply
// of a rule repeats.
type scriptedLLM struct {
	mu    sync.Mutex
	rules []llmRule
}

type llmRule struct {
	marker  string
	replies []string
}

func (s *scriptedLLM) Chat(_ context.Context, messages []models.Message, _ llm.Options) (models.Message, error) {
	var b strings.Builder
	for _, msg := range messages {
		b.WriteString(msg.Content)
		b.WriteString("\n")
	}
	prompt := b.String()

	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.rules {
		rule := &s.rules[i]
		if !strings.Contains(prompt, rule.marker) {
			continue
		}
		reply := rule.replies[0]
		if len(rule.replies) > 1 {
			rule.replies = rule.replies[1:]
		}
		return models.Message{Role: models.RoleAssistant, Content: reply}, nil
	}
	return models.Message{Role: models.RoleAssistant, Content: "{}"}, nil
}

func (s *scriptedLLM) Close() error { return nil }

// set replaces or prepends the rule for the marker.
func (s *scriptedLLM) set(marker string, replies ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.rules {
		if s.rules[i].marker == marker {
			s.rules[i].replies = replies
			return
		}
	}
	s.rules = append([]llmRule{{marker: marker, replies: replies}}, s.rules...)
}

func defaultScript() *scriptedLLM {
	return &scriptedLLM{rules: []llmRule{
		{marker: "needs_decomposition", replies: []string{
			`{"needs_decomposition": false, "sub_queries": [], "reasoning": "single question"}`,
		}},
		{marker: "Process this financial query completely", replies: []string{
			`{"companies": ["apple"], "year": 2023, "query_type": "specific_value", "augmented_query": "apple revenue 2023 net sales"}`,
		}},
		{marker: "refined_query", replies: []string{
			`{"refined_query": "apple revenue 2023 net sales income statement", "additional_keywords": []}`,
		}},
		{marker: "retrieval quality judge", replies: []string{
			`{"sufficient": true, "gaps": []}`,
		}},
		{marker: "Validate this analysis", replies: []string{
			`{"valid": true, "errors": [], "warnings": []}`,
		}},
		{marker: "financial analyst", replies: []string{
			`{"metric": "revenue", "analysis": "I found Apple's revenue in 2023: $383.3 billion."}`,
		}},
		{marker: "Chart.js expert", replies: []string{
			`{"type": "bar", "data": {"labels": ["2023"], "datasets": [{"data": [383.3]}]}}`,
		}},
		{marker: "repair broken Chart.js", replies: []string{
			`[{"type": "line", "data": {"labels": ["2022", "2023"], "datasets": [{"data": [394.3, 383.3]}]}}]`,
		}},
		{marker: "producing the final answer", replies: []string{
			"Apple reported net sales of $383.3 billion in fiscal 2023.",
		}},
		{marker: "conversation summarizer", replies: []string{
			"Discussed Apple's fiscal 2023 revenue.",
		}},
	}}
}

type axisEmbedder struct{}

func (axisEmbedder) EmbedText(_ context.Context, text string) ([]float32, error) {
	return axisVector(text), nil
}

func (axisEmbedder) EmbedQuery(_ context.Context, query string) ([]float32, error) {
	return axisVector(query), nil
}

func (axisEmbedder) Dimensions() int { return 3 }

func axisVector(text string) []float32 {
	vec := []float32{0, 0, 0.1}
	lower := strings.ToLower(text)
	if strings.Contains(lower, "apple") {
		vec[0] = 1
	}
	if strings.Contains(lower, "microsoft") {
		vec[1] = 1
	}
	return vec
}

func docPoint(id, company, name, ticker string, year int, content string) vector.Point {
	return vector.Point{
		ID:     id,
		Vector: axisVector(company),
		Payload: map[string]any{
			"user_id":        "u1",
			"company":        company,
			"company_name":   name,
			"company_ticker": ticker,
			"fiscal_year":    year,
			"document_type":  "10-K",
			"page_idx":       10,
			"content":        content,
		},
	}
}

func newTestOrchestrator(t *testing.T, script *scriptedLLM) (*Orchestrator, *memory.InMemoryRepository) {
	t.Helper()

	docs := vector.NewMemoryStore()
	require.NoError(t, docs.Upsert(context.Background(), []vector.Point{
		docPoint("a1", "apple", "Apple Inc.", "AAPL", 2023,
			"Apple net sales were $383.3 billion in fiscal 2023, down 3 percent year over year."),
		docPoint("a2", "apple", "Apple Inc.", "AAPL", 2023,
			"Apple services revenue reached $85.2 billion in fiscal 2023, an all-time high."),
		docPoint("a3", "apple", "Apple Inc.", "AAPL", 2022,
			"Apple net sales were $394.3 billion in fiscal 2022, up 8 percent year over year."),
		docPoint("m1", "microsoft", "Microsoft Corporation", "MSFT", 2023,
			"Microsoft revenue was $211.9 billion in fiscal 2023, an increase of 7 percent."),
		docPoint("m2", "microsoft", "Microsoft Corporation", "MSFT", 2023,
			"Microsoft cloud revenue grew 22 percent in fiscal 2023 driven by Azure."),
	}))

	repo := memory.NewInMemoryRepository()
	manager := memory.NewManager(repo, vector.NewMemoryStore(), axisEmbedder{}, script)

	orch := New(Deps{
		Processor:  query.NewProcessor(script, axisEmbedder{}),
		Decomposer: query.NewDecomposer(script),
		Engine:     retrieval.NewEngine(docs, axisEmbedder{}, 0.7),
		Embedder:   axisEmbedder{},
		Memory:     manager,
		LLM:        script,
	})
	t.Cleanup(orch.Close)
	return orch, repo
}

func TestRunSingleQuery(t *testing.T) {
	orch, repo := newTestOrchestrator(t, defaultScript())

	state, err := orch.Run(context.Background(),
		models.Query{Text: "What was Apple's revenue in 2023?", UserID: "u1", SessionID: "s1"}, nil)
	require.NoError(t, err)

	assert.False(t, state.IsDecomposed)
	assert.True(t, state.RetrievalSufficient)
	assert.Equal(t, 1, state.RetrievalAttempts)
	assert.NotEmpty(t, state.Retrieved)

	require.NotNil(t, state.Analysis)
	assert.Equal(t, "revenue", state.Analysis.Metric)

	require.NotNil(t, state.Response)
	assert.True(t, state.ResponseValid)
	assert.Contains(t, state.Response.Text, "383.3")
	assert.NotEmpty(t, state.Response.Sources)
	assert.Equal(t, "Apple Inc.", state.Response.Sources[0].Company)

	orch.Close()
	stored, err := repo.GetBySession(context.Background(), "u1", "s1")
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, "Discussed Apple's fiscal 2023 revenue.", stored[0].Summary)
}

func TestRunDecomposedQuery(t *testing.T) {
	script := defaultScript()
	script.set("needs_decomposition",
		`{"needs_decomposition": true, "reasoning": "two independent lookups", "sub_queries": [
			{"sub_query": "apple revenue 2023", "intent": "apple_revenue", "companies": ["apple"], "years": [2023], "priority": 1},
			{"sub_query": "microsoft revenue 2023", "intent": "microsoft_revenue", "companies": ["microsoft"], "years": [2023], "priority": 1}
		]}`)
	script.set("Process this financial query completely",
		`{"companies": [], "query_type": "specific_value", "augmented_query": "revenue fiscal 2023 net sales"}`)

	orch, _ := newTestOrchestrator(t, script)

	state, err := orch.Run(context.Background(),
		models.Query{Text: "What was Apple's revenue in 2023 and Microsoft's revenue in 2023?", UserID: "u1", SessionID: "s1"}, nil)
	require.NoError(t, err)

	assert.True(t, state.IsDecomposed)
	require.Len(t, state.SubQueries, 2)
	assert.True(t, state.RetrievalSufficient)
	assert.GreaterOrEqual(t, len(state.SubQueryResults["apple_revenue"]), 2)
	assert.GreaterOrEqual(t, len(state.SubQueryResults["microsoft_revenue"]), 2)
	require.NotNil(t, state.Response)
}

func TestRetrievalLoopStopsAtAttemptBudget(t *testing.T) {
	script := defaultScript()
	script.set("retrieval quality judge",
		`{"sufficient": false, "gaps": ["missing fiscal 2021 figures"]}`,
		`{"sufficient": false, "gaps": ["missing fiscal 2020 figures"]}`,
		`{"sufficient": false, "gaps": ["missing fiscal 2019 figures"]}`)

	orch, _ := newTestOrchestrator(t, script)

	state, err := orch.Run(context.Background(),
		models.Query{Text: "Apple revenue history", UserID: "u1", SessionID: "s1"}, nil)
	require.NoError(t, err)

	assert.True(t, state.RetrievalSufficient)
	assert.Equal(t, 3, state.RetrievalAttempts)
	require.NotNil(t, state.Response)
}

func TestRetrievalLoopStopsWhenGapsUnchanged(t *testing.T) {
	script := defaultScript()
	script.set("retrieval quality judge",
		`{"sufficient": false, "gaps": ["missing fiscal 2021 figures"]}`)

	orch, _ := newTestOrchestrator(t, script)

	state, err := orch.Run(context.Background(),
		models.Query{Text: "Apple revenue history", UserID: "u1", SessionID: "s1"}, nil)
	require.NoError(t, err)

	assert.True(t, state.RetrievalSufficient)
	assert.Equal(t, 2, state.RetrievalAttempts)
}

func TestChartSelfHeal(t *testing.T) {
	script := defaultScript()
	script.set("producing the final answer",
		"Revenue trend shown below.\n\n[CHART:1]\n\nApple revenue declined slightly in 2023.")
	script.set("Chart.js expert", `{"type": "scatter", "data": {}}`)

	orch, _ := newTestOrchestrator(t, script)

	state, err := orch.Run(context.Background(),
		models.Query{Text: "Show Apple's revenue trend", UserID: "u1", SessionID: "s1"}, nil)
	require.NoError(t, err)

	assert.True(t, state.ResponseValid)
	assert.Equal(t, 1, state.SelfHealAttempts)
	require.Len(t, state.Response.Charts, 1)
	assert.Equal(t, "line", state.Response.Charts[0].ChartType())
}

func TestChartForceAcceptAfterHealBudget(t *testing.T) {
	script := defaultScript()
	script.set("producing the final answer",
		"Revenue trend shown below.\n\n[CHART:1]\n\nApple revenue declined slightly in 2023.")
	script.set("Chart.js expert", `{"type": "scatter", "data": {}}`)
	script.set("repair broken Chart.js", `{"type": "scatter", "data": {}}`)

	orch, _ := newTestOrchestrator(t, script)

	state, err := orch.Run(context.Background(),
		models.Query{Text: "Show Apple's revenue trend", UserID: "u1", SessionID: "s1"}, nil)
	require.NoError(t, err)

	assert.True(t, state.ResponseValid)
	assert.Equal(t, 2, state.SelfHealAttempts)
	assert.NotEmpty(t, state.ValidationErrors)
	require.NotNil(t, state.Response)
}

func TestCancelledRunWritesNoMemory(t *testing.T) {
	orch, repo := newTestOrchestrator(t, defaultScript())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	state, err := orch.Run(ctx,
		models.Query{Text: "Apple revenue", UserID: "u1", SessionID: "s1"}, nil)
	require.Error(t, err)
	require.NotNil(t, state)

	orch.Close()
	stored, err := repo.GetBySession(context.Background(), "u1", "s1")
	require.NoError(t, err)
	assert.Empty(t, stored)
}

func TestEmptyRetrievalStillAnswers(t *testing.T) {
	script := defaultScript()
	orch, _ := newTestOrchestrator(t, script)

	state, err := orch.Run(context.Background(),
		models.Query{Text: "Apple revenue", UserID: "nobody", SessionID: "s1"}, nil)
	require.NoError(t, err)

	assert.Empty(t, state.Retrieved)
	require.NotNil(t, state.Analysis)
	assert.Contains(t, state.Analysis.Analysis, "No retrieved context")
	require.NotNil(t, state.Response)
	assert.Empty(t, state.Response.Sources)
}

func TestMissingDataPrefixesAnswer(t *testing.T) {
	script := defaultScript()
	script.set("financial analyst",
		`{"metric": "", "analysis": "I cannot find Apple's 2019 revenue in the excerpts."}`)

	orch, _ := newTestOrchestrator(t, script)

	state, err := orch.Run(context.Background(),
		models.Query{Text: "What was Apple's revenue in 2023?", UserID: "u1", SessionID: "s1"}, nil)
	require.NoError(t, err)

	require.NotNil(t, state.Response)
	assert.True(t, strings.HasPrefix(state.Response.Text,
		"I cannot find this information in the available financial reports."))
}
