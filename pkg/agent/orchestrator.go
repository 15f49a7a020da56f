package agent

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/finsight-ai/ragengine/pkg/embedding"
	"github.com/finsight-ai/ragengine/pkg/llm"
	"github.com/finsight-ai/ragengine/pkg/memory"
	"github.com/finsight-ai/ragengine/pkg/models"
	"github.com/finsight-ai/ragengine/pkg/query"
	"github.com/finsight-ai/ragengine/pkg/retrieval"
)

// Deps are the capabilities the orchestrator composes.
type Deps struct {
	Processor  *query.Processor
	Decomposer *query.Decomposer
	Engine     *retrieval.Engine
	Embedder   embedding.Embedder
	Memory     *memory.Manager
	LLM        llm.Client
}

// Orchestrator runs the retrieval, analysis and generation stages in
// sequence for each query. Safe for concurrent Run calls; every run owns
// its own State.
type Orchestrator struct {
	processor  *query.Processor
	decomposer *query.Decomposer
	engine     *retrieval.Engine
	embedder   embedding.Embedder
	memory     *memory.Manager
	llm        llm.Client
	memories   *memoryWorker
}

// New wires an Orchestrator and starts its background memory worker.
// Call Close to flush pending memory writes.
func New(deps Deps) *Orchestrator {
	return &Orchestrator{
		processor:  deps.Processor,
		decomposer: deps.Decomposer,
		engine:     deps.Engine,
		embedder:   deps.Embedder,
		memory:     deps.Memory,
		llm:        deps.LLM,
		memories:   newMemoryWorker(deps.Memory, deps.LLM, defaultMemoryQueueSize),
	}
}

// Run executes the full workflow for one query. The returned State is
// always non-nil: when a stage fails, the partial state up to the failure
// is returned alongside the error.
func (o *Orchestrator) Run(ctx context.Context, q models.Query, history []models.Message) (*State, error) {
	state := NewState(q, history)

	log.Info().Str("user_id", q.UserID).Str("session_id", q.SessionID).
		Str("query", q.Text).Msg("workflow started")

	if err := o.runRetrievalStage(ctx, state); err != nil {
		state.Err = err
		log.Error().Err(err).Msg("retrieval stage failed")
		return state, err
	}

	if err := o.runAnalysisStage(ctx, state); err != nil {
		state.Err = err
		log.Error().Err(err).Msg("analysis stage failed")
		return state, err
	}

	if err := o.runGenerationStage(ctx, state); err != nil {
		state.Err = err
		log.Error().Err(err).Msg("generation stage failed")
		return state, err
	}

	// A cancelled run must not write memory for a response the caller
	// never saw.
	if ctx.Err() == nil {
		o.memories.enqueue(memoryTaskFromState(state))
	}

	log.Info().Bool("response", state.Response != nil).
		Int("chunks", len(state.Retrieved)).Msg("workflow completed")
	return state, nil
}

// Close stops the background memory worker after draining queued writes.
func (o *Orchestrator) Close() {
	o.memories.close()
}
