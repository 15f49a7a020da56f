package agent

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/finsight-ai/ragengine/pkg/config"
	"github.com/finsight-ai/ragengine/pkg/llm"
	"github.com/finsight-ai/ragengine/pkg/models"
	"github.com/finsight-ai/ragengine/pkg/query"
	"github.com/finsight-ai/ragengine/pkg/retrieval"
)

// queryPlan is the planning node result: either a processed single query
// or a set of augmented sub-queries.
type queryPlan struct {
	decomposed bool
	subQueries []models.SubQuery
	processed  *models.ProcessedQuery
}

// runRetrievalStage checks memory and plans the query concurrently, then
// loops retrieve, validate, refine until the evidence is sufficient or
// the attempt budget runs out.
func (o *Orchestrator) runRetrievalStage(ctx context.Context, s *State) error {
	var history []models.Conversation
	var plan queryPlan

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		// Memory context is optional; lookup failures already degrade to
		// an empty result inside the manager.
		history = o.memory.RelevantMemory(gctx, s.UserID, s.Query, 0)
		return nil
	})
	g.Go(func() error {
		var err error
		plan, err = o.planQuery(gctx, s.Query)
		return err
	})
	if err := g.Wait(); err != nil {
		return err
	}

	s.RelevantHistory = history
	s.IsDecomposed = plan.decomposed
	s.SubQueries = plan.subQueries
	s.Processed = plan.processed

	log.Info().Bool("decomposed", s.IsDecomposed).Int("sub_queries", len(s.SubQueries)).
		Int("relevant_history", len(s.RelevantHistory)).Msg("query planned")

	for {
		if err := o.retrieve(ctx, s); err != nil {
			return err
		}
		o.validate(ctx, s)
		if s.RetrievalSufficient {
			return nil
		}
		o.refine(ctx, s)
		if s.RetrievalSufficient {
			return nil
		}
	}
}

// planQuery decomposes the query when it is compound, augmenting each
// sub-query for retrieval, and otherwise processes it as a single query.
func (o *Orchestrator) planQuery(ctx context.Context, queryText string) (queryPlan, error) {
	decomposition := o.decomposer.Decompose(ctx, queryText)

	if decomposition.NeedsDecomposition {
		subQueries := decomposition.SubQueries
		for i := range subQueries {
			sq := &subQueries[i]
			processed := o.processor.Augment(ctx, sq.Text, subQueryOverrides(*sq))
			sq.AugmentedQuery = processed.AugmentedQuery
		}
		return queryPlan{decomposed: true, subQueries: subQueries}, nil
	}

	processed, err := o.processor.Process(ctx, queryText, query.Overrides{})
	if err != nil {
		return queryPlan{}, fmt.Errorf("query processing failed: %w", err)
	}
	return queryPlan{processed: processed}, nil
}

func subQueryOverrides(sq models.SubQuery) query.Overrides {
	var ov query.Overrides
	if len(sq.Companies) == 1 {
		ov.Company = sq.Companies[0]
	}
	if len(sq.Years) == 1 {
		ov.Year = sq.Years[0]
	}
	return ov
}

func (o *Orchestrator) retrieve(ctx context.Context, s *State) error {
	if s.IsDecomposed {
		merged, byIntent, err := o.engine.RetrieveSubQueries(ctx, s.SubQueries, s.UserID)
		if err != nil {
			return err
		}
		s.Retrieved = merged
		s.SubQueryResults = byIntent
		log.Info().Int("chunks", len(merged)).Msg("decomposed retrieval complete")
		return nil
	}

	processed := s.Processed
	topK := config.DefaultTopK
	if n := len(processed.Companies); n > 1 && n*config.MultiCompanyTopKMultiplier > topK {
		topK = n * config.MultiCompanyTopKMultiplier
	}

	chunks, err := o.engine.Retrieve(ctx, retrieval.Request{
		QueryText: processed.AugmentedQuery,
		Vector:    processed.Embedding,
		UserID:    s.UserID,
		TopK:      topK,
		Filters:   processed.Filters,
	})
	if err != nil {
		return err
	}
	s.Retrieved = chunks

	if len(chunks) > 0 {
		log.Info().Int("chunks", len(chunks)).Float64("top_score", chunks[0].Score).
			Str("top_company", chunks[0].Company()).Msg("retrieval complete")
	} else {
		log.Warn().Msg("retrieval returned no chunks")
	}
	return nil
}

// validate judges evidence sufficiency. Decomposed queries use a fixed
// per-intent coverage rule; single queries ask the model. Sufficiency is
// forced once the attempt budget is spent or a refinement made no
// progress on the gap set.
func (o *Orchestrator) validate(ctx context.Context, s *State) {
	s.RetrievalAttempts++

	if s.IsDecomposed {
		var gaps []string
		for _, sq := range s.SubQueries {
			n := len(s.SubQueryResults[sq.Intent])
			if n < 2 {
				gaps = append(gaps, fmt.Sprintf(
					"sub-query %q (intent: %s): insufficient results (%d chunks)", sq.Text, sq.Intent, n))
			}
		}
		s.Gaps = gaps
		s.RetrievalSufficient = len(gaps) == 0 || s.RetrievalAttempts >= config.MaxRetrievalAttempts
		log.Info().Bool("sufficient", s.RetrievalSufficient).Int("gaps", len(gaps)).
			Int("attempts", s.RetrievalAttempts).Msg("decomposed validation")
		return
	}

	messages := []models.Message{
		{Role: models.RoleSystem, Content: validationSystemPrompt, Timestamp: time.Now()},
		{Role: models.RoleUser, Content: validationPrompt(s.Query, s.Retrieved), Timestamp: time.Now()},
	}
	result, err := llm.Structured[models.ValidationResult](ctx, o.llm, messages, llm.ExtractionOptions())
	if err != nil {
		// The evidence we already have beats another guess at the gaps.
		s.RetrievalSufficient = len(s.Retrieved) > 0 || s.RetrievalAttempts >= config.MaxRetrievalAttempts
		s.Gaps = nil
		log.Warn().Err(err).Bool("sufficient", s.RetrievalSufficient).Msg("validation failed")
		return
	}

	sufficient := result.Sufficient
	if sameGapSet(s.previousGaps, result.Gaps) {
		log.Warn().Msg("validation gaps unchanged, stopping refinement")
		sufficient = true
	}
	if s.RetrievalAttempts >= config.MaxRetrievalAttempts {
		log.Warn().Int("attempts", s.RetrievalAttempts).Msg("retrieval attempt budget spent")
		sufficient = true
	}

	s.RetrievalSufficient = sufficient
	s.Gaps = result.Gaps
	s.previousGaps = result.Gaps
	log.Info().Bool("sufficient", sufficient).Strs("gaps", result.Gaps).
		Int("attempts", s.RetrievalAttempts).Msg("validation complete")
}

// refine rewrites the query (or the gapped sub-queries) for another
// retrieval pass.
func (o *Orchestrator) refine(ctx context.Context, s *State) {
	if s.RetrievalAttempts >= config.MaxRetrievalAttempts {
		s.RetrievalSufficient = true
		return
	}

	if s.IsDecomposed {
		for i := range s.SubQueries {
			sq := &s.SubQueries[i]
			if !subQueryHasGap(*sq, s.Gaps) {
				continue
			}
			processed := o.processor.Augment(ctx, sq.Text, subQueryOverrides(*sq))
			sq.AugmentedQuery = processed.AugmentedQuery
			log.Info().Str("intent", sq.Intent).Str("augmented", sq.AugmentedQuery).
				Msg("sub-query refined")
		}
		return
	}

	if s.Processed == nil {
		s.RetrievalSufficient = true
		return
	}

	refined := o.processor.Refine(ctx, s.Processed, s.Gaps)
	s.Processed.AugmentedQuery = refined

	// Keep the previous vector when re-embedding fails; the keyword side
	// of the hybrid score still picks up the refinement.
	if vec, err := o.embedder.EmbedQuery(ctx, refined); err == nil {
		s.Processed.Embedding = vec
	} else {
		log.Warn().Err(err).Msg("failed to embed refined query")
	}
	log.Info().Str("refined", refined).Msg("query refined")
}

func subQueryHasGap(sq models.SubQuery, gaps []string) bool {
	for _, gap := range gaps {
		if containsFold(gap, sq.Intent) || containsFold(gap, sq.Text) {
			return true
		}
	}
	return false
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
