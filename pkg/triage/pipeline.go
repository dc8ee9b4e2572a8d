package triage

import (
	"context"

	"github.com/google/uuid"

	"github.com/sfioritto/inbox-triage/pkg/errors"
	"github.com/sfioritto/inbox-triage/pkg/logging"
	"github.com/sfioritto/inbox-triage/pkg/mail"
	"github.com/sfioritto/inbox-triage/pkg/oracle"
)

// Pipeline is the triage driver. It owns the claim registry and runs the
// stages strictly in order: each stage receives an immutable snapshot of
// what remains unclaimed, and only the driver applies claims between
// stages. The pipeline is deterministic given the oracle's responses.
type Pipeline struct {
	stages      []Stage
	enricher    *Enricher
	extractor   *ActionExtractor
	checkpoints *CheckpointStore
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithCheckpoints enables per-stage result persistence.
func WithCheckpoints(store *CheckpointStore) Option {
	return func(p *Pipeline) {
		p.checkpoints = store
	}
}

// WithStages overrides the canonical stage sequence. Intended for tests
// and for callers that tune category ordering deliberately.
func WithStages(stages []Stage) Option {
	return func(p *Pipeline) {
		p.stages = stages
	}
}

// New builds a pipeline with the canonical stages, enricher, and action
// extractor, all backed by the same oracle.
func New(o oracle.Oracle, b Batcher, opts ...Option) *Pipeline {
	p := &Pipeline{
		stages:    DefaultStages(o, b),
		enricher:  NewEnricher(o),
		extractor: NewActionExtractor(o),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run executes one full triage invocation over the pool. A fatal oracle
// failure in any stage aborts the run with no digest; the original error
// is preserved in the chain so the caller can alert on it.
func (p *Pipeline) Run(ctx context.Context, pool []mail.Conversation) (*Digest, error) {
	runID := uuid.NewString()
	ctx = logging.WithRunID(ctx, runID)
	logger := logging.GetLogger()

	logger.Info(ctx, "triage run starting: %d conversations in pool", len(pool))

	registry := NewClaimRegistry()
	claimedByCategory := make(map[Category][]ClaimedConversation)
	convByID := make(map[string]mail.Conversation, len(pool))
	for _, conv := range pool {
		convByID[conv.ID] = conv
	}

	// Categorization: strictly sequential, each stage sees the shrinking
	// unclaimed remainder of its predecessors.
	for _, stage := range p.stages {
		unclaimed := registry.Unclaimed(pool)
		results, err := stage.Run(ctx, unclaimed, registry.Claimed)
		if err != nil {
			return nil, errors.WithFields(
				errors.Wrap(err, errors.PipelineExecutionFailed, "triage run aborted"),
				errors.Fields{"run_id": runID, "stage": stage.Name()})
		}

		for _, result := range results {
			for _, decision := range result.Decisions {
				// Stages already filter claimed IDs, but the registry is
				// the source of truth; a duplicate here is ignored, never
				// double-claimed.
				if registry.Claimed(decision.ConversationID) {
					continue
				}
				conv, ok := convByID[decision.ConversationID]
				if !ok {
					continue
				}
				registry = registry.Claim(decision.ConversationID)
				claimedByCategory[result.Category] = append(claimedByCategory[result.Category], ClaimedConversation{
					Conversation: conv,
					Summary:      decision.Summary,
				})
			}
		}

		if p.checkpoints != nil {
			if err := p.checkpoints.SaveStage(runID, stage.Name(), results); err != nil {
				// Checkpointing is advisory; a failed save never fails
				// the run.
				logger.Warn(ctx, "checkpoint save failed for stage %s: %v", stage.Name(), err)
			}
		}
	}

	logger.Info(ctx, "categorization complete: %d of %d conversations claimed", registry.Len(), len(pool))

	// Enrichment: per-category, over claimed sets only, concurrent with a
	// shared settle point.
	claimedConvs := make(map[Category][]mail.Conversation, len(claimedByCategory))
	for category, claimed := range claimedByCategory {
		convs := make([]mail.Conversation, len(claimed))
		for i, c := range claimed {
			convs[i] = c.Conversation
		}
		claimedConvs[category] = convs
	}

	enrichment, narratives, err := p.enricher.Run(ctx, claimedConvs)
	if err != nil {
		return nil, errors.WithFields(
			errors.Wrap(err, errors.PipelineExecutionFailed, "triage run aborted during enrichment"),
			errors.Fields{"run_id": runID})
	}

	// Action items: one cross-cutting pass over the union of claimed
	// conversations, in pool order.
	var union []mail.Conversation
	for _, conv := range pool {
		if registry.Claimed(conv.ID) {
			union = append(union, conv)
		}
	}
	actionItems, err := p.extractor.Extract(ctx, union)
	if err != nil {
		return nil, errors.WithFields(
			errors.Wrap(err, errors.PipelineExecutionFailed, "triage run aborted during action-item extraction"),
			errors.Fields{"run_id": runID})
	}

	digest := BuildDigest(claimedByCategory, enrichment, narratives, actionItems)
	digest.RunID = runID
	logger.Info(ctx, "triage run complete: %d claimed, %d action items", digest.TotalClaimed, digest.TotalActionItems)

	return &digest, nil
}
