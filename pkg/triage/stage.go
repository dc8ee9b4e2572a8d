package triage

import (
	"context"
	"strings"

	"github.com/sfioritto/inbox-triage/pkg/errors"
	"github.com/sfioritto/inbox-triage/pkg/logging"
	"github.com/sfioritto/inbox-triage/pkg/mail"
	"github.com/sfioritto/inbox-triage/pkg/oracle"
)

// Decision records one claimed conversation within a stage result.
type Decision struct {
	ConversationID string `json:"conversation_id"`
	Summary        string `json:"summary,omitempty"`
}

// StageResult holds the claims one stage produced for one category.
type StageResult struct {
	Category  Category   `json:"category"`
	Decisions []Decision `json:"decisions"`

	// Dropped counts oracle output entries that named a dangling ID, an
	// already-claimed ID, or a duplicate. Oracle output is advisory, so
	// these are excluded rather than fatal, but the count is kept as an
	// oracle-quality signal.
	Dropped int `json:"dropped,omitempty"`
}

// Stage is one categorization step. It receives an immutable snapshot of
// the unclaimed pool plus a read-only view of what is already claimed,
// and returns claims for one or more categories. Stages never mutate the
// registry themselves; the driver applies their results.
type Stage interface {
	Name() string
	Run(ctx context.Context, pool []mail.Conversation, claimed func(string) bool) ([]StageResult, error)
}

// poolIndex builds an ID set for dangling-ID detection.
func poolIndex(pool []mail.Conversation) map[string]struct{} {
	idx := make(map[string]struct{}, len(pool))
	for _, conv := range pool {
		idx[conv.ID] = struct{}{}
	}
	return idx
}

// batchDecision is the oracle output shape for the multi-label-per-batch
// style: one entry per conversation in the prompt.
type batchDecision struct {
	ID         string `json:"id"`
	IsCategory bool   `json:"is_category"`
	Summary    string `json:"summary"`
}

// BatchStage implements the multi-label-per-batch style: one oracle call
// covering the entire unclaimed pool, returning a per-conversation yes/no
// for a single category.
type BatchStage struct {
	Category Category
	Oracle   oracle.Oracle

	// Prompt renders the unclaimed pool into the stage's prompt text.
	Prompt func([]mail.Conversation) string

	// RequireSummary rejects positive matches whose summary is empty, a
	// defense against half-filled oracle output.
	RequireSummary bool
}

func (s *BatchStage) Name() string { return string(s.Category) }

func (s *BatchStage) Run(ctx context.Context, pool []mail.Conversation, claimed func(string) bool) ([]StageResult, error) {
	result := StageResult{Category: s.Category, Decisions: []Decision{}}

	// Degenerate fast path: nothing unclaimed, no oracle call.
	if len(pool) == 0 {
		return []StageResult{result}, nil
	}

	logger := logging.GetLogger()

	var raw []batchDecision
	if err := s.Oracle.Classify(ctx, s.Prompt(pool), &raw); err != nil {
		return nil, errors.WithFields(
			errors.Wrap(err, errors.StageExecutionFailed, "categorizer stage failed"),
			errors.Fields{"stage": s.Name(), "pool_size": len(pool)})
	}

	idx := poolIndex(pool)
	seen := make(map[string]struct{}, len(raw))
	for _, d := range raw {
		if !d.IsCategory {
			continue
		}
		if s.RequireSummary && strings.TrimSpace(d.Summary) == "" {
			continue
		}
		if _, inPool := idx[d.ID]; !inPool || claimed(d.ID) {
			result.Dropped++
			continue
		}
		if _, dup := seen[d.ID]; dup {
			result.Dropped++
			continue
		}
		seen[d.ID] = struct{}{}
		result.Decisions = append(result.Decisions, Decision{ConversationID: d.ID, Summary: d.Summary})
	}

	if result.Dropped > 0 {
		logger.Warn(ctx, "stage %s: dropped %d dangling or duplicate oracle IDs", s.Name(), result.Dropped)
	}
	logger.Info(ctx, "stage %s: claimed %d of %d unclaimed conversations", s.Name(), len(result.Decisions), len(pool))

	return []StageResult{result}, nil
}

// eachDecision is the oracle output shape for the
// single-label-per-conversation style: exactly one category out of a
// closed enum that spans all of the stage's buckets, plus skip.
type eachDecision struct {
	Category Category `json:"category"`
	Summary  string   `json:"summary"`
}

// ClassifyEachStage implements the single-label-per-conversation style:
// one oracle call per conversation, batched, with claiming done by
// grouping on the returned category. Conversations the oracle marks skip
// stay unclaimed and never reach the digest.
type ClassifyEachStage struct {
	StageName string

	// Categories is the closed enum this stage may claim into, in the
	// order results should be reported.
	Categories []Category

	Oracle  oracle.Oracle
	Batcher Batcher

	// Prompt renders one conversation into its classification prompt.
	Prompt func(mail.Conversation) string
}

func (s *ClassifyEachStage) Name() string { return s.StageName }

func (s *ClassifyEachStage) Run(ctx context.Context, pool []mail.Conversation, claimed func(string) bool) ([]StageResult, error) {
	byCategory := make(map[Category]*StageResult, len(s.Categories))
	results := make([]StageResult, 0, len(s.Categories))
	for _, c := range s.Categories {
		byCategory[c] = &StageResult{Category: c, Decisions: []Decision{}}
	}

	flatten := func() []StageResult {
		for _, c := range s.Categories {
			results = append(results, *byCategory[c])
		}
		return results
	}

	if len(pool) == 0 {
		return flatten(), nil
	}

	logger := logging.GetLogger()
	allowed := make(map[Category]struct{}, len(s.Categories))
	for _, c := range s.Categories {
		allowed[c] = struct{}{}
	}

	decisions := make([]eachDecision, len(pool))
	err := s.Batcher.Run(ctx, len(pool), func(ctx context.Context, i int) error {
		return s.Oracle.Classify(ctx, s.Prompt(pool[i]), &decisions[i])
	})
	if err != nil {
		return nil, errors.WithFields(
			errors.Wrap(err, errors.StageExecutionFailed, "categorizer stage failed"),
			errors.Fields{"stage": s.Name(), "pool_size": len(pool)})
	}

	dropped := 0
	claimedCount := 0
	for i, conv := range pool {
		d := decisions[i]
		if d.Category == CategorySkip {
			continue
		}
		if _, ok := allowed[d.Category]; !ok {
			dropped++
			continue
		}
		if claimed(conv.ID) {
			dropped++
			continue
		}
		target := byCategory[d.Category]
		target.Decisions = append(target.Decisions, Decision{ConversationID: conv.ID, Summary: d.Summary})
		claimedCount++
	}

	if dropped > 0 {
		logger.Warn(ctx, "stage %s: dropped %d off-enum or already-claimed oracle results", s.Name(), dropped)
		// Attribute the drops to the first bucket so the signal survives
		// aggregation.
		byCategory[s.Categories[0]].Dropped = dropped
	}
	logger.Info(ctx, "stage %s: claimed %d of %d unclaimed conversations", s.Name(), claimedCount, len(pool))

	return flatten(), nil
}
