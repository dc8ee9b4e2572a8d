package triage

import (
	"context"
	stderrors "errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sfioritto/inbox-triage/pkg/mail"
)

func neverClaimed(string) bool { return false }

func testPool(ids ...string) []mail.Conversation {
	pool := make([]mail.Conversation, len(ids))
	for i, id := range ids {
		pool[i] = mail.Conversation{ID: id, Subject: "subject " + id}
	}
	return pool
}

func TestBatchStageClaimsPositives(t *testing.T) {
	o := &fakeOracle{classify: func(prompt string, out interface{}) error {
		return respond(out, []map[string]interface{}{
			{"id": "e1", "is_category": true, "summary": "order shipped"},
			{"id": "e2", "is_category": false, "summary": ""},
			{"id": "e3", "is_category": true, "summary": "order delivered"},
		})
	}}
	stage := &BatchStage{Category: CategoryAmazon, Oracle: o, Prompt: amazonPrompt, RequireSummary: true}

	results, err := stage.Run(context.Background(), testPool("e1", "e2", "e3"), neverClaimed)
	require.NoError(t, err)
	require.Len(t, results, 1)

	result := results[0]
	assert.Equal(t, CategoryAmazon, result.Category)
	require.Len(t, result.Decisions, 2)
	assert.Equal(t, "e1", result.Decisions[0].ConversationID)
	assert.Equal(t, "order shipped", result.Decisions[0].Summary)
	assert.Equal(t, "e3", result.Decisions[1].ConversationID)
	assert.Zero(t, result.Dropped)
	assert.Equal(t, 1, o.callCount())
}

func TestBatchStageEmptyPoolFastPath(t *testing.T) {
	o := &fakeOracle{}
	stage := &BatchStage{Category: CategoryAmazon, Oracle: o, Prompt: amazonPrompt}

	results, err := stage.Run(context.Background(), nil, neverClaimed)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Empty(t, results[0].Decisions)
	// No oracle call at all for an empty unclaimed pool.
	assert.Zero(t, o.callCount())
}

func TestBatchStageDropsDanglingAndClaimedIDs(t *testing.T) {
	o := &fakeOracle{classify: func(prompt string, out interface{}) error {
		return respond(out, []map[string]interface{}{
			{"id": "e1", "is_category": true, "summary": "ok"},
			{"id": "ghost", "is_category": true, "summary": "not in the pool"},
			{"id": "prior", "is_category": true, "summary": "claimed earlier"},
			{"id": "e1", "is_category": true, "summary": "duplicate row"},
		})
	}}
	stage := &BatchStage{Category: CategoryReceipts, Oracle: o, Prompt: receiptsPrompt}

	claimed := func(id string) bool { return id == "prior" }
	// "prior" is not in the unclaimed pool either way; the stage must
	// treat both it and "ghost" as advisory noise.
	results, err := stage.Run(context.Background(), testPool("e1", "e2"), claimed)
	require.NoError(t, err)

	result := results[0]
	require.Len(t, result.Decisions, 1)
	assert.Equal(t, "e1", result.Decisions[0].ConversationID)
	assert.Equal(t, 3, result.Dropped)
}

func TestBatchStageRequireSummaryFiltersEmpty(t *testing.T) {
	o := &fakeOracle{classify: func(prompt string, out interface{}) error {
		return respond(out, []map[string]interface{}{
			{"id": "e1", "is_category": true, "summary": "  "},
			{"id": "e2", "is_category": true, "summary": "real summary"},
		})
	}}
	stage := &BatchStage{Category: CategoryChildren, Oracle: o, Prompt: childrenPrompt, RequireSummary: true}

	results, err := stage.Run(context.Background(), testPool("e1", "e2"), neverClaimed)
	require.NoError(t, err)
	require.Len(t, results[0].Decisions, 1)
	assert.Equal(t, "e2", results[0].Decisions[0].ConversationID)
	// A half-filled positive is treated as a negative, not as oracle
	// noise.
	assert.Zero(t, results[0].Dropped)
}

func TestBatchStagePropagatesOracleFailure(t *testing.T) {
	boom := stderrors.New("invalid api key")
	o := &fakeOracle{classify: func(prompt string, out interface{}) error {
		return boom
	}}
	stage := &BatchStage{Category: CategoryAmazon, Oracle: o, Prompt: amazonPrompt}

	_, err := stage.Run(context.Background(), testPool("e1"), neverClaimed)
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "categorizer stage failed")
}

func TestBatchStagePromptContainsPool(t *testing.T) {
	o := &fakeOracle{classify: func(prompt string, out interface{}) error {
		return respond(out, []map[string]interface{}{})
	}}
	stage := &BatchStage{Category: CategoryNewsletters, Oracle: o, Prompt: newslettersPrompt}

	_, err := stage.Run(context.Background(), testPool("e7", "e8"), neverClaimed)
	require.NoError(t, err)

	prompts := o.allPrompts()
	require.Len(t, prompts, 1)
	assert.Contains(t, prompts[0], "id: e7")
	assert.Contains(t, prompts[0], "id: e8")
}

func TestClassifyEachStageGroupsByCategory(t *testing.T) {
	o := &fakeOracle{classify: func(prompt string, out interface{}) error {
		switch {
		case strings.Contains(prompt, "id: n1"):
			return respond(out, map[string]string{"category": "shipping", "summary": "package en route"})
		case strings.Contains(prompt, "id: n2"):
			return respond(out, map[string]string{"category": "security_alerts", "summary": "new device sign-in"})
		case strings.Contains(prompt, "id: n3"):
			return respond(out, map[string]string{"category": "skip", "summary": "note from grandma"})
		case strings.Contains(prompt, "id: n4"):
			return respond(out, map[string]string{"category": "shipping", "summary": "delivered"})
		}
		return stderrors.New("unexpected prompt")
	}}
	stage := &ClassifyEachStage{
		StageName:  "notifications",
		Categories: notificationEnum,
		Oracle:     o,
		Batcher:    Batcher{Size: 2},
		Prompt:     notificationPrompt,
	}

	results, err := stage.Run(context.Background(), testPool("n1", "n2", "n3", "n4"), neverClaimed)
	require.NoError(t, err)
	// One result per bucket in the closed enum.
	require.Len(t, results, len(notificationEnum))

	byCategory := make(map[Category]StageResult)
	for _, r := range results {
		byCategory[r.Category] = r
	}

	shipping := byCategory[CategoryShipping]
	require.Len(t, shipping.Decisions, 2)
	assert.Equal(t, "n1", shipping.Decisions[0].ConversationID)
	assert.Equal(t, "n4", shipping.Decisions[1].ConversationID)

	require.Len(t, byCategory[CategorySecurityAlerts].Decisions, 1)

	// The skipped conversation lands in no bucket.
	total := 0
	for _, r := range results {
		total += len(r.Decisions)
	}
	assert.Equal(t, 3, total)

	// One call per conversation.
	assert.Equal(t, 4, o.callCount())
}

func TestClassifyEachStageDropsOffEnumAnswers(t *testing.T) {
	o := &fakeOracle{classify: func(prompt string, out interface{}) error {
		return respond(out, map[string]string{"category": "llama-farming", "summary": "??"})
	}}
	stage := &ClassifyEachStage{
		StageName:  "notifications",
		Categories: notificationEnum,
		Oracle:     o,
		Batcher:    Batcher{Size: 5},
		Prompt:     notificationPrompt,
	}

	results, err := stage.Run(context.Background(), testPool("n1"), neverClaimed)
	require.NoError(t, err)

	total := 0
	dropped := 0
	for _, r := range results {
		total += len(r.Decisions)
		dropped += r.Dropped
	}
	assert.Zero(t, total)
	assert.Equal(t, 1, dropped)
}

func TestClassifyEachStageEmptyPool(t *testing.T) {
	o := &fakeOracle{}
	stage := &ClassifyEachStage{
		StageName:  "notifications",
		Categories: notificationEnum,
		Oracle:     o,
		Batcher:    DefaultBatcher(),
		Prompt:     notificationPrompt,
	}

	results, err := stage.Run(context.Background(), nil, neverClaimed)
	require.NoError(t, err)
	require.Len(t, results, len(notificationEnum))
	assert.Zero(t, o.callCount())
}
