package triage

import (
	"context"
	"strings"

	"github.com/sfioritto/inbox-triage/pkg/errors"
	"github.com/sfioritto/inbox-triage/pkg/logging"
	"github.com/sfioritto/inbox-triage/pkg/mail"
	"github.com/sfioritto/inbox-triage/pkg/oracle"
)

// ActionItem is one concrete thing the user needs to do, extracted from a
// claimed conversation. ExactQuote carries the verbatim source text that
// justifies the item; downstream consumers should not trust a description
// without it.
type ActionItem struct {
	Description string   `json:"description"`
	ExactQuote  string   `json:"exact_quote"`
	Context     string   `json:"context"`
	Link        string   `json:"link"`
	Steps       []string `json:"steps"`
}

// ActionExtractor runs the cross-cutting action-item pass over the union
// of every claimed conversation, regardless of which category claimed it.
type ActionExtractor struct {
	Oracle oracle.Oracle
}

// NewActionExtractor creates an ActionExtractor backed by the given
// oracle.
func NewActionExtractor(o oracle.Oracle) *ActionExtractor {
	return &ActionExtractor{Oracle: o}
}

// Extract returns action items keyed by conversation ID. Conversations
// without items are absent from the map. Items lacking an exact quote,
// and rows naming IDs outside the input, are dropped.
func (a *ActionExtractor) Extract(ctx context.Context, convs []mail.Conversation) (map[string][]ActionItem, error) {
	out := make(map[string][]ActionItem)
	if len(convs) == 0 {
		return out, nil
	}

	logger := logging.GetLogger()

	var rows []struct {
		ID    string       `json:"id"`
		Items []ActionItem `json:"items"`
	}
	if err := a.Oracle.Classify(ctx, actionItemPrompt(convs), &rows); err != nil {
		return nil, errors.WithFields(
			errors.Wrap(err, errors.StageExecutionFailed, "action-item extraction failed"),
			errors.Fields{"stage": "action_items", "conversations": len(convs)})
	}

	idx := poolIndex(convs)
	dropped := 0
	total := 0
	for _, row := range rows {
		if _, ok := idx[row.ID]; !ok {
			dropped++
			continue
		}
		items := make([]ActionItem, 0, len(row.Items))
		for _, item := range row.Items {
			if strings.TrimSpace(item.ExactQuote) == "" {
				dropped++
				continue
			}
			items = append(items, item)
		}
		if len(items) > 0 {
			out[row.ID] = items
			total += len(items)
		}
	}

	if dropped > 0 {
		logger.Warn(ctx, "action extractor: dropped %d unverifiable or dangling entries", dropped)
	}
	logger.Info(ctx, "action extractor: %d items across %d conversations", total, len(out))

	return out, nil
}
