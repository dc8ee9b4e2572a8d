package triage

import (
	"github.com/sfioritto/inbox-triage/pkg/mail"
)

// ClaimedConversation pairs a claimed conversation with the summary its
// stage produced and the enrichment its category extracted.
type ClaimedConversation struct {
	Conversation mail.Conversation `json:"conversation"`
	Summary      string            `json:"summary,omitempty"`
	Enrichment   Enrichment        `json:"enrichment,omitempty"`
}

// CategoryDigest is one category's slice of the digest.
type CategoryDigest struct {
	Count         int                   `json:"count"`
	Conversations []ClaimedConversation `json:"conversations"`
}

// Digest is the final aggregated report structure handed to the
// downstream rendering and notification layer. Only claimed conversations
// appear; anything unclaimed is absent entirely.
type Digest struct {
	// RunID identifies the pipeline invocation that produced this digest.
	// Set by the driver; BuildDigest itself stays pure.
	RunID string `json:"run_id,omitempty"`

	Categories map[Category]CategoryDigest `json:"categories"`

	// Narratives holds the aggregate summaries for the narrative
	// categories.
	Narratives map[Category]string `json:"narratives,omitempty"`

	// ActionItems is keyed by conversation ID, independent of category.
	ActionItems map[string][]ActionItem `json:"action_items,omitempty"`

	// ClaimedIDs flattens every claimed conversation ID in category
	// priority order, for select-all semantics downstream.
	ClaimedIDs []string `json:"claimed_ids"`

	TotalClaimed     int `json:"total_claimed"`
	TotalActionItems int `json:"total_action_items"`
}

// BuildDigest assembles the final digest. It is a pure function: no I/O,
// no oracle calls.
func BuildDigest(
	claimedByCategory map[Category][]ClaimedConversation,
	enrichment map[Category]map[string]Enrichment,
	narratives map[Category]string,
	actionItems map[string][]ActionItem,
) Digest {
	digest := Digest{
		Categories:  make(map[Category]CategoryDigest),
		Narratives:  make(map[Category]string, len(narratives)),
		ActionItems: make(map[string][]ActionItem, len(actionItems)),
		ClaimedIDs:  []string{},
	}

	for _, category := range PriorityOrder() {
		claimed := claimedByCategory[category]
		if len(claimed) == 0 {
			continue
		}

		convs := make([]ClaimedConversation, len(claimed))
		copy(convs, claimed)
		if records := enrichment[category]; records != nil {
			for i := range convs {
				if record, ok := records[convs[i].Conversation.ID]; ok {
					convs[i].Enrichment = record
				}
			}
		}

		digest.Categories[category] = CategoryDigest{
			Count:         len(convs),
			Conversations: convs,
		}
		for _, c := range convs {
			digest.ClaimedIDs = append(digest.ClaimedIDs, c.Conversation.ID)
		}
	}

	for category, summary := range narratives {
		if summary != "" {
			digest.Narratives[category] = summary
		}
	}

	for id, items := range actionItems {
		digest.ActionItems[id] = items
		digest.TotalActionItems += len(items)
	}

	digest.TotalClaimed = len(digest.ClaimedIDs)
	return digest
}
