// Package report shapes a finished digest for the downstream rendering,
// notification, and archive-confirmation collaborators. Everything here
// is serialization-only: the obligation to those collaborators is a
// stable JSON shape, not behavior.
package report

import (
	"encoding/json"
	"time"

	"github.com/sfioritto/inbox-triage/pkg/mail"
	"github.com/sfioritto/inbox-triage/pkg/triage"
)

// SelectionItem is one claimed conversation offered for archiving. The
// underlying message IDs allow thread-granularity archiving where the
// provider distinguishes them.
type SelectionItem struct {
	ConversationID string   `json:"conversation_id"`
	MessageIDs     []string `json:"message_ids,omitempty"`
}

// Selection groups claimed conversations by originating account, so a
// downstream confirmation step can archive only the subset a human
// approved, against the right account.
type Selection map[string][]SelectionItem

// Report is the full hand-off structure.
type Report struct {
	RunID       string        `json:"run_id"`
	GeneratedAt time.Time     `json:"generated_at"`
	Digest      triage.Digest `json:"digest"`
	Selection   Selection     `json:"selection"`
}

// Build assembles a report from a digest and the pool it was computed
// over. IDs in the digest that are no longer in the pool are skipped.
func Build(digest triage.Digest, pool []mail.Conversation) Report {
	byID := make(map[string]mail.Conversation, len(pool))
	for _, conv := range pool {
		byID[conv.ID] = conv
	}

	selection := make(Selection)
	for _, id := range digest.ClaimedIDs {
		conv, ok := byID[id]
		if !ok {
			continue
		}
		selection[conv.AccountName] = append(selection[conv.AccountName], SelectionItem{
			ConversationID: conv.ID,
			MessageIDs:     conv.MessageIDs,
		})
	}

	return Report{
		RunID:       digest.RunID,
		GeneratedAt: time.Now().UTC(),
		Digest:      digest,
		Selection:   selection,
	}
}

// Marshal renders the report as indented JSON.
func (r Report) Marshal() ([]byte, error) {
	return json.MarshalIndent(r, "", "  ")
}
