package mail

import (
	"context"

	"github.com/sfioritto/inbox-triage/pkg/logging"
)

// Retriever is the narrow interface the pipeline needs from a mail
// provider. Implementations are expected to pre-truncate bodies.
type Retriever interface {
	// AccountName identifies the account this retriever reads from.
	AccountName() string

	// Search returns lightweight references matching the provider query.
	Search(ctx context.Context, query string, limit int64) ([]Ref, error)

	// FetchDetails resolves a reference into a full conversation.
	FetchDetails(ctx context.Context, id string) (Conversation, error)
}

// FetchPool gathers the conversation pool across all configured accounts.
// A failing or missing account contributes nothing rather than failing the
// run; with zero retrievers the pool is simply empty.
func FetchPool(ctx context.Context, retrievers []Retriever, query string, limit int64) []Conversation {
	logger := logging.GetLogger()
	var pool []Conversation

	for _, r := range retrievers {
		refs, err := r.Search(ctx, query, limit)
		if err != nil {
			logger.Warn(ctx, "account %s: search failed, skipping: %v", r.AccountName(), err)
			continue
		}

		fetched := 0
		for _, ref := range refs {
			conv, err := r.FetchDetails(ctx, ref.ID)
			if err != nil {
				logger.Warn(ctx, "account %s: fetch of %s failed, skipping: %v", r.AccountName(), ref.ID, err)
				continue
			}
			if conv.Snippet == "" {
				conv.Snippet = ref.Snippet
			}
			pool = append(pool, conv)
			fetched++
		}

		logger.Info(ctx, "account %s: fetched %d of %d conversations", r.AccountName(), fetched, len(refs))
	}

	return pool
}
