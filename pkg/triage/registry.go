package triage

import (
	"sort"

	"github.com/sfioritto/inbox-triage/pkg/mail"
)

// ClaimRegistry tracks which conversation IDs have been claimed by a
// stage. It is a value type: Claim returns a new registry rather than
// mutating the receiver, so stages can never reach back into the pool
// they were handed. Only the pipeline driver holds the current registry.
type ClaimRegistry struct {
	claimed map[string]struct{}
}

// NewClaimRegistry returns an empty registry.
func NewClaimRegistry() ClaimRegistry {
	return ClaimRegistry{claimed: map[string]struct{}{}}
}

// Claimed reports whether id has already been claimed.
func (r ClaimRegistry) Claimed(id string) bool {
	_, ok := r.claimed[id]
	return ok
}

// Claim returns a new registry with ids added. Claiming an ID that is
// already present is an idempotent no-op, not an error.
func (r ClaimRegistry) Claim(ids ...string) ClaimRegistry {
	next := make(map[string]struct{}, len(r.claimed)+len(ids))
	for id := range r.claimed {
		next[id] = struct{}{}
	}
	for _, id := range ids {
		next[id] = struct{}{}
	}
	return ClaimRegistry{claimed: next}
}

// Unclaimed filters pool to the conversations not yet claimed, preserving
// pool order.
func (r ClaimRegistry) Unclaimed(pool []mail.Conversation) []mail.Conversation {
	out := make([]mail.Conversation, 0, len(pool))
	for _, conv := range pool {
		if !r.Claimed(conv.ID) {
			out = append(out, conv)
		}
	}
	return out
}

// Len returns the number of claimed IDs.
func (r ClaimRegistry) Len() int {
	return len(r.claimed)
}

// IDs returns the claimed IDs in sorted order.
func (r ClaimRegistry) IDs() []string {
	ids := make([]string, 0, len(r.claimed))
	for id := range r.claimed {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
