// Package mail defines the conversation model and the retrieval layer that
// pulls conversations from a mail provider ahead of a triage run.
package mail

// Conversation holds the essential information for one inbox conversation
// (a message or thread). It is immutable once fetched; the triage pipeline
// only ever reads it.
type Conversation struct {
	// ID is the provider-assigned conversation identifier, unique within
	// an account.
	ID string `json:"id"`

	Subject string `json:"subject"`
	From    string `json:"from"`

	// Date is a display string taken from the provider headers; it is
	// never parsed by the pipeline.
	Date string `json:"date"`

	// Body is the plain-text body, truncated by the retrieval layer.
	Body    string `json:"body"`
	Snippet string `json:"snippet"`

	// AccountName records which configured mail account this conversation
	// came from, so downstream archiving can target the right account.
	AccountName string `json:"account_name"`

	// MessageIDs lists the underlying message IDs when the conversation is
	// a thread, for message-granularity archiving. Empty for single
	// messages.
	MessageIDs []string `json:"message_ids,omitempty"`
}

// Ref is a lightweight handle returned by a search, before details are
// fetched.
type Ref struct {
	ID      string
	Snippet string
}

// Truncate caps s at limit characters. The provider body can run to
// megabytes; the oracle prompt only needs the head.
func Truncate(s string, limit int) string {
	if limit <= 0 || len(s) <= limit {
		return s
	}
	return s[:limit]
}
