// Package triage implements the priority-ordered, claim-based
// classification pipeline: category stages consume an unclaimed pool of
// conversations, claim disjoint subsets, and the claimed results are
// enriched, scanned for action items, and aggregated into a digest.
package triage

// Category identifies one triage bucket. Categories are mutually
// exclusive: a conversation is claimed by exactly one.
type Category string

const (
	CategoryChildren     Category = "children"
	CategoryAmazon       Category = "amazon"
	CategoryReceipts     Category = "receipts"
	CategoryInvestments  Category = "investments"
	CategoryCrowdfunding Category = "crowdfunding"
	CategoryNewsletters  Category = "newsletters"
	CategoryMarketing    Category = "marketing"

	// Narrow notification buckets, siblings of the generic catch-all.
	CategorySecurityAlerts    Category = "security_alerts"
	CategoryConfirmationCodes Category = "confirmation_codes"
	CategoryReminders         Category = "reminders"
	CategoryFinancial         Category = "financial_notifications"
	CategoryShipping          Category = "shipping"
	CategoryNotifications     Category = "notifications"

	// CategorySkip marks genuinely personal correspondence. Skipped
	// conversations are never claimed and never appear in the digest.
	CategorySkip Category = "skip"
)

// PriorityOrder returns the fixed stage execution order. A conversation
// that plausibly fits two categories is claimed by whichever appears
// first here; reordering changes outcomes for ambiguous items and must
// not happen casually.
func PriorityOrder() []Category {
	return []Category{
		CategoryChildren,
		CategoryAmazon,
		CategoryReceipts,
		CategoryInvestments,
		CategoryCrowdfunding,
		CategoryNewsletters,
		CategoryMarketing,
		CategorySecurityAlerts,
		CategoryConfirmationCodes,
		CategoryReminders,
		CategoryFinancial,
		CategoryShipping,
		CategoryNotifications,
	}
}

// Valid reports whether c is a claimable category.
func (c Category) Valid() bool {
	for _, known := range PriorityOrder() {
		if c == known {
			return true
		}
	}
	return false
}

// Narrative reports whether this category is summarized in aggregate
// rather than enriched per item. These are high-volume, low-signal
// buckets where per-item detail is not worth surfacing.
func (c Category) Narrative() bool {
	switch c {
	case CategoryShipping, CategorySecurityAlerts, CategoryConfirmationCodes, CategoryReminders:
		return true
	}
	return false
}
