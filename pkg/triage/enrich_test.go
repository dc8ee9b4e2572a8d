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

func TestEnricherStructuredVariants(t *testing.T) {
	o := &fakeOracle{}
	o.classify = func(prompt string, out interface{}) error {
		switch {
		case strings.Contains(prompt, "dollar amount involved"):
			return respond(out, []map[string]interface{}{
				{"id": "k1", "amount": "$50.00", "description": "daycare tuition"},
			})
		case strings.Contains(prompt, "order total"):
			return respond(out, []map[string]interface{}{
				{"id": "r1", "total": "$12.34", "items": []map[string]string{
					{"item": "coffee beans", "amount": "$12.34"},
				}},
			})
		case strings.Contains(prompt, "view in browser"):
			return respond(out, []map[string]interface{}{
				{"id": "n1", "web_link": "https://letter.example/42", "unsubscribe_link": ""},
			})
		case strings.Contains(prompt, "financial notification"):
			return respond(out, []map[string]interface{}{
				{"id": "f1", "description": "dividend posted", "amount": "$3.21"},
			})
		}
		return stderrors.New("unexpected prompt")
	}

	claimed := map[Category][]mail.Conversation{
		CategoryChildren:    testPool("k1"),
		CategoryReceipts:    testPool("r1"),
		CategoryNewsletters: testPool("n1"),
		CategoryInvestments: testPool("f1"),
	}

	enrichment, narratives, err := NewEnricher(o).Run(context.Background(), claimed)
	require.NoError(t, err)
	assert.Empty(t, narratives)
	assert.Equal(t, 4, o.callCount())

	billing, ok := enrichment[CategoryChildren]["k1"].(BillingEnrichment)
	require.True(t, ok)
	assert.Equal(t, "$50.00", billing.Amount)
	assert.Equal(t, KindBilling, billing.Kind())

	receipt, ok := enrichment[CategoryReceipts]["r1"].(ReceiptEnrichment)
	require.True(t, ok)
	require.Len(t, receipt.Items, 1)
	assert.Equal(t, "coffee beans", receipt.Items[0].Item)

	newsletter, ok := enrichment[CategoryNewsletters]["n1"].(NewsletterEnrichment)
	require.True(t, ok)
	assert.Empty(t, newsletter.UnsubscribeLink)

	financial, ok := enrichment[CategoryInvestments]["f1"].(FinancialEnrichment)
	require.True(t, ok)
	assert.Equal(t, "dividend posted", financial.Description)
}

func TestEnricherNarrativeCategories(t *testing.T) {
	o := &fakeOracle{classify: func(prompt string, out interface{}) error {
		require.Contains(t, prompt, "Summarize the following")
		return respond(out, map[string]string{"summary": "Chase: two sign-in alerts from a new device."})
	}}

	claimed := map[Category][]mail.Conversation{
		CategorySecurityAlerts: testPool("s1", "s2"),
	}

	enrichment, narratives, err := NewEnricher(o).Run(context.Background(), claimed)
	require.NoError(t, err)
	assert.Empty(t, enrichment)
	assert.Equal(t, "Chase: two sign-in alerts from a new device.", narratives[CategorySecurityAlerts])
	// One aggregate call for the whole category, not one per email.
	assert.Equal(t, 1, o.callCount())
}

func TestEnricherDropsRowsForUnclaimedIDs(t *testing.T) {
	o := &fakeOracle{classify: func(prompt string, out interface{}) error {
		return respond(out, []map[string]interface{}{
			{"id": "k1", "amount": "$5", "description": "field trip"},
			{"id": "ghost", "amount": "$99", "description": "not ours"},
		})
	}}

	enrichment, _, err := NewEnricher(o).Run(context.Background(), map[Category][]mail.Conversation{
		CategoryChildren: testPool("k1"),
	})
	require.NoError(t, err)

	require.Len(t, enrichment[CategoryChildren], 1)
	_, ok := enrichment[CategoryChildren]["ghost"]
	assert.False(t, ok)
}

func TestEnricherEmptyClaimedSetSkipsCategory(t *testing.T) {
	o := &fakeOracle{}
	enrichment, narratives, err := NewEnricher(o).Run(context.Background(), map[Category][]mail.Conversation{
		CategoryChildren: {},
	})
	require.NoError(t, err)
	assert.Empty(t, enrichment)
	assert.Empty(t, narratives)
	assert.Zero(t, o.callCount())
}

func TestEnricherFirstFailureAborts(t *testing.T) {
	boom := stderrors.New("429 too many requests")
	o := &fakeOracle{}
	o.classify = func(prompt string, out interface{}) error {
		if strings.Contains(prompt, "order total") {
			return boom
		}
		return respond(out, []map[string]interface{}{})
	}

	_, _, err := NewEnricher(o).Run(context.Background(), map[Category][]mail.Conversation{
		CategoryChildren: testPool("k1"),
		CategoryReceipts: testPool("r1"),
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "enricher stage failed")
}
