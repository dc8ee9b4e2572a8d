package triage

import (
	"context"

	"github.com/sourcegraph/conc/pool"

	"github.com/sfioritto/inbox-triage/pkg/errors"
	"github.com/sfioritto/inbox-triage/pkg/logging"
	"github.com/sfioritto/inbox-triage/pkg/mail"
	"github.com/sfioritto/inbox-triage/pkg/oracle"
)

// EnrichmentKind tags the variant of an enrichment record.
type EnrichmentKind string

const (
	KindBilling    EnrichmentKind = "billing"
	KindReceipt    EnrichmentKind = "receipt"
	KindNewsletter EnrichmentKind = "newsletter"
	KindFinancial  EnrichmentKind = "financial"
)

// Enrichment is a closed tagged variant: category-specific structured
// facts extracted for one claimed conversation. Consumers switch on the
// concrete type (or Kind) rather than probing optional fields.
type Enrichment interface {
	Kind() EnrichmentKind
}

// BillingEnrichment carries a dollar amount and a one-line description.
type BillingEnrichment struct {
	Amount      string `json:"amount"`
	Description string `json:"description"`
}

func (BillingEnrichment) Kind() EnrichmentKind { return KindBilling }

// ReceiptItem is one line item on a receipt.
type ReceiptItem struct {
	Item   string `json:"item"`
	Amount string `json:"amount"`
}

// ReceiptEnrichment carries a receipt total and its line items.
type ReceiptEnrichment struct {
	Total string        `json:"total"`
	Items []ReceiptItem `json:"items"`
}

func (ReceiptEnrichment) Kind() EnrichmentKind { return KindReceipt }

// NewsletterEnrichment carries the view-in-browser and unsubscribe links,
// either of which may be empty.
type NewsletterEnrichment struct {
	WebLink         string `json:"web_link"`
	UnsubscribeLink string `json:"unsubscribe_link"`
}

func (NewsletterEnrichment) Kind() EnrichmentKind { return KindNewsletter }

// FinancialEnrichment carries a description and an optional amount.
type FinancialEnrichment struct {
	Description string `json:"description"`
	Amount      string `json:"amount"`
}

func (FinancialEnrichment) Kind() EnrichmentKind { return KindFinancial }

// enrichmentKinds maps each category to its structured variant. Narrative
// categories are absent here; they produce an aggregate summary instead.
// Categories in neither map carry no enrichment at all.
var enrichmentKinds = map[Category]EnrichmentKind{
	CategoryChildren:     KindBilling,
	CategoryCrowdfunding: KindBilling,
	CategoryAmazon:       KindReceipt,
	CategoryReceipts:     KindReceipt,
	CategoryInvestments:  KindFinancial,
	CategoryFinancial:    KindFinancial,
	CategoryNewsletters:  KindNewsletter,
}

// Enricher runs the per-category enrichment stages. Enrichers for
// different categories read disjoint claimed sets, so they run
// concurrently with one shared settle point; the first failure aborts the
// run.
type Enricher struct {
	Oracle oracle.Oracle
}

// NewEnricher creates an Enricher backed by the given oracle.
func NewEnricher(o oracle.Oracle) *Enricher {
	return &Enricher{Oracle: o}
}

type enrichJob struct {
	category  Category
	convs     []mail.Conversation
	narrative bool
}

// Run extracts enrichment for every claimed category. It returns
// per-conversation structured records keyed by category and ID, plus
// aggregate narrative summaries for the narrative categories.
func (e *Enricher) Run(ctx context.Context, claimed map[Category][]mail.Conversation) (map[Category]map[string]Enrichment, map[Category]string, error) {
	var jobs []enrichJob
	for _, category := range PriorityOrder() {
		convs := claimed[category]
		if len(convs) == 0 {
			continue
		}
		if category.Narrative() {
			jobs = append(jobs, enrichJob{category: category, convs: convs, narrative: true})
		} else if _, ok := enrichmentKinds[category]; ok {
			jobs = append(jobs, enrichJob{category: category, convs: convs})
		}
	}

	records := make([]map[string]Enrichment, len(jobs))
	summaries := make([]string, len(jobs))

	p := pool.New().WithContext(ctx).WithFirstError()
	for i, job := range jobs {
		i, job := i, job
		p.Go(func(ctx context.Context) error {
			if job.narrative {
				summary, err := e.narrative(ctx, job.category, job.convs)
				if err != nil {
					return err
				}
				summaries[i] = summary
				return nil
			}
			recs, err := e.structured(ctx, job.category, job.convs)
			if err != nil {
				return err
			}
			records[i] = recs
			return nil
		})
	}
	if err := p.Wait(); err != nil {
		return nil, nil, err
	}

	byCategory := make(map[Category]map[string]Enrichment)
	narratives := make(map[Category]string)
	for i, job := range jobs {
		if job.narrative {
			narratives[job.category] = summaries[i]
		} else {
			byCategory[job.category] = records[i]
		}
	}
	return byCategory, narratives, nil
}

// structured makes one oracle call for a category's claimed set and
// decodes the per-item rows for its variant. Rows naming IDs outside the
// claimed set are dropped.
func (e *Enricher) structured(ctx context.Context, category Category, convs []mail.Conversation) (map[string]Enrichment, error) {
	logger := logging.GetLogger()
	idx := poolIndex(convs)
	out := make(map[string]Enrichment, len(convs))
	dropped := 0

	keep := func(id string, record Enrichment) {
		if _, ok := idx[id]; !ok {
			dropped++
			return
		}
		out[id] = record
	}

	switch enrichmentKinds[category] {
	case KindBilling:
		var rows []struct {
			ID string `json:"id"`
			BillingEnrichment
		}
		if err := e.Oracle.Classify(ctx, billingEnrichPrompt(convs), &rows); err != nil {
			return nil, e.wrap(err, category, len(convs))
		}
		for _, row := range rows {
			keep(row.ID, row.BillingEnrichment)
		}

	case KindReceipt:
		var rows []struct {
			ID string `json:"id"`
			ReceiptEnrichment
		}
		if err := e.Oracle.Classify(ctx, receiptEnrichPrompt(convs), &rows); err != nil {
			return nil, e.wrap(err, category, len(convs))
		}
		for _, row := range rows {
			keep(row.ID, row.ReceiptEnrichment)
		}

	case KindNewsletter:
		var rows []struct {
			ID string `json:"id"`
			NewsletterEnrichment
		}
		if err := e.Oracle.Classify(ctx, newsletterEnrichPrompt(convs), &rows); err != nil {
			return nil, e.wrap(err, category, len(convs))
		}
		for _, row := range rows {
			keep(row.ID, row.NewsletterEnrichment)
		}

	case KindFinancial:
		var rows []struct {
			ID string `json:"id"`
			FinancialEnrichment
		}
		if err := e.Oracle.Classify(ctx, financialEnrichPrompt(convs), &rows); err != nil {
			return nil, e.wrap(err, category, len(convs))
		}
		for _, row := range rows {
			keep(row.ID, row.FinancialEnrichment)
		}
	}

	if dropped > 0 {
		logger.Warn(ctx, "enricher %s: dropped %d rows naming unclaimed IDs", category, dropped)
	}
	return out, nil
}

// narrative makes one oracle call producing the category's aggregate
// summary sentence.
func (e *Enricher) narrative(ctx context.Context, category Category, convs []mail.Conversation) (string, error) {
	var out struct {
		Summary string `json:"summary"`
	}
	if err := e.Oracle.Classify(ctx, narrativePrompt(category)(convs), &out); err != nil {
		return "", e.wrap(err, category, len(convs))
	}
	return out.Summary, nil
}

func (e *Enricher) wrap(err error, category Category, count int) error {
	return errors.WithFields(
		errors.Wrap(err, errors.StageExecutionFailed, "enricher stage failed"),
		errors.Fields{"stage": "enrich_" + string(category), "claimed": count})
}
