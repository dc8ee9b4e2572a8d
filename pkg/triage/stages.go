package triage

import (
	"github.com/sfioritto/inbox-triage/pkg/oracle"
)

// DefaultStages builds the canonical stage sequence. The first seven run
// in the multi-label-per-batch style, one oracle call each over the whole
// unclaimed pool; the notification siblings share one
// single-label-per-conversation stage at the end, with an explicit skip
// bucket for personal correspondence.
func DefaultStages(o oracle.Oracle, b Batcher) []Stage {
	return []Stage{
		&BatchStage{Category: CategoryChildren, Oracle: o, Prompt: childrenPrompt, RequireSummary: true},
		&BatchStage{Category: CategoryAmazon, Oracle: o, Prompt: amazonPrompt, RequireSummary: true},
		&BatchStage{Category: CategoryReceipts, Oracle: o, Prompt: receiptsPrompt, RequireSummary: true},
		&BatchStage{Category: CategoryInvestments, Oracle: o, Prompt: investmentsPrompt},
		&BatchStage{Category: CategoryCrowdfunding, Oracle: o, Prompt: crowdfundingPrompt},
		&BatchStage{Category: CategoryNewsletters, Oracle: o, Prompt: newslettersPrompt},
		&BatchStage{Category: CategoryMarketing, Oracle: o, Prompt: marketingPrompt},
		&ClassifyEachStage{
			StageName:  "notifications",
			Categories: notificationEnum,
			Oracle:     o,
			Batcher:    b,
			Prompt:     notificationPrompt,
		},
	}
}
