package triage

import (
	"fmt"
	"strings"

	"github.com/sfioritto/inbox-triage/pkg/mail"
)

// formatConversations renders a pool into the prompt block every stage
// shares: one numbered entry per conversation with its stable ID.
func formatConversations(pool []mail.Conversation) string {
	var b strings.Builder
	for i, conv := range pool {
		fmt.Fprintf(&b, "%d. id: %s\n", i+1, conv.ID)
		fmt.Fprintf(&b, "   subject: %s\n", conv.Subject)
		fmt.Fprintf(&b, "   from: %s\n", conv.From)
		if conv.Date != "" {
			fmt.Fprintf(&b, "   date: %s\n", conv.Date)
		}
		body := conv.Body
		if body == "" {
			body = conv.Snippet
		}
		fmt.Fprintf(&b, "   body: %s\n\n", body)
	}
	return b.String()
}

// formatConversation renders a single conversation for per-item prompts.
func formatConversation(conv mail.Conversation) string {
	return formatConversations([]mail.Conversation{conv})
}

const batchDecisionShape = `Respond with a JSON array, one entry per email, in this exact shape:
[{"id": "<id>", "is_category": true|false, "summary": "<one sentence, empty if is_category is false>"}]
Respond with JSON only, no other text.`

func categoryPrompt(description string) func([]mail.Conversation) string {
	return func(pool []mail.Conversation) string {
		var b strings.Builder
		b.WriteString("You are triaging a personal email inbox.\n\n")
		b.WriteString(description)
		b.WriteString("\n\nEmails:\n\n")
		b.WriteString(formatConversations(pool))
		b.WriteString(batchDecisionShape)
		return b.String()
	}
}

var (
	childrenPrompt = categoryPrompt(
		`Identify emails about the children or the family: school and daycare
communication, permission slips, activity sign-ups, pediatric appointments,
camp and class registrations, and bills for any of those. Mark is_category
true only for clearly child- or family-specific emails.`)

	amazonPrompt = categoryPrompt(
		`Identify emails from Amazon about orders: confirmations, shipping and
delivery notices, returns, and refunds. Marketing email from Amazon does
not count. An Amazon order confirmation belongs here even though it is
technically also a receipt.`)

	receiptsPrompt = categoryPrompt(
		`Identify purchase receipts and order confirmations from any merchant:
a completed payment for goods or services. Bills requesting payment do not
count, only records of completed purchases.`)

	investmentsPrompt = categoryPrompt(
		`Identify emails from brokerages, retirement plans, and investment
services: statements, trade confirmations, dividend notices, and prospectus
deliveries.`)

	crowdfundingPrompt = categoryPrompt(
		`Identify crowdfunding emails: Kickstarter, Indiegogo, GoFundMe and
similar platforms, including pledge confirmations, project updates, and
fulfillment surveys.`)

	newslettersPrompt = categoryPrompt(
		`Identify newsletters: recurring editorial content the user subscribed
to, such as substacks, digests, and periodic columns. One-off marketing
blasts do not count.`)

	marketingPrompt = categoryPrompt(
		`Identify marketing and promotional email: sales, discounts, product
announcements, and re-engagement campaigns from businesses.`)
)

// notificationEnum lists the closed set of answers for the
// per-conversation notification stage.
var notificationEnum = []Category{
	CategorySecurityAlerts,
	CategoryConfirmationCodes,
	CategoryReminders,
	CategoryFinancial,
	CategoryShipping,
	CategoryNotifications,
}

func notificationPrompt(conv mail.Conversation) string {
	var b strings.Builder
	b.WriteString("You are triaging a personal email inbox. Classify the email below into exactly one category:\n\n")
	b.WriteString("- security_alerts: sign-in alerts, password changes, new-device warnings\n")
	b.WriteString("- confirmation_codes: one-time passcodes and verification codes\n")
	b.WriteString("- reminders: appointment, renewal, and due-date reminders\n")
	b.WriteString("- financial_notifications: bank and card notices that are not receipts\n")
	b.WriteString("- shipping: package and delivery status updates from carriers\n")
	b.WriteString("- notifications: other automated low-value notifications\n")
	b.WriteString("- skip: personal correspondence from a real person, or anything that does not fit\n\n")
	b.WriteString("Email:\n\n")
	b.WriteString(formatConversation(conv))
	b.WriteString(`Respond with JSON only, in this exact shape:
{"category": "<one of the categories above>", "summary": "<one sentence>"}`)
	return b.String()
}

const enrichmentShapePreamble = "Respond with a JSON array, one entry per email, JSON only, in this exact shape:\n"

func enrichmentPrompt(instructions, shape string) func([]mail.Conversation) string {
	return func(pool []mail.Conversation) string {
		var b strings.Builder
		b.WriteString("You are extracting structured details from already-categorized emails.\n\n")
		b.WriteString(instructions)
		b.WriteString("\n\nEmails:\n\n")
		b.WriteString(formatConversations(pool))
		b.WriteString(enrichmentShapePreamble)
		b.WriteString(shape)
		return b.String()
	}
}

var (
	billingEnrichPrompt = enrichmentPrompt(
		`For each email, extract the dollar amount involved (as written, e.g.
"$25.00"; empty string if none) and a one-line description of what the
charge or pledge is for.`,
		`[{"id": "<id>", "amount": "<amount or empty>", "description": "<one line>"}]`)

	receiptEnrichPrompt = enrichmentPrompt(
		`For each receipt email, extract the order total as written and the
itemized list of purchased items with their individual amounts. Leave the
items array empty if the email does not itemize.`,
		`[{"id": "<id>", "total": "<total>", "items": [{"item": "<name>", "amount": "<amount>"}]}]`)

	newsletterEnrichPrompt = enrichmentPrompt(
		`For each newsletter, find the "view in browser" web link and the
unsubscribe link. Use an empty string when a link is not present.`,
		`[{"id": "<id>", "web_link": "<url or empty>", "unsubscribe_link": "<url or empty>"}]`)

	financialEnrichPrompt = enrichmentPrompt(
		`For each financial notification, extract a one-line description of the
event and the dollar amount if one is stated (empty string otherwise).`,
		`[{"id": "<id>", "description": "<one line>", "amount": "<amount or empty>"}]`)
)

// narrativePrompt asks for one rolled-up summary of a whole category
// instead of per-item fields.
func narrativePrompt(category Category) func([]mail.Conversation) string {
	return func(pool []mail.Conversation) string {
		var b strings.Builder
		fmt.Fprintf(&b, "Summarize the following %s emails in aggregate.\n", strings.ReplaceAll(string(category), "_", " "))
		b.WriteString(`Produce short "Service: what happened" sentences, one per service,
combining repeats. Do not list every email individually.`)
		b.WriteString("\n\nEmails:\n\n")
		b.WriteString(formatConversations(pool))
		b.WriteString(`Respond with JSON only, in this exact shape:
{"summary": "<the aggregate summary>"}`)
		return b.String()
	}
}

func actionItemPrompt(pool []mail.Conversation) string {
	var b strings.Builder
	b.WriteString(`Review the emails below for genuine action items. An action item exists
only if at least one of these holds:
(a) a deadline or opportunity will be missed,
(b) a specific person is waiting on a response, or
(c) a concrete negative consequence follows from inaction.
Purely informational content does not qualify. Every item must include an
exact quote from the email text that justifies it.`)
	b.WriteString("\n\nEmails:\n\n")
	b.WriteString(formatConversations(pool))
	b.WriteString(`Respond with a JSON array, JSON only, with one entry per email that has
action items (omit emails with none), in this exact shape:
[{"id": "<id>", "items": [{"description": "<what to do>", "exact_quote": "<verbatim text>", "context": "<why it matters>", "link": "<url or empty>", "steps": ["<step>", "..."]}]}]
Use an empty steps array when the link alone suffices.`)
	return b.String()
}
