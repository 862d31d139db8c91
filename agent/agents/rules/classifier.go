package rules

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	contractx "github.com/tanpawarit/chative-support-a2a/agent/contract"
	statex "github.com/tanpawarit/chative-support-a2a/agent/state"
)

var (
	customerIDPattern = regexp.MustCompile(`(?i)\b(?:customer(?:\s+id)?|id)\s*(?:#|:|no\.?)?\s*(\d+)\b`)
	emailPattern      = regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`)
	updateEmailRe     = regexp.MustCompile(`(?i)\b(?:update|change|set)\b[^.]*\bemail\b`)
	allTicketsRe      = regexp.MustCompile(`(?i)\ball\s+(?:[\w-]+\s+){0,3}tickets\b`)
)

var intentKeywords = []struct {
	intent   statex.Intent
	keywords []string
}{
	{statex.IntentCancel, []string{"cancel", "close my account", "terminate"}},
	{statex.IntentBilling, []string{"charge", "refund", "bill", "invoice", "payment"}},
	{statex.IntentUpgrade, []string{"upgrad"}},
	{statex.IntentReport, []string{"show me all", "all active customers", "all customers", "report", "list customers"}},
	{statex.IntentHistory, []string{"history", "my tickets", "previous tickets"}},
}

var urgentKeywords = []string{"immediately", "urgent", "asap", "right now", "right away", "emergency"}

var premiumKeywords = []string{"premium", "high-priority", "high priority"}

// Classifier extracts routing facts with keyword and pattern rules.
type Classifier struct{}

var _ contractx.Classifier = Classifier{}

func (Classifier) Classify(ctx context.Context, req contractx.ClassifyRequest) (contractx.Classification, error) {
	query := strings.TrimSpace(req.Query)
	if query == "" {
		return contractx.Classification{}, fmt.Errorf("%w: query is empty", contractx.ErrValidation)
	}
	lower := strings.ToLower(query)

	out := contractx.Classification{}
	if m := customerIDPattern.FindStringSubmatch(query); m != nil {
		if id, err := strconv.ParseInt(m[1], 10, 64); err == nil && id > 0 {
			out.CustomerID = &id
		}
	}

	for _, rule := range intentKeywords {
		if containsAny(lower, rule.keywords) {
			out.Intents = append(out.Intents, rule.intent)
		}
	}
	// Ticket-wide questions are reports even without a report keyword.
	if !hasIntent(out.Intents, statex.IntentReport) && !hasIntent(out.Intents, statex.IntentHistory) &&
		(allTicketsRe.MatchString(query) || (out.CustomerID == nil && strings.Contains(lower, "premium"))) {
		out.Intents = append(out.Intents, statex.IntentReport)
	}
	if email := emailPattern.FindString(query); email != "" && updateEmailRe.MatchString(query) {
		out.Intents = append(out.Intents, statex.IntentUpdateEmail)
		out.UpdateData = map[string]string{"email": email}
	}
	if len(out.Intents) == 0 {
		out.Intents = []statex.Intent{statex.IntentGetInfo}
	}

	if containsAny(lower, urgentKeywords) {
		out.Urgency = statex.UrgencyHigh
		out.NewTicketIssue = query
		out.NewTicketPriority = statex.PriorityHigh
	}

	switch {
	case hasIntent(out.Intents, statex.IntentReport):
		out.Scenario = statex.ScenarioMultiStep
		if containsAny(lower, premiumKeywords) {
			out.ReportMode = statex.ReportPremiumHighPriority
		}
	case hasIntent(out.Intents, statex.IntentCancel), hasIntent(out.Intents, statex.IntentBilling), len(out.Intents) > 1:
		out.Scenario = statex.ScenarioNegotiation
	default:
		out.Scenario = statex.ScenarioTaskAllocation
	}

	return out, nil
}

func containsAny(s string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(s, k) {
			return true
		}
	}
	return false
}

func hasIntent(intents []statex.Intent, want statex.Intent) bool {
	for _, i := range intents {
		if i == want {
			return true
		}
	}
	return false
}
