package orchestratornode

import (
	"context"
	"fmt"
	"slices"
	"strings"

	contractx "github.com/tanpawarit/chative-support-a2a/agent/contract"
	statex "github.com/tanpawarit/chative-support-a2a/agent/state"
	logx "github.com/tanpawarit/chative-support-a2a/pkg/logger"
)

// Router advances the session state machine by one step. It never fails:
// classification errors degrade to a Support hand-off. Every visit appends
// exactly one line to the session log.
func Router(ctx context.Context, in statex.SessionState, d Deps) statex.SessionState {
	st := in.Clone()
	st.Step++
	d.Metrics.ObserveNode(string(contractx.AgentTypeRouter))

	line := routeStep(ctx, &st, d)
	st.AppendLog("%s", line)

	logx.Debug().
		Str("session_id", st.SessionID).
		Str("node", string(contractx.AgentTypeRouter)).
		Int("step", st.Step).
		Str("next", string(st.Next)).
		Str("data_op", string(st.DataOp)).
		Msg("router decision")
	return st
}

func routeStep(ctx context.Context, st *statex.SessionState, d Deps) string {
	if limit := d.stepLimit(); st.Step > limit {
		st.Next = statex.NextEnd
		return fmt.Sprintf("[Router] Step limit reached (%d > %d), ending.", st.Step, limit)
	}

	if st.Response != "" {
		st.Next = statex.NextEnd
		return "[Router] Response ready, ending."
	}

	if st.Needs != "" {
		needs := st.Needs
		st.Needs = ""
		op, ok := needs.DataOp()
		if !ok {
			st.Next = statex.NextSupport
			return fmt.Sprintf("[Router → Support] Unknown data request %q ignored", needs)
		}
		st.DataOp = op
		st.Next = statex.NextCustomerData
		return fmt.Sprintf("[Router → CustomerData] Support needs %s, running %s", needs, op)
	}

	var prefix string
	if !st.Initialized {
		summary, err := classify(ctx, st, d)
		if err != nil {
			st.Next = statex.NextSupport
			logx.Warn().Err(err).Str("session_id", st.SessionID).Msg("classification failed")
			return fmt.Sprintf("[Router → Support] Classification failed, routing to Support: %v", err)
		}
		prefix = summary + "; "
	}

	return routeLine(st, prefix)
}

// routeLine applies steps after classification and renders the decision.
func routeLine(st *statex.SessionState, prefix string) string {
	next, op, reason := decide(st)
	st.Next = next
	st.DataOp = op

	arrow := "Support"
	if next == statex.NextCustomerData {
		arrow = "CustomerData"
	}
	return fmt.Sprintf("[Router → %s] %s%s", arrow, prefix, reason)
}

func classify(ctx context.Context, st *statex.SessionState, d Deps) (string, error) {
	st.Initialized = true

	out, err := d.Models.Router().Classify(ctx, contractx.ClassifyRequest{Query: st.Query})
	if err != nil {
		return "", err
	}

	st.CustomerID = out.CustomerID
	st.Intents = validIntents(out.Intents)
	st.Urgency = out.Urgency
	st.Scenario = out.Scenario
	if !st.Scenario.Valid() {
		st.Scenario = statex.ScenarioTaskAllocation
	}
	st.ReportMode = out.ReportMode
	if len(out.UpdateData) > 0 {
		st.UpdateData = out.UpdateData
	}
	st.NewTicketIssue = strings.TrimSpace(out.NewTicketIssue)
	st.NewTicketPriority = strings.ToLower(strings.TrimSpace(out.NewTicketPriority))

	customer := "none"
	if st.CustomerID != nil {
		customer = fmt.Sprint(*st.CustomerID)
	}
	summary := fmt.Sprintf("scenario=%s intents=%v customer_id=%s", st.Scenario, st.Intents, customer)
	if st.Urgency != "" {
		summary += " urgency=" + string(st.Urgency)
	}
	return summary, nil
}

func validIntents(in []statex.Intent) []statex.Intent {
	out := make([]statex.Intent, 0, len(in))
	for _, intent := range in {
		if intent.Valid() && !slices.Contains(out, intent) {
			out = append(out, intent)
		}
	}
	return out
}

// decide runs the prefetch, scenario and default rules in priority order.
func decide(st *statex.SessionState) (statex.Next, statex.DataOp, string) {
	if st.CustomerID != nil && st.Customer == nil &&
		st.ReportMode != statex.ReportPremiumHighPriority &&
		!st.Completed(statex.OpGetCustomer) {
		return statex.NextCustomerData, statex.OpGetCustomer,
			fmt.Sprintf("Fetching context for customer %d", *st.CustomerID)
	}

	if st.Scenario == statex.ScenarioMultiStep || st.HasIntent(statex.IntentReport) {
		if !st.Completed(statex.OpListActiveCustomers) && !st.HasCustomers() {
			return statex.NextCustomerData, statex.OpListActiveCustomers, "Report needs the active customer list"
		}
		if st.ReportMode == statex.ReportPremiumHighPriority && st.HasCustomers() &&
			!st.Completed(statex.OpGetHighPriorityForCustomers) {
			return statex.NextCustomerData, statex.OpGetHighPriorityForCustomers,
				fmt.Sprintf("Collecting high-priority tickets for %d customers", len(st.Customers))
		}
		return statex.NextSupport, "", fmt.Sprintf("Report data ready (%d customers)", len(st.Customers))
	}

	if st.HasIntent(statex.IntentCancel) && st.HasIntent(statex.IntentBilling) && !st.AskedSupportOnce {
		st.AskedSupportOnce = true
		return statex.NextSupport, "", "Can you handle cancellation + billing together?"
	}

	if st.HasIntent(statex.IntentUpdateEmail) && st.HasIntent(statex.IntentHistory) && st.CustomerID != nil {
		if !st.EmailUpdated && strings.TrimSpace(st.UpdateData["email"]) != "" {
			st.EmailUpdated = true
			return statex.NextCustomerData, statex.OpUpdateCustomer,
				fmt.Sprintf("Updating email for customer %d", *st.CustomerID)
		}
		if !st.AskedHistoryOnce {
			st.AskedHistoryOnce = true
			return statex.NextCustomerData, statex.OpGetCustomerHistory,
				fmt.Sprintf("Fetching ticket history for customer %d", *st.CustomerID)
		}
	}

	if st.Urgency == statex.UrgencyHigh && st.CustomerID != nil &&
		st.NewTicketIssue != "" && !st.Completed(statex.OpCreateTicket) {
		return statex.NextCustomerData, statex.OpCreateTicket,
			fmt.Sprintf("Urgent issue, opening a ticket for customer %d", *st.CustomerID)
	}

	if st.Customer != nil {
		return statex.NextSupport, "", fmt.Sprintf("Customer tier: %s", st.Tier())
	}
	return statex.NextSupport, "", "No customer context, routing to Support"
}
