package rules

import (
	"context"
	"fmt"
	"slices"
	"strings"

	contractx "github.com/tanpawarit/chative-support-a2a/agent/contract"
	statex "github.com/tanpawarit/chative-support-a2a/agent/state"
)

const maxListedTickets = 5

// SupportDecider asks for the one missing piece of data a reply depends on,
// otherwise composes the reply from what the session already holds.
type SupportDecider struct{}

var _ contractx.SupportDecider = SupportDecider{}

func (SupportDecider) Decide(ctx context.Context, req contractx.SupportRequest) (contractx.SupportDecision, error) {
	st := req.State
	if st == nil {
		return contractx.SupportDecision{}, fmt.Errorf("%w: support request has no state", contractx.ErrValidation)
	}

	if !req.AlreadyNegotiated {
		if needs, note := missingData(req); needs != "" {
			return contractx.SupportDecision{Action: contractx.ActionNegotiate, Needs: needs, Note: note}, nil
		}
	}

	return contractx.SupportDecision{
		Action:   contractx.ActionRespond,
		Response: compose(st),
	}, nil
}

func missingData(req contractx.SupportRequest) (statex.Needs, string) {
	st := req.State
	report := st.Scenario == statex.ScenarioMultiStep || st.HasIntent(statex.IntentReport)

	switch {
	case report && !req.HasCustomers:
		return statex.NeedsActiveCustomers, "Report needs the active customer list"
	case report && !req.HasTicketsByCustomer:
		return statex.NeedsTicketsForCustomers, "Report needs tickets for the listed customers"
	case report:
		return "", ""
	case st.HasIntent(statex.IntentBilling) && !req.HasTickets:
		return statex.NeedsBillingInfo, "Billing issue, need the ticket history first"
	case st.HasIntent(statex.IntentHistory) && st.CustomerID != nil && !req.HasTickets:
		return statex.NeedsBillingInfo, "History requested, need the ticket history first"
	case st.CustomerID != nil && !req.HasCustomer && !st.Completed(statex.OpGetCustomer):
		return statex.NeedsCustomerInfo, "Need the customer record first"
	}
	return "", ""
}

func compose(st *statex.SessionState) string {
	var parts []string
	if st.Customer != nil && st.Customer.Name != "" {
		parts = append(parts, fmt.Sprintf("Hi %s.", firstName(st.Customer.Name)))
	}

	if st.Scenario == statex.ScenarioMultiStep || st.HasIntent(statex.IntentReport) {
		parts = append(parts, reportSummary(st))
		return strings.Join(parts, " ")
	}

	if st.HasIntent(statex.IntentUpdateEmail) {
		want := st.UpdateData["email"]
		if st.Customer != nil && want != "" && strings.EqualFold(st.Customer.Email, want) {
			parts = append(parts, fmt.Sprintf("Your email has been updated to %s.", st.Customer.Email))
		} else {
			parts = append(parts, "I wasn't able to update your email right now.")
		}
	}

	if st.HasIntent(statex.IntentHistory) {
		switch {
		case st.HasTickets():
			parts = append(parts, historySummary(st.Tickets))
		case st.CustomerID == nil:
			parts = append(parts, "Please share your customer ID so I can look up your ticket history.")
		default:
			parts = append(parts, "I wasn't able to load your ticket history right now.")
		}
	}

	if st.HasIntent(statex.IntentCancel) {
		parts = append(parts, "I can help you cancel your account; any outstanding charges will be reviewed before it is closed.")
	}

	if st.HasIntent(statex.IntentBilling) {
		parts = append(parts, "I'm sorry about the billing problem.")
		if st.Urgency == statex.UrgencyHigh {
			parts = append(parts, "I've marked this as urgent and our billing team will review the charge and process any refund right away.")
		}
		if !st.HasIntent(statex.IntentHistory) && st.HasTickets() {
			parts = append(parts, fmt.Sprintf("I can see %d ticket(s) on your account.", len(st.Tickets)))
		}
		if st.CustomerID == nil {
			parts = append(parts, "Please share your customer ID so we can locate the payment.")
		}
	}

	if t := st.CreatedTicket; t != nil {
		parts = append(parts, fmt.Sprintf("I've opened ticket #%d with %s priority.", t.ID, t.Priority))
	}

	if st.HasIntent(statex.IntentUpgrade) {
		if st.Customer != nil {
			parts = append(parts, fmt.Sprintf("Your account is currently %s. I can help you upgrade; let me know which plan you're interested in.", st.Tier()))
		} else {
			parts = append(parts, "I can help you upgrade your account once I can confirm your customer ID.")
		}
	}

	if st.HasIntent(statex.IntentGetInfo) {
		parts = append(parts, customerSummary(st))
	}

	return strings.Join(parts, " ")
}

func customerSummary(st *statex.SessionState) string {
	c := st.Customer
	if c == nil {
		if st.CustomerID != nil {
			return fmt.Sprintf("I couldn't find a customer with ID %d.", *st.CustomerID)
		}
		return "Please share your customer ID so I can look up your account."
	}

	fields := []string{c.Name}
	if c.Email != "" {
		fields = append(fields, "email "+c.Email)
	}
	if c.Phone != "" {
		fields = append(fields, "phone "+c.Phone)
	}
	fields = append(fields, "status "+c.Status)
	return fmt.Sprintf("Customer #%d: %s.", c.ID, strings.Join(fields, ", "))
}

func historySummary(tickets []statex.Ticket) string {
	if len(tickets) == 0 {
		return "You have no tickets on file."
	}

	lines := make([]string, 0, min(len(tickets), maxListedTickets))
	for _, t := range tickets[:min(len(tickets), maxListedTickets)] {
		lines = append(lines, fmt.Sprintf("#%d %s (%s, %s)", t.ID, t.Issue, t.Priority, t.Status))
	}
	summary := fmt.Sprintf("You have %d ticket(s): %s", len(tickets), strings.Join(lines, "; "))
	if len(tickets) > maxListedTickets {
		summary += fmt.Sprintf("; and %d more", len(tickets)-maxListedTickets)
	}
	return summary + "."
}

func reportSummary(st *statex.SessionState) string {
	if len(st.Customers) == 0 {
		return "I couldn't load the active customer list right now."
	}
	if st.TicketsByCustomer == nil {
		return fmt.Sprintf("There are %d active customers.", len(st.Customers))
	}
	var unchecked string
	if n := len(st.HistoryFailed); n > 0 {
		ids := make([]string, n)
		for i, id := range st.HistoryFailed {
			ids[i] = fmt.Sprintf("#%d", id)
		}
		unchecked = fmt.Sprintf(" I couldn't check ticket history for %s.", strings.Join(ids, ", "))
	}
	if len(st.TicketsByCustomer) == 0 {
		if unchecked != "" {
			return fmt.Sprintf("There are %d active customers and none of the ones I could check have high-priority tickets.%s",
				len(st.Customers), unchecked)
		}
		return fmt.Sprintf("There are %d active customers and none of them have high-priority tickets.", len(st.Customers))
	}

	ids := make([]int64, 0, len(st.TicketsByCustomer))
	for id := range st.TicketsByCustomer {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	names := make(map[int64]string, len(st.Customers))
	for _, c := range st.Customers {
		names[c.ID] = c.Name
	}

	entries := make([]string, 0, len(ids))
	for _, id := range ids {
		name := names[id]
		if name == "" {
			name = fmt.Sprintf("Customer %d", id)
		}
		entries = append(entries, fmt.Sprintf("%s (#%d): %d high-priority ticket(s)", name, id, len(st.TicketsByCustomer[id])))
	}
	return fmt.Sprintf("There are %d active customers; %d have high-priority tickets: %s.%s",
		len(st.Customers), len(ids), strings.Join(entries, "; "), unchecked)
}

func firstName(name string) string {
	if f := strings.Fields(name); len(f) > 0 {
		return f[0]
	}
	return name
}
