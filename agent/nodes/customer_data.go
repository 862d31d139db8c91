package orchestratornode

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/sourcegraph/conc/pool"
	contractx "github.com/tanpawarit/chative-support-a2a/agent/contract"
	statex "github.com/tanpawarit/chative-support-a2a/agent/state"
	toolx "github.com/tanpawarit/chative-support-a2a/agent/tool"
	logx "github.com/tanpawarit/chative-support-a2a/pkg/logger"
)

// CustomerData executes the pending data operation and folds the result into
// the state. Failures only touch LastDataResult. The operation is always
// cleared and recorded as completed.
func CustomerData(ctx context.Context, in statex.SessionState, d Deps) statex.SessionState {
	st := in.Clone()
	st.Next = statex.NextRouter
	d.Metrics.ObserveNode(string(contractx.AgentTypeCustomerData))

	op := st.DataOp
	if op == "" {
		st.AppendLog("[CustomerData] No data operation requested, returning to Router.")
		return st
	}

	var res statex.ToolResult
	switch {
	case op == statex.OpGetHighPriorityForCustomers:
		res = collectHighPriority(ctx, &st, d)
	case op.Valid():
		res = runSingle(ctx, &st, in, op, d)
	default:
		res = statex.Failure("", fmt.Sprintf("unknown data operation %q", op))
		st.AppendLog("[CustomerData] %s", res.Error)
	}

	st.LastDataResult = &res
	st.DataOp = ""
	st.MarkCompleted(op)
	d.Metrics.ObserveDataOp(string(op), res.Success)

	logx.Debug().
		Str("session_id", st.SessionID).
		Str("node", string(contractx.AgentTypeCustomerData)).
		Str("data_op", string(op)).
		Bool("success", res.Success).
		Msg("data operation finished")
	return st
}

func runSingle(ctx context.Context, st *statex.SessionState, in statex.SessionState, op statex.DataOp, d Deps) statex.ToolResult {
	call, ok := planCall(ctx, in, op, d)
	if !ok {
		direct, err := directCall(op, st)
		if err != nil {
			res := statex.Failure(toolForOp[op], err.Error())
			st.AppendLog("[CustomerData] Cannot run %s: %s", op, err)
			return res
		}
		call = direct
	}

	st.AppendLog("[CustomerData] Calling %s %s", call.Name, renderArgs(call.Arguments))
	res := d.Tools.Call(ctx, call.Name, call.Arguments)
	if res.Tool == "" {
		res.Tool = call.Name
	}
	if !res.Success {
		st.AppendLog("[CustomerData] %s failed: %s", call.Name, res.Error)
		return res
	}

	applyResult(st, call.Name, res)
	return res
}

// planCall asks the data planner for a call. false means the caller must
// fall back to the direct mapping.
func planCall(ctx context.Context, in statex.SessionState, op statex.DataOp, d Deps) (contractx.ToolCall, bool) {
	if d.Models == nil || d.Models.Data() == nil {
		return contractx.ToolCall{}, false
	}
	plan, err := d.Models.Data().Plan(ctx, contractx.DataRequest{Op: op, State: &in})
	if err != nil {
		logx.Warn().Err(err).Str("session_id", in.SessionID).Str("data_op", string(op)).Msg("data plan failed, using direct mapping")
		return contractx.ToolCall{}, false
	}
	call, ok := plannedCall(op, plan, in.CustomerID)
	if !ok {
		logx.Warn().Str("session_id", in.SessionID).Str("data_op", string(op)).Msg("data plan unusable, using direct mapping")
	}
	return call, ok
}

func applyResult(st *statex.SessionState, tool string, res statex.ToolResult) {
	switch tool {
	case toolx.GetCustomer:
		if res.Customer != nil {
			st.Customer = res.Customer
			st.AppendLog("[CustomerData → Router] Got customer: %s", res.Customer.Name)
		}
	case toolx.ListCustomers:
		st.Customers = res.Customers
		st.AppendLog("[CustomerData → Router] Got %d customers", len(res.Customers))
	case toolx.UpdateCustomer:
		if res.Customer != nil {
			st.Customer = res.Customer
			st.AppendLog("[CustomerData → Router] Updated customer %d", res.Customer.ID)
		}
	case toolx.CreateTicket:
		if res.Ticket != nil {
			t := *res.Ticket
			st.CreatedTicket = &t
			st.Tickets = append(st.Tickets, *res.Ticket)
			st.AppendLog("[CustomerData → Router] Created ticket #%d", res.Ticket.ID)
		}
	case toolx.GetCustomerHistory:
		st.Tickets = res.Tickets
		st.HistoryLoaded = true
		st.AppendLog("[CustomerData → Router] Got %d tickets", len(res.Tickets))
	}
}

type customerTickets struct {
	customerID int64
	result     statex.ToolResult
}

// collectHighPriority fetches every loaded customer's history with bounded
// concurrency and keeps only high-priority tickets.
func collectHighPriority(ctx context.Context, st *statex.SessionState, d Deps) statex.ToolResult {
	if len(st.Customers) == 0 {
		st.AppendLog("[CustomerData] No customers loaded, cannot collect high-priority tickets")
		return statex.Failure(toolx.GetCustomerHistory, "no customers loaded")
	}

	limit := d.historyConcurrency()
	st.AppendLog("[CustomerData] Calling %s for %d customers (concurrency %d)", toolx.GetCustomerHistory, len(st.Customers), limit)

	p := pool.NewWithResults[customerTickets]().WithMaxGoroutines(limit)
	for _, c := range st.Customers {
		if c.ID == 0 {
			continue
		}
		cid := c.ID
		p.Go(func() customerTickets {
			return customerTickets{
				customerID: cid,
				result:     d.Tools.Call(ctx, toolx.GetCustomerHistory, map[string]any{"customer_id": cid}),
			}
		})
	}
	results := p.Wait()

	byCustomer := make(map[int64][]statex.Ticket)
	failures := make(map[int64]string)
	for _, r := range results {
		if !r.result.Success {
			failures[r.customerID] = r.result.Error
			continue
		}
		var high []statex.Ticket
		for _, t := range r.result.Tickets {
			if t.Priority == statex.PriorityHigh {
				high = append(high, t)
			}
		}
		if len(high) > 0 {
			byCustomer[r.customerID] = high
		}
	}

	var failed []int64
	for _, c := range st.Customers {
		if msg, ok := failures[c.ID]; ok {
			failed = append(failed, c.ID)
			st.AppendLog("[CustomerData] %s failed for customer %d: %s", toolx.GetCustomerHistory, c.ID, msg)
		}
	}

	if len(results) > 0 && len(failures) == len(results) {
		return statex.Failure(toolx.GetCustomerHistory, "history lookup failed for every customer")
	}

	st.TicketsByCustomer = byCustomer
	st.HistoryFailed = failed
	st.AppendLog("[CustomerData → Router] Got high-priority tickets for %d customers", len(byCustomer))
	out := statex.ToolResult{
		Tool:    toolx.GetCustomerHistory,
		Success: true,
		Count:   len(byCustomer),
		Message: fmt.Sprintf("%d of %d customers have high-priority tickets", len(byCustomer), len(results)),
	}
	if len(failed) > 0 {
		// partial: the count only covers customers whose history loaded
		out.Error = "history unavailable for customers " + joinIDs(failed)
		out.Message = fmt.Sprintf("%d of %d checked customers have high-priority tickets; %s",
			len(byCustomer), len(results)-len(failed), out.Error)
	}
	return out
}

func joinIDs(ids []int64) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatInt(id, 10)
	}
	return strings.Join(parts, ", ")
}

func renderArgs(args map[string]any) string {
	raw, err := json.Marshal(args)
	if err != nil {
		return fmt.Sprint(args)
	}
	return string(raw)
}
