package orchestratornode

import (
	"fmt"
	"maps"

	contractx "github.com/tanpawarit/chative-support-a2a/agent/contract"
	statex "github.com/tanpawarit/chative-support-a2a/agent/state"
	toolx "github.com/tanpawarit/chative-support-a2a/agent/tool"
)

const defaultTicketPriority = statex.PriorityHigh

// toolForOp is the only tool a planner may use for each single-call operation.
var toolForOp = map[statex.DataOp]string{
	statex.OpGetCustomer:         toolx.GetCustomer,
	statex.OpGetCustomerHistory:  toolx.GetCustomerHistory,
	statex.OpListActiveCustomers: toolx.ListCustomers,
	statex.OpUpdateCustomer:      toolx.UpdateCustomer,
	statex.OpCreateTicket:        toolx.CreateTicket,
}

// directCall maps an operation straight to its tool call. It returns an error
// when the state lacks an input the tool requires.
func directCall(op statex.DataOp, st *statex.SessionState) (contractx.ToolCall, error) {
	name, ok := toolForOp[op]
	if !ok {
		return contractx.ToolCall{}, fmt.Errorf("%s has no direct tool mapping", op)
	}

	if op == statex.OpListActiveCustomers {
		return contractx.ToolCall{Name: name, Arguments: map[string]any{"status": statex.StatusActive}}, nil
	}

	if st.CustomerID == nil {
		return contractx.ToolCall{}, fmt.Errorf("%w: customer_id is required for %s", contractx.ErrMissingInput, name)
	}
	args := map[string]any{"customer_id": *st.CustomerID}

	switch op {
	case statex.OpUpdateCustomer:
		if len(st.UpdateData) == 0 {
			return contractx.ToolCall{}, fmt.Errorf("%w: update data is required for %s", contractx.ErrMissingInput, name)
		}
		data := make(map[string]any, len(st.UpdateData))
		for k, v := range st.UpdateData {
			data[k] = v
		}
		args["data"] = data
	case statex.OpCreateTicket:
		issue := st.NewTicketIssue
		if issue == "" {
			issue = "Support request"
		}
		priority := st.NewTicketPriority
		if priority == "" {
			priority = defaultTicketPriority
		}
		args["issue"] = issue
		args["priority"] = priority
	}
	return contractx.ToolCall{Name: name, Arguments: args}, nil
}

// plannedCall picks the first proposed call that matches the operation's tool.
// Customer-scoped calls are pinned to the session's customer; without one the
// plan is rejected.
func plannedCall(op statex.DataOp, plan contractx.DataPlan, customerID *int64) (contractx.ToolCall, bool) {
	want := toolForOp[op]
	for _, call := range plan.Calls {
		if call.Name != want {
			continue
		}
		args := maps.Clone(call.Arguments)
		if op == statex.OpListActiveCustomers {
			return contractx.ToolCall{Name: call.Name, Arguments: args}, true
		}
		if customerID == nil {
			return contractx.ToolCall{}, false
		}
		if args == nil {
			args = map[string]any{}
		}
		args["customer_id"] = *customerID
		return contractx.ToolCall{Name: call.Name, Arguments: args}, true
	}
	return contractx.ToolCall{}, false
}
