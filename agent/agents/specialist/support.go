package specialist

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/compose"
	contractx "github.com/tanpawarit/chative-support-a2a/agent/contract"
	statex "github.com/tanpawarit/chative-support-a2a/agent/state"
)

type supportImpl struct {
	runner compose.Runnable[map[string]any, supportLLMOutput]
}

type supportLLMOutput struct {
	Action   string  `json:"action"`
	Needs    *string `json:"needs"`
	Response *string `json:"response"`
	Note     string  `json:"note"`
}

func newSupport(ctx context.Context, chatModel einomodel.BaseChatModel, systemPrompt string) (*supportImpl, error) {
	runner, err := compileStructuredLLMGraph[supportLLMOutput](ctx, chatModel, systemPrompt, "support.decide_graph")
	if err != nil {
		return nil, fmt.Errorf("%w: compile support graph: %v", contractx.ErrModelInvoke, err)
	}
	return &supportImpl{runner: runner}, nil
}

func (s *supportImpl) Decide(ctx context.Context, req contractx.SupportRequest) (contractx.SupportDecision, error) {
	if req.State == nil {
		return contractx.SupportDecision{}, fmt.Errorf("%w: support request has no state", contractx.ErrValidation)
	}

	input, err := json.Marshal(summarizeForSupport(req))
	if err != nil {
		return contractx.SupportDecision{}, fmt.Errorf("%w: marshal support payload: %v", contractx.ErrValidation, err)
	}

	out, err := s.runner.Invoke(ctx, map[string]any{
		"input": string(input),
	})
	if err != nil {
		return contractx.SupportDecision{}, fmt.Errorf("%w: support invoke: %v", contractx.ErrModelInvoke, err)
	}

	dec := contractx.SupportDecision{
		Needs:    statex.Needs(deref(out.Needs)),
		Response: deref(out.Response),
		Note:     strings.TrimSpace(out.Note),
	}
	switch contractx.SupportAction(strings.ToLower(strings.TrimSpace(out.Action))) {
	case contractx.ActionRespond:
		dec.Action = contractx.ActionRespond
		dec.Needs = ""
	case contractx.ActionNegotiate:
		dec.Action = contractx.ActionNegotiate
		if dec.Needs == "" {
			return contractx.SupportDecision{}, fmt.Errorf("%w: negotiate requires needs", contractx.ErrSchemaViolation)
		}
	default:
		return contractx.SupportDecision{}, fmt.Errorf("%w: unsupported action=%q", contractx.ErrSchemaViolation, out.Action)
	}
	return dec, nil
}

func summarizeForSupport(req contractx.SupportRequest) map[string]any {
	st := req.State
	return map[string]any{
		"query":                   st.Query,
		"scenario":                st.Scenario,
		"customer_id":             st.CustomerID,
		"intents":                 st.Intents,
		"urgency":                 st.Urgency,
		"customer":                st.Customer,
		"customers":               st.Customers,
		"tickets":                 st.Tickets,
		"created_ticket":          st.CreatedTicket,
		"tickets_by_customer":     st.TicketsByCustomer,
		"history_failed":          st.HistoryFailed,
		"last_data_result":        st.LastDataResult,
		"has_customer":            req.HasCustomer,
		"has_customers":           req.HasCustomers,
		"has_tickets":             req.HasTickets,
		"has_tickets_by_customer": req.HasTicketsByCustomer,
		"already_negotiated":      req.AlreadyNegotiated,
	}
}
