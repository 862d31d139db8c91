package specialist

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/compose"
	contractx "github.com/tanpawarit/chative-support-a2a/agent/contract"
)

type plannerImpl struct {
	runner compose.Runnable[map[string]any, plannerLLMOutput]
}

type plannerLLMOutput struct {
	ToolCalls []struct {
		Tool string         `json:"tool"`
		Args map[string]any `json:"args"`
	} `json:"tool_calls"`
	MessageToRouter string `json:"message_to_router"`
}

func newPlanner(ctx context.Context, chatModel einomodel.BaseChatModel, systemPrompt string) (*plannerImpl, error) {
	runner, err := compileStructuredLLMGraph[plannerLLMOutput](ctx, chatModel, systemPrompt, "customer_data.plan_graph")
	if err != nil {
		return nil, fmt.Errorf("%w: compile data planner graph: %v", contractx.ErrModelInvoke, err)
	}
	return &plannerImpl{runner: runner}, nil
}

func (p *plannerImpl) Plan(ctx context.Context, req contractx.DataRequest) (contractx.DataPlan, error) {
	if req.Op == "" || req.State == nil {
		return contractx.DataPlan{}, fmt.Errorf("%w: data op and state are required", contractx.ErrValidation)
	}

	st := req.State
	payload := map[string]any{
		"data_op":             req.Op,
		"customer_id":         st.CustomerID,
		"update_data":         st.UpdateData,
		"new_ticket_issue":    st.NewTicketIssue,
		"new_ticket_priority": st.NewTicketPriority,
	}
	input, err := json.Marshal(payload)
	if err != nil {
		return contractx.DataPlan{}, fmt.Errorf("%w: marshal data planner payload: %v", contractx.ErrValidation, err)
	}

	out, err := p.runner.Invoke(ctx, map[string]any{
		"input": string(input),
	})
	if err != nil {
		return contractx.DataPlan{}, fmt.Errorf("%w: data planner invoke: %v", contractx.ErrModelInvoke, err)
	}

	plan := contractx.DataPlan{Message: strings.TrimSpace(out.MessageToRouter)}
	for _, call := range out.ToolCalls {
		name := strings.TrimSpace(call.Tool)
		if name == "" {
			return contractx.DataPlan{}, fmt.Errorf("%w: tool call name is empty", contractx.ErrSchemaViolation)
		}
		plan.Calls = append(plan.Calls, contractx.ToolCall{Name: name, Arguments: call.Args})
	}
	return plan, nil
}
