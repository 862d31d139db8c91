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

type classifierImpl struct {
	runner compose.Runnable[map[string]any, routerLLMOutput]
}

type routerLLMOutput struct {
	CustomerID        *int64            `json:"customer_id"`
	Intents           []string          `json:"intents"`
	Urgency           *string           `json:"urgency"`
	Scenario          string            `json:"scenario"`
	ReportMode        *string           `json:"report_mode"`
	UpdateData        map[string]string `json:"update_data"`
	NewTicketIssue    *string           `json:"new_ticket_issue"`
	NewTicketPriority *string           `json:"new_ticket_priority"`
}

func newClassifier(ctx context.Context, chatModel einomodel.BaseChatModel, systemPrompt string) (*classifierImpl, error) {
	runner, err := compileStructuredLLMGraph[routerLLMOutput](ctx, chatModel, systemPrompt, "router.classify_graph")
	if err != nil {
		return nil, fmt.Errorf("%w: compile router graph: %v", contractx.ErrModelInvoke, err)
	}
	return &classifierImpl{runner: runner}, nil
}

func (c *classifierImpl) Classify(ctx context.Context, req contractx.ClassifyRequest) (contractx.Classification, error) {
	query := strings.TrimSpace(req.Query)
	if query == "" {
		return contractx.Classification{}, fmt.Errorf("%w: query is required", contractx.ErrValidation)
	}

	input, err := json.Marshal(map[string]any{"query": query})
	if err != nil {
		return contractx.Classification{}, fmt.Errorf("%w: marshal router payload: %v", contractx.ErrValidation, err)
	}

	out, err := c.runner.Invoke(ctx, map[string]any{
		"input": string(input),
	})
	if err != nil {
		return contractx.Classification{}, fmt.Errorf("%w: router invoke: %v", contractx.ErrModelInvoke, err)
	}

	return toClassification(out)
}

func toClassification(out routerLLMOutput) (contractx.Classification, error) {
	scenario := statex.Scenario(strings.TrimSpace(out.Scenario))
	if !scenario.Valid() {
		return contractx.Classification{}, fmt.Errorf("%w: unsupported scenario=%q", contractx.ErrSchemaViolation, out.Scenario)
	}
	if out.CustomerID != nil && *out.CustomerID <= 0 {
		return contractx.Classification{}, fmt.Errorf("%w: customer_id must be positive", contractx.ErrSchemaViolation)
	}

	res := contractx.Classification{
		CustomerID: out.CustomerID,
		Scenario:   scenario,
		UpdateData: out.UpdateData,
	}
	for _, raw := range out.Intents {
		intent := statex.Intent(strings.ToLower(strings.TrimSpace(raw)))
		if intent.Valid() {
			res.Intents = append(res.Intents, intent)
		}
	}
	if deref(out.Urgency) == string(statex.UrgencyHigh) {
		res.Urgency = statex.UrgencyHigh
	}
	if deref(out.ReportMode) == string(statex.ReportPremiumHighPriority) {
		res.ReportMode = statex.ReportPremiumHighPriority
	}
	res.NewTicketIssue = deref(out.NewTicketIssue)
	res.NewTicketPriority = strings.ToLower(deref(out.NewTicketPriority))
	return res, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}
