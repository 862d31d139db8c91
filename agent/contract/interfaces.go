package contract

import (
	"context"

	statex "github.com/tanpawarit/chative-support-a2a/agent/state"
)

// Classifier extracts routing facts from the raw query. The router calls it once per session.
type Classifier interface {
	Classify(ctx context.Context, req ClassifyRequest) (Classification, error)
}

// SupportDecider chooses between answering and asking the router for more data.
type SupportDecider interface {
	Decide(ctx context.Context, req SupportRequest) (SupportDecision, error)
}

// DataPlanner proposes the tool calls that satisfy a data operation.
type DataPlanner interface {
	Plan(ctx context.Context, req DataRequest) (DataPlan, error)
}

type Registry interface {
	Router() Classifier
	Support() SupportDecider
	Data() DataPlanner
}

// ToolCaller invokes a data tool. Failures are reported inside the result, never as an error.
type ToolCaller interface {
	Call(ctx context.Context, name string, args map[string]any) statex.ToolResult
}

// Escalator hands urgent sessions to a human follow-up queue.
type Escalator interface {
	Escalate(ctx context.Context, st *statex.SessionState) error
}
