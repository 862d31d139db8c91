package orchestrator

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/compose"
	nodex "github.com/tanpawarit/chative-support-a2a/agent/nodes"
	statex "github.com/tanpawarit/chative-support-a2a/agent/state"
	logx "github.com/tanpawarit/chative-support-a2a/pkg/logger"
)

// transition is the dispatch table keyed by the node that just ran and the
// next signal it left in the state.
func transition(from, next statex.Next) statex.Next {
	switch from {
	case statex.NextRouter:
		switch next {
		case statex.NextCustomerData, statex.NextSupport:
			return next
		}
		return statex.NextEnd
	case statex.NextCustomerData:
		return statex.NextRouter
	case statex.NextSupport:
		if next == statex.NextRouter {
			return statex.NextRouter
		}
		return statex.NextEnd
	}
	return statex.NextEnd
}

// Run drives a session from the router until the dispatch table reaches end.
// Termination follows from the router's step budget.
func (o *Orchestrator) Run(ctx context.Context, st statex.SessionState) (statex.SessionState, error) {
	node := statex.NextRouter
	for node != statex.NextEnd {
		if err := ctx.Err(); err != nil {
			st.AppendLog("[Router] Session interrupted before %s: %v", node, err)
			st.Next = statex.NextEnd
			return st, fmt.Errorf("session %s interrupted at %s: %w", st.SessionID, node, err)
		}

		switch node {
		case statex.NextRouter:
			st = nodex.Router(ctx, st, o.deps)
		case statex.NextCustomerData:
			st = nodex.CustomerData(ctx, st, o.deps)
		case statex.NextSupport:
			st = nodex.Support(ctx, st, o.deps)
		}

		next := transition(node, st.Next)
		logx.Debug().
			Str("session_id", st.SessionID).
			Str("from", string(node)).
			Str("to", string(next)).
			Int("step", st.Step).
			Msg("agent transition")
		node = next
	}

	st.Next = statex.NextEnd
	return st, nil
}

func (o *Orchestrator) compileHandleQueryGraph(
	ctx context.Context,
) (compose.Runnable[nodex.GraphInput, nodex.GraphOutput], error) {
	graph := compose.NewGraph[nodex.GraphInput, nodex.GraphOutput]()

	if err := graph.AddLambdaNode("validate_query",
		compose.InvokableLambda(func(ctx context.Context, in nodex.GraphInput) (*nodex.GraphState, error) {
			return nodex.ValidateQuery(in, o.now, o.newID)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node validate_query: %w", err)
	}

	if err := graph.AddLambdaNode("run_agents",
		compose.InvokableLambda(func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
			return nodex.RunAgents(ctx, in, o.Run)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node run_agents: %w", err)
	}

	if err := graph.AddLambdaNode("archive_session",
		compose.InvokableLambda(func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
			return nodex.ArchiveSession(ctx, in, o.archive)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node archive_session: %w", err)
	}

	if err := graph.AddLambdaNode("escalate",
		compose.InvokableLambda(func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
			return nodex.EscalateSession(ctx, in, o.escalator)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node escalate: %w", err)
	}

	if err := graph.AddLambdaNode("finalize",
		compose.InvokableLambda(func(ctx context.Context, in *nodex.GraphState) (nodex.GraphOutput, error) {
			return nodex.FinalizeReply(in, o.deps.Metrics)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node finalize: %w", err)
	}

	edges := [][2]string{
		{compose.START, "validate_query"},
		{"validate_query", "run_agents"},
		{"run_agents", "archive_session"},
		{"archive_session", "escalate"},
		{"escalate", "finalize"},
		{"finalize", compose.END},
	}

	for _, edge := range edges {
		if err := graph.AddEdge(edge[0], edge[1]); err != nil {
			return nil, fmt.Errorf("add edge %s->%s: %w", edge[0], edge[1], err)
		}
	}

	runner, err := graph.Compile(ctx, compose.WithGraphName("orchestrator.handle_query"))
	if err != nil {
		return nil, fmt.Errorf("compile orchestrator graph: %w", err)
	}
	return runner, nil
}
