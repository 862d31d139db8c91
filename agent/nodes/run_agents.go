package orchestratornode

import (
	"context"
	"fmt"

	contractx "github.com/tanpawarit/chative-support-a2a/agent/contract"
	statex "github.com/tanpawarit/chative-support-a2a/agent/state"
)

// Driver runs a session through the agent automaton until it ends.
type Driver func(ctx context.Context, st statex.SessionState) (statex.SessionState, error)

// PartialSessionError carries the state a session reached before the
// automaton stopped early.
type PartialSessionError struct {
	State *statex.SessionState
	Err   error
}

func (e *PartialSessionError) Error() string { return e.Err.Error() }

func (e *PartialSessionError) Unwrap() error { return e.Err }

func RunAgents(ctx context.Context, in *GraphState, drive Driver) (*GraphState, error) {
	if in == nil || in.Session == nil {
		return nil, fmt.Errorf("%w: graph session is nil", contractx.ErrValidation)
	}

	final, err := drive(ctx, *in.Session)
	if err != nil {
		return nil, &PartialSessionError{State: &final, Err: err}
	}
	in.Session = &final
	return in, nil
}
