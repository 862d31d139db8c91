package orchestratornode

import (
	"fmt"

	contractx "github.com/tanpawarit/chative-support-a2a/agent/contract"
	logx "github.com/tanpawarit/chative-support-a2a/pkg/logger"
	metricsx "github.com/tanpawarit/chative-support-a2a/pkg/metrics"
)

const (
	OutcomeResponded = "responded"
	OutcomeExhausted = "exhausted"
)

// FinalizeReply hands back the finished session. An empty response is only
// possible when the step budget ran out.
func FinalizeReply(in *GraphState, m *metricsx.Metrics) (GraphOutput, error) {
	if in == nil || in.Session == nil {
		return GraphOutput{}, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}

	outcome := OutcomeResponded
	if in.Session.Response == "" {
		outcome = OutcomeExhausted
	}
	m.ObserveSession(outcome, in.Session.Step)

	logx.Info().
		Str("session_id", in.Session.SessionID).
		Str("outcome", outcome).
		Int("steps", in.Session.Step).
		Bool("archived", in.Archived).
		Bool("escalated", in.Escalated).
		Msg("session finished")
	return GraphOutput{State: in.Session}, nil
}
