package orchestratornode

import (
	"context"
	"fmt"

	contractx "github.com/tanpawarit/chative-support-a2a/agent/contract"
	statex "github.com/tanpawarit/chative-support-a2a/agent/state"
	logx "github.com/tanpawarit/chative-support-a2a/pkg/logger"
)

func EscalateSession(ctx context.Context, in *GraphState, escalator contractx.Escalator) (*GraphState, error) {
	if in == nil || in.Session == nil {
		return nil, fmt.Errorf("%w: graph session is nil", contractx.ErrValidation)
	}
	if escalator == nil || in.Session.Urgency != statex.UrgencyHigh {
		return in, nil
	}

	if err := escalator.Escalate(ctx, in.Session); err != nil {
		logx.Error().Err(err).Str("session_id", in.Session.SessionID).Msg("escalation failed")
		return in, nil
	}

	in.Escalated = true
	return in, nil
}
