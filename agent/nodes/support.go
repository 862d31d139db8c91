package orchestratornode

import (
	"context"
	"strings"

	contractx "github.com/tanpawarit/chative-support-a2a/agent/contract"
	statex "github.com/tanpawarit/chative-support-a2a/agent/state"
	logx "github.com/tanpawarit/chative-support-a2a/pkg/logger"
)

const (
	FallbackDecisionFailed   = "I'll help you with your request. Please let me know if you need any specific assistance."
	FallbackAlreadyAsked     = "Based on the available information, I'll assist you. Please let me know if you need more details."
	FallbackDataPresent      = "Based on the available information, I'll help you with your request."
	FallbackEmptyResponse    = "I'm here to help! Please let me know how I can assist you."
	negotiationLogFormat     = "[Support → Router] negotiation: need %s"
	responseGeneratedLogLine = "[Support → Router] response generated"
)

// Support either answers the query or asks the router for one more kind of data.
// Exactly one of Needs and Response is set on return.
func Support(ctx context.Context, in statex.SessionState, d Deps) statex.SessionState {
	st := in.Clone()
	st.Next = statex.NextRouter
	d.Metrics.ObserveNode(string(contractx.AgentTypeSupport))

	dec, err := d.Models.Support().Decide(ctx, contractx.NewSupportRequest(&in))
	if err != nil {
		logx.Warn().Err(err).Str("session_id", st.SessionID).Msg("support decision failed")
		dec = contractx.SupportDecision{
			Action:   contractx.ActionRespond,
			Response: FallbackDecisionFailed,
			Note:     "decision failed, generated fallback",
		}
	}

	action := dec.Action
	needs := dec.Needs
	response := strings.TrimSpace(dec.Response)

	if action == contractx.ActionNegotiate && st.Negotiated() {
		st.AppendLog("[Support] Already negotiated once, forcing response")
		action, needs = contractx.ActionRespond, ""
		if response == "" {
			response = FallbackAlreadyAsked
		}
	}

	if action == contractx.ActionNegotiate && needs != "" && st.HasDataFor(needs) {
		st.AppendLog("[Support] Data for %s already present, skipping request", needs)
		action, needs = contractx.ActionRespond, ""
		if response == "" {
			response = FallbackDataPresent
		}
	}

	if action == contractx.ActionNegotiate && !needs.Valid() {
		if needs != "" {
			st.AppendLog("[Support] Unknown data request %q, responding instead", needs)
		}
		action, needs = contractx.ActionRespond, ""
	}

	st.Needs = ""
	if action == contractx.ActionNegotiate {
		st.Needs = needs
		st.RecordNegotiation(needs)
		st.AppendLog(negotiationLogFormat, needs)
		d.Metrics.ObserveNegotiation(string(needs))
	} else {
		if response == "" {
			response = FallbackEmptyResponse
		}
		st.Response = response
		st.AppendLog(responseGeneratedLogLine)
	}

	if note := strings.TrimSpace(dec.Note); note != "" {
		st.AppendLog("[Support → Router] %s", note)
	}

	logx.Debug().
		Str("session_id", st.SessionID).
		Str("node", string(contractx.AgentTypeSupport)).
		Str("action", string(action)).
		Str("needs", string(st.Needs)).
		Msg("support decision")
	return st
}
