package orchestratornode

import (
	"context"
	"fmt"

	contractx "github.com/tanpawarit/chative-support-a2a/agent/contract"
	statex "github.com/tanpawarit/chative-support-a2a/agent/state"
	logx "github.com/tanpawarit/chative-support-a2a/pkg/logger"
)

// ArchiveSession saves the finished session when a store is configured.
// Archive failures are logged and never fail the query.
func ArchiveSession(ctx context.Context, in *GraphState, store statex.Store) (*GraphState, error) {
	if in == nil || in.Session == nil {
		return nil, fmt.Errorf("%w: graph session is nil", contractx.ErrValidation)
	}
	if store == nil {
		return in, nil
	}

	in.Session.UpdatedAt = in.Now
	if err := in.Session.Validate(); err != nil {
		logx.Warn().Err(err).Str("session_id", in.Session.SessionID).Msg("skip archiving invalid session")
		return in, nil
	}
	if err := store.Save(ctx, in.Session); err != nil {
		logx.Error().Err(err).Str("session_id", in.Session.SessionID).Msg("archive session failed")
		return in, nil
	}

	in.Archived = true
	return in, nil
}
