package orchestratornode

import (
	"errors"
	"strings"
	"time"

	statex "github.com/tanpawarit/chative-support-a2a/agent/state"
)

var (
	ErrInvalidMessage = errors.New("message is empty")
	ErrInvalidSession = errors.New("session id is empty")
)

type GraphInput struct {
	SessionID string
	Query     string
}

type GraphOutput struct {
	State *statex.SessionState
}

type GraphState struct {
	Now     time.Time
	Session *statex.SessionState

	Archived  bool
	Escalated bool
}

// ValidateQuery builds the initial session. A blank session id gets a fresh one from newID.
func ValidateQuery(in GraphInput, nowFn func() time.Time, newID func() string) (*GraphState, error) {
	query := strings.TrimSpace(in.Query)
	if query == "" {
		return nil, ErrInvalidMessage
	}

	sessionID := strings.TrimSpace(in.SessionID)
	if sessionID == "" {
		sessionID = strings.TrimSpace(newID())
	}
	if sessionID == "" {
		return nil, ErrInvalidSession
	}

	now := nowFn().UTC()
	return &GraphState{
		Now:     now,
		Session: statex.NewSessionState(sessionID, query, now),
	}, nil
}
