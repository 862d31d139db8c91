package escalation

import (
	"context"
	"errors"
	"fmt"
	"strings"

	contractx "github.com/tanpawarit/chative-support-a2a/agent/contract"
	statex "github.com/tanpawarit/chative-support-a2a/agent/state"
	qstashx "github.com/tanpawarit/chative-support-a2a/pkg/qstash"
)

type Config struct {
	Enabled     bool   `default:"false"`
	Destination string `default:"support-escalations"`
}

type Publisher interface {
	PublishJSON(ctx context.Context, destination string, body any, headers map[string]string) (qstashx.PublishResponse, error)
}

var _ contractx.Escalator = (*QueueEscalator)(nil)

// QueueEscalator publishes urgent session transcripts to a QStash destination.
type QueueEscalator struct {
	publisher   Publisher
	destination string
}

func NewQueueEscalator(publisher Publisher, destination string) (*QueueEscalator, error) {
	if publisher == nil {
		return nil, errors.New("publisher is required")
	}
	destination = strings.TrimSpace(destination)
	if destination == "" {
		return nil, errors.New("destination is required")
	}
	return &QueueEscalator{publisher: publisher, destination: destination}, nil
}

type Ticket struct {
	SessionID  string          `json:"session_id"`
	Query      string          `json:"query"`
	CustomerID *int64          `json:"customer_id,omitempty"`
	Intents    []statex.Intent `json:"intents,omitempty"`
	Response   string          `json:"response,omitempty"`
	Log        []string        `json:"log"`
}

func (e *QueueEscalator) Escalate(ctx context.Context, st *statex.SessionState) error {
	if st == nil {
		return statex.ErrNilSessionState
	}
	body := Ticket{
		SessionID:  st.SessionID,
		Query:      st.Query,
		CustomerID: st.CustomerID,
		Intents:    st.Intents,
		Response:   st.Response,
		Log:        st.Log,
	}
	_, err := e.publisher.PublishJSON(ctx, e.destination, body, map[string]string{
		"X-Session-Id": st.SessionID,
	})
	if err != nil {
		return fmt.Errorf("escalate session %s: %w", st.SessionID, err)
	}
	return nil
}
