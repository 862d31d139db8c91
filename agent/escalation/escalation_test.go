package escalation

import (
	"context"
	"errors"
	"testing"
	"time"

	statex "github.com/tanpawarit/chative-support-a2a/agent/state"
	qstashx "github.com/tanpawarit/chative-support-a2a/pkg/qstash"
)

type fakePublisher struct {
	destination string
	body        any
	headers     map[string]string
	err         error
}

func (f *fakePublisher) PublishJSON(ctx context.Context, destination string, body any, headers map[string]string) (qstashx.PublishResponse, error) {
	f.destination, f.body, f.headers = destination, body, headers
	if f.err != nil {
		return qstashx.PublishResponse{}, f.err
	}
	return qstashx.PublishResponse{MessageID: "m1"}, nil
}

func TestEscalatePublishesTranscript(t *testing.T) {
	t.Parallel()

	pub := &fakePublisher{}
	esc, err := NewQueueEscalator(pub, "urgent")
	if err != nil {
		t.Fatalf("NewQueueEscalator() error = %v", err)
	}

	st := statex.NewSessionState("s-9", "I've been charged twice, please refund immediately!", time.Now())
	st.Urgency = statex.UrgencyHigh
	st.AppendLog("[Router] urgent billing")

	if err := esc.Escalate(context.Background(), st); err != nil {
		t.Fatalf("Escalate() error = %v", err)
	}
	if pub.destination != "urgent" || pub.headers["X-Session-Id"] != "s-9" {
		t.Fatalf("published to %q with %v", pub.destination, pub.headers)
	}
	ticket, ok := pub.body.(Ticket)
	if !ok || ticket.Query != st.Query || len(ticket.Log) != 1 {
		t.Fatalf("body = %#v", pub.body)
	}
}

func TestEscalateWrapsPublishError(t *testing.T) {
	t.Parallel()

	boom := errors.New("queue down")
	esc, _ := NewQueueEscalator(&fakePublisher{err: boom}, "urgent")

	err := esc.Escalate(context.Background(), statex.NewSessionState("s", "q", time.Now()))
	if !errors.Is(err, boom) {
		t.Fatalf("Escalate() error = %v, want wrapped %v", err, boom)
	}
}
