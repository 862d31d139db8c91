package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"
)

var (
	ErrStateNotFound   = errors.New("session state not found")
	ErrNilSessionState = errors.New("session state is nil")
	ErrInvalidSession  = errors.New("session id is empty")
)

const (
	defaultStoreKeyPrefix = "support:session:"
	defaultStoreTTL       = 7 * 24 * time.Hour
	defaultRecentLimit    = 20
)

// Store archives finished sessions for later inspection.
type Store interface {
	Load(ctx context.Context, sessionID string) (*SessionState, error)
	Save(ctx context.Context, st *SessionState) error
	Delete(ctx context.Context, sessionID string) error
}

// TranscriptReader is implemented by archives that keep a transcript next to
// every saved session and index them by recency.
type TranscriptReader interface {
	LoadTranscript(ctx context.Context, sessionID string) (*Transcript, error)
	RecentTranscripts(ctx context.Context, limit int) ([]Transcript, error)
}

// Transcript is the reviewable projection of an archived session: what was
// asked, what the agents did, and what the customer was told.
type Transcript struct {
	SessionID    string    `json:"session_id"`
	Query        string    `json:"query"`
	Response     string    `json:"response,omitempty"`
	Answered     bool      `json:"answered"`
	Scenario     Scenario  `json:"scenario,omitempty"`
	Urgency      Urgency   `json:"urgency,omitempty"`
	CustomerID   *int64    `json:"customer_id,omitempty"`
	DataOps      []DataOp  `json:"data_ops,omitempty"`
	Negotiations []Needs   `json:"negotiations,omitempty"`
	TicketID     int64     `json:"ticket_id,omitempty"`
	Steps        int       `json:"steps"`
	Log          []string  `json:"log,omitempty"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func NewTranscript(st *SessionState) Transcript {
	t := Transcript{
		SessionID:    st.SessionID,
		Query:        st.Query,
		Response:     st.Response,
		Answered:     strings.TrimSpace(st.Response) != "",
		Scenario:     st.Scenario,
		Urgency:      st.Urgency,
		DataOps:      slices.Clone(st.CompletedDataOps),
		Negotiations: slices.Clone(st.Negotiations),
		Steps:        st.Step,
		Log:          slices.Clone(st.Log),
		UpdatedAt:    st.UpdatedAt.UTC(),
	}
	if st.CustomerID != nil {
		id := *st.CustomerID
		t.CustomerID = &id
	}
	if st.CreatedTicket != nil {
		t.TicketID = st.CreatedTicket.ID
	}
	return t
}

// archiveKeys names every key a session occupies under one prefix.
type archiveKeys struct {
	session    string
	transcript string
	recent     string
}

func keysFor(prefix, sessionID string) (archiveKeys, error) {
	id := strings.TrimSpace(sessionID)
	if id == "" {
		return archiveKeys{}, ErrInvalidSession
	}
	prefix = normalizePrefix(prefix)
	return archiveKeys{
		session:    prefix + id,
		transcript: prefix + "transcript:" + id,
		recent:     recentKey(prefix),
	}, nil
}

func recentKey(prefix string) string {
	return normalizePrefix(prefix) + "index:recent"
}

func normalizePrefix(prefix string) string {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		return defaultStoreKeyPrefix
	}
	return prefix
}

// recentCutoff is the oldest index score still backed by a live session.
func recentCutoff(now time.Time, ttl time.Duration) int64 {
	return now.Add(-ttl).UnixMilli()
}

func recentLimit(limit int) int {
	if limit <= 0 {
		return defaultRecentLimit
	}
	return limit
}

// encodeArchive stamps UpdatedAt and renders both stored documents.
func encodeArchive(st *SessionState) (session, transcript []byte, err error) {
	if st == nil {
		return nil, nil, ErrNilSessionState
	}
	if strings.TrimSpace(st.SessionID) == "" {
		return nil, nil, ErrInvalidSession
	}
	if st.UpdatedAt.IsZero() {
		st.UpdatedAt = time.Now().UTC()
	} else {
		st.UpdatedAt = st.UpdatedAt.UTC()
	}

	session, err = json.Marshal(st)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal session state: %w", err)
	}
	transcript, err = json.Marshal(NewTranscript(st))
	if err != nil {
		return nil, nil, fmt.Errorf("marshal transcript: %w", err)
	}
	return session, transcript, nil
}

func decodeSession(raw []byte) (*SessionState, error) {
	var st SessionState
	if err := json.Unmarshal(raw, &st); err != nil {
		return nil, fmt.Errorf("unmarshal session state: %w", err)
	}
	if err := st.Validate(); err != nil {
		return nil, fmt.Errorf("invalid session state loaded from store: %w", err)
	}
	return &st, nil
}

func decodeTranscript(raw []byte) (*Transcript, error) {
	var t Transcript
	if err := json.Unmarshal(raw, &t); err != nil {
		return nil, fmt.Errorf("unmarshal transcript: %w", err)
	}
	if strings.TrimSpace(t.SessionID) == "" {
		return nil, fmt.Errorf("transcript loaded from store: %w", ErrInvalidSession)
	}
	return &t, nil
}

func ttlSeconds(ttl time.Duration) int64 {
	seconds := ttl / time.Second
	if seconds <= 0 {
		return 1
	}
	if ttl%time.Second != 0 {
		seconds++
	}
	return int64(seconds)
}
