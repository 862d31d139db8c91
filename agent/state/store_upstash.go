package state

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const maxResponseSizeBytes = 2 << 20

var (
	_ Store            = (*UpstashRedisStore)(nil)
	_ TranscriptReader = (*UpstashRedisStore)(nil)
)

// StoreOption customizes UpstashRedisStore.
type StoreOption func(*UpstashRedisStore)

func WithKeyPrefix(prefix string) StoreOption {
	return func(s *UpstashRedisStore) {
		trimmed := strings.TrimSpace(prefix)
		if trimmed != "" {
			s.keyPrefix = trimmed
		}
	}
}

func WithTTL(ttl time.Duration) StoreOption {
	return func(s *UpstashRedisStore) {
		s.ttl = ttl
	}
}

func WithHTTPClient(client *http.Client) StoreOption {
	return func(s *UpstashRedisStore) {
		if client != nil {
			s.httpClient = client
		}
	}
}

// UpstashRedisStore archives sessions in Upstash Redis through its REST API.
// A save writes the session, its transcript and the recency index in one
// MULTI/EXEC transaction.
type UpstashRedisStore struct {
	baseURL    string
	token      string
	httpClient *http.Client
	keyPrefix  string
	ttl        time.Duration
}

type redisRESTResponse struct {
	Result json.RawMessage `json:"result"`
	Error  string          `json:"error"`
}

type UpstashRedisConfig struct {
	URL     string        `envconfig:"URL" split_words:"true" required:"true"`
	Token   string        `envconfig:"TOKEN" split_words:"true" required:"true"`
	Timeout time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"10s"`
}

func NewUpstashRedisStore(cfg UpstashRedisConfig, opts ...StoreOption) (*UpstashRedisStore, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.URL), "/")
	if baseURL == "" {
		return nil, errors.New("upstash redis url is required")
	}
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, fmt.Errorf("invalid redis rest url: %w", err)
	}

	token := strings.TrimSpace(cfg.Token)
	if token == "" {
		return nil, errors.New("upstash redis token is required")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	store := &UpstashRedisStore{
		baseURL:    baseURL,
		token:      token,
		httpClient: &http.Client{Timeout: timeout},
		keyPrefix:  defaultStoreKeyPrefix,
		ttl:        defaultStoreTTL,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(store)
		}
	}
	if store.ttl < 0 {
		return nil, errors.New("ttl must be >= 0")
	}
	return store, nil
}

func (s *UpstashRedisStore) Load(ctx context.Context, sessionID string) (*SessionState, error) {
	keys, err := keysFor(s.keyPrefix, sessionID)
	if err != nil {
		return nil, err
	}
	raw, err := s.getString(ctx, keys.session)
	if err != nil {
		return nil, err
	}
	return decodeSession(raw)
}

func (s *UpstashRedisStore) Save(ctx context.Context, st *SessionState) error {
	session, transcript, err := encodeArchive(st)
	if err != nil {
		return err
	}
	keys, err := keysFor(s.keyPrefix, st.SessionID)
	if err != nil {
		return err
	}

	setSession := []any{"SET", keys.session, string(session)}
	setTranscript := []any{"SET", keys.transcript, string(transcript)}
	if s.ttl > 0 {
		setSession = append(setSession, "EX", ttlSeconds(s.ttl))
		setTranscript = append(setTranscript, "EX", ttlSeconds(s.ttl))
	}
	cmds := [][]any{
		setSession,
		setTranscript,
		{"ZADD", keys.recent, st.UpdatedAt.UnixMilli(), st.SessionID},
	}
	if s.ttl > 0 {
		cmds = append(cmds, []any{"ZREMRANGEBYSCORE", keys.recent, "-inf", fmt.Sprintf("(%d", recentCutoff(st.UpdatedAt, s.ttl))})
	}
	return s.multiExec(ctx, cmds)
}

func (s *UpstashRedisStore) Delete(ctx context.Context, sessionID string) error {
	keys, err := keysFor(s.keyPrefix, sessionID)
	if err != nil {
		return err
	}
	return s.multiExec(ctx, [][]any{
		{"DEL", keys.session, keys.transcript},
		{"ZREM", keys.recent, strings.TrimSpace(sessionID)},
	})
}

func (s *UpstashRedisStore) LoadTranscript(ctx context.Context, sessionID string) (*Transcript, error) {
	keys, err := keysFor(s.keyPrefix, sessionID)
	if err != nil {
		return nil, err
	}
	raw, err := s.getString(ctx, keys.transcript)
	if err != nil {
		return nil, err
	}
	return decodeTranscript(raw)
}

// RecentTranscripts returns the newest transcripts first. Index entries whose
// transcript already expired are skipped.
func (s *UpstashRedisStore) RecentTranscripts(ctx context.Context, limit int) ([]Transcript, error) {
	resp, err := s.exec(ctx, []any{"ZREVRANGE", recentKey(s.keyPrefix), 0, recentLimit(limit) - 1})
	if err != nil {
		return nil, err
	}
	var ids []string
	if err := json.Unmarshal(resp.Result, &ids); err != nil {
		return nil, fmt.Errorf("decode recent index: %w", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	mget := []any{"MGET"}
	for _, id := range ids {
		keys, err := keysFor(s.keyPrefix, id)
		if err != nil {
			return nil, err
		}
		mget = append(mget, keys.transcript)
	}
	resp, err = s.exec(ctx, mget)
	if err != nil {
		return nil, err
	}
	var payloads []*string
	if err := json.Unmarshal(resp.Result, &payloads); err != nil {
		return nil, fmt.Errorf("decode transcripts: %w", err)
	}

	out := make([]Transcript, 0, len(payloads))
	for _, p := range payloads {
		if p == nil {
			continue
		}
		t, err := decodeTranscript([]byte(*p))
		if err != nil {
			return nil, err
		}
		out = append(out, *t)
	}
	return out, nil
}

func (s *UpstashRedisStore) getString(ctx context.Context, key string) ([]byte, error) {
	resp, err := s.exec(ctx, []any{"GET", key})
	if err != nil {
		return nil, err
	}
	result := bytes.TrimSpace(resp.Result)
	if len(result) == 0 || bytes.Equal(result, []byte("null")) {
		return nil, ErrStateNotFound
	}
	var encoded string
	if err := json.Unmarshal(result, &encoded); err != nil {
		return nil, fmt.Errorf("decode %s payload: %w", key, err)
	}
	return []byte(encoded), nil
}

func (s *UpstashRedisStore) exec(ctx context.Context, command []any) (*redisRESTResponse, error) {
	if len(command) == 0 {
		return nil, errors.New("empty redis command")
	}
	raw, err := s.post(ctx, "", command)
	if err != nil {
		return nil, err
	}
	var parsed redisRESTResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("decode redis response: %w", err)
	}
	if parsed.Error != "" {
		return nil, errors.New(parsed.Error)
	}
	return &parsed, nil
}

// multiExec runs commands atomically and fails on the first command error.
func (s *UpstashRedisStore) multiExec(ctx context.Context, commands [][]any) error {
	raw, err := s.post(ctx, "/multi-exec", commands)
	if err != nil {
		return err
	}
	var parsed []redisRESTResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		var single redisRESTResponse
		if json.Unmarshal(raw, &single) == nil && single.Error != "" {
			return errors.New(single.Error)
		}
		return fmt.Errorf("decode redis transaction response: %w", err)
	}
	if len(parsed) != len(commands) {
		return fmt.Errorf("redis transaction returned %d results for %d commands", len(parsed), len(commands))
	}
	for i, r := range parsed {
		if r.Error != "" {
			return fmt.Errorf("redis %v: %s", commands[i][0], r.Error)
		}
	}
	return nil
}

func (s *UpstashRedisStore) post(ctx context.Context, path string, payload any) ([]byte, error) {
	if s == nil {
		return nil, errors.New("nil store")
	}
	if strings.TrimSpace(s.baseURL) == "" {
		return nil, errors.New("empty redis url")
	}
	if strings.TrimSpace(s.token) == "" {
		return nil, errors.New("empty redis token")
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal redis command: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build redis request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute redis request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSizeBytes))
	if err != nil {
		return nil, fmt.Errorf("read redis response: %w", err)
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		var parsed redisRESTResponse
		if json.Unmarshal(raw, &parsed) == nil && parsed.Error != "" {
			return nil, errors.New(parsed.Error)
		}
		return nil, fmt.Errorf("redis http status=%d body=%s", resp.StatusCode, string(raw))
	}
	return raw, nil
}
