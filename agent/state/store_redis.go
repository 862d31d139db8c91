package state

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	_ Store            = (*RedisStore)(nil)
	_ TranscriptReader = (*RedisStore)(nil)
)

// RedisStore archives sessions in a regular Redis server with the same key
// layout as UpstashRedisStore.
type RedisStore struct {
	client    redis.Cmdable
	keyPrefix string
	ttl       time.Duration
}

type RedisStoreOption func(*RedisStore)

func WithRedisKeyPrefix(prefix string) RedisStoreOption {
	return func(s *RedisStore) {
		if trimmed := strings.TrimSpace(prefix); trimmed != "" {
			s.keyPrefix = trimmed
		}
	}
}

func WithRedisTTL(ttl time.Duration) RedisStoreOption {
	return func(s *RedisStore) {
		if ttl >= 0 {
			s.ttl = ttl
		}
	}
}

func NewRedisStore(client redis.Cmdable, opts ...RedisStoreOption) (*RedisStore, error) {
	if client == nil {
		return nil, errors.New("redis client is required")
	}
	store := &RedisStore{
		client:    client,
		keyPrefix: defaultStoreKeyPrefix,
		ttl:       defaultStoreTTL,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(store)
		}
	}
	return store, nil
}

func (s *RedisStore) Load(ctx context.Context, sessionID string) (*SessionState, error) {
	keys, err := keysFor(s.keyPrefix, sessionID)
	if err != nil {
		return nil, err
	}
	raw, err := s.get(ctx, keys.session)
	if err != nil {
		return nil, err
	}
	return decodeSession(raw)
}

func (s *RedisStore) Save(ctx context.Context, st *SessionState) error {
	session, transcript, err := encodeArchive(st)
	if err != nil {
		return err
	}
	keys, err := keysFor(s.keyPrefix, st.SessionID)
	if err != nil {
		return err
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, keys.session, session, s.ttl)
		pipe.Set(ctx, keys.transcript, transcript, s.ttl)
		pipe.ZAdd(ctx, keys.recent, redis.Z{Score: float64(st.UpdatedAt.UnixMilli()), Member: st.SessionID})
		if s.ttl > 0 {
			pipe.ZRemRangeByScore(ctx, keys.recent, "-inf", fmt.Sprintf("(%d", recentCutoff(st.UpdatedAt, s.ttl)))
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis save %s: %w", keys.session, err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, sessionID string) error {
	keys, err := keysFor(s.keyPrefix, sessionID)
	if err != nil {
		return err
	}
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, keys.session, keys.transcript)
		pipe.ZRem(ctx, keys.recent, strings.TrimSpace(sessionID))
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis delete %s: %w", keys.session, err)
	}
	return nil
}

func (s *RedisStore) LoadTranscript(ctx context.Context, sessionID string) (*Transcript, error) {
	keys, err := keysFor(s.keyPrefix, sessionID)
	if err != nil {
		return nil, err
	}
	raw, err := s.get(ctx, keys.transcript)
	if err != nil {
		return nil, err
	}
	return decodeTranscript(raw)
}

func (s *RedisStore) RecentTranscripts(ctx context.Context, limit int) ([]Transcript, error) {
	index := recentKey(s.keyPrefix)
	ids, err := s.client.ZRevRange(ctx, index, 0, int64(recentLimit(limit)-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis zrevrange %s: %w", index, err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	tkeys := make([]string, 0, len(ids))
	for _, id := range ids {
		keys, err := keysFor(s.keyPrefix, id)
		if err != nil {
			return nil, err
		}
		tkeys = append(tkeys, keys.transcript)
	}
	vals, err := s.client.MGet(ctx, tkeys...).Result()
	if err != nil {
		return nil, fmt.Errorf("redis mget transcripts: %w", err)
	}

	out := make([]Transcript, 0, len(vals))
	for _, v := range vals {
		raw, ok := v.(string)
		if !ok {
			continue
		}
		t, err := decodeTranscript([]byte(raw))
		if err != nil {
			return nil, err
		}
		out = append(out, *t)
	}
	return out, nil
}

func (s *RedisStore) get(ctx context.Context, key string) ([]byte, error) {
	raw, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrStateNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %s: %w", key, err)
	}
	return raw, nil
}
