package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/aiox-platform/memchat/internal/memory"
)

// RedisStore keeps sessions in Redis: history in a capped list, state as a
// JSON string. Both keys share the session TTL, refreshed on every write.
type RedisStore struct {
	client     *redis.Client
	ttl        time.Duration
	maxHistory int
}

// NewRedisStore creates a Redis-backed session store.
func NewRedisStore(client *redis.Client, ttl time.Duration, maxHistory int) *RedisStore {
	return &RedisStore{client: client, ttl: ttl, maxHistory: maxHistory}
}

func historyKey(id string) string {
	return fmt.Sprintf("memchat:session:%s:history", id)
}

func stateKey(id string) string {
	return fmt.Sprintf("memchat:session:%s:state", id)
}

func (s *RedisStore) GetOrCreate(ctx context.Context, id string) (*Session, error) {
	if id == "" {
		id = uuid.NewString()
	}

	data, err := json.Marshal(State{UpdatedAt: time.Now().UTC()})
	if err != nil {
		return nil, fmt.Errorf("marshaling state: %w", err)
	}
	// SETNX leaves an existing session untouched.
	if err := s.client.SetNX(ctx, stateKey(id), data, s.ttl).Err(); err != nil {
		return nil, fmt.Errorf("setnx %s: %w", stateKey(id), err)
	}
	return s.Get(ctx, id)
}

func (s *RedisStore) Get(ctx context.Context, id string) (*Session, error) {
	raw, err := s.client.Get(ctx, stateKey(id)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", stateKey(id), err)
	}

	var st State
	if err := json.Unmarshal([]byte(raw), &st); err != nil {
		return nil, fmt.Errorf("decoding state for %s: %w", id, err)
	}

	vals, err := s.client.LRange(ctx, historyKey(id), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("lrange %s: %w", historyKey(id), err)
	}
	history := make([]memory.Message, 0, len(vals))
	for _, v := range vals {
		var m memory.Message
		if err := json.Unmarshal([]byte(v), &m); err != nil {
			continue // skip malformed entries
		}
		history = append(history, m)
	}

	return &Session{ID: id, History: history, State: st}, nil
}

// AppendMessages pushes msgs and trims the list to maxHistory.
func (s *RedisStore) AppendMessages(ctx context.Context, id string, msgs ...memory.Message) error {
	if err := s.ensureExists(ctx, id); err != nil {
		return err
	}
	if len(msgs) == 0 {
		return nil
	}

	values := make([]any, 0, len(msgs))
	for _, m := range msgs {
		data, err := json.Marshal(m)
		if err != nil {
			return fmt.Errorf("marshaling message: %w", err)
		}
		values = append(values, string(data))
	}

	key := historyKey(id)
	pipe := s.client.Pipeline()
	pipe.RPush(ctx, key, values...)
	if s.maxHistory > 0 {
		pipe.LTrim(ctx, key, int64(-s.maxHistory), -1)
	}
	if s.ttl > 0 {
		pipe.Expire(ctx, key, s.ttl)
		pipe.Expire(ctx, stateKey(id), s.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("pipeline exec for %s: %w", key, err)
	}
	return nil
}

func (s *RedisStore) SaveState(ctx context.Context, id string, st State) error {
	if st.UpdatedAt.IsZero() {
		st.UpdatedAt = time.Now().UTC()
	}
	data, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("marshaling state: %w", err)
	}

	err = s.client.SetArgs(ctx, stateKey(id), data, redis.SetArgs{Mode: "XX", TTL: s.ttl}).Err()
	if errors.Is(err, redis.Nil) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("set %s: %w", stateKey(id), err)
	}
	if s.ttl > 0 {
		if err := s.client.Expire(ctx, historyKey(id), s.ttl).Err(); err != nil {
			return fmt.Errorf("expire %s: %w", historyKey(id), err)
		}
	}
	return nil
}

// Delete removes both keys of a session.
func (s *RedisStore) Delete(ctx context.Context, id string) error {
	return s.client.Del(ctx, historyKey(id), stateKey(id)).Err()
}

func (s *RedisStore) ensureExists(ctx context.Context, id string) error {
	n, err := s.client.Exists(ctx, stateKey(id)).Result()
	if err != nil {
		return fmt.Errorf("exists %s: %w", stateKey(id), err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
