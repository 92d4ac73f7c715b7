package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/nikitamakarovs05-netizen/tg-market-bot/internal/domain"
)

// Store persists per-identity conversation state. The contract is the same
// whatever the backend: at most one state per identity, latest write wins.
type Store interface {
	// Get returns nil when the identity has no active state.
	Get(ctx context.Context, identity int64) (*domain.SessionState, error)
	Put(ctx context.Context, identity int64, state *domain.SessionState) error
	Clear(ctx context.Context, identity int64) error
}

// RedisStore keeps conversation state in Redis so in-progress flows survive
// process restarts.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func sessionKey(identity int64) string {
	return fmt.Sprintf("session:%d", identity)
}

func (s *RedisStore) Get(ctx context.Context, identity int64) (*domain.SessionState, error) {
	data, err := s.client.Get(ctx, sessionKey(identity)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}

	var state domain.SessionState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	return &state, nil
}

func (s *RedisStore) Put(ctx context.Context, identity int64, state *domain.SessionState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := s.client.Set(ctx, sessionKey(identity), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

func (s *RedisStore) Clear(ctx context.Context, identity int64) error {
	if err := s.client.Del(ctx, sessionKey(identity)).Err(); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}

// MemoryStore is an in-process Store for tests and single-node deployments
// that can afford to lose in-progress conversations on restart.
type MemoryStore struct {
	mu     sync.Mutex
	states map[int64]*domain.SessionState
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{states: make(map[int64]*domain.SessionState)}
}

func (s *MemoryStore) Get(_ context.Context, identity int64) (*domain.SessionState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	state, ok := s.states[identity]
	if !ok {
		return nil, nil
	}
	copied := *state
	return &copied, nil
}

func (s *MemoryStore) Put(_ context.Context, identity int64, state *domain.SessionState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *state
	s.states[identity] = &copied
	return nil
}

func (s *MemoryStore) Clear(_ context.Context, identity int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.states, identity)
	return nil
}
