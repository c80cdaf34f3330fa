package redemption

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Store keeps one redemption marker per user
type Store interface {
	Get(ctx context.Context, userID uuid.UUID) (*Marker, error)
	Set(ctx context.Context, userID uuid.UUID, m *Marker) error
	Delete(ctx context.Context, userID uuid.UUID) error
}

func markerKey(userID uuid.UUID) string {
	return "checkout:coins:" + userID.String()
}

// RedisStore keeps markers as JSON values with a TTL
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func (s *RedisStore) Get(ctx context.Context, userID uuid.UUID) (*Marker, error) {
	data, err := s.client.Get(ctx, markerKey(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get redemption marker: %w", err)
	}

	var m Marker
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decode redemption marker: %w", err)
	}
	return &m, nil
}

func (s *RedisStore) Set(ctx context.Context, userID uuid.UUID, m *Marker) error {
	data, err := json.Marshal(m)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, markerKey(userID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("set redemption marker: %w", err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, userID uuid.UUID) error {
	if err := s.client.Del(ctx, markerKey(userID)).Err(); err != nil {
		return fmt.Errorf("delete redemption marker: %w", err)
	}
	return nil
}

// MemoryStore is the single-process fallback used when Redis is not configured
type MemoryStore struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	markers map[uuid.UUID]memoryEntry
}

type memoryEntry struct {
	marker    Marker
	expiresAt time.Time
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{ttl: ttl, now: time.Now, markers: make(map[uuid.UUID]memoryEntry)}
}

func (s *MemoryStore) Get(ctx context.Context, userID uuid.UUID) (*Marker, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.markers[userID]
	if !ok {
		return nil, nil
	}
	if s.ttl > 0 && !s.now().Before(e.expiresAt) {
		delete(s.markers, userID)
		return nil, nil
	}
	m := e.marker
	return &m, nil
}

func (s *MemoryStore) Set(ctx context.Context, userID uuid.UUID, m *Marker) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.markers[userID] = memoryEntry{marker: *m, expiresAt: s.now().Add(s.ttl)}
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, userID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.markers, userID)
	return nil
}
