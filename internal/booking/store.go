package booking

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// DraftStore persists wizard snapshots per patient. Load returns a zero
// (Closed) State when nothing is stored. Card fields are never persisted.
type DraftStore interface {
	Load(ctx context.Context, userID string) (State, error)
	Save(ctx context.Context, userID string, s State) error
	Delete(ctx context.Context, userID string) error
}

func stripPayment(s State) State {
	s = s.clone()
	if s.Draft != nil {
		s.Draft.Payment = Payment{}
	}
	return s
}

type memoryEntry struct {
	state   State
	expires time.Time
}

// MemoryStore keeps drafts in process.
type MemoryStore struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]memoryEntry
	now     func() time.Time
}

// NewMemoryStore creates an in-memory store. ttl <= 0 keeps drafts until
// they are deleted.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{ttl: ttl, entries: make(map[string]memoryEntry), now: time.Now}
}

func (m *MemoryStore) Load(_ context.Context, userID string) (State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[userID]
	if !ok {
		return State{}, nil
	}
	if !e.expires.IsZero() && !m.now().Before(e.expires) {
		delete(m.entries, userID)
		return State{}, nil
	}
	return e.state.clone(), nil
}

func (m *MemoryStore) Save(_ context.Context, userID string, s State) error {
	e := memoryEntry{state: stripPayment(s)}
	if m.ttl > 0 {
		e.expires = m.now().Add(m.ttl)
	}
	m.mu.Lock()
	m.entries[userID] = e
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, userID string) error {
	m.mu.Lock()
	delete(m.entries, userID)
	m.mu.Unlock()
	return nil
}

// RedisStore keeps drafts as JSON under booking:draft:{userID}.
type RedisStore struct {
	client redis.UniversalClient
	ttl    time.Duration
}

// NewRedisStore panics when client is nil.
func NewRedisStore(client redis.UniversalClient, ttl time.Duration) *RedisStore {
	if client == nil {
		panic("booking: redis client cannot be nil")
	}
	return &RedisStore{client: client, ttl: ttl}
}

func draftKey(userID string) string {
	return "booking:draft:" + userID
}

func (r *RedisStore) Load(ctx context.Context, userID string) (State, error) {
	raw, err := r.client.Get(ctx, draftKey(userID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return State{}, nil
		}
		return State{}, fmt.Errorf("booking: load draft: %w", err)
	}
	var s State
	if err := json.Unmarshal(raw, &s); err != nil {
		return State{}, fmt.Errorf("booking: decode draft: %w", err)
	}
	return s, nil
}

func (r *RedisStore) Save(ctx context.Context, userID string, s State) error {
	raw, err := json.Marshal(stripPayment(s))
	if err != nil {
		return fmt.Errorf("booking: encode draft: %w", err)
	}
	if err := r.client.Set(ctx, draftKey(userID), raw, r.ttl).Err(); err != nil {
		return fmt.Errorf("booking: save draft: %w", err)
	}
	return nil
}

func (r *RedisStore) Delete(ctx context.Context, userID string) error {
	if err := r.client.Del(ctx, draftKey(userID)).Err(); err != nil {
		return fmt.Errorf("booking: delete draft: %w", err)
	}
	return nil
}

var (
	_ DraftStore = (*MemoryStore)(nil)
	_ DraftStore = (*RedisStore)(nil)
)

// keyedMutex serializes work per patient. Entries are dropped once unused.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*refMutex
}

type refMutex struct {
	sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*refMutex)}
}

func (k *keyedMutex) Lock(key string) func() {
	k.mu.Lock()
	m, ok := k.locks[key]
	if !ok {
		m = &refMutex{}
		k.locks[key] = m
	}
	m.refs++
	k.mu.Unlock()

	m.Lock()
	return func() {
		m.Unlock()
		k.mu.Lock()
		m.refs--
		if m.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
