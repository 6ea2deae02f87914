package convo

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// State names the step of a multi-step admin flow.
type State string

const (
	StateIdle                     State = ""
	StateAwaitingVideo            State = "awaiting_video"
	StateAwaitingDescription      State = "awaiting_description"
	StateAwaitingBroadcastText    State = "awaiting_broadcast_text"
	StateAwaitingBroadcastConfirm State = "awaiting_broadcast_confirm"
)

// Session is the per-user conversation state plus the input gathered so far.
type Session struct {
	State  State  `json:"state"`
	FileID string `json:"file_id,omitempty"`
	Text   string `json:"text,omitempty"`
}

// Idle reports whether the user is outside any flow.
func (s Session) Idle() bool {
	return s.State == StateIdle
}

// SessionStore keeps sessions keyed by Telegram user id.
type SessionStore interface {
	Get(ctx context.Context, userID int64) (Session, error)
	Set(ctx context.Context, userID int64, session Session) error
	Clear(ctx context.Context, userID int64) error
}

// JSONCache is the slice of the Redis wrapper used for sessions and membership caching.
type JSONCache interface {
	GetJSON(ctx context.Context, key string, dest any) (bool, error)
	SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// MemoryStore keeps sessions in process memory. Sessions never expire.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[int64]Session
}

// NewMemoryStore returns an empty in-memory session store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: map[int64]Session{}}
}

func (m *MemoryStore) Get(_ context.Context, userID int64) (Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessions[userID], nil
}

func (m *MemoryStore) Set(_ context.Context, userID int64, session Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if session.Idle() {
		delete(m.sessions, userID)
		return nil
	}
	m.sessions[userID] = session
	return nil
}

func (m *MemoryStore) Clear(_ context.Context, userID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, userID)
	return nil
}

// RedisStore keeps sessions in Redis so a stalled flow expires after ttl.
type RedisStore struct {
	cache JSONCache
	ttl   time.Duration
}

// NewRedisStore returns a session store backed by cache.
func NewRedisStore(cache JSONCache, ttl time.Duration) *RedisStore {
	return &RedisStore{cache: cache, ttl: ttl}
}

func (r *RedisStore) Get(ctx context.Context, userID int64) (Session, error) {
	var s Session
	if _, err := r.cache.GetJSON(ctx, sessionKey(userID), &s); err != nil {
		return Session{}, fmt.Errorf("load session: %w", err)
	}
	return s, nil
}

func (r *RedisStore) Set(ctx context.Context, userID int64, session Session) error {
	if session.Idle() {
		return r.Clear(ctx, userID)
	}
	if err := r.cache.SetJSON(ctx, sessionKey(userID), session, r.ttl); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

func (r *RedisStore) Clear(ctx context.Context, userID int64) error {
	if err := r.cache.Delete(ctx, sessionKey(userID)); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}

func sessionKey(userID int64) string {
	return fmt.Sprintf("session:%d", userID)
}

// keyedMutex serialises work per user while letting different users proceed.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[int64]*keyedLock
}

type keyedLock struct {
	mu   sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: map[int64]*keyedLock{}}
}

// Lock blocks until key is free and returns the matching unlock.
func (k *keyedMutex) Lock(key int64) func() {
	k.mu.Lock()
	l, ok := k.locks[key]
	if !ok {
		l = &keyedLock{}
		k.locks[key] = l
	}
	l.refs++
	k.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		k.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
