package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/aiox-platform/memchat/internal/memory"
	"github.com/aiox-platform/memchat/internal/metrics"
)

type memoryEntry struct {
	session   Session
	expiresAt time.Time
}

// MemoryStore keeps sessions in process. Sessions expire after ttl of
// inactivity, and once maxSessions is reached the least recently updated
// session is evicted to make room.
type MemoryStore struct {
	mu          sync.Mutex
	sessions    map[string]*memoryEntry
	ttl         time.Duration
	maxSessions int
	maxHistory  int
	now         func() time.Time
}

func NewMemoryStore(ttl time.Duration, maxSessions, maxHistory int) *MemoryStore {
	return &MemoryStore{
		sessions:    make(map[string]*memoryEntry),
		ttl:         ttl,
		maxSessions: maxSessions,
		maxHistory:  maxHistory,
		now:         time.Now,
	}
}

func (s *MemoryStore) GetOrCreate(_ context.Context, id string) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if id != "" {
		if e, ok := s.live(id, now); ok {
			return snapshot(e), nil
		}
	} else {
		id = uuid.NewString()
	}

	s.sweep(now)
	if s.maxSessions > 0 && len(s.sessions) >= s.maxSessions {
		s.evictOldest()
	}

	e := &memoryEntry{
		session:   Session{ID: id, State: State{UpdatedAt: now}},
		expiresAt: now.Add(s.ttl),
	}
	s.sessions[id] = e
	metrics.SessionsActive.Set(float64(len(s.sessions)))
	return snapshot(e), nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.live(id, s.now())
	if !ok {
		return nil, ErrNotFound
	}
	return snapshot(e), nil
}

func (s *MemoryStore) AppendMessages(_ context.Context, id string, msgs ...memory.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	e, ok := s.live(id, now)
	if !ok {
		return ErrNotFound
	}

	h := append(e.session.History, msgs...)
	if s.maxHistory > 0 && len(h) > s.maxHistory {
		h = append([]memory.Message(nil), h[len(h)-s.maxHistory:]...)
	}
	e.session.History = h
	e.session.State.UpdatedAt = now
	e.expiresAt = now.Add(s.ttl)
	return nil
}

func (s *MemoryStore) SaveState(_ context.Context, id string, st State) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	e, ok := s.live(id, now)
	if !ok {
		return ErrNotFound
	}

	st = cloneState(st)
	if st.UpdatedAt.IsZero() {
		st.UpdatedAt = now
	}
	e.session.State = st
	e.expiresAt = now.Add(s.ttl)
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, id)
	metrics.SessionsActive.Set(float64(len(s.sessions)))
	return nil
}

// Len returns the number of sessions held, expired ones included until swept.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// live returns the entry for id, dropping it if it has expired.
func (s *MemoryStore) live(id string, now time.Time) (*memoryEntry, bool) {
	e, ok := s.sessions[id]
	if !ok {
		return nil, false
	}
	if s.ttl > 0 && !now.Before(e.expiresAt) {
		delete(s.sessions, id)
		metrics.SessionsActive.Set(float64(len(s.sessions)))
		return nil, false
	}
	return e, true
}

func (s *MemoryStore) sweep(now time.Time) {
	if s.ttl <= 0 {
		return
	}
	for id, e := range s.sessions {
		if !now.Before(e.expiresAt) {
			delete(s.sessions, id)
		}
	}
}

func (s *MemoryStore) evictOldest() {
	var oldestID string
	var oldest time.Time
	for id, e := range s.sessions {
		if oldestID == "" || e.session.State.UpdatedAt.Before(oldest) {
			oldestID, oldest = id, e.session.State.UpdatedAt
		}
	}
	if oldestID != "" {
		delete(s.sessions, oldestID)
	}
}

func snapshot(e *memoryEntry) *Session {
	return &Session{
		ID:      e.session.ID,
		History: append([]memory.Message{}, e.session.History...),
		State:   cloneState(e.session.State),
	}
}
