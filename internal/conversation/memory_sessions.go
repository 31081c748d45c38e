package conversation

import (
	"context"
	"sync"
	"time"
)

// MemorySessionStore keeps sessions in process memory. Suitable for a single
// instance; use the Redis store when running more than one.
type MemorySessionStore struct {
	mu       sync.Mutex
	sessions map[string]*memorySessionEntry
	ttl      time.Duration
	now      func() time.Time
	stop     chan struct{}
	stopOnce sync.Once
}

type memorySessionEntry struct {
	session   Session
	expiresAt time.Time
}

// NewMemorySessionStore builds a store whose sessions expire after ttl of
// inactivity. A background janitor evicts expired entries.
func NewMemorySessionStore(ttl time.Duration) *MemorySessionStore {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	s := &MemorySessionStore{
		sessions: make(map[string]*memorySessionEntry),
		ttl:      ttl,
		now:      func() time.Time { return time.Now().UTC() },
		stop:     make(chan struct{}),
	}
	go s.janitor()
	return s
}

func (s *MemorySessionStore) Get(_ context.Context, patientPhone string) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.sessions[patientPhone]
	if !ok || s.now().After(entry.expiresAt) {
		delete(s.sessions, patientPhone)
		return nil, ErrSessionNotFound
	}
	cp := entry.session
	return &cp, nil
}

func (s *MemorySessionStore) Put(_ context.Context, session *Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *session
	s.sessions[session.PatientPhone] = &memorySessionEntry{
		session:   cp,
		expiresAt: s.now().Add(s.ttl),
	}
	return nil
}

func (s *MemorySessionStore) Delete(_ context.Context, patientPhone string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, patientPhone)
	return nil
}

// Close stops the janitor goroutine.
func (s *MemorySessionStore) Close() {
	s.stopOnce.Do(func() { close(s.stop) })
}

func (s *MemorySessionStore) janitor() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.evictExpired()
		}
	}
}

func (s *MemorySessionStore) evictExpired() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	for phone, entry := range s.sessions {
		if now.After(entry.expiresAt) {
			delete(s.sessions, phone)
		}
	}
}
