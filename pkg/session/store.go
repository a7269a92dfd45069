package session

import (
	"sort"
	"sync"
	"time"

	"github.com/cueso/cueso/pkg/providers/provider"
)

const (
	defaultMaxSessions = 100
	defaultTTL         = time.Hour
)

type entry struct {
	session *Session
	touched time.Time
}

// Store is an in-memory session store with TTL expiration and LRU eviction.
// Expired sessions are swept lazily on create, get and list.
type Store struct {
	mu          sync.Mutex
	maxSessions int
	ttl         time.Duration
	now         func() time.Time
	entries     map[string]*entry
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithMaxSessions sets the capacity before LRU eviction kicks in.
func WithMaxSessions(n int) StoreOption {
	return func(s *Store) { s.maxSessions = n }
}

// WithTTL sets the idle lifetime of a session.
func WithTTL(d time.Duration) StoreOption {
	return func(s *Store) { s.ttl = d }
}

// WithClock overrides the time source. Intended for tests.
func WithClock(now func() time.Time) StoreOption {
	return func(s *Store) { s.now = now }
}

// NewStore creates a Store ready for use.
func NewStore(opts ...StoreOption) *Store {
	s := &Store{
		maxSessions: defaultMaxSessions,
		ttl:         defaultTTL,
		now:         time.Now,
		entries:     make(map[string]*entry),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// sweepExpired removes sessions idle past their TTL. Callers must hold mu.
func (s *Store) sweepExpired() {
	now := s.now()
	for id, e := range s.entries {
		if now.Sub(e.touched) > s.ttl {
			delete(s.entries, id)
		}
	}
}

// evictLRU removes the least-recently-used session when at capacity. Callers
// must hold mu.
func (s *Store) evictLRU() {
	if len(s.entries) < s.maxSessions {
		return
	}

	var oldestID string
	var oldest time.Time
	for id, e := range s.entries {
		if oldestID == "" || e.touched.Before(oldest) {
			oldestID = id
			oldest = e.touched
		}
	}
	delete(s.entries, oldestID)
}

// Create builds a new session under id, evicting expired and over-capacity
// sessions as needed. An existing session under the same id is replaced.
func (s *Store) Create(id string, p provider.Provider, cfg Config) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sweepExpired()
	s.evictLRU()

	sess := New(id, p, cfg)
	s.entries[id] = &entry{session: sess, touched: s.now()}
	return sess
}

// Get returns the session under id, refreshing its TTL.
func (s *Store) Get(id string) (*Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sweepExpired()

	e, ok := s.entries[id]
	if !ok {
		return nil, false
	}
	e.touched = s.now()
	return e.session, true
}

// Delete removes the session under id. Deleting an absent id is a no-op.
func (s *Store) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, id)
}

// List returns the ids of all live sessions, sorted.
func (s *Store) List() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sweepExpired()

	ids := make([]string, 0, len(s.entries))
	for id := range s.entries {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
