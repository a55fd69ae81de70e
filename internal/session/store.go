package session

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"exitsurvey/internal/survey"
)

// Session is one uploaded export after normalization. It is never modified
// after Put.
type Session struct {
	ID        string
	FileName  string
	CreatedAt time.Time
	Table     *survey.Table
	Extractor *survey.Extractor
}

type entry struct {
	session    *Session
	lastAccess time.Time
}

// Store holds sessions until they have been idle for the TTL.
type Store struct {
	entries  map[string]*entry
	mutex    sync.RWMutex
	ttl      time.Duration
	maxSize  int
	now      func() time.Time
	observe  func(delta int)
	stopChan chan struct{}
	stopOnce sync.Once
}

// Option configures a Store.
type Option func(*Store)

// WithSizeObserver calls fn with +1 or -n whenever the number of stored
// sessions changes.
func WithSizeObserver(fn func(delta int)) Option {
	return func(s *Store) { s.observe = fn }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// NewStore creates a store. A maxSize of zero or less means unbounded.
func NewStore(ttl time.Duration, maxSize int, opts ...Option) *Store {
	s := &Store{
		entries:  make(map[string]*entry),
		ttl:      ttl,
		maxSize:  maxSize,
		now:      time.Now,
		observe:  func(int) {},
		stopChan: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Put stores a new session and returns it. When the store is full the least
// recently used session is evicted.
func (s *Store) Put(fileName string, table *survey.Table, ext *survey.Extractor) *Session {
	now := s.now()
	sess := &Session{
		ID:        uuid.New().String(),
		FileName:  fileName,
		CreatedAt: now,
		Table:     table,
		Extractor: ext,
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.maxSize > 0 && len(s.entries) >= s.maxSize {
		s.evictOldest()
	}
	s.entries[sess.ID] = &entry{session: sess, lastAccess: now}
	s.observe(1)
	return sess
}

// Get returns the session and refreshes its idle timer. Expired sessions are
// removed and reported as missing.
func (s *Store) Get(id string) (*Session, bool) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	e, ok := s.entries[id]
	if !ok {
		return nil, false
	}
	now := s.now()
	if s.expired(e, now) {
		delete(s.entries, id)
		s.observe(-1)
		return nil, false
	}
	e.lastAccess = now
	return e.session, true
}

// Delete removes a session. It reports whether the session existed.
func (s *Store) Delete(id string) bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if _, ok := s.entries[id]; !ok {
		return false
	}
	delete(s.entries, id)
	s.observe(-1)
	return true
}

// Sweep removes every expired session and returns how many were removed.
func (s *Store) Sweep() int {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	now := s.now()
	removed := 0
	for id, e := range s.entries {
		if s.expired(e, now) {
			delete(s.entries, id)
			removed++
		}
	}
	if removed > 0 {
		s.observe(-removed)
	}
	return removed
}

// Len returns the number of stored sessions, expired ones included until
// the next sweep.
func (s *Store) Len() int {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return len(s.entries)
}

// Start sweeps every interval until Stop is called. A non-positive interval
// leaves expiry to lookups.
func (s *Store) Start(interval time.Duration, onSweep func(removed int)) {
	if interval <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				if n := s.Sweep(); n > 0 && onSweep != nil {
					onSweep(n)
				}
			case <-s.stopChan:
				return
			}
		}
	}()
}

// Stop ends the background sweep.
func (s *Store) Stop() {
	s.stopOnce.Do(func() { close(s.stopChan) })
}

func (s *Store) expired(e *entry, now time.Time) bool {
	return s.ttl > 0 && now.Sub(e.lastAccess) >= s.ttl
}

func (s *Store) evictOldest() {
	var oldestKey string
	var oldestTime time.Time

	for key, e := range s.entries {
		if oldestKey == "" || e.lastAccess.Before(oldestTime) {
			oldestKey = key
			oldestTime = e.lastAccess
		}
	}

	if oldestKey != "" {
		delete(s.entries, oldestKey)
		s.observe(-1)
	}
}
