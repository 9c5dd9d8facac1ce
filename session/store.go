package session

import (
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/jmcleod/ironpage/internal/uuid"
)

// Store is a thread-safe table of live sessions. It is the single owner of
// Session records; every accessor returns a copy.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*Session

	ttl    time.Duration
	now    func() time.Time
	newID  func() string
	logger *slog.Logger

	stopOnce sync.Once
	stopCh   chan struct{}
	started  bool
}

// Option configures a Store.
type Option func(*Store)

// WithTTL sets the sliding inactivity timeout. Non-positive values are ignored.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithClock overrides the time source. Intended for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets the logger used by the background sweeper.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// withIDSource overrides id generation. Used by tests to force collisions.
func withIDSource(fn func() string) Option {
	return func(s *Store) {
		s.newID = fn
	}
}

// NewStore creates an empty session table.
func NewStore(opts ...Option) *Store {
	s := &Store{
		sessions: make(map[string]*Session),
		ttl:      DefaultTTL,
		now:      time.Now,
		newID:    uuid.New,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		stopCh:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// TTL returns the configured inactivity timeout.
func (s *Store) TTL() time.Duration {
	return s.ttl
}

// Create allocates a new session with a fresh unique id.
func (s *Store) Create() Session {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.newID()
	for {
		if _, taken := s.sessions[id]; !taken {
			break
		}
		id = s.newID()
	}
	sess := &Session{
		ID:         id,
		CreatedAt:  now,
		LastSeenAt: now,
	}
	s.sessions[id] = sess
	return *sess
}

// Get returns the session for id if it exists and has not expired. Expired
// entries are reported absent and removed.
func (s *Store) Get(id string) (Session, bool) {
	now := s.now()

	s.mu.RLock()
	sess, ok := s.sessions[id]
	var out Session
	live := ok && !sess.expired(now, s.ttl)
	if live {
		out = *sess
	}
	s.mu.RUnlock()

	if ok && !live {
		s.evict(id, now)
		return Session{}, false
	}
	return out, live
}

// Touch marks a live session as seen now and returns the updated copy.
// Unknown or expired ids are ignored; Touch never creates a session.
func (s *Store) Touch(id string) (Session, bool) {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return Session{}, false
	}
	if sess.expired(now, s.ttl) {
		delete(s.sessions, id)
		return Session{}, false
	}
	// Concurrent touches may arrive out of order; keep the later timestamp.
	if now.After(sess.LastSeenAt) {
		sess.LastSeenAt = now
	}
	return *sess, true
}

// UpdateCSRF replaces the token stored for a live session. No-op otherwise.
func (s *Store) UpdateCSRF(id, token string) {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok || sess.expired(now, s.ttl) {
		return
	}
	sess.CSRFToken = token
}

// CleanupExpired removes every expired session and returns how many were
// removed.
func (s *Store) CleanupExpired() int {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, sess := range s.sessions {
		if sess.expired(now, s.ttl) {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed
}

// Len returns the number of entries in the table, including expired entries
// that have not been swept yet.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// evict deletes id if it is still expired. The entry may have been touched
// between the read and write lock, in which case it is kept.
func (s *Store) evict(id string, now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.sessions[id]; ok && sess.expired(now, s.ttl) {
		delete(s.sessions, id)
	}
}
