// Package csrf issues and validates anti-forgery tokens bound to a session id.
//
// Tokens are self-authenticating: validation recomputes an HMAC from the
// process secret and the session id, so no server-side token storage is
// required. A token generated for one session never validates for another,
// and tokens from a previous process (a different secret) are rejected.
package csrf

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"sync"
	"time"

	"github.com/awnumar/memguard"

	"github.com/jmcleod/ironpage/internal/util"
)

const (
	// HeaderName carries the token on requests and responses.
	HeaderName = "X-CSRF-Token"

	// DefaultMaxAge bounds how long a token remains valid. It matches the
	// session inactivity timeout.
	DefaultMaxAge = time.Hour
	// DefaultRefreshAfter is how long an issued token is reused before a new
	// one is generated for the session.
	DefaultRefreshAfter = 5 * time.Minute

	secretLen    = 32
	nonceLen     = 16
	timestampLen = 8
	macLen       = sha256.Size
	payloadLen   = timestampLen + nonceLen
	tokenLen     = payloadLen + macLen

	// clockSkew tolerates tokens stamped slightly ahead of the validating clock.
	clockSkew = time.Minute

	keyInfo   = "ironpage:csrf:key:v1"
	macDomain = "ironpage:csrf:v1"
)

// Service generates and validates CSRF tokens. It is safe for concurrent use.
type Service struct {
	mu sync.RWMutex
	// key is opened once and held locked and read-only until Close.
	key *memguard.LockedBuffer

	now          func() time.Time
	maxAge       time.Duration
	refreshAfter time.Duration
}

// Option configures a Service.
type Option func(*Service)

// WithMaxAge sets how long a token stays valid. Non-positive values are ignored.
func WithMaxAge(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.maxAge = d
		}
	}
}

// WithRefreshAfter sets the reuse window reported by Fresh. Non-positive
// values are ignored.
func WithRefreshAfter(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.refreshAfter = d
		}
	}
}

// WithClock overrides the time source. Intended for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// NewService draws a fresh process secret and derives the token MAC key from
// it. The secret is never persisted; an error here must abort startup.
func NewService(opts ...Option) (*Service, error) {
	secret, err := util.RandomBytes(secretLen)
	if err != nil {
		return nil, fmt.Errorf("generating csrf secret: %w", err)
	}
	defer util.WipeBytes(secret)

	key, err := util.HKDF(secret, nil, []byte(keyInfo))
	if err != nil {
		return nil, fmt.Errorf("deriving csrf key: %w", err)
	}

	s := &Service{
		now:          time.Now,
		maxAge:       DefaultMaxAge,
		refreshAfter: DefaultRefreshAfter,
	}
	// NewBufferFromBytes wipes key after moving it into guarded memory.
	s.key = memguard.NewBufferFromBytes(key)
	s.key.Freeze()
	for _, opt := range opts {
		opt(s)
	}
	if s.refreshAfter > s.maxAge {
		s.refreshAfter = s.maxAge
	}
	return s, nil
}

// GenerateToken returns a new token bound to sessionID. It returns an empty
// string only if the system random source fails or the service is closed,
// which never validates.
func (s *Service) GenerateToken(sessionID string) string {
	nonce, err := util.RandomBytes(nonceLen)
	if err != nil {
		return ""
	}
	payload := make([]byte, payloadLen, tokenLen)
	binary.BigEndian.PutUint64(payload[:timestampLen], uint64(s.now().Unix()))
	copy(payload[timestampLen:], nonce)

	mac, ok := s.sign(sessionID, payload)
	if !ok {
		return ""
	}
	return base64.RawURLEncoding.EncodeToString(append(payload, mac...))
}

// ValidateToken reports whether token was generated by this service for
// sessionID and has not exceeded the max age. The MAC comparison is constant
// time. Malformed input yields false.
func (s *Service) ValidateToken(token, sessionID string) bool {
	_, ok := s.verify(token, sessionID)
	return ok
}

// Fresh reports whether token is valid for sessionID and young enough to be
// handed out again instead of issuing a new one.
func (s *Service) Fresh(token, sessionID string) bool {
	issued, ok := s.verify(token, sessionID)
	if !ok {
		return false
	}
	return s.now().Sub(issued) < s.refreshAfter
}

// MaxAge returns how long tokens remain valid.
func (s *Service) MaxAge() time.Duration {
	return s.maxAge
}

// Close destroys the key. Tokens cannot be generated or validated
// afterwards. It is safe to call more than once.
func (s *Service) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.key != nil {
		s.key.Destroy()
		s.key = nil
	}
}

func (s *Service) verify(token, sessionID string) (time.Time, bool) {
	if token == "" || sessionID == "" || len(token) != base64.RawURLEncoding.EncodedLen(tokenLen) {
		return time.Time{}, false
	}
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil || len(raw) != tokenLen {
		return time.Time{}, false
	}
	payload, mac := raw[:payloadLen], raw[payloadLen:]

	expected, ok := s.sign(sessionID, payload)
	if !ok || !hmac.Equal(mac, expected) {
		return time.Time{}, false
	}

	issued := time.Unix(int64(binary.BigEndian.Uint64(payload[:timestampLen])), 0)
	now := s.now()
	if issued.After(now.Add(clockSkew)) {
		return time.Time{}, false
	}
	if now.Sub(issued) > s.maxAge {
		return time.Time{}, false
	}
	return issued, true
}

// sign computes HMAC-SHA256(key, domain || 0 || sessionID || 0 || payload).
func (s *Service) sign(sessionID string, payload []byte) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.key == nil || !s.key.IsAlive() {
		return nil, false
	}

	h := hmac.New(sha256.New, s.key.Bytes())
	h.Write([]byte(macDomain))
	h.Write([]byte{0})
	h.Write([]byte(sessionID))
	h.Write([]byte{0})
	h.Write(payload)
	return h.Sum(nil), true
}
