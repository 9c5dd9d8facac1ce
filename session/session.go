// Package session provides the in-memory table of anonymous browser sessions.
//
// Sessions are ephemeral, single-process state: they are lost on restart and
// expire after a sliding period of inactivity.
package session

import "time"

// DefaultTTL is the sliding inactivity window after which a session expires.
// It also serves as the session cookie Max-Age.
const DefaultTTL = time.Hour

// Session is a server-side record identifying an anonymous client across
// requests. Values handed out by the Store are copies; mutating them has no
// effect on the table.
type Session struct {
	ID         string
	CreatedAt  time.Time
	LastSeenAt time.Time
	// CSRFToken is the token most recently issued for this session. Empty
	// until the first issuance.
	CSRFToken string
}

// expired reports whether the session has been idle longer than ttl at now.
func (s *Session) expired(now time.Time, ttl time.Duration) bool {
	return now.Sub(s.LastSeenAt) > ttl
}
