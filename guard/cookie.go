package guard

import (
	"net/http"
	"strings"
	"time"
)

// SessionCookieName is the only cookie read or written by the pipeline.
const SessionCookieName = "ironpage_session"

// maxSessionIDLen bounds the accepted cookie value length.
const maxSessionIDLen = 128

// SessionIDFromHeader scans Cookie header values for the session cookie and
// returns its value. A missing, empty or malformed value is reported absent.
func SessionIDFromHeader(values ...string) (string, bool) {
	for _, header := range values {
		for _, pair := range strings.Split(header, ";") {
			name, value, ok := strings.Cut(strings.TrimSpace(pair), "=")
			if !ok || strings.TrimSpace(name) != SessionCookieName {
				continue
			}
			value = strings.TrimSpace(value)
			if !validSessionID(value) {
				return "", false
			}
			return value, true
		}
	}
	return "", false
}

// SessionCookie returns the session cookie for id. maxAge is truncated to
// whole seconds, with a minimum of one.
func SessionCookie(id string, maxAge time.Duration, secure bool) *http.Cookie {
	return &http.Cookie{
		Name:     SessionCookieName,
		Value:    id,
		Path:     "/",
		MaxAge:   max(int(maxAge/time.Second), 1),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteStrictMode,
	}
}

func validSessionID(s string) bool {
	if s == "" || len(s) > maxSessionIDLen {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '-', c == '_':
		default:
			return false
		}
	}
	return true
}

func requestIsSecure(r *http.Request) bool {
	if r.TLS != nil {
		return true
	}
	if strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https") {
		return true
	}
	return strings.Contains(strings.ToLower(r.Header.Get("Forwarded")), "proto=https")
}
