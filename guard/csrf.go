package guard

import (
	"net/http"

	"github.com/jmcleod/ironpage/csrf"
)

// Internal rejection reasons. They are written to the audit log only; the
// client always receives the same response.
const (
	reasonNoSession    = "missing session cookie"
	reasonUnknown      = "unknown or expired session"
	reasonNoToken      = "missing token"
	reasonInvalidToken = "invalid token"
)

func isSafeMethod(method string) bool {
	return method == http.MethodGet || method == http.MethodHead || method == http.MethodOptions
}

// ValidateCSRF reports whether a request with the given method, submitted
// token and cookie session id may proceed. Safe methods always pass.
func (g *Guard) ValidateCSRF(method, token, sessionID string) bool {
	return g.rejectReason(method, token, sessionID) == ""
}

func (g *Guard) rejectReason(method, token, sessionID string) string {
	if isSafeMethod(method) {
		return ""
	}
	if sessionID == "" {
		return reasonNoSession
	}
	if _, ok := g.sessions.Get(sessionID); !ok {
		return reasonUnknown
	}
	if token == "" {
		return reasonNoToken
	}
	if !g.tokens.ValidateToken(token, sessionID) {
		return reasonInvalidToken
	}
	return ""
}

// CSRFProtection enforces token validation on state-changing requests. The
// session id is taken from the request cookie, not from the binding, so a
// request whose cookie named an unknown or expired session is rejected even
// though SessionBinding has issued it a new session.
func (g *Guard) CSRFProtection(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if isSafeMethod(r.Method) {
			next.ServeHTTP(w, r)
			return
		}

		sessionID, _ := SessionIDFromHeader(r.Header.Values("Cookie")...)
		if reason := g.rejectReason(r.Method, r.Header.Get(csrf.HeaderName), sessionID); reason != "" {
			g.audit.logFailure(AuditCSRFRejected, r, reason)
			writeForbidden(w)
			return
		}

		next.ServeHTTP(w, r)
	})
}
