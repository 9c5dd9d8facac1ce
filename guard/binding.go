package guard

import (
	"net/http"

	"github.com/jmcleod/ironpage/csrf"
	"github.com/jmcleod/ironpage/session"
)

// Binding is the session and CSRF token resolved for one request.
type Binding struct {
	Session session.Session
	Token   string
	// Created is true when the request carried no usable session and a new
	// one was allocated.
	Created bool
}

// ResolveSession returns the live session named by the request's cookie,
// touching it, or creates a new one. It also makes sure the session has a
// usable CSRF token: the current one is reused while fresh, otherwise a new
// token is issued and recorded in the store.
func (g *Guard) ResolveSession(r *http.Request) Binding {
	if id, ok := SessionIDFromHeader(r.Header.Values("Cookie")...); ok {
		if sess, ok := g.sessions.Touch(id); ok {
			return g.bind(sess, false)
		}
	}
	sess := g.sessions.Create()
	g.audit.log(AuditSessionCreated, r)
	return g.bind(sess, true)
}

func (g *Guard) bind(sess session.Session, created bool) Binding {
	if !g.tokens.Fresh(sess.CSRFToken, sess.ID) {
		sess.CSRFToken = g.tokens.GenerateToken(sess.ID)
		g.sessions.UpdateCSRF(sess.ID, sess.CSRFToken)
	}
	return Binding{Session: sess, Token: sess.CSRFToken, Created: created}
}

// Decorate writes the session cookie and the current CSRF token header. It
// must run before the response header is written.
func (g *Guard) Decorate(w http.ResponseWriter, r *http.Request, b Binding) {
	http.SetCookie(w, SessionCookie(b.Session.ID, g.sessions.TTL(), requestIsSecure(r)))
	w.Header().Set(csrf.HeaderName, b.Token)
}

// SessionBinding resolves or creates the session for every request, exposes
// it to inner handlers through the request context and sets the cookie and
// CSRF header on the response.
func (g *Guard) SessionBinding(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b := g.ResolveSession(r)
		g.Decorate(w, r, b)
		next.ServeHTTP(w, r.WithContext(withBinding(r.Context(), b)))
	})
}
