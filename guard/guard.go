// Package guard wires the session store and the CSRF token service into an
// ordered HTTP middleware pipeline:
//
//	SecurityHeaders → SessionBinding → CSRFProtection → RequestLogger → handler
//
// The rest of the application talks to this package through Guard.Handler,
// the context accessors, and the three collaborator operations
// ResolveSession, ValidateCSRF and Decorate.
package guard

import (
	"log/slog"
	"net/http"
	"os"

	"github.com/jmcleod/ironpage/csrf"
	"github.com/jmcleod/ironpage/session"
)

// Guard holds the dependencies of the security pipeline.
type Guard struct {
	sessions *session.Store
	tokens   *csrf.Service
	logger   *slog.Logger
	audit    *auditLogger
	csp      string
}

// Option configures a Guard.
type Option func(*Guard)

// WithLogger sets the logger for request and audit records.
// If not set, a default JSON logger writing to stderr is used.
func WithLogger(logger *slog.Logger) Option {
	return func(g *Guard) {
		g.logger = logger
	}
}

// WithScriptHashes pins SRI hashes (e.g. "sha384-...") of the vendored
// scripts in the Content-Security-Policy script-src directive.
func WithScriptHashes(hashes ...string) Option {
	return func(g *Guard) {
		g.csp = contentSecurityPolicy(hashes)
	}
}

// WithAlertFunc registers a callback invoked when CSRF rejections spike.
func WithAlertFunc(fn AlertFunc) Option {
	return func(g *Guard) {
		g.audit.metrics = newMetricsCollector(fn)
	}
}

// New creates a Guard over the given session store and token service.
func New(sessions *session.Store, tokens *csrf.Service, opts ...Option) *Guard {
	g := &Guard{
		sessions: sessions,
		tokens:   tokens,
		audit:    &auditLogger{},
		csp:      contentSecurityPolicy(nil),
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.logger == nil {
		g.logger = slog.New(slog.NewJSONHandler(os.Stderr, nil))
	}
	g.audit.logger = g.logger.With("component", "audit")
	g.logger = g.logger.With("component", "http")
	return g
}

// Handler wraps next in the full pipeline, outermost first: security
// headers, session binding, CSRF enforcement, request logging. Requests
// rejected by CSRF enforcement never reach the request logger; they are
// recorded only in the audit log as csrf_rejected.
func (g *Guard) Handler(next http.Handler) http.Handler {
	return g.SecurityHeaders(g.SessionBinding(g.CSRFProtection(g.RequestLogger(next))))
}
