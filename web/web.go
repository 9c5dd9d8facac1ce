// Package web serves the HTML pages, fragments and static assets behind the
// guard pipeline.
package web

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/a-h/templ"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/jmcleod/ironpage/guard"
	"github.com/jmcleod/ironpage/internal/logger"
	"github.com/jmcleod/ironpage/session"
)

const (
	maxNameLen   = 64
	readyTimeout = 2 * time.Second
)

// ReadinessCheck reports whether a dependency is available.
type ReadinessCheck func(context.Context) error

// Options configures New.
type Options struct {
	Guard    *guard.Guard
	Sessions *session.Store
	Logger   *slog.Logger
	// ReadinessChecks are run by /readyz, keyed by name.
	ReadinessChecks map[string]ReadinessCheck
	// Started is reported as the base for uptime. Defaults to now.
	Started time.Time
}

type server struct {
	sessions  *session.Store
	logger    *slog.Logger
	checks    map[string]ReadinessCheck
	started   time.Time
	integrity map[string]string
}

// New builds the application router. Every response carries the security
// headers. /healthz and /readyz bypass session binding and CSRF enforcement,
// so health checks never create sessions; everything else, including 404 and 405
// responses, goes through the full guard pipeline.
func New(opts Options) (http.Handler, error) {
	if opts.Guard == nil {
		return nil, errors.New("web: guard is required")
	}
	if opts.Sessions == nil {
		return nil, errors.New("web: session store is required")
	}
	integrity, err := assetIntegrity()
	if err != nil {
		return nil, err
	}
	static, err := staticHandler()
	if err != nil {
		return nil, err
	}

	s := &server{
		sessions:  opts.Sessions,
		logger:    opts.Logger,
		checks:    opts.ReadinessChecks,
		started:   opts.Started,
		integrity: integrity,
	}
	if s.logger == nil {
		s.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if s.started.IsZero() {
		s.started = time.Now()
	}

	app := chi.NewRouter()
	// Pages and fragments answer HEAD like GET.
	get := func(pattern string, h http.HandlerFunc) {
		app.Get(pattern, h)
		app.Head(pattern, h)
	}
	get("/", s.page("Home", "home", homeContent))
	get("/about", s.page("About", "about", aboutContent))
	get("/demo", s.page("Demo", "demo", demoContent))
	get("/components", s.page("Components", "components", componentsContent))

	get("/partials/status-card", s.handleStatusCard)
	get("/partials/item-list", s.handleItemList)
	get("/partials/greeting", s.handleGreetingForm)
	app.Post("/partials/greeting", s.handleGreeting)
	app.Handle("/static/*", static)

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(opts.Guard.SecurityHeaders)
	r.Handle("/healthz", getOnly(handleHealthz))
	r.Handle("/readyz", getOnly(s.handleReadyz))
	r.Mount("/", opts.Guard.Handler(app))
	return r, nil
}

func (s *server) render(w http.ResponseWriter, r *http.Request, status int, c templ.Component) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := c.Render(r.Context(), w); err != nil {
		s.logger.Error("render failed", slog.String("path", r.URL.Path), logger.Error(err))
	}
}

func (s *server) page(title, name string, content templ.Component) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.render(w, r, http.StatusOK, layout(layoutParams{
			Title:     title,
			Current:   name,
			CSRFToken: guard.CSRFTokenFromContext(r.Context()),
			Integrity: s.integrity,
		}, content))
	}
}

func (s *server) handleStatusCard(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, statusCard(s.sessions.Len(), time.Since(s.started)))
}

func (s *server) handleItemList(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, itemList(demoItems))
}

func (s *server) handleGreetingForm(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, greetingForm)
}

func (s *server) handleGreeting(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 4096)
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	s.render(w, r, http.StatusOK, greeting(normalizeName(r.PostForm.Get("name"))))
}

func normalizeName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return "stranger"
	}
	if utf8.RuneCountInString(name) > maxNameLen {
		name = string([]rune(name)[:maxNameLen])
	}
	return name
}

// getOnly answers methods other than GET and HEAD with 405 instead of
// letting them fall through to the page router.
func getOnly(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			w.Header().Set("Allow", "GET, HEAD")
			http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
			return
		}
		h(w, r)
	}
}

func handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte("OK"))
}

func (s *server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
	defer cancel()

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	for name, check := range s.checks {
		if err := check(ctx); err != nil {
			s.logger.Warn("readiness check failed", slog.String("check", name), logger.Error(err))
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte("not ready"))
			return
		}
	}
	w.Write([]byte("ready"))
}
