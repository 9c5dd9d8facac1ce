package web

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmcleod/ironpage/csrf"
	"github.com/jmcleod/ironpage/guard"
	"github.com/jmcleod/ironpage/session"
)

type testApp struct {
	handler  http.Handler
	sessions *session.Store
}

func newTestApp(t *testing.T, checks map[string]ReadinessCheck) *testApp {
	t.Helper()
	sessions := session.NewStore()
	t.Cleanup(sessions.Close)
	tokens, err := csrf.NewService()
	require.NoError(t, err)
	t.Cleanup(tokens.Close)

	hashes, err := ScriptHashes()
	require.NoError(t, err)

	discard := slog.New(slog.NewTextHandler(io.Discard, nil))
	g := guard.New(sessions, tokens, guard.WithLogger(discard), guard.WithScriptHashes(hashes...))
	h, err := New(Options{
		Guard:           g,
		Sessions:        sessions,
		Logger:          discard,
		ReadinessChecks: checks,
	})
	require.NoError(t, err)
	return &testApp{handler: h, sessions: sessions}
}

func (a *testApp) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, req)
	return rec
}

// visit performs a first GET and returns the issued session id and token.
func (a *testApp) visit(t *testing.T) (string, string) {
	t.Helper()
	rec := a.do(httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var id string
	for _, c := range rec.Result().Cookies() {
		if c.Name == guard.SessionCookieName {
			id = c.Value
		}
	}
	require.NotEmpty(t, id)
	token := rec.Header().Get(csrf.HeaderName)
	require.NotEmpty(t, token)
	return id, token
}

func postGreeting(id, token, name string) *http.Request {
	form := url.Values{"name": {name}}
	req := httptest.NewRequest(http.MethodPost, "/partials/greeting", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if id != "" {
		req.Header.Set("Cookie", guard.SessionCookieName+"="+id)
	}
	if token != "" {
		req.Header.Set(csrf.HeaderName, token)
	}
	return req
}

func TestFirstVisit(t *testing.T) {
	app := newTestApp(t, nil)
	rec := app.do(httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))

	setCookie := rec.Header().Get("Set-Cookie")
	assert.Contains(t, setCookie, guard.SessionCookieName+"=")
	assert.Contains(t, setCookie, "HttpOnly")
	assert.Contains(t, setCookie, "SameSite=Strict")
	assert.Contains(t, setCookie, "Max-Age=3600")

	token := rec.Header().Get(csrf.HeaderName)
	require.NotEmpty(t, token)
	body := rec.Body.String()
	assert.Contains(t, body, `data-csrf-token="`+token+`"`)
	assert.Equal(t, 1, app.sessions.Len())

	hashes, err := ScriptHashes()
	require.NoError(t, err)
	require.NotEmpty(t, hashes)
	assert.Contains(t, rec.Header().Get("Content-Security-Policy"), "'"+hashes[0]+"'")
	assert.Contains(t, body, `integrity="`+hashes[0]+`"`)
}

func TestPages(t *testing.T) {
	app := newTestApp(t, nil)
	for path, heading := range map[string]string{
		"/":           "<h1>IronPage</h1>",
		"/about":      "<h1>About</h1>",
		"/demo":       "<h1>Demo</h1>",
		"/components": "<h1>Components</h1>",
	} {
		t.Run(path, func(t *testing.T) {
			rec := app.do(httptest.NewRequest(http.MethodGet, path, nil))
			require.Equal(t, http.StatusOK, rec.Code)
			assert.Contains(t, rec.Body.String(), heading)
			assert.Contains(t, rec.Body.String(), `aria-current="page"`)
		})
	}
}

func TestGreeting_ValidPost(t *testing.T) {
	app := newTestApp(t, nil)
	id, token := app.visit(t)

	rec := app.do(postGreeting(id, token, "<script>alert(1)</script>"))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Hello, &lt;script&gt;alert(1)&lt;/script&gt;!")
	assert.NotContains(t, rec.Body.String(), "<script>")
}

func TestGreeting_EmptyAndLongNames(t *testing.T) {
	app := newTestApp(t, nil)
	id, token := app.visit(t)

	rec := app.do(postGreeting(id, token, "   "))
	assert.Contains(t, rec.Body.String(), "Hello, stranger!")

	rec = app.do(postGreeting(id, token, strings.Repeat("é", 100)))
	assert.Contains(t, rec.Body.String(), "Hello, "+strings.Repeat("é", maxNameLen)+"!")
}

func TestGreeting_Rejected(t *testing.T) {
	app := newTestApp(t, nil)
	id, token := app.visit(t)
	otherID, _ := app.visit(t)

	tests := map[string]*http.Request{
		"MissingToken":  postGreeting(id, "", "mallory"),
		"MissingCookie": postGreeting("", token, "mallory"),
		"WrongSession":  postGreeting(otherID, token, "mallory"),
		"ForgedToken":   postGreeting(id, "AAAA", "mallory"),
	}

	var bodies []string
	for name, req := range tests {
		t.Run(name, func(t *testing.T) {
			rec := app.do(req)
			assert.Equal(t, http.StatusForbidden, rec.Code)
			assert.NotContains(t, rec.Body.String(), "mallory")
			assert.NotEmpty(t, rec.Header().Get("Content-Security-Policy"))
			bodies = append(bodies, rec.Body.String())
		})
	}
	for _, b := range bodies[1:] {
		assert.Equal(t, bodies[0], b)
	}
}

func TestPartials(t *testing.T) {
	app := newTestApp(t, nil)
	app.visit(t)
	app.visit(t)

	rec := app.do(httptest.NewRequest(http.MethodGet, "/partials/status-card", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	// Two earlier visits plus the session created by this request.
	assert.Contains(t, rec.Body.String(), "<dt>Active sessions</dt><dd>3</dd>")
	assert.NotContains(t, rec.Body.String(), "<html")

	rec = app.do(httptest.NewRequest(http.MethodGet, "/partials/item-list", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `<ul class="item-list">`)

	rec = app.do(httptest.NewRequest(http.MethodGet, "/partials/greeting", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `data-post="/partials/greeting"`)
}

func TestStaticAssets(t *testing.T) {
	app := newTestApp(t, nil)

	rec := app.do(httptest.NewRequest(http.MethodGet, "/static/js/app.js", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	data, err := io.ReadAll(rec.Body)
	require.NoError(t, err)

	hashes, err := ScriptHashes()
	require.NoError(t, err)
	assert.Equal(t, hashes[0], Integrity(data), "served bytes match the pinned hash")
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))

	rec = app.do(httptest.NewRequest(http.MethodGet, "/static/css/app.css", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	for _, path := range []string{"/static/", "/static/js/", "/static/missing.js"} {
		rec = app.do(httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusNotFound, rec.Code, path)
	}
}

func TestNotFoundCarriesSecurityHeaders(t *testing.T) {
	app := newTestApp(t, nil)
	rec := app.do(httptest.NewRequest(http.MethodGet, "/nope", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Content-Security-Policy"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
	assert.NotEmpty(t, rec.Header().Get(csrf.HeaderName))
}

func assertSecurityHeaders(t *testing.T, h http.Header) {
	t.Helper()
	assert.Contains(t, h.Get("Content-Security-Policy"), "default-src 'self'")
	assert.Equal(t, "DENY", h.Get("X-Frame-Options"))
	assert.Equal(t, "nosniff", h.Get("X-Content-Type-Options"))
}

func TestHealthz(t *testing.T) {
	app := newTestApp(t, nil)
	rec := app.do(httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())
	assertSecurityHeaders(t, rec.Header())
	assert.Empty(t, rec.Header().Get("Set-Cookie"), "health checks do not create sessions")
	assert.Empty(t, rec.Header().Get(csrf.HeaderName))
	assert.Equal(t, 0, app.sessions.Len())
}

func TestHealthEndpointsMethodNotAllowed(t *testing.T) {
	app := newTestApp(t, nil)
	for _, path := range []string{"/healthz", "/readyz"} {
		rec := app.do(httptest.NewRequest(http.MethodPost, path, nil))
		assert.Equal(t, http.StatusMethodNotAllowed, rec.Code, path)
		assert.Equal(t, "GET, HEAD", rec.Header().Get("Allow"))
		assertSecurityHeaders(t, rec.Header())
	}
	assert.Equal(t, 0, app.sessions.Len())
}

func TestHeadRequests(t *testing.T) {
	app := newTestApp(t, nil)
	for _, path := range []string{"/", "/about", "/partials/status-card", "/static/js/app.js"} {
		rec := app.do(httptest.NewRequest(http.MethodHead, path, nil))
		assert.Equal(t, http.StatusOK, rec.Code, path)
		assertSecurityHeaders(t, rec.Header())
		assert.NotEmpty(t, rec.Header().Get(csrf.HeaderName), path)
	}
}

func TestReadyz(t *testing.T) {
	ok := newTestApp(t, map[string]ReadinessCheck{
		"database": func(context.Context) error { return nil },
	})
	rec := ok.do(httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ready", rec.Body.String())
	assertSecurityHeaders(t, rec.Header())

	failing := newTestApp(t, map[string]ReadinessCheck{
		"database": func(context.Context) error { return errors.New("connection refused") },
	})
	rec = failing.do(httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "not ready", rec.Body.String())
	assertSecurityHeaders(t, rec.Header())
}

func TestNewRequiresDependencies(t *testing.T) {
	_, err := New(Options{})
	assert.Error(t, err)
}

func TestScriptHashes(t *testing.T) {
	hashes, err := ScriptHashes()
	require.NoError(t, err)
	require.Len(t, hashes, 1)
	assert.True(t, strings.HasPrefix(hashes[0], "sha384-"))

	data, err := staticFiles.ReadFile("static/js/app.js")
	require.NoError(t, err)
	assert.Equal(t, Integrity(data), hashes[0])
}

func TestIntegrity(t *testing.T) {
	// sha384 of the empty input.
	assert.Equal(t, "sha384-OLBgp1GsljhM2TJ+sbHjaiH9txEUvgdDTAzHv2P24donTt6/529l+9Ua0vFImLlb", Integrity(nil))
}
