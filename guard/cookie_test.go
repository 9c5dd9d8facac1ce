package guard

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionIDFromHeader(t *testing.T) {
	tests := []struct {
		name    string
		headers []string
		want    string
		wantOK  bool
	}{
		{name: "NoHeader"},
		{name: "EmptyHeader", headers: []string{""}},
		{name: "OnlyCookie", headers: []string{"ironpage_session=abc-123"}, want: "abc-123", wantOK: true},
		{name: "AmongOthers", headers: []string{"theme=dark; ironpage_session=abc_123; lang=en"}, want: "abc_123", wantOK: true},
		{name: "ExtraWhitespace", headers: []string{"theme=dark;   ironpage_session = abc "}, want: "abc", wantOK: true},
		{name: "SecondHeaderLine", headers: []string{"theme=dark", "ironpage_session=xyz"}, want: "xyz", wantOK: true},
		{name: "FirstMatchWins", headers: []string{"ironpage_session=first; ironpage_session=second"}, want: "first", wantOK: true},
		{name: "EmptyValue", headers: []string{"ironpage_session="}},
		{name: "NoEquals", headers: []string{"ironpage_session"}},
		{name: "PrefixedName", headers: []string{"xironpage_session=abc"}},
		{name: "IllegalCharacters", headers: []string{"ironpage_session=a<b"}},
		{name: "MalformedFirstMatch", headers: []string{"ironpage_session=bad!; ironpage_session=good"}},
		{name: "Quoted", headers: []string{`ironpage_session="abc"`}},
		{name: "TooLong", headers: []string{"ironpage_session=" + strings.Repeat("a", maxSessionIDLen+1)}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := SessionIDFromHeader(tc.headers...)
			assert.Equal(t, tc.wantOK, ok)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestSessionCookie(t *testing.T) {
	assert.Equal(t,
		"ironpage_session=abc; Path=/; Max-Age=3600; HttpOnly; SameSite=Strict",
		SessionCookie("abc", time.Hour, false).String())
	assert.Equal(t,
		"ironpage_session=abc; Path=/; Max-Age=90; HttpOnly; Secure; SameSite=Strict",
		SessionCookie("abc", 90*time.Second+500*time.Millisecond, true).String())
	assert.Equal(t, 1, SessionCookie("abc", 10*time.Millisecond, false).MaxAge)
}

func TestSessionCookieRoundTrip(t *testing.T) {
	const id = "4f1c2a9e-7d1b-4c55-9e0a-2b8f5a6c3d10"
	rec := httptest.NewRecorder()
	http.SetCookie(rec, SessionCookie(id, time.Hour, true))

	// A browser echoes only the name=value pair.
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: cookies[0].Name, Value: cookies[0].Value})

	got, ok := SessionIDFromHeader(req.Header.Values("Cookie")...)
	assert.True(t, ok)
	assert.Equal(t, id, got)
}
