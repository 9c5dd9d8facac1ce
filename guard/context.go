package guard

import (
	"context"

	"github.com/jmcleod/ironpage/session"
)

type contextKey int

const bindingKey contextKey = iota

func withBinding(ctx context.Context, b Binding) context.Context {
	return context.WithValue(ctx, bindingKey, b)
}

func bindingFromContext(ctx context.Context) (Binding, bool) {
	b, ok := ctx.Value(bindingKey).(Binding)
	return b, ok
}

// SessionFromContext returns the session bound to the current request.
func SessionFromContext(ctx context.Context) (session.Session, bool) {
	b, ok := bindingFromContext(ctx)
	if !ok {
		return session.Session{}, false
	}
	return b.Session, true
}

// CSRFTokenFromContext returns the CSRF token issued for the current request,
// or an empty string outside the pipeline.
func CSRFTokenFromContext(ctx context.Context) string {
	b, _ := bindingFromContext(ctx)
	return b.Token
}
