package guard

import (
	"log/slog"
	"net/http"
	"time"
)

// AuditEvent identifies the type of security-relevant action being logged.
type AuditEvent string

const (
	AuditSessionCreated AuditEvent = "session_created"
	AuditCSRFRejected   AuditEvent = "csrf_rejected"
)

// auditLogger wraps slog.Logger for structured security audit logging.
// Session ids and tokens are never part of an audit record.
type auditLogger struct {
	logger  *slog.Logger
	metrics *metricsCollector
}

func (al *auditLogger) log(event AuditEvent, r *http.Request, attrs ...slog.Attr) {
	baseAttrs := []slog.Attr{
		slog.String("event", string(event)),
		slog.String("remote_addr", r.RemoteAddr),
		slog.String("timestamp", time.Now().UTC().Format(time.RFC3339)),
	}
	baseAttrs = append(baseAttrs, attrs...)
	al.logger.LogAttrs(r.Context(), slog.LevelInfo, "audit", baseAttrs...)
	if al.metrics != nil {
		al.metrics.recordEvent(event)
	}
}

// logFailure logs a rejected request together with its internal reason.
func (al *auditLogger) logFailure(event AuditEvent, r *http.Request, reason string) {
	al.log(event, r,
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.String("reason", reason),
	)
}
