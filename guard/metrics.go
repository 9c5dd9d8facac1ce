package guard

import (
	"sync"
	"time"
)

// AlertType identifies the kind of anomaly detected.
type AlertType string

const (
	AlertCSRFRejectionSpike AlertType = "csrf_rejection_spike"
	AlertSessionChurn       AlertType = "session_churn"
)

// AlertEvent describes an anomaly that triggered an alert.
type AlertEvent struct {
	Type      AlertType `json:"type"`
	Message   string    `json:"message"`
	Count     int       `json:"count"`
	Threshold int       `json:"threshold"`
	Timestamp time.Time `json:"timestamp"`
}

// AlertFunc is the callback invoked when an anomaly is detected.
type AlertFunc func(AlertEvent)

// metricsCollector tracks sliding window counters for anomaly detection.
type metricsCollector struct {
	mu sync.Mutex

	rejections         []time.Time
	rejectionWindow    time.Duration
	rejectionThreshold int

	// A burst of new sessions usually means a client that drops cookies,
	// e.g. a scripted forgery attempt.
	creations         []time.Time
	creationWindow    time.Duration
	creationThreshold int

	alertFn AlertFunc
}

const (
	defaultRejectionWindow    = 1 * time.Minute
	defaultRejectionThreshold = 50
	defaultCreationWindow     = 1 * time.Minute
	defaultCreationThreshold  = 1000
)

func newMetricsCollector(alertFn AlertFunc) *metricsCollector {
	return &metricsCollector{
		rejectionWindow:    defaultRejectionWindow,
		rejectionThreshold: defaultRejectionThreshold,
		creationWindow:     defaultCreationWindow,
		creationThreshold:  defaultCreationThreshold,
		alertFn:            alertFn,
	}
}

// recordEvent inspects an audit event and updates the relevant counters.
func (m *metricsCollector) recordEvent(event AuditEvent) {
	if m == nil || m.alertFn == nil {
		return
	}
	switch event {
	case AuditCSRFRejected:
		m.record(&m.rejections, m.rejectionWindow, m.rejectionThreshold,
			AlertCSRFRejectionSpike, "csrf rejection rate exceeds threshold")
	case AuditSessionCreated:
		m.record(&m.creations, m.creationWindow, m.creationThreshold,
			AlertSessionChurn, "session creation rate exceeds threshold")
	}
}

func (m *metricsCollector) record(times *[]time.Time, window time.Duration, threshold int, typ AlertType, msg string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	*times = append(*times, now)
	*times = trimWindow(*times, now, window)

	if len(*times) >= threshold {
		m.alertFn(AlertEvent{
			Type:      typ,
			Message:   msg,
			Count:     len(*times),
			Threshold: threshold,
			Timestamp: now,
		})
		// Reset to avoid repeated alerts within the same spike.
		*times = (*times)[:0]
	}
}

// trimWindow removes entries older than (now - window) from the sorted slice.
func trimWindow(times []time.Time, now time.Time, window time.Duration) []time.Time {
	cutoff := now.Add(-window)
	start := 0
	for start < len(times) && times[start].Before(cutoff) {
		start++
	}
	return times[start:]
}
