package session

import (
	"log/slog"
	"time"
)

// DefaultCleanupInterval is the default period of the background sweep.
const DefaultCleanupInterval = time.Minute

// StartCleanup launches a goroutine that removes expired sessions every
// interval until Close is called. Only the first call has an effect.
func (s *Store) StartCleanup(interval time.Duration) {
	if interval <= 0 {
		interval = DefaultCleanupInterval
	}
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return
	}
	s.started = true
	s.mu.Unlock()

	go s.cleanupLoop(interval)
}

// Close stops the background sweep. It is safe to call more than once and
// on a store whose sweep was never started.
func (s *Store) Close() {
	s.stopOnce.Do(func() {
		close(s.stopCh)
	})
}

func (s *Store) cleanupLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
			if removed := s.CleanupExpired(); removed > 0 {
				s.logger.Debug("expired sessions removed",
					slog.Int("removed", removed),
					slog.Int("remaining", s.Len()),
				)
			}
		}
	}
}
