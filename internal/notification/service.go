package notification

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Default auto-dismiss windows per severity
const (
	infoDuration    = 4 * time.Second
	successDuration = 3 * time.Second
	errorDuration   = 6 * time.Second
)

// Service is the single transient-notification mechanism all membership
// feedback funnels through. It holds a bounded ring of undelivered notices;
// reading drains them. When the ring overflows the oldest notices drop first.
type Service struct {
	mu    sync.Mutex
	limit int
	buf   []Notice
}

// NewService creates a notice stream holding at most limit undelivered notices
func NewService(limit int) *Service {
	if limit <= 0 {
		limit = 64
	}
	return &Service{limit: limit}
}

// Push appends a notice with an explicit severity and duration
func (s *Service) Push(severity Severity, message string, duration time.Duration) {
	notice := Notice{
		ID:         uuid.NewString(),
		Message:    message,
		Severity:   severity,
		DurationMs: duration.Milliseconds(),
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.buf = append(s.buf, notice)
	if overflow := len(s.buf) - s.limit; overflow > 0 {
		s.buf = append([]Notice(nil), s.buf[overflow:]...)
	}
}

// Info pushes an informational notice
func (s *Service) Info(message string) {
	s.Push(SeverityInfo, message, infoDuration)
}

// Success pushes a success notice
func (s *Service) Success(message string) {
	s.Push(SeveritySuccess, message, successDuration)
}

// Error pushes an error notice
func (s *Service) Error(message string) {
	s.Push(SeverityError, message, errorDuration)
}

// Drain returns all undelivered notices and empties the ring
func (s *Service) Drain() []Notice {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.buf
	s.buf = nil
	return out
}
