package web

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"
	"time"
)

// errBusy is returned when no parse slot frees up within the wait time.
var errBusy = errors.New("too many concurrent parses, please try again later")

const (
	defaultMaxConcurrent = 5
	defaultMaxWait       = 30 * time.Second
)

// limiter bounds the number of files parsed at once. Each parse holds a
// slot for the life of its request.
type limiter struct {
	slots   chan struct{}
	maxWait time.Duration
	active  atomic.Int64
}

func newLimiter(maxConcurrent int, maxWait time.Duration) *limiter {
	if maxConcurrent <= 0 {
		maxConcurrent = defaultMaxConcurrent
	}
	if maxWait <= 0 {
		maxWait = defaultMaxWait
	}
	return &limiter{
		slots:   make(chan struct{}, maxConcurrent),
		maxWait: maxWait,
	}
}

// acquire waits for a slot. The caller must release it.
func (l *limiter) acquire(ctx context.Context) error {
	timer := time.NewTimer(l.maxWait)
	defer timer.Stop()

	select {
	case l.slots <- struct{}{}:
		l.active.Add(1)
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return errBusy
	}
}

func (l *limiter) release() {
	l.active.Add(-1)
	<-l.slots
}

// LimiterStatus is reported by the health endpoint.
type LimiterStatus struct {
	Active        int `json:"active"`
	Available     int `json:"available"`
	MaxConcurrent int `json:"max_concurrent"`
}

func (l *limiter) status() LimiterStatus {
	return LimiterStatus{
		Active:        int(l.active.Load()),
		Available:     cap(l.slots) - len(l.slots),
		MaxConcurrent: cap(l.slots),
	}
}

// drain blocks until no parse is active or ctx is done.
func (l *limiter) drain(ctx context.Context) error {
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	for l.active.Load() > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
	return nil
}

// limit holds a parse slot around next.
func (s *Server) limit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := s.limiter.acquire(r.Context()); err != nil {
			s.respondError(w, r, err)
			return
		}
		defer s.limiter.release()
		next.ServeHTTP(w, r)
	})
}
