package middleware

import (
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/JonMunkholm/flr/internal/config"
	"github.com/JonMunkholm/flr/internal/logging"
)

// RateLimit allows each client IP cfg.RequestsPerMinute requests per
// minute. It must run after TrustedRealIP so RemoteAddr is the client.
// When limiting is disabled requests pass through.
func RateLimit(cfg *config.RateLimitConfig) func(http.Handler) http.Handler {
	if !cfg.Enabled || cfg.RequestsPerMinute <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	rl := newRateLimiter(cfg.RequestsPerMinute, time.Minute)
	return rl.middleware
}

// rateLimiter is a fixed-window counter per client.
type rateLimiter struct {
	mu      sync.Mutex
	clients map[string]*window
	limit   int
	period  time.Duration
	swept   time.Time
	now     func() time.Time
}

type window struct {
	start time.Time
	used  int
}

func newRateLimiter(limit int, period time.Duration) *rateLimiter {
	return &rateLimiter{
		clients: make(map[string]*window),
		limit:   limit,
		period:  period,
		now:     time.Now,
	}
}

// allow consumes one request for client and reports whether it is within
// the limit, and if not, how long until the window resets.
func (rl *rateLimiter) allow(client string) (bool, time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	rl.sweep(now)

	w, ok := rl.clients[client]
	if !ok || now.Sub(w.start) >= rl.period {
		rl.clients[client] = &window{start: now, used: 1}
		return true, 0
	}
	if w.used >= rl.limit {
		return false, w.start.Add(rl.period).Sub(now)
	}
	w.used++
	return true, 0
}

// sweep drops clients whose window ended more than a period ago. It runs
// at most once per period.
func (rl *rateLimiter) sweep(now time.Time) {
	if now.Sub(rl.swept) < rl.period {
		return
	}
	for client, w := range rl.clients {
		if now.Sub(w.start) > 2*rl.period {
			delete(rl.clients, client)
		}
	}
	rl.swept = now
}

func (rl *rateLimiter) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		client := clientKey(r.RemoteAddr)
		ok, retry := rl.allow(client)
		if !ok {
			secs := int(retry.Round(time.Second) / time.Second)
			if secs < 1 {
				secs = 1
			}
			logging.FromContext(r.Context()).Warn("rate limit exceeded", "client", client, "path", r.URL.Path)
			w.Header().Set("Retry-After", strconv.Itoa(secs))
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded", "REQ004")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// clientKey returns the host part of addr, or addr when it has no port.
func clientKey(addr string) string {
	if host, _, err := net.SplitHostPort(addr); err == nil {
		return host
	}
	return addr
}
