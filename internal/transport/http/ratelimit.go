package http

import (
	"net"
	"net/http"
	"strings"
	"sync"

	"golang.org/x/time/rate"
)

const ownerTokenHeader = "X-Owner-Token"

// RateLimit applies a per-client token bucket to mutating routes. Clients
// are keyed by owner token when the header is present, otherwise by remote
// IP. rps <= 0 disables the limiter.
func RateLimit(rps float64, burst int, next http.Handler) http.Handler {
	if rps <= 0 {
		return next
	}

	limiters := &clientLimiters{
		limit: rate.Limit(rps),
		burst: burst,
		byKey: make(map[string]*rate.Limiter),
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet || r.Method == http.MethodOptions {
			next.ServeHTTP(w, r)
			return
		}
		if !limiters.get(clientKey(r)).Allow() {
			w.Header().Set("Retry-After", "1")
			writeErrorRetryable(w, http.StatusTooManyRequests, codeTooManyRequests, "too many requests", true)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type clientLimiters struct {
	mu    sync.Mutex
	limit rate.Limit
	burst int
	byKey map[string]*rate.Limiter
}

func (c *clientLimiters) get(key string) *rate.Limiter {
	c.mu.Lock()
	defer c.mu.Unlock()
	lim, ok := c.byKey[key]
	if !ok {
		lim = rate.NewLimiter(c.limit, c.burst)
		c.byKey[key] = lim
	}
	return lim
}

func clientKey(r *http.Request) string {
	if token := strings.TrimSpace(r.Header.Get(ownerTokenHeader)); token != "" {
		return "owner:" + token
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil && host != "" {
		return "ip:" + host
	}
	if r.RemoteAddr != "" {
		return "ip:" + r.RemoteAddr
	}
	return "unknown"
}
