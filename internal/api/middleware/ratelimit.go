package middleware

import (
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

// clientLimiter pairs a token bucket with its last access time (unix nanos)
// so stale entries can be evicted.
type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen atomic.Int64
}

// RateLimiter provides per-IP rate limiting.
type RateLimiter struct {
	clients map[string]*clientLimiter
	mu      sync.RWMutex
	rate    rate.Limit
	burst   int
}

// NewRateLimiter creates a rate limiter with the given requests per second
// and burst size.
func NewRateLimiter(rps float64, burst int) *RateLimiter {
	return &RateLimiter{
		clients: make(map[string]*clientLimiter),
		rate:    rate.Limit(rps),
		burst:   burst,
	}
}

// getLimiter returns the limiter for the given key, creating one if needed.
func (rl *RateLimiter) getLimiter(key string) *rate.Limiter {
	now := time.Now().UnixNano()

	rl.mu.RLock()
	cl, exists := rl.clients[key]
	rl.mu.RUnlock()

	if exists {
		cl.lastSeen.Store(now)
		return cl.limiter
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()

	// Double-check after acquiring write lock
	if cl, exists = rl.clients[key]; exists {
		cl.lastSeen.Store(now)
		return cl.limiter
	}

	cl = &clientLimiter{limiter: rate.NewLimiter(rl.rate, rl.burst)}
	cl.lastSeen.Store(now)
	rl.clients[key] = cl
	return cl.limiter
}

// Allow checks if a request from the given key should be allowed.
func (rl *RateLimiter) Allow(key string) bool {
	return rl.getLimiter(key).Allow()
}

// Cleanup removes limiters that have not been used within maxAge.
// Call this periodically to prevent memory growth.
func (rl *RateLimiter) Cleanup(maxAge time.Duration) {
	cutoff := time.Now().Add(-maxAge).UnixNano()

	rl.mu.Lock()
	defer rl.mu.Unlock()
	for key, cl := range rl.clients {
		if cl.lastSeen.Load() < cutoff {
			delete(rl.clients, key)
		}
	}
}

// RateLimit returns middleware that limits requests per IP address.
func RateLimit(rps float64, burst int) func(http.Handler) http.Handler {
	limiter := NewRateLimiter(rps, burst)

	// Background cleanup every 10 minutes
	go func() {
		ticker := time.NewTicker(10 * time.Minute)
		defer ticker.Stop()
		for range ticker.C {
			limiter.Cleanup(10 * time.Minute)
		}
	}()

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// X-Real-IP is set by chi's RealIP middleware upstream
			ip := r.Header.Get("X-Real-IP")
			if ip == "" {
				ip = r.RemoteAddr
			}

			if !limiter.Allow(ip) {
				w.Header().Set("Content-Type", "application/json")
				w.Header().Set("Retry-After", "1")
				w.WriteHeader(http.StatusTooManyRequests)
				_ = json.NewEncoder(w).Encode(map[string]string{"error": "rate limit exceeded"})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
