package middleware

import (
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"tutordesk/internal/transport/http/api"
)

type RateLimitKeyFunc func(r *http.Request) string

type RateLimitOption func(*keyedLimiter)

func WithKeyFunc(fn RateLimitKeyFunc) RateLimitOption {
	return func(kl *keyedLimiter) {
		if fn != nil {
			kl.keyFn = fn
		}
	}
}

// WithIdleTTL controls how long an unused client bucket is kept.
func WithIdleTTL(ttl time.Duration) RateLimitOption {
	return func(kl *keyedLimiter) {
		if ttl > 0 {
			kl.idleTTL = ttl
		}
	}
}

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

type keyedLimiter struct {
	mu       sync.Mutex
	perMin   int
	limit    rate.Limit
	burst    int
	idleTTL  time.Duration
	keyFn    RateLimitKeyFunc
	clients  map[string]*clientLimiter
	lastScan time.Time
	now      func() time.Time
}

// RateLimit allows perMinute requests per caller, refilled continuously, with a burst of
// the same size. Callers are keyed by user when authenticated and by client IP otherwise.
func RateLimit(perMinute int, opts ...RateLimitOption) func(http.Handler) http.Handler {
	kl := &keyedLimiter{
		perMin:  perMinute,
		limit:   rate.Every(time.Minute / time.Duration(max(perMinute, 1))),
		burst:   max(perMinute, 1),
		idleTTL: 10 * time.Minute,
		keyFn:   actorOrIPKey,
		clients: map[string]*clientLimiter{},
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(kl)
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if kl.perMin <= 0 || kl.allow(w, r) {
				next.ServeHTTP(w, r)
			}
		})
	}
}

func (kl *keyedLimiter) allow(w http.ResponseWriter, r *http.Request) bool {
	key := kl.keyFn(r)
	if key == "" {
		key = clientIPKey(r)
	}
	lim := kl.get(key)

	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(kl.perMin))
	if lim.Allow() {
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(max(int(lim.Tokens()), 0)))
		return true
	}

	retry := lim.Reserve()
	wait := retry.Delay()
	retry.Cancel()
	w.Header().Set("X-RateLimit-Remaining", "0")
	w.Header().Set("Retry-After", strconv.Itoa(max(int(wait.Seconds()+0.5), 1)))
	slog.Warn("rate limit exceeded", "key", key, "path", r.URL.Path, "method", r.Method, "perMinute", kl.perMin)
	api.Fail(w, http.StatusTooManyRequests, "rate_limited", "too many requests", GetRequestID(r.Context()))
	return false
}

func (kl *keyedLimiter) get(key string) *rate.Limiter {
	now := kl.now()
	kl.mu.Lock()
	defer kl.mu.Unlock()

	if now.Sub(kl.lastScan) > kl.idleTTL {
		for k, c := range kl.clients {
			if now.Sub(c.lastSeen) > kl.idleTTL {
				delete(kl.clients, k)
			}
		}
		kl.lastScan = now
	}

	c, ok := kl.clients[key]
	if !ok {
		c = &clientLimiter{limiter: rate.NewLimiter(kl.limit, kl.burst)}
		kl.clients[key] = c
	}
	c.lastSeen = now
	return c.limiter
}

func actorOrIPKey(r *http.Request) string {
	if user, ok := GetUser(r.Context()); ok && user.UserID != "" {
		return "user:" + user.UserID
	}
	return clientIPKey(r)
}

func clientIPKey(r *http.Request) string {
	if fwd := strings.TrimSpace(r.Header.Get("X-Forwarded-For")); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if value := strings.TrimSpace(first); value != "" {
			return "ip:" + value
		}
	}
	host, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr))
	if err == nil && host != "" {
		return "ip:" + host
	}
	return "ip:" + strings.TrimSpace(r.RemoteAddr)
}
