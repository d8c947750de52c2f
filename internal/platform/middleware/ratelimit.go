package middleware

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"golang.org/x/time/rate"
)

const (
	rateLimitMessage = "Too many requests from this IP, please try again later."
	clientIdleTTL    = 10 * time.Minute
	sweepEvery       = 1024
)

// RateLimitConfig is a per-client token bucket: RequestsPerSecond refill and
// BurstSize capacity.
type RateLimitConfig struct {
	RequestsPerSecond float64
	BurstSize         int
}

func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		RequestsPerSecond: 100,
		BurstSize:         200,
	}
}

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// rateLimiterStore keeps one limiter per client IP. Clients idle longer than
// clientIdleTTL are swept every sweepEvery calls.
type rateLimiterStore struct {
	mu      sync.Mutex
	clients map[string]*clientLimiter
	config  RateLimitConfig
	calls   int
	now     func() time.Time
}

func newRateLimiterStore(cfg RateLimitConfig) *rateLimiterStore {
	return &rateLimiterStore{
		clients: make(map[string]*clientLimiter),
		config:  cfg,
		now:     time.Now,
	}
}

// take consumes one token for key. It reports whether the request may
// proceed, the whole tokens left, and when denied the seconds until the next
// token.
func (s *rateLimiterStore) take(key string) (allowed bool, remaining, retryAfter int) {
	now := s.now()
	lim := s.limiterFor(key, now)

	if lim.AllowN(now, 1) {
		return true, int(lim.TokensAt(now)), 0
	}

	retryAfter = 1
	if s.config.RequestsPerSecond > 0 {
		missing := 1 - lim.TokensAt(now)
		if secs := int(math.Ceil(missing / s.config.RequestsPerSecond)); secs > 1 {
			retryAfter = secs
		}
	}
	return false, 0, retryAfter
}

func (s *rateLimiterStore) limiterFor(key string, now time.Time) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls++
	if s.calls%sweepEvery == 0 {
		for k, cl := range s.clients {
			if now.Sub(cl.lastSeen) > clientIdleTTL {
				delete(s.clients, k)
			}
		}
	}

	cl, ok := s.clients[key]
	if !ok {
		cl = &clientLimiter{limiter: rate.NewLimiter(rate.Limit(s.config.RequestsPerSecond), s.config.BurstSize)}
		s.clients[key] = cl
	}
	cl.lastSeen = now
	return cl.limiter
}

func (s *rateLimiterStore) size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}

// RateLimit limits each client IP to cfg's token bucket and reports the
// budget in X-RateLimit-* headers.
func RateLimit(cfg RateLimitConfig) echo.MiddlewareFunc {
	return rateLimit(newRateLimiterStore(cfg))
}

func rateLimit(store *rateLimiterStore) echo.MiddlewareFunc {
	limit := strconv.Itoa(store.config.BurstSize)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			allowed, remaining, retryAfter := store.take(c.RealIP())

			h := c.Response().Header()
			h.Set("X-RateLimit-Limit", limit)
			h.Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
			if !allowed {
				h.Set("Retry-After", strconv.Itoa(retryAfter))
				return echo.NewHTTPError(http.StatusTooManyRequests, rateLimitMessage)
			}
			return next(c)
		}
	}
}
