package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/partscatalog/backend/internal/interfaces/http/dto"
	"golang.org/x/time/rate"
)

// RateLimiter keeps one token bucket per client key
type RateLimiter struct {
	mu       sync.Mutex
	clients  map[string]*bucket
	limit    rate.Limit
	burst    int
	idleTTL  time.Duration
	lastScan time.Time
}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewRateLimiter allows requests per window per key, with bursts up to requests
func NewRateLimiter(requests int, window time.Duration) *RateLimiter {
	if requests <= 0 {
		requests = 1
	}
	return &RateLimiter{
		clients:  make(map[string]*bucket),
		limit:    rate.Every(window / time.Duration(requests)),
		burst:    requests,
		idleTTL:  2 * window,
		lastScan: time.Now(),
	}
}

// Allow reports whether a request for key may proceed now
func (rl *RateLimiter) Allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	rl.evictIdle(now)
	b, ok := rl.clients[key]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.clients[key] = b
	}
	b.lastSeen = now
	return b.limiter.AllowN(now, 1)
}

// evictIdle drops buckets unused for idleTTL. Called with mu held.
func (rl *RateLimiter) evictIdle(now time.Time) {
	if now.Sub(rl.lastScan) < rl.idleTTL {
		return
	}
	for key, b := range rl.clients {
		if now.Sub(b.lastSeen) > rl.idleTTL {
			delete(rl.clients, key)
		}
	}
	rl.lastScan = now
}

// RateLimit limits requests per client IP
func RateLimit(limiter *RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !limiter.Allow(c.ClientIP()) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, dto.NewErrorResponseWithRequestID(
				dto.ErrCodeRateLimited,
				"Too many requests. Please try again later.",
				GetRequestID(c),
			))
			return
		}
		c.Header("X-RateLimit-Limit", strconv.Itoa(limiter.burst))
		c.Next()
	}
}
