package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// RateLimiter applies a per-client request budget. Limiters are keyed by
// client IP and dropped after an idle period.
type RateLimiter struct {
	limit rate.Limit
	burst int

	mu       sync.Mutex
	clients  map[string]*clientLimiter
	lastSeen map[string]time.Time
}

type clientLimiter = rate.Limiter

// NewRateLimiter builds a limiter allowing rpm requests per minute per
// client. A non-positive rpm disables limiting (returns nil).
func NewRateLimiter(rpm int) *RateLimiter {
	if rpm <= 0 {
		return nil
	}
	burst := rpm / 10
	if burst < 5 {
		burst = 5
	}
	return &RateLimiter{
		limit:    rate.Limit(float64(rpm) / 60.0),
		burst:    burst,
		clients:  make(map[string]*clientLimiter),
		lastSeen: make(map[string]time.Time),
	}
}

// Handler returns the gin middleware enforcing the budget.
func (l *RateLimiter) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !l.allow(c.ClientIP()) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate_limited"})
			return
		}
		c.Next()
	}
}

func (l *RateLimiter) allow(clientIP string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	limiter, ok := l.clients[clientIP]
	if !ok {
		if len(l.clients) > 8192 {
			l.evictIdleLocked(now)
		}
		limiter = rate.NewLimiter(l.limit, l.burst)
		l.clients[clientIP] = limiter
	}
	l.lastSeen[clientIP] = now
	return limiter.Allow()
}

func (l *RateLimiter) evictIdleLocked(now time.Time) {
	for ip, seen := range l.lastSeen {
		if now.Sub(seen) > 10*time.Minute {
			delete(l.clients, ip)
			delete(l.lastSeen, ip)
		}
	}
}
