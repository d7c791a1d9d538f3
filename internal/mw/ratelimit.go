package mw

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"
)

// ClientLimiter hands out one token bucket per client key. Buckets idle for longer
// than the idle window are dropped, so a burst of one-off clients does not grow memory.
type ClientLimiter struct {
	mu       sync.Mutex
	limiters *cache.Cache
	idle     time.Duration
	r        rate.Limit
	b        int
}

// NewClientLimiter creates a ClientLimiter allowing r events per second with burst b.
func NewClientLimiter(r rate.Limit, b int, idle time.Duration) *ClientLimiter {
	return &ClientLimiter{
		limiters: cache.New(idle, 2*idle),
		idle:     idle,
		r:        r,
		b:        b,
	}
}

// Get returns the bucket for key, creating it on first use. Every call extends the
// bucket's idle deadline.
func (l *ClientLimiter) Get(key string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	if v, ok := l.limiters.Get(key); ok {
		limiter := v.(*rate.Limiter)
		l.limiters.Set(key, limiter, l.idle)
		return limiter
	}
	limiter := rate.NewLimiter(l.r, l.b)
	l.limiters.Set(key, limiter, l.idle)
	return limiter
}

// Clients reports how many buckets are live.
func (l *ClientLimiter) Clients() int {
	return l.limiters.ItemCount()
}

// RateLimiter is a middleware for IP-based rate limiting.
func RateLimiter(r rate.Limit, b int) gin.HandlerFunc {
	return Limit(NewClientLimiter(r, b, 10*time.Minute))
}

// Limit rejects requests over the client's budget with 429 and a Retry-After hint.
func Limit(limiter *ClientLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		l := limiter.Get(c.ClientIP())
		if l.Allow() {
			c.Next()
			return
		}
		if l.Limit() > 0 {
			wait := time.Duration(float64(time.Second) / float64(l.Limit()))
			c.Header("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
		}
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"code": "RATE_LIMITED", "error": "too many requests"})
	}
}
