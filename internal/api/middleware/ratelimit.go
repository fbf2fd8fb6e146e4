package middleware

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/frostdev-ops/home-panel-go/pkg/utils"
)

// RateLimiter is an in-memory per-client token bucket limiter
type RateLimiter struct {
	visitors map[string]*Visitor
	mu       sync.Mutex
	requests int
	window   time.Duration
	cleanup  time.Duration
	now      func() time.Time
	done     chan struct{}
	stopOnce sync.Once
}

type Visitor struct {
	limiter  *TokenBucket
	lastSeen time.Time
}

// TokenBucket holds up to capacity tokens and regains one every interval
type TokenBucket struct {
	tokens     int
	capacity   int
	interval   time.Duration
	lastRefill time.Time
}

// NewRateLimiter allows requests per window for each client IP
func NewRateLimiter(requests int, window time.Duration) *RateLimiter {
	if requests <= 0 {
		requests = 1
	}
	if window <= 0 {
		window = time.Minute
	}
	rl := &RateLimiter{
		visitors: make(map[string]*Visitor),
		requests: requests,
		window:   window,
		cleanup:  5 * time.Minute,
		now:      time.Now,
		done:     make(chan struct{}),
	}

	go rl.cleanupVisitors()

	return rl
}

// Stop ends the cleanup goroutine
func (rl *RateLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.done) })
}

// RateLimitMiddleware rejects clients that exceed the limit with 429
func (rl *RateLimiter) RateLimitMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !rl.allow(c.ClientIP()) {
			c.Header("Retry-After", fmt.Sprintf("%d", int(rl.window.Seconds())))
			utils.SendError(c, http.StatusTooManyRequests, "Too many attempts. Please wait a moment and try again.")
			c.Abort()
			return
		}
		c.Next()
	}
}

func (rl *RateLimiter) allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	visitor, exists := rl.visitors[key]
	if !exists {
		visitor = &Visitor{
			limiter: &TokenBucket{
				tokens:     rl.requests,
				capacity:   rl.requests,
				interval:   rl.window / time.Duration(rl.requests),
				lastRefill: now,
			},
		}
		rl.visitors[key] = visitor
	}

	visitor.lastSeen = now
	return visitor.limiter.consume(now)
}

func (tb *TokenBucket) consume(now time.Time) bool {
	if tb.interval > 0 {
		if earned := int(now.Sub(tb.lastRefill) / tb.interval); earned > 0 {
			tb.tokens = min(tb.capacity, tb.tokens+earned)
			tb.lastRefill = tb.lastRefill.Add(time.Duration(earned) * tb.interval)
		}
	}

	if tb.tokens > 0 {
		tb.tokens--
		return true
	}
	return false
}

func (rl *RateLimiter) cleanupVisitors() {
	ticker := time.NewTicker(rl.cleanup)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.mu.Lock()
			for ip, visitor := range rl.visitors {
				if rl.now().Sub(visitor.lastSeen) > rl.cleanup {
					delete(rl.visitors, ip)
				}
			}
			rl.mu.Unlock()
		case <-rl.done:
			return
		}
	}
}
