package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// KeyedRateLimiter keeps one token bucket per key (client IP or user ID).
type KeyedRateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*visitor
	rps      rate.Limit
	burst    int
	idle     time.Duration
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func NewKeyedRateLimiter(rps float64, burst int) *KeyedRateLimiter {
	return &KeyedRateLimiter{
		limiters: make(map[string]*visitor),
		rps:      rate.Limit(rps),
		burst:    burst,
		idle:     10 * time.Minute,
	}
}

func (r *KeyedRateLimiter) Allow(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	v, ok := r.limiters[key]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(r.rps, r.burst)}
		r.limiters[key] = v
	}
	v.lastSeen = now
	return v.limiter.AllowN(now, 1)
}

// Sweep forgets keys idle for longer than the idle window.
func (r *KeyedRateLimiter) Sweep() {
	r.mu.Lock()
	defer r.mu.Unlock()
	cutoff := time.Now().Add(-r.idle)
	for k, v := range r.limiters {
		if v.lastSeen.Before(cutoff) {
			delete(r.limiters, k)
		}
	}
}

// RunSweeper sweeps every interval until stop is closed.
func (r *KeyedRateLimiter) RunSweeper(interval time.Duration, stop <-chan struct{}) {
	tick := time.NewTicker(interval)
	defer tick.Stop()
	for {
		select {
		case <-tick.C:
			r.Sweep()
		case <-stop:
			return
		}
	}
}

// RateLimit returns a middleware that limits by authenticated user when known, else by client IP.
func RateLimit(limiter *KeyedRateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := "ip:" + c.ClientIP()
		if id := GetUserID(c); id != 0 {
			key = "user:" + uintToString(id)
		}
		if !limiter.Allow(key) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			return
		}
		c.Next()
	}
}
