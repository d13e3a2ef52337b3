package server

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"becard/internal/api"
	"becard/internal/auth"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// RateLimiter keeps one token bucket per caller key.
type RateLimiter struct {
	callers map[string]*caller
	mu      sync.Mutex
	rate    rate.Limit
	burst   int
	ttl     time.Duration
}

type caller struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func NewRateLimiter(rps float64, burst int, ttl time.Duration) *RateLimiter {
	rl := &RateLimiter{
		callers: make(map[string]*caller),
		rate:    rate.Limit(rps),
		burst:   burst,
		ttl:     ttl,
	}

	go rl.cleanup()

	return rl
}

func (rl *RateLimiter) cleanup() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		rl.mu.Lock()
		for key, v := range rl.callers {
			if time.Since(v.lastSeen) > rl.ttl {
				delete(rl.callers, key)
			}
		}
		rl.mu.Unlock()
	}
}

func (rl *RateLimiter) Allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	v, ok := rl.callers[key]
	if !ok {
		v = &caller{limiter: rate.NewLimiter(rl.rate, rl.burst)}
		rl.callers[key] = v
	}
	v.lastSeen = time.Now()
	return v.limiter.Allow()
}

// callerKey buckets authenticated callers per tenant and user, anyone else per IP.
func callerKey(c *gin.Context) string {
	tenantID, ok := auth.GetTenantID(c)
	if !ok {
		return "ip:" + c.ClientIP()
	}
	userID, _ := auth.GetUserID(c)
	return "t" + strconv.Itoa(tenantID) + ":u" + strconv.Itoa(userID)
}

func RateLimitMiddleware(rps float64, burst int) gin.HandlerFunc {
	limiter := NewRateLimiter(rps, burst, 3*time.Minute)

	return func(c *gin.Context) {
		if !limiter.Allow(callerKey(c)) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, api.ErrorResponse{
				Error: "rate limit exceeded",
				Code:  "RATE_LIMITED",
			})
			return
		}
		c.Next()
	}
}
