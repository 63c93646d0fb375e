package middleware

import (
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"shakti-shield/internal/utils"
)

// KeyFunc picks the bucket a request is counted against.
type KeyFunc func(*gin.Context) string

// KeyByUserOrIP prefers the authenticated user and falls back to the client IP.
func KeyByUserOrIP(c *gin.Context) string {
	if id, ok := GetUserID(c); ok {
		return "user:" + id.Hex()
	}
	return "ip:" + c.ClientIP()
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter is a process-local token bucket per key.
type RateLimiter struct {
	limit    rate.Limit
	burst    int
	keyFn    KeyFunc
	ttl      time.Duration
	mu       sync.Mutex
	visitors map[string]*visitor
	lookups  uint64
}

// NewPerMinuteRateLimiter allows perMinute requests per key per minute, all
// of which may arrive at once.
func NewPerMinuteRateLimiter(perMinute int, keyFn KeyFunc) *RateLimiter {
	if perMinute <= 0 {
		perMinute = 1
	}
	if keyFn == nil {
		keyFn = KeyByUserOrIP
	}
	return &RateLimiter{
		limit:    rate.Every(time.Minute / time.Duration(perMinute)),
		burst:    perMinute,
		keyFn:    keyFn,
		ttl:      10 * time.Minute,
		visitors: make(map[string]*visitor),
	}
}

func (rl *RateLimiter) getVisitor(key string, now time.Time) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	rl.lookups++
	if rl.lookups >= 5000 {
		for k, v := range rl.visitors {
			if now.Sub(v.lastSeen) >= rl.ttl {
				delete(rl.visitors, k)
			}
		}
		rl.lookups = 0
	}

	if v, ok := rl.visitors[key]; ok {
		v.lastSeen = now
		return v.limiter
	}

	lim := rate.NewLimiter(rl.limit, rl.burst)
	rl.visitors[key] = &visitor{limiter: lim, lastSeen: now}
	return lim
}

func (rl *RateLimiter) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		now := time.Now()
		lim := rl.getVisitor(rl.keyFn(c), now)

		r := lim.ReserveN(now, 1)
		if r.OK() && r.DelayFrom(now) == 0 {
			c.Next()
			return
		}

		retryAfter := 1
		if r.OK() {
			if secs := int(r.DelayFrom(now).Seconds() + 0.999); secs > retryAfter {
				retryAfter = secs
			}
			r.CancelAt(now)
		}

		c.Header("Retry-After", strconv.Itoa(retryAfter))
		utils.TooManyRequestsResponse(c, "Too many requests, please slow down")
		c.Abort()
	}
}
