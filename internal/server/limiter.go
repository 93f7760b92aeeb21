package server

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// userLimiter is a token bucket per user id.
type userLimiter struct {
	every rate.Limit
	burst int

	mu       sync.Mutex
	visitors map[string]*visitor
}

func newUserLimiter(perMinute, burst int) *userLimiter {
	return &userLimiter{
		every:    rate.Every(time.Minute / time.Duration(perMinute)),
		burst:    burst,
		visitors: make(map[string]*visitor),
	}
}

func (l *userLimiter) allow(key string, now time.Time) bool {
	l.mu.Lock()
	v, exists := l.visitors[key]
	if !exists {
		v = &visitor{limiter: rate.NewLimiter(l.every, l.burst)}
		l.visitors[key] = v
	}
	v.lastSeen = now
	l.mu.Unlock()
	return v.limiter.AllowN(now, 1)
}

// prune forgets users idle since before cutoff.
func (l *userLimiter) prune(cutoff time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for key, v := range l.visitors {
		if v.lastSeen.Before(cutoff) {
			delete(l.visitors, key)
		}
	}
}

func (s *Server) rateLimit(l *userLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !l.allow(c.GetString(ctxUserID), s.clock.Now()) {
			fail(c, http.StatusTooManyRequests, "too many requests")
			return
		}
		c.Next()
	}
}
