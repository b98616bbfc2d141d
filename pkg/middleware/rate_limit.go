package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/Dzhud/issue-tracker/pkg/metrics"
	"github.com/gin-gonic/gin"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/time/rate"
)

const (
	limiterCacheSize = 10000
	limiterIdleTTL   = 10 * time.Minute
)

// limiterStore holds one token bucket per client key. Buckets expire after
// ttl and the least recently used are evicted beyond size, so the store stays
// bounded however many clients show up.
type limiterStore struct {
	mu       sync.Mutex
	limiters *expirable.LRU[string, *rate.Limiter]
	rps      float64
	burst    int
}

func newLimiterStore(rps float64, burst int, size int, ttl time.Duration) *limiterStore {
	return &limiterStore{
		limiters: expirable.NewLRU[string, *rate.Limiter](size, nil, ttl),
		rps:      rps,
		burst:    burst,
	}
}

// get returns (and lazily creates) a token-bucket limiter for the given key
func (s *limiterStore) get(key string) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()
	if lim, ok := s.limiters.Get(key); ok {
		return lim
	}
	lim := rate.NewLimiter(rate.Limit(s.rps), s.burst)
	s.limiters.Add(key, lim)
	return lim
}

// clientKey identifies the caller by IP address.
func clientKey(c *gin.Context) string {
	ip := c.ClientIP()
	if ip == "" {
		ip = "unknown"
	}
	return "ip:" + ip
}

// RateLimitMiddleware returns a Gin middleware enforcing a token-bucket limit per client IP.
// rps = allowed events per second, burst = maximum tokens in bucket.
func RateLimitMiddleware(rps float64, burst int) gin.HandlerFunc {
	store := newLimiterStore(rps, burst, limiterCacheSize, limiterIdleTTL)
	return func(c *gin.Context) {
		lim := store.get(clientKey(c))
		if !lim.Allow() {
			c.Header("Retry-After", "1")
			metrics.RateLimitRejected.WithLabelValues("memory").Inc()
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Rate limit exceeded"})
			return
		}
		metrics.RateLimitAllowed.WithLabelValues("memory").Inc()
		c.Next()
	}
}
