package handlers

import (
	"net/http"
	"os"
	"sync"

	"recurring-poll-backend/config"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// Per-IP token buckets for the vote endpoint.
var (
	voteLimiters     = make(map[string]*rate.Limiter)
	voteLimitersMu   sync.Mutex
	rateLimitEnabled bool
	voteRate         rate.Limit
	voteBurst        int
)

// InitRateLimiters reads the rate limit configuration from the environment.
// Limiting is off unless ENABLE_RATE_LIMIT=true.
func InitRateLimiters() {
	rateLimitEnabled = os.Getenv("ENABLE_RATE_LIMIT") == "true"
	perSecond := config.GetEnvInt("VOTE_RATE_LIMIT", 5)
	voteRate = rate.Limit(perSecond)
	voteBurst = perSecond * 2
}

func limiterFor(clientIP string) *rate.Limiter {
	voteLimitersMu.Lock()
	defer voteLimitersMu.Unlock()
	l, ok := voteLimiters[clientIP]
	if !ok {
		l = rate.NewLimiter(voteRate, voteBurst)
		voteLimiters[clientIP] = l
	}
	return l
}

// VoteRateLimit throttles ballot submissions per client IP.
func VoteRateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !rateLimitEnabled {
			c.Next()
			return
		}
		if !limiterFor(c.ClientIP()).Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Too many requests"})
			return
		}
		c.Next()
	}
}
