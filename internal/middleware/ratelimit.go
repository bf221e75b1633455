package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
	"mess-o-midi-backend/internal/logger"
	"mess-o-midi-backend/internal/metrics"
	"mess-o-midi-backend/internal/models"
)

const maxTrackedLimiters = 10000

// RateLimiter is a token bucket per authenticated user, falling back to the
// client IP.
type RateLimiter struct {
	limiters map[string]*rate.Limiter
	mu       sync.Mutex
	rate     rate.Limit
	burst    int
	log      *logger.Logger
}

// NewRateLimiter allows perMinute requests per minute with bursts of the
// same size.
func NewRateLimiter(perMinute int, log *logger.Logger) *RateLimiter {
	if perMinute <= 0 {
		perMinute = 1
	}
	return &RateLimiter{
		limiters: make(map[string]*rate.Limiter),
		rate:     rate.Every(time.Minute / time.Duration(perMinute)),
		burst:    perMinute,
		log:      log,
	}
}

func (rl *RateLimiter) getLimiter(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	limiter, exists := rl.limiters[key]
	if !exists {
		// Crude bound on memory; a reset only forgives recent usage.
		if len(rl.limiters) >= maxTrackedLimiters {
			rl.limiters = make(map[string]*rate.Limiter)
		}
		limiter = rate.NewLimiter(rl.rate, rl.burst)
		rl.limiters[key] = limiter
	}
	return limiter
}

// Handler must run after AuthMiddleware to key by user.
func (rl *RateLimiter) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.ClientIP()
		if principal, ok := PrincipalFrom(c); ok {
			key = principal.UserID.String()
		}

		if !rl.getLimiter(key).Allow() {
			rl.log.Warn("Rate limit exceeded", "key", key, "path", c.Request.URL.Path)
			metrics.GenerationRequestsTotal.WithLabelValues("all", "rate_limited").Inc()
			c.AbortWithStatusJSON(http.StatusTooManyRequests, models.ErrorResponse{
				Error:   "rate limit exceeded",
				Message: "too many generation requests, please wait a moment",
			})
			return
		}
		c.Next()
	}
}
