package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"mess-o-midi-backend/internal/auth"
	"mess-o-midi-backend/internal/logger"
	"mess-o-midi-backend/internal/middleware"
)

func TestRateLimiter_PerPrincipal(t *testing.T) {
	gin.SetMode(gin.TestMode)
	limiter := middleware.NewRateLimiter(2, logger.NewNop())

	alice, bob := uuid.New(), uuid.New()
	router := gin.New()
	router.Use(func(c *gin.Context) {
		id := alice
		if c.GetHeader("X-User") == "bob" {
			id = bob
		}
		c.Set(middleware.PrincipalKey, auth.Principal{UserID: id})
	})
	router.POST("/generate", limiter.Handler(), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	call := func(user string) int {
		req, _ := http.NewRequest("POST", "/generate", nil)
		req.Header.Set("X-User", user)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w.Code
	}

	assert.Equal(t, http.StatusOK, call("alice"))
	assert.Equal(t, http.StatusOK, call("alice"))
	assert.Equal(t, http.StatusTooManyRequests, call("alice"))
	assert.Equal(t, http.StatusOK, call("bob"), "limits are tracked per user")
}
