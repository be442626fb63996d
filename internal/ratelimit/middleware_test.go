package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"
)

func newTestRouter(t *testing.T, formatted string) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	rate, err := limiter.NewRateFromFormatted(formatted)
	require.NoError(t, err)

	router := gin.New()
	router.Use(Middleware(limiter.New(memory.NewStore(), rate)))
	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	return router
}

func TestMiddleware_AllowsUnderLimit(t *testing.T) {
	router := newTestRouter(t, "5-M")

	for i := 0; i < 5; i++ {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
	}
}

func TestMiddleware_BlocksOverLimit(t *testing.T) {
	router := newTestRouter(t, "2-M")

	var last *httptest.ResponseRecorder
	for i := 0; i < 3; i++ {
		last = httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		router.ServeHTTP(last, req)
	}

	assert.Equal(t, http.StatusTooManyRequests, last.Code)
	assert.Contains(t, last.Body.String(), "too_many_requests")
}

func TestMiddleware_SetsRateHeaders(t *testing.T) {
	router := newTestRouter(t, "10-M")

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, "10", w.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "9", w.Header().Get("X-RateLimit-Remaining"))
	assert.NotEmpty(t, w.Header().Get("X-RateLimit-Reset"))
}

func TestMiddleware_SeparateUsersSeparateBuckets(t *testing.T) {
	gin.SetMode(gin.TestMode)

	rate, err := limiter.NewRateFromFormatted("1-M")
	require.NoError(t, err)
	instance := limiter.New(memory.NewStore(), rate)

	router := gin.New()
	router.Use(func(c *gin.Context) {
		c.Set("user_id", c.GetHeader("X-Test-User"))
	})
	router.Use(Middleware(instance))
	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	for _, user := range []string{"user-1", "user-2"} {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		req.Header.Set("X-Test-User", user)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code, "first request for %s", user)
	}

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("X-Test-User", "user-1")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusTooManyRequests, w.Code)
}
