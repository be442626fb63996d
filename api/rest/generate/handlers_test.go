package generate

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"codeberg.org/melodygen/server/internal/auth"
	"codeberg.org/melodygen/server/internal/dispatch"
	"codeberg.org/melodygen/server/internal/generation"
	"codeberg.org/melodygen/server/internal/quota"
	"codeberg.org/melodygen/server/internal/ratelimit"
	"codeberg.org/melodygen/server/melodygen/tasks"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"
)

// implements Service for testing
type mockService struct {
	requestErr error
	pollErr    error
	task       *tasks.Task
}

func (m *mockService) RequestMusic(_ context.Context, userID string, _ generation.MusicRequest) (*tasks.Task, error) {
	if m.requestErr != nil {
		return nil, m.requestErr
	}

	return m.task, nil
}

func (m *mockService) PollMusic(_ context.Context, _, taskID string) (*tasks.Task, error) {
	if m.pollErr != nil {
		return nil, m.pollErr
	}

	return m.task, nil
}

func setupRouter(t *testing.T, service Service) *gin.Engine {
	return setupRouterWithRate(t, service, "100-M")
}

// wires routes exactly as cmd/server does: the limiter middleware is
// handed to RegisterRoutes and runs inside the authenticated group
func setupRouterWithRate(t *testing.T, service Service, formatted string) *gin.Engine {
	t.Helper()
	t.Setenv("JWT_SECRET", "test-secret-key")
	gin.SetMode(gin.TestMode)

	rate, err := limiter.NewRateFromFormatted(formatted)
	require.NoError(t, err)
	limit := ratelimit.Middleware(limiter.New(memory.NewStore(), rate))

	router := gin.New()
	v1 := router.Group("/api/v1")
	RegisterRoutes(v1, service, limit)

	return router
}

func authedRequest(t *testing.T, method, path, body string) *http.Request {
	return authedRequestAs(t, "user-1", method, path, body)
}

func authedRequestAs(t *testing.T, userID, method, path, body string) *http.Request {
	t.Helper()

	token, err := auth.GenerateJWT(userID, userID+"@example.com", false)
	require.NoError(t, err)

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	return req
}

func TestCreateHandler_Accepted(t *testing.T) {
	service := &mockService{task: &tasks.Task{
		TaskID: "task-1",
		Status: tasks.StatusCreated,
		Kind:   tasks.KindMusic,
	}}
	router := setupRouter(t, service)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, authedRequest(t, http.MethodPost, "/api/v1/generate", `{"prompt":"lofi rain"}`))

	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.Contains(t, w.Body.String(), `"task_id":"task-1"`)
	assert.Contains(t, w.Body.String(), `"status":"created"`)
}

func TestCreateHandler_MissingPrompt(t *testing.T) {
	router := setupRouter(t, &mockService{})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, authedRequest(t, http.MethodPost, "/api/v1/generate", `{}`))

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreateHandler_NoToken(t *testing.T) {
	router := setupRouter(t, &mockService{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/generate", strings.NewReader(`{"prompt":"x"}`))
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestCreateHandler_QuotaExceeded(t *testing.T) {
	router := setupRouter(t, &mockService{requestErr: quota.ErrQuotaExceeded})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, authedRequest(t, http.MethodPost, "/api/v1/generate", `{"prompt":"x"}`))

	assert.Equal(t, http.StatusPaymentRequired, w.Code)
	assert.Contains(t, w.Body.String(), "quota_exceeded")
}

func TestCreateHandler_UpstreamRejected(t *testing.T) {
	err := fmt.Errorf("%w: upstream returned status 400", dispatch.ErrUpstreamRejected)
	router := setupRouter(t, &mockService{requestErr: err})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, authedRequest(t, http.MethodPost, "/api/v1/generate", `{"prompt":"x"}`))

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), "generation_rejected")
}

func TestCreateHandler_AllKeysExhausted(t *testing.T) {
	err := fmt.Errorf("%w: upstream returned status 503", dispatch.ErrExhaustedRetries)
	router := setupRouter(t, &mockService{requestErr: err})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, authedRequest(t, http.MethodPost, "/api/v1/generate", `{"prompt":"x"}`))

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "upstream_unavailable")
}

func TestRateLimit_BucketsByUserAfterAuth(t *testing.T) {
	service := &mockService{task: &tasks.Task{
		TaskID: "task-1",
		Status: tasks.StatusCreated,
		Kind:   tasks.KindMusic,
	}}
	router := setupRouterWithRate(t, service, "1-M")

	// two users behind the same client IP each get their own bucket,
	// so the limiter must see the authenticated user id
	for _, user := range []string{"user-1", "user-2"} {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, authedRequestAs(t, user, http.MethodPost, "/api/v1/generate", `{"prompt":"x"}`))

		assert.Equal(t, http.StatusAccepted, w.Code, "first request for %s", user)
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, authedRequestAs(t, "user-1", http.MethodPost, "/api/v1/generate", `{"prompt":"x"}`))

	assert.Equal(t, http.StatusTooManyRequests, w.Code, "second request for the same user is limited")
}

func TestStatusHandler_NotFound(t *testing.T) {
	router := setupRouter(t, &mockService{pollErr: tasks.ErrNotFound})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, authedRequest(t, http.MethodGet, "/api/v1/generate/ghost", ""))

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestStatusHandler_Completed(t *testing.T) {
	service := &mockService{task: &tasks.Task{
		TaskID:  "task-1",
		Status:  tasks.StatusCompleted,
		Outputs: []string{"https://cdn.example.com/song.mp3"},
	}}
	router := setupRouter(t, service)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, authedRequest(t, http.MethodGet, "/api/v1/generate/task-1", ""))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "song.mp3")
}
