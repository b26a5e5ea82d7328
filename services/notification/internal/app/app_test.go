package app

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"telecare/pkg/logger"
	notificationHTTP "telecare/services/notification/internal/controller/http"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

type fakeQueueStats struct {
	depth int
	err   error
}

func (f *fakeQueueStats) GetQueueLength() (int, error) {
	return f.depth, f.err
}

func TestHealthHandler_ReportsQueueDepth(t *testing.T) {
	gin.SetMode(gin.TestMode)
	hub := notificationHTTP.NewHub(nil, nil, logger.New())

	router := gin.New()
	router.GET("/health", healthHandler(hub, &fakeQueueStats{depth: 3}))

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/health", nil)

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var response map[string]interface{}
	json.Unmarshal(w.Body.Bytes(), &response)
	assert.Equal(t, "ok", response["status"])
	assert.Equal(t, float64(0), response["sessions"])
	assert.Equal(t, float64(3), response["queued_tasks"])
}

func TestHealthHandler_QueueUnavailable(t *testing.T) {
	gin.SetMode(gin.TestMode)
	hub := notificationHTTP.NewHub(nil, nil, logger.New())

	router := gin.New()
	router.GET("/health", healthHandler(hub, &fakeQueueStats{err: errors.New("connection refused")}))

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/health", nil)

	router.ServeHTTP(w, req)

	// The service is still healthy when the broker is not reachable; the
	// depth field is simply omitted.
	assert.Equal(t, http.StatusOK, w.Code)

	var response map[string]interface{}
	json.Unmarshal(w.Body.Bytes(), &response)
	assert.Equal(t, "ok", response["status"])
	assert.NotContains(t, response, "queued_tasks")
}
