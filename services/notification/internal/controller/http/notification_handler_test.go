package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"telecare/pkg/logger"
	"telecare/services/notification/internal/entity"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

type stubRepo struct {
	notifications []entity.Notification
	unreadCount   int64

	createErr   error
	updateErr   error
	markReadErr error
	deleteErr   error

	deleteCalls []string
}

func (s *stubRepo) Create(ctx context.Context, data entity.CreateNotificationData) (*entity.Notification, error) {
	if s.createErr != nil {
		return nil, s.createErr
	}
	now := time.Now()
	return &entity.Notification{
		ID:        "created-id",
		UserID:    data.UserID,
		Type:      data.Type,
		Title:     data.Title,
		Body:      data.Body,
		Critical:  data.Critical,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (s *stubRepo) Update(ctx context.Context, id string, data entity.UpdateNotificationData) (*entity.Notification, error) {
	if s.updateErr != nil {
		return nil, s.updateErr
	}
	return &entity.Notification{ID: id, UserID: "user-123", Type: "chat", Title: "t", Body: "b"}, nil
}

func (s *stubRepo) ListByUser(ctx context.Context, userID string) ([]entity.Notification, error) {
	return s.notifications, nil
}

func (s *stubRepo) ListByUserAndType(ctx context.Context, userID, notificationType string) ([]entity.Notification, error) {
	var filtered []entity.Notification
	for _, n := range s.notifications {
		if n.Type == notificationType {
			filtered = append(filtered, n)
		}
	}
	return filtered, nil
}

func (s *stubRepo) MarkRead(ctx context.Context, id string) error {
	return s.markReadErr
}

func (s *stubRepo) MarkAllRead(ctx context.Context, userID string) error {
	return nil
}

func (s *stubRepo) UnreadCount(ctx context.Context, userID string) (int64, error) {
	return s.unreadCount, nil
}

func (s *stubRepo) Delete(ctx context.Context, id string) error {
	s.deleteCalls = append(s.deleteCalls, id)
	return s.deleteErr
}

func setupNotificationTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	return gin.New()
}

func authAs(userID string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("user_id", userID)
		c.Next()
	}
}

func TestGetNotifications_Unauthorized(t *testing.T) {
	handler := &NotificationHandler{
		logger: logger.New(),
	}

	router := setupNotificationTestRouter()
	router.GET("/notifications", handler.GetNotifications)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/notifications", nil)

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)

	var response map[string]interface{}
	json.Unmarshal(w.Body.Bytes(), &response)
	assert.Contains(t, response["error"], "Unauthorized")
}

func TestGetNotifications_Success(t *testing.T) {
	repo := &stubRepo{notifications: []entity.Notification{
		{ID: "a", UserID: "user-123", Type: "order", Title: "Order shipped", Body: "On the way"},
		{ID: "b", UserID: "user-123", Type: "chat", Title: "New message", Body: "Hello"},
	}}
	handler := &NotificationHandler{repo: repo, logger: logger.New()}

	router := setupNotificationTestRouter()
	router.GET("/notifications", authAs("user-123"), handler.GetNotifications)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/notifications", nil)

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var response map[string]interface{}
	json.Unmarshal(w.Body.Bytes(), &response)
	assert.Equal(t, float64(2), response["count"])
}

func TestGetNotificationsByType_Success(t *testing.T) {
	repo := &stubRepo{notifications: []entity.Notification{
		{ID: "a", UserID: "user-123", Type: "order", Title: "Order shipped", Body: "On the way"},
		{ID: "b", UserID: "user-123", Type: "chat", Title: "New message", Body: "Hello"},
	}}
	handler := &NotificationHandler{repo: repo, logger: logger.New()}

	router := setupNotificationTestRouter()
	router.GET("/notifications/type/:type", authAs("user-123"), handler.GetNotificationsByType)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/notifications/type/order", nil)

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var response map[string]interface{}
	json.Unmarshal(w.Body.Bytes(), &response)
	assert.Equal(t, float64(1), response["count"])
	assert.Equal(t, "order", response["type"])
}

func TestGetUnreadCount_Success(t *testing.T) {
	repo := &stubRepo{unreadCount: 7}
	handler := &NotificationHandler{repo: repo, logger: logger.New()}

	router := setupNotificationTestRouter()
	router.GET("/notifications/unread-count", authAs("user-123"), handler.GetUnreadCount)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/notifications/unread-count", nil)

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var response map[string]interface{}
	json.Unmarshal(w.Body.Bytes(), &response)
	assert.Equal(t, float64(7), response["unread_count"])
}

func TestCreateNotification_Unauthorized(t *testing.T) {
	handler := &NotificationHandler{logger: logger.New()}

	router := setupNotificationTestRouter()
	router.POST("/notifications", handler.CreateNotification)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/notifications", nil)

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestCreateNotification_MissingFields(t *testing.T) {
	handler := &NotificationHandler{repo: &stubRepo{}, logger: logger.New()}

	router := setupNotificationTestRouter()
	router.POST("/notifications", authAs("user-123"), handler.CreateNotification)

	body := bytes.NewBufferString(`{"type": "order"}`)
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/notifications", body)
	req.Header.Set("Content-Type", "application/json")

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreateNotification_Success(t *testing.T) {
	handler := &NotificationHandler{repo: &stubRepo{}, logger: logger.New()}

	router := setupNotificationTestRouter()
	router.POST("/notifications", authAs("user-123"), handler.CreateNotification)

	body := bytes.NewBufferString(`{"type": "order", "title": "Order shipped", "body": "On the way"}`)
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/notifications", body)
	req.Header.Set("Content-Type", "application/json")

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)
}

func TestCreateNotification_ValidationError(t *testing.T) {
	repo := &stubRepo{createErr: fmt.Errorf("%w: body is required", entity.ErrValidation)}
	handler := &NotificationHandler{repo: repo, logger: logger.New()}

	router := setupNotificationTestRouter()
	router.POST("/notifications", authAs("user-123"), handler.CreateNotification)

	body := bytes.NewBufferString(`{"type": "order", "title": "Order shipped", "body": "x"}`)
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/notifications", body)
	req.Header.Set("Content-Type", "application/json")

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSendNotification_RequiresUserID(t *testing.T) {
	handler := &NotificationHandler{repo: &stubRepo{}, logger: logger.New()}

	router := setupNotificationTestRouter()
	router.POST("/notifications/send", handler.SendNotification)

	body := bytes.NewBufferString(`{"type": "order", "title": "Order shipped", "body": "On the way"}`)
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/notifications/send", body)
	req.Header.Set("Content-Type", "application/json")

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUpdateNotification_NotFound(t *testing.T) {
	repo := &stubRepo{updateErr: fmt.Errorf("%w: id ghost", entity.ErrNotFound)}
	handler := &NotificationHandler{repo: repo, logger: logger.New()}

	router := setupNotificationTestRouter()
	router.PATCH("/notifications/:id", authAs("user-123"), handler.UpdateNotification)

	body := bytes.NewBufferString(`{"read": true}`)
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("PATCH", "/notifications/ghost", body)
	req.Header.Set("Content-Type", "application/json")

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestMarkRead_NotFound(t *testing.T) {
	repo := &stubRepo{markReadErr: fmt.Errorf("%w: id ghost", entity.ErrNotFound)}
	handler := &NotificationHandler{repo: repo, logger: logger.New()}

	router := setupNotificationTestRouter()
	router.POST("/notifications/:id/read", authAs("user-123"), handler.MarkRead)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/notifications/ghost/read", nil)

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestMarkAllRead_Success(t *testing.T) {
	handler := &NotificationHandler{repo: &stubRepo{}, logger: logger.New()}

	router := setupNotificationTestRouter()
	router.POST("/notifications/read-all", authAs("user-123"), handler.MarkAllRead)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/notifications/read-all", nil)

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestDeleteNotification_MissingIDIsSuccess(t *testing.T) {
	// Deleting an id that no longer exists must behave like a successful
	// delete; the observable effect is the same.
	repo := &stubRepo{deleteErr: fmt.Errorf("%w: id ghost", entity.ErrNotFound)}
	handler := &NotificationHandler{repo: repo, logger: logger.New()}

	router := setupNotificationTestRouter()
	router.DELETE("/notifications/:id", authAs("user-123"), handler.DeleteNotification)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("DELETE", "/notifications/ghost", nil)

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"ghost"}, repo.deleteCalls)
}

func TestHandleWebSocket_MissingToken(t *testing.T) {
	handler := &NotificationHandler{logger: logger.New()}

	router := setupNotificationTestRouter()
	router.GET("/notifications/ws", handler.HandleWebSocket)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/notifications/ws", nil)

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
