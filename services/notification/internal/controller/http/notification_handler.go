package http

import (
	"context"
	"errors"
	"net/http"

	"telecare/pkg/jwt"
	"telecare/pkg/logger"
	"telecare/services/notification/internal/entity"
	"telecare/services/notification/internal/repo/persistent"
	"telecare/services/notification/internal/usecase"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type NotificationHandler struct {
	repo       persistent.NotificationRepository
	hub        *Hub
	logger     *logger.Logger
	jwtService *jwt.Service
}

func NewNotificationHandler(repo persistent.NotificationRepository, hub *Hub, log *logger.Logger, jwtService *jwt.Service) *NotificationHandler {
	return &NotificationHandler{
		repo:       repo,
		hub:        hub,
		logger:     log,
		jwtService: jwtService,
	}
}

type CreateNotificationRequest struct {
	Type              string                 `json:"type" binding:"required"`
	Title             string                 `json:"title" binding:"required"`
	Body              string                 `json:"body" binding:"required"`
	Critical          bool                   `json:"critical"`
	RelatedEntityType string                 `json:"related_entity_type"`
	RelatedEntityID   string                 `json:"related_entity_id"`
	Metadata          map[string]interface{} `json:"metadata"`
	Actions           []entity.ActionSpec    `json:"actions"`
}

type SendNotificationRequest struct {
	UserID string `json:"user_id" binding:"required"`
	CreateNotificationRequest
}

// GetNotifications godoc
// @Summary      Get user notifications
// @Description  Get all notifications for the authenticated user, newest first
// @Tags         notifications
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  map[string]interface{}
// @Failure      500  {object}  map[string]string
// @Router       /notifications [get]
func (h *NotificationHandler) GetNotifications(c *gin.Context) {
	userID := c.GetString("user_id")
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	notifications, err := h.repo.ListByUser(c.Request.Context(), userID)
	if err != nil {
		h.logger.Error("Failed to get notifications: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get notifications"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"notifications": notifications,
		"count":         len(notifications),
	})
}

// GetNotificationsByType godoc
// @Summary      Get user notifications filtered by type
// @Tags         notifications
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        type path string true "Notification type"
// @Success      200  {object}  map[string]interface{}
// @Failure      500  {object}  map[string]string
// @Router       /notifications/type/{type} [get]
func (h *NotificationHandler) GetNotificationsByType(c *gin.Context) {
	userID := c.GetString("user_id")
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	notificationType := c.Param("type")
	notifications, err := h.repo.ListByUserAndType(c.Request.Context(), userID, notificationType)
	if err != nil {
		h.logger.Error("Failed to get notifications by type: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get notifications"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"notifications": notifications,
		"count":         len(notifications),
		"type":          notificationType,
	})
}

// GetUnreadCount godoc
// @Summary      Get unread notification count
// @Tags         notifications
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  map[string]interface{}
// @Failure      500  {object}  map[string]string
// @Router       /notifications/unread-count [get]
func (h *NotificationHandler) GetUnreadCount(c *gin.Context) {
	userID := c.GetString("user_id")
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	count, err := h.repo.UnreadCount(c.Request.Context(), userID)
	if err != nil {
		h.logger.Error("Failed to get unread count: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get unread count"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"unread_count": count})
}

// CreateNotification godoc
// @Summary      Create a notification for the authenticated user
// @Tags         notifications
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Success      201  {object}  map[string]interface{}
// @Failure      400  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /notifications [post]
func (h *NotificationHandler) CreateNotification(c *gin.Context) {
	userID := c.GetString("user_id")
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var req CreateNotificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	notification, err := h.createFromRequest(c.Request.Context(), userID, req)
	if err != nil {
		h.writeCreateError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"notification": notification})
}

// SendNotification creates a notification for any user. Internal route for
// service-to-service calls; not exposed behind user auth.
func (h *NotificationHandler) SendNotification(c *gin.Context) {
	var req SendNotificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	notification, err := h.createFromRequest(c.Request.Context(), req.UserID, req.CreateNotificationRequest)
	if err != nil {
		h.writeCreateError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":      "Notification sent successfully",
		"notification": notification,
	})
}

func (h *NotificationHandler) createFromRequest(ctx context.Context, userID string, req CreateNotificationRequest) (*entity.Notification, error) {
	return h.repo.Create(ctx, entity.CreateNotificationData{
		UserID:            userID,
		Type:              req.Type,
		Title:             req.Title,
		Body:              req.Body,
		Critical:          req.Critical,
		RelatedEntityType: req.RelatedEntityType,
		RelatedEntityID:   req.RelatedEntityID,
		Metadata:          req.Metadata,
		Actions:           req.Actions,
	})
}

func (h *NotificationHandler) writeCreateError(c *gin.Context, err error) {
	if errors.Is(err, entity.ErrValidation) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	h.logger.Error("Failed to create notification: %v", err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create notification"})
}

// UpdateNotification godoc
// @Summary      Update a notification
// @Tags         notifications
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Notification ID"
// @Success      200  {object}  map[string]interface{}
// @Failure      404  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /notifications/{id} [patch]
func (h *NotificationHandler) UpdateNotification(c *gin.Context) {
	userID := c.GetString("user_id")
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var req entity.UpdateNotificationData
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	notification, err := h.repo.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		if errors.Is(err, entity.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Notification not found"})
			return
		}
		h.logger.Error("Failed to update notification: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update notification"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"notification": notification})
}

// MarkRead godoc
// @Summary      Mark a notification as read
// @Tags         notifications
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Notification ID"
// @Success      200  {object}  map[string]interface{}
// @Failure      404  {object}  map[string]string
// @Router       /notifications/{id}/read [post]
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	userID := c.GetString("user_id")
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	if err := h.repo.MarkRead(c.Request.Context(), c.Param("id")); err != nil {
		if errors.Is(err, entity.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Notification not found"})
			return
		}
		h.logger.Error("Failed to mark notification read: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to mark notification read"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Notification marked read"})
}

// MarkAllRead godoc
// @Summary      Mark all notifications as read
// @Tags         notifications
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  map[string]interface{}
// @Failure      500  {object}  map[string]string
// @Router       /notifications/read-all [post]
func (h *NotificationHandler) MarkAllRead(c *gin.Context) {
	userID := c.GetString("user_id")
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	if err := h.repo.MarkAllRead(c.Request.Context(), userID); err != nil {
		h.logger.Error("Failed to mark all notifications read: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to mark all notifications read"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "All notifications marked read"})
}

// DeleteNotification godoc
// @Summary      Delete a notification
// @Description  Delete a notification and its actions. Deleting a missing id succeeds.
// @Tags         notifications
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Notification ID"
// @Success      200  {object}  map[string]interface{}
// @Failure      500  {object}  map[string]string
// @Router       /notifications/{id} [delete]
func (h *NotificationHandler) DeleteNotification(c *gin.Context) {
	userID := c.GetString("user_id")
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	err := h.repo.Delete(c.Request.Context(), c.Param("id"))
	if err != nil && !errors.Is(err, entity.ErrNotFound) {
		h.logger.Error("Failed to delete notification: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete notification"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Notification deleted"})
}

type wsOutbound struct {
	Type     string            `json:"type"`
	Snapshot *usecase.Snapshot `json:"snapshot,omitempty"`
	Toast    *usecase.Toast    `json:"toast,omitempty"`
}

type wsInbound struct {
	Action string `json:"action"`
	ID     string `json:"id,omitempty"`
	Type   string `json:"type,omitempty"`
}

// HandleWebSocket attaches a socket to the user's shared coordinator. The
// socket receives snapshot and toast frames and may send action frames
// (mark_read, mark_all_read, delete, reload, refresh_unread) that run
// through the coordinator's optimistic path.
func (h *NotificationHandler) HandleWebSocket(c *gin.Context) {
	userID := c.GetString("user_id")

	if userID == "" {
		token := c.Query("token")
		if token == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Token required"})
			return
		}

		claims, err := h.jwtService.ValidateToken(token)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			return
		}

		userID = claims.UserID
	}

	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("Failed to upgrade connection to WebSocket: %v", err)
		return
	}
	defer conn.Close()

	h.logger.Info("WebSocket connected for user %s", userID)

	coordinator, fanout, detach := h.hub.Attach(userID)
	defer detach()

	snapshots, unsubscribe := coordinator.Subscribe()
	defer unsubscribe()

	toasts, detachToasts := fanout.attach()
	defer detachToasts()

	done := make(chan struct{})

	go func() {
		// Seed the client with the current view before any change arrives.
		initial := coordinator.Snapshot()
		if err := conn.WriteJSON(wsOutbound{Type: "snapshot", Snapshot: &initial}); err != nil {
			return
		}
		for {
			select {
			case <-done:
				return
			case snapshot := <-snapshots:
				if err := conn.WriteJSON(wsOutbound{Type: "snapshot", Snapshot: &snapshot}); err != nil {
					h.logger.Error("Failed to write WebSocket snapshot: %v", err)
					return
				}
			case toast := <-toasts:
				if err := conn.WriteJSON(wsOutbound{Type: "toast", Toast: &toast}); err != nil {
					h.logger.Error("Failed to write WebSocket toast: %v", err)
					return
				}
			}
		}
	}()

	for {
		var msg wsInbound
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Warn("WebSocket read error: %v", err)
			}
			break
		}
		h.dispatchAction(coordinator, msg)
	}

	close(done)
	h.logger.Info("WebSocket disconnected for user %s", userID)
}

func (h *NotificationHandler) dispatchAction(coordinator *usecase.Coordinator, msg wsInbound) {
	ctx := context.Background()

	var err error
	switch msg.Action {
	case "mark_read":
		err = coordinator.MarkAsRead(ctx, msg.ID)
	case "mark_all_read":
		err = coordinator.MarkAllAsRead(ctx)
	case "delete":
		err = coordinator.DeleteNotificationByID(ctx, msg.ID)
	case "reload":
		err = coordinator.LoadNotifications(ctx)
	case "refresh_unread":
		_, err = coordinator.RefreshUnreadCount(ctx)
	default:
		h.logger.Warn("Unknown WebSocket action: %s", msg.Action)
		return
	}

	if err != nil {
		h.logger.Warn("WebSocket action %s failed: %v", msg.Action, err)
	}
}
