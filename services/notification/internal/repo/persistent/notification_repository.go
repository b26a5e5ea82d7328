package persistent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"telecare/pkg/logger"
	"telecare/services/notification/internal/entity"
	"telecare/services/notification/internal/model"
	"telecare/services/notification/internal/realtime"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

const unreadCountTTL = 5 * time.Minute

// NotificationRepository is the remote gateway for the notification feed.
// Every mutation publishes a change event to the owning user's realtime
// channel after the write commits.
type NotificationRepository interface {
	Create(ctx context.Context, data entity.CreateNotificationData) (*entity.Notification, error)
	Update(ctx context.Context, id string, data entity.UpdateNotificationData) (*entity.Notification, error)
	ListByUser(ctx context.Context, userID string) ([]entity.Notification, error)
	ListByUserAndType(ctx context.Context, userID, notificationType string) ([]entity.Notification, error)
	MarkRead(ctx context.Context, id string) error
	MarkAllRead(ctx context.Context, userID string) error
	UnreadCount(ctx context.Context, userID string) (int64, error)
	Delete(ctx context.Context, id string) error
}

type notificationRepository struct {
	db          *gorm.DB
	redisClient *redis.Client
	publisher   realtime.Publisher
	logger      *logger.Logger
}

func NewNotificationRepository(db *gorm.DB, redisClient *redis.Client, publisher realtime.Publisher, log *logger.Logger) NotificationRepository {
	return &notificationRepository{
		db:          db,
		redisClient: redisClient,
		publisher:   publisher,
		logger:      log,
	}
}

func (r *notificationRepository) Create(ctx context.Context, data entity.CreateNotificationData) (*entity.Notification, error) {
	if data.UserID == "" {
		return nil, fmt.Errorf("%w: user_id is required", entity.ErrValidation)
	}
	if data.Type == "" {
		return nil, fmt.Errorf("%w: type is required", entity.ErrValidation)
	}
	if data.Title == "" {
		return nil, fmt.Errorf("%w: title is required", entity.ErrValidation)
	}
	if data.Body == "" {
		return nil, fmt.Errorf("%w: body is required", entity.ErrValidation)
	}

	notificationModel := toNotificationModel(data)
	if err := r.db.WithContext(ctx).Create(notificationModel).Error; err != nil {
		return nil, fmt.Errorf("failed to create notification: %w", err)
	}

	r.invalidateUnreadCount(ctx, data.UserID)

	notification := ToNotificationEntity(notificationModel)
	r.publishNotification(ctx, realtime.EventInsert, notification)
	for i := range notification.Actions {
		r.publishAction(ctx, realtime.EventInsert, notification.UserID, &notification.Actions[i])
	}

	return notification, nil
}

func (r *notificationRepository) Update(ctx context.Context, id string, data entity.UpdateNotificationData) (*entity.Notification, error) {
	updates := map[string]interface{}{}
	if data.Title != nil {
		updates["title"] = *data.Title
	}
	if data.Body != nil {
		updates["body"] = *data.Body
	}
	if data.Read != nil {
		updates["read"] = *data.Read
	}
	if data.Critical != nil {
		updates["critical"] = *data.Critical
	}
	if data.Metadata != nil {
		metadata, err := json.Marshal(data.Metadata)
		if err != nil {
			return nil, fmt.Errorf("%w: metadata is not serializable", entity.ErrValidation)
		}
		updates["metadata"] = metadata
	}
	updates["updated_at"] = time.Now().UTC()

	result := r.db.WithContext(ctx).Model(&model.NotificationModel{}).Where("id = ?", id).Updates(updates)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to update notification: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, fmt.Errorf("%w: id %s", entity.ErrNotFound, id)
	}

	notification, err := r.getByID(ctx, id)
	if err != nil {
		return nil, err
	}

	r.invalidateUnreadCount(ctx, notification.UserID)
	r.publishNotification(ctx, realtime.EventUpdate, notification)

	return notification, nil
}

func (r *notificationRepository) ListByUser(ctx context.Context, userID string) ([]entity.Notification, error) {
	return r.list(ctx, r.db.WithContext(ctx).Where("user_id = ?", userID))
}

func (r *notificationRepository) ListByUserAndType(ctx context.Context, userID, notificationType string) ([]entity.Notification, error) {
	return r.list(ctx, r.db.WithContext(ctx).Where("user_id = ? AND type = ?", userID, notificationType))
}

func (r *notificationRepository) list(ctx context.Context, query *gorm.DB) ([]entity.Notification, error) {
	var notificationModels []model.NotificationModel
	err := query.
		Order("created_at DESC").
		Preload("Actions", func(db *gorm.DB) *gorm.DB {
			return db.Order("display_order ASC")
		}).
		Find(&notificationModels).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	return ToNotificationEntities(notificationModels), nil
}

func (r *notificationRepository) MarkRead(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).Model(&model.NotificationModel{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"read": true, "updated_at": time.Now().UTC()})
	if result.Error != nil {
		return fmt.Errorf("failed to mark notification read: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: id %s", entity.ErrNotFound, id)
	}

	notification, err := r.getByID(ctx, id)
	if err != nil {
		return err
	}

	r.invalidateUnreadCount(ctx, notification.UserID)
	r.publishNotification(ctx, realtime.EventUpdate, notification)

	return nil
}

func (r *notificationRepository) MarkAllRead(ctx context.Context, userID string) error {
	var unreadModels []model.NotificationModel
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND read = ?", userID, false).
		Find(&unreadModels).Error
	if err != nil {
		return fmt.Errorf("failed to find unread notifications: %w", err)
	}
	if len(unreadModels) == 0 {
		return nil
	}

	now := time.Now().UTC()
	err = r.db.WithContext(ctx).Model(&model.NotificationModel{}).
		Where("user_id = ? AND read = ?", userID, false).
		Updates(map[string]interface{}{"read": true, "updated_at": now}).Error
	if err != nil {
		return fmt.Errorf("failed to mark all notifications read: %w", err)
	}

	r.invalidateUnreadCount(ctx, userID)

	for i := range unreadModels {
		notification := ToNotificationEntity(&unreadModels[i])
		notification.Read = true
		notification.UpdatedAt = now
		r.publishNotification(ctx, realtime.EventUpdate, notification)
	}

	return nil
}

func (r *notificationRepository) UnreadCount(ctx context.Context, userID string) (int64, error) {
	cacheKey := unreadCountKey(userID)

	if cached, err := r.redisClient.Get(ctx, cacheKey).Result(); err == nil {
		if count, parseErr := strconv.ParseInt(cached, 10, 64); parseErr == nil {
			return count, nil
		}
	}

	var count int64
	err := r.db.WithContext(ctx).Model(&model.NotificationModel{}).
		Where("user_id = ? AND read = ?", userID, false).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count unread notifications: %w", err)
	}

	if err := r.redisClient.Set(ctx, cacheKey, count, unreadCountTTL).Err(); err != nil {
		r.logger.Warn("Failed to cache unread count for user %s: %v", userID, err)
	}

	return count, nil
}

func (r *notificationRepository) Delete(ctx context.Context, id string) error {
	notification, err := r.getByID(ctx, id)
	if err != nil {
		return err
	}

	// Actions are removed by the database cascade.
	err = r.db.WithContext(ctx).Where("id = ?", id).Delete(&model.NotificationModel{}).Error
	if err != nil {
		return fmt.Errorf("failed to delete notification: %w", err)
	}

	r.invalidateUnreadCount(ctx, notification.UserID)
	r.publishNotification(ctx, realtime.EventDelete, notification)

	return nil
}

func (r *notificationRepository) getByID(ctx context.Context, id string) (*entity.Notification, error) {
	var notificationModel model.NotificationModel
	err := r.db.WithContext(ctx).
		Preload("Actions", func(db *gorm.DB) *gorm.DB {
			return db.Order("display_order ASC")
		}).
		Where("id = ?", id).
		First(&notificationModel).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: id %s", entity.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get notification: %w", err)
	}
	return ToNotificationEntity(&notificationModel), nil
}

func (r *notificationRepository) publishNotification(ctx context.Context, eventType string, notification *entity.Notification) {
	// The row payload carries no actions; action rows travel as their own
	// events so foreign subscribers merge them individually.
	row := *notification
	row.Actions = nil

	payload, err := json.Marshal(row)
	if err != nil {
		r.logger.Warn("Failed to marshal notification %s for publish: %v", notification.ID, err)
		return
	}

	event := realtime.ChangeEvent{
		EventType:   eventType,
		EntityTable: realtime.TableNotifications,
		Row:         payload,
	}
	if err := r.publisher.PublishChange(ctx, notification.UserID, event); err != nil {
		r.logger.Warn("Failed to publish %s event for notification %s: %v", eventType, notification.ID, err)
	}
}

func (r *notificationRepository) publishAction(ctx context.Context, eventType, userID string, action *entity.NotificationAction) {
	payload, err := json.Marshal(action)
	if err != nil {
		r.logger.Warn("Failed to marshal action %s for publish: %v", action.ID, err)
		return
	}

	event := realtime.ChangeEvent{
		EventType:   eventType,
		EntityTable: realtime.TableNotificationActions,
		Row:         payload,
	}
	if err := r.publisher.PublishChange(ctx, userID, event); err != nil {
		r.logger.Warn("Failed to publish %s event for action %s: %v", eventType, action.ID, err)
	}
}

func (r *notificationRepository) invalidateUnreadCount(ctx context.Context, userID string) {
	if err := r.redisClient.Del(ctx, unreadCountKey(userID)).Err(); err != nil {
		r.logger.Warn("Failed to invalidate unread count for user %s: %v", userID, err)
	}
}

func unreadCountKey(userID string) string {
	return fmt.Sprintf("unread_count:%s", userID)
}
