package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type NotificationModel struct {
	ID                string                    `gorm:"column:id;type:uuid;primaryKey"`
	UserID            string                    `gorm:"column:user_id;type:uuid;not null;index"`
	Type              string                    `gorm:"column:type;type:varchar(50);not null"`
	Title             string                    `gorm:"column:title;not null"`
	Body              string                    `gorm:"column:body;not null"`
	Read              bool                      `gorm:"column:read;default:false"`
	Critical          bool                      `gorm:"column:critical;default:false"`
	RelatedEntityType string                    `gorm:"column:related_entity_type"`
	RelatedEntityID   string                    `gorm:"column:related_entity_id"`
	Metadata          datatypes.JSONMap         `gorm:"column:metadata"`
	Actions           []NotificationActionModel `gorm:"foreignKey:NotificationID;constraint:OnDelete:CASCADE"`
	CreatedAt         time.Time                 `gorm:"column:created_at"`
	UpdatedAt         time.Time                 `gorm:"column:updated_at"`
}

func (NotificationModel) TableName() string {
	return "notifications"
}

func (m *NotificationModel) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	return nil
}

type NotificationActionModel struct {
	ID             string            `gorm:"column:id;type:uuid;primaryKey"`
	NotificationID string            `gorm:"column:notification_id;type:uuid;not null;index"`
	Label          string            `gorm:"column:label;not null"`
	ActionType     string            `gorm:"column:action_type;type:varchar(50);not null"`
	ActionData     datatypes.JSONMap `gorm:"column:action_data"`
	DisplayOrder   int               `gorm:"column:display_order;default:0"`
	CreatedAt      time.Time         `gorm:"column:created_at"`
}

func (NotificationActionModel) TableName() string {
	return "notification_actions"
}

func (m *NotificationActionModel) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	return nil
}
