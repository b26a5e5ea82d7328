package entity

import (
	"sort"
	"time"
)

// Notification is a user-scoped alert with read/unread state and optional
// attached actions. Actions are always kept sorted by ascending DisplayOrder.
type Notification struct {
	ID                string                 `json:"id"`
	UserID            string                 `json:"user_id"`
	Type              string                 `json:"type"`
	Title             string                 `json:"title"`
	Body              string                 `json:"body"`
	Read              bool                   `json:"read"`
	Critical          bool                   `json:"critical"`
	Icon              string                 `json:"icon"`
	RelatedEntityType string                 `json:"related_entity_type,omitempty"`
	RelatedEntityID   string                 `json:"related_entity_id,omitempty"`
	Metadata          map[string]interface{} `json:"metadata,omitempty"`
	Actions           []NotificationAction   `json:"actions"`
	CreatedAt         time.Time              `json:"created_at"`
	UpdatedAt         time.Time              `json:"updated_at"`
}

// NotificationAction is an actionable button attached to one notification.
type NotificationAction struct {
	ID             string                 `json:"id"`
	NotificationID string                 `json:"notification_id"`
	Label          string                 `json:"label"`
	ActionType     string                 `json:"action_type"`
	ActionData     map[string]interface{} `json:"action_data,omitempty"`
	Route          string                 `json:"route"`
	DisplayOrder   int                    `json:"display_order"`
}

// SortActions orders the action list by ascending DisplayOrder.
func (n *Notification) SortActions() {
	sort.SliceStable(n.Actions, func(i, j int) bool {
		return n.Actions[i].DisplayOrder < n.Actions[j].DisplayOrder
	})
}

// ActionSpec describes one action attached at creation time.
type ActionSpec struct {
	Label        string                 `json:"label"`
	ActionType   string                 `json:"action_type"`
	ActionData   map[string]interface{} `json:"action_data,omitempty"`
	DisplayOrder *int                   `json:"display_order,omitempty"`
}

// CreateNotificationData is the gateway create request. Read always defaults
// to false; Critical defaults to false unless set.
type CreateNotificationData struct {
	UserID            string                 `json:"user_id"`
	Type              string                 `json:"type"`
	Title             string                 `json:"title"`
	Body              string                 `json:"body"`
	Critical          bool                   `json:"critical"`
	RelatedEntityType string                 `json:"related_entity_type,omitempty"`
	RelatedEntityID   string                 `json:"related_entity_id,omitempty"`
	Metadata          map[string]interface{} `json:"metadata,omitempty"`
	Actions           []ActionSpec           `json:"actions,omitempty"`
}

// UpdateNotificationData is a partial update; nil fields are left untouched.
type UpdateNotificationData struct {
	Title    *string                `json:"title,omitempty"`
	Body     *string                `json:"body,omitempty"`
	Read     *bool                  `json:"read,omitempty"`
	Critical *bool                  `json:"critical,omitempty"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}
