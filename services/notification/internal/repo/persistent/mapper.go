package persistent

import (
	"telecare/services/notification/internal/entity"
	"telecare/services/notification/internal/model"
)

func ToNotificationEntity(m *model.NotificationModel) *entity.Notification {
	n := &entity.Notification{
		ID:                m.ID,
		UserID:            m.UserID,
		Type:              m.Type,
		Title:             m.Title,
		Body:              m.Body,
		Read:              m.Read,
		Critical:          m.Critical,
		Icon:              entity.IconForType(m.Type),
		RelatedEntityType: m.RelatedEntityType,
		RelatedEntityID:   m.RelatedEntityID,
		Metadata:          m.Metadata,
		Actions:           make([]entity.NotificationAction, 0, len(m.Actions)),
		CreatedAt:         m.CreatedAt,
		UpdatedAt:         m.UpdatedAt,
	}
	for i := range m.Actions {
		n.Actions = append(n.Actions, *ToActionEntity(&m.Actions[i]))
	}
	n.SortActions()
	return n
}

func ToNotificationEntities(ms []model.NotificationModel) []entity.Notification {
	notifications := make([]entity.Notification, 0, len(ms))
	for i := range ms {
		notifications = append(notifications, *ToNotificationEntity(&ms[i]))
	}
	return notifications
}

func ToActionEntity(m *model.NotificationActionModel) *entity.NotificationAction {
	return &entity.NotificationAction{
		ID:             m.ID,
		NotificationID: m.NotificationID,
		Label:          m.Label,
		ActionType:     m.ActionType,
		ActionData:     m.ActionData,
		Route:          entity.RouteForActionType(m.ActionType),
		DisplayOrder:   m.DisplayOrder,
	}
}

func toNotificationModel(data entity.CreateNotificationData) *model.NotificationModel {
	m := &model.NotificationModel{
		UserID:            data.UserID,
		Type:              data.Type,
		Title:             data.Title,
		Body:              data.Body,
		Read:              false,
		Critical:          data.Critical,
		RelatedEntityType: data.RelatedEntityType,
		RelatedEntityID:   data.RelatedEntityID,
		Metadata:          data.Metadata,
	}
	for i, spec := range data.Actions {
		displayOrder := i
		if spec.DisplayOrder != nil {
			displayOrder = *spec.DisplayOrder
		}
		m.Actions = append(m.Actions, model.NotificationActionModel{
			Label:        spec.Label,
			ActionType:   spec.ActionType,
			ActionData:   spec.ActionData,
			DisplayOrder: displayOrder,
		})
	}
	return m
}
