package usecase

import (
	"context"
	"fmt"

	"telecare/pkg/logger"
	"telecare/services/notification/internal/entity"
	"telecare/services/notification/internal/repo/persistent"
)

// TaskProcessor turns queued clinical events from other services into
// notifications through the same gateway path user-triggered creates use,
// so live sessions pick them up over the realtime channel.
type TaskProcessor struct {
	repo   persistent.NotificationRepository
	logger *logger.Logger
}

func NewTaskProcessor(repo persistent.NotificationRepository, log *logger.Logger) *TaskProcessor {
	return &TaskProcessor{repo: repo, logger: log}
}

func (p *TaskProcessor) HandleTask(task map[string]interface{}) error {
	taskType, _ := task["type"].(string)

	switch taskType {
	case "order":
		return p.handleOrderTask(task)
	case "appointment":
		return p.handleAppointmentTask(task)
	case "vital":
		return p.handleVitalTask(task)
	default:
		p.logger.Error("Unknown notification task type: %s, task=%+v", taskType, task)
		return fmt.Errorf("unknown notification task type: %s", taskType)
	}
}

func (p *TaskProcessor) handleOrderTask(task map[string]interface{}) error {
	userID, _ := task["user_id"].(string)
	orderID, _ := task["order_id"].(string)
	status, _ := task["status"].(string)

	if userID == "" || orderID == "" {
		p.logger.Error("Invalid order task: missing user_id or order_id, task=%+v", task)
		return fmt.Errorf("invalid task: missing user_id or order_id")
	}

	_, err := p.repo.Create(context.Background(), entity.CreateNotificationData{
		UserID:            userID,
		Type:              "order",
		Title:             "Order update",
		Body:              fmt.Sprintf("Your order is now %s", status),
		RelatedEntityType: "order",
		RelatedEntityID:   orderID,
		Actions: []entity.ActionSpec{
			{Label: "Track order", ActionType: "track"},
		},
	})
	if err != nil {
		p.logger.Error("Failed to create order notification for user %s: %v", userID, err)
		return err
	}

	p.logger.Info("Created order notification for user %s, order %s", userID, orderID)
	return nil
}

func (p *TaskProcessor) handleAppointmentTask(task map[string]interface{}) error {
	userID, _ := task["user_id"].(string)
	appointmentID, _ := task["appointment_id"].(string)
	providerName, _ := task["provider_name"].(string)
	startsAt, _ := task["starts_at"].(string)

	if userID == "" || appointmentID == "" {
		p.logger.Error("Invalid appointment task: missing user_id or appointment_id, task=%+v", task)
		return fmt.Errorf("invalid task: missing user_id or appointment_id")
	}

	if providerName == "" {
		providerName = "your provider"
	}

	_, err := p.repo.Create(context.Background(), entity.CreateNotificationData{
		UserID:            userID,
		Type:              "appointment",
		Title:             "Appointment reminder",
		Body:              fmt.Sprintf("Upcoming appointment with %s at %s", providerName, startsAt),
		RelatedEntityType: "appointment",
		RelatedEntityID:   appointmentID,
		Actions: []entity.ActionSpec{
			{Label: "Join call", ActionType: "call"},
			{Label: "Reschedule", ActionType: "reschedule"},
			{Label: "Cancel", ActionType: "cancel"},
		},
	})
	if err != nil {
		p.logger.Error("Failed to create appointment notification for user %s: %v", userID, err)
		return err
	}

	p.logger.Info("Created appointment notification for user %s, appointment %s", userID, appointmentID)
	return nil
}

func (p *TaskProcessor) handleVitalTask(task map[string]interface{}) error {
	userID, _ := task["user_id"].(string)
	vitalName, _ := task["vital_name"].(string)
	reading, _ := task["reading"].(string)
	critical, _ := task["critical"].(bool)

	if userID == "" || vitalName == "" {
		p.logger.Error("Invalid vital task: missing user_id or vital_name, task=%+v", task)
		return fmt.Errorf("invalid task: missing user_id or vital_name")
	}

	_, err := p.repo.Create(context.Background(), entity.CreateNotificationData{
		UserID:   userID,
		Type:     "vital",
		Title:    fmt.Sprintf("%s alert", vitalName),
		Body:     fmt.Sprintf("Your %s reading was %s", vitalName, reading),
		Critical: critical,
		Actions: []entity.ActionSpec{
			{Label: "Review", ActionType: "review"},
			{Label: "Message care team", ActionType: "message"},
		},
	})
	if err != nil {
		p.logger.Error("Failed to create vital notification for user %s: %v", userID, err)
		return err
	}

	p.logger.Info("Created vital notification for user %s: %s", userID, vitalName)
	return nil
}
