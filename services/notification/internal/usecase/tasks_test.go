package usecase

import (
	"testing"

	"telecare/pkg/logger"

	"github.com/stretchr/testify/assert"
)

func TestHandleTask_Order(t *testing.T) {
	repo := &fakeRepo{}
	processor := NewTaskProcessor(repo, logger.New())

	err := processor.HandleTask(map[string]interface{}{
		"type":     "order",
		"user_id":  "user-1",
		"order_id": "order-42",
		"status":   "shipped",
	})

	assert.NoError(t, err)
	assert.Len(t, repo.createCalls, 1)
	created := repo.createCalls[0]
	assert.Equal(t, "user-1", created.UserID)
	assert.Equal(t, "order", created.Type)
	assert.Equal(t, "order-42", created.RelatedEntityID)
	assert.Contains(t, created.Body, "shipped")
	assert.Len(t, created.Actions, 1)
	assert.Equal(t, "track", created.Actions[0].ActionType)
}

func TestHandleTask_Appointment(t *testing.T) {
	repo := &fakeRepo{}
	processor := NewTaskProcessor(repo, logger.New())

	err := processor.HandleTask(map[string]interface{}{
		"type":           "appointment",
		"user_id":        "user-1",
		"appointment_id": "appt-7",
		"provider_name":  "Dr. Adams",
		"starts_at":      "2026-09-01T10:00:00Z",
	})

	assert.NoError(t, err)
	assert.Len(t, repo.createCalls, 1)
	created := repo.createCalls[0]
	assert.Equal(t, "appointment", created.Type)
	assert.Contains(t, created.Body, "Dr. Adams")
	assert.Len(t, created.Actions, 3)
}

func TestHandleTask_AppointmentDefaultProvider(t *testing.T) {
	repo := &fakeRepo{}
	processor := NewTaskProcessor(repo, logger.New())

	err := processor.HandleTask(map[string]interface{}{
		"type":           "appointment",
		"user_id":        "user-1",
		"appointment_id": "appt-7",
	})

	assert.NoError(t, err)
	assert.Contains(t, repo.createCalls[0].Body, "your provider")
}

func TestHandleTask_VitalCritical(t *testing.T) {
	repo := &fakeRepo{}
	processor := NewTaskProcessor(repo, logger.New())

	err := processor.HandleTask(map[string]interface{}{
		"type":       "vital",
		"user_id":    "user-1",
		"vital_name": "Blood pressure",
		"reading":    "158/98",
		"critical":   true,
	})

	assert.NoError(t, err)
	assert.Len(t, repo.createCalls, 1)
	created := repo.createCalls[0]
	assert.Equal(t, "vital", created.Type)
	assert.True(t, created.Critical)
	assert.Contains(t, created.Title, "Blood pressure")
}

func TestHandleTask_UnknownType(t *testing.T) {
	repo := &fakeRepo{}
	processor := NewTaskProcessor(repo, logger.New())

	err := processor.HandleTask(map[string]interface{}{"type": "billing"})

	assert.Error(t, err)
	assert.Empty(t, repo.createCalls)
}

func TestHandleTask_MissingFields(t *testing.T) {
	repo := &fakeRepo{}
	processor := NewTaskProcessor(repo, logger.New())

	assert.Error(t, processor.HandleTask(map[string]interface{}{"type": "order", "order_id": "order-42"}))
	assert.Error(t, processor.HandleTask(map[string]interface{}{"type": "appointment", "user_id": "user-1"}))
	assert.Error(t, processor.HandleTask(map[string]interface{}{"type": "vital", "user_id": "user-1"}))
	assert.Empty(t, repo.createCalls)
}
