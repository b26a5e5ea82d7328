package main

import (
	"context"
	"log"

	"telecare/pkg/cache"
	"telecare/pkg/config"
	"telecare/pkg/database"
	"telecare/pkg/logger"
	"telecare/pkg/queue"
	"telecare/services/notification/internal/entity"
	"telecare/services/notification/internal/realtime"
	"telecare/services/notification/internal/repo/persistent"

	"github.com/google/uuid"
)

func intPtr(i int) *int { return &i }

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	appLogger := logger.New()
	db, err := database.NewPostgresDB(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	redisClient, err := cache.NewRedisClient(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to redis: %v", err)
	}

	channel := realtime.NewRedisChannel(redisClient, appLogger)
	repo := persistent.NewNotificationRepository(db, redisClient, channel, appLogger)

	userID := uuid.New().String()
	ctx := context.Background()

	seeds := []entity.CreateNotificationData{
		{
			UserID: userID,
			Type:   "order",
			Title:  "Order shipped",
			Body:   "Your prescription order #1042 has shipped.",
			Actions: []entity.ActionSpec{
				{Label: "Track order", ActionType: "track"},
			},
		},
		{
			UserID:   userID,
			Type:     "vital",
			Title:    "Blood pressure alert",
			Body:     "Your latest blood pressure reading was 158/98.",
			Critical: true,
			Actions: []entity.ActionSpec{
				{Label: "Review", ActionType: "review", DisplayOrder: intPtr(0)},
				{Label: "Message care team", ActionType: "message", DisplayOrder: intPtr(1)},
			},
		},
		{
			UserID: userID,
			Type:   "appointment",
			Title:  "Appointment reminder",
			Body:   "Video visit with Dr. Adams tomorrow at 10:00.",
			Actions: []entity.ActionSpec{
				{Label: "Join call", ActionType: "call"},
				{Label: "Reschedule", ActionType: "reschedule"},
			},
		},
	}

	for _, seed := range seeds {
		notification, err := repo.Create(ctx, seed)
		if err != nil {
			log.Fatalf("Failed to seed notification %q: %v", seed.Title, err)
		}
		log.Printf("Seeded notification %s (%s)", notification.ID, notification.Type)
	}

	// Queue a few tasks as well so a running service consumes them through
	// the same path other clinical services use.
	queueClient, err := queue.NewRabbitMQClient(cfg, appLogger)
	if err != nil {
		log.Fatalf("Failed to connect to RabbitMQ: %v", err)
	}
	defer queueClient.Close()

	tasks := []struct {
		routingKey string
		task       map[string]interface{}
	}{
		{queue.RoutingKeyOrder, map[string]interface{}{
			"type":     "order",
			"user_id":  userID,
			"order_id": uuid.New().String(),
			"status":   "out for delivery",
		}},
		{queue.RoutingKeyVital, map[string]interface{}{
			"type":       "vital",
			"user_id":    userID,
			"vital_name": "Heart rate",
			"reading":    "112 bpm",
			"critical":   false,
		}},
	}

	for _, t := range tasks {
		if err := queueClient.PublishNotificationTask(t.routingKey, t.task); err != nil {
			log.Fatalf("Failed to publish %s task: %v", t.routingKey, err)
		}
		log.Printf("Queued %s notification task", t.routingKey)
	}

	if depth, err := queueClient.GetQueueLength(); err == nil {
		log.Printf("Notification task queue depth: %d", depth)
	}

	log.Printf("Seeded %d notifications and queued %d tasks for user %s", len(seeds), len(tasks), userID)
}
