package app

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"telecare/pkg/config"
	"telecare/pkg/jwt"
	"telecare/pkg/logger"
	"telecare/pkg/middleware"
	"telecare/pkg/queue"
	notificationHTTP "telecare/services/notification/internal/controller/http"
	"telecare/services/notification/internal/realtime"
	"telecare/services/notification/internal/repo/persistent"
	"telecare/services/notification/internal/usecase"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"gorm.io/gorm"
)

// queueStats is the slice of the queue client the health route needs.
type queueStats interface {
	GetQueueLength() (int, error)
}

func healthHandler(hub *notificationHTTP.Hub, stats queueStats) gin.HandlerFunc {
	return func(c *gin.Context) {
		status := gin.H{"status": "ok", "sessions": hub.ActiveSessions()}
		if depth, err := stats.GetQueueLength(); err == nil {
			status["queued_tasks"] = depth
		}
		c.JSON(200, status)
	}
}

func Run(cfg *config.Config, log *logger.Logger, db *gorm.DB, redisClient *redis.Client, queueClient *queue.Client) {
	jwtService := jwt.NewService(cfg.JWTSecret)

	// Realtime channel and repository share the same Redis client; the
	// repository publishes a change event after every committed mutation.
	channel := realtime.NewRedisChannel(redisClient, log)
	notificationRepo := persistent.NewNotificationRepository(db, redisClient, channel, log)

	hub := notificationHTTP.NewHub(notificationRepo, channel, log)
	taskProcessor := usecase.NewTaskProcessor(notificationRepo, log)
	notificationHandler := notificationHTTP.NewNotificationHandler(notificationRepo, hub, log, jwtService)

	// Setup router
	r := gin.Default()

	// CORS middleware
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"http://localhost:3000", "http://127.0.0.1:3000", "*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "Accept"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * 3600,
	}))

	// Health check
	r.GET("/health", healthHandler(hub, queueClient))

	// Swagger documentation
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	api := r.Group("/api/v1")
	// Protected routes - require authentication
	protected := api.Group("")
	protected.Use(middleware.AuthMiddleware(jwtService))
	{
		protected.GET("/notifications", notificationHandler.GetNotifications)
		protected.GET("/notifications/type/:type", notificationHandler.GetNotificationsByType)
		protected.GET("/notifications/unread-count", notificationHandler.GetUnreadCount)
		protected.POST("/notifications", middleware.RateLimitMiddleware(redisClient, 30, time.Minute), notificationHandler.CreateNotification)
		protected.PATCH("/notifications/:id", notificationHandler.UpdateNotification)
		protected.POST("/notifications/:id/read", notificationHandler.MarkRead)
		protected.POST("/notifications/read-all", notificationHandler.MarkAllRead)
		protected.DELETE("/notifications/:id", notificationHandler.DeleteNotification)
	}
	// WebSocket endpoint - handles authentication internally via query parameter
	api.GET("/notifications/ws", notificationHandler.HandleWebSocket)
	// Internal route for service-to-service calls - no user auth
	api.POST("/notifications/send", notificationHandler.SendNotification)

	// Create HTTP server
	srv := &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: r,
	}

	// Consume notification tasks from other clinical services
	go func() {
		log.Info("Starting notification task consumer...")
		if err := queueClient.ConsumeNotificationTasks(taskProcessor.HandleTask); err != nil {
			log.Error("Error starting notification task consumer: %v", err)
		}
	}()

	// Start server in a goroutine
	go func() {
		log.Info("Notification service starting on port %s", cfg.ServerPort)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("Failed to start server: %v", err)
			panic(err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down notification service...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// Close Redis connection
	if err := redisClient.Close(); err != nil {
		log.Error("Error closing Redis: %v", err)
	}

	// Close RabbitMQ connection
	if queueClient != nil {
		queueClient.Close()
	}

	// Shutdown server
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("Server forced to shutdown: %v", err)
		panic(err)
	}

	log.Info("Notification service exited")
}
