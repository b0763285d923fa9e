package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/patchwatch/backend/internal/config"
	"github.com/patchwatch/backend/internal/database"
	"github.com/patchwatch/backend/internal/handlers"
	"github.com/patchwatch/backend/internal/middleware"
	"github.com/patchwatch/backend/internal/models"
	"github.com/patchwatch/backend/internal/services"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Connect to database
	if err := database.Connect(cfg); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close()

	// Run migrations
	if err := models.AutoMigrate(database.DB); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// Persist the service-token secret so tokens survive restarts
	cfg.JWTSecret = database.EnsureJWTSecret(cfg)

	// Optional embedded sweeper for single-box deployments; normally
	// cmd/worker drives the queue
	var sweeper *services.SweepService
	if os.Getenv("EMBEDDED_SWEEPER") == "true" {
		sweeper = services.NewSweepService(cfg.Policy, time.Minute)
		sweeper.Start()
	}

	// Create Fiber app
	app := fiber.New(fiber.Config{
		AppName:      "PatchWatch Notification API v1.0",
		ServerHeader: "PatchWatch",
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"success": false,
				"message": err.Error(),
			})
		},
	})

	// Global middleware
	app.Use(recover.New())
	app.Use(compress.New())
	app.Use(middleware.Logger())
	app.Use(middleware.CORS())

	// Health check
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "healthy",
			"service": "patchwatch-api",
		})
	})

	// Initialize handlers
	queueHandler := handlers.NewQueueHandler(cfg)
	notificationsHandler := handlers.NewNotificationsHandler()
	preferencesHandler := handlers.NewPreferencesHandler()
	alertRulesHandler := handlers.NewAlertRulesHandler()

	// API routes (service-token auth, rate limited)
	api := app.Group("/api", middleware.RateLimiter(100, 1*time.Minute), middleware.AuthRequired(cfg))

	// Queue routes (producers and the scheduler)
	queue := api.Group("/queue")
	queue.Post("/tasks", queueHandler.Enqueue)
	queue.Post("/process", queueHandler.Process)
	queue.Post("/reclaim", queueHandler.Reclaim)
	queue.Get("/stats", queueHandler.Stats)
	queue.Get("/tasks/:id", queueHandler.GetTask)

	// Per-user routes (app backend)
	users := api.Group("/users/:id")
	users.Get("/notifications", notificationsHandler.List)
	users.Get("/notifications/unread-count", notificationsHandler.UnreadCount)
	users.Get("/preferences", preferencesHandler.Get)
	users.Put("/preferences", preferencesHandler.Update)
	users.Get("/alert-rules", alertRulesHandler.List)
	users.Post("/alert-rules", alertRulesHandler.Create)
	users.Delete("/alert-rules/:ruleId", alertRulesHandler.Delete)

	// Notification read-marking (product surface, not the engine)
	api.Post("/notifications/:id/read", notificationsHandler.MarkRead)

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		log.Println("Shutting down server...")
		if sweeper != nil {
			sweeper.Stop()
		}
		app.Shutdown()
	}()

	// Start server
	addr := fmt.Sprintf(":%d", cfg.APIPort)
	log.Printf("Starting PatchWatch API server on %s", addr)
	if err := app.Listen(addr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
