package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dreamlog/backend/internal/ai"
	"github.com/dreamlog/backend/internal/config"
	"github.com/dreamlog/backend/internal/database"
	"github.com/dreamlog/backend/internal/handlers"
	"github.com/dreamlog/backend/internal/middleware"
	"github.com/dreamlog/backend/internal/models"
	"github.com/dreamlog/backend/internal/services"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"golang.org/x/crypto/bcrypt"
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

	// Seed demo user if not exists
	seedDemoUser()

	// Wire services
	aiClient := ai.NewClient(cfg)
	quotaService := services.NewQuotaService(database.DB, cfg.PolishDailyQuota)
	achievementService := services.NewAchievementService(database.DB)
	versionService := services.NewVersionService(database.DB)
	dreamService := services.NewDreamService(database.DB, achievementService)
	polishService := services.NewPolishService(database.DB, aiClient, quotaService, achievementService)

	// Create Fiber app
	app := fiber.New(fiber.Config{
		AppName:      "Dreamlog API v1.0",
		ServerHeader: "Dreamlog",
		BodyLimit:    2 * 1024 * 1024, // 2MB
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
			"service": "dreamlog-api",
		})
	})

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(cfg)
	dreamHandler := handlers.NewDreamHandler(dreamService)
	versionHandler := handlers.NewVersionHandler(versionService)
	polishHandler := handlers.NewPolishHandler(polishService)
	achievementHandler := handlers.NewAchievementHandler(achievementService)

	// API routes
	api := app.Group("/api")
	api.Use(middleware.RateLimiter(100, 1*time.Minute))

	// Public routes
	api.Post("/auth/login", authHandler.Login)

	// Protected routes
	protected := api.Group("", middleware.AuthRequired(cfg))

	// Auth routes
	protected.Post("/auth/logout", authHandler.Logout)
	protected.Get("/auth/me", authHandler.Me)

	// Dream routes
	dreams := protected.Group("/dreams")
	dreams.Post("/", dreamHandler.Create)
	dreams.Get("/", dreamHandler.List)
	dreams.Post("/batch-delete", dreamHandler.BatchDelete)
	dreams.Get("/:id", dreamHandler.Get)
	dreams.Put("/:id", dreamHandler.Update)
	dreams.Delete("/:id", dreamHandler.Delete)
	dreams.Post("/:id/privacy", dreamHandler.TogglePrivacy)

	// Version routes
	dreams.Get("/:id/versions", versionHandler.List)
	dreams.Post("/:id/versions/:versionId/switch", versionHandler.Switch)
	protected.Get("/versions/:id", versionHandler.Detail)

	// Polish routes
	polish := protected.Group("/polish")
	polish.Post("/text", polishHandler.PolishText)
	polish.Post("/dream/:dreamId", polishHandler.PolishDream)
	polish.Get("/quota", polishHandler.GetQuota)

	// Achievement routes
	protected.Get("/achievements", achievementHandler.List)

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		log.Println("Shutting down server...")
		app.Shutdown()
	}()

	// Start server
	addr := fmt.Sprintf(":%d", cfg.APIPort)
	log.Printf("Starting Dreamlog API server on %s", addr)
	if err := app.Listen(addr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

func seedDemoUser() {
	var count int64
	database.DB.Model(&models.User{}).Count(&count)

	if count == 0 {
		log.Println("Creating demo user...")

		hashedPassword, _ := bcrypt.GenerateFromPassword([]byte("dream123"), bcrypt.DefaultCost)

		user := models.User{
			Username: "demo",
			Password: string(hashedPassword),
			Nickname: "梦境旅人",
			IsActive: true,
		}

		if err := database.DB.Create(&user).Error; err != nil {
			log.Printf("Failed to create demo user: %v", err)
		} else {
			log.Println("Demo user created successfully (username: demo, password: dream123)")
		}
	}
}
