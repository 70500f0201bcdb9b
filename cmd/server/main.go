package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"peerhelp/internal/adapters/http/middleware"
	"peerhelp/internal/adapters/http/routes"
	"peerhelp/internal/adapters/persistence/models"
	"peerhelp/internal/config"
	"peerhelp/internal/core/services"

	"github.com/gofiber/fiber/v2"

	_ "peerhelp/docs" // Swagger docs
)

// @title PeerHelp API
// @version 1.0
// @description Peer-to-peer help platform API v1.0
// @termsOfService http://swagger.io/terms/

// @contact.name API Support
// @contact.email support@peerhelp.io

// @license.name Apache 2.0
// @license.url http://www.apache.org/licenses/LICENSE-2.0.html

// @host api.peerhelp.io
// @BasePath /api/v1
// @schemes https

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("❌ Failed to load configuration: %v", err)
	}

	// Connect to database
	db, err := config.ConnectDatabase(cfg)
	if err != nil {
		log.Fatalf("❌ Failed to connect to database: %v", err)
	}
	defer config.CloseDatabase()

	// Auto migrate (creates tables if not exist)
	if err := models.AutoMigrate(db); err != nil {
		log.Fatalf("❌ Failed to auto migrate: %v", err)
	}
	log.Println("✅ Database migration completed")

	// Seed default admin
	if err := config.NewSeeder(db).Run(); err != nil {
		log.Printf("⚠️ Warning: Failed to seed database: %v", err)
	}

	// Create Fiber app
	app := fiber.New(fiber.Config{
		AppName:      "PeerHelp API v1.0",
		ErrorHandler: middleware.CustomErrorHandler,
	})

	// Setup middlewares
	middleware.Setup(app, cfg)

	// Setup routes (pass db and cfg for dependency injection)
	deadlineService := routes.Setup(app, db, cfg)

	// Start the deadline sweeper and the daily token cleanup
	if err := deadlineService.Start(); err != nil {
		log.Fatalf("❌ Failed to start deadline service: %v", err)
	}

	// Graceful shutdown
	go gracefulShutdown(app, deadlineService)

	// Start server
	log.Printf("🚀 Server starting on port %s [MODE: %s]", cfg.Port, cfg.AppMode)
	if err := app.Listen(":" + cfg.Port); err != nil {
		log.Fatalf("❌ Failed to start server: %v", err)
	}
}

// gracefulShutdown handles graceful shutdown
func gracefulShutdown(app *fiber.App, deadlineService *services.DeadlineService) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("🛑 Shutting down server...")
	deadlineService.Stop()
	if err := app.Shutdown(); err != nil {
		log.Printf("❌ Error during shutdown: %v", err)
	}
	log.Println("✅ Server stopped gracefully")
}
