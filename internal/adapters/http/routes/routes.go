package routes

import (
	"peerhelp/internal/adapters/http/handlers"
	"peerhelp/internal/adapters/http/middleware"
	"peerhelp/internal/adapters/persistence/repositories"
	"peerhelp/internal/config"
	"peerhelp/internal/core/services"

	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/swagger"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"
)

// Setup configures all routes for the application. It returns the deadline
// service so main can start and stop the background sweeper with the app
// lifecycle.
func Setup(app *fiber.App, db *gorm.DB, cfg *config.Config) *services.DeadlineService {
	// Initialize repositories
	userRepo := repositories.NewUserRepository(db)
	refreshTokenRepo := repositories.NewRefreshTokenRepository(db)
	helpRepo := repositories.NewHelpRepository(db)
	unblockRepo := repositories.NewUnblockPaymentRepository(db)

	// Initialize services
	authService := services.NewAuthService(userRepo, refreshTokenRepo, cfg)
	userService := services.NewUserService(userRepo)
	notifyService := services.NewNotifyService()
	eligibilityService := services.NewEligibilityService()
	selectorService := services.NewSelectorService(userRepo, helpRepo, eligibilityService, cfg)
	helpService := services.NewHelpService(userRepo, helpRepo, eligibilityService, selectorService, notifyService, cfg)
	unblockService := services.NewUnblockService(userRepo, unblockRepo, helpRepo, notifyService)
	deadlineService := services.NewDeadlineService(helpRepo, refreshTokenRepo, notifyService, cfg)
	statsService := services.NewStatsService(userRepo, helpRepo)

	// Initialize handlers
	healthHandler := handlers.NewHealthHandler()
	authHandler := handlers.NewAuthHandler(authService, cfg)
	userHandler := handlers.NewUserHandler(userService)
	helpHandler := handlers.NewHelpHandler(helpService)
	helpAdminHandler := handlers.NewHelpAdminHandler(helpService, deadlineService, statsService)
	unblockHandler := handlers.NewUnblockHandler(unblockService)
	eventsHandler := handlers.NewEventsHandler(notifyService)

	// Health check & root routes
	app.Get("/", healthHandler.Root)
	app.Get("/health", healthHandler.HealthCheck)

	// Prometheus metrics
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	// Swagger documentation
	app.Get("/swagger/*", swagger.HandlerDefault)

	// API v1 group
	apiV1 := app.Group("/api/v1")
	setupAPIV1Routes(apiV1, healthHandler, authHandler, userHandler, helpHandler,
		helpAdminHandler, unblockHandler, eventsHandler, cfg)

	return deadlineService
}

// setupAPIV1Routes configures API v1 routes
func setupAPIV1Routes(
	router fiber.Router,
	healthHandler *handlers.HealthHandler,
	authHandler *handlers.AuthHandler,
	userHandler *handlers.UserHandler,
	helpHandler *handlers.HelpHandler,
	helpAdminHandler *handlers.HelpAdminHandler,
	unblockHandler *handlers.UnblockHandler,
	eventsHandler *handlers.EventsHandler,
	cfg *config.Config,
) {
	// API Info
	router.Get("/", healthHandler.APIInfo)

	// Level policy table (public, cacheable)
	router.Get("/levels", middleware.LevelTableCache(), helpAdminHandler.Levels)

	// Auth routes (public)
	authRoutes := router.Group("/auth")
	setupAuthRoutes(authRoutes, authHandler, cfg)

	// User management routes (Admin only)
	userRoutes := router.Group("/users")
	userRoutes.Use(middleware.AuthMiddleware(cfg))
	userRoutes.Use(middleware.AdminOnly())
	setupUserRoutes(userRoutes, userHandler)

	// Profile routes (Authenticated users)
	profileRoutes := router.Group("/profile")
	profileRoutes.Use(middleware.AuthMiddleware(cfg))
	setupProfileRoutes(profileRoutes, userHandler)

	// Help transaction routes (Authenticated users)
	helpRoutes := router.Group("/help")
	helpRoutes.Use(middleware.AuthMiddleware(cfg))
	setupHelpRoutes(helpRoutes, helpHandler)

	// Unblock payment routes (Authenticated users)
	unblockRoutes := router.Group("/unblock")
	unblockRoutes.Use(middleware.AuthMiddleware(cfg))
	unblockRoutes.Post("/", middleware.StrictRateLimiter(), unblockHandler.Submit)
	unblockRoutes.Get("/", unblockHandler.ListMine)

	// Event stream (Authenticated users)
	router.Get("/events", middleware.AuthMiddleware(cfg), middleware.NoCacheHeaders(), eventsHandler.Stream)

	// Admin routes
	adminRoutes := router.Group("/admin")
	adminRoutes.Use(middleware.AuthMiddleware(cfg))
	adminRoutes.Use(middleware.AdminOnly())
	setupAdminRoutes(adminRoutes, helpAdminHandler, unblockHandler)
}

// setupAuthRoutes configures authentication routes
func setupAuthRoutes(router fiber.Router, handler *handlers.AuthHandler, cfg *config.Config) {
	// Public routes (rate limited against brute force)
	router.Post("/register", middleware.AuthRateLimiter(), handler.Register)
	router.Post("/login", middleware.AuthRateLimiter(), handler.Login)
	router.Post("/refresh", handler.RefreshToken)
	router.Post("/logout", handler.Logout)

	// Protected routes
	router.Get("/me", middleware.AuthMiddleware(cfg), handler.Me)
	router.Post("/logout-all", middleware.AuthMiddleware(cfg), handler.LogoutAll)
}

// setupUserRoutes configures user management routes (Admin only)
func setupUserRoutes(router fiber.Router, handler *handlers.UserHandler) {
	router.Get("/", handler.ListUsers)
	router.Get("/:id", handler.GetUser)
	router.Put("/:id", handler.UpdateUser)
	router.Delete("/:id", handler.DeleteUser)
	router.Put("/:id/role", handler.SetUserRole)
	router.Post("/:id/block", handler.BlockUser)
	router.Post("/:id/unblock", handler.UnblockUser)
}

// setupProfileRoutes configures profile routes (Authenticated)
func setupProfileRoutes(router fiber.Router, handler *handlers.UserHandler) {
	router.Get("/", handler.GetProfile)
	router.Put("/", handler.UpdateProfile)
	router.Put("/password", handler.ChangePassword)
	router.Get("/level", handler.GetLevelInfo)
}

// setupHelpRoutes configures the help transaction lifecycle routes
func setupHelpRoutes(router fiber.Router, handler *handlers.HelpHandler) {
	// Open a new transaction (strict limit - one click should be enough)
	router.Post("/send", middleware.StrictRateLimiter(), handler.Assign)

	// History
	router.Get("/sent", handler.ListSent)
	router.Get("/received", handler.ListReceived)

	// Per-transaction lifecycle
	router.Get("/:tx_id", handler.Get)
	router.Post("/:tx_id/request-payment", handler.RequestPayment)
	router.Post("/:tx_id/proof", middleware.StrictRateLimiter(), handler.SubmitProof)
	router.Post("/:tx_id/confirm", handler.Confirm)
	router.Post("/:tx_id/dispute", handler.Dispute)
}

// setupAdminRoutes configures admin routes
func setupAdminRoutes(
	router fiber.Router,
	helpAdminHandler *handlers.HelpAdminHandler,
	unblockHandler *handlers.UnblockHandler,
) {
	// Platform overview
	router.Get("/stats", helpAdminHandler.Stats)

	// Transaction management
	router.Post("/help/sweep", helpAdminHandler.Sweep)
	router.Get("/help/:tx_id", helpAdminHandler.GetPair)
	router.Post("/help/:tx_id/cancel", helpAdminHandler.Cancel)
	router.Post("/help/:tx_id/force-confirm", helpAdminHandler.ForceConfirm)

	// Unblock payment review
	router.Get("/unblock/pending", unblockHandler.ListPending)
	router.Post("/unblock/:id/confirm", unblockHandler.Confirm)
	router.Post("/unblock/:id/reject", unblockHandler.Reject)
}
