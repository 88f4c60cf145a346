package routes

import (
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/muzhihao1/yeslocker-server/internal/config"
	"github.com/muzhihao1/yeslocker-server/internal/handlers"
	"github.com/muzhihao1/yeslocker-server/internal/middleware"
	"github.com/muzhihao1/yeslocker-server/internal/services"
)

// Deps carries the shared services handed to route handlers.
type Deps struct {
	DB           *gorm.DB
	Cfg          *config.Config
	Auth         *services.AuthService
	Applications *services.ApplicationService
}

// Register wires up all HTTP routes.
func Register(app *fiber.App, deps Deps) {
	authHandler := handlers.NewAuthHandler(deps.Auth)
	applicationHandler := handlers.NewApplicationHandler(deps.Applications)
	storeHandler := handlers.NewStoreHandler(deps.DB)
	profileHandler := handlers.NewProfileHandler(deps.DB)
	healthHandler := handlers.NewHealthHandler(deps.DB)

	app.Get("/health", healthHandler.Check)

	api := app.Group("/api")

	// Auth routes
	auth := api.Group("/auth")
	auth.Post("/otp/request", authHandler.RequestOtp)
	auth.Post("/otp/verify", authHandler.VerifyOtp)
	api.Post("/admin/login", authHandler.AdminLogin)

	// Public listings
	api.Get("/stores", storeHandler.List)

	// Authenticated customer routes
	protected := api.Group("", middleware.AuthMiddleware(deps.Cfg))
	protected.Post("/applications", applicationHandler.Submit)
	protected.Post("/lockers/operations", applicationHandler.RecordOperation)
	protected.Get("/users/me", profileHandler.GetProfile)
	protected.Get("/users/me/notifications", profileHandler.ListNotifications)

	// Admin panel routes
	admin := api.Group("/admin", middleware.AuthMiddleware(deps.Cfg), middleware.RequireAdmin())
	admin.Get("/applications", applicationHandler.List)
	admin.Post("/applications/decide", applicationHandler.Decide)
}
