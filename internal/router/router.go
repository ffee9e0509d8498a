package router

import (
	"log"

	"firebase.google.com/go/v4/auth"
	"github.com/labstack/echo/v4"
	eMiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/semtim/backend/internal/fanout"
	"github.com/semtim/backend/internal/handlers"
	"github.com/semtim/backend/internal/middleware"
	"github.com/semtim/backend/internal/models"
	"github.com/semtim/backend/internal/repositories"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// SetupMiddleware configures global Echo middleware
func SetupMiddleware(e *echo.Echo) {
	e.Use(eMiddleware.Recover())
	e.Use(eMiddleware.CORS())
	log.Println("Global middleware configured.")
}

// Deps carries everything the routes need beyond the databases.
type Deps struct {
	Postgres     *gorm.DB
	Mongo        *mongo.Client
	FirebaseAuth *auth.Client // nil when Firebase login is disabled
	Fanout       *fanout.Service
	Logger       *zap.Logger
}

// SetupRoutes configures all application routes and injects dependencies.
func SetupRoutes(e *echo.Echo, deps Deps) {
	// AutoMigrate PostgreSQL models
	err := deps.Postgres.AutoMigrate(
		&models.User{},
		&models.InterestSubscription{},
		&models.PushToken{},
		&models.Follow{},
		&models.Report{},
		&models.Notification{},
	)
	if err != nil {
		log.Fatalf("Failed to auto migrate models: %v", err)
	}
	log.Println("PostgreSQL auto-migrations completed for all models.")

	// Health check - always accessible
	e.GET("/health", handlers.HealthCheck)

	// --- Initialize Repositories ---
	mongoDB := deps.Mongo.Database("semtim")
	userRepo := repositories.NewPostgresUserRepository(deps.Postgres)
	followRepo := repositories.NewPostgresFollowRepository(deps.Postgres)
	reportRepo := repositories.NewPostgresReportRepository(deps.Postgres)
	notificationRepo := repositories.NewPostgresNotificationRepository(deps.Postgres)
	pushTokenRepo := repositories.NewPostgresPushTokenRepository(deps.Postgres)
	conversationRepo := repositories.NewMongoConversationRepository(mongoDB)

	// --- Unprotected routes for authentication ---
	authGroup := e.Group("/api/v1/auth")
	authHandler := handlers.NewAuthHandler(userRepo, deps.FirebaseAuth)
	authHandler.RegisterAuthRoutes(authGroup)
	log.Println("Auth routes configured.")

	// --- Protected routes (require JWT authentication) ---
	api := e.Group("/api/v1")
	api.Use(middleware.JWTAuthMiddleware())
	log.Println("JWT authentication middleware applied to /api/v1 group.")

	// User profile routes
	userHandler := handlers.NewUserHandler(userRepo)
	userHandler.RegisterProfileRoutes(api)
	log.Println("User profile routes configured.")

	// Report routes
	reportHandler := handlers.NewReportHandler(reportRepo, deps.Fanout, deps.Logger)
	reportHandler.RegisterReportRoutes(api)
	log.Println("Report routes configured.")

	// Follow routes
	followHandler := handlers.NewFollowHandler(followRepo, userRepo, deps.Fanout, deps.Logger)
	followHandler.RegisterFollowRoutes(api)
	log.Println("Follow routes configured.")

	// Conversation routes
	conversationHandler := handlers.NewConversationHandler(conversationRepo, userRepo, deps.Fanout, deps.Logger)
	conversationHandler.RegisterConversationRoutes(api)
	log.Println("Conversation routes configured.")

	// Notification routes
	notificationHandler := handlers.NewNotificationHandler(notificationRepo)
	notificationHandler.RegisterNotificationRoutes(api)
	log.Println("Notification routes configured.")

	// Push token routes
	pushTokenHandler := handlers.NewPushTokenHandler(pushTokenRepo)
	pushTokenHandler.RegisterPushTokenRoutes(api)
	log.Println("Push token routes configured.")

	// Admin routes (role claim gated, no privileged user IDs)
	adminGroup := api.Group("/admin", middleware.RequireAdmin())
	adminHandler := handlers.NewAdminHandler(deps.Fanout, deps.Logger)
	adminHandler.RegisterAdminRoutes(adminGroup)
	log.Println("Admin routes configured.")

	log.Println("All routes configured.")
}
