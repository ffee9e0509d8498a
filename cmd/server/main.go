package main

import (
	"context"
	"log"

	"firebase.google.com/go/v4/auth"
	"github.com/labstack/echo/v4"
	"github.com/semtim/backend/internal/fanout"
	"github.com/semtim/backend/internal/queue"
	"github.com/semtim/backend/internal/repositories"
	"github.com/semtim/backend/internal/router"
	"github.com/semtim/backend/pkg/config"
	"github.com/semtim/backend/pkg/firebase"
	"github.com/semtim/backend/pkg/logger"
	"github.com/semtim/backend/pkg/push"
	"github.com/semtim/backend/validators"
)

func main() {
	// Load configuration
	cfg := config.Load()

	zapLogger, err := logger.New(cfg.Env)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer zapLogger.Sync()

	// Initialize database connections
	db, err := config.InitDB()
	if err != nil {
		log.Fatalf("Failed to initialize databases: %v", err)
	}
	defer db.CloseDB() // Ensure database connections are closed when main exits

	// Initialize Firebase (optional; disabled without credentials)
	ctx := context.Background()
	firebaseApp, err := firebase.InitFirebase(ctx, cfg.FirebaseCredentialsPath)
	if err != nil {
		log.Fatalf("Failed to initialize Firebase: %v", err)
	}

	// Initialize the fan-out job queues
	jobQueue, err := queue.New(queue.Options{
		Host:     cfg.RedisHost,
		Port:     cfg.RedisPort,
		Password: cfg.RedisPassword,
	})
	if err != nil {
		log.Fatalf("Failed to initialize job queues: %v", err)
	}
	defer jobQueue.Close()

	// Assemble the notification fan-out pipeline
	userRepo := repositories.NewPostgresUserRepository(db.Postgres)
	notificationRepo := repositories.NewPostgresNotificationRepository(db.Postgres)
	pushTokenRepo := repositories.NewPostgresPushTokenRepository(db.Postgres)
	conversationRepo := repositories.NewMongoConversationRepository(db.Mongo.Database("semtim"))

	pushClient := push.NewClient(cfg.PushGatewayURL, cfg.PushTimeout)
	resolver := fanout.NewResolver(userRepo, conversationRepo)
	writer := fanout.NewWriter(notificationRepo)
	dispatcher := fanout.NewDispatcher(pushTokenRepo, notificationRepo, pushClient, jobQueue, zapLogger, fanout.DispatcherOptions{
		Concurrency: cfg.PushConcurrency,
		Timeout:     cfg.PushTimeout,
		MaxAttempts: cfg.PushMaxAttempts,
	})
	fanoutService := fanout.NewService(resolver, writer, dispatcher, jobQueue, zapLogger)

	// Start the background consumers for queued triggers and push retries
	workerCtx, stopWorker := context.WithCancel(ctx)
	defer stopWorker()
	worker := fanout.NewWorker(fanoutService, dispatcher, jobQueue, jobQueue, zapLogger, 0)
	worker.Start(workerCtx)

	// Create Echo instance
	e := echo.New()

	// Setup global middleware
	router.SetupMiddleware(e)

	// Setup routes and dependencies
	var firebaseAuth *auth.Client
	if firebaseApp != nil {
		firebaseAuth = firebaseApp.AuthClient
	}
	router.SetupRoutes(e, router.Deps{
		Postgres:     db.Postgres,
		Mongo:        db.Mongo,
		FirebaseAuth: firebaseAuth,
		Fanout:       fanoutService,
		Logger:       zapLogger,
	})

	// Validator
	e.Validator = validators.NewValidator()

	// Start server
	e.Logger.Fatal(e.Start(":" + cfg.Port))
}
