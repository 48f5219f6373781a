package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/robfig/cron"

	config "github.com/socialcast-io/socialcast/configs"
	"github.com/socialcast-io/socialcast/internal/api/handlers"
	"github.com/socialcast-io/socialcast/internal/api/middleware"
	job "github.com/socialcast-io/socialcast/internal/jobs"
	"github.com/socialcast-io/socialcast/internal/media"
	"github.com/socialcast-io/socialcast/internal/nimble"
	"github.com/socialcast-io/socialcast/internal/platform"
	"github.com/socialcast-io/socialcast/internal/publish"
	"github.com/socialcast-io/socialcast/internal/queue"
	"github.com/socialcast-io/socialcast/internal/repository"
	"github.com/socialcast-io/socialcast/internal/vault"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: Failed to load environment variables", err)
	}

	cfg := config.LoadConfig()

	db, err := sql.Open("postgres", cfg.PostgresURI)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer closeDB(db)

	if err := db.Ping(); err != nil {
		log.Fatalf("Database is unreachable: %v", err)
	}

	redisConn := asynq.RedisClientOpt{Addr: cfg.RedisURI}
	client := asynq.NewClient(redisConn)
	defer client.Close()

	app := fiber.New(fiber.Config{
		ReadTimeout:  10 * time.Minute,
		WriteTimeout: 10 * time.Minute,
		BodyLimit:    100 * 1024 * 1024, // 100 MB
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			log.Printf("Error: %v", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
		},
	})

	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.FrontendURL,
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: true,
		MaxAge:           3600,
	}))

	socialAccountRepo := repository.NewSocialAccountRepository(db)
	postRepo := repository.NewPostRepository(db)
	historyRepo := repository.NewPublishHistoryRepository(db)

	tokenVault := vault.New(cfg.SecretKey)

	// The media host is optional; without it Instagram publishing and
	// scheduled posts with media are rejected with clear errors.
	var mediaHost media.Host
	if cfg.R2.AccountID != "" {
		r2Host, err := media.NewR2Host(context.Background(), cfg.R2)
		if err != nil {
			log.Fatalf("Failed to configure media host: %v", err)
		}
		mediaHost = r2Host
	}

	registry := platform.NewDefaultRegistry(cfg, mediaHost)
	scheduler := queue.NewScheduler(client)
	orchestrator := publish.New(socialAccountRepo, postRepo, historyRepo, tokenVault, registry, mediaHost, scheduler)

	authMiddleware := middleware.NewAuthMiddleware(*cfg)

	api := app.Group("/api")
	api.Use(authMiddleware.AuthMiddleware())

	publishHandler := handlers.NewPublishHandler(orchestrator)
	api.Post("/publish", publishHandler.Publish)

	post := handlers.NewPostHandler(postRepo, historyRepo)
	api.Get("/posts", post.ListPosts)
	api.Post("/posts/remove", post.RemovePost)

	account := handlers.NewAccountHandler(socialAccountRepo)
	api.Get("/accounts", account.ListAccounts)
	api.Post("/accounts/remove", account.RemoveAccount)

	if cfg.Nimble.BaseURL != "" {
		republish := handlers.NewRepublishHandler(nimble.NewClient(cfg.Nimble))
		api.Get("/republish/rules", republish.ListRules)
		api.Post("/republish/rules", republish.CreateRule)
		api.Post("/republish/rules/remove", republish.RemoveRule)
	}

	// cron jobs
	refreshTokenJob := job.NewTokenRefreshJob(socialAccountRepo, tokenVault, registry)

	c := cron.New()
	c.AddFunc("@every 00h10m00s", refreshTokenJob.RefreshTokens)
	c.Start()

	go func() {
		server := asynq.NewServer(redisConn, asynq.Config{
			Concurrency: 10,
		})

		worker := queue.NewWorker(orchestrator)
		mux := asynq.NewServeMux()
		mux.HandleFunc(queue.TaskTypePublishDispatch, worker.HandlePublishDispatchTask)

		log.Println("Starting the Asynq server...")
		if err := server.Run(mux); err != nil {
			log.Fatalf("Could not start Asynq server: %v", err)
		}
	}()

	go func() {
		if err := app.Listen(":3000"); err != nil {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()
	log.Println("Server is running on http://localhost:3000")

	gracefulShutdown(app, db)
}

func closeDB(db *sql.DB) {
	fmt.Fprint(os.Stdout, "Closing database connection... ")
	if err := db.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to close database: %v", err)
		return
	}
	fmt.Fprintln(os.Stdout, "Done")
}

func gracefulShutdown(app *fiber.App, db *sql.DB) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	<-quit
	log.Println("Shutting down server...")

	if err := app.Shutdown(); err != nil {
		log.Fatalf("Failed to shut down server: %v", err)
	}

	closeDB(db)
	log.Println("Server shutdown complete.")
}
