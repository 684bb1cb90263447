package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"

	"storybook-service/internal/compositor"
	"storybook-service/internal/config"
	"storybook-service/internal/database"
	"storybook-service/internal/handlers"
	"storybook-service/internal/imagegen"
	"storybook-service/internal/middleware"
	"storybook-service/internal/queue"
	"storybook-service/internal/storage"
	"storybook-service/internal/validation"
	"storybook-service/internal/vision"
	"storybook-service/internal/worker"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Set Gin mode
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Database: Postgres when configured, in-memory otherwise
	var store database.Store
	if cfg.DatabaseURL != "" {
		migrator, err := database.NewMigrator(cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("Failed to initialize migrator: %v", err)
		}
		if err := migrator.Run(); err != nil {
			log.Fatalf("Migration failed: %v", err)
		}
		migrator.Close()
		log.Println("Migrations completed successfully")

		pgStore, err := database.NewPostgresStore(cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		store = pgStore
	} else {
		log.Println("Warning: DATABASE_URL not set. Using in-memory store; data will not survive restarts.")
		store = database.NewMemoryStore()
	}
	defer store.Close()

	// Storage: Supabase when configured, local disk otherwise
	var storageStore storage.Store
	var localStore *storage.LocalStore
	if cfg.UseSupabaseStorage() {
		supabaseStore, err := storage.NewSupabaseStore(cfg.SupabaseURL, cfg.SupabaseServiceKey, cfg.SupabaseStorageBucket)
		if err != nil {
			log.Fatalf("Failed to initialize storage client: %v", err)
		}
		storageStore = supabaseStore
	} else {
		log.Println("Warning: Supabase storage not configured. Storing files locally.")
		localStore, err = storage.NewLocalStore(cfg.UploadDir, cfg.BaseURL)
		if err != nil {
			log.Fatalf("Failed to initialize local storage: %v", err)
		}
		storageStore = localStore
	}

	// Remote AI clients
	visionClient := vision.NewClient(cfg.VisionAPIBaseURL, cfg.VisionAPIKey)
	validator := validation.NewValidator(visionClient)
	generator := imagegen.NewClient(cfg.ImageGenAPIBaseURL, cfg.ImageGenAPIKey, cfg.ImageGenModel)

	// Job queue: Redis when configured, in-process otherwise
	var jobQueue queue.Queue
	if cfg.RedisURL != "" {
		redisQueue, err := queue.NewRedisQueue(cfg.RedisURL)
		if err != nil {
			log.Fatalf("Failed to connect to redis: %v", err)
		}
		jobQueue = redisQueue
	} else {
		log.Println("Warning: REDIS_URL not set. Using in-process job queue.")
		jobQueue = queue.NewMemoryQueue(0)
	}
	defer jobQueue.Close()

	// Generation workers
	pool := worker.NewPool(store, storageStore, generator, compositor.NewEngine(), jobQueue, cfg.WorkerCount)
	go func() {
		if err := pool.Run(ctx); err != nil {
			log.Printf("Worker pool stopped: %v", err)
		}
	}()

	// Handlers
	storiesHandler := handlers.NewStoriesHandler(store, storageStore)
	uploadHandler := handlers.NewUploadHandler(storageStore, validator)
	ordersHandler := handlers.NewOrdersHandler(store, storageStore, jobQueue)

	// Setup router
	router := gin.Default()

	// Health check (no auth)
	router.GET("/health", handlers.HealthHandler)

	// Local uploads are served directly when Supabase storage is off
	if localStore != nil {
		router.Static("/uploads", localStore.Root())
	}

	api := router.Group("/api/v1")

	// Story catalog
	api.GET("/stories", storiesHandler.ListStories)
	api.GET("/stories/:story_id", storiesHandler.GetStory)

	// Story management (admin)
	admin := api.Group("")
	admin.Use(middleware.AdminAuth(cfg))
	admin.POST("/stories", storiesHandler.CreateStory)
	admin.PUT("/stories/:story_id", storiesHandler.UpdateStory)
	admin.POST("/stories/seed", storiesHandler.SeedStories)
	admin.GET("/orders", ordersHandler.ListOrders)

	// Orders
	api.POST("/orders/upload", uploadHandler.UploadPhoto)
	api.POST("/orders/create", ordersHandler.CreateOrder)
	api.GET("/orders/:order_id", ordersHandler.GetOrder)
	api.GET("/orders/:order_id/book", ordersHandler.DownloadBook)

	// Start server
	addr := ":" + cfg.Port
	log.Printf("Server starting on %s", addr)
	srv := &http.Server{Addr: addr, Handler: router}

	go func() {
		<-ctx.Done()
		log.Println("Shutting down")
		_ = srv.Shutdown(context.Background())
	}()

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("Failed to start server: %v", err)
	}
}
