package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"visitor-kiosk-backend/config"
	"visitor-kiosk-backend/internal/api"
	"visitor-kiosk-backend/internal/db"
	"visitor-kiosk-backend/internal/media"
	"visitor-kiosk-backend/internal/notification"
	"visitor-kiosk-backend/internal/queue"
	"visitor-kiosk-backend/internal/stats"
	"visitor-kiosk-backend/internal/store"
	"visitor-kiosk-backend/internal/visit"
)

func main() {
	// Setup logger
	logger := log.New(os.Stdout, "kiosk-backend ", log.LstdFlags)

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.Printf("ignoring unreadable .env file: %v", err)
	}

	// Load configuration
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./config/config.yaml" // Default path for local development
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		logger.Fatalf("failed to load configuration from %s: %v", configPath, err)
	}
	logger.Printf("configuration loaded successfully from %s (facility %q, timezone %s)",
		configPath, cfg.Facility.Name, cfg.Facility.Timezone)

	if cfg.Server.ReleaseMode {
		gin.SetMode(gin.ReleaseMode)
	}

	if !cfg.Push.Enabled() {
		logger.Println("VAPID keys not configured; host notifications will be logged only")
	}
	webpushOptions := notification.WebPushOptions(cfg.Push.PublicKey, cfg.Push.PrivateKey, cfg.Push.Subject, cfg.Push.TTL)

	// Initialize database
	gormDB, err := db.Init(&cfg.Database)
	if err != nil {
		logger.Fatalf("failed to initialize database: %v", err)
	}
	logger.Println("database initialized successfully")

	// Create a context that can be cancelled
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if n, err := db.SeedHosts(ctx, gormDB, cfg.Seed.Hosts); err != nil {
		logger.Printf("failed to seed hosts: %v", err)
	} else if n > 0 {
		logger.Printf("seeded %d hosts", n)
	}

	appStore := store.NewGormStore(gormDB)
	logger.Println("data store initialized")

	photos, err := media.NewLocal(cfg.Media.Dir, cfg.Media.URLPrefix, cfg.Media.MaxWidth, cfg.Media.JPEGQuality)
	if err != nil {
		logger.Fatalf("failed to initialize media store: %v", err)
	}

	notifyQueue, closeQueue := newQueue(cfg.Notification, logger)
	defer closeQueue()

	pool := notification.NewWorkerPool(cfg.Notification.Workers, notifyQueue, appStore, webpushOptions, photos.URL)
	if err := pool.Start(ctx); err != nil {
		logger.Fatalf("failed to start notification workers: %v", err)
	}

	visits := visit.NewService(appStore, photos, pool)
	aggregator := stats.NewAggregator(appStore, cfg.Facility.Location)

	handler := api.NewHandler(visits, aggregator, appStore, webpushOptions, api.Limits{
		HistoryLimit:   cfg.Facility.HistoryLimit,
		DashboardLimit: cfg.Facility.DashboardLimit,
		StatisticsDays: cfg.Facility.StatisticsWindow,
		MaxUploadBytes: cfg.Server.MaxUploadBytes,
	})
	router := api.NewRouter(handler, api.RouterConfig{
		RateLimitPerSec: cfg.Server.RateLimitPerSec,
		RateLimitBurst:  cfg.Server.RateLimitBurst,
		CacheTTL:        cfg.Server.CacheTTL(),
		AllowedOrigins:  cfg.Server.AllowedOrigins,
		MediaDir:        photos.Dir(),
		MediaURLPrefix:  photos.URLPrefix(),
	})
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Start the server in a goroutine
	go func() {
		logger.Printf("HTTP server starting on port %d", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("HTTP server ListenAndServe: %v", err)
		}
	}()

	// Setup signal handling for graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	// Block until a signal is received.
	<-stop
	logger.Println("Shutdown signal received, stopping services...")

	// Create a deadline to wait for.
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Printf("HTTP server Shutdown: %v", err)
	}

	// Stop the workers only after in-flight requests had a chance to queue work.
	cancel()
	pool.Wait()

	if sqlDB, err := gormDB.DB(); err == nil {
		sqlDB.Close()
	}
	logger.Println("Server gracefully stopped")
}

// newQueue picks the notification queue backend.
func newQueue(cfg config.NotificationConfig, logger *log.Logger) (queue.Queue, func()) {
	if cfg.QueueBackend == "redis" {
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		logger.Printf("host notifications queued in redis at %s (key %s)", cfg.RedisAddr, cfg.QueueKey)
		return queue.NewRedisQueue(client, cfg.QueueKey), func() { client.Close() }
	}
	logger.Printf("host notifications queued in memory (capacity %d)", cfg.QueueSize)
	return queue.NewInMemory(cfg.QueueSize), func() {}
}
