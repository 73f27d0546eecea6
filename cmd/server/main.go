package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"garageops/internal/cache"
	"garageops/internal/config"
	"garageops/internal/logger"
	"garageops/internal/repository"
	"garageops/internal/service"
	"garageops/internal/transport/rest"
	"garageops/internal/transport/ws"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	log.Info("Starting time tracking service", zap.String("port", cfg.HTTPPort))

	// MongoDB connection
	mongoClient, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		log.Fatal("Failed to connect to MongoDB", zap.Error(err))
	}
	defer mongoClient.Disconnect(ctx)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := mongoClient.Ping(pingCtx, nil); err != nil {
		log.Fatal("Failed to ping MongoDB", zap.Error(err))
	}
	log.Info("Connected to MongoDB")

	db := mongoClient.Database(cfg.MongoDB)

	// The partial unique index backs the "one open session per technician
	// and work order" guarantee; refuse to serve without it.
	if err := repository.EnsureSessionIndexes(ctx, db); err != nil {
		log.Fatal("Failed to ensure session indexes", zap.Error(err))
	}

	// Redis connection
	rdb := redis.NewClient(&redis.Options{
		Addr: cfg.RedisAddr,
	})
	defer rdb.Close()

	if _, err := rdb.Ping(ctx).Result(); err != nil {
		log.Fatal("Failed to ping Redis", zap.Error(err))
	}
	log.Info("Connected to Redis")

	// Initialize WebSocket hub
	wsHub := ws.NewHub(log)

	// Initialize repositories and caches
	sessionRepo := repository.NewSessionRepo(db)
	workOrderRepo := repository.NewWorkOrderRepo(db)
	activeCache := cache.NewActiveSessionCache(rdb)

	// Initialize services
	authSvc := service.NewAuthService(cfg.TechUsername, cfg.TechPassword, cfg.OrgID, cfg.JWTSecret)
	trackingSvc := service.NewTrackingService(sessionRepo, workOrderRepo, activeCache, log)

	// Inject broadcaster (wsHub implements service.Broadcaster)
	trackingSvc.SetBroadcaster(wsHub)

	// Create router with container
	container := &rest.Container{
		AuthService:     authSvc,
		TrackingService: trackingSvc,
		WSHub:           wsHub,
		Logger:          log,
	}

	router := rest.NewRouter(container)

	srv := &http.Server{
		Addr:    ":" + cfg.HTTPPort,
		Handler: router,
	}

	go func() {
		log.Info("Server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("ListenAndServe failed", zap.Error(err))
		}
	}()

	// Wait for interrupt
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited")
}
