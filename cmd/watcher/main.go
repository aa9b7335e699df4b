package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"streamgo/internal/api"
	"streamgo/internal/config"
	"streamgo/internal/propagator"
	"streamgo/internal/queue"
	"streamgo/internal/repository/mongo"
	"streamgo/internal/search"
	"streamgo/internal/service"
	"streamgo/internal/storage"
)

func main() {
	log.Println("Starting Watch Service...")

	// --- Configuration ---
	cfg, err := config.LoadConfig(".")
	if err != nil {
		log.Fatalf("FATAL: Could not load config: %v", err)
	}
	log.Println("Configuration loaded.")

	// --- Database Connection ---
	dbClient, err := mongo.ConnectDB(cfg.Database.URI)
	if err != nil {
		log.Fatalf("FATAL: Could not connect to MongoDB: %v", err)
	}
	defer func() {
		log.Println("Disconnecting MongoDB...")
		if err := mongo.DisconnectDB(dbClient); err != nil {
			log.Printf("ERROR: Failed to disconnect MongoDB: %v", err)
		}
	}()
	appDB := dbClient.Database(cfg.Database.Name)
	log.Println("Database connection established.")

	// --- Initialize Storage ---
	log.Println("Initializing object storage...")
	objectStorage, err := storage.NewS3Storage(cfg.S3)
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize S3 storage: %v", err)
	}

	// --- Initialize Search Index ---
	log.Println("Initializing search index...")
	videoIndex, err := search.NewElasticsearchIndex(cfg.Elasticsearch)
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize Elasticsearch client: %v", err)
	}
	{
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		if err := videoIndex.EnsureIndex(ctx); err != nil {
			log.Fatalf("FATAL: Failed to ensure search index: %v", err)
		}
		cancel()
	}

	// --- Initialize Broker Client ---
	log.Println("Initializing broker client...")
	messageQueue, err := queue.NewKafkaQueue(cfg.Kafka)
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize Kafka client: %v", err)
	}
	defer func() {
		if err := messageQueue.Close(); err != nil {
			log.Printf("ERROR: Failed to close Kafka client: %v", err)
		}
	}()

	// --- Initialize Repositories & Services ---
	videoRepo := mongo.NewMongoVideoRepository(appDB)
	watchService := service.NewWatchService(objectStorage, videoRepo, videoIndex)

	// --- Change Propagator ---
	// Mirrors record-store mutations into the search index via the CDC topic.
	cdc := propagator.NewPropagator(videoIndex)
	consumeCtx, cancelConsume := context.WithCancel(context.Background())
	defer cancelConsume()
	go func() {
		for {
			err := messageQueue.Subscribe(consumeCtx, cfg.Kafka.CDCTopic, cfg.Kafka.CDCGroup, cdc.HandleMessage)
			if consumeCtx.Err() != nil {
				return
			}
			log.Printf("ERROR: CDC consumer loop ended, restarting in 5s: %v", err)
			time.Sleep(5 * time.Second)
		}
	}()

	// --- Initialize Gin Engine ---
	router := gin.Default()
	api.SetupWatchRoutes(router, watchService)

	// --- Start HTTP Server ---
	server := &http.Server{
		Addr:         cfg.Server.WatcherAddress,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	log.Printf("Watch Service starting on %s", cfg.Server.WatcherAddress)

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("FATAL: ListenAndServe Error: %v", err)
		}
	}()

	// --- Graceful Shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")
	cancelConsume()

	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()

	if err := server.Shutdown(ctxShutdown); err != nil {
		log.Fatalf("FATAL: Server forced to shutdown: %v", err)
	}

	log.Println("Server exiting.")
}
