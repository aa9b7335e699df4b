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
	"streamgo/internal/queue"
	"streamgo/internal/repository/mongo"
	"streamgo/internal/service"
	"streamgo/internal/storage"
)

func main() {
	log.Println("Starting Upload Coordinator...")

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

	// --- Ensure Indexes ---
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 1*time.Minute)
		defer cancel()
		mongo.EnsureVideoIndexes(ctx, appDB.Collection("videos"))
	}()

	// --- Initialize Storage ---
	log.Println("Initializing object storage...")
	objectStorage, err := storage.NewS3Storage(cfg.S3)
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize S3 storage: %v", err)
	}

	// --- Initialize Broker Client ---
	// One owned client per process, connected at start, closed at stop.
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
	uploadService := service.NewUploadService(objectStorage, messageQueue, videoRepo, cfg.Kafka.TranscodeTopic)

	// --- Initialize Gin Engine ---
	router := gin.Default()
	api.SetupUploadRoutes(router, uploadService)

	// --- Start HTTP Server ---
	server := &http.Server{
		Addr:         cfg.Server.UploaderAddress,
		Handler:      router,
		ReadTimeout:  10 * time.Minute, // Large chunk bodies upload slowly
		WriteTimeout: 10 * time.Minute,
		IdleTimeout:  120 * time.Second,
	}

	log.Printf("Upload Coordinator starting on %s", cfg.Server.UploaderAddress)

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

	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()

	if err := server.Shutdown(ctxShutdown); err != nil {
		log.Fatalf("FATAL: Server forced to shutdown: %v", err)
	}

	log.Println("Server exiting.")
}
