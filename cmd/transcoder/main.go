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
	"streamgo/internal/storage"
	"streamgo/internal/transcoder"
)

func main() {
	log.Println("Starting Transcode Worker...")

	// --- Configuration ---
	cfg, err := config.LoadConfig(".")
	if err != nil {
		log.Fatalf("FATAL: Could not load config: %v", err)
	}
	log.Println("Configuration loaded.")

	// --- Initialize Storage ---
	log.Println("Initializing object storage...")
	objectStorage, err := storage.NewS3Storage(cfg.S3)
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize S3 storage: %v", err)
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

	worker := transcoder.NewWorker(objectStorage, cfg.Transcode)

	// --- Consume Loop ---
	// One message at a time per instance; throughput comes from running more
	// instances in the same group, each with a disjoint work directory. The
	// loop only ends on a connection-level fault; restart with backoff.
	consumeCtx, cancelConsume := context.WithCancel(context.Background())
	defer cancelConsume()
	go func() {
		for {
			err := messageQueue.Subscribe(consumeCtx, cfg.Kafka.TranscodeTopic, cfg.Kafka.TranscodeGroup, worker.HandleMessage)
			if consumeCtx.Err() != nil {
				return
			}
			log.Printf("ERROR: Consumer loop ended, restarting in 5s: %v", err)
			time.Sleep(5 * time.Second)
		}
	}()

	// --- Health Endpoint ---
	router := gin.Default()
	router.Use(api.CORSMiddleware())
	router.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, "streamgo transcoder")
	})

	server := &http.Server{
		Addr:         cfg.Server.TranscoderAddress,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	log.Printf("Transcode Worker listening on %s", cfg.Server.TranscoderAddress)

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("FATAL: ListenAndServe Error: %v", err)
		}
	}()

	// --- Graceful Shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down worker...")
	cancelConsume()

	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()

	if err := server.Shutdown(ctxShutdown); err != nil {
		log.Fatalf("FATAL: Server forced to shutdown: %v", err)
	}

	log.Println("Worker exiting.")
}
