package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"streamgo/internal/service"
)

// SetupUploadRoutes wires the Upload Coordinator's HTTP boundary.
func SetupUploadRoutes(router *gin.Engine, uploadService service.UploadService) {
	uploadHandler := NewUploadHandler(uploadService)

	router.Use(CORSMiddleware())

	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	uploadGroup := router.Group("/upload")
	{
		uploadGroup.POST("/initialize", uploadHandler.InitializeUpload)
		uploadGroup.POST("", uploadHandler.UploadChunk)
		uploadGroup.POST("/complete", uploadHandler.CompleteUpload)
		uploadGroup.POST("/db", uploadHandler.SaveMetadata)
	}
}

// SetupWatchRoutes wires the Query Service / Playback Gateway HTTP boundary.
func SetupWatchRoutes(router *gin.Engine, watchService service.WatchService) {
	watchHandler := NewWatchHandler(watchService)

	router.Use(CORSMiddleware())

	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	watchGroup := router.Group("/watch")
	{
		watchGroup.GET("", watchHandler.WatchVideo)
		watchGroup.GET("/home", watchHandler.Home)
		watchGroup.GET("/suggestions", watchHandler.Suggestions)
		watchGroup.POST("/sync", watchHandler.Sync)
		watchGroup.POST("/index", watchHandler.IndexVideo)
	}
}
