package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"streamgo/internal/service"
)

// WatchHandler holds the watch service dependency.
type WatchHandler struct {
	watchService service.WatchService
}

// NewWatchHandler creates a new WatchHandler.
func NewWatchHandler(watchService service.WatchService) *WatchHandler {
	return &WatchHandler{watchService: watchService}
}

// IndexVideoRequest defines the expected JSON for the backfill index endpoint.
type IndexVideoRequest struct {
	Title       string `json:"title" binding:"required"`
	Description string `json:"description"`
	Author      string `json:"author"`
	URL         string `json:"url" binding:"required"`
}

// --- Handler Methods ---

// WatchVideo turns a stored object reference into signed playback URLs.
// GET /watch?url=<objectReference>
func (h *WatchHandler) WatchVideo(c *gin.Context) {
	videoURL := c.Query("url")
	if videoURL == "" {
		abortWithError(c, http.StatusBadRequest, "Video URL is required")
		return
	}

	urls, err := h.watchService.Watch(c.Request.Context(), videoURL)
	if err != nil {
		abortWithError(c, statusForError(err), "Failed to generate video URL")
		return
	}

	c.JSON(http.StatusOK, urls)
}

// Home serves the listing/search page.
// GET /watch/home?q=&page=&limit=&sort=
func (h *WatchHandler) Home(c *gin.Context) {
	query := c.Query("q")
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "12"))

	result, err := h.watchService.Home(c.Request.Context(), query, page, limit)
	if err != nil {
		abortWithError(c, statusForError(err), "Failed to fetch videos")
		return
	}

	c.JSON(http.StatusOK, result)
}

// Suggestions returns autocomplete suggestions for a prefix.
// GET /watch/suggestions?q=&limit=
func (h *WatchHandler) Suggestions(c *gin.Context) {
	query := c.Query("q")
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "5"))

	suggestions := h.watchService.Suggest(c.Request.Context(), query, limit)
	c.JSON(http.StatusOK, gin.H{"suggestions": suggestions})
}

// Sync bulk-loads the record store into the search index.
// POST /watch/sync
func (h *WatchHandler) Sync(c *gin.Context) {
	report, err := h.watchService.Sync(c.Request.Context())
	if err != nil {
		abortWithError(c, statusForError(err), "Failed to sync database with search index")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Database synchronized with search index",
		"indexed": report.Indexed,
		"failed":  report.Failed,
	})
}

// IndexVideo persists a record and indexes it synchronously.
// POST /watch/index
func (h *WatchHandler) IndexVideo(c *gin.Context) {
	var req IndexVideoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Video title and URL are required")
		return
	}

	video, err := h.watchService.IndexVideo(
		c.Request.Context(),
		req.Title,
		req.Description,
		req.Author,
		req.URL,
	)
	if err != nil {
		abortWithError(c, statusForError(err), "Failed to save or index video")
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Video saved and indexed successfully",
		"id":      video.ID.Hex(),
	})
}
