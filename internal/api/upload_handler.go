package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"streamgo/internal/service"
)

// UploadHandler holds the upload service dependency.
type UploadHandler struct {
	uploadService service.UploadService
}

// NewUploadHandler creates a new UploadHandler.
func NewUploadHandler(uploadService service.UploadService) *UploadHandler {
	return &UploadHandler{uploadService: uploadService}
}

// --- DTOs for API ---

// InitializeUploadRequest defines the expected JSON for opening a session.
type InitializeUploadRequest struct {
	Filename string `json:"filename" binding:"required"`
}

// InitializeUploadResponse returns the session handle the client uploads against.
type InitializeUploadResponse struct {
	UploadID string `json:"uploadId"`
	Key      string `json:"key"`
}

// CompleteUploadRequest defines the expected JSON for finalizing a session.
type CompleteUploadRequest struct {
	UploadID    string `json:"uploadId" binding:"required"`
	Key         string `json:"key" binding:"required"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Author      string `json:"author"`
}

// SaveMetadataRequest defines the expected JSON for the backfill endpoint.
type SaveMetadataRequest struct {
	Title       string `json:"title" binding:"required"`
	Description string `json:"description"`
	Author      string `json:"author"`
	URL         string `json:"url" binding:"required,url"`
}

// --- Handler Methods ---

// InitializeUpload opens a multipart session for the given filename.
// POST /upload/initialize
func (h *UploadHandler) InitializeUpload(c *gin.Context) {
	var req InitializeUploadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Filename is required")
		return
	}

	session, err := h.uploadService.InitializeUpload(c.Request.Context(), req.Filename)
	if err != nil {
		abortWithError(c, statusForError(err), "Upload initialization failed")
		return
	}

	c.JSON(http.StatusOK, InitializeUploadResponse{
		UploadID: session.UploadID,
		Key:      session.ObjectKey,
	})
}

// UploadChunk stores one chunk of an open session. Chunks arrive as
// multipart form data (fields: key, uploadId, chunkIndex, file field "chunk")
// and may be sent concurrently in any order.
// POST /upload
func (h *UploadHandler) UploadChunk(c *gin.Context) {
	key := c.PostForm("key")
	uploadID := c.PostForm("uploadId")
	if key == "" || uploadID == "" {
		abortWithError(c, http.StatusBadRequest, "Missing key or uploadId")
		return
	}

	chunkIndex, err := strconv.Atoi(c.PostForm("chunkIndex"))
	if err != nil || chunkIndex < 0 {
		abortWithError(c, http.StatusBadRequest, "Invalid chunkIndex")
		return
	}

	fileHeader, err := c.FormFile("chunk")
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Chunk file is required")
		return
	}
	chunk, err := fileHeader.Open()
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Chunk could not be read")
		return
	}
	defer chunk.Close()

	eTag, err := h.uploadService.UploadChunk(c.Request.Context(), key, uploadID, chunkIndex, chunk)
	if err != nil {
		abortWithError(c, statusForError(err), "Chunk could not be uploaded")
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "eTag": eTag})
}

// CompleteUpload finalizes the session, dispatches the ingest event and
// persists the metadata record.
// POST /upload/complete
func (h *UploadHandler) CompleteUpload(c *gin.Context) {
	var req CompleteUploadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Missing required parameters: uploadId or key")
		return
	}

	location, err := h.uploadService.CompleteUpload(
		c.Request.Context(),
		req.UploadID,
		req.Key,
		req.Title,
		req.Description,
		req.Author,
	)
	if err != nil {
		abortWithError(c, statusForError(err), "Upload completion failed")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":  "Uploaded successfully!!!",
		"location": location,
	})
}

// SaveMetadata persists video metadata directly, bypassing the pipeline.
// POST /upload/db
func (h *UploadHandler) SaveMetadata(c *gin.Context) {
	var req SaveMetadataRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	video, err := h.uploadService.SaveVideoMetadata(
		c.Request.Context(),
		req.Title,
		req.Description,
		req.Author,
		req.URL,
	)
	if err != nil {
		abortWithError(c, statusForError(err), "Failed to save video metadata")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "success", "id": video.ID.Hex()})
}
