package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"streamgo/internal/service"
)

// abortWithError sends a JSON error response and stops handler processing.
func abortWithError(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, gin.H{"error": message})
}

// statusForError maps service errors onto HTTP status codes. Validation
// errors are the caller's fault (400, not retryable); storage and queue
// failures are server-side (500, retryable at the same step).
func statusForError(err error) int {
	if errors.Is(err, service.ErrValidation) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
