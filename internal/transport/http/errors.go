package http

import (
	"errors"
	"log"
	"net/http"

	"elearning-quiz-service/internal/domain"
	"github.com/gin-gonic/gin"
)

// writeError maps domain errors onto HTTP responses.
func writeError(c *gin.Context, err error) {
	var maxErr *domain.MaxAttemptsError
	switch {
	case errors.As(err, &maxErr):
		c.JSON(http.StatusConflict, maxErr.Rejected())
	case errors.Is(err, domain.ErrInvalid):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrQuizNotFound), errors.Is(err, domain.ErrAttemptNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrUnauthenticated):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
	case errors.Is(err, domain.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrStoreUnavailable):
		log.Printf("%s %s: %v", c.Request.Method, c.FullPath(), err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "storage temporarily unavailable", "retryable": true})
	default:
		log.Printf("%s %s: %v", c.Request.Method, c.FullPath(), err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
