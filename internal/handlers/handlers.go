package handlers

import (
	"errors"
	"net/http"

	apperrors "torniket/internal/errors"
	"torniket/internal/service"

	"github.com/gin-gonic/gin"
)

type Handlers struct {
	services *service.Services
}

func NewHandlers(services *service.Services) *Handlers {
	return &Handlers{services: services}
}

// respondError maps the error taxonomy onto HTTP status codes. Anything
// outside the taxonomy is a 500 with a generic message.
func respondError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, apperrors.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
	case errors.Is(err, apperrors.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
	case errors.Is(err, apperrors.ErrSeatTaken):
		c.JSON(http.StatusConflict, gin.H{"error": "Seat already taken"})
	case errors.Is(err, apperrors.ErrInvalidState):
		c.JSON(http.StatusConflict, gin.H{"error": "Invalid state for this operation"})
	case errors.Is(err, apperrors.ErrExpired):
		c.JSON(http.StatusGone, gin.H{"error": "Expired"})
	case errors.Is(err, apperrors.ErrBusy):
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "Busy, try again"})
	default:
		c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": fallback})
	}
}
