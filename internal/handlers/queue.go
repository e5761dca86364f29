package handlers

import (
	"net/http"

	"torniket/internal/models"

	"github.com/gin-gonic/gin"
)

// Queue handlers

// IssueToken - POST /api/queue/token
// Выдать токен очереди (повторный вызов возвращает действующий токен)
func (h *Handlers) IssueToken(c *gin.Context) {
	var req models.IssueTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	token, err := h.services.Queue.IssueToken(c.Request.Context(), req.UserID)
	if err != nil {
		respondError(c, err, "Failed to issue token")
		return
	}

	c.JSON(http.StatusOK, models.NewQueueTokenResponse(token))
}

// GetQueueStatus - GET /api/queue/status/:token
// Текущее состояние токена очереди
func (h *Handlers) GetQueueStatus(c *gin.Context) {
	token, err := h.services.Queue.GetStatus(c.Request.Context(), c.Param("token"))
	if err != nil {
		respondError(c, err, "Failed to get queue status")
		return
	}

	c.JSON(http.StatusOK, models.NewQueueTokenResponse(token))
}
