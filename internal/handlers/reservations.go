package handlers

import (
	"net/http"

	"torniket/internal/middleware"
	"torniket/internal/models"

	"github.com/gin-gonic/gin"
)

// Reservations handlers

// ReserveSeat - POST /api/reservations
// Временно забронировать место; требует активный токен очереди в заголовке
func (h *Handlers) ReserveSeat(c *gin.Context) {
	var req models.ReserveSeatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	queueToken := c.GetHeader(middleware.QueueTokenHeader)

	reservation, err := h.services.Reservations.ReserveSeat(
		c.Request.Context(), req.UserID, queueToken, req.EventID, req.SeatNumber)
	if err != nil {
		respondError(c, err, "Failed to reserve seat")
		return
	}

	c.JSON(http.StatusCreated, reservation)
}

// GetReservation - GET /api/reservations/:id
// Текущее состояние брони
func (h *Handlers) GetReservation(c *gin.Context) {
	reservation, err := h.services.Reservations.GetReservationStatus(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err, "Failed to get reservation")
		return
	}

	c.JSON(http.StatusOK, reservation)
}

// CancelReservation - PATCH /api/reservations/cancel
// Отменить временную бронь
func (h *Handlers) CancelReservation(c *gin.Context) {
	var req models.CancelReservationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	reservation, err := h.services.Reservations.CancelReservation(c.Request.Context(), req.UserID, req.ReservationID)
	if err != nil {
		respondError(c, err, "Failed to cancel reservation")
		return
	}

	c.JSON(http.StatusOK, reservation)
}

// ConfirmReservation - PATCH /api/reservations/confirm
// Подтвердить бронь (вызывается платежным слоем после оплаты)
func (h *Handlers) ConfirmReservation(c *gin.Context) {
	var req models.ConfirmReservationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	reservation, err := h.services.Reservations.ConfirmReservation(c.Request.Context(), req.UserID, req.ReservationID)
	if err != nil {
		respondError(c, err, "Failed to confirm reservation")
		return
	}

	c.JSON(http.StatusOK, reservation)
}
