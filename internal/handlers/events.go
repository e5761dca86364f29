package handlers

import (
	"net/http"
	"strconv"

	"torniket/internal/models"

	"github.com/gin-gonic/gin"
)

// Events handlers

// CreateEvent - POST /api/events
// Создать событие и заполнить зал местами
func (h *Handlers) CreateEvent(c *gin.Context) {
	var req models.CreateEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	event, err := h.services.Events.CreateEvent(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err, "Failed to create event")
		return
	}

	c.JSON(http.StatusCreated, models.CreateEventResponse{ID: event.ID})
}

// ListEvents - GET /api/events?query=&date=&page=&pageSize=
// Поиск по каталогу событий
func (h *Handlers) ListEvents(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("pageSize", "20"))

	events, err := h.services.Events.ListEvents(c.Request.Context(),
		c.Query("query"), c.Query("date"), page, pageSize)
	if err != nil {
		respondError(c, err, "Failed to list events")
		return
	}

	items := make([]models.ListEventsResponseItem, len(events))
	for i, event := range events {
		items[i] = models.ListEventsResponseItem{ID: event.ID, Title: event.Title}
	}

	c.JSON(http.StatusOK, items)
}

// GetEvent - GET /api/events/:id
func (h *Handlers) GetEvent(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid event id"})
		return
	}

	event, err := h.services.Events.GetEvent(c.Request.Context(), id)
	if err != nil {
		respondError(c, err, "Failed to get event")
		return
	}

	c.JSON(http.StatusOK, event)
}

// ListSeats - GET /api/events/:id/seats?page=&pageSize=&status=
// Места события с их состоянием
func (h *Handlers) ListSeats(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid event id"})
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("pageSize", "100"))

	var status *models.SeatStatus
	if raw := c.Query("status"); raw != "" {
		s := models.SeatStatus(raw)
		status = &s
	}

	seats, err := h.services.Events.ListSeats(c.Request.Context(), id, page, pageSize, status)
	if err != nil {
		respondError(c, err, "Failed to list seats")
		return
	}

	c.JSON(http.StatusOK, seats)
}
