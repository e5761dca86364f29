package models

// IssueTokenRequest - запрос на выдачу токена очереди
type IssueTokenRequest struct {
	UserID string `json:"user_id" binding:"required"`
}

// QueueTokenResponse - текущее состояние токена очереди
type QueueTokenResponse struct {
	Token                string `json:"token"`
	Status               string `json:"status"`
	Position             int64  `json:"position"`
	EstimatedWaitMinutes int    `json:"estimated_wait_minutes"`
	ExpiresAt            string `json:"expires_at"`
}

// NewQueueTokenResponse maps a token onto its API shape.
func NewQueueTokenResponse(t *QueueToken) *QueueTokenResponse {
	return &QueueTokenResponse{
		Token:                t.Token,
		Status:               string(t.Status),
		Position:             t.Position,
		EstimatedWaitMinutes: t.EstimatedWaitMinutes,
		ExpiresAt:            t.ExpiresAt.Format("2006-01-02T15:04:05Z07:00"),
	}
}

// ReserveSeatRequest - запрос на временное бронирование места
type ReserveSeatRequest struct {
	UserID     string `json:"user_id" binding:"required"`
	EventID    int64  `json:"event_id" binding:"required"`
	SeatNumber int    `json:"seat_number" binding:"required"`
}

// CancelReservationRequest - запрос на отмену брони
type CancelReservationRequest struct {
	UserID        string `json:"user_id" binding:"required"`
	ReservationID string `json:"reservation_id" binding:"required"`
}

// ConfirmReservationRequest - запрос платежного слоя на подтверждение брони
type ConfirmReservationRequest struct {
	UserID        string `json:"user_id" binding:"required"`
	ReservationID string `json:"reservation_id" binding:"required"`
}

// CreateEventRequest - запрос на создание события
type CreateEventRequest struct {
	Title         string `json:"title" binding:"required"`
	Description   string `json:"description"`
	DatetimeStart string `json:"datetime_start" binding:"required"`
	SeatCount     int    `json:"seat_count"`
	SeatPrice     int64  `json:"seat_price"`
}

// CreateEventResponse - ответ при создании события
type CreateEventResponse struct {
	ID int64 `json:"id"`
}

// ListEventsResponseItem - элемент списка событий
type ListEventsResponseItem struct {
	ID    int64  `json:"id"`
	Title string `json:"title"`
}
