// Package queue defines the sale events exchanged over RabbitMQ and the
// consumer that appends them to the sales log.
package queue

// Queue names. Both are durable.
const (
	SaleRecordedQueue  = "sale.recorded"
	SaleCancelledQueue = "sale.cancelled"
)

// SaleRecordedEvent is published after a sale is committed to a session.
// It carries enough for downstream consumers to log or aggregate without
// calling back into the API.
type SaleRecordedEvent struct {
	SessionID        string  `json:"session_id"`
	MovieTitle       string  `json:"movie_title"`
	SaleID           string  `json:"sale_id"`
	TicketType       string  `json:"ticket_type"`
	Quantity         int     `json:"quantity"`
	SeatsConsumed    int     `json:"seats_consumed"`
	TotalCents       int64   `json:"total_cents"`
	OccupancyPercent float64 `json:"occupancy_percent"`
	SoldBy           string  `json:"sold_by"`
	RecordedAt       string  `json:"recorded_at"`
}

// SaleCancelledEvent is published after a sale is removed from a session.
type SaleCancelledEvent struct {
	SessionID     string `json:"session_id"`
	SaleID        string `json:"sale_id"`
	SeatsReleased int    `json:"seats_released"`
	TotalCents    int64  `json:"total_cents"`
	CancelledBy   string `json:"cancelled_by"`
	CancelledAt   string `json:"cancelled_at"`
}
