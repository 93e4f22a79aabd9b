package model

import "time"

// SaleArchiveRow mirrors a row of the session_sales table written by
// repository.SaleArchiveRepo.
type SaleArchiveRow struct {
	SessionID     string    // session_sales.session_id
	SaleID        string    // session_sales.sale_id
	TicketType    string    // session_sales.ticket_type
	Quantity      int       // session_sales.quantity
	SeatsConsumed int       // session_sales.seats_consumed
	TotalCents    int64     // session_sales.total_cents
	SoldBy        string    // session_sales.sold_by
	CreatedAt     time.Time // session_sales.created_at
}
