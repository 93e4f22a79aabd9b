package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/cinema-ops/internal/model"
)

// SaleArchiveRepo mirrors committed sales into the session_sales table. A
// nil DB turns every method into a no-op so the service runs without MySQL.
type SaleArchiveRepo struct{ DB *sql.DB }

func NewSaleArchiveRepo(db *sql.DB) *SaleArchiveRepo { return &SaleArchiveRepo{DB: db} }

// Enabled reports whether a database is attached.
func (r *SaleArchiveRepo) Enabled() bool { return r != nil && r.DB != nil }

// Insert archives one sale.
func (r *SaleArchiveRepo) Insert(ctx context.Context, row model.SaleArchiveRow) error {
	if !r.Enabled() {
		return nil
	}
	_, err := r.DB.ExecContext(ctx,
		`INSERT INTO session_sales
		 (session_id, sale_id, ticket_type, quantity, seats_consumed, total_cents, sold_by, created_at)
		 VALUES (?,?,?,?,?,?,?,?)`,
		row.SessionID, row.SaleID, row.TicketType, row.Quantity, row.SeatsConsumed,
		row.TotalCents, row.SoldBy, row.CreatedAt)
	return err
}

// Delete removes an archived sale; a missing row is not an error.
func (r *SaleArchiveRepo) Delete(ctx context.Context, sessionID, saleID string) error {
	if !r.Enabled() {
		return nil
	}
	_, err := r.DB.ExecContext(ctx,
		"DELETE FROM session_sales WHERE session_id=? AND sale_id=?",
		sessionID, saleID)
	return err
}
