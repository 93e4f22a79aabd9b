package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iliyamo/cinema-ops/internal/ledger"
	"github.com/iliyamo/cinema-ops/internal/logger"
	"github.com/iliyamo/cinema-ops/internal/model"
	"github.com/iliyamo/cinema-ops/internal/pricing"
	q "github.com/iliyamo/cinema-ops/internal/queue"
	"github.com/iliyamo/cinema-ops/internal/repository"
)

// CreateSessionInput is the body of POST /v1/sessions.
type CreateSessionInput struct {
	ID         string   `json:"id" validate:"omitempty,max=60"`
	MovieTitle string   `json:"movie_title" validate:"required,max=120"`
	Room       string   `json:"room" validate:"omitempty,max=80"`
	Showtime   string   `json:"showtime" validate:"omitempty,datetime=15:04"`
	Capacity   int      `json:"capacity" validate:"required,gte=1,lte=5000"`
	BasePrice  *float64 `json:"base_price" validate:"required,gte=0"`
	Dubbed     bool     `json:"dubbed"`
}

// SellInput is the body of POST /v1/sessions/:id/sales. Zero quantity and
// zero people default to 1.
type SellInput struct {
	TicketType     string       `json:"ticket_type" validate:"omitempty,ticket_type"`
	Quantity       int          `json:"quantity" validate:"gte=0,lte=100"`
	NumberOfPeople int          `json:"number_of_people" validate:"gte=0,lte=50"`
	Options        OptionsInput `json:"options"`
}

// SaleResult is returned by Sell.
type SaleResult struct {
	Sale           ledger.SaleReceipt `json:"sale"`
	SessionSummary ledger.Summary     `json:"session_summary"`
}

// CancelResult is returned by CancelSale.
type CancelResult struct {
	Cancelled      bool              `json:"cancelled"`
	Sale           ledger.SaleRecord `json:"sale"`
	SessionSummary ledger.Summary    `json:"session_summary"`
}

// SessionService opens sessions and runs sales against them. Every
// committed sale or cancellation is audited, credited to the seller,
// archived and published; archive and publish failures are logged only.
type SessionService struct {
	Sessions *repository.SessionRepo
	Users    *repository.UserRepo
	Audit    *repository.AuditRepo
	Archive  *repository.SaleArchiveRepo
	Events   EventPublisher
	Log      *logger.Logger

	// SaleIDFormat is "uuid" or anything else for the per-session sequence.
	SaleIDFormat string

	pending sync.WaitGroup
}

func NewSessionService(sessions *repository.SessionRepo, users *repository.UserRepo, audit *repository.AuditRepo,
	archive *repository.SaleArchiveRepo, events EventPublisher, log *logger.Logger) *SessionService {
	if events == nil {
		events = NoopPublisher{}
	}
	return &SessionService{Sessions: sessions, Users: users, Audit: audit, Archive: archive, Events: events, Log: log}
}

// List returns the details of every session in creation order.
func (s *SessionService) List(ctx context.Context) []ledger.Details {
	sessions := s.Sessions.List(ctx)
	out := make([]ledger.Details, 0, len(sessions))
	for _, sess := range sessions {
		out = append(out, sess.Details())
	}
	return out
}

// Get returns one session's details.
func (s *SessionService) Get(ctx context.Context, id string) (ledger.Details, error) {
	sess, err := s.find(ctx, id)
	if err != nil {
		return ledger.Details{}, err
	}
	return sess.Details(), nil
}

// Create validates in and stores a new empty session.
func (s *SessionService) Create(ctx context.Context, in CreateSessionInput, actor string) (ledger.Details, error) {
	if err := ValidateStruct(in); err != nil {
		return ledger.Details{}, err
	}
	var opts []ledger.Option
	if s.SaleIDFormat == "uuid" {
		opts = append(opts, ledger.WithIDGenerator(ledger.UUIDGenerator{}))
	}
	sess, err := ledger.New(ledger.Config{
		ID:         in.ID,
		MovieTitle: in.MovieTitle,
		Room:       in.Room,
		Showtime:   in.Showtime,
		Capacity:   in.Capacity,
		BasePrice:  decimal.NewFromFloat(*in.BasePrice),
		Dubbed:     in.Dubbed,
	}, opts...)
	if err != nil {
		return ledger.Details{}, err
	}
	if err := s.Sessions.Create(ctx, sess); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return ledger.Details{}, ErrSessionExists
		}
		return ledger.Details{}, err
	}
	s.Audit.Append(ctx, model.AuditSessionCreated, actor, map[string]any{
		"session_id": sess.ID(),
		"movie":      sess.MovieTitle(),
		"capacity":   sess.Capacity(),
	})
	return sess.Details(), nil
}

// Sell records a sale on session id for seller.
func (s *SessionService) Sell(ctx context.Context, id string, in SellInput, seller string) (SaleResult, error) {
	if err := ValidateStruct(in); err != nil {
		return SaleResult{}, err
	}
	sess, err := s.find(ctx, id)
	if err != nil {
		return SaleResult{}, err
	}
	ticket, ok := pricing.ParseTicketType(in.TicketType)
	if !ok {
		ticket = pricing.TicketFull
	}
	req := ledger.SaleRequest{
		TicketType:     ticket,
		Quantity:       orOne(in.Quantity),
		NumberOfPeople: orOne(in.NumberOfPeople),
		Options:        in.Options.toOptions(),
		SoldBy:         seller,
	}

	receipt, err := sess.Sell(req)
	if errors.Is(err, ledger.ErrNotEnoughSeats) {
		sum := sess.Summary()
		seats := req.Quantity
		if ticket == pricing.TicketFamily {
			seats *= req.NumberOfPeople
		}
		s.Log.LogSaleRejected(ctx, sess.ID(), seats, sum.AvailableSeats)
		s.Audit.Append(ctx, model.AuditSaleRejected, seller, map[string]any{
			"session_id":      sess.ID(),
			"requested_seats": seats,
			"available_seats": sum.AvailableSeats,
		})
		return SaleResult{}, err
	}
	if err != nil {
		return SaleResult{}, err
	}

	cents := toCents(receipt.Total)
	if seller != "" {
		if err := s.Users.RecordSale(ctx, seller, 1, cents); err != nil && !errors.Is(err, repository.ErrNotFound) {
			s.Log.WarnContext(ctx, "seller ranking update failed", "error", err.Error())
		}
	}
	s.Audit.Append(ctx, model.AuditSaleCreated, seller, map[string]any{
		"session_id": sess.ID(),
		"sale_id":    receipt.ID,
		"seats":      receipt.SeatsConsumed,
		"total":      receipt.Total.StringFixed(2),
	})
	s.Log.LogSaleRecorded(ctx, sess.ID(), receipt.ID, seller, receipt.SeatsConsumed, receipt.Total.StringFixed(2))

	row := model.SaleArchiveRow{
		SessionID:     sess.ID(),
		SaleID:        receipt.ID,
		TicketType:    string(receipt.TicketType),
		Quantity:      receipt.Quantity,
		SeatsConsumed: receipt.SeatsConsumed,
		TotalCents:    cents,
		SoldBy:        seller,
		CreatedAt:     receipt.CreatedAt,
	}
	ev := q.SaleRecordedEvent{
		SessionID:        sess.ID(),
		MovieTitle:       sess.MovieTitle(),
		SaleID:           receipt.ID,
		TicketType:       string(receipt.TicketType),
		Quantity:         receipt.Quantity,
		SeatsConsumed:    receipt.SeatsConsumed,
		TotalCents:       cents,
		OccupancyPercent: receipt.OccupancyPercent,
		SoldBy:           seller,
		RecordedAt:       receipt.CreatedAt.Format(time.RFC3339),
	}
	s.dispatch(func(ctx context.Context) {
		if err := s.Archive.Insert(ctx, row); err != nil {
			s.Log.ErrorContext(ctx, "sale archive insert failed", "sale_id", row.SaleID, "error", err.Error())
		}
		_ = s.Events.PublishSaleRecorded(ctx, ev)
	})

	return SaleResult{Sale: receipt, SessionSummary: sess.Summary()}, nil
}

// CancelSale removes a sale and reverses its effect on the session and the
// seller ranking.
func (s *SessionService) CancelSale(ctx context.Context, id, saleID, actor string) (CancelResult, error) {
	sess, err := s.find(ctx, id)
	if err != nil {
		return CancelResult{}, err
	}
	rec, ok := sess.Sale(saleID)
	if !ok || !sess.Cancel(saleID) {
		return CancelResult{}, ErrSaleNotFound
	}

	cents := toCents(rec.Total)
	if rec.SoldBy != "" {
		if err := s.Users.RecordSale(ctx, rec.SoldBy, -1, -cents); err != nil && !errors.Is(err, repository.ErrNotFound) {
			s.Log.WarnContext(ctx, "seller ranking update failed", "error", err.Error())
		}
	}
	s.Audit.Append(ctx, model.AuditSaleCancelled, actor, map[string]any{
		"session_id": sess.ID(),
		"sale_id":    saleID,
	})
	s.Log.LogSaleCancelled(ctx, sess.ID(), saleID)

	ev := q.SaleCancelledEvent{
		SessionID:     sess.ID(),
		SaleID:        saleID,
		SeatsReleased: rec.SeatsConsumed,
		TotalCents:    cents,
		CancelledBy:   actor,
		CancelledAt:   time.Now().UTC().Format(time.RFC3339),
	}
	sessionID := sess.ID()
	s.dispatch(func(ctx context.Context) {
		if err := s.Archive.Delete(ctx, sessionID, saleID); err != nil {
			s.Log.ErrorContext(ctx, "sale archive delete failed", "sale_id", saleID, "error", err.Error())
		}
		_ = s.Events.PublishSaleCancelled(ctx, ev)
	})

	return CancelResult{Cancelled: true, Sale: rec, SessionSummary: sess.Summary()}, nil
}

// Wait blocks until every background archive and publish call returned.
func (s *SessionService) Wait() { s.pending.Wait() }

// dispatch runs fn off the request path with its own 5s deadline so a slow
// broker or database cannot hold the response.
func (s *SessionService) dispatch(fn func(ctx context.Context)) {
	s.pending.Add(1)
	go func() {
		defer s.pending.Done()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		fn(ctx)
	}()
}

func (s *SessionService) find(ctx context.Context, id string) (*ledger.Session, error) {
	sess, err := s.Sessions.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrSessionNotFound
	}
	return sess, err
}

func toCents(m pricing.Money) int64 {
	return m.Decimal.Shift(2).Round(0).IntPart()
}

func orOne(n int) int {
	if n <= 0 {
		return 1
	}
	return n
}
