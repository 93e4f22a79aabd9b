// Package ledger keeps the ticket-sale books of a screening session: seat
// capacity, revenue and the chronological list of sales.
package ledger

import (
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/iliyamo/cinema-ops/internal/pricing"
)

// ErrNotEnoughSeats rejects a sale that would exceed the session capacity.
var ErrNotEnoughSeats = errors.New("not enough seats available for this sale")

// Config describes a session at creation time.
type Config struct {
	ID         string
	MovieTitle string
	Room       string
	Showtime   string
	Capacity   int
	BasePrice  decimal.Decimal
	Dubbed     bool
}

// SaleRequest asks for Quantity tickets of one type. NumberOfPeople is the
// group size of each family ticket and is ignored for other types.
type SaleRequest struct {
	TicketType     pricing.TicketType
	Quantity       int
	NumberOfPeople int
	Options        pricing.Options
	SoldBy         string
}

// SaleRecord is an immutable entry of the sales history.
type SaleRecord struct {
	ID             string             `json:"id"`
	TicketType     pricing.TicketType `json:"ticket_type"`
	Quantity       int                `json:"quantity"`
	NumberOfPeople int                `json:"number_of_people"`
	SeatsConsumed  int                `json:"seats_consumed"`
	Total          pricing.Money      `json:"total"`
	SoldBy         string             `json:"sold_by,omitempty"`
	CreatedAt      time.Time          `json:"created_at"`
}

// SaleReceipt is returned by Sell: the new record plus the occupancy after it.
type SaleReceipt struct {
	SaleRecord
	OccupancyPercent float64 `json:"occupancy_percent"`
	AvailableSeats   int     `json:"available_seats"`
}

// Summary is the financial projection of a session.
type Summary struct {
	ID               string        `json:"id"`
	MovieTitle       string        `json:"movie_title"`
	Capacity         int           `json:"capacity"`
	SeatsSold        int           `json:"seats_sold"`
	AvailableSeats   int           `json:"available_seats"`
	OccupancyPercent float64       `json:"occupancy_percent"`
	Revenue          pricing.Money `json:"revenue"`
	SaleCount        int           `json:"sale_count"`
}

// Details is a full snapshot: attributes, summary and sales.
type Details struct {
	Summary
	Room      string        `json:"room"`
	Showtime  string        `json:"showtime"`
	BasePrice pricing.Money `json:"base_price"`
	Dubbed    bool          `json:"dubbed"`
	Sales     []SaleRecord  `json:"sales"`
}

// Option customizes a Session.
type Option func(*Session)

// WithIDGenerator replaces the default per-session VEN sequence.
func WithIDGenerator(g IDGenerator) Option {
	return func(s *Session) { s.ids = g }
}

// WithClock sets the time source stamped on sales.
func WithClock(now func() time.Time) Option {
	return func(s *Session) { s.now = now }
}

// Session is a screening open for sales. All methods are safe for concurrent
// use; sell and cancel are serialized per session so the capacity check and
// the commit cannot interleave.
type Session struct {
	id         string
	movieTitle string
	room       string
	showtime   string
	capacity   int
	basePrice  decimal.Decimal
	dubbed     bool

	ids IDGenerator
	now func() time.Time

	mu        sync.Mutex
	seatsSold int
	revenue   decimal.Decimal
	sales     []SaleRecord
}

// New validates cfg and returns an empty session. A blank id is replaced by
// a generated SESS-<uuid> id; blank room and showtime default to "Room 1"
// and "19:00".
func New(cfg Config, opts ...Option) (*Session, error) {
	title := strings.TrimSpace(cfg.MovieTitle)
	if title == "" {
		return nil, pricing.Invalid("movie_title", "must not be empty")
	}
	if cfg.Capacity < 1 {
		return nil, pricing.Invalid("capacity", "must be at least 1")
	}
	if cfg.BasePrice.IsNegative() {
		return nil, pricing.Invalid("base_price", "must not be negative")
	}
	id := strings.TrimSpace(cfg.ID)
	if id == "" {
		id = "SESS-" + uuid.NewString()
	}
	s := &Session{
		id:         id,
		movieTitle: title,
		room:       defaultString(cfg.Room, "Room 1"),
		showtime:   defaultString(cfg.Showtime, "19:00"),
		capacity:   cfg.Capacity,
		basePrice:  pricing.Round2(cfg.BasePrice),
		dubbed:     cfg.Dubbed,
		ids:        NewSequence("VEN"),
		now:        time.Now,
		sales:      []SaleRecord{},
	}
	for _, o := range opts {
		o(s)
	}
	return s, nil
}

func (s *Session) ID() string         { return s.id }
func (s *Session) MovieTitle() string { return s.movieTitle }
func (s *Session) Capacity() int      { return s.capacity }

// Sell prices and records a sale. The capacity check happens before any
// pricing so a rejected sale leaves the session untouched.
func (s *Session) Sell(req SaleRequest) (SaleReceipt, error) {
	if req.Quantity < 1 {
		return SaleReceipt{}, pricing.Invalid("quantity", "must be at least 1")
	}
	ticketType, ok := pricing.ParseTicketType(string(req.TicketType))
	if !ok {
		ticketType = pricing.TicketFull
	}
	perTicket := 1
	if ticketType == pricing.TicketFamily {
		if req.NumberOfPeople < 1 {
			return SaleReceipt{}, pricing.Invalid("number_of_people", "must be at least 1")
		}
		perTicket = req.NumberOfPeople
	}
	// capacity is fixed, so comparing against capacity/perTicket rejects
	// requests whose seat product would overflow int.
	if req.Quantity > s.capacity/perTicket {
		return SaleReceipt{}, ErrNotEnoughSeats
	}
	seats := req.Quantity * perTicket

	opts := req.Options
	opts.Dubbed = s.dubbed

	s.mu.Lock()
	defer s.mu.Unlock()

	if seats > s.capacity-s.seatsSold {
		return SaleReceipt{}, ErrNotEnoughSeats
	}
	breakdown, err := pricing.ComputeTicketPrice(pricing.PriceRequest{
		BasePrice:      s.basePrice,
		TicketType:     ticketType,
		NumberOfPeople: perTicket,
		Quantity:       req.Quantity,
		Options:        opts,
	})
	if err != nil {
		return SaleReceipt{}, err
	}

	rec := SaleRecord{
		ID:             s.ids.NextID(),
		TicketType:     ticketType,
		Quantity:       req.Quantity,
		NumberOfPeople: perTicket,
		SeatsConsumed:  seats,
		Total:          breakdown.Total,
		SoldBy:         req.SoldBy,
		CreatedAt:      s.now().UTC(),
	}
	s.sales = append(s.sales, rec)
	s.seatsSold += seats
	s.revenue = s.revenue.Add(rec.Total.Decimal)

	return SaleReceipt{
		SaleRecord:       rec,
		OccupancyPercent: s.occupancyLocked(),
		AvailableSeats:   s.capacity - s.seatsSold,
	}, nil
}

// Cancel removes a sale and reverses its seats and revenue. It reports
// whether the sale existed.
func (s *Session) Cancel(saleID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, rec := range s.sales {
		if rec.ID != saleID {
			continue
		}
		s.sales = append(s.sales[:i], s.sales[i+1:]...)
		s.seatsSold -= rec.SeatsConsumed
		s.revenue = s.revenue.Sub(rec.Total.Decimal)
		return true
	}
	return false
}

// Sale returns the record with the given id.
func (s *Session) Sale(saleID string) (SaleRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, rec := range s.sales {
		if rec.ID == saleID {
			return rec, true
		}
	}
	return SaleRecord{}, false
}

// Sales returns a copy of the history, oldest first.
func (s *Session) Sales() []SaleRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]SaleRecord, len(s.sales))
	copy(out, s.sales)
	return out
}

// Summary projects the running aggregates.
func (s *Session) Summary() Summary {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.summaryLocked()
}

// Details returns attributes, summary and sales taken under one lock.
func (s *Session) Details() Details {
	s.mu.Lock()
	defer s.mu.Unlock()
	sales := make([]SaleRecord, len(s.sales))
	copy(sales, s.sales)
	return Details{
		Summary:   s.summaryLocked(),
		Room:      s.room,
		Showtime:  s.showtime,
		BasePrice: pricing.NewMoney(s.basePrice),
		Dubbed:    s.dubbed,
		Sales:     sales,
	}
}

// IsFull reports whether every seat is sold.
func (s *Session) IsFull() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seatsSold == s.capacity
}

func (s *Session) summaryLocked() Summary {
	return Summary{
		ID:               s.id,
		MovieTitle:       s.movieTitle,
		Capacity:         s.capacity,
		SeatsSold:        s.seatsSold,
		AvailableSeats:   s.capacity - s.seatsSold,
		OccupancyPercent: s.occupancyLocked(),
		Revenue:          pricing.NewMoney(s.revenue),
		SaleCount:        len(s.sales),
	}
}

func (s *Session) occupancyLocked() float64 {
	occ := decimal.NewFromInt(int64(s.seatsSold)).
		Mul(decimal.NewFromInt(100)).
		Div(decimal.NewFromInt(int64(s.capacity)))
	return pricing.Round2(occ).InexactFloat64()
}

func defaultString(v, def string) string {
	if v = strings.TrimSpace(v); v != "" {
		return v
	}
	return def
}
