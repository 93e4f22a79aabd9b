package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/iliyamo/cinema-ops/internal/ledger"
)

func mustSession(t *testing.T, id string, capacity int) *ledger.Session {
	t.Helper()
	s, err := ledger.New(ledger.Config{ID: id, MovieTitle: "M", Capacity: capacity, BasePrice: decimal.NewFromInt(10)})
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	return s
}

func TestSessionRepo_CreateGetList(t *testing.T) {
	r := NewSessionRepo()
	ctx := context.Background()
	a, b := mustSession(t, "A", 10), mustSession(t, "B", 4)
	if err := r.Create(ctx, a); err != nil {
		t.Fatal(err)
	}
	if err := r.Create(ctx, b); err != nil {
		t.Fatal(err)
	}
	if err := r.Create(ctx, mustSession(t, "A", 1)); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
	if _, err := r.GetByID(ctx, "zzz"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if list := r.List(ctx); len(list) != 2 || list[0].ID() != "A" {
		t.Fatalf("unexpected list order")
	}

	if _, err := b.Sell(ledger.SaleRequest{Quantity: 2}); err != nil {
		t.Fatal(err)
	}
	if occ := r.ListByOccupancy(ctx); occ[0].ID != "B" || occ[0].OccupancyPercent != 50 {
		t.Fatalf("unexpected occupancy order %+v", occ)
	}
}
