package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/iliyamo/cinema-ops/internal/ledger"
)

// SessionRepo keeps open sessions in memory, keyed by id. The repo only
// guards the map; each ledger.Session serializes its own sales.
type SessionRepo struct {
	mu       sync.RWMutex
	sessions map[string]*ledger.Session
	order    []string
}

func NewSessionRepo() *SessionRepo {
	return &SessionRepo{sessions: make(map[string]*ledger.Session)}
}

// Create stores s. A session with the same id yields ErrConflict.
func (r *SessionRepo) Create(ctx context.Context, s *ledger.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[s.ID()]; ok {
		return fmt.Errorf("session %s: %w", s.ID(), ErrConflict)
	}
	r.sessions[s.ID()] = s
	r.order = append(r.order, s.ID())
	return nil
}

// GetByID returns the session or ErrNotFound.
func (r *SessionRepo) GetByID(ctx context.Context, id string) (*ledger.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	if !ok {
		return nil, fmt.Errorf("session %s: %w", id, ErrNotFound)
	}
	return s, nil
}

// List returns sessions in creation order.
func (r *SessionRepo) List(ctx context.Context) []*ledger.Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*ledger.Session, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.sessions[id])
	}
	return out
}

// ListByOccupancy returns sessions ordered by occupancy, fullest first.
func (r *SessionRepo) ListByOccupancy(ctx context.Context) []ledger.Summary {
	all := r.List(ctx)
	out := make([]ledger.Summary, 0, len(all))
	for _, s := range all {
		out = append(out, s.Summary())
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].OccupancyPercent > out[j].OccupancyPercent
	})
	return out
}

// Count returns the number of stored sessions.
func (r *SessionRepo) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
