package repository

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/iliyamo/cinema-ops/internal/model"
)

// AuditFilter narrows AuditRepo.List. Zero values mean no filter, page 1
// and a limit of 50.
type AuditFilter struct {
	Type  string
	Limit int
	Page  int
}

// AuditRepo is an append-only event log capped at a fixed number of
// entries; the oldest entries are dropped first.
type AuditRepo struct {
	mu       sync.RWMutex
	events   []model.AuditEvent
	capacity int
	nextID   uint64
	now      func() time.Time
}

func NewAuditRepo(capacity int) *AuditRepo {
	if capacity < 1 {
		capacity = 5000
	}
	return &AuditRepo{capacity: capacity, now: time.Now}
}

// Append stores a new event and returns it with id and timestamp set.
func (r *AuditRepo) Append(ctx context.Context, eventType, actor string, data map[string]any) model.AuditEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	ev := model.AuditEvent{
		ID:        r.nextID,
		Type:      eventType,
		Actor:     actor,
		Data:      data,
		CreatedAt: r.now().UTC(),
	}
	r.events = append(r.events, ev)
	if over := len(r.events) - r.capacity; over > 0 {
		r.events = append([]model.AuditEvent(nil), r.events[over:]...)
	}
	return ev
}

// Normalize applies the defaults: limit 50 clamped to [1,200], page at
// least 1, type upper-cased.
func (f AuditFilter) Normalize() AuditFilter {
	switch {
	case f.Limit <= 0:
		f.Limit = 50
	case f.Limit > 200:
		f.Limit = 200
	}
	if f.Page < 1 {
		f.Page = 1
	}
	f.Type = strings.ToUpper(strings.TrimSpace(f.Type))
	return f
}

// List returns matching events newest first together with the total
// number of matches.
func (r *AuditRepo) List(ctx context.Context, f AuditFilter) ([]model.AuditEvent, int) {
	f = f.Normalize()
	limit, page := f.Limit, f.Page

	r.mu.RLock()
	defer r.mu.RUnlock()
	matched := make([]model.AuditEvent, 0)
	for i := len(r.events) - 1; i >= 0; i-- {
		if f.Type != "" && r.events[i].Type != f.Type {
			continue
		}
		matched = append(matched, r.events[i])
	}
	total := len(matched)
	start := (page - 1) * limit
	if start >= total {
		return []model.AuditEvent{}, total
	}
	end := start + limit
	if end > total {
		end = total
	}
	return matched[start:end], total
}

// Recent returns the last n events, newest first.
func (r *AuditRepo) Recent(ctx context.Context, n int) []model.AuditEvent {
	events, _ := r.List(ctx, AuditFilter{Limit: n})
	return events
}

// Len returns the number of stored events.
func (r *AuditRepo) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.events)
}
