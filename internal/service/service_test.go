package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/cinema-ops/internal/inventory"
	"github.com/iliyamo/cinema-ops/internal/logger"
	q "github.com/iliyamo/cinema-ops/internal/queue"
	"github.com/iliyamo/cinema-ops/internal/repository"
	"github.com/iliyamo/cinema-ops/internal/utils"
)

type recordingPublisher struct {
	mu        sync.Mutex
	recorded  []q.SaleRecordedEvent
	cancelled []q.SaleCancelledEvent
}

func (p *recordingPublisher) PublishSaleRecorded(_ context.Context, ev q.SaleRecordedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.recorded = append(p.recorded, ev)
	return nil
}

func (p *recordingPublisher) PublishSaleCancelled(_ context.Context, ev q.SaleCancelledEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cancelled = append(p.cancelled, ev)
	return nil
}

type fixture struct {
	users     *repository.UserRepo
	audit     *repository.AuditRepo
	events    *recordingPublisher
	sessions  *SessionService
	auth      *AuthService
	analytics *AnalyticsService
	stock     *inventory.Stock
	inventory *InventoryService
	payroll   *PayrollService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	log := logger.Discard()
	users := repository.NewUserRepo()
	if err := users.Seed(context.Background(), repository.DefaultSeed, bcrypt.MinCost); err != nil {
		t.Fatalf("seed: %v", err)
	}
	audit := repository.NewAuditRepo(100)
	sessionRepo := repository.NewSessionRepo()
	events := &recordingPublisher{}
	stock := inventory.NewStock()
	issuer := utils.TokenIssuer{Secret: "test", Issuer: "iss", Audience: "aud", TTL: time.Hour}
	return &fixture{
		users:     users,
		audit:     audit,
		events:    events,
		sessions:  NewSessionService(sessionRepo, users, audit, repository.NewSaleArchiveRepo(nil), events, log),
		auth:      NewAuthService(users, repository.NewTokenRepo(), audit, issuer, 24*time.Hour, log),
		analytics: NewAnalyticsService(sessionRepo, users, audit, stock),
		stock:     stock,
		inventory: NewInventoryService(stock, audit, log),
		payroll:   NewPayrollService(users),
	}
}

func f64(v float64) *float64 { return &v }
