package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"runtime"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iliyamo/cinema-ops/internal/inventory"
	"github.com/iliyamo/cinema-ops/internal/ledger"
	"github.com/iliyamo/cinema-ops/internal/model"
	"github.com/iliyamo/cinema-ops/internal/pricing"
	"github.com/iliyamo/cinema-ops/internal/repository"
)

// Totals aggregates every session.
type Totals struct {
	Sessions                int           `json:"sessions"`
	Capacity                int           `json:"capacity"`
	SeatsSold               int           `json:"seats_sold"`
	Revenue                 pricing.Money `json:"revenue"`
	AverageOccupancyPercent float64       `json:"average_occupancy_percent"`
}

// SellerStat is one row of the seller ranking.
type SellerStat struct {
	Name       string `json:"name"`
	Email      string `json:"email"`
	SalesCount int    `json:"sales_count"`
	SalesTotal string `json:"sales_total"`
}

// Dashboard is the manager overview.
type Dashboard struct {
	GeneratedAt            time.Time        `json:"generated_at"`
	Totals                 Totals           `json:"totals"`
	Sessions               []ledger.Summary `json:"sessions"`
	SellerRanking          []SellerStat     `json:"seller_ranking"`
	CriticalInventoryItems int              `json:"critical_inventory_items"`
	Audit                  DashboardAudit   `json:"audit"`
}

// DashboardAudit is the audit block of the dashboard.
type DashboardAudit struct {
	TotalEvents  int                `json:"total_events"`
	RecentEvents []model.AuditEvent `json:"recent_events"`
}

// AuditPage is a page of audit events.
type AuditPage struct {
	Items      []model.AuditEvent `json:"items"`
	Pagination Pagination         `json:"pagination"`
}

// Pagination describes the page returned in AuditPage.
type Pagination struct {
	Page    int  `json:"page"`
	Limit   int  `json:"limit"`
	Total   int  `json:"total"`
	HasNext bool `json:"has_next"`
}

// Report is the operational report, also exported as CSV.
type Report struct {
	GeneratedAt time.Time        `json:"generated_at"`
	Sessions    []ledger.Details `json:"sessions"`
	Totals      Totals           `json:"totals"`
	Inventory   InventoryList    `json:"inventory"`
	Audit       ReportAudit      `json:"audit"`
}

// ReportAudit counts audit events per type.
type ReportAudit struct {
	TotalEvents int            `json:"total_events"`
	ByType      map[string]int `json:"by_type"`
}

// SystemMetrics is a runtime snapshot of the process.
type SystemMetrics struct {
	UptimeSeconds          float64 `json:"uptime_seconds"`
	GoVersion              string  `json:"go_version"`
	Goroutines             int     `json:"goroutines"`
	HeapAllocBytes         uint64  `json:"heap_alloc_bytes"`
	SysBytes               uint64  `json:"sys_bytes"`
	NumGC                  uint32  `json:"num_gc"`
	ActiveSessions         int     `json:"active_sessions"`
	RegisteredUsers        int     `json:"registered_users"`
	InventoryItems         int     `json:"inventory_items"`
	CriticalInventoryItems int     `json:"critical_inventory_items"`
	AuditEvents            int     `json:"audit_events"`
}

// AnalyticsService builds read-only views over sessions, users, stock and
// the audit log.
type AnalyticsService struct {
	Sessions  *repository.SessionRepo
	Users     *repository.UserRepo
	Audit     *repository.AuditRepo
	Stock     *inventory.Stock
	StartedAt time.Time
	now       func() time.Time
}

func NewAnalyticsService(sessions *repository.SessionRepo, users *repository.UserRepo, audit *repository.AuditRepo,
	stock *inventory.Stock) *AnalyticsService {
	return &AnalyticsService{Sessions: sessions, Users: users, Audit: audit, Stock: stock, StartedAt: time.Now(), now: time.Now}
}

// Dashboard returns totals, sessions by occupancy, the seller ranking and
// the last 15 audit events.
func (s *AnalyticsService) Dashboard(ctx context.Context) Dashboard {
	summaries := s.Sessions.ListByOccupancy(ctx)
	ranking := []SellerStat{}
	for _, u := range s.Users.SellerRanking(ctx) {
		ranking = append(ranking, SellerStat{
			Name:       u.Name,
			Email:      u.Email,
			SalesCount: u.SalesCount,
			SalesTotal: centsToString(u.SalesTotal),
		})
	}
	return Dashboard{
		GeneratedAt:            s.now().UTC(),
		Totals:                 totalsOf(summaries),
		Sessions:               summaries,
		SellerRanking:          ranking,
		CriticalInventoryItems: s.Stock.Summary().CriticalItems,
		Audit: DashboardAudit{
			TotalEvents:  s.Audit.Len(),
			RecentEvents: s.Audit.Recent(ctx, 15),
		},
	}
}

// AuditEvents returns one page of the audit log, newest first.
func (s *AnalyticsService) AuditEvents(ctx context.Context, f repository.AuditFilter) AuditPage {
	f = f.Normalize()
	items, total := s.Audit.List(ctx, f)
	return AuditPage{
		Items: items,
		Pagination: Pagination{
			Page:    f.Page,
			Limit:   f.Limit,
			Total:   total,
			HasNext: f.Page*f.Limit < total,
		},
	}
}

// Report builds the operational report.
func (s *AnalyticsService) Report(ctx context.Context) Report {
	sessions := s.Sessions.List(ctx)
	details := make([]ledger.Details, 0, len(sessions))
	summaries := make([]ledger.Summary, 0, len(sessions))
	for _, sess := range sessions {
		d := sess.Details()
		details = append(details, d)
		summaries = append(summaries, d.Summary)
	}

	byType := map[string]int{}
	events, total := s.Audit.List(ctx, repository.AuditFilter{Limit: 200})
	for page := 2; len(events) > 0; page++ {
		for _, ev := range events {
			byType[ev.Type]++
		}
		events, _ = s.Audit.List(ctx, repository.AuditFilter{Limit: 200, Page: page})
	}

	return Report{
		GeneratedAt: s.now().UTC(),
		Sessions:    details,
		Totals:      totalsOf(summaries),
		Inventory:   InventoryList{Items: s.Stock.List(), Summary: s.Stock.Summary()},
		Audit:       ReportAudit{TotalEvents: total, ByType: byType},
	}
}

// ReportCSV renders the per-session lines of r as CSV with a header row.
func (s *AnalyticsService) ReportCSV(r Report) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	_ = w.Write([]string{"session_id", "movie_title", "room", "capacity", "seats_sold", "occupancy_percent", "revenue"})
	for _, d := range r.Sessions {
		_ = w.Write([]string{
			d.ID,
			d.MovieTitle,
			d.Room,
			strconv.Itoa(d.Capacity),
			strconv.Itoa(d.SeatsSold),
			strconv.FormatFloat(d.OccupancyPercent, 'f', 2, 64),
			d.Revenue.StringFixed(2),
		})
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}

// SystemMetrics reports process and store sizes.
func (s *AnalyticsService) SystemMetrics(ctx context.Context) SystemMetrics {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	inv := s.Stock.Summary()
	return SystemMetrics{
		UptimeSeconds:          s.now().Sub(s.StartedAt).Seconds(),
		GoVersion:              runtime.Version(),
		Goroutines:             runtime.NumGoroutine(),
		HeapAllocBytes:         ms.HeapAlloc,
		SysBytes:               ms.Sys,
		NumGC:                  ms.NumGC,
		ActiveSessions:         s.Sessions.Count(),
		RegisteredUsers:        len(s.Users.List(ctx)),
		InventoryItems:         inv.TotalItems,
		CriticalInventoryItems: inv.CriticalItems,
		AuditEvents:            s.Audit.Len(),
	}
}

func totalsOf(summaries []ledger.Summary) Totals {
	t := Totals{Sessions: len(summaries)}
	revenue := decimal.Zero
	for _, sum := range summaries {
		t.Capacity += sum.Capacity
		t.SeatsSold += sum.SeatsSold
		revenue = revenue.Add(sum.Revenue.Decimal)
	}
	t.Revenue = pricing.NewMoney(revenue)
	if t.Capacity > 0 {
		occ := decimal.NewFromInt(int64(t.SeatsSold)).Mul(decimal.NewFromInt(100)).Div(decimal.NewFromInt(int64(t.Capacity)))
		t.AverageOccupancyPercent = pricing.Round2(occ).InexactFloat64()
	}
	return t
}

func centsToString(cents int64) string {
	return decimal.New(cents, -2).StringFixed(2)
}
