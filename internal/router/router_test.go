package router

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/cinema-ops/internal/handler"
	"github.com/iliyamo/cinema-ops/internal/inventory"
	"github.com/iliyamo/cinema-ops/internal/logger"
	"github.com/iliyamo/cinema-ops/internal/middleware"
	"github.com/iliyamo/cinema-ops/internal/repository"
	"github.com/iliyamo/cinema-ops/internal/service"
	"github.com/iliyamo/cinema-ops/internal/utils"
)

type testApp struct {
	e        *echo.Echo
	sessions *service.SessionService
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	log := logger.Discard()
	users := repository.NewUserRepo()
	if err := users.Seed(context.Background(), repository.DefaultSeed, bcrypt.MinCost); err != nil {
		t.Fatalf("seed: %v", err)
	}
	sessionRepo := repository.NewSessionRepo()
	audit := repository.NewAuditRepo(500)
	stock := inventory.NewStock()
	if err := stock.Seed(inventory.DefaultItems); err != nil {
		t.Fatalf("seed stock: %v", err)
	}
	issuer := utils.TokenIssuer{Secret: "router-test", Issuer: "iss", Audience: "aud", TTL: time.Hour}

	sessionSvc := service.NewSessionService(sessionRepo, users, audit, repository.NewSaleArchiveRepo(nil), nil, log)
	authSvc := service.NewAuthService(users, repository.NewTokenRepo(), audit, issuer, 24*time.Hour, log)

	e := echo.New()
	e.HTTPErrorHandler = handler.ErrorHandler(log)
	e.Validator = handler.Validator{}
	e.Use(echomw.RequestID())
	Register(e, Deps{
		Health:      handler.NewHealthHandler(nil, nil),
		Auth:        handler.NewAuthHandler(authSvc),
		Pricing:     handler.NewPricingHandler(service.NewPricingService()),
		Sessions:    handler.NewSessionHandler(sessionSvc),
		Analytics:   handler.NewAnalyticsHandler(service.NewAnalyticsService(sessionRepo, users, audit, stock)),
		Inventory:   handler.NewInventoryHandler(service.NewInventoryService(stock, audit, log)),
		Payroll:     handler.NewPayrollHandler(service.NewPayrollService(users)),
		Issuer:      issuer,
		Idempotency: middleware.Idempotency(middleware.NewMemoryIdempotencyStore(), time.Minute),
	})
	t.Cleanup(sessionSvc.Wait)
	return &testApp{e: e, sessions: sessionSvc}
}

func (a *testApp) do(method, path, token, body string, hdr map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	a.e.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return out
}

func dataOf(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	d, ok := decode(t, rec)["data"].(map[string]any)
	if !ok {
		t.Fatalf("no data object in %s", rec.Body.String())
	}
	return d
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	e, _ := decode(t, rec)["error"].(map[string]any)
	code, _ := e["code"].(string)
	return code
}

func (a *testApp) login(t *testing.T, email, password string) string {
	t.Helper()
	rec := a.do(http.MethodPost, "/v1/auth/login", "", `{"email":"`+email+`","password":"`+password+`"}`, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("login %s: %d %s", email, rec.Code, rec.Body.String())
	}
	tok, _ := dataOf(t, rec)["access_token"].(string)
	if tok == "" {
		t.Fatalf("no access token in %s", rec.Body.String())
	}
	return tok
}

func (a *testApp) createSession(t *testing.T, token, id string, capacity int) {
	t.Helper()
	body := `{"id":"` + id + `","movie_title":"Dune","room":"Sala 1","showtime":"19:30","capacity":` +
		strconv.Itoa(capacity) + `,"base_price":20}`
	rec := a.do(http.MethodPost, "/v1/sessions", token, body, nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create session: %d %s", rec.Code, rec.Body.String())
	}
}

func TestHealthRoutes(t *testing.T) {
	a := newTestApp(t)
	if rec := a.do(http.MethodGet, "/healthz", "", "", nil); rec.Code != http.StatusOK || rec.Body.String() != "ok" {
		t.Fatalf("healthz: %d %q", rec.Code, rec.Body.String())
	}
	if rec := a.do(http.MethodGet, "/v1/health/live", "", "", nil); rec.Code != http.StatusOK {
		t.Fatalf("live: %d", rec.Code)
	}
	rec := a.do(http.MethodGet, "/v1/health/ready", "", "", nil)
	if rec.Code != http.StatusOK || dataOf(t, rec)["redis"] != "disabled" {
		t.Fatalf("ready: %d %s", rec.Code, rec.Body.String())
	}
}

func TestLoginFailureIsUnauthorized(t *testing.T) {
	a := newTestApp(t)
	rec := a.do(http.MethodPost, "/v1/auth/login", "", `{"email":"vendedor@cinema.local","password":"wrong"}`, nil)
	if rec.Code != http.StatusUnauthorized || errorCode(t, rec) != "UNAUTHORIZED" {
		t.Fatalf("expected 401 UNAUTHORIZED, got %d %s", rec.Code, rec.Body.String())
	}
	if rec := a.do(http.MethodPost, "/v1/auth/login", "", `{"email":`, nil); rec.Code != http.StatusBadRequest || errorCode(t, rec) != "INVALID_JSON" {
		t.Fatalf("expected 400 INVALID_JSON, got %d %s", rec.Code, rec.Body.String())
	}
}

func TestPricingRoutesArePublic(t *testing.T) {
	a := newTestApp(t)
	rec := a.do(http.MethodPost, "/v1/pricing/calculate", "", `{"base_price":20,"ticket_type":"FULL"}`, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("calculate: %d %s", rec.Code, rec.Body.String())
	}
	rec = a.do(http.MethodPost, "/v1/pricing/calculate", "", `{"ticket_type":"FULL"}`, nil)
	if rec.Code != http.StatusUnprocessableEntity || errorCode(t, rec) != "VALIDATION_ERROR" {
		t.Fatalf("expected 422 without base_price, got %d %s", rec.Code, rec.Body.String())
	}
	if rec := a.do(http.MethodGet, "/v1/pricing/grid?base_price=abc", "", "", nil); rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 for non-numeric base_price, got %d", rec.Code)
	}
	if rec := a.do(http.MethodGet, "/v1/pricing/grid?base_price=20&room_type=IMAX", "", "", nil); rec.Code != http.StatusOK {
		t.Fatalf("grid: %d %s", rec.Code, rec.Body.String())
	}
}

func TestProtectedRoutesNeedTokenAndRole(t *testing.T) {
	a := newTestApp(t)
	if rec := a.do(http.MethodGet, "/v1/sessions", "", "", nil); rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", rec.Code)
	}
	seller := a.login(t, "vendedor@cinema.local", "vendedor123")
	attendant := a.login(t, "atendente@cinema.local", "atendente123")
	manager := a.login(t, "gerente@cinema.local", "gerente123")

	rec := a.do(http.MethodPost, "/v1/sessions", seller, `{"movie_title":"X","capacity":10,"base_price":20}`, nil)
	if rec.Code != http.StatusForbidden || errorCode(t, rec) != "FORBIDDEN" {
		t.Fatalf("expected 403 for seller creating a session, got %d %s", rec.Code, rec.Body.String())
	}
	if rec := a.do(http.MethodGet, "/v1/analytics/dashboard", seller, "", nil); rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 on analytics for seller, got %d", rec.Code)
	}
	if rec := a.do(http.MethodGet, "/v1/users", attendant, "", nil); rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 on users for attendant, got %d", rec.Code)
	}

	a.createSession(t, manager, "S1", 10)
	if rec := a.do(http.MethodPost, "/v1/sessions/S1/sales", attendant, `{"quantity":1}`, nil); rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for attendant selling, got %d", rec.Code)
	}
	if rec := a.do(http.MethodPost, "/v1/sessions/S1/sales", manager, `{"quantity":1}`, nil); rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for manager selling, got %d", rec.Code)
	}
	if rec := a.do(http.MethodGet, "/v1/sessions/S1", attendant, "", nil); rec.Code != http.StatusOK {
		t.Fatalf("expected any authenticated role to read sessions, got %d", rec.Code)
	}
	rec = a.do(http.MethodGet, "/v1/me", seller, "", nil)
	if rec.Code != http.StatusOK || dataOf(t, rec)["role"] != "SELLER" {
		t.Fatalf("me: %d %s", rec.Code, rec.Body.String())
	}
}

func TestSaleLifecycle(t *testing.T) {
	a := newTestApp(t)
	manager := a.login(t, "gerente@cinema.local", "gerente123")
	seller := a.login(t, "vendedor@cinema.local", "vendedor123")
	a.createSession(t, manager, "S1", 3)

	rec := a.do(http.MethodPost, "/v1/sessions", manager, `{"id":"S1","movie_title":"Dune","capacity":3,"base_price":20}`, nil)
	if rec.Code != http.StatusConflict || errorCode(t, rec) != "SESSION_EXISTS" {
		t.Fatalf("expected 409 SESSION_EXISTS, got %d %s", rec.Code, rec.Body.String())
	}
	rec = a.do(http.MethodPost, "/v1/sessions", manager, `{"capacity":3,"base_price":20}`, nil)
	if rec.Code != http.StatusUnprocessableEntity || errorCode(t, rec) != "VALIDATION_ERROR" {
		t.Fatalf("expected 422 without movie_title, got %d %s", rec.Code, rec.Body.String())
	}

	rec = a.do(http.MethodPost, "/v1/sessions/S1/sales", seller, `{"ticket_type":"FULL","quantity":2}`, nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("sell: %d %s", rec.Code, rec.Body.String())
	}
	sale := dataOf(t, rec)["sale"].(map[string]any)
	if sale["id"] != "VEN-00001" || sale["seats_consumed"] != float64(2) || sale["sold_by"] != "vendedor@cinema.local" {
		t.Fatalf("unexpected sale %+v", sale)
	}

	rec = a.do(http.MethodPost, "/v1/sessions/S1/sales", seller, `{"ticket_type":"FULL","quantity":2}`, nil)
	if rec.Code != http.StatusConflict || errorCode(t, rec) != "CAPACITY_EXCEEDED" {
		t.Fatalf("expected 409 CAPACITY_EXCEEDED, got %d %s", rec.Code, rec.Body.String())
	}
	if rec := a.do(http.MethodPost, "/v1/sessions/S1/sales", seller, `{"ticket_type":"VIP"}`, nil); rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 for unknown ticket type, got %d", rec.Code)
	}
	if rec := a.do(http.MethodPost, "/v1/sessions/NOPE/sales", seller, `{"quantity":1}`, nil); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown session, got %d", rec.Code)
	}

	if rec := a.do(http.MethodDelete, "/v1/sessions/S1/sales/VEN-00099", manager, "", nil); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown sale, got %d", rec.Code)
	}
	rec = a.do(http.MethodDelete, "/v1/sessions/S1/sales/VEN-00001", manager, "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("cancel: %d %s", rec.Code, rec.Body.String())
	}
	summary := dataOf(t, rec)["session_summary"].(map[string]any)
	if summary["seats_sold"] != float64(0) || summary["available_seats"] != float64(3) {
		t.Fatalf("seats not released: %+v", summary)
	}
}

func TestSaleIdempotentReplay(t *testing.T) {
	a := newTestApp(t)
	manager := a.login(t, "gerente@cinema.local", "gerente123")
	seller := a.login(t, "vendedor@cinema.local", "vendedor123")
	a.createSession(t, manager, "S1", 10)

	hdr := map[string]string{middleware.HeaderIdempotencyKey: "sale-1"}
	first := a.do(http.MethodPost, "/v1/sessions/S1/sales", seller, `{"quantity":2}`, hdr)
	second := a.do(http.MethodPost, "/v1/sessions/S1/sales", seller, `{"quantity":2}`, hdr)
	if first.Code != http.StatusCreated || second.Code != http.StatusCreated {
		t.Fatalf("unexpected statuses %d / %d", first.Code, second.Code)
	}
	if second.Header().Get(middleware.HeaderIdempotentReplay) != "true" {
		t.Fatalf("second response not marked as replay")
	}
	if first.Body.String() != second.Body.String() {
		t.Fatalf("replayed body differs")
	}

	rec := a.do(http.MethodGet, "/v1/sessions/S1", seller, "", nil)
	if d := dataOf(t, rec); d["seats_sold"] != float64(2) {
		t.Fatalf("expected one committed sale, got %+v", d)
	}
}

func TestAnalyticsRoutes(t *testing.T) {
	a := newTestApp(t)
	manager := a.login(t, "gerente@cinema.local", "gerente123")
	seller := a.login(t, "vendedor@cinema.local", "vendedor123")
	a.createSession(t, manager, "S1", 10)
	if rec := a.do(http.MethodPost, "/v1/sessions/S1/sales", seller, `{"quantity":3}`, nil); rec.Code != http.StatusCreated {
		t.Fatalf("sell: %d %s", rec.Code, rec.Body.String())
	}

	rec := a.do(http.MethodGet, "/v1/analytics/dashboard", manager, "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("dashboard: %d", rec.Code)
	}
	totals := dataOf(t, rec)["totals"].(map[string]any)
	if totals["seats_sold"] != float64(3) {
		t.Fatalf("unexpected totals %+v", totals)
	}

	rec = a.do(http.MethodGet, "/v1/analytics/audit-events?type=session_sale_created&limit=5", manager, "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("audit: %d", rec.Code)
	}
	if items := dataOf(t, rec)["items"].([]any); len(items) != 1 {
		t.Fatalf("expected 1 sale event, got %d", len(items))
	}

	rec = a.do(http.MethodGet, "/v1/analytics/report?format=csv", manager, "", nil)
	if rec.Code != http.StatusOK || !strings.HasPrefix(rec.Header().Get(echo.HeaderContentType), "text/csv") {
		t.Fatalf("csv report: %d %q", rec.Code, rec.Header().Get(echo.HeaderContentType))
	}
	lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
	if len(lines) != 2 || !strings.HasPrefix(lines[0], "session_id,") || !strings.HasPrefix(lines[1], "S1,Dune") {
		t.Fatalf("unexpected csv %q", rec.Body.String())
	}

	if rec := a.do(http.MethodGet, "/v1/analytics/system", manager, "", nil); rec.Code != http.StatusOK || dataOf(t, rec)["active_sessions"] != float64(1) {
		t.Fatalf("system: %d %s", rec.Code, rec.Body.String())
	}
}

func TestSellValidatesBodyBeforeSessionLookup(t *testing.T) {
	a := newTestApp(t)
	seller := a.login(t, "vendedor@cinema.local", "vendedor123")
	rec := a.do(http.MethodPost, "/v1/sessions/NOPE/sales", seller, `{"quantity":500}`, nil)
	if rec.Code != http.StatusUnprocessableEntity || errorCode(t, rec) != "VALIDATION_ERROR" {
		t.Fatalf("expected 422 for an invalid body on an unknown session, got %d %s", rec.Code, rec.Body.String())
	}
	rec = a.do(http.MethodPost, "/v1/sessions/NOPE/sales", seller, `{"quantity":1}`, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for a valid body on an unknown session, got %d", rec.Code)
	}
}

func TestInventoryRoutes(t *testing.T) {
	a := newTestApp(t)
	manager := a.login(t, "gerente@cinema.local", "gerente123")
	seller := a.login(t, "vendedor@cinema.local", "vendedor123")
	attendant := a.login(t, "atendente@cinema.local", "atendente123")

	if rec := a.do(http.MethodGet, "/v1/inventory/items", "", "", nil); rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", rec.Code)
	}
	rec := a.do(http.MethodGet, "/v1/inventory/items", seller, "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list: %d %s", rec.Code, rec.Body.String())
	}
	sum, _ := dataOf(t, rec)["summary"].(map[string]any)
	if sum["total_items"] != float64(3) || sum["total_value"] != 293.0 {
		t.Fatalf("unexpected summary %v", sum)
	}

	item := `{"sku":"agua-500","name":"Agua 500ml","quantity":4,"minimum":5,"unit_cost":1.2,"sale_price":5}`
	if rec := a.do(http.MethodPost, "/v1/inventory/items", seller, item, nil); rec.Code != http.StatusForbidden {
		t.Fatalf("expected seller to be forbidden, got %d", rec.Code)
	}
	rec = a.do(http.MethodPost, "/v1/inventory/items", attendant, item, nil)
	if rec.Code != http.StatusCreated || dataOf(t, rec)["sku"] != "AGUA-500" || dataOf(t, rec)["needs_restock"] != true {
		t.Fatalf("create: %d %s", rec.Code, rec.Body.String())
	}
	if rec := a.do(http.MethodPost, "/v1/inventory/items", manager, item, nil); rec.Code != http.StatusConflict || errorCode(t, rec) != "ITEM_EXISTS" {
		t.Fatalf("expected ITEM_EXISTS, got %d %s", rec.Code, rec.Body.String())
	}

	rec = a.do(http.MethodGet, "/v1/inventory/items/critical", seller, "", nil)
	if crit, _ := decode(t, rec)["data"].([]any); rec.Code != http.StatusOK || len(crit) != 1 {
		t.Fatalf("critical: %d %s", rec.Code, rec.Body.String())
	}

	rec = a.do(http.MethodPatch, "/v1/inventory/items/agua-500/movement", attendant, `{"type":"in","quantity":10}`, nil)
	if rec.Code != http.StatusOK || dataOf(t, rec)["quantity"] != float64(14) || dataOf(t, rec)["needs_restock"] != false {
		t.Fatalf("inbound: %d %s", rec.Code, rec.Body.String())
	}
	rec = a.do(http.MethodPatch, "/v1/inventory/items/AGUA-500/movement", manager, `{"type":"out","quantity":15}`, nil)
	if rec.Code != http.StatusConflict || errorCode(t, rec) != "INSUFFICIENT_STOCK" {
		t.Fatalf("expected INSUFFICIENT_STOCK, got %d %s", rec.Code, rec.Body.String())
	}
	rec = a.do(http.MethodPatch, "/v1/inventory/items/AGUA-500/movement", manager, `{"type":"swap","quantity":1}`, nil)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 for an unknown movement type, got %d", rec.Code)
	}
	rec = a.do(http.MethodPatch, "/v1/inventory/items/NOPE/movement", manager, `{"type":"in","quantity":1}`, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for an unknown SKU, got %d", rec.Code)
	}
}

func TestPayrollRoutes(t *testing.T) {
	a := newTestApp(t)
	manager := a.login(t, "gerente@cinema.local", "gerente123")
	seller := a.login(t, "vendedor@cinema.local", "vendedor123")

	body := `{"role":"SELLER","sales":5000,"bonus":100}`
	if rec := a.do(http.MethodPost, "/v1/payroll/employee", seller, body, nil); rec.Code != http.StatusForbidden {
		t.Fatalf("expected seller to be forbidden, got %d", rec.Code)
	}
	rec := a.do(http.MethodPost, "/v1/payroll/employee", manager, body, nil)
	if rec.Code != http.StatusOK || dataOf(t, rec)["net_pay"] != 2400.0 || dataOf(t, rec)["commission"] != 100.0 {
		t.Fatalf("employee: %d %s", rec.Code, rec.Body.String())
	}
	rec = a.do(http.MethodPost, "/v1/payroll/employee", manager, `{"commission_rate":1.5}`, nil)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 for a rate above 1, got %d", rec.Code)
	}
	rec = a.do(http.MethodPost, "/v1/payroll/employee", manager, `{"email":"ghost@cinema.local"}`, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for an unknown employee, got %d", rec.Code)
	}

	rec = a.do(http.MethodPost, "/v1/payroll/team", manager, `{"team":[{"role":"MANAGER"},{"role":"ATTENDANT","overtime_hours":10,"overtime_rate":12.5}]}`, nil)
	if rec.Code != http.StatusOK || dataOf(t, rec)["total"] != 7525.0 {
		t.Fatalf("team: %d %s", rec.Code, rec.Body.String())
	}
}
