package middleware

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cinema-ops/internal/config"
	"github.com/iliyamo/cinema-ops/internal/utils"
)

func testIssuer() utils.TokenIssuer {
	return utils.TokenIssuer{Secret: "s", Issuer: "iss", Audience: "aud", TTL: time.Hour}
}

func bearer(t *testing.T, role string, perms ...string) string {
	t.Helper()
	at, err := testIssuer().NewAccessToken("user@cinema.local", "User", role, perms)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return "Bearer " + at.Token
}

func serve(e *echo.Echo, method, path, auth string, hdr map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(`{}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if auth != "" {
		req.Header.Set(echo.HeaderAuthorization, auth)
	}
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestJWTAuth_SetsIdentity(t *testing.T) {
	e := echo.New()
	g := e.Group("", JWTAuth(testIssuer()))
	g.GET("/me", func(c echo.Context) error {
		return c.String(http.StatusOK, UserEmail(c)+"|"+Role(c)+"|"+strings.Join(Permissions(c), ","))
	})

	rec := serve(e, http.MethodGet, "/me", bearer(t, "SELLER", "sales:create", "sales:read"), nil)
	if rec.Code != http.StatusOK || rec.Body.String() != "user@cinema.local|SELLER|sales:create,sales:read" {
		t.Fatalf("unexpected response %d %q", rec.Code, rec.Body.String())
	}
	if rec := serve(e, http.MethodGet, "/me", "", nil); rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", rec.Code)
	}
	if rec := serve(e, http.MethodGet, "/me", "Bearer garbage", nil); rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for garbage token, got %d", rec.Code)
	}
}

func TestRequireRoleAndPermission(t *testing.T) {
	e := echo.New()
	g := e.Group("", JWTAuth(testIssuer()))
	okHandler := func(c echo.Context) error { return c.NoContent(http.StatusNoContent) }
	g.GET("/managers", okHandler, RequireRole("MANAGER"))
	g.GET("/sell", okHandler, RequirePermission("sales:create"))

	if rec := serve(e, http.MethodGet, "/managers", bearer(t, "SELLER"), nil); rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
	if rec := serve(e, http.MethodGet, "/managers", bearer(t, "MANAGER"), nil); rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	if rec := serve(e, http.MethodGet, "/sell", bearer(t, "MANAGER", "finance:read"), nil); rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
	if rec := serve(e, http.MethodGet, "/sell", bearer(t, "SELLER", "sales:create"), nil); rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
}

func TestIdempotency_ReplaysFirstResponse(t *testing.T) {
	e := echo.New()
	store := NewMemoryIdempotencyStore()
	calls := 0
	e.POST("/sales", func(c echo.Context) error {
		calls++
		return c.JSON(http.StatusCreated, map[string]int{"call": calls})
	}, Idempotency(store, time.Minute))

	key := map[string]string{HeaderIdempotencyKey: "abc"}
	first := serve(e, http.MethodPost, "/sales", "", key)
	second := serve(e, http.MethodPost, "/sales", "", key)

	if calls != 1 {
		t.Fatalf("expected handler to run once, ran %d times", calls)
	}
	if second.Code != http.StatusCreated || second.Body.String() != first.Body.String() {
		t.Fatalf("expected identical replay, got %d %q vs %q", second.Code, second.Body.String(), first.Body.String())
	}
	if second.Header().Get(HeaderIdempotentReplay) != "true" || first.Header().Get(HeaderIdempotentReplay) != "" {
		t.Fatal("expected replay header only on the replay")
	}

	serve(e, http.MethodPost, "/sales", "", map[string]string{HeaderIdempotencyKey: "other"})
	serve(e, http.MethodPost, "/sales", "", nil)
	if calls != 3 {
		t.Fatalf("expected new key and missing key to run the handler, got %d calls", calls)
	}
}

func TestIdempotency_SkipsServerErrors(t *testing.T) {
	e := echo.New()
	store := NewMemoryIdempotencyStore()
	calls := 0
	e.POST("/boom", func(c echo.Context) error {
		calls++
		return echo.NewHTTPError(http.StatusInternalServerError, "boom")
	}, Idempotency(store, time.Minute))

	key := map[string]string{HeaderIdempotencyKey: "k"}
	serve(e, http.MethodPost, "/boom", "", key)
	serve(e, http.MethodPost, "/boom", "", key)
	if calls != 2 || store.Len() != 0 {
		t.Fatalf("expected 5xx not to be stored, calls %d, stored %d", calls, store.Len())
	}
}

func TestIdempotency_ConcurrentDuplicateRunsHandlerOnce(t *testing.T) {
	e := echo.New()
	store := NewMemoryIdempotencyStore()
	var calls atomic.Int32
	entered := make(chan struct{})
	unblock := make(chan struct{})
	e.POST("/sales", func(c echo.Context) error {
		if calls.Add(1) == 1 {
			close(entered)
		}
		<-unblock
		return c.JSON(http.StatusCreated, map[string]string{"id": "VEN-00001"})
	}, Idempotency(store, time.Minute))

	key := map[string]string{HeaderIdempotencyKey: "k1"}
	done := make(chan *httptest.ResponseRecorder)
	go func() { done <- serve(e, http.MethodPost, "/sales", "", key) }()
	<-entered

	dup := serve(e, http.MethodPost, "/sales", "", key)
	if dup.Code != http.StatusConflict {
		t.Fatalf("expected 409 while the first request runs, got %d %s", dup.Code, dup.Body.String())
	}

	close(unblock)
	first := <-done
	if first.Code != http.StatusCreated {
		t.Fatalf("expected 201 from the first request, got %d", first.Code)
	}

	again := serve(e, http.MethodPost, "/sales", "", key)
	if again.Code != http.StatusCreated || again.Header().Get(HeaderIdempotentReplay) != "true" || again.Body.String() != first.Body.String() {
		t.Fatalf("expected a replay after completion, got %d %q", again.Code, again.Body.String())
	}
	if n := calls.Load(); n != 1 {
		t.Fatalf("handler ran %d times for one Idempotency-Key", n)
	}
}

func TestMemoryIdempotencyStore_Reservation(t *testing.T) {
	s := NewMemoryIdempotencyStore()
	ctx := context.Background()
	now := time.Now()
	s.now = func() time.Time { return now }

	if ok, _ := s.Reserve(ctx, "a", time.Second); !ok {
		t.Fatal("expected first reservation to succeed")
	}
	if ok, _ := s.Reserve(ctx, "a", time.Second); ok {
		t.Fatal("expected second reservation to be refused")
	}
	_ = s.Release(ctx, "a")
	if ok, _ := s.Reserve(ctx, "a", time.Second); !ok {
		t.Fatal("expected reservation after release")
	}

	_ = s.Set(ctx, "a", StoredResponse{Status: 201}, time.Minute)
	if ok, _ := s.Reserve(ctx, "a", time.Second); ok {
		t.Fatal("expected answered key to refuse reservation")
	}

	_, _ = s.Reserve(ctx, "stale", time.Second)
	s.now = func() time.Time { return now.Add(2 * time.Second) }
	if ok, _ := s.Reserve(ctx, "stale", time.Second); !ok {
		t.Fatal("expected expired reservation to be reclaimable")
	}
}

func TestMemoryIdempotencyStore_Purge(t *testing.T) {
	s := NewMemoryIdempotencyStore()
	now := time.Now()
	s.now = func() time.Time { return now }
	_ = s.Set(context.Background(), "a", StoredResponse{Status: 200}, time.Second)
	_ = s.Set(context.Background(), "b", StoredResponse{Status: 200}, time.Hour)

	s.now = func() time.Time { return now.Add(time.Minute) }
	if _, ok, _ := s.Get(context.Background(), "a"); ok {
		t.Fatal("expected expired entry to be hidden")
	}
	if n := s.Purge(); n != 1 || s.Len() != 1 {
		t.Fatalf("expected 1 purged and 1 left, got %d and %d", n, s.Len())
	}
}

func TestPayloadRoundTrip(t *testing.T) {
	hdr := http.Header{"Content-Type": {"application/json"}}
	bs, err := encodePayload(201, hdr, []byte(`{"ok":true}`))
	if err != nil {
		t.Fatal(err)
	}
	status, got, body, ok := decodePayload(bs)
	if !ok || status != 201 || got.Get("Content-Type") != "application/json" || string(body) != `{"ok":true}` {
		t.Fatalf("unexpected decode %d %v %q %v", status, got, body, ok)
	}
	if _, _, _, ok := decodePayload([]byte{1, 2}); ok {
		t.Fatal("expected short payload to fail")
	}
}

func TestBuildRateKey_Strategies(t *testing.T) {
	cases := []struct {
		strategy string
		want     string
	}{
		{"ip", "rl:ip:192.0.2.1"},
		{"user_route", "rl:user:user@cinema.local:route:POST /v1/sessions/:id/sales"},
		{"role", "rl:role:SELLER"},
		{"bogus", "rl:ip:192.0.2.1:user:user@cinema.local:route:POST /v1/sessions/:id/sales"},
	}
	e := echo.New()
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodPost, "/v1/sessions/S1/sales", nil)
		req.RemoteAddr = "192.0.2.1:5555"
		c := e.NewContext(req, httptest.NewRecorder())
		c.SetPath("/v1/sessions/:id/sales")
		c.Set(CtxUserEmail, "user@cinema.local")
		c.Set(CtxRole, "SELLER")

		got := buildRateKey(config.RateLimitConfig{Prefix: "rl", KeyStrategy: tc.strategy}, c)
		if got != tc.want {
			t.Fatalf("%s: got %q want %q", tc.strategy, got, tc.want)
		}
	}
}

func TestTokenBucket_PassThroughWithoutRedis(t *testing.T) {
	e := echo.New()
	mw := NewTokenBucket(config.RateLimitConfig{Enabled: true, Capacity: 1}, nil, slog.New(slog.NewTextHandler(io.Discard, nil)))
	e.GET("/x", func(c echo.Context) error { return c.NoContent(http.StatusNoContent) }, mw)
	for i := 0; i < 3; i++ {
		if rec := serve(e, http.MethodGet, "/x", "", nil); rec.Code != http.StatusNoContent {
			t.Fatalf("request %d: got %d", i, rec.Code)
		}
	}
}
