package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
)

// HeaderIdempotencyKey and HeaderIdempotentReplay are the request and
// response headers of the replay protocol.
const (
	HeaderIdempotencyKey   = "Idempotency-Key"
	HeaderIdempotentReplay = "X-Idempotent-Replay"
)

// StoredResponse is a response kept for replay.
type StoredResponse struct {
	Status int
	Header http.Header
	Body   []byte
}

// inflightTTL bounds how long a reservation survives a handler that never
// finishes, such as a crashed process.
const inflightTTL = 30 * time.Second

// IdempotencyStore keeps responses keyed by caller, method, URI and
// Idempotency-Key. Reserve claims a key before the handler runs and
// reports false when the key is already claimed or answered; Set stores the
// response and drops the claim, Release drops the claim alone.
type IdempotencyStore interface {
	Get(ctx context.Context, key string) (StoredResponse, bool, error)
	Reserve(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Set(ctx context.Context, key string, resp StoredResponse, ttl time.Duration) error
	Release(ctx context.Context, key string) error
}

// RedisIdempotencyStore stores responses with the cache payload encoding
// and lets Redis expire them.
type RedisIdempotencyStore struct {
	RDB    *redis.Client
	Prefix string
}

func (s *RedisIdempotencyStore) Get(ctx context.Context, key string) (StoredResponse, bool, error) {
	bs, err := s.RDB.Get(ctx, s.Prefix+":"+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return StoredResponse{}, false, nil
	}
	if err != nil {
		return StoredResponse{}, false, err
	}
	status, hdr, body, ok := decodePayload(bs)
	if !ok {
		return StoredResponse{}, false, nil
	}
	return StoredResponse{Status: status, Header: hdr, Body: body}, true, nil
}

func (s *RedisIdempotencyStore) Set(ctx context.Context, key string, resp StoredResponse, ttl time.Duration) error {
	payload, err := encodePayload(resp.Status, resp.Header, resp.Body)
	if err != nil {
		return err
	}
	pipe := s.RDB.TxPipeline()
	pipe.SetEx(ctx, s.Prefix+":"+key, payload, ttl)
	pipe.Del(ctx, s.lockKey(key))
	_, err = pipe.Exec(ctx)
	return err
}

func (s *RedisIdempotencyStore) Reserve(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return s.RDB.SetNX(ctx, s.lockKey(key), "1", ttl).Result()
}

func (s *RedisIdempotencyStore) Release(ctx context.Context, key string) error {
	return s.RDB.Del(ctx, s.lockKey(key)).Err()
}

func (s *RedisIdempotencyStore) lockKey(key string) string {
	return s.Prefix + ":" + key + ":inflight"
}

type memoryEntry struct {
	resp      StoredResponse
	expiresAt time.Time
}

// MemoryIdempotencyStore is the fallback when Redis is unavailable. Expired
// entries and reservations are skipped on read and removed by Purge.
type MemoryIdempotencyStore struct {
	mu       sync.Mutex
	entries  map[string]memoryEntry
	inflight map[string]time.Time
	now      func() time.Time
}

func NewMemoryIdempotencyStore() *MemoryIdempotencyStore {
	return &MemoryIdempotencyStore{
		entries:  make(map[string]memoryEntry),
		inflight: make(map[string]time.Time),
		now:      time.Now,
	}
}

func (s *MemoryIdempotencyStore) Get(_ context.Context, key string) (StoredResponse, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[key]
	if !ok || !s.now().Before(e.expiresAt) {
		return StoredResponse{}, false, nil
	}
	return e.resp, true, nil
}

func (s *MemoryIdempotencyStore) Set(_ context.Context, key string, resp StoredResponse, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = memoryEntry{resp: resp, expiresAt: s.now().Add(ttl)}
	delete(s.inflight, key)
	return nil
}

func (s *MemoryIdempotencyStore) Reserve(_ context.Context, key string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	if e, ok := s.entries[key]; ok && now.Before(e.expiresAt) {
		return false, nil
	}
	if until, ok := s.inflight[key]; ok && now.Before(until) {
		return false, nil
	}
	s.inflight[key] = now.Add(ttl)
	return true, nil
}

func (s *MemoryIdempotencyStore) Release(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inflight, key)
	return nil
}

// Purge drops expired entries and returns how many were removed. Stale
// reservations go too but are not counted.
func (s *MemoryIdempotencyStore) Purge() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	n := 0
	for k, e := range s.entries {
		if !now.Before(e.expiresAt) {
			delete(s.entries, k)
			n++
		}
	}
	for k, until := range s.inflight {
		if !now.Before(until) {
			delete(s.inflight, k)
		}
	}
	return n
}

// Len returns the number of stored entries, expired ones included.
func (s *MemoryIdempotencyStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

var mutatingMethods = map[string]bool{
	http.MethodPost: true, http.MethodPut: true, http.MethodPatch: true, http.MethodDelete: true,
}

// Idempotency replays the first response below 500 for a repeated
// Idempotency-Key on mutating requests. The key is scoped to the caller,
// the method and the request URI, and replays carry X-Idempotent-Replay.
// The key is reserved before the handler runs, so a duplicate that arrives
// while the first request is still executing gets 409 instead of running
// twice. Store errors fail open.
func Idempotency(store IdempotencyStore, ttl time.Duration) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			r := c.Request()
			raw := strings.TrimSpace(r.Header.Get(HeaderIdempotencyKey))
			if raw == "" || !mutatingMethods[r.Method] {
				return next(c)
			}
			key := hashedKey("idem", strings.Join([]string{identity(c), r.Method, r.URL.RequestURI(), raw}, ":"))
			ctx := r.Context()

			if stored, ok, err := store.Get(ctx, key); err == nil && ok {
				replay(c, stored)
				return nil
			}
			reserved, err := store.Reserve(ctx, key, inflightTTL)
			if err == nil && !reserved {
				// Finished between Get and Reserve, or still running.
				if stored, ok, err := store.Get(ctx, key); err == nil && ok {
					replay(c, stored)
					return nil
				}
				return echo.NewHTTPError(http.StatusConflict, "a request with this Idempotency-Key is still in progress")
			}

			stored := false
			defer func() {
				if !stored {
					_ = store.Release(context.Background(), key)
				}
			}()

			cw := &captureWriter{ResponseWriter: c.Response().Writer, status: http.StatusOK}
			c.Response().Writer = cw
			if err := next(c); err != nil {
				c.Error(err)
			}
			if !c.Response().Committed || cw.status >= http.StatusInternalServerError {
				return nil
			}
			hdr := snapshotHeader(c.Response().Header())
			hdr.Del(echo.HeaderXRequestID)
			stored = store.Set(context.Background(), key, StoredResponse{Status: cw.status, Header: hdr, Body: cw.buf.Bytes()}, ttl) == nil
			return nil
		}
	}
}

func replay(c echo.Context, stored StoredResponse) {
	hdr := snapshotHeader(stored.Header)
	hdr.Del(echo.HeaderXRequestID)
	hdr.Set(HeaderIdempotentReplay, "true")
	writeStored(c, stored.Status, hdr, stored.Body)
}
