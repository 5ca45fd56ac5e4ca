package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/csfahad/rbms-sub001/internal/config"
)

func TestPayloadRoundTrip(t *testing.T) {
	h := http.Header{}
	h.Set("Content-Type", "application/json")
	bs, err := encodePayload(http.StatusOK, h, []byte(`{"trains":[]}`))
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	status, header, body, ok := decodePayload(bs)
	if !ok || status != http.StatusOK || header.Get("Content-Type") != "application/json" || string(body) != `{"trains":[]}` {
		t.Fatalf("decoded %d %v %q ok=%v", status, header, body, ok)
	}
	if _, _, _, ok := decodePayload([]byte{0, 1}); ok {
		t.Fatalf("short payload decoded")
	}
}

func TestCacheKeyDistinguishesTrains(t *testing.T) {
	cfg := config.CacheConfig{KeyStrategy: "route_query", Prefix: "rbms:cache"}
	e := echo.New()
	key := func(id string) string {
		c := e.NewContext(httptest.NewRequest(http.MethodGet, "/v1/trains/"+id, nil), httptest.NewRecorder())
		c.SetPath("/v1/trains/:id")
		c.SetParamNames("id")
		c.SetParamValues(id)
		return cacheKeyFrom(cfg, c)
	}
	if key("1") == key("2") {
		t.Fatalf("different trains share a cache key")
	}
	if key("1") != key("1") {
		t.Fatalf("cache key not stable")
	}
}

func TestMiddlewaresPassThroughWithoutRedis(t *testing.T) {
	e := echo.New()
	calls := 0
	h := func(c echo.Context) error { calls++; return c.NoContent(http.StatusNoContent) }
	e.GET("/cached", h, NewRedisCache(config.CacheConfig{Enabled: true, Methods: map[string]bool{"GET": true}}, nil))
	e.POST("/limited", h, NewTokenBucket(config.RateLimitConfig{Enabled: true, Capacity: 1}, nil))

	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/cached", nil))
		rec2 := httptest.NewRecorder()
		e.ServeHTTP(rec2, httptest.NewRequest(http.MethodPost, "/limited", nil))
		if rec.Code != http.StatusNoContent || rec2.Code != http.StatusNoContent {
			t.Fatalf("round %d: %d %d", i, rec.Code, rec2.Code)
		}
	}
	if calls != 6 {
		t.Fatalf("handler ran %d times, want 6", calls)
	}
}

func TestRateKeyPerUserAndRoute(t *testing.T) {
	cfg := config.RateLimitConfig{KeyStrategy: "user_route", Prefix: "rbms:rl"}
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodPost, "/v1/bookings", nil), httptest.NewRecorder())
	c.SetPath("/v1/bookings")
	if got := buildRateKey(cfg, c); got != "rbms:rl:user:anon:route:POST /v1/bookings" {
		t.Fatalf("anonymous key = %q", got)
	}
	c.Set(CtxUserID, uint64(42))
	if got := buildRateKey(cfg, c); got != "rbms:rl:user:42:route:POST /v1/bookings" {
		t.Fatalf("user key = %q", got)
	}
}
