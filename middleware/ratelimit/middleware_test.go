package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/tech-arch1tect/otpgate/config"
)

func serve(t *testing.T, mw echo.MiddlewareFunc, handler echo.HandlerFunc) (*httptest.ResponseRecorder, error) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/api/otp/verify", nil)
	req.Header.Set(echo.HeaderXRealIP, "203.0.113.7")
	rec := httptest.NewRecorder()
	return rec, mw(handler)(e.NewContext(req, rec))
}

func statusHandler(status int) echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.NoContent(status)
	}
}

func expectTooManyRequests(t *testing.T, err error) {
	t.Helper()
	httpErr, ok := err.(*echo.HTTPError)
	if !ok {
		t.Fatalf("expected echo.HTTPError, got %T (%v)", err, err)
	}
	if httpErr.Code != http.StatusTooManyRequests {
		t.Errorf("expected status %d, got %d", http.StatusTooManyRequests, httpErr.Code)
	}
}

func TestMiddleware(t *testing.T) {
	t.Run("basic rate limiting", func(t *testing.T) {
		mw := Middleware(&Config{Store: NewMemoryStore(), Rate: 1, Period: time.Minute})

		rec, err := serve(t, mw, statusHandler(http.StatusOK))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if rec.Code != http.StatusOK {
			t.Errorf("expected status %d, got %d", http.StatusOK, rec.Code)
		}

		rec, err = serve(t, mw, statusHandler(http.StatusOK))
		expectTooManyRequests(t, err)
		if rec.Header().Get("Retry-After") == "" {
			t.Error("expected Retry-After header on limited response")
		}
		if rec.Header().Get("X-RateLimit-Remaining") != "0" {
			t.Errorf("expected remaining 0, got %s", rec.Header().Get("X-RateLimit-Remaining"))
		}
	})

	t.Run("default configuration", func(t *testing.T) {
		cfg := &Config{}
		Middleware(cfg)

		if cfg.Store == nil {
			t.Error("expected default store to be set")
		}
		if cfg.Rate != 10 {
			t.Errorf("expected default rate 10, got %d", cfg.Rate)
		}
		if cfg.Period != time.Minute {
			t.Errorf("expected default period 1 minute, got %v", cfg.Period)
		}
		if cfg.KeyGenerator == nil || cfg.OnLimitReached == nil {
			t.Error("expected default key generator and limit handler")
		}
		if cfg.CountMode != config.CountAll {
			t.Errorf("expected count mode %q, got %q", config.CountAll, cfg.CountMode)
		}
	})

	t.Run("headers are set", func(t *testing.T) {
		mw := Middleware(&Config{Store: NewMemoryStore(), Rate: 5, Period: time.Minute})

		rec, err := serve(t, mw, statusHandler(http.StatusOK))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if got := rec.Header().Get("X-RateLimit-Limit"); got != "5" {
			t.Errorf("expected X-RateLimit-Limit 5, got %s", got)
		}
		if got := rec.Header().Get("X-RateLimit-Remaining"); got != "4" {
			t.Errorf("expected X-RateLimit-Remaining 4, got %s", got)
		}
		if rec.Header().Get("X-RateLimit-Reset") == "" {
			t.Error("expected X-RateLimit-Reset header to be set")
		}
	})

	t.Run("count failures ignores successes", func(t *testing.T) {
		mw := Middleware(&Config{
			Store:     NewMemoryStore(),
			Rate:      2,
			Period:    time.Minute,
			CountMode: config.CountFailures,
		})

		for i := 0; i < 5; i++ {
			if _, err := serve(t, mw, statusHandler(http.StatusOK)); err != nil {
				t.Fatalf("success %d was limited: %v", i, err)
			}
		}

		for i := 0; i < 2; i++ {
			if _, err := serve(t, mw, statusHandler(http.StatusUnprocessableEntity)); err != nil {
				t.Fatalf("failure %d was limited early: %v", i, err)
			}
		}

		_, err := serve(t, mw, statusHandler(http.StatusOK))
		expectTooManyRequests(t, err)
	})

	t.Run("count failures includes returned errors", func(t *testing.T) {
		mw := Middleware(&Config{
			Store:     NewMemoryStore(),
			Rate:      1,
			Period:    time.Minute,
			CountMode: config.CountFailures,
		})

		failing := func(c echo.Context) error {
			return echo.NewHTTPError(http.StatusBadRequest, "bad code")
		}
		if _, err := serve(t, mw, failing); err == nil {
			t.Fatal("expected handler error to be returned")
		}

		_, err := serve(t, mw, statusHandler(http.StatusOK))
		expectTooManyRequests(t, err)
	})

	t.Run("count success ignores failures", func(t *testing.T) {
		mw := Middleware(&Config{
			Store:     NewMemoryStore(),
			Rate:      1,
			Period:    time.Minute,
			CountMode: config.CountSuccess,
		})

		for i := 0; i < 3; i++ {
			if _, err := serve(t, mw, statusHandler(http.StatusInternalServerError)); err != nil {
				t.Fatalf("failure %d was limited: %v", i, err)
			}
		}

		if _, err := serve(t, mw, statusHandler(http.StatusCreated)); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		_, err := serve(t, mw, statusHandler(http.StatusCreated))
		expectTooManyRequests(t, err)
	})

	t.Run("custom limit reached handler", func(t *testing.T) {
		called := false
		mw := Middleware(&Config{
			Store:  NewMemoryStore(),
			Rate:   1,
			Period: time.Minute,
			OnLimitReached: func(c echo.Context) error {
				called = true
				return c.JSON(http.StatusTooManyRequests, map[string]string{"error": "slow down"})
			},
		})

		if _, err := serve(t, mw, statusHandler(http.StatusOK)); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		rec, err := serve(t, mw, statusHandler(http.StatusOK))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !called {
			t.Error("expected custom limit reached handler to be called")
		}
		if rec.Code != http.StatusTooManyRequests {
			t.Errorf("expected status %d, got %d", http.StatusTooManyRequests, rec.Code)
		}
	})
}

func TestScopedKeyGenerator(t *testing.T) {
	e := echo.New()

	tests := []struct {
		name     string
		scope    string
		realIP   string
		expected string
	}{
		{name: "default scope", realIP: "192.168.1.1", expected: "rate_limit:192.168.1.1"},
		{name: "issue scope", scope: "issue", realIP: "192.168.1.1", expected: "rate_limit:issue:192.168.1.1"},
		{name: "verify scope", scope: "verify", realIP: "10.0.0.2", expected: "rate_limit:verify:10.0.0.2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.Header.Set(echo.HeaderXRealIP, tt.realIP)
			c := e.NewContext(req, httptest.NewRecorder())

			if key := ScopedKeyGenerator(tt.scope)(c); key != tt.expected {
				t.Errorf("expected key %q, got %q", tt.expected, key)
			}
		})
	}

	t.Run("default generator matches unscoped", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(echo.HeaderXRealIP, "192.168.1.1")
		c := e.NewContext(req, httptest.NewRecorder())

		if key := DefaultKeyGenerator(c); key != "rate_limit:192.168.1.1" {
			t.Errorf("unexpected key %q", key)
		}
	})
}

func TestDefaultOnLimitReached(t *testing.T) {
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())

	expectTooManyRequests(t, DefaultOnLimitReached(c))
}

func TestNewStore(t *testing.T) {
	t.Run("memory store", func(t *testing.T) {
		store := NewStore(&config.RateLimitConfig{Store: "memory"}, nil, "", nil)

		if _, ok := store.(*MemoryStore); !ok {
			t.Errorf("expected MemoryStore, got %T", store)
		}
	})

	t.Run("redis store", func(t *testing.T) {
		client := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
		defer client.Close()

		store := NewStore(&config.RateLimitConfig{Store: "redis"}, client, "otp:", nil)

		if _, ok := store.(*RedisStore); !ok {
			t.Errorf("expected RedisStore, got %T", store)
		}
	})

	t.Run("redis without client falls back to memory", func(t *testing.T) {
		store := NewStore(&config.RateLimitConfig{Store: "redis"}, nil, "otp:", nil)

		if _, ok := store.(*MemoryStore); !ok {
			t.Errorf("expected MemoryStore, got %T", store)
		}
	})
}

func TestProvideRateLimitStore(t *testing.T) {
	store := ProvideRateLimitStore(StoreParams{Config: &config.Config{RateLimit: config.RateLimitConfig{Store: "memory"}}})

	if _, ok := store.(*MemoryStore); !ok {
		t.Errorf("expected MemoryStore, got %T", store)
	}
}
