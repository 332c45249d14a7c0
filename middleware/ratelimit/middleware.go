package ratelimit

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/tech-arch1tect/otpgate/config"
	"github.com/tech-arch1tect/otpgate/services/logging"
)

type Config struct {
	Store          Store
	Rate           int
	Period         time.Duration
	CountMode      config.CountingMode
	KeyGenerator   func(c echo.Context) string
	OnLimitReached func(c echo.Context) error
}

func Middleware(cfg *Config) echo.MiddlewareFunc {
	if cfg.Store == nil {
		cfg.Store = NewMemoryStore()
	}

	if cfg.Rate <= 0 {
		cfg.Rate = 10
	}

	if cfg.Period <= 0 {
		cfg.Period = time.Minute
	}

	if cfg.KeyGenerator == nil {
		cfg.KeyGenerator = DefaultKeyGenerator
	}

	if cfg.OnLimitReached == nil {
		cfg.OnLimitReached = DefaultOnLimitReached
	}

	if cfg.CountMode == "" {
		cfg.CountMode = config.CountAll
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := c.Request().Context()
			key := cfg.KeyGenerator(c)
			resetTime := time.Now().Add(cfg.Period)

			count, existingResetTime, exists := cfg.Store.Get(ctx, key)
			if exists {
				resetTime = existingResetTime
			}

			if count >= cfg.Rate {
				setHeaders(c, cfg.Rate, 0, resetTime)
				c.Response().Header().Set(echo.HeaderRetryAfter, strconv.Itoa(retryAfterSeconds(resetTime)))
				return cfg.OnLimitReached(c)
			}

			if cfg.CountMode == config.CountAll {
				count = cfg.Store.Increment(ctx, key, resetTime)
				setHeaders(c, cfg.Rate, cfg.Rate-count, resetTime)
				return next(c)
			}

			// Outcome-based counting: headers assume this request will count.
			setHeaders(c, cfg.Rate, cfg.Rate-count-1, resetTime)

			err := next(c)

			if shouldCount(cfg.CountMode, responseStatus(c, err)) {
				cfg.Store.Increment(ctx, key, resetTime)
			}

			return err
		}
	}
}

func setHeaders(c echo.Context, limit, remaining int, resetTime time.Time) {
	h := c.Response().Header()
	h.Set("X-RateLimit-Limit", strconv.Itoa(limit))
	h.Set("X-RateLimit-Remaining", strconv.Itoa(max(remaining, 0)))
	h.Set("X-RateLimit-Reset", strconv.FormatInt(resetTime.Unix(), 10))
}

func retryAfterSeconds(resetTime time.Time) int {
	return max(int(time.Until(resetTime).Seconds()+0.5), 1)
}

// responseStatus is the committed status, or the status the error handler
// will write when the handler returned an error instead.
func responseStatus(c echo.Context, err error) int {
	if err != nil && !c.Response().Committed {
		var httpErr *echo.HTTPError
		if errors.As(err, &httpErr) {
			return httpErr.Code
		}
		return http.StatusInternalServerError
	}
	return c.Response().Status
}

func shouldCount(mode config.CountingMode, status int) bool {
	switch mode {
	case config.CountFailures:
		return status >= 400
	case config.CountSuccess:
		return status < 400
	default:
		return true
	}
}

func DefaultKeyGenerator(c echo.Context) string {
	return ScopedKeyGenerator("")(c)
}

// ScopedKeyGenerator keys requests by client IP within scope, so separate
// limits on different routes do not share counters.
func ScopedKeyGenerator(scope string) func(c echo.Context) string {
	prefix := "rate_limit:"
	if scope != "" {
		prefix += scope + ":"
	}

	return func(c echo.Context) string {
		realIP := c.RealIP()
		if realIP == "" || realIP == "unknown" {
			realIP = "fallback"
		}
		return prefix + realIP
	}
}

func DefaultOnLimitReached(c echo.Context) error {
	return echo.NewHTTPError(http.StatusTooManyRequests, "Too Many Requests")
}

func NewStore(rateLimitConfig *config.RateLimitConfig, client *redis.Client, redisPrefix string, logger *logging.Service) Store {
	if rateLimitConfig.Store == "redis" && client != nil {
		return NewRedisStore(client, redisPrefix, logger)
	}
	return NewMemoryStore()
}
