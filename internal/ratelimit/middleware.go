package ratelimit

import (
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// Response is the body of a 429 reply.
type Response struct {
	Error             string `json:"error"`
	RetryAfterSeconds int    `json:"retryAfterSeconds"`
}

func deny(c echo.Context, d Decision) error {
	secs := d.RetryAfterSeconds()
	c.Response().Header().Set("Retry-After", strconv.Itoa(secs))
	return c.JSON(http.StatusTooManyRequests, Response{Error: "rate_limited", RetryAfterSeconds: secs})
}

// Middleware limits requests by the key that keyFunc extracts. Requests for
// which keyFunc returns "" are not counted. A rejected request never
// reaches the next handler.
func (l *Limiter) Middleware(keyFunc func(echo.Context) string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key := keyFunc(c)
			if key == "" {
				return next(c)
			}
			if d := l.Take(key); !d.Allowed {
				return deny(c, d)
			}
			return next(c)
		}
	}
}

// IPMiddleware limits requests per source IP through echo's framework rate
// limiter, backed by this limiter's fixed windows.
func (l *Limiter) IPMiddleware() echo.MiddlewareFunc {
	return middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
		Store: l,
		IdentifierExtractor: func(c echo.Context) (string, error) {
			return c.RealIP(), nil
		},
		DenyHandler: func(c echo.Context, identifier string, _ error) error {
			return deny(c, l.Peek(identifier))
		},
		ErrorHandler: func(c echo.Context, err error) error {
			return echo.NewHTTPError(http.StatusForbidden, err.Error())
		},
	})
}

// TokenKey derives a limiter key from a bearer token so the secret itself
// is never held in the window map.
func TokenKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:8])
}
