package server

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/elnormous/contenttype"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"fitgate/internal/ratelimit"
)

// maxBodySize bounds JSON-RPC request bodies.
const maxBodySize = "1M"

var jsonMediaType = contenttype.NewMediaType("application/json")

// bearerAuth rejects requests whose Authorization header does not carry
// the configured token. The comparison is constant-time.
func bearerAuth(expected string) echo.MiddlewareFunc {
	want := []byte(expected)
	return middleware.KeyAuthWithConfig(middleware.KeyAuthConfig{
		KeyLookup:  "header:" + echo.HeaderAuthorization,
		AuthScheme: "Bearer",
		Validator: func(key string, _ echo.Context) (bool, error) {
			return len(want) > 0 && subtle.ConstantTimeCompare([]byte(key), want) == 1, nil
		},
		ErrorHandler: func(_ error, c echo.Context) error {
			c.Response().Header().Set(echo.HeaderWWWAuthenticate, `Bearer realm="fitgate"`)
			return c.JSON(http.StatusUnauthorized, errorBody{
				Error:   "unauthorized",
				Message: "missing or invalid bearer token",
			})
		},
	})
}

// bearerToken returns the token from the Authorization header, or "".
func bearerToken(c echo.Context) string {
	scheme, token, ok := strings.Cut(c.Request().Header.Get(echo.HeaderAuthorization), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// tokenKey keys the per-token limiter. It runs after bearerAuth, so every
// request that reaches it carries the configured token.
func tokenKey(c echo.Context) string {
	token := bearerToken(c)
	if token == "" {
		return ""
	}
	return ratelimit.TokenKey(token)
}

// requireJSON answers 415 unless the request body is declared as JSON.
func requireJSON(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		mt, err := contenttype.GetMediaType(c.Request())
		if err != nil || !mt.Matches(jsonMediaType) {
			return c.JSON(http.StatusUnsupportedMediaType, errorBody{
				Error:   "unsupported_media_type",
				Message: "content-type must be application/json",
			})
		}
		return next(c)
	}
}

// chain composes middleware so that the first one runs outermost.
func chain(mws ...echo.MiddlewareFunc) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		for i := len(mws) - 1; i >= 0; i-- {
			next = mws[i](next)
		}
		return next
	}
}
