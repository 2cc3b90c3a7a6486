package oauth

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noProtect(next echo.HandlerFunc) echo.HandlerFunc { return next }

func newHandlerFixture(t *testing.T, tokenURL string) (*echo.Echo, *managerFixture) {
	t.Helper()
	f := newManagerFixture(t, tokenURL)
	e := echo.New()
	NewHandler(f.manager, false).Register(e.Group("/auth"), noProtect)
	return e, f
}

func serve(e *echo.Echo, method, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(method, target, nil))
	return rec
}

func TestHandler_AuthorizeRedirects(t *testing.T) {
	e, _ := newHandlerFixture(t, "http://unused")

	rec := serve(e, http.MethodGet, "/auth/authorize")

	assert.Equal(t, http.StatusFound, rec.Code)
	loc, err := url.Parse(rec.Header().Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, "auth.example.com", loc.Host)
	assert.NotEmpty(t, loc.Query().Get("state"))
}

func TestHandler_CallbackSuccess(t *testing.T) {
	server := newTokenServer(t, func(url.Values) (int, map[string]any) {
		return http.StatusOK, tokenResponse("access-1", "refresh-1")
	})
	e, f := newHandlerFixture(t, server.URL)

	req, err := f.states.Begin()
	require.NoError(t, err)

	rec := serve(e, http.MethodGet, "/auth/callback?code=abc&state="+url.QueryEscape(req.State))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
	assert.Contains(t, rec.Body.String(), "Authentication Successful")
	assert.Contains(t, rec.Body.String(), epoch.Add(time.Hour).Local().Format("2006-01-02 15:04 MST"))
	assert.NotContains(t, rec.Body.String(), "access-1")
}

func TestHandler_CallbackFailures(t *testing.T) {
	e, _ := newHandlerFixture(t, "http://unused")

	tests := []struct {
		name   string
		query  string
		status int
		text   string
	}{
		{"denied", "?error=access_denied&error_description=User+said+no", http.StatusBadRequest, "authorization was denied"},
		{"bad state", "?code=abc&state=forged", http.StatusBadRequest, "CSRF protection"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(e, http.MethodGet, "/auth/callback"+tt.query)

			assert.Equal(t, tt.status, rec.Code)
			assert.Contains(t, rec.Body.String(), "Authentication Failed")
			assert.Contains(t, rec.Body.String(), tt.text)
			assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
		})
	}
}

func TestHandler_StatusAndDisconnect(t *testing.T) {
	e, f := newHandlerFixture(t, "http://unused")
	require.NoError(t, f.tokens.Save(sampleCredential(epoch.Add(time.Hour))))

	rec := serve(e, http.MethodGet, "/auth/status")
	require.Equal(t, http.StatusOK, rec.Code)

	var status map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Equal(t, true, status["connected"])
	assert.Equal(t, "authenticated", status["state"])
	assert.Equal(t, "daily heartrate", status["scope"])

	rec = serve(e, http.MethodPost, "/auth/disconnect")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = serve(e, http.MethodGet, "/auth/status")
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Equal(t, false, status["connected"])
}
