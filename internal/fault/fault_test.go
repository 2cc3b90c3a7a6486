package fault

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestError_Mapping(t *testing.T) {
	tests := []struct {
		kind       Kind
		wantStatus int
		wantCode   int
	}{
		{KindAuthorizationDenied, http.StatusBadRequest, mcp.INTERNAL_ERROR},
		{KindInvalidState, http.StatusBadRequest, mcp.INTERNAL_ERROR},
		{KindNotAuthenticated, http.StatusForbidden, CodeAuthenticationRequired},
		{KindReauthenticationRequired, http.StatusForbidden, CodeAuthenticationRequired},
		{KindRefreshFailed, http.StatusForbidden, CodeAuthenticationRequired},
		{KindUpstreamRateLimited, http.StatusTooManyRequests, mcp.INTERNAL_ERROR},
		{KindUpstreamUnavailable, http.StatusBadGateway, mcp.INTERNAL_ERROR},
		{KindValidation, http.StatusBadRequest, mcp.INVALID_PARAMS},
		{KindUnknownMethod, http.StatusNotFound, mcp.METHOD_NOT_FOUND},
		{KindDecryption, http.StatusInternalServerError, mcp.INTERNAL_ERROR},
		{KindPersistence, http.StatusInternalServerError, mcp.INTERNAL_ERROR},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			f := New(tt.kind, "x")
			assert.Equal(t, tt.wantStatus, f.HTTPStatus())
			assert.Equal(t, tt.wantCode, f.JSONRPCCode())
		})
	}
}

func TestKindOf(t *testing.T) {
	t.Run("wrapped fault", func(t *testing.T) {
		err := fmt.Errorf("outer: %w", New(KindInvalidState, "bad state"))
		assert.Equal(t, KindInvalidState, KindOf(err))
		assert.True(t, Is(err, KindInvalidState))
	})

	t.Run("foreign error", func(t *testing.T) {
		assert.Equal(t, KindInternal, KindOf(errors.New("plain")))
	})

	t.Run("nil error", func(t *testing.T) {
		assert.False(t, Is(nil, KindInternal))
	})
}

func TestErrorsIs(t *testing.T) {
	err := Wrap(KindDecryption, errors.New("cipher: message authentication failed"), "decrypt")
	assert.True(t, errors.Is(err, New(KindDecryption, "")))
	assert.False(t, errors.Is(err, New(KindPersistence, "")))
}

func TestAs(t *testing.T) {
	f := As(errors.New("boom"))
	require.NotNil(t, f)
	assert.Equal(t, KindInternal, f.Kind)
	assert.Contains(t, f.Error(), "boom")
}

func TestRetryAfterSeconds(t *testing.T) {
	assert.Equal(t, 0, New(KindRateLimited, "x").RetryAfterSeconds())
	assert.Equal(t, 1, RateLimited(false, 10*time.Millisecond, "x").RetryAfterSeconds())
	assert.Equal(t, 2, RateLimited(false, 1500*time.Millisecond, "x").RetryAfterSeconds())
	assert.Equal(t, 900, RateLimited(true, 15*time.Minute, "x").RetryAfterSeconds())
	assert.Equal(t, KindUpstreamRateLimited, RateLimited(true, time.Second, "x").Kind)
}

func TestPublicMessage(t *testing.T) {
	f := Wrap(KindPersistence, errors.New("open /var/lib/fitgate/token.json: permission denied"), "failed to write token file")

	assert.Contains(t, f.PublicMessage(true), "/var/lib/fitgate")
	assert.NotContains(t, f.PublicMessage(false), "/var/lib/fitgate")
	assert.Equal(t, "failed to store credentials", f.PublicMessage(false))

	v := New(KindValidation, "start_date must be YYYY-MM-DD")
	assert.Equal(t, "start_date must be YYYY-MM-DD", v.PublicMessage(false))
}
