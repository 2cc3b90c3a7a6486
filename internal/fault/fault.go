package fault

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
)

// Kind classifies a fault so transport boundaries can translate it into an
// HTTP status and a JSON-RPC error code.
type Kind string

const (
	KindConfiguration            Kind = "configuration_error"
	KindAuthorizationDenied      Kind = "authorization_denied"
	KindInvalidState             Kind = "invalid_state"
	KindNotAuthenticated         Kind = "not_authenticated"
	KindReauthenticationRequired Kind = "reauthentication_required"
	KindRefreshFailed            Kind = "refresh_failed"
	KindUpstreamRateLimited      Kind = "upstream_rate_limited"
	KindUpstreamUnavailable      Kind = "upstream_unavailable"
	KindUpstreamForbidden        Kind = "upstream_forbidden"
	KindUpstreamNotFound         Kind = "upstream_not_found"
	KindValidation               Kind = "validation_error"
	KindUnknownMethod            Kind = "unknown_method"
	KindDecryption               Kind = "decryption_error"
	KindPersistence              Kind = "persistence_error"
	KindRateLimited              Kind = "rate_limited"
	KindInternal                 Kind = "internal_error"
)

// CodeAuthenticationRequired is the JSON-RPC error code reserved for faults
// the client can resolve by re-running the authorization flow.
const CodeAuthenticationRequired = -32001

// Error is a typed fault. Lower layers return it; only transport handlers
// turn it into a response.
type Error struct {
	Kind    Kind
	Message string
	Cause   error

	// RetryAfter is set for rate-limit faults.
	RetryAfter time.Duration
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap returns the underlying cause for error chain inspection.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target is a fault of the same kind, so that
// errors.Is(err, fault.New(fault.KindInvalidState, "")) works.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

// New creates a fault of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Newf creates a fault with a formatted message.
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates a fault that wraps cause.
func Wrap(kind Kind, cause error, message string) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// RateLimited creates a rate-limit fault with a retry hint. upstream selects
// between the upstream API quota and the gateway's own guards.
func RateLimited(upstream bool, retryAfter time.Duration, message string) *Error {
	kind := KindRateLimited
	if upstream {
		kind = KindUpstreamRateLimited
	}
	return &Error{Kind: kind, Message: message, RetryAfter: retryAfter}
}

// KindOf returns the kind of the first fault in err's chain, or
// KindInternal when err carries no fault.
func KindOf(err error) Kind {
	var f *Error
	if errors.As(err, &f) {
		return f.Kind
	}
	return KindInternal
}

// Is reports whether err carries a fault of the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// As extracts the fault from err's chain, wrapping foreign errors as
// internal faults.
func As(err error) *Error {
	var f *Error
	if errors.As(err, &f) {
		return f
	}
	return Wrap(KindInternal, err, "internal error")
}

// HTTPStatus maps the fault kind onto an HTTP status code.
func (e *Error) HTTPStatus() int {
	switch e.Kind {
	case KindAuthorizationDenied, KindInvalidState, KindValidation:
		return http.StatusBadRequest
	case KindNotAuthenticated, KindReauthenticationRequired, KindRefreshFailed, KindUpstreamForbidden:
		return http.StatusForbidden
	case KindUpstreamNotFound, KindUnknownMethod:
		return http.StatusNotFound
	case KindUpstreamRateLimited, KindRateLimited:
		return http.StatusTooManyRequests
	case KindUpstreamUnavailable:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// JSONRPCCode maps the fault kind onto a JSON-RPC error code.
func (e *Error) JSONRPCCode() int {
	switch e.Kind {
	case KindUnknownMethod:
		return mcp.METHOD_NOT_FOUND
	case KindValidation:
		return mcp.INVALID_PARAMS
	case KindNotAuthenticated, KindReauthenticationRequired, KindRefreshFailed:
		return CodeAuthenticationRequired
	default:
		return mcp.INTERNAL_ERROR
	}
}

// RequiresAuthentication reports whether the client should restart the
// authorization flow.
func (e *Error) RequiresAuthentication() bool {
	return e.JSONRPCCode() == CodeAuthenticationRequired
}

// RetryAfterSeconds rounds the retry hint up to whole seconds.
func (e *Error) RetryAfterSeconds() int {
	if e.RetryAfter <= 0 {
		return 0
	}
	return int((e.RetryAfter + time.Second - 1) / time.Second)
}

// genericMessages replace fault detail outside development mode.
var genericMessages = map[Kind]string{
	KindConfiguration:            "server is misconfigured",
	KindAuthorizationDenied:      "authorization was denied",
	KindInvalidState:             "invalid or expired authorization state (CSRF protection)",
	KindNotAuthenticated:         "not authenticated; visit /auth/authorize to connect",
	KindReauthenticationRequired: "re-authentication required; visit /auth/authorize",
	KindRefreshFailed:            "re-authentication required; visit /auth/authorize",
	KindUpstreamRateLimited:      "upstream API rate limit reached",
	KindUpstreamUnavailable:      "upstream API unavailable",
	KindUpstreamForbidden:        "upstream API denied access to this resource",
	KindUpstreamNotFound:         "upstream resource not found",
	KindDecryption:               "stored credentials could not be read",
	KindPersistence:              "failed to store credentials",
	KindRateLimited:              "rate limit exceeded",
	KindInternal:                 "internal error",
}

// PublicMessage returns the message presented to clients. Validation and
// unknown-method faults describe the caller's own input and are always
// passed through; everything else is genericized unless dev is set.
func (e *Error) PublicMessage(dev bool) string {
	if dev || e.Kind == KindValidation || e.Kind == KindUnknownMethod {
		return e.Error()
	}
	if msg, ok := genericMessages[e.Kind]; ok {
		return msg
	}
	return genericMessages[KindInternal]
}
