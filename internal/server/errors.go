package server

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"fitgate/internal/fault"
	"fitgate/pkg/logging"
)

// errorBody is the JSON body of every non-JSON-RPC error reply.
type errorBody struct {
	Error             string `json:"error"`
	Message           string `json:"message,omitempty"`
	RetryAfterSeconds int    `json:"retryAfterSeconds,omitempty"`
}

// handleError is the echo error handler. Faults map onto their HTTP status;
// framework errors keep theirs.
func (s *Server) handleError(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	var he *echo.HTTPError
	if errors.As(err, &he) {
		body := errorBody{Error: http.StatusText(he.Code)}
		if he.Code != http.StatusInternalServerError {
			body.Message = fmt.Sprint(he.Message)
		}
		if sendErr := c.JSON(he.Code, body); sendErr != nil {
			logging.Error("HTTP", sendErr, "Failed to write error response")
		}
		return
	}

	f := fault.As(err)
	status := f.HTTPStatus()
	if status >= http.StatusInternalServerError {
		logging.Error("HTTP", err, "%s %s failed", c.Request().Method, c.Path())
	} else {
		logging.Debug("HTTP", "%s %s: %v", c.Request().Method, c.Path(), err)
	}

	body := errorBody{
		Error:             string(f.Kind),
		Message:           f.PublicMessage(s.dev),
		RetryAfterSeconds: f.RetryAfterSeconds(),
	}
	if body.RetryAfterSeconds > 0 {
		c.Response().Header().Set("Retry-After", strconv.Itoa(body.RetryAfterSeconds))
	}
	if sendErr := c.JSON(status, body); sendErr != nil {
		logging.Error("HTTP", sendErr, "Failed to write error response")
	}
}
