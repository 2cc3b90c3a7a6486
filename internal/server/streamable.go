package server

import (
	"errors"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"

	"fitgate/internal/fault"
)

// handleStreamable answers a JSON-RPC message synchronously without a
// session. Notifications get 202 and no body.
func (s *Server) handleStreamable(c echo.Context) error {
	body, err := readBody(c)
	if err != nil {
		return err
	}
	req, bad := decodeRequest(body)
	if bad != nil {
		return c.JSON(http.StatusBadRequest, bad)
	}

	resp := s.dispatcher.Dispatch(c.Request().Context(), nil, req)
	if resp == nil {
		return c.NoContent(http.StatusAccepted)
	}
	return c.JSON(http.StatusOK, resp)
}

func readBody(c echo.Context) ([]byte, error) {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		var he *echo.HTTPError
		if errors.As(err, &he) {
			return nil, he
		}
		return nil, fault.Wrap(fault.KindValidation, err, "failed to read request body")
	}
	return body, nil
}
