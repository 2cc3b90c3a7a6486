package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"fitgate/internal/fault"
	"fitgate/pkg/logging"
)

// messagesPath is announced to classic SSE clients in the endpoint event.
const messagesPath = "/messages"

// handleSSE opens a classic SSE stream. The stream announces where to post
// requests, then carries their responses and a heartbeat until the client
// leaves or the server shuts down.
func (s *Server) handleSSE(c echo.Context) error {
	session, err := s.sessions.Open()
	if errors.Is(err, ErrTooManySessions) {
		logging.Warn("Session", "Rejecting SSE stream: %d sessions open", s.sessions.Len())
		return echo.NewHTTPError(http.StatusServiceUnavailable, err.Error())
	}
	if err != nil {
		return fault.Wrap(fault.KindInternal, err, "failed to open session")
	}
	defer s.sessions.Remove(session.ID)

	ticker := s.clock.NewTicker(s.heartbeat)
	defer ticker.Stop()

	w := c.Response()
	h := w.Header()
	h.Set(echo.HeaderContentType, "text/event-stream")
	h.Set(echo.HeaderCacheControl, "no-cache")
	h.Set(echo.HeaderConnection, "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	id := logging.TruncateSessionID(session.ID)
	endpoint := fmt.Sprintf("%s?sessionId=%s", messagesPath, session.ID)
	if err := writeEvent(w, "endpoint", []byte(endpoint)); err != nil {
		logging.Debug("Session", "Stream %s closed before endpoint event: %v", id, err)
		return nil
	}
	logging.Info("Session", "SSE stream %s opened", id)

	ctx := c.Request().Context()
	for {
		select {
		case <-ctx.Done():
			logging.Info("Session", "SSE stream %s closed by client", id)
			return nil
		case <-session.Done():
			logging.Info("Session", "SSE stream %s closed by server", id)
			return nil
		case msg := <-session.Outbound():
			if err := writeEvent(w, "message", msg); err != nil {
				logging.Warn("Session", "Write to stream %s failed: %v", id, err)
				return nil
			}
		case <-ticker.C():
			if err := writeComment(w, "ping"); err != nil {
				logging.Warn("Session", "Heartbeat to stream %s failed: %v", id, err)
				return nil
			}
		}
	}
}

// handleMessages accepts a JSON-RPC message for a classic SSE session. The
// response is pushed onto the stream; the POST itself gets 202. Without an
// open stream the request is answered inline.
func (s *Server) handleMessages(c echo.Context) error {
	id := c.QueryParam("sessionId")
	if id == "" {
		return fault.New(fault.KindValidation, "sessionId query parameter is required")
	}
	body, err := readBody(c)
	if err != nil {
		return err
	}
	req, bad := decodeRequest(body)
	if bad != nil {
		return c.JSON(http.StatusBadRequest, bad)
	}

	ctx := c.Request().Context()
	session, ok := s.sessions.Get(id)
	if req.IsNotification() {
		s.dispatcher.Dispatch(ctx, session, req)
		return c.NoContent(http.StatusAccepted)
	}
	if !ok {
		logging.Debug("Session", "No open stream for %s, answering %s inline",
			logging.TruncateSessionID(id), req.Method)
		return c.JSON(http.StatusOK, s.dispatcher.Dispatch(ctx, nil, req))
	}

	// The work outlives the POST; it ends when the session does.
	bg := context.WithoutCancel(ctx)
	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()
		s.push(bg, session, req)
	}()
	return c.NoContent(http.StatusAccepted)
}

func (s *Server) push(ctx context.Context, session *Session, req *Request) {
	resp := s.dispatcher.Dispatch(ctx, session, req)
	data, err := json.Marshal(resp)
	if err != nil {
		logging.Error("Session", err, "Failed to encode %s response", req.Method)
		return
	}
	if err := session.Send(ctx, data); err != nil {
		logging.Debug("Session", "Dropped %s response for %s: %v",
			req.Method, logging.TruncateSessionID(session.ID), err)
	}
}

func writeEvent(w *echo.Response, event string, data []byte) error {
	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data); err != nil {
		return err
	}
	w.Flush()
	return nil
}

func writeComment(w *echo.Response, text string) error {
	if _, err := fmt.Fprintf(w, ": %s\n\n", text); err != nil {
		return err
	}
	w.Flush()
	return nil
}
