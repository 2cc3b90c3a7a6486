package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/mark3labs/mcp-go/mcp"
	"k8s.io/utils/clock"

	"fitgate/internal/config"
	"fitgate/internal/oauth"
	"fitgate/internal/ratelimit"
	"fitgate/pkg/logging"
)

// StatusSource reports whether an upstream credential is stored.
type StatusSource interface {
	Status() (*oauth.Status, error)
}

// Deps are the collaborators the server routes requests to. Auth, Status
// and the limiters are optional.
type Deps struct {
	Tools        ToolCaller
	Auth         *oauth.Handler
	Status       StatusSource
	TokenLimiter *ratelimit.Limiter
	IPLimiter    *ratelimit.Limiter
	Clock        clock.WithTicker
	Version      string
}

// Server is the gateway's HTTP front end.
type Server struct {
	echo       *echo.Echo
	httpServer *http.Server

	dispatcher *Dispatcher
	sessions   *SessionRegistry
	status     StatusSource
	clock      clock.WithTicker
	heartbeat  time.Duration
	dev        bool

	// inflight tracks requests dispatched in the background for a stream.
	inflight sync.WaitGroup
}

// New builds the server and mounts every route.
func New(cfg config.ServerConfig, deps Deps) *Server {
	if deps.Clock == nil {
		deps.Clock = clock.RealClock{}
	}
	heartbeat := cfg.HeartbeatInterval
	if heartbeat <= 0 {
		heartbeat = config.DefaultHeartbeatInterval
	}

	s := &Server{
		echo: echo.New(),
		dispatcher: NewDispatcher(deps.Tools, mcp.Implementation{
			Name:    "fitgate",
			Version: deps.Version,
		}, cfg.IsDevelopment()),
		sessions:  NewSessionRegistry(cfg.MaxSessions),
		status:    deps.Status,
		clock:     deps.Clock,
		heartbeat: heartbeat,
		dev:       cfg.IsDevelopment(),
	}

	e := s.echo
	e.HideBanner = true
	e.HidePort = true
	e.IPExtractor = echo.ExtractIPDirect()
	e.HTTPErrorHandler = s.handleError

	e.Use(middleware.Recover())
	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: uuid.NewString,
	}))
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURIPath:   true,
		LogStatus:    true,
		LogLatency:   true,
		LogRemoteIP:  true,
		LogRequestID: true,
		LogValuesFunc: func(_ echo.Context, v middleware.RequestLoggerValues) error {
			logging.Info("HTTP", "%s %s %d %s from %s [%s]",
				v.Method, v.URIPath, v.Status, v.Latency.Round(time.Millisecond), v.RemoteIP, v.RequestID)
			return nil
		},
	}))
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{cfg.CORSOrigin},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderAuthorization, echo.HeaderContentType},
	}))
	if deps.IPLimiter != nil {
		e.Use(deps.IPLimiter.IPMiddleware())
	}

	guards := []echo.MiddlewareFunc{bearerAuth(cfg.BearerToken)}
	if deps.TokenLimiter != nil {
		guards = append(guards, deps.TokenLimiter.Middleware(tokenKey))
	}
	protect := chain(guards...)
	post := chain(protect, requireJSON, middleware.BodyLimit(maxBodySize))

	e.GET("/health", s.handleHealth)

	if deps.Auth != nil {
		deps.Auth.Register(e.Group("/auth"), protect)
	}

	e.GET("/sse", s.handleSSE, protect)
	e.POST("/sse", s.handleStreamable, post)
	e.POST("/mcp", s.handleStreamable, post)
	e.POST("/messages", s.handleMessages, post)

	s.httpServer = &http.Server{
		Addr:              net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		Handler:           e,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.httpServer.RegisterOnShutdown(s.sessions.CloseAll)
	return s
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Sessions returns the open SSE session registry.
func (s *Server) Sessions() *SessionRegistry {
	return s.sessions
}

// Addr is the configured listen address.
func (s *Server) Addr() string {
	return s.httpServer.Addr
}

// Serve accepts connections on ln until Shutdown is called.
func (s *Server) Serve(ln net.Listener) error {
	logging.Info("HTTP", "Listening on %s", ln.Addr())
	if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// ListenAndServe listens on the configured address and serves until
// Shutdown is called.
func (s *Server) ListenAndServe() error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ln)
}

// Shutdown closes every open stream, waits for in-flight requests and stops
// the listener.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.httpServer.Shutdown(ctx)
	s.sessions.CloseAll()
	s.inflight.Wait()
	return err
}

type healthResponse struct {
	Status    string `json:"status"`
	Connected bool   `json:"connected"`
}

func (s *Server) handleHealth(c echo.Context) error {
	resp := healthResponse{Status: "ok"}
	if s.status != nil {
		if st, err := s.status.Status(); err == nil {
			resp.Connected = st.Connected
		} else {
			logging.Debug("HTTP", "Health check could not read credential status: %v", err)
		}
	}
	return c.JSON(http.StatusOK, resp)
}
