package oauth

import (
	"bytes"
	"html/template"
	"net/http"
	"time"

	"github.com/Masterminds/sprig/v3"
	"github.com/labstack/echo/v4"

	"fitgate/internal/fault"
	"fitgate/pkg/logging"
)

// Handler serves the /auth endpoints.
type Handler struct {
	manager *Manager
	dev     bool
	pages   *template.Template
}

// NewHandler creates the HTTP handler for the authorization endpoints. dev
// controls whether fault detail is shown on the callback error page.
func NewHandler(manager *Manager, dev bool) *Handler {
	return &Handler{
		manager: manager,
		dev:     dev,
		pages:   template.Must(template.New("page").Funcs(sprig.FuncMap()).Parse(pageTemplate)),
	}
}

// Register mounts the handlers on g. Routes that reveal or change the
// credential are wrapped in protect.
func (h *Handler) Register(g *echo.Group, protect echo.MiddlewareFunc) {
	g.GET("/authorize", h.HandleAuthorize)
	g.GET("/callback", h.HandleCallback)
	g.GET("/status", h.HandleStatus, protect)
	g.POST("/disconnect", h.HandleDisconnect, protect)
}

// HandleAuthorize redirects the browser to the upstream consent page.
func (h *Handler) HandleAuthorize(c echo.Context) error {
	target, err := h.manager.BuildAuthorizeRedirect()
	if err != nil {
		return err
	}
	return c.Redirect(http.StatusFound, target)
}

// HandleCallback completes the flow and renders a result page.
func (h *Handler) HandleCallback(c echo.Context) error {
	q := c.QueryParams()
	errParam := q.Get("error")
	if desc := q.Get("error_description"); errParam != "" && desc != "" {
		errParam += ": " + desc
	}

	err := h.manager.HandleCallback(c.Request().Context(), q.Get("code"), q.Get("state"), errParam)
	if err != nil {
		f := fault.As(err)
		logging.Warn("OAuth", "Callback failed: %v", err)
		return h.renderPage(c, f.HTTPStatus(), page{
			Title:   "Authentication Failed",
			Failed:  true,
			Message: f.PublicMessage(h.dev),
		})
	}

	p := page{Title: "Authentication Successful", Message: "fitgate is now connected to your fitness account."}
	if status, err := h.manager.Status(); err == nil && status.ExpiresAt != nil {
		p.ExpiresAt = *status.ExpiresAt
	}
	return h.renderPage(c, http.StatusOK, p)
}

// HandleStatus returns the credential status as JSON.
func (h *Handler) HandleStatus(c echo.Context) error {
	status, err := h.manager.Status()
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, status)
}

// HandleDisconnect deletes the stored credential.
func (h *Handler) HandleDisconnect(c echo.Context) error {
	if err := h.manager.Disconnect(); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{"disconnected": true})
}

type page struct {
	Title     string
	Message   string
	Failed    bool
	ExpiresAt time.Time
}

// setSecurityHeaders sets recommended security headers for HTML responses.
func setSecurityHeaders(h http.Header) {
	h.Set("X-Content-Type-Options", "nosniff")
	h.Set("X-Frame-Options", "DENY")
	h.Set("Content-Security-Policy", "default-src 'none'; style-src 'unsafe-inline'")
	h.Set("Referrer-Policy", "no-referrer")
	h.Set("Cache-Control", "no-store, no-cache, must-revalidate")
}

func (h *Handler) renderPage(c echo.Context, status int, p page) error {
	var buf bytes.Buffer
	if err := h.pages.Execute(&buf, p); err != nil {
		return fault.Wrap(fault.KindInternal, err, "failed to render page")
	}
	setSecurityHeaders(c.Response().Header())
	return c.HTMLBlob(status, buf.Bytes())
}

const pageTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>{{ .Title }} - fitgate</title>
    <style>
        body {
            font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif;
            background: #101820;
            min-height: 100vh;
            display: flex;
            align-items: center;
            justify-content: center;
            color: #e8e8e8;
            margin: 0;
        }
        .container {
            text-align: center;
            padding: 3rem;
            background: rgba(255, 255, 255, 0.05);
            border-radius: 16px;
            max-width: 500px;
        }
        .icon { font-size: 3rem; color: {{ if .Failed }}#ff6b6b{{ else }}#00d4aa{{ end }}; }
        p { color: #a0a0a0; line-height: 1.6; }
        .footer { margin-top: 2rem; font-size: 0.875rem; color: #666; }
    </style>
</head>
<body>
    <div class="container">
        <div class="icon">{{ if .Failed }}&#10005;{{ else }}&#10003;{{ end }}</div>
        <h1>{{ .Title }}</h1>
        <p>{{ .Message | default "Something went wrong." }}</p>
        {{- if .Failed }}
        <p>Visit <code>/auth/authorize</code> to try again.</p>
        {{- else }}
        {{- if not .ExpiresAt.IsZero }}
        <p>Access token valid until {{ .ExpiresAt | date "2006-01-02 15:04 MST" }}.</p>
        {{- end }}
        <p>You can close this window and return to your MCP client.</p>
        {{- end }}
        <div class="footer">fitgate &middot; {{ now | date "2006" }}</div>
    </div>
</body>
</html>`
