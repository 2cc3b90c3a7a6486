package provider

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"k8s.io/utils/clock"

	"fitgate/internal/config"
	"fitgate/internal/fault"
	"fitgate/pkg/logging"
)

const (
	// maxPages stops runaway pagination.
	maxPages = 50

	// maxErrorBody is how much of an error response is kept for the log.
	maxErrorBody = 512
)

// Client reads the fitness REST API with a caller-supplied access token.
type Client struct {
	baseURL    string
	httpClient *http.Client
	clock      clock.PassiveClock
}

// NewClient creates a data API client. A nil httpClient gets one bounded by
// cfg.Timeout.
func NewClient(cfg config.UpstreamConfig, httpClient *http.Client, clk clock.PassiveClock) *Client {
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = config.DefaultUpstreamTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	if clk == nil {
		clk = clock.RealClock{}
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: httpClient,
		clock:      clk,
	}
}

// PersonalInfo fetches the account owner's profile.
func (c *Client) PersonalInfo(ctx context.Context, token string) (*PersonalInfo, error) {
	var info PersonalInfo
	if err := c.get(ctx, token, "/personal_info", nil, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// DailySleep fetches daily sleep scores.
func (c *Client) DailySleep(ctx context.Context, token string, r DateRange) ([]DailySleep, error) {
	return fetchCollection[DailySleep](ctx, c, token, "/daily_sleep", dateQuery(r))
}

// DailyReadiness fetches daily readiness scores.
func (c *Client) DailyReadiness(ctx context.Context, token string, r DateRange) ([]DailyReadiness, error) {
	return fetchCollection[DailyReadiness](ctx, c, token, "/daily_readiness", dateQuery(r))
}

// DailyActivity fetches daily activity summaries.
func (c *Client) DailyActivity(ctx context.Context, token string, r DateRange) ([]DailyActivity, error) {
	return fetchCollection[DailyActivity](ctx, c, token, "/daily_activity", dateQuery(r))
}

// HeartRate fetches heart rate samples from the start of r.Start to the end
// of r.End.
func (c *Client) HeartRate(ctx context.Context, token string, r DateRange) ([]HeartRate, error) {
	q := url.Values{}
	q.Set("start_datetime", r.Start.Format(time.RFC3339))
	q.Set("end_datetime", r.End.AddDate(0, 0, 1).Format(time.RFC3339))
	return fetchCollection[HeartRate](ctx, c, token, "/heartrate", q)
}

// Workouts fetches recorded workouts.
func (c *Client) Workouts(ctx context.Context, token string, r DateRange) ([]Workout, error) {
	return fetchCollection[Workout](ctx, c, token, "/workout", dateQuery(r))
}

func dateQuery(r DateRange) url.Values {
	q := url.Values{}
	q.Set("start_date", r.Start.Format(DateLayout))
	q.Set("end_date", r.End.Format(DateLayout))
	return q
}

// fetchCollection follows next_token until the collection is exhausted.
func fetchCollection[T any](ctx context.Context, c *Client, token, path string, q url.Values) ([]T, error) {
	var all []T
	for page := 0; page < maxPages; page++ {
		var resp collection[T]
		if err := c.get(ctx, token, path, q, &resp); err != nil {
			return nil, err
		}
		all = append(all, resp.Data...)

		if resp.NextToken == nil || *resp.NextToken == "" {
			return all, nil
		}
		q.Set("next_token", *resp.NextToken)
	}
	logging.Warn("Provider", "Stopped paginating %s after %d pages", path, maxPages)
	return all, nil
}

func (c *Client) get(ctx context.Context, token, path string, q url.Values, out any) error {
	target := c.baseURL + path
	if len(q) > 0 {
		target += "?" + q.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return fault.Wrap(fault.KindInternal, err, "failed to build upstream request")
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	start := c.clock.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fault.Wrap(fault.KindUpstreamUnavailable, err, "upstream API unreachable")
	}
	defer resp.Body.Close()

	logging.Debug("Provider", "GET %s -> %d (%s)", path, resp.StatusCode, c.clock.Since(start).Round(time.Millisecond))

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		logging.Debug("Provider", "Upstream error body for %s: %s", path, string(body))
		return c.statusFault(resp, path)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fault.Wrap(fault.KindUpstreamUnavailable, err, "malformed upstream response")
	}
	return nil
}

// statusFault maps a non-200 upstream status onto a fault.
func (c *Client) statusFault(resp *http.Response, path string) error {
	status := resp.StatusCode
	switch {
	case status == http.StatusUnauthorized:
		return fault.New(fault.KindReauthenticationRequired, "upstream API rejected the access token")
	case status == http.StatusForbidden:
		return fault.Newf(fault.KindUpstreamForbidden, "access to %s is not permitted by the granted scopes", path)
	case status == http.StatusNotFound:
		return fault.Newf(fault.KindUpstreamNotFound, "upstream resource %s not found", path)
	case status == http.StatusTooManyRequests:
		return fault.RateLimited(true, c.retryAfter(resp.Header.Get("Retry-After")), "upstream API rate limit reached")
	case status == http.StatusBadRequest || status == http.StatusUnprocessableEntity:
		return fault.Newf(fault.KindValidation, "upstream API rejected the request parameters (status %d)", status)
	default:
		return fault.Newf(fault.KindUpstreamUnavailable, "upstream API returned status %d", status)
	}
}

// retryAfter parses a Retry-After header given in seconds or as an HTTP
// date.
func (c *Client) retryAfter(header string) time.Duration {
	header = strings.TrimSpace(header)
	if header == "" {
		return 0
	}
	if secs, err := strconv.Atoi(header); err == nil {
		return time.Duration(max(secs, 0)) * time.Second
	}
	if when, err := http.ParseTime(header); err == nil {
		return max(when.Sub(c.clock.Now()), 0)
	}
	logging.Debug("Provider", "Ignoring unparsable Retry-After %q", header)
	return 0
}
