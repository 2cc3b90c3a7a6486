package tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	"k8s.io/utils/clock"

	"fitgate/internal/provider"
)

// AccessTokenSource hands out a currently valid upstream access token.
type AccessTokenSource interface {
	GetValidAccessToken(ctx context.Context) (string, error)
}

// DataProvider reads typed records from the upstream fitness API.
type DataProvider interface {
	PersonalInfo(ctx context.Context, token string) (*provider.PersonalInfo, error)
	DailySleep(ctx context.Context, token string, r provider.DateRange) ([]provider.DailySleep, error)
	DailyReadiness(ctx context.Context, token string, r provider.DateRange) ([]provider.DailyReadiness, error)
	DailyActivity(ctx context.Context, token string, r provider.DateRange) ([]provider.DailyActivity, error)
	HeartRate(ctx context.Context, token string, r provider.DateRange) ([]provider.HeartRate, error)
	Workouts(ctx context.Context, token string, r provider.DateRange) ([]provider.Workout, error)
}

// Fitness registers the fitness data tools.
type Fitness struct {
	tokens AccessTokenSource
	data   DataProvider
	clock  clock.PassiveClock
	trend  TrendPolicy
}

// NewFitness creates the fitness tool set. A nil trend uses
// DefaultTrendPolicy.
func NewFitness(tokens AccessTokenSource, data DataProvider, clk clock.PassiveClock, trend TrendPolicy) *Fitness {
	if clk == nil {
		clk = clock.RealClock{}
	}
	if trend == nil {
		trend = DefaultTrendPolicy
	}
	return &Fitness{tokens: tokens, data: data, clock: clk, trend: trend}
}

func dateOptions() []mcp.ToolOption {
	return []mcp.ToolOption{
		mcp.WithString("start_date",
			mcp.Description("First day to include, YYYY-MM-DD (default: six days before end_date)"),
		),
		mcp.WithString("end_date",
			mcp.Description("Last day to include, YYYY-MM-DD (default: today)"),
		),
	}
}

func newRangeTool(name, description string) mcp.Tool {
	return mcp.NewTool(name, append([]mcp.ToolOption{mcp.WithDescription(description)}, dateOptions()...)...)
}

// Register adds every fitness tool to r.
func (f *Fitness) Register(r *Registry) {
	r.Add(Tool{
		Definition: mcp.NewTool("get_personal_info",
			mcp.WithDescription("Get the account owner's profile: age, weight, height and biological sex"),
		),
		Handler:   f.personalInfo,
		Resolve:   noArgs,
		Authorize: f.authorize,
	})

	f.addRangeTool(r, "get_daily_sleep",
		"Get daily sleep scores and their contributors for a date range (max 90 days)",
		rangeHandler(f, f.data.DailySleep))
	f.addRangeTool(r, "get_daily_readiness",
		"Get daily readiness scores, temperature deviation and contributors for a date range",
		rangeHandler(f, f.data.DailyReadiness))
	f.addRangeTool(r, "get_daily_activity",
		"Get daily activity: score, steps, calories and time spent per intensity",
		rangeHandler(f, f.data.DailyActivity))
	f.addRangeTool(r, "get_heart_rate",
		"Get heart rate samples (bpm) for a date range",
		rangeHandler(f, f.data.HeartRate))
	f.addRangeTool(r, "get_workouts",
		"Get recorded workouts with activity type, intensity, calories and distance",
		rangeHandler(f, f.data.Workouts))
	f.addRangeTool(r, "get_health_summary",
		"Summarize sleep, readiness and activity over a date range: averages and trend per metric",
		f.healthSummary)
}

func (f *Fitness) addRangeTool(r *Registry, name, description string, handler HandlerFunc) {
	r.Add(Tool{
		Definition: newRangeTool(name, description),
		Handler:    handler,
		Resolve:    f.resolveRange,
		Authorize:  f.authorize,
	})
}

// resolveRange pins defaulted dates to the current day, so a cached result
// for "the last week" is never served once the day has changed.
func (f *Fitness) resolveRange(args map[string]any) (map[string]any, error) {
	dr, err := parseDateRange(args, f.clock.Now())
	if err != nil {
		return nil, err
	}
	rj := rangeOf(dr)
	return map[string]any{"start_date": rj.StartDate, "end_date": rj.EndDate}, nil
}

func noArgs(map[string]any) (map[string]any, error) {
	return nil, nil
}

func (f *Fitness) authorize(ctx context.Context) error {
	_, err := f.tokens.GetValidAccessToken(ctx)
	return err
}

type recordsResult[T any] struct {
	rangeJSON
	Count int `json:"count"`
	Data  []T `json:"data"`
}

// rangeHandler adapts a DataProvider range method into a tool handler.
func rangeHandler[T any](f *Fitness, fetch func(context.Context, string, provider.DateRange) ([]T, error)) HandlerFunc {
	return func(ctx context.Context, args map[string]any) (any, error) {
		dr, err := parseDateRange(args, f.clock.Now())
		if err != nil {
			return nil, err
		}
		token, err := f.tokens.GetValidAccessToken(ctx)
		if err != nil {
			return nil, err
		}
		records, err := fetch(ctx, token, dr)
		if err != nil {
			return nil, err
		}
		if records == nil {
			records = []T{}
		}
		return recordsResult[T]{rangeJSON: rangeOf(dr), Count: len(records), Data: records}, nil
	}
}

func (f *Fitness) personalInfo(ctx context.Context, _ map[string]any) (any, error) {
	token, err := f.tokens.GetValidAccessToken(ctx)
	if err != nil {
		return nil, err
	}
	return f.data.PersonalInfo(ctx, token)
}

// MetricSummary describes one daily score over a range.
type MetricSummary struct {
	Average *float64 `json:"average"`
	Min     *float64 `json:"min,omitempty"`
	Max     *float64 `json:"max,omitempty"`
	Days    int      `json:"days"`
	Trend   Trend    `json:"trend"`
}

// HealthSummary is the get_health_summary result.
type HealthSummary struct {
	rangeJSON
	Sleep        MetricSummary `json:"sleep"`
	Readiness    MetricSummary `json:"readiness"`
	Activity     MetricSummary `json:"activity"`
	AverageSteps *float64      `json:"average_steps"`
}

func (f *Fitness) healthSummary(ctx context.Context, args map[string]any) (any, error) {
	dr, err := parseDateRange(args, f.clock.Now())
	if err != nil {
		return nil, err
	}
	token, err := f.tokens.GetValidAccessToken(ctx)
	if err != nil {
		return nil, err
	}

	sleep, err := f.data.DailySleep(ctx, token, dr)
	if err != nil {
		return nil, err
	}
	readiness, err := f.data.DailyReadiness(ctx, token, dr)
	if err != nil {
		return nil, err
	}
	activity, err := f.data.DailyActivity(ctx, token, dr)
	if err != nil {
		return nil, err
	}

	var sleepScores, readinessScores, activityScores, steps []float64
	for _, s := range sleep {
		sleepScores = appendScore(sleepScores, s.Score)
	}
	for _, r := range readiness {
		readinessScores = appendScore(readinessScores, r.Score)
	}
	for _, a := range activity {
		activityScores = appendScore(activityScores, a.Score)
		steps = append(steps, float64(a.Steps))
	}

	return HealthSummary{
		rangeJSON:    rangeOf(dr),
		Sleep:        f.summarize(sleepScores),
		Readiness:    f.summarize(readinessScores),
		Activity:     f.summarize(activityScores),
		AverageSteps: mean(steps),
	}, nil
}

func appendScore(series []float64, score *int) []float64 {
	if score == nil {
		return series
	}
	return append(series, float64(*score))
}

func (f *Fitness) summarize(series []float64) MetricSummary {
	s := MetricSummary{
		Average: mean(series),
		Days:    len(series),
		Trend:   f.trend.Classify(series),
	}
	if len(series) > 0 {
		lo, hi := series[0], series[0]
		for _, v := range series[1:] {
			lo, hi = min(lo, v), max(hi, v)
		}
		s.Min, s.Max = &lo, &hi
	}
	return s
}

// mean returns the average rounded to one decimal, or nil for no samples.
func mean(series []float64) *float64 {
	if len(series) == 0 {
		return nil
	}
	var sum float64
	for _, v := range series {
		sum += v
	}
	avg := float64(int(sum/float64(len(series))*10+0.5)) / 10
	return &avg
}
