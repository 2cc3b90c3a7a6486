package tools

// Trend is the direction a daily score moved over a range.
type Trend string

const (
	TrendImproving        Trend = "improving"
	TrendDeclining        Trend = "declining"
	TrendStable           Trend = "stable"
	TrendInsufficientData Trend = "insufficient_data"
)

// TrendPolicy classifies a chronologically ordered series of daily scores.
type TrendPolicy interface {
	Classify(series []float64) Trend
}

// FirstLastTrend compares only the first and last samples. It ignores
// everything in between, so a single outlier at either end decides the
// result. It is a heuristic, not a statistical estimator.
type FirstLastTrend struct {
	// Threshold is the minimum absolute change that counts as movement.
	Threshold float64
}

// DefaultTrendPolicy is used when none is configured.
var DefaultTrendPolicy TrendPolicy = FirstLastTrend{Threshold: 5}

// Classify implements TrendPolicy.
func (p FirstLastTrend) Classify(series []float64) Trend {
	if len(series) < 2 {
		return TrendInsufficientData
	}
	delta := series[len(series)-1] - series[0]
	switch {
	case delta > p.Threshold:
		return TrendImproving
	case delta < -p.Threshold:
		return TrendDeclining
	default:
		return TrendStable
	}
}
