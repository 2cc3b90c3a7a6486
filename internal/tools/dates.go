package tools

import (
	"time"

	"fitgate/internal/fault"
	"fitgate/internal/provider"
)

const (
	// defaultRangeDays is used when no start date is given.
	defaultRangeDays = 7

	// maxRangeDays bounds a single request.
	maxRangeDays = 90
)

// parseDateRange reads start_date and end_date (YYYY-MM-DD). A missing end
// date is today; a missing start date is six days before the end.
func parseDateRange(args map[string]any, now time.Time) (provider.DateRange, error) {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	end, err := dateArg(args, "end_date", today)
	if err != nil {
		return provider.DateRange{}, err
	}
	start, err := dateArg(args, "start_date", end.AddDate(0, 0, -(defaultRangeDays-1)))
	if err != nil {
		return provider.DateRange{}, err
	}

	r := provider.DateRange{Start: start, End: end}
	if start.After(end) {
		return r, fault.Newf(fault.KindValidation, "start_date %s is after end_date %s",
			start.Format(provider.DateLayout), end.Format(provider.DateLayout))
	}
	if r.Days() > maxRangeDays {
		return r, fault.Newf(fault.KindValidation, "date range spans %d days, maximum is %d", r.Days(), maxRangeDays)
	}
	return r, nil
}

func dateArg(args map[string]any, name string, fallback time.Time) (time.Time, error) {
	raw, ok := args[name]
	if !ok || raw == nil {
		return fallback, nil
	}
	s, ok := raw.(string)
	if !ok {
		return time.Time{}, fault.Newf(fault.KindValidation, "%s must be a string in YYYY-MM-DD format", name)
	}
	if s == "" {
		return fallback, nil
	}
	t, err := time.Parse(provider.DateLayout, s)
	if err != nil {
		return time.Time{}, fault.Newf(fault.KindValidation, "%s must be YYYY-MM-DD, got %q", name, s)
	}
	return t, nil
}

type rangeJSON struct {
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
}

func rangeOf(r provider.DateRange) rangeJSON {
	return rangeJSON{StartDate: r.Start.Format(provider.DateLayout), EndDate: r.End.Format(provider.DateLayout)}
}
