package provider

import "time"

// DateLayout is the upstream API's calendar date format.
const DateLayout = "2006-01-02"

// DateRange is an inclusive range of calendar days.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// Days returns the number of calendar days in the range.
func (r DateRange) Days() int {
	return int(r.End.Sub(r.Start).Hours()/24) + 1
}

func (r DateRange) String() string {
	return r.Start.Format(DateLayout) + ".." + r.End.Format(DateLayout)
}

// PersonalInfo is the account owner's profile.
type PersonalInfo struct {
	ID            string  `json:"id"`
	Age           int     `json:"age,omitempty"`
	Weight        float64 `json:"weight,omitempty"`
	Height        float64 `json:"height,omitempty"`
	BiologicalSex string  `json:"biological_sex,omitempty"`
	Email         string  `json:"email,omitempty"`
}

// SleepContributors break down a daily sleep score.
type SleepContributors struct {
	DeepSleep   int `json:"deep_sleep"`
	Efficiency  int `json:"efficiency"`
	Latency     int `json:"latency"`
	REMSleep    int `json:"rem_sleep"`
	Restfulness int `json:"restfulness"`
	Timing      int `json:"timing"`
	TotalSleep  int `json:"total_sleep"`
}

// DailySleep is one day's sleep score.
type DailySleep struct {
	ID           string            `json:"id"`
	Day          string            `json:"day"`
	Score        *int              `json:"score"`
	Timestamp    string            `json:"timestamp"`
	Contributors SleepContributors `json:"contributors"`
}

// ReadinessContributors break down a daily readiness score.
type ReadinessContributors struct {
	ActivityBalance     *int `json:"activity_balance"`
	BodyTemperature     *int `json:"body_temperature"`
	HRVBalance          *int `json:"hrv_balance"`
	PreviousDayActivity *int `json:"previous_day_activity"`
	PreviousNight       *int `json:"previous_night"`
	RecoveryIndex       *int `json:"recovery_index"`
	RestingHeartRate    *int `json:"resting_heart_rate"`
	SleepBalance        *int `json:"sleep_balance"`
}

// DailyReadiness is one day's readiness score.
type DailyReadiness struct {
	ID                        string                `json:"id"`
	Day                       string                `json:"day"`
	Score                     *int                  `json:"score"`
	TemperatureDeviation      *float64              `json:"temperature_deviation"`
	TemperatureTrendDeviation *float64              `json:"temperature_trend_deviation"`
	Timestamp                 string                `json:"timestamp"`
	Contributors              ReadinessContributors `json:"contributors"`
}

// DailyActivity is one day's activity summary. Durations are seconds.
type DailyActivity struct {
	ID                        string `json:"id"`
	Day                       string `json:"day"`
	Score                     *int   `json:"score"`
	ActiveCalories            int    `json:"active_calories"`
	TotalCalories             int    `json:"total_calories"`
	Steps                     int    `json:"steps"`
	EquivalentWalkingDistance int    `json:"equivalent_walking_distance"`
	HighActivityTime          int    `json:"high_activity_time"`
	MediumActivityTime        int    `json:"medium_activity_time"`
	LowActivityTime           int    `json:"low_activity_time"`
	SedentaryTime             int    `json:"sedentary_time"`
	RestingTime               int    `json:"resting_time"`
	Timestamp                 string `json:"timestamp"`
}

// HeartRate is a single heart rate sample.
type HeartRate struct {
	BPM       int    `json:"bpm"`
	Source    string `json:"source"`
	Timestamp string `json:"timestamp"`
}

// Workout is one recorded workout.
type Workout struct {
	ID            string   `json:"id"`
	Activity      string   `json:"activity"`
	Calories      *float64 `json:"calories"`
	Day           string   `json:"day"`
	Distance      *float64 `json:"distance"`
	StartDatetime string   `json:"start_datetime"`
	EndDatetime   string   `json:"end_datetime"`
	Intensity     string   `json:"intensity"`
	Label         *string  `json:"label"`
	Source        string   `json:"source"`
}

// collection is the paginated list envelope the upstream returns.
type collection[T any] struct {
	Data      []T     `json:"data"`
	NextToken *string `json:"next_token"`
}
