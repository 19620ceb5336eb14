package entity

import "time"

const (
	MaxIntakeMl = 5000
	// MaxTimezoneOffset bounds client offsets in minutes (UTC-14 .. UTC+14).
	MaxTimezoneOffset = 840
)

// WaterIntake is one logged drink inside a daily record.
type WaterIntake struct {
	ID         string    `json:"id"`
	Ml         int       `json:"ml"`
	ConsumedAt time.Time `json:"consumed_at"`
}

// DailyWaterRecord aggregates a user's intake for one UTC day.
//
// ConsumedWater is always the sum of WaterIntakes[].Ml, ConsumedTimes their
// count, and ConsumedWaterPercentage is derived from ConsumedWater and
// DailyWaterGoal.
type DailyWaterRecord struct {
	ID                      string        `json:"id"`
	UserID                  string        `json:"user_id"`
	EntryDate               time.Time     `json:"entry_date"`
	DailyWaterGoal          int           `json:"daily_water_goal"`
	ConsumedWater           int           `json:"consumed_water"`
	ConsumedTimes           int           `json:"consumed_times"`
	ConsumedWaterPercentage int           `json:"consumed_water_percentage"`
	WaterIntakes            []WaterIntake `json:"water_intakes"`
}

// Clone returns a deep copy so callers can derive a new record without
// touching the stored one.
func (r *DailyWaterRecord) Clone() *DailyWaterRecord {
	if r == nil {
		return nil
	}
	out := *r
	out.WaterIntakes = make([]WaterIntake, len(r.WaterIntakes))
	copy(out.WaterIntakes, r.WaterIntakes)
	return &out
}

// Summary projects the record for range reports.
func (r *DailyWaterRecord) Summary() DailySummary {
	return DailySummary{
		EntryDate:               r.EntryDate,
		DailyWaterGoal:          r.DailyWaterGoal,
		ConsumedWater:           r.ConsumedWater,
		ConsumedTimes:           r.ConsumedTimes,
		ConsumedWaterPercentage: r.ConsumedWaterPercentage,
	}
}

// DailySummary is a daily record without its intake entries or id.
type DailySummary struct {
	EntryDate               time.Time `json:"entry_date"`
	DailyWaterGoal          int       `json:"daily_water_goal"`
	ConsumedWater           int       `json:"consumed_water"`
	ConsumedTimes           int       `json:"consumed_times"`
	ConsumedWaterPercentage int       `json:"consumed_water_percentage"`
}

// RecordDefaults are the values a record is created with on first use.
type RecordDefaults struct {
	DailyWaterGoal int
}
