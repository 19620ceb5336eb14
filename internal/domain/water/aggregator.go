// Package water holds the pure aggregation rules for daily water records.
// Nothing here performs I/O: callers load one consistent snapshot of a
// record, derive the new state with these functions and persist it in a
// single atomic store operation.
package water

import (
	"math"
	"time"

	"github.com/oksasatya/go-water-tracker/internal/domain/apperror"
	"github.com/oksasatya/go-water-tracker/internal/domain/entity"
)

// PercentageOf returns round(consumed/goal*100). It is not clamped, so it
// exceeds 100 once the goal is passed. A non-positive goal yields 0.
func PercentageOf(consumed, goal int) int {
	if goal <= 0 {
		return 0
	}
	return int(math.Round(float64(consumed) / float64(goal) * 100))
}

// ValidateMl checks the volume of a single intake.
func ValidateMl(ml int) error {
	if ml <= 0 || ml > entity.MaxIntakeMl {
		return apperror.Validation("ml must be greater than 0 and at most 5000")
	}
	return nil
}

// ValidateGoal checks a daily goal in milliliters.
func ValidateGoal(goal int) error {
	if goal <= 0 || goal > entity.MaxDailyWaterGoal {
		return apperror.Validation("daily water goal must be greater than 0 and at most 15000")
	}
	return nil
}

// ApplyAdd appends an intake and returns the new record.
func ApplyAdd(rec *entity.DailyWaterRecord, id string, ml int, consumedAt time.Time) *entity.DailyWaterRecord {
	out := rec.Clone()
	out.WaterIntakes = append(out.WaterIntakes, entity.WaterIntake{ID: id, Ml: ml, ConsumedAt: consumedAt.UTC()})
	out.ConsumedWater += ml
	out.ConsumedTimes++
	out.ConsumedWaterPercentage = PercentageOf(out.ConsumedWater, out.DailyWaterGoal)
	return out
}

// ApplyUpdate replaces the volume and time of an intake in place.
func ApplyUpdate(rec *entity.DailyWaterRecord, intakeID string, ml int, consumedAt time.Time) (*entity.DailyWaterRecord, error) {
	idx := IndexOf(rec, intakeID)
	if idx < 0 {
		return nil, apperror.NotFound("water intake not found")
	}
	out := rec.Clone()
	old := out.WaterIntakes[idx]
	out.WaterIntakes[idx] = entity.WaterIntake{ID: old.ID, Ml: ml, ConsumedAt: consumedAt.UTC()}
	out.ConsumedWater = out.ConsumedWater - old.Ml + ml
	out.ConsumedWaterPercentage = PercentageOf(out.ConsumedWater, out.DailyWaterGoal)
	return out, nil
}

// ApplyRemove drops an intake and returns the new record.
func ApplyRemove(rec *entity.DailyWaterRecord, intakeID string) (*entity.DailyWaterRecord, error) {
	idx := IndexOf(rec, intakeID)
	if idx < 0 {
		return nil, apperror.NotFound("water intake not found")
	}
	out := rec.Clone()
	removed := out.WaterIntakes[idx]
	out.WaterIntakes = append(out.WaterIntakes[:idx], out.WaterIntakes[idx+1:]...)
	out.ConsumedWater -= removed.Ml
	out.ConsumedTimes--
	out.ConsumedWaterPercentage = PercentageOf(out.ConsumedWater, out.DailyWaterGoal)
	return out, nil
}

// ApplyGoal swaps the goal snapshot and re-derives the percentage.
func ApplyGoal(rec *entity.DailyWaterRecord, goal int) *entity.DailyWaterRecord {
	out := rec.Clone()
	out.DailyWaterGoal = goal
	out.ConsumedWaterPercentage = PercentageOf(out.ConsumedWater, goal)
	return out
}

// IndexOf returns the position of the intake with the given id, or -1.
func IndexOf(rec *entity.DailyWaterRecord, intakeID string) int {
	if rec == nil {
		return -1
	}
	for i, in := range rec.WaterIntakes {
		if in.ID == intakeID {
			return i
		}
	}
	return -1
}

// Find returns the intake with the given id.
func Find(rec *entity.DailyWaterRecord, intakeID string) (entity.WaterIntake, bool) {
	idx := IndexOf(rec, intakeID)
	if idx < 0 {
		return entity.WaterIntake{}, false
	}
	return rec.WaterIntakes[idx], true
}
