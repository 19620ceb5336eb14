package repository

import (
	"context"
	"time"

	"github.com/oksasatya/go-water-tracker/internal/domain/entity"
	"github.com/oksasatya/go-water-tracker/internal/domain/water"
)

// DailyRecordRepository persists one aggregate per (user, UTC day).
//
// Every mutating method is a single atomic operation on one record:
// implementations must never let two callers read-modify-write the same
// record concurrently.
type DailyRecordRepository interface {
	// FindOne returns apperror.ErrNotFound when the day has no record.
	FindOne(ctx context.Context, userID string, entryDate time.Time) (*entity.DailyWaterRecord, error)
	// FindOneAndUpsert returns the existing record or creates it with defaults.
	FindOneAndUpsert(ctx context.Context, userID string, entryDate time.Time, defaults entity.RecordDefaults) (*entity.DailyWaterRecord, error)
	// FindOneAndApplyUpdate applies op to the stored record and returns the result.
	FindOneAndApplyUpdate(ctx context.Context, userID string, entryDate time.Time, op water.Op) (*entity.DailyWaterRecord, error)
	DeleteMany(ctx context.Context, userID string) (int64, error)
	// FindRange returns summaries with start <= entry_date <= end, oldest first.
	FindRange(ctx context.Context, userID string, start, end time.Time) ([]entity.DailySummary, error)
}
