// Package memory implements in-memory stores for development and testing.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/oksasatya/go-water-tracker/internal/domain/apperror"
	"github.com/oksasatya/go-water-tracker/internal/domain/entity"
	"github.com/oksasatya/go-water-tracker/internal/domain/repository"
	"github.com/oksasatya/go-water-tracker/internal/domain/water"
)

type recordKey struct {
	userID string
	day    int64
}

func keyOf(userID string, entryDate time.Time) recordKey {
	return recordKey{userID: userID, day: entryDate.UTC().Unix()}
}

// DailyRecordRepository keeps records in a map guarded by one mutex, so
// each method is atomic with respect to the others.
type DailyRecordRepository struct {
	mu      sync.Mutex
	records map[recordKey]*entity.DailyWaterRecord
}

func NewDailyRecordRepository() *DailyRecordRepository {
	return &DailyRecordRepository{records: make(map[recordKey]*entity.DailyWaterRecord)}
}

var _ repository.DailyRecordRepository = (*DailyRecordRepository)(nil)

func (r *DailyRecordRepository) FindOne(ctx context.Context, userID string, entryDate time.Time) (*entity.DailyWaterRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[keyOf(userID, entryDate)]
	if !ok {
		return nil, apperror.NotFound("daily water record not found")
	}
	return rec.Clone(), nil
}

func (r *DailyRecordRepository) FindOneAndUpsert(ctx context.Context, userID string, entryDate time.Time, defaults entity.RecordDefaults) (*entity.DailyWaterRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	k := keyOf(userID, entryDate)
	if rec, ok := r.records[k]; ok {
		return rec.Clone(), nil
	}
	rec := &entity.DailyWaterRecord{
		ID:             uuid.NewString(),
		UserID:         userID,
		EntryDate:      entryDate.UTC(),
		DailyWaterGoal: defaults.DailyWaterGoal,
		WaterIntakes:   []entity.WaterIntake{},
	}
	r.records[k] = rec
	return rec.Clone(), nil
}

func (r *DailyRecordRepository) FindOneAndApplyUpdate(ctx context.Context, userID string, entryDate time.Time, op water.Op) (*entity.DailyWaterRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	k := keyOf(userID, entryDate)
	rec, ok := r.records[k]
	if !ok {
		return nil, apperror.NotFound("daily water record not found")
	}
	next, err := water.Apply(rec, op)
	if err != nil {
		return nil, err
	}
	r.records[k] = next
	return next.Clone(), nil
}

func (r *DailyRecordRepository) DeleteMany(ctx context.Context, userID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var n int64
	for k := range r.records {
		if k.userID == userID {
			delete(r.records, k)
			n++
		}
	}
	return n, nil
}

func (r *DailyRecordRepository) FindRange(ctx context.Context, userID string, start, end time.Time) ([]entity.DailySummary, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]entity.DailySummary, 0)
	for k, rec := range r.records {
		if k.userID != userID {
			continue
		}
		if rec.EntryDate.Before(start) || rec.EntryDate.After(end) {
			continue
		}
		out = append(out, rec.Summary())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EntryDate.Before(out[j].EntryDate) })
	return out, nil
}
