package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/oksasatya/go-water-tracker/internal/domain/apperror"
	"github.com/oksasatya/go-water-tracker/internal/domain/entity"
	"github.com/oksasatya/go-water-tracker/internal/domain/repository"
	"github.com/oksasatya/go-water-tracker/internal/domain/water"
)

const recordColumns = `id::text, user_id::text, entry_date, daily_water_goal, consumed_water,
	consumed_times, consumed_water_percentage`

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// DailyRecordRepository stores daily records in daily_water_records and
// their intakes in water_intakes. Mutations run in one transaction holding
// a row lock on the record, which serializes concurrent edits of a day.
type DailyRecordRepository struct {
	pool *pgxpool.Pool
}

func NewDailyRecordRepository(pool *pgxpool.Pool) *DailyRecordRepository {
	return &DailyRecordRepository{pool: pool}
}

var _ repository.DailyRecordRepository = (*DailyRecordRepository)(nil)

func mapRecordErr(op string, err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return apperror.NotFound("daily water record not found")
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == invalidTextRepresentation {
		return apperror.NotFound("daily water record not found")
	}
	return apperror.Store(op, err)
}

func scanRecord(row pgx.Row) (*entity.DailyWaterRecord, error) {
	rec := &entity.DailyWaterRecord{}
	if err := row.Scan(&rec.ID, &rec.UserID, &rec.EntryDate, &rec.DailyWaterGoal, &rec.ConsumedWater,
		&rec.ConsumedTimes, &rec.ConsumedWaterPercentage); err != nil {
		return nil, err
	}
	rec.EntryDate = dayUTC(rec.EntryDate)
	return rec, nil
}

// dayUTC re-anchors a scanned DATE to midnight UTC.
func dayUTC(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func loadIntakes(ctx context.Context, q querier, rec *entity.DailyWaterRecord) error {
	rows, err := q.Query(ctx, `
		SELECT id::text, ml, consumed_at
		FROM water_intakes
		WHERE record_id = $1
		ORDER BY position ASC
	`, rec.ID)
	if err != nil {
		return err
	}
	defer rows.Close()

	rec.WaterIntakes = make([]entity.WaterIntake, 0, rec.ConsumedTimes)
	for rows.Next() {
		var in entity.WaterIntake
		if err := rows.Scan(&in.ID, &in.Ml, &in.ConsumedAt); err != nil {
			return err
		}
		in.ConsumedAt = in.ConsumedAt.UTC()
		rec.WaterIntakes = append(rec.WaterIntakes, in)
	}
	return rows.Err()
}

func (r *DailyRecordRepository) FindOne(ctx context.Context, userID string, entryDate time.Time) (*entity.DailyWaterRecord, error) {
	rec, err := scanRecord(r.pool.QueryRow(ctx,
		`SELECT `+recordColumns+` FROM daily_water_records WHERE user_id = $1 AND entry_date = $2`,
		userID, entryDate))
	if err != nil {
		return nil, mapRecordErr("find daily record", err)
	}
	if err := loadIntakes(ctx, r.pool, rec); err != nil {
		return nil, apperror.Store("load water intakes", err)
	}
	return rec, nil
}

// FindOneAndUpsert relies on ON CONFLICT so that concurrent first requests
// of a day end up with the same row. The no-op DO UPDATE makes RETURNING
// yield the existing row.
func (r *DailyRecordRepository) FindOneAndUpsert(ctx context.Context, userID string, entryDate time.Time, defaults entity.RecordDefaults) (*entity.DailyWaterRecord, error) {
	rec, err := scanRecord(r.pool.QueryRow(ctx, `
		INSERT INTO daily_water_records (user_id, entry_date, daily_water_goal)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, entry_date) DO UPDATE SET entry_date = EXCLUDED.entry_date
		RETURNING `+recordColumns,
		userID, entryDate, defaults.DailyWaterGoal))
	if err != nil {
		return nil, mapRecordErr("upsert daily record", err)
	}
	if err := loadIntakes(ctx, r.pool, rec); err != nil {
		return nil, apperror.Store("load water intakes", err)
	}
	return rec, nil
}

func (r *DailyRecordRepository) FindOneAndApplyUpdate(ctx context.Context, userID string, entryDate time.Time, op water.Op) (*entity.DailyWaterRecord, error) {
	var out *entity.DailyWaterRecord
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		cur, err := scanRecord(tx.QueryRow(ctx,
			`SELECT `+recordColumns+` FROM daily_water_records WHERE user_id = $1 AND entry_date = $2 FOR UPDATE`,
			userID, entryDate))
		if err != nil {
			return mapRecordErr("lock daily record", err)
		}
		if err := loadIntakes(ctx, tx, cur); err != nil {
			return apperror.Store("load water intakes", err)
		}

		next, err := water.Apply(cur, op)
		if err != nil {
			return err
		}
		if err := writeIntakeChange(ctx, tx, cur.ID, op); err != nil {
			return apperror.Store("write water intake", err)
		}
		if _, err := tx.Exec(ctx, `
			UPDATE daily_water_records
			SET daily_water_goal = $2, consumed_water = $3, consumed_times = $4,
			    consumed_water_percentage = $5, updated_at = now()
			WHERE id = $1
		`, cur.ID, next.DailyWaterGoal, next.ConsumedWater, next.ConsumedTimes, next.ConsumedWaterPercentage); err != nil {
			return apperror.Store("update daily record", err)
		}
		out = next
		return nil
	})
	if err != nil {
		return nil, apperror.Store("apply daily record update", err)
	}
	return out, nil
}

func writeIntakeChange(ctx context.Context, q querier, recordID string, op water.Op) error {
	switch op.Kind {
	case water.OpAdd:
		_, err := q.Exec(ctx, `
			INSERT INTO water_intakes (id, record_id, ml, consumed_at, position)
			SELECT $1, $2, $3, $4, COALESCE(MAX(position), 0) + 1
			FROM water_intakes WHERE record_id = $2
		`, op.IntakeID, recordID, op.Ml, op.ConsumedAt.UTC())
		return err
	case water.OpUpdate:
		_, err := q.Exec(ctx,
			`UPDATE water_intakes SET ml = $3, consumed_at = $4 WHERE id = $1 AND record_id = $2`,
			op.IntakeID, recordID, op.Ml, op.ConsumedAt.UTC())
		return err
	case water.OpRemove:
		_, err := q.Exec(ctx, `DELETE FROM water_intakes WHERE id = $1 AND record_id = $2`, op.IntakeID, recordID)
		return err
	case water.OpSetGoal:
		return nil
	default:
		return fmt.Errorf("unsupported water op %s", op.Kind)
	}
}

func (r *DailyRecordRepository) DeleteMany(ctx context.Context, userID string) (int64, error) {
	res, err := r.pool.Exec(ctx, `DELETE FROM daily_water_records WHERE user_id = $1`, userID)
	if err != nil {
		return 0, apperror.Store("delete daily records", err)
	}
	return res.RowsAffected(), nil
}

func (r *DailyRecordRepository) FindRange(ctx context.Context, userID string, start, end time.Time) ([]entity.DailySummary, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT entry_date, daily_water_goal, consumed_water, consumed_times, consumed_water_percentage
		FROM daily_water_records
		WHERE user_id = $1 AND entry_date >= $2 AND entry_date <= $3
		ORDER BY entry_date ASC
	`, userID, start, end)
	if err != nil {
		return nil, apperror.Store("find daily records range", err)
	}
	defer rows.Close()

	out := make([]entity.DailySummary, 0)
	for rows.Next() {
		var s entity.DailySummary
		if err := rows.Scan(&s.EntryDate, &s.DailyWaterGoal, &s.ConsumedWater, &s.ConsumedTimes, &s.ConsumedWaterPercentage); err != nil {
			return nil, apperror.Store("scan daily summary", err)
		}
		s.EntryDate = dayUTC(s.EntryDate)
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, apperror.Store("iterate daily summaries", err)
	}
	return out, nil
}
