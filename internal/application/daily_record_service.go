package application

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-water-tracker/internal/domain/apperror"
	"github.com/oksasatya/go-water-tracker/internal/domain/entity"
	repo "github.com/oksasatya/go-water-tracker/internal/domain/repository"
	"github.com/oksasatya/go-water-tracker/internal/domain/water"
)

// NormalizeEntryDate maps a client timestamp to the UTC-midnight key of the
// client's local day. offsetMinutes follows Date.getTimezoneOffset(): UTC+2
// is -120. A value already at UTC midnight is a day key and is returned as is.
func NormalizeEntryDate(raw time.Time, offsetMinutes int) (time.Time, error) {
	if raw.IsZero() {
		return time.Time{}, apperror.Validation("date is required")
	}
	if offsetMinutes < -entity.MaxTimezoneOffset || offsetMinutes > entity.MaxTimezoneOffset {
		return time.Time{}, apperror.Validation("time zone offset out of range")
	}
	raw = raw.UTC()
	if isDayKey(raw) {
		return raw, nil
	}
	local := raw.Add(-time.Duration(offsetMinutes) * time.Minute)
	return dayOf(local), nil
}

func isDayKey(t time.Time) bool {
	return t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 && t.Nanosecond() == 0
}

func dayOf(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// DailyRecordService owns the per-day water record of each user. Every
// mutation is a single atomic store call so concurrent requests for the
// same day never lose an intake.
type DailyRecordService struct {
	Records     repo.DailyRecordRepository
	Users       repo.UserRepository
	DefaultGoal int
	Logger      *logrus.Logger
	NewID       func() string
}

func NewDailyRecordService(records repo.DailyRecordRepository, users repo.UserRepository, defaultGoal int, logger *logrus.Logger) *DailyRecordService {
	if defaultGoal <= 0 {
		defaultGoal = entity.DefaultDailyWaterGoal
	}
	return &DailyRecordService{
		Records:     records,
		Users:       users,
		DefaultGoal: defaultGoal,
		Logger:      loggerOrDiscard(logger),
		NewID:       uuid.NewString,
	}
}

func requireUser(userID string) error {
	if strings.TrimSpace(userID) == "" {
		return apperror.Validation("user id is required")
	}
	return nil
}

func validateIntakeID(id string) error {
	if strings.TrimSpace(id) == "" {
		return apperror.Validation("water intake id is required")
	}
	if _, err := uuid.Parse(id); err != nil {
		return apperror.Validation("invalid water intake id")
	}
	return nil
}

// goalFor resolves the goal a new record is created with. A positive goal
// wins, then the user's current goal, then the configured default.
func (s *DailyRecordService) goalFor(ctx context.Context, userID string, goal int) (int, error) {
	if goal > 0 {
		return goal, water.ValidateGoal(goal)
	}
	if s.Users != nil {
		u, err := s.Users.GetByID(ctx, userID)
		if err != nil {
			return 0, err
		}
		if u.DailyWaterGoal > 0 {
			return u.DailyWaterGoal, nil
		}
	}
	return s.DefaultGoal, nil
}

// GetOrCreateDailyRecord returns the record of the day, creating it with
// defaultGoal (or the user's goal when defaultGoal is 0) on first access.
func (s *DailyRecordService) GetOrCreateDailyRecord(ctx context.Context, userID string, entryDate time.Time, defaultGoal int) (*entity.DailyWaterRecord, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	goal, err := s.goalFor(ctx, userID, defaultGoal)
	if err != nil {
		return nil, err
	}
	return s.Records.FindOneAndUpsert(ctx, userID, dayOf(entryDate), entity.RecordDefaults{DailyWaterGoal: goal})
}

// GetDailyRecord is a read-only lookup; it returns NotFound for days
// without a record.
func (s *DailyRecordService) GetDailyRecord(ctx context.Context, userID string, entryDate time.Time) (*entity.DailyWaterRecord, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	return s.Records.FindOne(ctx, userID, dayOf(entryDate))
}

func (s *DailyRecordService) AddIntake(ctx context.Context, userID string, entryDate time.Time, ml int, consumedAt time.Time, defaultGoal int) (*entity.DailyWaterRecord, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	if err := water.ValidateMl(ml); err != nil {
		return nil, err
	}
	day := dayOf(entryDate)
	if _, err := s.GetOrCreateDailyRecord(ctx, userID, day, defaultGoal); err != nil {
		return nil, err
	}
	rec, err := s.Records.FindOneAndApplyUpdate(ctx, userID, day, water.AddOp(s.NewID(), ml, consumedAt.UTC()))
	if err != nil {
		return nil, err
	}
	s.Logger.WithFields(logrus.Fields{"user_id": userID, "entry_date": day.Format(time.DateOnly), "ml": ml}).Debug("water intake added")
	return rec, nil
}

func (s *DailyRecordService) UpdateIntake(ctx context.Context, userID string, entryDate time.Time, intakeID string, ml int, consumedAt time.Time) (*entity.DailyWaterRecord, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	if err := validateIntakeID(intakeID); err != nil {
		return nil, err
	}
	if err := water.ValidateMl(ml); err != nil {
		return nil, err
	}
	return s.Records.FindOneAndApplyUpdate(ctx, userID, dayOf(entryDate), water.UpdateOp(intakeID, ml, consumedAt.UTC()))
}

func (s *DailyRecordService) RemoveIntake(ctx context.Context, userID string, entryDate time.Time, intakeID string) (*entity.DailyWaterRecord, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	if err := validateIntakeID(intakeID); err != nil {
		return nil, err
	}
	return s.Records.FindOneAndApplyUpdate(ctx, userID, dayOf(entryDate), water.RemoveOp(intakeID))
}

// ChangeGoal re-derives the record of entryDate and then stores the user's
// new goal. Other days keep the goal they were created with. The returned
// record is nil when the day has no record yet.
func (s *DailyRecordService) ChangeGoal(ctx context.Context, userID string, entryDate time.Time, goal int) (*entity.User, *entity.DailyWaterRecord, error) {
	if err := requireUser(userID); err != nil {
		return nil, nil, err
	}
	if err := water.ValidateGoal(goal); err != nil {
		return nil, nil, err
	}
	if s.Users == nil {
		return nil, nil, apperror.Store("change goal", errors.New("user repository not configured"))
	}

	rec, err := s.Records.FindOneAndApplyUpdate(ctx, userID, dayOf(entryDate), water.SetGoalOp(goal))
	if errors.Is(err, apperror.ErrNotFound) {
		rec = nil
	} else if err != nil {
		return nil, nil, err
	}

	u, err := s.Users.UpdateDailyWaterGoal(ctx, userID, goal)
	if err != nil {
		return nil, nil, err
	}
	return u, rec, nil
}
