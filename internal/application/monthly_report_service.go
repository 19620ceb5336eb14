package application

import (
	"context"
	"time"

	"github.com/oksasatya/go-water-tracker/internal/domain/apperror"
	"github.com/oksasatya/go-water-tracker/internal/domain/entity"
	repo "github.com/oksasatya/go-water-tracker/internal/domain/repository"
)

type MonthlyReportService struct {
	Records repo.DailyRecordRepository
}

func NewMonthlyReportService(records repo.DailyRecordRepository) *MonthlyReportService {
	return &MonthlyReportService{Records: records}
}

// GetRange lists the summaries of every recorded day in [start, end], oldest
// first. Days without a record are absent; an empty range is not an error.
func (s *MonthlyReportService) GetRange(ctx context.Context, userID string, start, end time.Time) ([]entity.DailySummary, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	if start.IsZero() || end.IsZero() {
		return nil, apperror.Validation("start and end dates are required")
	}
	from, to := dayOf(start), dayOf(end)
	if from.After(to) {
		return nil, apperror.Validation("start date must not be after end date")
	}
	out, err := s.Records.FindRange(ctx, userID, from, to)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []entity.DailySummary{}
	}
	return out, nil
}
