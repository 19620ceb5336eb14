package repository

import (
	"context"

	"github.com/oksasatya/go-water-tracker/internal/domain/entity"
)

// UserRepository defines the interface for user-related database operations.
// Lookups return apperror.ErrNotFound when no user matches and Create/Update
// return apperror.ErrConflict when the email is already taken.
type UserRepository interface {
	Create(ctx context.Context, u *entity.User) error
	GetByID(ctx context.Context, id string) (*entity.User, error)
	GetByEmail(ctx context.Context, email string) (*entity.User, error)
	GetByVerificationToken(ctx context.Context, token string) (*entity.User, error)
	Update(ctx context.Context, u *entity.User) error
	// UpdateDailyWaterGoal writes only the goal column and returns the
	// stored user, leaving concurrent profile edits intact.
	UpdateDailyWaterGoal(ctx context.Context, id string, goal int) (*entity.User, error)
	Delete(ctx context.Context, id string) error
}
