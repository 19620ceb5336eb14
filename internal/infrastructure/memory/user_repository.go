package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/oksasatya/go-water-tracker/internal/domain/apperror"
	"github.com/oksasatya/go-water-tracker/internal/domain/entity"
	"github.com/oksasatya/go-water-tracker/internal/domain/repository"
)

type UserRepository struct {
	mu    sync.Mutex
	users map[string]entity.User
}

func NewUserRepository() *UserRepository {
	return &UserRepository{users: make(map[string]entity.User)}
}

var _ repository.UserRepository = (*UserRepository)(nil)

func (r *UserRepository) emailTaken(email, exceptID string) bool {
	for id, u := range r.users {
		if u.Email == email && id != exceptID {
			return true
		}
	}
	return false
}

func (r *UserRepository) Create(ctx context.Context, u *entity.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.emailTaken(u.Email, "") {
		return apperror.Conflict("email already in use")
	}
	now := time.Now().UTC()
	u.ID = uuid.NewString()
	u.CreatedAt = now
	u.UpdatedAt = now
	r.users[u.ID] = *u
	return nil
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*entity.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[id]
	if !ok {
		return nil, apperror.NotFound("user not found")
	}
	return &u, nil
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*entity.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, u := range r.users {
		if u.Email == email {
			out := u
			return &out, nil
		}
	}
	return nil, apperror.NotFound("user not found")
}

func (r *UserRepository) GetByVerificationToken(ctx context.Context, token string) (*entity.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if token == "" {
		return nil, apperror.NotFound("user not found")
	}
	for _, u := range r.users {
		if u.VerificationToken == token {
			out := u
			return &out, nil
		}
	}
	return nil, apperror.NotFound("user not found")
}

func (r *UserRepository) Update(ctx context.Context, u *entity.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.users[u.ID]; !ok {
		return apperror.NotFound("user not found")
	}
	if r.emailTaken(u.Email, u.ID) {
		return apperror.Conflict("email already in use")
	}
	u.UpdatedAt = time.Now().UTC()
	r.users[u.ID] = *u
	return nil
}

func (r *UserRepository) UpdateDailyWaterGoal(ctx context.Context, id string, goal int) (*entity.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[id]
	if !ok {
		return nil, apperror.NotFound("user not found")
	}
	u.DailyWaterGoal = goal
	u.UpdatedAt = time.Now().UTC()
	r.users[id] = u
	return &u, nil
}

func (r *UserRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.users[id]; !ok {
		return apperror.NotFound("user not found")
	}
	delete(r.users, id)
	return nil
}
