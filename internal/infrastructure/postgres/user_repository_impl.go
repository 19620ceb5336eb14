package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/oksasatya/go-water-tracker/internal/domain/apperror"
	"github.com/oksasatya/go-water-tracker/internal/domain/entity"
	"github.com/oksasatya/go-water-tracker/internal/domain/repository"
)

const (
	uniqueViolation           = "23505"
	invalidTextRepresentation = "22P02"
)

const userColumns = `id::text, email, password_hash, name, gender, daily_water_goal, avatar_url,
	is_verified, COALESCE(verification_token, ''), created_at, updated_at`

type UserRepository struct {
	pool *pgxpool.Pool
}

func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func mapUserErr(op string, err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return apperror.NotFound("user not found")
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case uniqueViolation:
			return apperror.Conflict("email already in use")
		case invalidTextRepresentation:
			return apperror.NotFound("user not found")
		}
	}
	return apperror.Store(op, err)
}

func scanUser(row pgx.Row) (*entity.User, error) {
	u := &entity.User{}
	if err := row.Scan(&u.ID, &u.Email, &u.Password, &u.Name, &u.Gender, &u.DailyWaterGoal, &u.AvatarURL,
		&u.IsVerified, &u.VerificationToken, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	return u, nil
}

func (r *UserRepository) Create(ctx context.Context, u *entity.User) error {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO users (email, password_hash, name, gender, daily_water_goal, avatar_url, is_verified, verification_token)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id::text, created_at, updated_at
	`, u.Email, u.Password, u.Name, u.Gender, u.DailyWaterGoal, u.AvatarURL, u.IsVerified, nullable(u.VerificationToken))

	if err := row.Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return mapUserErr("create user", err)
	}
	return nil
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*entity.User, error) {
	u, err := scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if err != nil {
		return nil, mapUserErr("get user by id", err)
	}
	return u, nil
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*entity.User, error) {
	u, err := scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email))
	if err != nil {
		return nil, mapUserErr("get user by email", err)
	}
	return u, nil
}

func (r *UserRepository) GetByVerificationToken(ctx context.Context, token string) (*entity.User, error) {
	if token == "" {
		return nil, apperror.NotFound("user not found")
	}
	u, err := scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE verification_token = $1`, token))
	if err != nil {
		return nil, mapUserErr("get user by verification token", err)
	}
	return u, nil
}

func (r *UserRepository) Update(ctx context.Context, u *entity.User) error {
	row := r.pool.QueryRow(ctx, `
		UPDATE users
		SET email = $1, password_hash = $2, name = $3, gender = $4, daily_water_goal = $5,
		    avatar_url = $6, is_verified = $7, verification_token = $8, updated_at = now()
		WHERE id = $9
		RETURNING updated_at
	`, u.Email, u.Password, u.Name, u.Gender, u.DailyWaterGoal, u.AvatarURL, u.IsVerified, nullable(u.VerificationToken), u.ID)

	if err := row.Scan(&u.UpdatedAt); err != nil {
		return mapUserErr("update user", err)
	}
	return nil
}

func (r *UserRepository) UpdateDailyWaterGoal(ctx context.Context, id string, goal int) (*entity.User, error) {
	u, err := scanUser(r.pool.QueryRow(ctx, `
		UPDATE users SET daily_water_goal = $2, updated_at = now()
		WHERE id = $1
		RETURNING `+userColumns, id, goal))
	if err != nil {
		return nil, mapUserErr("update daily water goal", err)
	}
	return u, nil
}

func (r *UserRepository) Delete(ctx context.Context, id string) error {
	res, err := r.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return apperror.Store("delete user", err)
	}
	if res.RowsAffected() == 0 {
		return apperror.NotFound("user not found")
	}
	return nil
}

var _ repository.UserRepository = (*UserRepository)(nil)
