package main

import (
	"context"
	"errors"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-water-tracker/config"
	"github.com/oksasatya/go-water-tracker/internal/application"
	"github.com/oksasatya/go-water-tracker/internal/domain/apperror"
	"github.com/oksasatya/go-water-tracker/internal/domain/entity"
	pginfra "github.com/oksasatya/go-water-tracker/internal/infrastructure/postgres"
	"github.com/oksasatya/go-water-tracker/pkg/helpers"
)

const (
	demoEmail    = "demo@water-tracker.local"
	demoPassword = "password123"
	seedDays     = 7
)

// portions logged on each seeded day, in ml
var portions = []int{250, 300, 500, 200, 350}

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	logger := helpers.NewLogger(cfg.AppName+"-seed", cfg.Env, cfg.LogLevel)
	ctx := context.Background()

	pool, err := pginfra.NewPool(ctx, cfg.PostgresDSN(), cfg.DBMaxConns, cfg.DBMinConns, cfg.DBMaxConnLife)
	if err != nil {
		logger.Fatalf("failed to connect to postgres: %v", err)
	}
	defer pool.Close()
	if err := pginfra.RunMigrations(cfg.PostgresDSN(), logger); err != nil {
		logger.Fatalf("migration failed: %v", err)
	}

	users := pginfra.NewUserRepository(pool)
	records := pginfra.NewDailyRecordRepository(pool)

	u, err := ensureDemoUser(ctx, users, cfg.DefaultDailyWaterGoal)
	if err != nil {
		logger.Fatalf("failed to seed user: %v", err)
	}
	logger.WithFields(logrus.Fields{"id": u.ID, "email": u.Email, "password": demoPassword}).Info("seeded user")

	svc := application.NewDailyRecordService(records, users, cfg.DefaultDailyWaterGoal, logger)
	today := time.Now().UTC().Truncate(24 * time.Hour)
	for i := 0; i < seedDays; i++ {
		// leave a gap so reports show a missing day
		if i == 3 {
			continue
		}
		day := today.AddDate(0, 0, -i)
		if rec, err := records.FindOne(ctx, u.ID, day); err == nil && rec.ConsumedTimes > 0 {
			continue
		}
		n := len(portions) - i%len(portions)
		for j := 0; j < n; j++ {
			at := day.Add(time.Duration(8+j*3) * time.Hour)
			if _, err := svc.AddIntake(ctx, u.ID, day, portions[j], at, 0); err != nil {
				logger.Fatalf("failed to seed intake for %s: %v", day.Format(time.DateOnly), err)
			}
		}
	}
	logger.WithField("days", seedDays).Info("seeded daily records")
}

func ensureDemoUser(ctx context.Context, users *pginfra.UserRepository, goal int) (*entity.User, error) {
	u, err := users.GetByEmail(ctx, demoEmail)
	if err == nil {
		return u, nil
	}
	if !errors.Is(err, apperror.ErrNotFound) {
		return nil, err
	}
	hash, err := helpers.HashPassword(demoPassword)
	if err != nil {
		return nil, err
	}
	u = &entity.User{
		Email:          demoEmail,
		Password:       hash,
		Name:           helpers.NameFromEmail(demoEmail),
		Gender:         entity.GenderWoman,
		DailyWaterGoal: goal,
		AvatarURL:      helpers.GravatarURL(demoEmail),
		IsVerified:     true,
	}
	if err := users.Create(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}
