package entity

import (
	"time"
)

const (
	GenderWoman = "woman"
	GenderMan   = "man"

	DefaultDailyWaterGoal = 2000
	MaxDailyWaterGoal     = 15000
)

// User is the aggregate root for the account domain.
// Passwords are stored as bcrypt hashes in Password field.
//
// DailyWaterGoal is the current goal in milliliters; daily records take a
// snapshot of it when they are created.
type User struct {
	ID                string
	Email             string
	Password          string
	Name              string
	Gender            string
	DailyWaterGoal    int
	AvatarURL         string
	IsVerified        bool
	VerificationToken string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}
