package entity

import "time"

// Session is the server-side login state. A token is only accepted while
// its session id matches the stored one.
type Session struct {
	UserID    string
	SessionID string
	Email     string
	Name      string
	AvatarURL string
	CreatedAt time.Time
	UpdatedAt time.Time
}
