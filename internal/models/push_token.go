package models

import "time"

// PushToken links a user to their current device push token. One row per user;
// re-registering from a new device replaces the token. Tokens may be stale at
// any time; the dispatcher prunes tokens the gateway reports as unregistered.
type PushToken struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	UserID    uint      `json:"user_id" gorm:"uniqueIndex"`
	Token     string    `json:"token" gorm:"size:255;index"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type RegisterPushTokenRequest struct {
	Token string `json:"token" validate:"required,max=255"`
}
