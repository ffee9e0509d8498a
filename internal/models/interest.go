package models

import "time"

// InterestSubscription subscribes a user to a topical report category.
// NORMAL-severity reports fan out to subscribers of the report's category.
type InterestSubscription struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	UserID    uint      `json:"user_id" gorm:"index;uniqueIndex:idx_user_category"`
	Category  string    `json:"category" gorm:"size:50;index;uniqueIndex:idx_user_category"`
	CreatedAt time.Time `json:"created_at"`
}

type UpdateInterestsRequest struct {
	Categories []string `json:"categories" validate:"required,dive,min=1,max=50"`
}
