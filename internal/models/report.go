package models

import "time"

// Report severity tiers controlling how broadly a report fans out.
const (
	SeverityCritical = "CRITICAL"
	SeverityHigh     = "HIGH"
	SeverityNormal   = "NORMAL"
	SeverityLow      = "LOW"
)

// Report represents a user-submitted regional report (PostgreSQL).
// The UUID primary key doubles as the notification source reference.
type Report struct {
	ID        string    `json:"id" gorm:"primaryKey;size:36"`
	AuthorID  uint      `json:"author_id" gorm:"index"`
	Severity  string    `json:"severity" gorm:"size:10;index"`
	City      string    `json:"city" gorm:"size:100;index"`
	District  string    `json:"district" gorm:"size:100;index"`
	Category  string    `json:"category" gorm:"size:50;index"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at" gorm:"index"`
}

type CreateReportRequest struct {
	Severity string `json:"severity" validate:"required,oneof=CRITICAL HIGH NORMAL LOW"`
	City     string `json:"city" validate:"required,min=2,max=100"`
	District string `json:"district" validate:"omitempty,max=100"`
	Category string `json:"category" validate:"required_if=Severity NORMAL,max=50"`
	Title    string `json:"title" validate:"required,min=3,max=150"`
	Body     string `json:"body" validate:"omitempty,max=2000"`
}
