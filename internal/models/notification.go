package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// NotificationType classifies a notification for client-side rendering and deep-linking.
type NotificationType string

const (
	NotificationTypeEvent       NotificationType = "EVENT"
	NotificationTypeFollow      NotificationType = "FOLLOW"
	NotificationTypeMessage     NotificationType = "MESSAGE"
	NotificationTypeSystem      NotificationType = "SYSTEM"
	NotificationTypeReservation NotificationType = "RESERVATION"
	NotificationTypeFootball    NotificationType = "FOOTBALL"
)

// JSONMap is an opaque structured payload stored as a jsonb column.
type JSONMap map[string]interface{}

func (m JSONMap) Value() (driver.Value, error) {
	if m == nil {
		return nil, nil
	}
	return json.Marshal(m)
}

func (m *JSONMap) Scan(value interface{}) error {
	if value == nil {
		*m = nil
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported type for JSONMap: %T", value)
	}
	return json.Unmarshal(data, m)
}

// Notification represents one durable per-recipient notification record (PostgreSQL).
//
// The composite unique index on (source_ref, recipient_id, type) makes record
// creation idempotent under retried triggers: a second run of the same trigger
// inserts nothing for recipients that already have a row.
type Notification struct {
	ID          uint             `json:"id" gorm:"primaryKey"`
	RecipientID uint             `json:"recipient_id" gorm:"index;uniqueIndex:idx_source_recipient_type"`
	Type        NotificationType `json:"type" gorm:"size:20;uniqueIndex:idx_source_recipient_type"`
	SourceRef   string           `json:"source_ref" gorm:"size:64;uniqueIndex:idx_source_recipient_type"`
	Title       string           `json:"title"`
	Body        string           `json:"body"`
	Data        JSONMap          `json:"data" gorm:"type:jsonb"`
	PushSent    bool             `json:"push_sent" gorm:"default:false;index"`
	ReadAt      *time.Time       `json:"read_at"`
	IsDeleted   bool             `json:"is_deleted" gorm:"default:false;index"`
	CreatedAt   time.Time        `json:"created_at" gorm:"index"`
}
