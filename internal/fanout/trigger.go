// Package fanout turns one business trigger (report, follow, direct message,
// admin broadcast) into per-recipient notification records and push
// deliveries. It is the single shared pipeline behind every notifying call
// site: resolve the audience, write one durable record per recipient, then
// dispatch push messages in gateway-sized batches.
package fanout

import (
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/semtim/backend/internal/models"
)

// Kind identifies the business event behind a trigger.
type Kind string

const (
	KindReport    Kind = "report"
	KindFollow    Kind = "follow"
	KindMessage   Kind = "message"
	KindBroadcast Kind = "broadcast"
)

// Severity tiers for report triggers. Mirrors models severity constants.
type Severity string

const (
	SeverityCritical Severity = models.SeverityCritical
	SeverityHigh     Severity = models.SeverityHigh
	SeverityNormal   Severity = models.SeverityNormal
	SeverityLow      Severity = models.SeverityLow
)

// Trigger is the ephemeral context of one notifying business event. SourceRef
// must be stable per trigger instance (e.g. the report's UUID) so that a
// retried trigger maps to the same notification rows.
type Trigger struct {
	Kind    Kind `json:"kind" validate:"required,oneof=report follow message broadcast"`
	ActorID uint `json:"actor_id" validate:"required"`

	// Report fields.
	Severity Severity `json:"severity,omitempty"`
	City     string   `json:"city,omitempty"`
	District string   `json:"district,omitempty"`
	Category string   `json:"category,omitempty"`

	// Follow target, or optional broadcast target (0 = every active user).
	TargetUserID uint `json:"target_user_id,omitempty"`

	// Message conversation.
	ConversationID string `json:"conversation_id,omitempty"`

	Title     string                 `json:"title" validate:"required"`
	Body      string                 `json:"body,omitempty"`
	Data      map[string]interface{} `json:"data,omitempty"`
	SourceRef string                 `json:"source_ref" validate:"required"`
}

var validate = validator.New()

// Validate rejects malformed trigger contexts before any write happens.
func (t Trigger) Validate() error {
	if err := validate.Struct(t); err != nil {
		return fmt.Errorf("invalid trigger: %w", err)
	}
	switch t.Kind {
	case KindReport:
		switch t.Severity {
		case SeverityCritical, SeverityHigh, SeverityNormal, SeverityLow:
		default:
			return fmt.Errorf("invalid trigger: report requires a severity tier, got %q", t.Severity)
		}
		if t.City == "" {
			return fmt.Errorf("invalid trigger: report requires a city")
		}
		if t.Severity == SeverityNormal && t.Category == "" {
			return fmt.Errorf("invalid trigger: normal-severity report requires a category")
		}
	case KindFollow:
		if t.TargetUserID == 0 {
			return fmt.Errorf("invalid trigger: follow requires a target user")
		}
	case KindMessage:
		if t.ConversationID == "" {
			return fmt.Errorf("invalid trigger: message requires a conversation")
		}
	}
	return nil
}

// NotificationType maps the trigger kind onto the stored notification type.
func (t Trigger) NotificationType() models.NotificationType {
	switch t.Kind {
	case KindReport:
		return models.NotificationTypeEvent
	case KindFollow:
		return models.NotificationTypeFollow
	case KindMessage:
		return models.NotificationTypeMessage
	default:
		return models.NotificationTypeSystem
	}
}

// payload builds the structured data embedded in both the stored record and
// the push message: the trigger kind plus the minimal identifiers the client
// needs for deep-linking.
func (t Trigger) payload() models.JSONMap {
	data := models.JSONMap{
		"kind":       string(t.Kind),
		"source_ref": t.SourceRef,
	}
	for k, v := range t.Data {
		data[k] = v
	}
	return data
}
