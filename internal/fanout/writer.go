package fanout

import (
	"context"
	"fmt"

	"github.com/semtim/backend/internal/models"
)

// NotificationStore is the slice of the notification repository the writer
// and dispatcher need.
type NotificationStore interface {
	CreateBatch(ctx context.Context, notifications []models.Notification) error
	ListBySourceRef(ctx context.Context, sourceRef string, notificationType models.NotificationType) ([]models.Notification, error)
	MarkPushSent(ctx context.Context, ids []uint) error
}

// Writer persists one notification record per resolved recipient.
type Writer struct {
	store NotificationStore
}

// NewWriter creates a Writer over the given store.
func NewWriter(store NotificationStore) *Writer {
	return &Writer{store: store}
}

// Write inserts one record per recipient with push_sent=false and returns
// every record that exists for the trigger after the call. The insert skips
// conflicts on (source_ref, recipient_id, type), so retrying the same trigger
// with the same audience creates nothing new; the caller must reuse the
// resolved audience on retries, never re-resolve.
//
// A storage failure here is a hard error for the caller, but it must never
// roll back the already-committed business action behind the trigger.
func (w *Writer) Write(ctx context.Context, t Trigger, audience []uint) ([]models.Notification, error) {
	if len(audience) == 0 {
		return nil, nil
	}

	rows := make([]models.Notification, 0, len(audience))
	for _, recipientID := range audience {
		rows = append(rows, models.Notification{
			RecipientID: recipientID,
			Type:        t.NotificationType(),
			SourceRef:   t.SourceRef,
			Title:       t.Title,
			Body:        t.Body,
			Data:        t.payload(),
		})
	}

	if err := w.store.CreateBatch(ctx, rows); err != nil {
		return nil, fmt.Errorf("failed to write notification records: %w", err)
	}

	// Re-read by source reference so the returned rows carry their IDs and
	// current push state even when an earlier run already created them.
	written, err := w.store.ListBySourceRef(ctx, t.SourceRef, t.NotificationType())
	if err != nil {
		return nil, fmt.Errorf("failed to load written notification records: %w", err)
	}
	return written, nil
}
