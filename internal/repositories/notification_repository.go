package repositories

import (
	"context"
	"time"

	"github.com/semtim/backend/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// NotificationRepository defines the interface for notification operations.
// Read paths never return soft-deleted rows.
type NotificationRepository interface {
	CreateBatch(ctx context.Context, notifications []models.Notification) error
	ListBySourceRef(ctx context.Context, sourceRef string, notificationType models.NotificationType) ([]models.Notification, error)
	MarkPushSent(ctx context.Context, ids []uint) error

	GetByRecipientID(ctx context.Context, recipientID uint, page, limit int) ([]models.Notification, int64, error)
	GetGrouped(ctx context.Context, recipientID uint) ([]models.Notification, []models.Notification, []models.Notification, []models.Notification, error)
	GetUnreadCount(ctx context.Context, recipientID uint) (int64, error)
	MarkAsRead(ctx context.Context, notificationID, recipientID uint) error
	MarkAllAsRead(ctx context.Context, recipientID uint) error
	SoftDelete(ctx context.Context, notificationID, recipientID uint) error
	SoftDeleteAll(ctx context.Context, recipientID uint) error
}

type postgresNotificationRepository struct {
	db *gorm.DB
}

func NewPostgresNotificationRepository(db *gorm.DB) NotificationRepository {
	return &postgresNotificationRepository{db: db}
}

// CreateBatch inserts one row per recipient, skipping rows that collide with
// the (source_ref, recipient_id, type) unique index. A retried trigger with
// the same resolved audience therefore inserts nothing new.
func (r *postgresNotificationRepository) CreateBatch(ctx context.Context, notifications []models.Notification) error {
	if len(notifications) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&notifications).Error
}

// ListBySourceRef returns every row written for one trigger instance,
// including rows created by an earlier run of the same trigger.
func (r *postgresNotificationRepository) ListBySourceRef(ctx context.Context, sourceRef string, notificationType models.NotificationType) ([]models.Notification, error) {
	var notifications []models.Notification
	err := r.db.WithContext(ctx).
		Where("source_ref = ? AND type = ?", sourceRef, notificationType).
		Find(&notifications).Error
	return notifications, err
}

// MarkPushSent flips push_sent for exactly the given notification IDs. Keyed
// by ID list, not recipient, so overlapping runs cannot double-mark.
func (r *postgresNotificationRepository) MarkPushSent(ctx context.Context, ids []uint) error {
	if len(ids) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Model(&models.Notification{}).
		Where("id IN ?", ids).
		Update("push_sent", true).Error
}

func (r *postgresNotificationRepository) GetByRecipientID(ctx context.Context, recipientID uint, page, limit int) ([]models.Notification, int64, error) {
	var notifications []models.Notification
	var total int64

	q := r.db.WithContext(ctx).Model(&models.Notification{}).
		Where("recipient_id = ? AND is_deleted = ?", recipientID, false)
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	err := q.Order("created_at DESC").
		Offset(offset).Limit(limit).
		Find(&notifications).Error

	return notifications, total, err
}

func (r *postgresNotificationRepository) GetGrouped(ctx context.Context, recipientID uint) (today, yesterday, thisWeek, older []models.Notification, retErr error) {
	now := time.Now()
	todayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	yesterdayStart := todayStart.AddDate(0, 0, -1)
	weekStart := todayStart.AddDate(0, 0, -7)

	base := func() *gorm.DB {
		return r.db.WithContext(ctx).
			Where("recipient_id = ? AND is_deleted = ?", recipientID, false).
			Order("created_at DESC")
	}

	if err := base().Where("created_at >= ?", todayStart).Find(&today).Error; err != nil {
		return nil, nil, nil, nil, err
	}
	if err := base().Where("created_at >= ? AND created_at < ?", yesterdayStart, todayStart).Find(&yesterday).Error; err != nil {
		return nil, nil, nil, nil, err
	}
	if err := base().Where("created_at >= ? AND created_at < ?", weekStart, yesterdayStart).Find(&thisWeek).Error; err != nil {
		return nil, nil, nil, nil, err
	}
	if err := base().Where("created_at < ?", weekStart).Limit(50).Find(&older).Error; err != nil {
		return nil, nil, nil, nil, err
	}

	return today, yesterday, thisWeek, older, nil
}

func (r *postgresNotificationRepository) GetUnreadCount(ctx context.Context, recipientID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Notification{}).
		Where("recipient_id = ? AND read_at IS NULL AND is_deleted = ?", recipientID, false).
		Count(&count).Error
	return count, err
}

func (r *postgresNotificationRepository) MarkAsRead(ctx context.Context, notificationID, recipientID uint) error {
	now := time.Now()
	return r.db.WithContext(ctx).Model(&models.Notification{}).
		Where("id = ? AND recipient_id = ? AND read_at IS NULL", notificationID, recipientID).
		Update("read_at", now).Error
}

func (r *postgresNotificationRepository) MarkAllAsRead(ctx context.Context, recipientID uint) error {
	now := time.Now()
	return r.db.WithContext(ctx).Model(&models.Notification{}).
		Where("recipient_id = ? AND read_at IS NULL", recipientID).
		Update("read_at", now).Error
}

// SoftDelete hides a notification from the recipient. Rows are never removed.
func (r *postgresNotificationRepository) SoftDelete(ctx context.Context, notificationID, recipientID uint) error {
	return r.db.WithContext(ctx).Model(&models.Notification{}).
		Where("id = ? AND recipient_id = ?", notificationID, recipientID).
		Update("is_deleted", true).Error
}

func (r *postgresNotificationRepository) SoftDeleteAll(ctx context.Context, recipientID uint) error {
	return r.db.WithContext(ctx).Model(&models.Notification{}).
		Where("recipient_id = ? AND is_deleted = ?", recipientID, false).
		Update("is_deleted", true).Error
}
