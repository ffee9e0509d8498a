package repositories

import (
	"context"

	"github.com/semtim/backend/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PushTokenRepository defines the interface for push token operations. The
// notification core only reads tokens; writes come from the client's
// push-registration flow and from gateway-reported pruning.
type PushTokenRepository interface {
	Upsert(ctx context.Context, userID uint, token string) error
	DeleteByUserID(ctx context.Context, userID uint) error
	DeleteByToken(ctx context.Context, token string) error
	GetByUserIDs(ctx context.Context, userIDs []uint) (map[uint]string, error)
}

type postgresPushTokenRepository struct {
	db *gorm.DB
}

func NewPostgresPushTokenRepository(db *gorm.DB) PushTokenRepository {
	return &postgresPushTokenRepository{db: db}
}

// Upsert registers or replaces the user's current device token.
func (r *postgresPushTokenRepository) Upsert(ctx context.Context, userID uint, token string) error {
	row := models.PushToken{UserID: userID, Token: token}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"token", "updated_at"}),
		}).
		Create(&row).Error
}

func (r *postgresPushTokenRepository) DeleteByUserID(ctx context.Context, userID uint) error {
	return r.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&models.PushToken{}).Error
}

// DeleteByToken prunes a token the gateway reported as no longer registered.
func (r *postgresPushTokenRepository) DeleteByToken(ctx context.Context, token string) error {
	return r.db.WithContext(ctx).Where("token = ?", token).Delete(&models.PushToken{}).Error
}

// GetByUserIDs resolves tokens for a batch of users. Users without a token
// are simply absent from the result.
func (r *postgresPushTokenRepository) GetByUserIDs(ctx context.Context, userIDs []uint) (map[uint]string, error) {
	if len(userIDs) == 0 {
		return map[uint]string{}, nil
	}
	var rows []models.PushToken
	if err := r.db.WithContext(ctx).Where("user_id IN ?", userIDs).Find(&rows).Error; err != nil {
		return nil, err
	}
	tokens := make(map[uint]string, len(rows))
	for _, row := range rows {
		if row.Token != "" {
			tokens[row.UserID] = row.Token
		}
	}
	return tokens, nil
}
