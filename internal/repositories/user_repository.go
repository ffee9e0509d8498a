package repositories

import (
	"context"

	"github.com/semtim/backend/internal/models"
	"gorm.io/gorm"
)

// UserRepository defines the interface for user data operations. The
// ListActiveIDs* methods back audience resolution and must only ever return
// active accounts.
type UserRepository interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByID(ctx context.Context, id uint) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByFirebaseUID(ctx context.Context, firebaseUID string) (*models.User, error)
	UpdateUser(ctx context.Context, user *models.User) error
	DeactivateUser(ctx context.Context, id uint) error

	ListActiveIDs(ctx context.Context) ([]uint, error)
	ListActiveIDsByCity(ctx context.Context, city string) ([]uint, error)
	ListActiveIDsByDistrict(ctx context.Context, city, district string) ([]uint, error)
	ListActiveIDsByCategory(ctx context.Context, category string) ([]uint, error)
	FilterActive(ctx context.Context, ids []uint) ([]uint, error)

	ListInterests(ctx context.Context, userID uint) ([]string, error)
	ReplaceInterests(ctx context.Context, userID uint, categories []string) error
}

// PostgresUserRepository implements UserRepository for PostgreSQL
type PostgresUserRepository struct {
	db *gorm.DB
}

// NewPostgresUserRepository creates a new PostgresUserRepository
func NewPostgresUserRepository(db *gorm.DB) *PostgresUserRepository {
	return &PostgresUserRepository{db: db}
}

func (r *PostgresUserRepository) CreateUser(ctx context.Context, user *models.User) error {
	return r.db.WithContext(ctx).Create(user).Error
}

func (r *PostgresUserRepository) GetUserByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *PostgresUserRepository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *PostgresUserRepository) GetUserByFirebaseUID(ctx context.Context, firebaseUID string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("firebase_uid = ?", firebaseUID).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *PostgresUserRepository) UpdateUser(ctx context.Context, user *models.User) error {
	return r.db.WithContext(ctx).Save(user).Error
}

// DeactivateUser soft-disables an account. Deactivated users keep their rows
// but drop out of every resolved audience.
func (r *PostgresUserRepository) DeactivateUser(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Update("is_active", false).Error
}

func (r *PostgresUserRepository) ListActiveIDs(ctx context.Context) ([]uint, error) {
	var ids []uint
	err := r.db.WithContext(ctx).Model(&models.User{}).Where("is_active = ?", true).Pluck("id", &ids).Error
	return ids, err
}

func (r *PostgresUserRepository) ListActiveIDsByCity(ctx context.Context, city string) ([]uint, error) {
	var ids []uint
	err := r.db.WithContext(ctx).Model(&models.User{}).
		Where("is_active = ? AND city = ?", true, city).
		Pluck("id", &ids).Error
	return ids, err
}

// ListActiveIDsByDistrict scopes the district within its city; district names
// repeat across cities.
func (r *PostgresUserRepository) ListActiveIDsByDistrict(ctx context.Context, city, district string) ([]uint, error) {
	var ids []uint
	err := r.db.WithContext(ctx).Model(&models.User{}).
		Where("is_active = ? AND city = ? AND district = ?", true, city, district).
		Pluck("id", &ids).Error
	return ids, err
}

func (r *PostgresUserRepository) ListActiveIDsByCategory(ctx context.Context, category string) ([]uint, error) {
	var ids []uint
	err := r.db.WithContext(ctx).Model(&models.User{}).
		Where("is_active = ? AND id IN (?)", true,
			r.db.Table("interest_subscriptions").Select("user_id").Where("category = ?", category),
		).
		Pluck("id", &ids).Error
	return ids, err
}

func (r *PostgresUserRepository) FilterActive(ctx context.Context, ids []uint) ([]uint, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var active []uint
	err := r.db.WithContext(ctx).Model(&models.User{}).
		Where("is_active = ? AND id IN ?", true, ids).
		Pluck("id", &active).Error
	return active, err
}

func (r *PostgresUserRepository) ListInterests(ctx context.Context, userID uint) ([]string, error) {
	var categories []string
	err := r.db.WithContext(ctx).Model(&models.InterestSubscription{}).
		Where("user_id = ?", userID).
		Pluck("category", &categories).Error
	return categories, err
}

// ReplaceInterests swaps a user's full category subscription list in one transaction.
func (r *PostgresUserRepository) ReplaceInterests(ctx context.Context, userID uint, categories []string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", userID).Delete(&models.InterestSubscription{}).Error; err != nil {
			return err
		}
		if len(categories) == 0 {
			return nil
		}
		subs := make([]models.InterestSubscription, 0, len(categories))
		for _, c := range categories {
			subs = append(subs, models.InterestSubscription{UserID: userID, Category: c})
		}
		return tx.Create(&subs).Error
	})
}
