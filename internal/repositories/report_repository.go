package repositories

import (
	"context"

	"github.com/semtim/backend/internal/models"
	"gorm.io/gorm"
)

// ReportRepository defines the interface for report data operations
type ReportRepository interface {
	CreateReport(ctx context.Context, report *models.Report) error
	GetReportByID(ctx context.Context, id string) (*models.Report, error)
	ListByCity(ctx context.Context, city string, page, limit int) ([]models.Report, int64, error)
}

// PostgresReportRepository implements ReportRepository for PostgreSQL
type PostgresReportRepository struct {
	db *gorm.DB
}

// NewPostgresReportRepository creates a new PostgresReportRepository
func NewPostgresReportRepository(db *gorm.DB) *PostgresReportRepository {
	return &PostgresReportRepository{db: db}
}

func (r *PostgresReportRepository) CreateReport(ctx context.Context, report *models.Report) error {
	return r.db.WithContext(ctx).Create(report).Error
}

func (r *PostgresReportRepository) GetReportByID(ctx context.Context, id string) (*models.Report, error) {
	var report models.Report
	if err := r.db.WithContext(ctx).First(&report, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &report, nil
}

// ListByCity is the feed query: LOW-severity reports are visible here even
// though they never fan out as notifications.
func (r *PostgresReportRepository) ListByCity(ctx context.Context, city string, page, limit int) ([]models.Report, int64, error) {
	var reports []models.Report
	var total int64

	q := r.db.WithContext(ctx).Model(&models.Report{}).Where("city = ?", city)
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	err := q.Order("created_at DESC").Offset(offset).Limit(limit).Find(&reports).Error
	return reports, total, err
}
