package repository

import (
	"errors"

	"github.com/ekaty/ekaty-backend/internal/app/model"
	"github.com/ekaty/ekaty-backend/pkg/logger"
	"gorm.io/gorm"
)

// ApiUsageRepository stores the per-day provider request counters
type ApiUsageRepository interface {
	FindOrCreateByDate(date string) (*model.ApiUsage, error)
	FindByDate(date string) (*model.ApiUsage, error)
	IncrementByDate(date string) error
	DeleteBefore(date string) (int64, error)
}

type apiUsageRepository struct {
	db *gorm.DB
}

func NewApiUsageRepository(db *gorm.DB) ApiUsageRepository {
	return &apiUsageRepository{db: db}
}

// FindOrCreateByDate lazily creates the row for date.
func (r *apiUsageRepository) FindOrCreateByDate(date string) (*model.ApiUsage, error) {
	var usage model.ApiUsage
	if err := r.db.Where(model.ApiUsage{Date: date}).
		Attrs(model.ApiUsage{RequestCount: 0}).
		FirstOrCreate(&usage).Error; err != nil {
		logger.Error("Failed to find or create api usage", err, map[string]interface{}{
			"date": date,
		})
		return nil, err
	}
	return &usage, nil
}

// FindByDate returns nil, nil when the day has no row yet.
func (r *apiUsageRepository) FindByDate(date string) (*model.ApiUsage, error) {
	var usage model.ApiUsage
	if err := r.db.Where("date = ?", date).First(&usage).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		logger.Error("Failed to find api usage", err, map[string]interface{}{
			"date": date,
		})
		return nil, err
	}
	return &usage, nil
}

// IncrementByDate adds one in a single UPDATE statement.
func (r *apiUsageRepository) IncrementByDate(date string) error {
	result := r.db.Model(&model.ApiUsage{}).
		Where("date = ?", date).
		UpdateColumn("request_count", gorm.Expr("request_count + ?", 1))
	if result.Error != nil {
		logger.Error("Failed to increment api usage", result.Error, map[string]interface{}{
			"date": date,
		})
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// DeleteBefore removes rows whose date sorts before date.
func (r *apiUsageRepository) DeleteBefore(date string) (int64, error) {
	result := r.db.Where("date < ?", date).Delete(&model.ApiUsage{})
	if result.Error != nil {
		logger.Error("Failed to delete old api usage", result.Error, map[string]interface{}{
			"before": date,
		})
		return 0, result.Error
	}
	return result.RowsAffected, nil
}
