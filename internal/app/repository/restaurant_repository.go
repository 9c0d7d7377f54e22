package repository

import (
	"errors"
	"strings"
	"time"

	"github.com/ekaty/ekaty-backend/internal/app/model"
	"github.com/ekaty/ekaty-backend/pkg/logger"
	"gorm.io/gorm"
)

type RestaurantFilter struct {
	Search   string
	Source   string
	Cuisine  string
	Active   *bool
	Featured *bool
	Page     int
	PageSize int
}

// SourceCount is one row of the per-source aggregate.
type SourceCount struct {
	Source string `json:"source"`
	Count  int64  `json:"count"`
}

type RestaurantRepository interface {
	Create(restaurant *model.Restaurant) error
	Update(restaurant *model.Restaurant) error
	UpdateFields(id uint, updates map[string]interface{}) error
	Delete(id uint) error
	DeleteByIDs(ids []uint) (int64, error)
	FindByID(id uint) (*model.Restaurant, error)
	FindBySlug(slug string) (*model.Restaurant, error)
	FindBySourceID(sourceID string) (*model.Restaurant, error)
	SlugExists(slug string) (bool, error)
	FindAll(filter RestaurantFilter) ([]model.Restaurant, int64, error)
	FindAllOrderedByCreation() ([]model.Restaurant, error)
	FindActiveBySource(source string) ([]model.Restaurant, error)
	FindStale(source string, cutoff time.Time, limit int) ([]model.Restaurant, error)
	TouchLastVerified(ids []uint, at time.Time) (int64, error)
	CountBySource() ([]SourceCount, error)
}

type restaurantRepository struct {
	db *gorm.DB
}

func NewRestaurantRepository(db *gorm.DB) RestaurantRepository {
	return &restaurantRepository{db: db}
}

func (r *restaurantRepository) Create(restaurant *model.Restaurant) error {
	logger.Debug("Creating restaurant in database", map[string]interface{}{
		"name":      restaurant.Name,
		"slug":      restaurant.Slug,
		"source_id": restaurant.SourceKey(),
	})

	if err := r.db.Create(restaurant).Error; err != nil {
		logger.Error("Failed to create restaurant in database", err, map[string]interface{}{
			"name": restaurant.Name,
			"slug": restaurant.Slug,
		})
		return err
	}
	return nil
}

func (r *restaurantRepository) Update(restaurant *model.Restaurant) error {
	if err := r.db.Save(restaurant).Error; err != nil {
		logger.Error("Failed to update restaurant in database", err, map[string]interface{}{
			"restaurant_id": restaurant.ID,
		})
		return err
	}
	return nil
}

// UpdateFields writes only the given columns.
func (r *restaurantRepository) UpdateFields(id uint, updates map[string]interface{}) error {
	logger.Debug("Updating restaurant fields", map[string]interface{}{
		"restaurant_id": id,
		"fields":        len(updates),
	})

	result := r.db.Model(&model.Restaurant{}).Where("id = ?", id).Updates(updates)
	if result.Error != nil {
		logger.Error("Failed to update restaurant fields", result.Error, map[string]interface{}{
			"restaurant_id": id,
		})
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *restaurantRepository) Delete(id uint) error {
	if err := r.db.Delete(&model.Restaurant{}, id).Error; err != nil {
		logger.Error("Failed to delete restaurant", err, map[string]interface{}{
			"restaurant_id": id,
		})
		return err
	}
	return nil
}

func (r *restaurantRepository) DeleteByIDs(ids []uint) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	result := r.db.Where("id IN ?", ids).Delete(&model.Restaurant{})
	if result.Error != nil {
		logger.Error("Failed to delete restaurants", result.Error, map[string]interface{}{
			"count": len(ids),
		})
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

func (r *restaurantRepository) FindByID(id uint) (*model.Restaurant, error) {
	var restaurant model.Restaurant
	if err := r.db.First(&restaurant, id).Error; err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Error("Failed to find restaurant", err, map[string]interface{}{
				"restaurant_id": id,
			})
		}
		return nil, err
	}
	return &restaurant, nil
}

// FindBySlug returns nil, nil when no row matches.
func (r *restaurantRepository) FindBySlug(slug string) (*model.Restaurant, error) {
	var restaurant model.Restaurant
	if err := r.db.Where("slug = ?", slug).First(&restaurant).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		logger.Error("Failed to find restaurant by slug", err, map[string]interface{}{
			"slug": slug,
		})
		return nil, err
	}
	return &restaurant, nil
}

// FindBySourceID returns the oldest row carrying sourceID, or nil, nil.
func (r *restaurantRepository) FindBySourceID(sourceID string) (*model.Restaurant, error) {
	var restaurant model.Restaurant
	if err := r.db.Where("source_id = ?", sourceID).
		Order("created_at ASC, id ASC").
		First(&restaurant).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		logger.Error("Failed to find restaurant by source id", err, map[string]interface{}{
			"source_id": sourceID,
		})
		return nil, err
	}
	return &restaurant, nil
}

func (r *restaurantRepository) SlugExists(slug string) (bool, error) {
	var count int64
	if err := r.db.Model(&model.Restaurant{}).Where("slug = ?", slug).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *restaurantRepository) FindAll(filter RestaurantFilter) ([]model.Restaurant, int64, error) {
	logger.Debug("Finding restaurants", map[string]interface{}{
		"search": filter.Search,
		"source": filter.Source,
		"page":   filter.Page,
	})

	query := r.db.Model(&model.Restaurant{})
	if filter.Search != "" {
		like := "%" + strings.ToLower(filter.Search) + "%"
		query = query.Where("LOWER(name) LIKE ?", like)
	}
	if filter.Source != "" {
		query = query.Where("source = ?", filter.Source)
	}
	if filter.Cuisine != "" {
		query = query.Where("LOWER(cuisine_types) LIKE ?", "%"+strings.ToLower(filter.Cuisine)+"%")
	}
	if filter.Active != nil {
		query = query.Where("active = ?", *filter.Active)
	}
	if filter.Featured != nil {
		query = query.Where("featured = ?", *filter.Featured)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		logger.Error("Failed to count restaurants", err)
		return nil, 0, err
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 || pageSize > 200 {
		pageSize = 50
	}

	var restaurants []model.Restaurant
	if err := query.Order("name ASC, id ASC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&restaurants).Error; err != nil {
		logger.Error("Failed to find restaurants", err)
		return nil, 0, err
	}

	return restaurants, total, nil
}

func (r *restaurantRepository) FindAllOrderedByCreation() ([]model.Restaurant, error) {
	var restaurants []model.Restaurant
	if err := r.db.Order("created_at ASC, id ASC").Find(&restaurants).Error; err != nil {
		logger.Error("Failed to list restaurants by creation", err)
		return nil, err
	}
	return restaurants, nil
}

func (r *restaurantRepository) FindActiveBySource(source string) ([]model.Restaurant, error) {
	var restaurants []model.Restaurant
	if err := r.db.Where("active = ? AND source = ?", true, source).
		Order("id ASC").
		Find(&restaurants).Error; err != nil {
		logger.Error("Failed to list active restaurants", err, map[string]interface{}{
			"source": source,
		})
		return nil, err
	}
	return restaurants, nil
}

// FindStale lists rows never verified or verified before cutoff, oldest first.
func (r *restaurantRepository) FindStale(source string, cutoff time.Time, limit int) ([]model.Restaurant, error) {
	var restaurants []model.Restaurant
	query := r.db.Where("source = ?", source).
		Where("last_verified IS NULL OR last_verified < ?", cutoff).
		Order("last_verified IS NOT NULL, last_verified ASC, id ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&restaurants).Error; err != nil {
		logger.Error("Failed to find stale restaurants", err)
		return nil, err
	}
	return restaurants, nil
}

// TouchLastVerified sets last_verified without bumping updated_at.
func (r *restaurantRepository) TouchLastVerified(ids []uint, at time.Time) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	result := r.db.Model(&model.Restaurant{}).Where("id IN ?", ids).UpdateColumn("last_verified", at)
	if result.Error != nil {
		logger.Error("Failed to touch last_verified", result.Error)
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

func (r *restaurantRepository) CountBySource() ([]SourceCount, error) {
	var counts []SourceCount
	if err := r.db.Model(&model.Restaurant{}).
		Select("source, COUNT(*) as count").
		Group("source").
		Order("source ASC").
		Scan(&counts).Error; err != nil {
		logger.Error("Failed to count restaurants by source", err)
		return nil, err
	}
	return counts, nil
}
