package repository

import (
	"errors"

	"github.com/ekaty/ekaty-backend/internal/app/model"
	"github.com/ekaty/ekaty-backend/pkg/logger"
	"gorm.io/gorm"
)

type AuditLogFilter struct {
	Action   string
	Entity   string
	EntityID string
	Page     int
	PageSize int
}

// AuditLogRepository is append-only: there is no update or delete.
type AuditLogRepository interface {
	Create(entry *model.AuditLog) error
	FindAll(filter AuditLogFilter) ([]model.AuditLog, int64, error)
	FindLatestByActions(actions ...string) (*model.AuditLog, error)
}

type auditLogRepository struct {
	db *gorm.DB
}

func NewAuditLogRepository(db *gorm.DB) AuditLogRepository {
	return &auditLogRepository{db: db}
}

func (r *auditLogRepository) Create(entry *model.AuditLog) error {
	if err := r.db.Create(entry).Error; err != nil {
		logger.Error("Failed to write audit log", err, map[string]interface{}{
			"action":    entry.Action,
			"entity_id": entry.EntityID,
		})
		return err
	}
	return nil
}

func (r *auditLogRepository) FindAll(filter AuditLogFilter) ([]model.AuditLog, int64, error) {
	query := r.db.Model(&model.AuditLog{})
	if filter.Action != "" {
		query = query.Where("action = ?", filter.Action)
	}
	if filter.Entity != "" {
		query = query.Where("entity = ?", filter.Entity)
	}
	if filter.EntityID != "" {
		query = query.Where("entity_id = ?", filter.EntityID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		logger.Error("Failed to count audit logs", err)
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

	var entries []model.AuditLog
	if err := query.Order("created_at DESC, id DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&entries).Error; err != nil {
		logger.Error("Failed to list audit logs", err)
		return nil, 0, err
	}
	return entries, total, nil
}

// FindLatestByActions returns nil, nil when no entry matches.
func (r *auditLogRepository) FindLatestByActions(actions ...string) (*model.AuditLog, error) {
	var entry model.AuditLog
	if err := r.db.Where("action IN ?", actions).
		Order("created_at DESC, id DESC").
		First(&entry).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		logger.Error("Failed to find latest audit log", err)
		return nil, err
	}
	return &entry, nil
}
