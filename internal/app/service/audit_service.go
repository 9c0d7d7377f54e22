package service

import (
	"github.com/ekaty/ekaty-backend/internal/app/model"
	"github.com/ekaty/ekaty-backend/internal/app/repository"
	"github.com/ekaty/ekaty-backend/pkg/logger"
	"gorm.io/datatypes"
)

// AuditService appends to the audit ledger. A failed write is logged and
// never fails the operation being audited.
type AuditService interface {
	Record(action, entity, entityID string, changes map[string]interface{})
	List(filter repository.AuditLogFilter) ([]model.AuditLog, int64, error)
	Latest(actions ...string) (*model.AuditLog, error)
}

type auditService struct {
	auditRepo repository.AuditLogRepository
}

func NewAuditService(auditRepo repository.AuditLogRepository) AuditService {
	return &auditService{auditRepo: auditRepo}
}

func (s *auditService) Record(action, entity, entityID string, changes map[string]interface{}) {
	entry := &model.AuditLog{
		Action:   action,
		Entity:   entity,
		EntityID: entityID,
		Changes:  datatypes.JSONMap(changes),
	}
	if err := s.auditRepo.Create(entry); err != nil {
		logger.Warn("Audit log write failed", map[string]interface{}{
			"action":    action,
			"entity_id": entityID,
			"error":     err.Error(),
		})
	}
}

func (s *auditService) List(filter repository.AuditLogFilter) ([]model.AuditLog, int64, error) {
	return s.auditRepo.FindAll(filter)
}

func (s *auditService) Latest(actions ...string) (*model.AuditLog, error) {
	return s.auditRepo.FindLatestByActions(actions...)
}
