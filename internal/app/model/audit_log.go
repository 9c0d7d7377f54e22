package model

import (
	"errors"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Audit actions
const (
	ActionRestaurantSync       = "RESTAURANT_SYNC"
	ActionRestaurantSyncFailed = "RESTAURANT_SYNC_FAILED"
	ActionRestaurantAdminEdit  = "RESTAURANT_ADMIN_EDIT"
	ActionRestaurantDedup      = "RESTAURANT_DEDUP"
	ActionPlacesImport         = "GOOGLE_PLACES_IMPORT"
	ActionListingsRefresh      = "LISTINGS_REFRESH"
	ActionHealthCheckFailed    = "HEALTH_CHECK_FAILED"
	ActionQuotaWarning         = "API_QUOTA_WARNING"
)

// Audit entities
const (
	EntityRestaurant = "Restaurant"
	EntitySystem     = "System"
)

var ErrAuditLogImmutable = errors.New("audit log entries cannot be modified")

// AuditLog append-only ledger of sync history and alerts
type AuditLog struct {
	ID        uint              `gorm:"primarykey" json:"id"`
	Action    string            `gorm:"type:varchar(64);not null;index" json:"action"`
	Entity    string            `gorm:"type:varchar(64);index" json:"entity"`
	EntityID  string            `gorm:"type:varchar(255);index" json:"entity_id"`
	Changes   datatypes.JSONMap `json:"changes"`
	CreatedAt time.Time         `gorm:"index" json:"created_at"`
}

func (AuditLog) TableName() string {
	return "audit_logs"
}

// BeforeUpdate rejects any mutation of an inserted entry.
func (a *AuditLog) BeforeUpdate(tx *gorm.DB) error {
	return ErrAuditLogImmutable
}
