package repository

import (
	"github.com/harborlist/harborlist/app/models"
	"gorm.io/gorm"
)

// auditRepository implements the AuditRepository interface
type auditRepository struct {
	db *gorm.DB
}

// NewAuditRepository creates a new audit event repository instance
func NewAuditRepository(db *gorm.DB) AuditRepository {
	return &auditRepository{db: db}
}

// Insert persists a single audit event
func (r *auditRepository) Insert(event *models.AuditEvent) error {
	return r.db.Create(event).Error
}
