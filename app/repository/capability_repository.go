package repository

import (
	"github.com/harborlist/harborlist/app/models"
	"gorm.io/gorm"
)

// capabilityRepository implements the CapabilityRepository interface
type capabilityRepository struct {
	db *gorm.DB
}

// NewCapabilityRepository creates a new capability grant repository instance
func NewCapabilityRepository(db *gorm.DB) CapabilityRepository {
	return &capabilityRepository{db: db}
}

// Append inserts a new grant row. Rows are never updated or deleted; a
// revocation is just another row with Enabled=false.
func (r *capabilityRepository) Append(grant *models.CapabilityGrant) error {
	return r.db.Create(grant).Error
}

// ListByAccount returns the full grant history for an account, newest first.
func (r *capabilityRepository) ListByAccount(accountID uint) ([]models.CapabilityGrant, error) {
	var grants []models.CapabilityGrant
	err := r.db.
		Where("account_id = ?", accountID).
		Order("granted_at DESC, id DESC").
		Find(&grants).Error
	return grants, err
}
