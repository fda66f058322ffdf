package repository

import (
	"errors"

	"github.com/harborlist/harborlist/app/models"
	"gorm.io/gorm"
)

// tierRepository implements the TierRepository interface
type tierRepository struct {
	db *gorm.DB
}

// NewTierRepository creates a new tier repository instance
func NewTierRepository(db *gorm.DB) TierRepository {
	return &tierRepository{db: db}
}

// GetByTierID retrieves a tier by its catalog id. Missing tiers surface as
// models.ErrTierNotFound, never a silently substituted default.
func (r *tierRepository) GetByTierID(tierID string) (*models.Tier, error) {
	var tier models.Tier
	err := r.db.Where("tier_id = ?", tierID).First(&tier).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.ErrTierNotFound
		}
		return nil, err
	}
	return &tier, nil
}

// ListActive returns active tiers sorted by display order, optionally
// filtered to one account class.
func (r *tierRepository) ListActive(accountClass string) ([]models.Tier, error) {
	var tiers []models.Tier
	q := r.db.Where("active = ?", true)
	if accountClass != "" {
		q = q.Where("account_class = ?", accountClass)
	}
	err := q.Order("display_order ASC, tier_id ASC").Find(&tiers).Error
	return tiers, err
}

// Create publishes a new tier record. Administrative seeding path only.
func (r *tierRepository) Create(tier *models.Tier) error {
	return r.db.Create(tier).Error
}

// Deactivate retires a tier from the catalog without deleting it. Existing
// subscribers keep their snapshots.
func (r *tierRepository) Deactivate(tierID string) error {
	tx := r.db.Model(&models.Tier{}).Where("tier_id = ?", tierID).Update("active", false)
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return models.ErrTierNotFound
	}
	return nil
}
