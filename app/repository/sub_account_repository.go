package repository

import (
	"errors"

	"github.com/harborlist/harborlist/app/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// subAccountRepository implements the SubAccountRepository interface
type subAccountRepository struct {
	db *gorm.DB
}

// NewSubAccountRepository creates a new sub-account repository instance
func NewSubAccountRepository(db *gorm.DB) SubAccountRepository {
	return &subAccountRepository{db: db}
}

// GetByID retrieves a sub-account by its ID
func (r *subAccountRepository) GetByID(id uint) (*models.SubAccount, error) {
	var sub models.SubAccount
	err := r.db.First(&sub, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.ErrSubAccountNotFound
		}
		return nil, err
	}
	return &sub, nil
}

// ListByParent returns all sub-accounts of a parent, suspended ones included.
func (r *subAccountRepository) ListByParent(parentAccountID uint) ([]models.SubAccount, error) {
	var subs []models.SubAccount
	err := r.db.
		Where("parent_account_id = ?", parentAccountID).
		Order("created_at ASC").
		Find(&subs).Error
	return subs, err
}

// CountActiveByParent counts the active sub-accounts of a parent account.
func (r *subAccountRepository) CountActiveByParent(parentAccountID uint) (int64, error) {
	var count int64
	err := r.db.Model(&models.SubAccount{}).
		Where("parent_account_id = ? AND status = ?", parentAccountID, models.SubAccountStatusActive).
		Count(&count).Error
	return count, err
}

// CreateWithinQuota inserts the sub-account under the per-tier quota. The
// parent row is locked for the duration of the transaction so the count and
// the insert are atomic against concurrent creations.
func (r *subAccountRepository) CreateWithinQuota(sub *models.SubAccount, maxSubAccounts int) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		var parent models.Account
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&parent, sub.ParentAccountID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return models.ErrAccountNotFound
			}
			return err
		}

		var count int64
		if err := tx.Model(&models.SubAccount{}).
			Where("parent_account_id = ? AND status = ?", sub.ParentAccountID, models.SubAccountStatusActive).
			Count(&count).Error; err != nil {
			return err
		}
		if count >= int64(maxSubAccounts) {
			return models.ErrSubAccountLimitReached
		}

		return tx.Create(sub).Error
	})
}

// Update saves permission and scope changes on an existing sub-account.
func (r *subAccountRepository) Update(sub *models.SubAccount) error {
	return r.db.Save(sub).Error
}

// Suspend soft-deletes a sub-account by flipping its status. The row stays so
// past actions keep their attribution.
func (r *subAccountRepository) Suspend(id uint) error {
	tx := r.db.Model(&models.SubAccount{}).
		Where("id = ?", id).
		Update("status", models.SubAccountStatusSuspended)
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return models.ErrSubAccountNotFound
	}
	return nil
}
