package repository

import (
	"errors"
	"time"

	"github.com/harborlist/harborlist/app/models"
	"gorm.io/gorm"
)

// accountRepository implements the AccountRepository interface
type accountRepository struct {
	db *gorm.DB
}

// NewAccountRepository creates a new account repository instance
func NewAccountRepository(db *gorm.DB) AccountRepository {
	return &accountRepository{db: db}
}

// Create creates a new account in the database
func (r *accountRepository) Create(account *models.Account) error {
	return r.db.Create(account).Error
}

// GetByID retrieves an account with its capability grants, newest grant first
// so the resolver sees the authoritative row per feature without re-sorting.
func (r *accountRepository) GetByID(id uint) (*models.Account, error) {
	var account models.Account
	err := r.db.
		Preload("Capabilities", func(db *gorm.DB) *gorm.DB {
			return db.Order("granted_at DESC, id DESC")
		}).
		First(&account, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.ErrAccountNotFound
		}
		return nil, err
	}
	return &account, nil
}

// UpdateWithVersion performs the conditional write backing all membership
// mutations: the row is updated only if nobody changed it since it was read.
func (r *accountRepository) UpdateWithVersion(account *models.Account) error {
	current := account.Version
	account.Version = current + 1

	tx := r.db.Model(&models.Account{}).
		Where("id = ? AND version = ?", account.ID, current).
		Select("*").
		Omit("id", "created_at", "deleted_at", "Capabilities").
		Updates(account)
	if tx.Error != nil {
		account.Version = current
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		account.Version = current
		return models.ErrVersionConflict
	}
	return nil
}

// BumpVersion increments the account version in place. Capability grant
// writes call this so stale cached entitlements stop matching.
func (r *accountRepository) BumpVersion(id uint) error {
	tx := r.db.Model(&models.Account{}).
		Where("id = ?", id).
		UpdateColumn("version", gorm.Expr("version + 1"))
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return models.ErrAccountNotFound
	}
	return nil
}

// FindExpired enumerates accounts whose premium membership has lapsed. The
// predicate mirrors ExpireIfDue exactly; paging keeps sweep memory bounded.
func (r *accountRepository) FindExpired(now time.Time, limit, offset int) ([]models.Account, error) {
	var accounts []models.Account
	err := r.db.
		Where("membership_premium_active = ? AND membership_expires_at IS NOT NULL AND membership_expires_at <= ?", true, now).
		Order("membership_expires_at ASC, id ASC").
		Limit(limit).
		Offset(offset).
		Find(&accounts).Error
	return accounts, err
}

// Count returns the total number of accounts
func (r *accountRepository) Count() (int64, error) {
	var count int64
	err := r.db.Model(&models.Account{}).Count(&count).Error
	return count, err
}
