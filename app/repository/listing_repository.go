package repository

import (
	"errors"

	"github.com/harborlist/harborlist/app/models"
	"gorm.io/gorm"
)

// listingRepository implements the ListingRepository interface
type listingRepository struct {
	db *gorm.DB
}

// NewListingRepository creates a new listing repository instance
func NewListingRepository(db *gorm.DB) ListingRepository {
	return &listingRepository{db: db}
}

// Create creates a new listing ownership record
func (r *listingRepository) Create(listing *models.Listing) error {
	return r.db.Create(listing).Error
}

// OwnerOf resolves a listing to its owning account id.
func (r *listingRepository) OwnerOf(listingID uint) (uint, error) {
	var listing models.Listing
	err := r.db.Select("id", "account_id").First(&listing, listingID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, gorm.ErrRecordNotFound
		}
		return 0, err
	}
	return listing.AccountID, nil
}

// ListIDsByAccount returns the ids of all non-deleted listings an account owns.
func (r *listingRepository) ListIDsByAccount(accountID uint) ([]uint, error) {
	var ids []uint
	err := r.db.Model(&models.Listing{}).
		Where("account_id = ?", accountID).
		Pluck("id", &ids).Error
	return ids, err
}
