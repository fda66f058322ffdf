package repository

import (
	"time"

	"github.com/harborlist/harborlist/app/models"
	"gorm.io/gorm"
)

// TierRepository defines the interface for tier catalog operations. The
// catalog is read-only at runtime; Create and Deactivate exist for seeding and
// administrative versioning only.
type TierRepository interface {
	GetByTierID(tierID string) (*models.Tier, error)
	ListActive(accountClass string) ([]models.Tier, error)
	Create(tier *models.Tier) error
	Deactivate(tierID string) error
}

// AccountRepository defines the interface for account reads and the
// optimistic-concurrency write path.
type AccountRepository interface {
	Create(account *models.Account) error
	GetByID(id uint) (*models.Account, error)
	// UpdateWithVersion writes the account conditioned on its loaded version
	// and bumps the version on success. Returns models.ErrVersionConflict when
	// another writer got there first.
	UpdateWithVersion(account *models.Account) error
	// BumpVersion invalidates cached entitlement resolutions for the account
	// without touching any other column.
	BumpVersion(id uint) error
	// FindExpired enumerates accounts whose premium membership has lapsed at
	// the given instant. Paged so the sweeper never loads an unbounded set.
	FindExpired(now time.Time, limit, offset int) ([]models.Account, error)
	Count() (int64, error)
}

// CapabilityRepository defines the interface for the append-only capability
// grant store.
type CapabilityRepository interface {
	Append(grant *models.CapabilityGrant) error
	ListByAccount(accountID uint) ([]models.CapabilityGrant, error)
}

// SubAccountRepository defines the interface for sub-account operations.
type SubAccountRepository interface {
	GetByID(id uint) (*models.SubAccount, error)
	ListByParent(parentAccountID uint) ([]models.SubAccount, error)
	CountActiveByParent(parentAccountID uint) (int64, error)
	// CreateWithinQuota inserts the sub-account only if the parent's active
	// sub-account count is below maxSubAccounts. Count and insert run inside
	// one transaction holding a row lock on the parent, so two concurrent
	// creations can never both slip past the limit.
	CreateWithinQuota(sub *models.SubAccount, maxSubAccounts int) error
	Update(sub *models.SubAccount) error
	Suspend(id uint) error
}

// ListingRepository defines the interface for listing ownership lookups.
type ListingRepository interface {
	Create(listing *models.Listing) error
	OwnerOf(listingID uint) (uint, error)
	ListIDsByAccount(accountID uint) ([]uint, error)
}

// AuditRepository defines the interface for audit event persistence.
type AuditRepository interface {
	Insert(event *models.AuditEvent) error
}

// Repositories struct holds all repository instances
type Repositories struct {
	Tier       TierRepository
	Account    AccountRepository
	Capability CapabilityRepository
	SubAccount SubAccountRepository
	Listing    ListingRepository
	Audit      AuditRepository
}

// NewRepositories creates all repositories with the given database connection
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		Tier:       NewTierRepository(db),
		Account:    NewAccountRepository(db),
		Capability: NewCapabilityRepository(db),
		SubAccount: NewSubAccountRepository(db),
		Listing:    NewListingRepository(db),
		Audit:      NewAuditRepository(db),
	}
}
