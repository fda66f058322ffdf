package models

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const (
	SubAccountRoleAdmin   = "admin"
	SubAccountRoleManager = "manager"
	SubAccountRoleStaff   = "staff"

	SubAccountStatusActive    = "active"
	SubAccountStatusSuspended = "suspended"
)

// AccessScope restricts which of the parent's resources a sub-account may act
// on. AllListings grants the full inventory; otherwise ListingIDs is the
// explicit allow list. The area booleans gate whole feature surfaces.
type AccessScope struct {
	AllListings    bool   `json:"all_listings"`
	ListingIDs     []uint `json:"listing_ids,omitempty"`
	Leads          bool   `json:"leads"`
	Analytics      bool   `json:"analytics"`
	Inventory      bool   `json:"inventory"`
	Pricing        bool   `json:"pricing"`
	Communications bool   `json:"communications"`
}

// CoversListing reports whether the scope includes the given listing.
func (s AccessScope) CoversListing(listingID uint) bool {
	if s.AllListings {
		return true
	}
	for _, id := range s.ListingIDs {
		if id == listingID {
			return true
		}
	}
	return false
}

// SubAccount is a delegated identity acting under a parent account. Rows are
// never hard-deleted; suspension keeps historical attribution of past actions
// intact.
type SubAccount struct {
	ID                   uint           `gorm:"primaryKey" json:"id"`
	ParentAccountID      uint           `gorm:"not null;index" json:"parent_account_id" validate:"required"`
	Name                 string         `gorm:"type:varchar(150);not null" json:"name" validate:"required,min=3,max=150"`
	Email                string         `gorm:"uniqueIndex;type:varchar(200);not null" json:"email" validate:"required,email,max=200"`
	PasswordHash         string         `gorm:"type:text" json:"-"`
	Role                 string         `gorm:"type:varchar(20);not null" json:"role" validate:"oneof=admin manager staff"`
	AccessScope          AccessScope    `gorm:"serializer:json;type:json" json:"access_scope"`
	DelegatedPermissions []string       `gorm:"serializer:json;type:json" json:"delegated_permissions"`
	Status               string         `gorm:"type:varchar(20);default:'active';index" json:"status" validate:"oneof=active suspended"`
	InviteToken          string         `gorm:"type:varchar(40);index" json:"-"`
	InvitedAt            *time.Time     `gorm:"type:timestamp;default:null" json:"-"`
	CreatedAt            time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt            time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt            gorm.DeletedAt `gorm:"index" json:"-"`
}

func (s *SubAccount) Validate() error {
	v := validator.New()

	return v.Struct(s)
}

// IsActive reports whether the sub-account may act at all.
func (s *SubAccount) IsActive() bool {
	return s.Status == SubAccountStatusActive
}

// HasPermission reports whether the permission was delegated to this sub-account.
func (s *SubAccount) HasPermission(permission string) bool {
	for _, p := range s.DelegatedPermissions {
		if p == permission {
			return true
		}
	}
	return false
}

// SetPassword hashes and stores a new password for the sub-account.
func (s *SubAccount) SetPassword(password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	s.PasswordHash = string(hash)
	return nil
}

// CheckPassword verifies a password against the stored hash.
func (s *SubAccount) CheckPassword(password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(s.PasswordHash), []byte(password)) == nil
}

// GenerateInviteToken creates the token sent with the sub-account invitation.
func (s *SubAccount) GenerateInviteToken() {
	s.InviteToken = uuid.NewString()
	now := time.Now()
	s.InvitedAt = &now
}
