package models

import (
	"time"

	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"
)

const (
	AccountStatusActive   = "active"
	AccountStatusInactive = "inactive"
	AccountStatusDisabled = "disabled"
)

const (
	BillingCycleMonthly = "monthly"
	BillingCycleYearly  = "yearly"
)

// MembershipDetails is the premium membership state embedded in an account.
// Feature and limit snapshots are taken at activation time so a later catalog
// change can never silently alter a running subscription.
type MembershipDetails struct {
	PremiumActive    bool       `gorm:"default:false" json:"premium_active"`
	PlanTierID       string     `gorm:"type:varchar(50);default:''" json:"plan_tier_id"`
	FeaturesSnapshot []Feature  `gorm:"serializer:json;type:json" json:"features_snapshot"`
	LimitsSnapshot   Limits     `gorm:"serializer:json;type:json" json:"limits_snapshot"`
	ExpiresAt        *time.Time `gorm:"type:timestamp;default:null" json:"expires_at"`
	AutoRenew        bool       `gorm:"default:false" json:"auto_renew"`
	BillingCycle     string     `gorm:"type:varchar(10);default:''" json:"billing_cycle"`
}

// Account is a primary (billable) identity on the platform. Membership and
// capability grants hang off the same row so a single conditional write keeps
// them consistent; Version backs the optimistic concurrency scheme.
type Account struct {
	ID            uint              `gorm:"primaryKey" json:"id"`
	Name          string            `gorm:"type:varchar(150);not null" json:"name" validate:"required,min=3,max=150"`
	Email         string            `gorm:"uniqueIndex;type:varchar(200);not null" json:"email" validate:"required,email,max=200"`
	AccountClass  string            `gorm:"type:varchar(20);not null;index" json:"account_class" validate:"oneof=individual dealer"`
	CurrentTierID string            `gorm:"type:varchar(50);not null;index" json:"current_tier_id" validate:"required"`
	Membership    MembershipDetails `gorm:"embedded;embeddedPrefix:membership_" json:"membership"`
	Capabilities  []CapabilityGrant `gorm:"foreignKey:AccountID" json:"capabilities,omitempty"`
	Status        string            `gorm:"type:varchar(20);default:'active'" json:"status" validate:"oneof=active inactive disabled"`
	Version       int               `gorm:"not null;default:1" json:"version"`
	CreatedAt     time.Time         `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time         `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt     gorm.DeletedAt    `gorm:"index" json:"-"`
}

func (a *Account) Validate() error {
	v := validator.New()

	return v.Struct(a)
}

// PremiumActiveAt reports whether the premium membership is live at the given
// instant. The flag alone is not enough: a set expiry in the past means the
// account is authoritatively non-premium even before the sweeper catches it.
func (a *Account) PremiumActiveAt(now time.Time) bool {
	m := a.Membership
	if !m.PremiumActive {
		return false
	}
	if m.ExpiresAt != nil && !m.ExpiresAt.After(now) {
		return false
	}
	return m.ExpiresAt != nil || m.AutoRenew
}

// ClearMembership resets the premium state after a downgrade.
func (a *Account) ClearMembership() {
	a.Membership = MembershipDetails{}
}
