package models

import "time"

const (
	AccountClassIndividual = "individual"
	AccountClassDealer     = "dealer"
)

// Baseline tier ids per account class. Deactivation and expiry always land here.
const (
	TierIndividualBasic   = "individual-basic"
	TierIndividualPremium = "individual-premium"
	TierDealerBasic       = "dealer-basic"
	TierDealerPro         = "dealer-pro"
)

// Feature is a single feature flag inside a tier definition.
type Feature struct {
	FeatureID string `json:"feature_id"`
	Enabled   bool   `json:"enabled"`
}

// Limits holds the numeric and boolean quotas attached to a tier or snapshot.
type Limits struct {
	MaxListings       int  `json:"max_listings"`
	MaxImages         int  `json:"max_images"`
	MaxSubAccounts    int  `json:"max_sub_accounts"`
	FeaturedListings  int  `json:"featured_listings"`
	PriorityPlacement bool `json:"priority_placement"`
	AnalyticsAccess   bool `json:"analytics_access"`
	BulkOperations    bool `json:"bulk_operations"`
	AdvancedSearch    bool `json:"advanced_search"`
	PremiumSupport    bool `json:"premium_support"`
}

// MergeMax combines two limit sets, taking the maximum of numeric fields and
// the OR of boolean fields. Overrides can only extend capacity, never shrink it.
func (l Limits) MergeMax(o Limits) Limits {
	return Limits{
		MaxListings:       maxInt(l.MaxListings, o.MaxListings),
		MaxImages:         maxInt(l.MaxImages, o.MaxImages),
		MaxSubAccounts:    maxInt(l.MaxSubAccounts, o.MaxSubAccounts),
		FeaturedListings:  maxInt(l.FeaturedListings, o.FeaturedListings),
		PriorityPlacement: l.PriorityPlacement || o.PriorityPlacement,
		AnalyticsAccess:   l.AnalyticsAccess || o.AnalyticsAccess,
		BulkOperations:    l.BulkOperations || o.BulkOperations,
		AdvancedSearch:    l.AdvancedSearch || o.AdvancedSearch,
		PremiumSupport:    l.PremiumSupport || o.PremiumSupport,
	}
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// Tier is a published plan definition. Rows are immutable once published:
// pricing or limit changes are new tier records, existing rows only ever get
// deactivated so running subscriptions keep their entitlements.
type Tier struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	TierID       string    `gorm:"type:varchar(50);uniqueIndex;not null" json:"tier_id" validate:"required,min=3,max=50"`
	Name         string    `gorm:"type:varchar(100);not null" json:"name" validate:"required,max=100"`
	AccountClass string    `gorm:"type:varchar(20);not null;index" json:"account_class" validate:"oneof=individual dealer"`
	IsPremium    bool      `gorm:"default:false" json:"is_premium"`
	Features     []Feature `gorm:"serializer:json;type:json" json:"features"`
	Limits       Limits    `gorm:"serializer:json;type:json" json:"limits"`
	PriceMonthly int       `gorm:"default:0" json:"price_monthly"` // cents
	PriceYearly  int       `gorm:"default:0" json:"price_yearly"`  // cents
	Currency     string    `gorm:"type:varchar(3);default:'USD'" json:"currency"`
	Active       bool      `gorm:"default:true;index" json:"active"`
	DisplayOrder int       `gorm:"default:0" json:"display_order"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// FeatureSet returns the enabled feature ids of the tier as a lookup set.
func (t *Tier) FeatureSet() map[string]bool {
	set := make(map[string]bool, len(t.Features))
	for _, f := range t.Features {
		if f.Enabled {
			set[f.FeatureID] = true
		}
	}
	return set
}

// BaselineTierID returns the non-premium fallback tier for an account class.
func BaselineTierID(accountClass string) string {
	if accountClass == AccountClassDealer {
		return TierDealerBasic
	}
	return TierIndividualBasic
}
