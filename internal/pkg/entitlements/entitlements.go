package entitlements

import (
	"time"

	"github.com/harborlist/harborlist/app/models"
	"github.com/harborlist/harborlist/app/repository"
)

// Feature ids used across the platform. Tier definitions and capability
// grants both reference these.
const (
	FeatureListingManagement  = "listing_management"
	FeatureLeadManagement     = "lead_management"
	FeatureAnalyticsDashboard = "analytics_dashboard"
	FeatureBulkOperations     = "bulk_operations"
	FeatureAdvancedSearch     = "advanced_search"
	FeaturePriorityPlacement  = "priority_placement"
	FeatureFeaturedListings   = "featured_listings"
	FeaturePremiumSupport     = "premium_support"
	FeatureInventoryTools     = "inventory_tools"
	FeaturePricingTools       = "pricing_tools"
	FeatureCommunications     = "communications"
)

// EffectiveEntitlement is the resolved, point-in-time union of tier features
// and live capability grants for one account.
type EffectiveEntitlement struct {
	Features map[string]bool `json:"features"`
	Limits   models.Limits   `json:"limits"`
}

// HasFeature reports whether the entitlement includes a feature.
func (e EffectiveEntitlement) HasFeature(featureID string) bool {
	return e.Features[featureID]
}

// Resolver merges the tier catalog and the capability store into effective
// capability sets. Resolution is a pure read; it is safe and cheap to call on
// every authorization check.
type Resolver struct {
	tiers repository.TierRepository
}

// NewResolver creates a resolver over the tier catalog.
func NewResolver(tiers repository.TierRepository) *Resolver {
	return &Resolver{tiers: tiers}
}

// Resolve computes the effective entitlement of an account at the given
// instant. Accounts with a live premium membership resolve against their
// activation-time snapshot rather than the live catalog, so a catalog change
// mid-subscription never shifts their entitlements.
func (r *Resolver) Resolve(account *models.Account, now time.Time) (EffectiveEntitlement, error) {
	var baseFeatures []models.Feature
	var baseLimits models.Limits

	if account.PremiumActiveAt(now) {
		baseFeatures = account.Membership.FeaturesSnapshot
		baseLimits = account.Membership.LimitsSnapshot
	} else {
		tier, err := r.tiers.GetByTierID(fallbackTierID(account))
		if err != nil {
			return EffectiveEntitlement{}, err
		}
		baseFeatures = tier.Features
		baseLimits = tier.Limits
	}

	features := make(map[string]bool, len(baseFeatures))
	for _, f := range baseFeatures {
		if f.Enabled {
			features[f.FeatureID] = true
		}
	}

	limits := baseLimits
	for _, grant := range authoritativeGrants(account.Capabilities) {
		if !grantLiveAt(grant, now) {
			// A revoked or expired grant never subtracts from the tier
			// baseline; it simply contributes nothing.
			continue
		}
		features[grant.FeatureID] = true
		if grant.LimitsOverride != nil {
			limits = limits.MergeMax(*grant.LimitsOverride)
		}
	}

	return EffectiveEntitlement{Features: features, Limits: limits}, nil
}

// fallbackTierID returns the tier an account without a live membership
// resolves against. A lapsed membership the sweeper has not rewritten yet
// still carries the premium tier in CurrentTierID; the account is
// non-premium the moment its expiry passes, so it resolves against the
// class baseline immediately rather than waiting for the next sweep.
func fallbackTierID(account *models.Account) string {
	if account.Membership.PremiumActive {
		return models.BaselineTierID(account.AccountClass)
	}
	return account.CurrentTierID
}

// grantLiveAt is the single place grant expiration is interpreted. No other
// component re-derives whether a grant is live.
func grantLiveAt(g *models.CapabilityGrant, now time.Time) bool {
	if !g.Enabled {
		return false
	}
	return g.ExpiresAt == nil || g.ExpiresAt.After(now)
}

// authoritativeGrants reduces the grant history to the most recent
// non-superseded row per feature.
func authoritativeGrants(grants []models.CapabilityGrant) []*models.CapabilityGrant {
	latest := make(map[string]*models.CapabilityGrant, len(grants))
	for i := range grants {
		g := &grants[i]
		cur, ok := latest[g.FeatureID]
		if !ok || g.Supersedes(cur) {
			latest[g.FeatureID] = g
		}
	}
	out := make([]*models.CapabilityGrant, 0, len(latest))
	for _, g := range latest {
		out = append(out, g)
	}
	return out
}
