package models

import "time"

// CapabilityGrant is an individually assigned feature override, independent of
// tier. Rows are append-only: revocation writes a new row with Enabled=false
// instead of mutating the old one, so the grant history stays auditable. The
// newest row per (account, feature) is the authoritative one.
type CapabilityGrant struct {
	ID             uint       `gorm:"primaryKey" json:"id"`
	AccountID      uint       `gorm:"not null;index:idx_capability_grants_account_feature,priority:1" json:"account_id"`
	FeatureID      string     `gorm:"type:varchar(50);not null;index:idx_capability_grants_account_feature,priority:2" json:"feature_id"`
	Enabled        bool       `gorm:"default:true" json:"enabled"`
	ExpiresAt      *time.Time `gorm:"type:timestamp;default:null" json:"expires_at,omitempty"`
	LimitsOverride *Limits    `gorm:"serializer:json;type:json" json:"limits_override,omitempty"`
	GrantedBy      string     `gorm:"type:varchar(100);not null" json:"granted_by"`
	GrantedAt      time.Time  `gorm:"not null" json:"granted_at"`
	CreatedAt      time.Time  `gorm:"autoCreateTime" json:"created_at"`
}

// Supersedes reports whether this grant is newer than the other for the same
// feature. Ties on the timestamp fall back to insertion order.
func (g *CapabilityGrant) Supersedes(other *CapabilityGrant) bool {
	if g.GrantedAt.Equal(other.GrantedAt) {
		return g.ID > other.ID
	}
	return g.GrantedAt.After(other.GrantedAt)
}
