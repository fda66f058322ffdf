package models

import "time"

// AuditEvent records a grant, revocation, membership transition or
// delegation denial of note. Delivery is fire-and-forget: a lost event never
// blocks the state change it describes.
type AuditEvent struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	EventUUID       string    `gorm:"type:char(36);uniqueIndex;not null" json:"event_uuid"`
	Action          string    `gorm:"type:varchar(50);not null;index" json:"action"`
	ActorID         uint      `gorm:"index" json:"actor_id"`
	TargetAccountID uint      `gorm:"index" json:"target_account_id"`
	Reason          string    `gorm:"type:varchar(100);default:''" json:"reason,omitempty"`
	Metadata        string    `gorm:"type:longtext" json:"metadata,omitempty"`
	CreatedAt       time.Time `gorm:"autoCreateTime" json:"created_at"`
}
