package models

import (
	"time"

	"gorm.io/gorm"
)

const (
	ListingStatusDraft     = "draft"
	ListingStatusPublished = "published"
	ListingStatusSold      = "sold"
	ListingStatusArchived  = "archived"
)

// Listing is the minimal ownership record for a boat listing. The full listing
// document (media, specs, pricing history) lives in the listing service; the
// engine only needs owner resolution and scope validation.
type Listing struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	AccountID uint           `gorm:"not null;index" json:"account_id"`
	Title     string         `gorm:"type:varchar(200);not null" json:"title"`
	Status    string         `gorm:"type:varchar(20);default:'draft';index" json:"status"`
	CreatedAt time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}
