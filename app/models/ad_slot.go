package models

import "time"

const (
	AdModelSubscription = "subscription"
	AdModelCommission   = "commission"
)

// AdSlot is one unit of advertising entitlement. A subscription-model slot
// consumes one token of the host's allowance, expires and can be renewed; a
// commission-model slot never expires and lives and dies with its listing.
//
// ListingID is nullable on purpose: a subscription slot whose listing was
// deleted stays behind as an "empty" slot that exactly one later publish may
// claim. Empty slots are purged at the host's next renewal if unclaimed.
type AdSlot struct {
	ID                uint       `gorm:"primaryKey" json:"id"`
	HostID            uint       `gorm:"not null;index" json:"host_id"`
	ListingID         *uint      `gorm:"uniqueIndex" json:"listing_id,omitempty"`
	AdModel           string     `gorm:"type:varchar(16);not null;default:'subscription';index" json:"ad_model"`
	ActivatedAt       time.Time  `gorm:"type:timestamp;not null" json:"activated_at"`
	ExpiresAt         *time.Time `gorm:"type:timestamp;default:null;index" json:"expires_at,omitempty"`
	CompensationDays  int        `gorm:"not null;default:0" json:"compensation_days"`
	DoNotRenew        bool       `gorm:"default:false" json:"do_not_renew"`
	PastDue           bool       `gorm:"default:false" json:"past_due"`
	ExpireImmediately bool       `gorm:"default:false" json:"expire_immediately"`
	CreatedAt         time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

// IsEmpty reports whether the slot is detached and reusable.
func (s *AdSlot) IsEmpty() bool {
	return s.AdModel == AdModelSubscription && s.ListingID == nil
}

// IsAttached reports whether the slot currently backs a listing.
func (s *AdSlot) IsAttached() bool {
	return s.ListingID != nil
}

// IsExpired reports whether a subscription slot has passed its expiry.
// Commission slots never expire.
func (s *AdSlot) IsExpired(now time.Time) bool {
	if s.AdModel != AdModelSubscription || s.ExpiresAt == nil {
		return false
	}
	return now.After(*s.ExpiresAt)
}
