package models

import "time"

const (
	ListingStatusDraft         = "draft"
	ListingStatusPendingReview = "pending_review"
	ListingStatusPublished     = "published"
	ListingStatusOffline       = "offline"
	ListingStatusDeleted       = "deleted"
)

// Listing carries the subset of listing state the entitlement engine touches:
// the moderation timestamps used to compute review compensation, and a
// denormalized projection of the active slot that read models consume. The
// projection is written by the publish orchestrator after every slot
// mutation; the slot store stays the source of truth and the projection can
// be rebuilt from it alone.
type Listing struct {
	ID              uint       `gorm:"primaryKey" json:"id"`
	HostID          uint       `gorm:"not null;index" json:"host_id"`
	Title           string     `gorm:"type:varchar(255);not null" json:"title"`
	Status          string     `gorm:"type:varchar(32);not null;default:'draft';index" json:"status"`
	SubmittedAt     *time.Time `gorm:"type:timestamp;default:null" json:"submitted_at,omitempty"`
	FirstReviewedAt *time.Time `gorm:"type:timestamp;default:null" json:"first_reviewed_at,omitempty"`

	// Slot projection, denormalized from AdSlot.
	ActiveSlotID   *uint      `gorm:"index" json:"active_slot_id,omitempty"`
	SlotExpiresAt  *time.Time `gorm:"type:timestamp;default:null" json:"slot_expires_at,omitempty"`
	SlotDoNotRenew bool       `gorm:"default:false" json:"slot_do_not_renew"`
	SlotPastDue    bool       `gorm:"default:false" json:"slot_past_due"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// IsPublishable reports whether the listing is in a state from which it may
// go live. Content readiness (images, location, pricing) is validated by the
// listing service before it ever calls into publishing.
func (l *Listing) IsPublishable() bool {
	return l.Status == ListingStatusPendingReview || l.Status == ListingStatusOffline
}
