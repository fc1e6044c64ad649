package models

import "time"

const (
	SubscriptionStatusIncomplete = "incomplete"
	SubscriptionStatusTrialing   = "trialing"
	SubscriptionStatusActive     = "active"
	SubscriptionStatusPastDue    = "past_due"
	SubscriptionStatusCancelled  = "cancelled"
	SubscriptionStatusExpired    = "expired"
)

const (
	BillingPeriodMonthly    = "monthly"
	BillingPeriodQuarterly  = "quarterly"
	BillingPeriodSemiAnnual = "semi_annual"
	BillingPeriodYearly     = "yearly"
)

// HostSubscription is the single entitlement record of a host: which plan it
// is on, how many advertising tokens that plan grants and where the current
// billing period stands. Status transitions are driven exclusively by the
// billing event synchronizer (or an explicit admin override), never inferred
// locally.
type HostSubscription struct {
	ID                     uint       `gorm:"primaryKey" json:"id"`
	HostID                 uint       `gorm:"not null;uniqueIndex" json:"host_id"`
	PlanID                 string     `gorm:"type:varchar(191);not null" json:"plan_id"`
	PriceID                string     `gorm:"type:varchar(191);not null" json:"price_id"`
	TotalTokens            int        `gorm:"not null;default:0" json:"total_tokens"`
	Status                 string     `gorm:"type:varchar(32);not null;default:'incomplete';index" json:"status"`
	TrialStart             *time.Time `gorm:"type:timestamp;default:null" json:"trial_start,omitempty"`
	TrialEnd               *time.Time `gorm:"type:timestamp;default:null" json:"trial_end,omitempty"`
	CurrentPeriodStart     time.Time  `gorm:"type:timestamp" json:"current_period_start"`
	CurrentPeriodEnd       time.Time  `gorm:"type:timestamp;index" json:"current_period_end"`
	CancelAtPeriodEnd      bool       `gorm:"default:false" json:"cancel_at_period_end"`
	CancelledAt            *time.Time `gorm:"type:timestamp;default:null" json:"cancelled_at,omitempty"`
	ProviderCustomerID     *string    `gorm:"type:varchar(191);uniqueIndex" json:"provider_customer_id,omitempty"`
	ProviderSubscriptionID *string    `gorm:"type:varchar(191);uniqueIndex" json:"provider_subscription_id,omitempty"`
	CreatedAt              time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt              time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

// IsEntitling reports whether the subscription currently grants the right to
// publish subscription-model ads.
func (s *HostSubscription) IsEntitling() bool {
	return s.Status == SubscriptionStatusActive || s.Status == SubscriptionStatusTrialing
}

// IsTrialing reports whether the subscription is inside its trial window.
func (s *HostSubscription) IsTrialing() bool {
	return s.Status == SubscriptionStatusTrialing
}

// ValidBillingPeriods lists every supported billing cadence.
var ValidBillingPeriods = map[string]bool{
	BillingPeriodMonthly:    true,
	BillingPeriodQuarterly:  true,
	BillingPeriodSemiAnnual: true,
	BillingPeriodYearly:     true,
}
