package models

import "time"

// BillingPlan mirrors a billing-provider product into a local read-only
// catalog. TokenCount comes from provider-side product metadata; products
// without it are not mirrored.
type BillingPlan struct {
	ID                uint      `gorm:"primaryKey" json:"id"`
	ProviderProductID string    `gorm:"type:varchar(191);not null;uniqueIndex" json:"provider_product_id"`
	Name              string    `gorm:"type:varchar(255);not null" json:"name"`
	TokenCount        int       `gorm:"not null;default:0" json:"token_count"`
	Active            bool      `gorm:"default:true;index" json:"active"`
	CreatedAt         time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// BillingPrice mirrors a provider price and its billing cadence.
type BillingPrice struct {
	ID                uint      `gorm:"primaryKey" json:"id"`
	ProviderPriceID   string    `gorm:"type:varchar(191);not null;uniqueIndex" json:"provider_price_id"`
	ProviderProductID string    `gorm:"type:varchar(191);not null;index" json:"provider_product_id"`
	BillingPeriod     string    `gorm:"type:varchar(16);not null;default:'monthly'" json:"billing_period"`
	Active            bool      `gorm:"default:true;index" json:"active"`
	CreatedAt         time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
