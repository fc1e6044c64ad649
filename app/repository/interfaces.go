package repository

import (
	"time"

	"github.com/FeWoHub/fewohub/app/models"
	"gorm.io/gorm"
)

// SubscriptionRepository defines database operations on host subscriptions.
type SubscriptionRepository interface {
	Create(sub *models.HostSubscription) error
	GetByHostID(hostID uint) (*models.HostSubscription, error)
	GetByProviderSubscriptionID(providerSubID string) (*models.HostSubscription, error)
	GetByProviderCustomerID(providerCustomerID string) (*models.HostSubscription, error)
	Update(sub *models.HostSubscription) error
	DeleteByProviderCustomerID(providerCustomerID string) error
}

// SlotRepository defines database operations on advertising slots.
type SlotRepository interface {
	Create(slot *models.AdSlot) error
	GetByID(id uint) (*models.AdSlot, error)
	GetByListingID(listingID uint) (*models.AdSlot, error)
	ListByHostID(hostID uint) ([]models.AdSlot, error)
	ListEmptyByHostID(hostID uint) ([]models.AdSlot, error)
	ListExpiredBefore(now time.Time, limit int) ([]models.AdSlot, error)
	ListImmediateExpiry(limit int) ([]models.AdSlot, error)
	CountAttachedSubscriptionSlots(hostID uint) (int64, error)
	CountCommissionSlots(hostID uint) (int64, error)
	Update(slot *models.AdSlot) error
	Delete(id uint) error
	DeleteEmptyByHostID(hostID uint) (int64, error)
	// AttachListingIfEmpty atomically claims an empty slot for a listing.
	// It reports false when the slot was not empty or not owned by hostID,
	// which is how a lost reuse race surfaces.
	AttachListingIfEmpty(slotID, hostID, listingID uint) (bool, error)
	SetPastDueByHostID(hostID uint, pastDue bool) (int64, error)
	SetImmediateExpiryByHostID(hostID uint) (int64, error)
}

// ListingRepository defines the subset of listing operations the entitlement
// side needs: reading moderation timestamps and writing the slot projection.
type ListingRepository interface {
	GetByID(id uint) (*models.Listing, error)
	ListByHostID(hostID uint) ([]models.Listing, error)
	Update(listing *models.Listing) error
	UpdateStatus(id uint, status string) error
	UpdateSlotProjection(id uint, activeSlotID *uint, expiresAt *time.Time, doNotRenew, pastDue bool) error
}

// CatalogRepository defines access to the locally mirrored provider catalog.
type CatalogRepository interface {
	UpsertPlan(plan *models.BillingPlan) error
	UpsertPrice(price *models.BillingPrice) error
	GetPlanByProductID(providerProductID string) (*models.BillingPlan, error)
	GetPriceByPriceID(providerPriceID string) (*models.BillingPrice, error)
	DeactivatePlan(providerProductID string) error
	DeactivatePrice(providerPriceID string) error
}

// SettingRepository defines the interface for key/value system settings.
type SettingRepository interface {
	GetValue(key string) (string, error)
	SetValue(key, value string) error
}

// WebhookEventRepository defines idempotent storage for inbound billing
// events.
type WebhookEventRepository interface {
	CreateIfNotExists(event *models.BillingWebhookEvent) (bool, *models.BillingWebhookEvent, error)
	GetByID(id uint) (*models.BillingWebhookEvent, error)
	MarkProcessed(id uint, processingError string) error
}

// Repositories holds all repository instances
type Repositories struct {
	Subscription SubscriptionRepository
	Slot         SlotRepository
	Listing      ListingRepository
	Catalog      CatalogRepository
	Setting      SettingRepository
	WebhookEvent WebhookEventRepository
}

// NewRepositories creates all repository instances with the given database connection
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		Subscription: NewSubscriptionRepository(db),
		Slot:         NewSlotRepository(db),
		Listing:      NewListingRepository(db),
		Catalog:      NewCatalogRepository(db),
		Setting:      NewSettingRepository(db),
		WebhookEvent: NewWebhookEventRepository(db),
	}
}
