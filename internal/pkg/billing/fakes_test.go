package billing

import (
	"context"
	"errors"
	"sort"
	"time"

	"gorm.io/gorm"

	"github.com/FeWoHub/fewohub/app/models"
	"github.com/FeWoHub/fewohub/app/repository"
)

// In-memory fakes for the synchronizer tests. Only the behavior the
// synchronizer and engine rely on is modeled.

type memSubscriptionRepo struct {
	nextID uint
	subs   map[uint]*models.HostSubscription
}

func newMemSubscriptionRepo() *memSubscriptionRepo {
	return &memSubscriptionRepo{nextID: 1, subs: make(map[uint]*models.HostSubscription)}
}

func (r *memSubscriptionRepo) Create(sub *models.HostSubscription) error {
	sub.ID = r.nextID
	r.nextID++
	cp := *sub
	r.subs[sub.HostID] = &cp
	return nil
}

func (r *memSubscriptionRepo) GetByHostID(hostID uint) (*models.HostSubscription, error) {
	sub, ok := r.subs[hostID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *sub
	return &cp, nil
}

func (r *memSubscriptionRepo) GetByProviderSubscriptionID(providerSubID string) (*models.HostSubscription, error) {
	for _, sub := range r.subs {
		if sub.ProviderSubscriptionID != nil && *sub.ProviderSubscriptionID == providerSubID {
			cp := *sub
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *memSubscriptionRepo) GetByProviderCustomerID(providerCustomerID string) (*models.HostSubscription, error) {
	for _, sub := range r.subs {
		if sub.ProviderCustomerID != nil && *sub.ProviderCustomerID == providerCustomerID {
			cp := *sub
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *memSubscriptionRepo) Update(sub *models.HostSubscription) error {
	cp := *sub
	r.subs[sub.HostID] = &cp
	return nil
}

func (r *memSubscriptionRepo) DeleteByProviderCustomerID(providerCustomerID string) error {
	for hostID, sub := range r.subs {
		if sub.ProviderCustomerID != nil && *sub.ProviderCustomerID == providerCustomerID {
			delete(r.subs, hostID)
		}
	}
	return nil
}

type memSlotRepo struct {
	nextID uint
	slots  map[uint]*models.AdSlot
}

func newMemSlotRepo() *memSlotRepo {
	return &memSlotRepo{nextID: 1, slots: make(map[uint]*models.AdSlot)}
}

func (r *memSlotRepo) Create(slot *models.AdSlot) error {
	slot.ID = r.nextID
	r.nextID++
	cp := *slot
	r.slots[slot.ID] = &cp
	return nil
}

func (r *memSlotRepo) GetByID(id uint) (*models.AdSlot, error) {
	slot, ok := r.slots[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *slot
	return &cp, nil
}

func (r *memSlotRepo) GetByListingID(listingID uint) (*models.AdSlot, error) {
	for _, slot := range r.slots {
		if slot.ListingID != nil && *slot.ListingID == listingID {
			cp := *slot
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *memSlotRepo) ListByHostID(hostID uint) ([]models.AdSlot, error) {
	var out []models.AdSlot
	for _, slot := range r.slots {
		if slot.HostID == hostID {
			out = append(out, *slot)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *memSlotRepo) ListEmptyByHostID(hostID uint) ([]models.AdSlot, error) {
	var out []models.AdSlot
	for _, slot := range r.slots {
		if slot.HostID == hostID && slot.AdModel == models.AdModelSubscription && slot.ListingID == nil {
			out = append(out, *slot)
		}
	}
	return out, nil
}

func (r *memSlotRepo) ListExpiredBefore(now time.Time, limit int) ([]models.AdSlot, error) {
	var out []models.AdSlot
	for _, slot := range r.slots {
		if slot.AdModel == models.AdModelSubscription && slot.ExpiresAt != nil && slot.ExpiresAt.Before(now) {
			out = append(out, *slot)
		}
	}
	return out, nil
}

func (r *memSlotRepo) ListImmediateExpiry(limit int) ([]models.AdSlot, error) {
	var out []models.AdSlot
	for _, slot := range r.slots {
		if slot.ExpireImmediately {
			out = append(out, *slot)
		}
	}
	return out, nil
}

func (r *memSlotRepo) CountAttachedSubscriptionSlots(hostID uint) (int64, error) {
	var n int64
	for _, slot := range r.slots {
		if slot.HostID == hostID && slot.AdModel == models.AdModelSubscription && slot.ListingID != nil {
			n++
		}
	}
	return n, nil
}

func (r *memSlotRepo) CountCommissionSlots(hostID uint) (int64, error) {
	var n int64
	for _, slot := range r.slots {
		if slot.HostID == hostID && slot.AdModel == models.AdModelCommission {
			n++
		}
	}
	return n, nil
}

func (r *memSlotRepo) Update(slot *models.AdSlot) error {
	if _, ok := r.slots[slot.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	cp := *slot
	r.slots[slot.ID] = &cp
	return nil
}

func (r *memSlotRepo) Delete(id uint) error {
	delete(r.slots, id)
	return nil
}

func (r *memSlotRepo) DeleteEmptyByHostID(hostID uint) (int64, error) {
	var n int64
	for id, slot := range r.slots {
		if slot.HostID == hostID && slot.AdModel == models.AdModelSubscription && slot.ListingID == nil {
			delete(r.slots, id)
			n++
		}
	}
	return n, nil
}

func (r *memSlotRepo) AttachListingIfEmpty(slotID, hostID, listingID uint) (bool, error) {
	slot, ok := r.slots[slotID]
	if !ok || slot.HostID != hostID || slot.AdModel != models.AdModelSubscription || slot.ListingID != nil {
		return false, nil
	}
	id := listingID
	slot.ListingID = &id
	return true, nil
}

func (r *memSlotRepo) SetPastDueByHostID(hostID uint, pastDue bool) (int64, error) {
	var n int64
	for _, slot := range r.slots {
		if slot.HostID == hostID && slot.AdModel == models.AdModelSubscription {
			slot.PastDue = pastDue
			n++
		}
	}
	return n, nil
}

func (r *memSlotRepo) SetImmediateExpiryByHostID(hostID uint) (int64, error) {
	var n int64
	for _, slot := range r.slots {
		if slot.HostID == hostID && slot.AdModel == models.AdModelSubscription {
			slot.ExpireImmediately = true
			n++
		}
	}
	return n, nil
}

type memCatalogRepo struct {
	plans  map[string]*models.BillingPlan
	prices map[string]*models.BillingPrice
}

func newMemCatalogRepo() *memCatalogRepo {
	return &memCatalogRepo{
		plans:  make(map[string]*models.BillingPlan),
		prices: make(map[string]*models.BillingPrice),
	}
}

func (r *memCatalogRepo) UpsertPlan(plan *models.BillingPlan) error {
	cp := *plan
	r.plans[plan.ProviderProductID] = &cp
	return nil
}

func (r *memCatalogRepo) UpsertPrice(price *models.BillingPrice) error {
	cp := *price
	r.prices[price.ProviderPriceID] = &cp
	return nil
}

func (r *memCatalogRepo) GetPlanByProductID(providerProductID string) (*models.BillingPlan, error) {
	plan, ok := r.plans[providerProductID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *plan
	return &cp, nil
}

func (r *memCatalogRepo) GetPriceByPriceID(providerPriceID string) (*models.BillingPrice, error) {
	price, ok := r.prices[providerPriceID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *price
	return &cp, nil
}

func (r *memCatalogRepo) DeactivatePlan(providerProductID string) error {
	if plan, ok := r.plans[providerProductID]; ok {
		plan.Active = false
	}
	return nil
}

func (r *memCatalogRepo) DeactivatePrice(providerPriceID string) error {
	if price, ok := r.prices[providerPriceID]; ok {
		price.Active = false
	}
	return nil
}

type memWebhookEventRepo struct {
	nextID uint
	byID   map[uint]*models.BillingWebhookEvent
	byRef  map[string]uint
}

func newMemWebhookEventRepo() *memWebhookEventRepo {
	return &memWebhookEventRepo{
		nextID: 1,
		byID:   make(map[uint]*models.BillingWebhookEvent),
		byRef:  make(map[string]uint),
	}
}

func (r *memWebhookEventRepo) CreateIfNotExists(event *models.BillingWebhookEvent) (bool, *models.BillingWebhookEvent, error) {
	if id, ok := r.byRef[event.ProviderEventID]; ok {
		cp := *r.byID[id]
		return false, &cp, nil
	}
	event.ID = r.nextID
	r.nextID++
	cp := *event
	r.byID[event.ID] = &cp
	r.byRef[event.ProviderEventID] = event.ID
	return true, event, nil
}

func (r *memWebhookEventRepo) GetByID(id uint) (*models.BillingWebhookEvent, error) {
	event, ok := r.byID[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *event
	return &cp, nil
}

func (r *memWebhookEventRepo) MarkProcessed(id uint, processingError string) error {
	event, ok := r.byID[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	now := time.Now()
	event.ProcessedAt = &now
	event.ProcessingError = processingError
	return nil
}

type fakeProviderClient struct {
	subs  map[string]*ProviderSubscription
	err   error
	calls int
}

func (c *fakeProviderClient) GetSubscription(ctx context.Context, subscriptionID string) (*ProviderSubscription, error) {
	c.calls++
	if c.err != nil {
		return nil, c.err
	}
	sub, ok := c.subs[subscriptionID]
	if !ok {
		return nil, errors.New("no such subscription")
	}
	cp := *sub
	return &cp, nil
}

func newMemRepositories() *repository.Repositories {
	return &repository.Repositories{
		Subscription: newMemSubscriptionRepo(),
		Slot:         newMemSlotRepo(),
		Catalog:      newMemCatalogRepo(),
		WebhookEvent: newMemWebhookEventRepo(),
	}
}
