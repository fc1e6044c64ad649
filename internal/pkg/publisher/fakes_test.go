package publisher

import (
	"sort"
	"time"

	"gorm.io/gorm"

	"github.com/FeWoHub/fewohub/app/models"
)

// In-memory fakes covering what the orchestrator and engine touch.

type memListingRepo struct {
	listings map[uint]*models.Listing
}

func newMemListingRepo() *memListingRepo {
	return &memListingRepo{listings: make(map[uint]*models.Listing)}
}

func (r *memListingRepo) add(listing models.Listing) {
	cp := listing
	r.listings[listing.ID] = &cp
}

func (r *memListingRepo) GetByID(id uint) (*models.Listing, error) {
	listing, ok := r.listings[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *listing
	return &cp, nil
}

func (r *memListingRepo) ListByHostID(hostID uint) ([]models.Listing, error) {
	var out []models.Listing
	for _, listing := range r.listings {
		if listing.HostID == hostID {
			out = append(out, *listing)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *memListingRepo) Update(listing *models.Listing) error {
	if _, ok := r.listings[listing.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	cp := *listing
	r.listings[listing.ID] = &cp
	return nil
}

func (r *memListingRepo) UpdateStatus(id uint, status string) error {
	listing, ok := r.listings[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	listing.Status = status
	return nil
}

func (r *memListingRepo) UpdateSlotProjection(id uint, activeSlotID *uint, expiresAt *time.Time, doNotRenew, pastDue bool) error {
	listing, ok := r.listings[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	listing.ActiveSlotID = activeSlotID
	listing.SlotExpiresAt = expiresAt
	listing.SlotDoNotRenew = doNotRenew
	listing.SlotPastDue = pastDue
	return nil
}

type memSubscriptionRepo struct {
	subs map[uint]*models.HostSubscription
}

func newMemSubscriptionRepo() *memSubscriptionRepo {
	return &memSubscriptionRepo{subs: make(map[uint]*models.HostSubscription)}
}

func (r *memSubscriptionRepo) Create(sub *models.HostSubscription) error {
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

func (r *memSubscriptionRepo) GetByProviderSubscriptionID(string) (*models.HostSubscription, error) {
	return nil, gorm.ErrRecordNotFound
}

func (r *memSubscriptionRepo) GetByProviderCustomerID(string) (*models.HostSubscription, error) {
	return nil, gorm.ErrRecordNotFound
}

func (r *memSubscriptionRepo) Update(sub *models.HostSubscription) error {
	cp := *sub
	r.subs[sub.HostID] = &cp
	return nil
}

func (r *memSubscriptionRepo) DeleteByProviderCustomerID(string) error { return nil }

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
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
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

func (r *memCatalogRepo) DeactivatePlan(string) error  { return nil }
func (r *memCatalogRepo) DeactivatePrice(string) error { return nil }
