package entitlements

import (
	"sort"
	"time"

	"gorm.io/gorm"

	"github.com/FeWoHub/fewohub/app/models"
	"github.com/FeWoHub/fewohub/app/repository"
)

// In-memory repository fakes. They mirror the conditional-write semantics of
// the gorm implementations closely enough for engine behavior tests.

type fakeSubscriptionRepo struct {
	subs map[uint]*models.HostSubscription
}

func newFakeSubscriptionRepo() *fakeSubscriptionRepo {
	return &fakeSubscriptionRepo{subs: make(map[uint]*models.HostSubscription)}
}

func (r *fakeSubscriptionRepo) Create(sub *models.HostSubscription) error {
	if sub.ID == 0 {
		sub.ID = uint(len(r.subs) + 1)
	}
	cp := *sub
	r.subs[sub.HostID] = &cp
	return nil
}

func (r *fakeSubscriptionRepo) GetByHostID(hostID uint) (*models.HostSubscription, error) {
	sub, ok := r.subs[hostID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *sub
	return &cp, nil
}

func (r *fakeSubscriptionRepo) GetByProviderSubscriptionID(providerSubID string) (*models.HostSubscription, error) {
	for _, sub := range r.subs {
		if sub.ProviderSubscriptionID != nil && *sub.ProviderSubscriptionID == providerSubID {
			cp := *sub
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeSubscriptionRepo) GetByProviderCustomerID(providerCustomerID string) (*models.HostSubscription, error) {
	for _, sub := range r.subs {
		if sub.ProviderCustomerID != nil && *sub.ProviderCustomerID == providerCustomerID {
			cp := *sub
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeSubscriptionRepo) Update(sub *models.HostSubscription) error {
	cp := *sub
	r.subs[sub.HostID] = &cp
	return nil
}

func (r *fakeSubscriptionRepo) DeleteByProviderCustomerID(providerCustomerID string) error {
	for hostID, sub := range r.subs {
		if sub.ProviderCustomerID != nil && *sub.ProviderCustomerID == providerCustomerID {
			delete(r.subs, hostID)
		}
	}
	return nil
}

type fakeSlotRepo struct {
	nextID uint
	slots  map[uint]*models.AdSlot
}

func newFakeSlotRepo() *fakeSlotRepo {
	return &fakeSlotRepo{nextID: 1, slots: make(map[uint]*models.AdSlot)}
}

func (r *fakeSlotRepo) Create(slot *models.AdSlot) error {
	slot.ID = r.nextID
	r.nextID++
	cp := *slot
	r.slots[slot.ID] = &cp
	return nil
}

func (r *fakeSlotRepo) GetByID(id uint) (*models.AdSlot, error) {
	slot, ok := r.slots[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *slot
	return &cp, nil
}

func (r *fakeSlotRepo) GetByListingID(listingID uint) (*models.AdSlot, error) {
	for _, slot := range r.slots {
		if slot.ListingID != nil && *slot.ListingID == listingID {
			cp := *slot
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeSlotRepo) all() []models.AdSlot {
	out := make([]models.AdSlot, 0, len(r.slots))
	for _, slot := range r.slots {
		out = append(out, *slot)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (r *fakeSlotRepo) ListByHostID(hostID uint) ([]models.AdSlot, error) {
	var out []models.AdSlot
	for _, slot := range r.all() {
		if slot.HostID == hostID {
			out = append(out, slot)
		}
	}
	return out, nil
}

func (r *fakeSlotRepo) ListEmptyByHostID(hostID uint) ([]models.AdSlot, error) {
	var out []models.AdSlot
	for _, slot := range r.all() {
		if slot.HostID == hostID && slot.AdModel == models.AdModelSubscription && slot.ListingID == nil {
			out = append(out, slot)
		}
	}
	return out, nil
}

func (r *fakeSlotRepo) ListExpiredBefore(now time.Time, limit int) ([]models.AdSlot, error) {
	var out []models.AdSlot
	for _, slot := range r.all() {
		if slot.AdModel == models.AdModelSubscription && slot.ExpiresAt != nil && slot.ExpiresAt.Before(now) {
			out = append(out, slot)
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

func (r *fakeSlotRepo) ListImmediateExpiry(limit int) ([]models.AdSlot, error) {
	var out []models.AdSlot
	for _, slot := range r.all() {
		if slot.ExpireImmediately {
			out = append(out, slot)
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

func (r *fakeSlotRepo) CountAttachedSubscriptionSlots(hostID uint) (int64, error) {
	var n int64
	for _, slot := range r.slots {
		if slot.HostID == hostID && slot.AdModel == models.AdModelSubscription && slot.ListingID != nil {
			n++
		}
	}
	return n, nil
}

func (r *fakeSlotRepo) CountCommissionSlots(hostID uint) (int64, error) {
	var n int64
	for _, slot := range r.slots {
		if slot.HostID == hostID && slot.AdModel == models.AdModelCommission {
			n++
		}
	}
	return n, nil
}

func (r *fakeSlotRepo) Update(slot *models.AdSlot) error {
	if _, ok := r.slots[slot.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	cp := *slot
	r.slots[slot.ID] = &cp
	return nil
}

func (r *fakeSlotRepo) Delete(id uint) error {
	delete(r.slots, id)
	return nil
}

func (r *fakeSlotRepo) DeleteEmptyByHostID(hostID uint) (int64, error) {
	var n int64
	for id, slot := range r.slots {
		if slot.HostID == hostID && slot.AdModel == models.AdModelSubscription && slot.ListingID == nil {
			delete(r.slots, id)
			n++
		}
	}
	return n, nil
}

func (r *fakeSlotRepo) AttachListingIfEmpty(slotID, hostID, listingID uint) (bool, error) {
	slot, ok := r.slots[slotID]
	if !ok || slot.HostID != hostID || slot.AdModel != models.AdModelSubscription || slot.ListingID != nil {
		return false, nil
	}
	id := listingID
	slot.ListingID = &id
	return true, nil
}

func (r *fakeSlotRepo) SetPastDueByHostID(hostID uint, pastDue bool) (int64, error) {
	var n int64
	for _, slot := range r.slots {
		if slot.HostID == hostID && slot.AdModel == models.AdModelSubscription {
			slot.PastDue = pastDue
			n++
		}
	}
	return n, nil
}

func (r *fakeSlotRepo) SetImmediateExpiryByHostID(hostID uint) (int64, error) {
	var n int64
	for _, slot := range r.slots {
		if slot.HostID == hostID && slot.AdModel == models.AdModelSubscription {
			slot.ExpireImmediately = true
			n++
		}
	}
	return n, nil
}

type fakeCatalogRepo struct {
	plans  map[string]*models.BillingPlan
	prices map[string]*models.BillingPrice
}

func newFakeCatalogRepo() *fakeCatalogRepo {
	return &fakeCatalogRepo{
		plans:  make(map[string]*models.BillingPlan),
		prices: make(map[string]*models.BillingPrice),
	}
}

func (r *fakeCatalogRepo) UpsertPlan(plan *models.BillingPlan) error {
	cp := *plan
	r.plans[plan.ProviderProductID] = &cp
	return nil
}

func (r *fakeCatalogRepo) UpsertPrice(price *models.BillingPrice) error {
	cp := *price
	r.prices[price.ProviderPriceID] = &cp
	return nil
}

func (r *fakeCatalogRepo) GetPlanByProductID(providerProductID string) (*models.BillingPlan, error) {
	plan, ok := r.plans[providerProductID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *plan
	return &cp, nil
}

func (r *fakeCatalogRepo) GetPriceByPriceID(providerPriceID string) (*models.BillingPrice, error) {
	price, ok := r.prices[providerPriceID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *price
	return &cp, nil
}

func (r *fakeCatalogRepo) DeactivatePlan(providerProductID string) error {
	if plan, ok := r.plans[providerProductID]; ok {
		plan.Active = false
	}
	return nil
}

func (r *fakeCatalogRepo) DeactivatePrice(providerPriceID string) error {
	if price, ok := r.prices[providerPriceID]; ok {
		price.Active = false
	}
	return nil
}

type staticFlag bool

func (f staticFlag) CompensationEnabled() bool { return bool(f) }

func newTestRepositories() *repository.Repositories {
	return &repository.Repositories{
		Subscription: newFakeSubscriptionRepo(),
		Slot:         newFakeSlotRepo(),
		Catalog:      newFakeCatalogRepo(),
	}
}
