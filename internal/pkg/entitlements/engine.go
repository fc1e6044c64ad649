package entitlements

import (
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/FeWoHub/fewohub/app/models"
	"github.com/FeWoHub/fewohub/app/repository"
)

// Availability reasons reported when a host cannot publish a
// subscription-model ad.
const (
	ReasonNoSubscription        = "no_subscription"
	ReasonSubscriptionPastDue   = "subscription_past_due"
	ReasonSubscriptionCancelled = "subscription_cancelled"
	ReasonSubscriptionExpired   = "subscription_expired"
	ReasonNoTokensAvailable     = "no_tokens_available"
)

// DefaultCommissionSlotLimit caps commission-model slots per host unless
// overridden.
const DefaultCommissionSlotLimit = 25

// CompensationFlag reports whether review compensation is globally enabled.
// Implemented by featureflag.Provider; faked in tests.
type CompensationFlag interface {
	CompensationEnabled() bool
}

// TokenAvailability summarizes a host's subscription entitlement.
type TokenAvailability struct {
	Total      int    `json:"total"`
	Used       int    `json:"used"`
	Available  int    `json:"available"`
	CanPublish bool   `json:"can_publish"`
	Reason     string `json:"reason,omitempty"`
}

// Engine is the entitlement core: it enforces the token allowance, owns all
// advertising slot mutations and performs the expiry arithmetic around
// renewals and plan changes. Every operation targets a single subscription
// or slot record; cross-record consistency relies on per-record conditional
// writes, not multi-record transactions.
type Engine struct {
	subs    repository.SubscriptionRepository
	slots   repository.SlotRepository
	catalog repository.CatalogRepository
	flag    CompensationFlag

	commissionSlotLimit int
	now                 func() time.Time
}

// NewEngine creates an entitlement engine over the given repositories.
func NewEngine(repos *repository.Repositories, flag CompensationFlag, commissionSlotLimit int) *Engine {
	if commissionSlotLimit <= 0 {
		commissionSlotLimit = DefaultCommissionSlotLimit
	}
	return &Engine{
		subs:                repos.Subscription,
		slots:               repos.Slot,
		catalog:             repos.Catalog,
		flag:                flag,
		commissionSlotLimit: commissionSlotLimit,
		now:                 time.Now,
	}
}

// TokenAvailability reports how many subscription-model tokens the host has
// and whether a publish may proceed.
func (e *Engine) TokenAvailability(hostID uint) (*TokenAvailability, error) {
	sub, err := e.subs.GetByHostID(hostID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &TokenAvailability{Reason: ReasonNoSubscription}, nil
		}
		return nil, err
	}

	used, err := e.slots.CountAttachedSubscriptionSlots(hostID)
	if err != nil {
		return nil, err
	}

	avail := &TokenAvailability{
		Total: sub.TotalTokens,
		Used:  int(used),
	}
	if avail.Available = avail.Total - avail.Used; avail.Available < 0 {
		avail.Available = 0
	}

	switch sub.Status {
	case models.SubscriptionStatusActive, models.SubscriptionStatusTrialing:
		if avail.Available > 0 {
			avail.CanPublish = true
		} else {
			avail.Reason = ReasonNoTokensAvailable
		}
	case models.SubscriptionStatusPastDue:
		avail.Reason = ReasonSubscriptionPastDue
	case models.SubscriptionStatusCancelled:
		avail.Reason = ReasonSubscriptionCancelled
	case models.SubscriptionStatusExpired:
		avail.Reason = ReasonSubscriptionExpired
	default:
		avail.Reason = ReasonNoSubscription
	}
	return avail, nil
}

// CreateSubscriptionSlot consumes one token and creates a slot attached to
// the listing. During a trial the slot simply expires with the trial; review
// compensation only starts counting after trial conversion. Outside the
// trial, the slot gets one full billing period from its own creation date
// plus compensation for time spent in the review queue.
func (e *Engine) CreateSubscriptionSlot(hostID uint, listing *models.Listing) (*models.AdSlot, error) {
	avail, err := e.TokenAvailability(hostID)
	if err != nil {
		return nil, err
	}
	if !avail.CanPublish {
		return nil, NewStateError("host %d cannot publish subscription ad: %s", hostID, avail.Reason)
	}

	sub, err := e.subs.GetByHostID(hostID)
	if err != nil {
		return nil, err
	}

	now := e.now()
	comp := e.reviewCompensation(listing)
	slot := &models.AdSlot{
		HostID:           hostID,
		ListingID:        &listing.ID,
		AdModel:          models.AdModelSubscription,
		ActivatedAt:      now,
		CompensationDays: comp,
	}

	if sub.IsTrialing() && sub.TrialEnd != nil {
		// Trial slots run out with the trial. The compensation snapshot is
		// kept but not added here; it starts paying out at trial conversion.
		expiry := *sub.TrialEnd
		slot.ExpiresAt = &expiry
	} else {
		period, err := e.billingPeriodFor(sub)
		if err != nil {
			return nil, err
		}
		expiry, err := NewSlotExpiry(now, period, comp)
		if err != nil {
			return nil, err
		}
		slot.ExpiresAt = &expiry
	}

	if err := e.slots.Create(slot); err != nil {
		return nil, err
	}
	return slot, nil
}

// CreateCommissionSlot creates a commission-model slot: no expiry, no token
// consumed, subject only to a soft per-host cap.
func (e *Engine) CreateCommissionSlot(hostID, listingID uint) (*models.AdSlot, error) {
	count, err := e.slots.CountCommissionSlots(hostID)
	if err != nil {
		return nil, err
	}
	if int(count) >= e.commissionSlotLimit {
		return nil, NewStateError("host %d reached the commission slot limit of %d", hostID, e.commissionSlotLimit)
	}

	slot := &models.AdSlot{
		HostID:      hostID,
		ListingID:   &listingID,
		AdModel:     models.AdModelCommission,
		ActivatedAt: e.now(),
	}
	if err := e.slots.Create(slot); err != nil {
		return nil, err
	}
	return slot, nil
}

// ConvertSlot switches a slot between ad models. Subscription to commission
// drops expiry and renewal state and frees the token. Commission to
// subscription requires an available token and a healthy subscription and
// starts a fresh full billing period.
func (e *Engine) ConvertSlot(slotID uint, targetModel string) (*models.AdSlot, error) {
	if targetModel != models.AdModelSubscription && targetModel != models.AdModelCommission {
		return nil, NewValidationError("unknown ad model %q", targetModel)
	}

	slot, err := e.getSlot(slotID)
	if err != nil {
		return nil, err
	}
	if slot.AdModel == targetModel {
		return nil, NewConflictError("slot %d is already %s-model", slotID, targetModel)
	}

	switch targetModel {
	case models.AdModelCommission:
		slot.AdModel = models.AdModelCommission
		slot.ExpiresAt = nil
		slot.CompensationDays = 0
		slot.DoNotRenew = false
		slot.PastDue = false
		slot.ExpireImmediately = false

	case models.AdModelSubscription:
		sub, err := e.subs.GetByHostID(slot.HostID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, NewStateError("host %d has no subscription", slot.HostID)
			}
			return nil, err
		}
		if !sub.IsEntitling() {
			return nil, NewStateError("subscription of host %d is %s", slot.HostID, sub.Status)
		}

		avail, err := e.TokenAvailability(slot.HostID)
		if err != nil {
			return nil, err
		}
		if avail.Available <= 0 {
			return nil, NewStateError("host %d has no available token for conversion", slot.HostID)
		}

		period, err := e.billingPeriodFor(sub)
		if err != nil {
			return nil, err
		}
		now := e.now()
		expiry, err := NewSlotExpiry(now, period, 0)
		if err != nil {
			return nil, err
		}
		slot.AdModel = models.AdModelSubscription
		slot.ActivatedAt = now
		slot.ExpiresAt = &expiry
		slot.CompensationDays = 0
	}

	if err := e.slots.Update(slot); err != nil {
		return nil, err
	}
	return slot, nil
}

// AttachListingToEmptySlot claims an empty slot for a listing. The slot is
// itself the reserved token, so no availability check happens here. Losing
// the race against a concurrent publish surfaces as a ConflictError.
func (e *Engine) AttachListingToEmptySlot(hostID, slotID, listingID uint) (*models.AdSlot, error) {
	if _, err := e.getSlot(slotID); err != nil {
		return nil, err
	}

	ok, err := e.slots.AttachListingIfEmpty(slotID, hostID, listingID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, NewConflictError("slot %d is not an empty slot of host %d", slotID, hostID)
	}
	return e.getSlot(slotID)
}

// DetachListing turns an attached subscription slot into an empty, reusable
// one. Expiry is untouched; the paid-for time keeps running.
func (e *Engine) DetachListing(slotID uint) (*models.AdSlot, error) {
	slot, err := e.getSlot(slotID)
	if err != nil {
		return nil, err
	}
	if slot.AdModel != models.AdModelSubscription {
		return nil, NewStateError("slot %d is commission-model and cannot be detached", slotID)
	}
	if slot.ListingID == nil {
		return slot, nil
	}

	slot.ListingID = nil
	if err := e.slots.Update(slot); err != nil {
		return nil, err
	}
	return slot, nil
}

// DeleteSlot hard-removes a slot. Used for commission slots on listing
// deletion and for expired subscription slots.
func (e *Engine) DeleteSlot(slotID uint) error {
	if _, err := e.getSlot(slotID); err != nil {
		return err
	}
	return e.slots.Delete(slotID)
}

// PurgeEmptySlots removes every unclaimed empty slot of the host. Called at
// renewal; an empty slot is only held until the cycle it was paid for ends.
func (e *Engine) PurgeEmptySlots(hostID uint) (int64, error) {
	return e.slots.DeleteEmptyByHostID(hostID)
}

// ExtendSlotsAtRenewal recomputes each eligible slot's expiry for the new
// billing period and applies it only when it is strictly later than the
// current one. The monotonic guard makes renewal events safe to replay and
// keeps an out-of-order renewal from overwriting a later expiry a plan
// change already set.
func (e *Engine) ExtendSlotsAtRenewal(hostID uint, newPeriodEnd time.Time) error {
	return e.recomputeSlots(hostID, newPeriodEnd, true)
}

// UpdateSlotsToNewPeriod recomputes expiries unconditionally, shortening
// them if needed. Only used for explicit plan changes, where the host has
// accepted the new cycle.
func (e *Engine) UpdateSlotsToNewPeriod(hostID uint, newPeriodEnd time.Time) error {
	return e.recomputeSlots(hostID, newPeriodEnd, false)
}

func (e *Engine) recomputeSlots(hostID uint, newPeriodEnd time.Time, extendOnly bool) error {
	slots, err := e.slots.ListByHostID(hostID)
	if err != nil {
		return err
	}

	now := e.now()
	var errs []error
	for i := range slots {
		slot := &slots[i]
		if slot.AdModel != models.AdModelSubscription || slot.DoNotRenew {
			continue
		}

		remaining := RemainingCompensation(slot.CompensationDays, slot.ActivatedAt, now)
		newExpiry := RenewalExpiry(newPeriodEnd, remaining)
		if extendOnly && slot.ExpiresAt != nil && !newExpiry.After(*slot.ExpiresAt) {
			continue
		}

		slot.ExpiresAt = &newExpiry
		slot.PastDue = false
		slot.ExpireImmediately = false
		if err := e.slots.Update(slot); err != nil {
			// One slot must not sink the whole batch.
			log.Errorf("[Entitlements] Failed to update expiry of slot %d: %v", slot.ID, err)
			errs = append(errs, fmt.Errorf("slot %d: %w", slot.ID, err))
		}
	}
	return errors.Join(errs...)
}

// MarkPastDue flags or unflags every subscription slot of the host. Flags
// only; a separate sweep enforces the consequences.
func (e *Engine) MarkPastDue(hostID uint, pastDue bool) error {
	_, err := e.slots.SetPastDueByHostID(hostID, pastDue)
	return err
}

// MarkImmediateExpiry flags every subscription slot of the host for the next
// immediate-expiry sweep.
func (e *Engine) MarkImmediateExpiry(hostID uint) error {
	_, err := e.slots.SetImmediateExpiryByHostID(hostID)
	return err
}

// ListExpiredSlots returns subscription slots whose expiry has passed, plus
// slots flagged for immediate expiry, oldest first. The publish orchestrator
// drives the actual teardown so the listing projection stays consistent.
func (e *Engine) ListExpiredSlots(now time.Time, limit int) ([]models.AdSlot, error) {
	expired, err := e.slots.ListExpiredBefore(now, limit)
	if err != nil {
		return nil, err
	}
	immediate, err := e.slots.ListImmediateExpiry(limit)
	if err != nil {
		return nil, err
	}

	seen := make(map[uint]struct{}, len(expired))
	for _, s := range expired {
		seen[s.ID] = struct{}{}
	}
	for _, s := range immediate {
		if _, ok := seen[s.ID]; !ok {
			expired = append(expired, s)
		}
	}
	return expired, nil
}

func (e *Engine) getSlot(slotID uint) (*models.AdSlot, error) {
	slot, err := e.slots.GetByID(slotID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NewNotFoundError("slot", fmt.Sprintf("%d", slotID))
		}
		return nil, err
	}
	return slot, nil
}

// billingPeriodFor resolves the subscription's price to a billing cadence
// via the mirrored catalog.
func (e *Engine) billingPeriodFor(sub *models.HostSubscription) (string, error) {
	price, err := e.catalog.GetPriceByPriceID(sub.PriceID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", NewValidationError("price %q of host %d is not in the catalog", sub.PriceID, sub.HostID)
		}
		return "", err
	}
	if !models.ValidBillingPeriods[price.BillingPeriod] {
		return "", NewValidationError("price %q carries unknown billing period %q", price.ProviderPriceID, price.BillingPeriod)
	}
	return price.BillingPeriod, nil
}

func (e *Engine) reviewCompensation(listing *models.Listing) int {
	if e.flag == nil || !e.flag.CompensationEnabled() {
		return 0
	}
	if listing.SubmittedAt == nil || listing.FirstReviewedAt == nil {
		return 0
	}
	return ReviewCompensationDays(*listing.SubmittedAt, *listing.FirstReviewedAt)
}
