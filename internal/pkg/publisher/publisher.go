package publisher

import (
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/FeWoHub/fewohub/app/models"
	"github.com/FeWoHub/fewohub/app/repository"
	"github.com/FeWoHub/fewohub/internal/pkg/entitlements"
	"github.com/FeWoHub/fewohub/internal/pkg/notify"
)

// Publisher is the thin orchestration layer between listing lifecycle
// transitions and the entitlement engine. It owns the denormalized slot
// projection on listings: after every slot mutation the projection is
// rewritten, and ReconcileHostProjections can rebuild it from the slot
// store alone.
type Publisher struct {
	listings repository.ListingRepository
	slots    repository.SlotRepository
	engine   *entitlements.Engine

	now func() time.Time
}

// PublishRequest describes a publish attempt.
type PublishRequest struct {
	ListingID   uint   `json:"listing_id" validate:"required"`
	AdModel     string `json:"ad_model" validate:"required,oneof=subscription commission"`
	ReuseSlotID *uint  `json:"reuse_slot_id,omitempty"`
}

// NewPublisher creates a publish orchestrator.
func NewPublisher(repos *repository.Repositories, engine *entitlements.Engine) *Publisher {
	return &Publisher{
		listings: repos.Listing,
		slots:    repos.Slot,
		engine:   engine,
		now:      time.Now,
	}
}

// Publish takes a listing live on a new or reused advertising slot.
func (p *Publisher) Publish(req PublishRequest) (*models.AdSlot, error) {
	listing, err := p.getListing(req.ListingID)
	if err != nil {
		return nil, err
	}
	if !listing.IsPublishable() {
		return nil, entitlements.NewStateError("listing %d is %s and cannot be published", listing.ID, listing.Status)
	}
	if _, err := p.slots.GetByListingID(listing.ID); err == nil {
		return nil, entitlements.NewConflictError("listing %d already has an advertising slot", listing.ID)
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	var slot *models.AdSlot
	switch req.AdModel {
	case models.AdModelSubscription:
		if req.ReuseSlotID != nil {
			slot, err = p.reuseEmptySlot(listing, *req.ReuseSlotID)
		} else {
			slot, err = p.engine.CreateSubscriptionSlot(listing.HostID, listing)
		}
	case models.AdModelCommission:
		slot, err = p.engine.CreateCommissionSlot(listing.HostID, listing.ID)
	default:
		return nil, entitlements.NewValidationError("unknown ad model %q", req.AdModel)
	}
	if err != nil {
		return nil, err
	}

	if err := p.listings.UpdateStatus(listing.ID, models.ListingStatusPublished); err != nil {
		return nil, err
	}
	if err := p.writeProjection(listing.ID, slot); err != nil {
		return nil, err
	}

	notify.SendListingPublished(listing.HostID, listing.ID, slot.ID)
	return slot, nil
}

// Unpublish takes the listing offline. The slot stays attached and keeps
// counting against the token allowance; only deletion or an explicit detach
// releases it.
func (p *Publisher) Unpublish(listingID uint) error {
	listing, err := p.getListing(listingID)
	if err != nil {
		return err
	}
	if listing.Status != models.ListingStatusPublished {
		return entitlements.NewStateError("listing %d is not published", listingID)
	}
	return p.listings.UpdateStatus(listingID, models.ListingStatusOffline)
}

// HandleListingDeleted releases the listing's slot: commission slots die
// with the listing, subscription slots are detached to empty for reuse.
func (p *Publisher) HandleListingDeleted(listingID uint) error {
	if _, err := p.getListing(listingID); err != nil {
		return err
	}

	slot, err := p.slots.GetByListingID(listingID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return p.listings.UpdateStatus(listingID, models.ListingStatusDeleted)
		}
		return err
	}

	switch slot.AdModel {
	case models.AdModelCommission:
		if err := p.engine.DeleteSlot(slot.ID); err != nil {
			return err
		}
	case models.AdModelSubscription:
		if _, err := p.engine.DetachListing(slot.ID); err != nil {
			return err
		}
	}

	if err := p.listings.UpdateStatus(listingID, models.ListingStatusDeleted); err != nil {
		return err
	}
	return p.writeProjection(listingID, nil)
}

// ConvertListingSlot switches the listing's slot between ad models and
// refreshes the projection.
func (p *Publisher) ConvertListingSlot(listingID uint, targetModel string) (*models.AdSlot, error) {
	slot, err := p.slots.GetByListingID(listingID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, entitlements.NewNotFoundError("slot for listing", fmt.Sprintf("%d", listingID))
		}
		return nil, err
	}

	converted, err := p.engine.ConvertSlot(slot.ID, targetModel)
	if err != nil {
		return nil, err
	}
	if err := p.writeProjection(listingID, converted); err != nil {
		return nil, err
	}
	return converted, nil
}

// ExpireDueSlots tears down every slot past its expiry or flagged for
// immediate expiry. Slots are processed independently; one failure does not
// abort the sweep.
func (p *Publisher) ExpireDueSlots(limit int) (int, error) {
	slots, err := p.engine.ListExpiredSlots(p.now(), limit)
	if err != nil {
		return 0, err
	}

	expired := 0
	var errs []error
	for i := range slots {
		if err := p.expireSlot(&slots[i]); err != nil {
			log.Errorf("[Publisher] Expiring slot %d failed: %v", slots[i].ID, err)
			errs = append(errs, fmt.Errorf("slot %d: %w", slots[i].ID, err))
			continue
		}
		expired++
	}
	return expired, errors.Join(errs...)
}

// ReconcileHostProjections rebuilds the listing projection of a host from
// the slot store alone.
func (p *Publisher) ReconcileHostProjections(hostID uint) error {
	listings, err := p.listings.ListByHostID(hostID)
	if err != nil {
		return err
	}

	var errs []error
	for i := range listings {
		listing := &listings[i]
		slot, err := p.slots.GetByListingID(listing.ID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				err = p.writeProjection(listing.ID, nil)
			}
			if err != nil {
				errs = append(errs, fmt.Errorf("listing %d: %w", listing.ID, err))
			}
			continue
		}
		if err := p.writeProjection(listing.ID, slot); err != nil {
			errs = append(errs, fmt.Errorf("listing %d: %w", listing.ID, err))
		}
	}
	return errors.Join(errs...)
}

func (p *Publisher) reuseEmptySlot(listing *models.Listing, slotID uint) (*models.AdSlot, error) {
	slot, err := p.slots.GetByID(slotID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, entitlements.NewNotFoundError("slot", fmt.Sprintf("%d", slotID))
		}
		return nil, err
	}
	if slot.AdModel != models.AdModelSubscription {
		return nil, entitlements.NewValidationError("slot %d is commission-model and cannot be reused", slotID)
	}
	if slot.HostID != listing.HostID {
		return nil, entitlements.NewConflictError("slot %d does not belong to host %d", slotID, listing.HostID)
	}
	return p.engine.AttachListingToEmptySlot(listing.HostID, slotID, listing.ID)
}

func (p *Publisher) expireSlot(slot *models.AdSlot) error {
	listingID := uint(0)
	if slot.ListingID != nil {
		listingID = *slot.ListingID
		if err := p.listings.UpdateStatus(listingID, models.ListingStatusOffline); err != nil {
			return err
		}
		if err := p.writeProjection(listingID, nil); err != nil {
			return err
		}
	}
	if err := p.engine.DeleteSlot(slot.ID); err != nil {
		return err
	}
	notify.SendSlotExpired(slot.HostID, listingID, slot.ID)
	return nil
}

// writeProjection mirrors slot state onto the listing. A nil slot clears
// the projection.
func (p *Publisher) writeProjection(listingID uint, slot *models.AdSlot) error {
	if slot == nil {
		return p.listings.UpdateSlotProjection(listingID, nil, nil, false, false)
	}
	return p.listings.UpdateSlotProjection(listingID, &slot.ID, slot.ExpiresAt, slot.DoNotRenew, slot.PastDue)
}

func (p *Publisher) getListing(listingID uint) (*models.Listing, error) {
	listing, err := p.listings.GetByID(listingID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, entitlements.NewNotFoundError("listing", fmt.Sprintf("%d", listingID))
		}
		return nil, err
	}
	return listing, nil
}
