package billing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/FeWoHub/fewohub/app/models"
	"github.com/FeWoHub/fewohub/app/repository"
	"github.com/FeWoHub/fewohub/internal/pkg/entitlements"
)

// Synchronizer consumes the billing provider's event stream and drives all
// subscription and slot mutations derived from it. Delivery is at least
// once and unordered, so every handler is written to be idempotent or
// monotonic, and checkout-completed is the only path that ever creates a
// subscription record.
type Synchronizer struct {
	subs     repository.SubscriptionRepository
	catalog  repository.CatalogRepository
	events   repository.WebhookEventRepository
	engine   *entitlements.Engine
	provider ProviderClient

	now func() time.Time
}

// NewSynchronizer creates a billing event synchronizer.
func NewSynchronizer(repos *repository.Repositories, engine *entitlements.Engine, provider ProviderClient) *Synchronizer {
	return &Synchronizer{
		subs:     repos.Subscription,
		catalog:  repos.Catalog,
		events:   repos.WebhookEvent,
		engine:   engine,
		provider: provider,
		now:      time.Now,
	}
}

// ProcessEvent applies one raw event envelope. A nil return means the event
// is done, either applied or permanently dropped; an error means the queue
// should redeliver it.
func (s *Synchronizer) ProcessEvent(ctx context.Context, raw []byte) error {
	var envelope EventEnvelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		log.Warnf("[Billing] Dropping malformed event envelope: %v", err)
		return nil
	}
	if strings.TrimSpace(envelope.Type) == "" {
		// An envelope without a type can never succeed, retrying is pointless.
		log.Warnf("[Billing] Dropping event %q without a type", envelope.ID)
		return nil
	}

	switch envelope.Type {
	case EventCheckoutCompleted:
		return s.handleCheckoutCompleted(ctx, envelope.Data.Object)
	case EventSubscriptionCreated:
		return s.handleSubscriptionCreated(envelope.Data.Object)
	case EventSubscriptionUpdated:
		return s.handleSubscriptionUpdated(envelope.Data.Object)
	case EventSubscriptionDeleted:
		return s.handleSubscriptionDeleted(envelope.Data.Object)
	case EventInvoicePaid:
		return s.handleInvoicePaid(envelope.Data.Object)
	case EventInvoicePaymentFailed:
		return s.handleInvoicePaymentFailed(envelope.Data.Object)
	case EventCustomerDeleted:
		return s.handleCustomerDeleted(envelope.Data.Object)
	case EventProductCreated, EventProductUpdated:
		return s.handleProductUpserted(envelope.Data.Object)
	case EventProductDeleted:
		return s.handleProductDeleted(envelope.Data.Object)
	case EventPriceCreated, EventPriceUpdated:
		return s.handlePriceUpserted(envelope.Data.Object)
	case EventPriceDeleted:
		return s.handlePriceDeleted(envelope.Data.Object)
	default:
		log.Debugf("[Billing] Ignoring event type %s", envelope.Type)
		return nil
	}
}

// ProcessBatch applies a batch of events independently and returns one
// result per event so the queue can redeliver only the failed ones.
func (s *Synchronizer) ProcessBatch(ctx context.Context, raws [][]byte) []error {
	results := make([]error, len(raws))
	for i, raw := range raws {
		results[i] = s.ProcessEvent(ctx, raw)
	}
	return results
}

// ProcessStoredEvent applies a previously recorded webhook event by id.
// Already processed events are acknowledged without reprocessing.
func (s *Synchronizer) ProcessStoredEvent(ctx context.Context, eventID uint) error {
	event, err := s.events.GetByID(eventID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			log.Warnf("[Billing] Stored event %d vanished, dropping", eventID)
			return nil
		}
		return err
	}
	if event.ProcessedAt != nil && event.ProcessingError == "" {
		return nil
	}

	procErr := s.ProcessEvent(ctx, []byte(event.PayloadJSON))
	msg := ""
	if procErr != nil {
		msg = procErr.Error()
	}
	if err := s.events.MarkProcessed(event.ID, msg); err != nil {
		return err
	}
	return procErr
}

// handleCheckoutCompleted is the sole creator of subscription records. It
// reads the full subscription state from the provider instead of trusting
// the event payload, which closes the race with the provider's own
// subscription-created event.
func (s *Synchronizer) handleCheckoutCompleted(ctx context.Context, payload json.RawMessage) error {
	var session CheckoutSession
	if err := json.Unmarshal(payload, &session); err != nil {
		log.Warnf("[Billing] Dropping undecodable checkout session: %v", err)
		return nil
	}

	hostID, err := parseHostID(session.ClientReferenceID)
	if err != nil {
		log.Warnf("[Billing] Dropping checkout session %s without usable host reference: %v", session.ID, err)
		return nil
	}
	if strings.TrimSpace(session.Subscription) == "" {
		log.Warnf("[Billing] Dropping checkout session %s without subscription id", session.ID)
		return nil
	}

	if existing, err := s.subs.GetByHostID(hostID); err == nil {
		// Redelivered checkout for a host we already linked.
		log.Infof("[Billing] Host %d already has subscription %d, checkout %s is a replay", hostID, existing.ID, session.ID)
		return nil
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	live, err := s.provider.GetSubscription(ctx, session.Subscription)
	if err != nil {
		return fmt.Errorf("reading live subscription %s: %w", session.Subscription, err)
	}
	if len(live.Items.Data) == 0 {
		return fmt.Errorf("live subscription %s carries no price item", live.ID)
	}
	price := live.Items.Data[0].Price

	plan, err := s.catalog.GetPlanByProductID(price.Product)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// Catalog mirror may simply be behind; let the queue retry.
			return fmt.Errorf("product %s not mirrored yet", price.Product)
		}
		return err
	}

	customerID := session.Customer
	if customerID == "" {
		customerID = live.Customer
	}
	subscriptionID := live.ID

	sub := &models.HostSubscription{
		HostID:                 hostID,
		PlanID:                 price.Product,
		PriceID:                price.ID,
		TotalTokens:            plan.TokenCount,
		Status:                 mapProviderStatus(live.Status),
		TrialStart:             unixPtr(live.TrialStart),
		TrialEnd:               unixPtr(live.TrialEnd),
		CurrentPeriodStart:     time.Unix(live.CurrentPeriodStart, 0),
		CurrentPeriodEnd:       time.Unix(live.CurrentPeriodEnd, 0),
		CancelAtPeriodEnd:      live.CancelAtPeriodEnd || live.CancelAt != nil,
		ProviderCustomerID:     &customerID,
		ProviderSubscriptionID: &subscriptionID,
	}
	if err := s.subs.Create(sub); err != nil {
		return err
	}
	log.Infof("[Billing] Created subscription for host %d (%d tokens, status %s)", hostID, sub.TotalTokens, sub.Status)
	return nil
}

// handleSubscriptionCreated is deliberately a no-op when the host link does
// not exist yet: creation belongs to checkout-completed, and the provider
// races the two events against each other.
func (s *Synchronizer) handleSubscriptionCreated(payload json.RawMessage) error {
	var providerSub ProviderSubscription
	if err := json.Unmarshal(payload, &providerSub); err != nil {
		log.Warnf("[Billing] Dropping undecodable subscription payload: %v", err)
		return nil
	}

	if _, err := s.subs.GetByProviderSubscriptionID(providerSub.ID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			log.Infof("[Billing] subscription.created for %s before checkout completion, ignoring", providerSub.ID)
			return nil
		}
		return err
	}
	return nil
}

// handleSubscriptionUpdated covers plan changes, trial conversion and
// scheduled cancellations. Unlike subscription.created it fails loudly when
// the host link is missing; an update for an unknown subscription is an
// ordering bug worth surfacing, not state to invent.
func (s *Synchronizer) handleSubscriptionUpdated(payload json.RawMessage) error {
	var providerSub ProviderSubscription
	if err := json.Unmarshal(payload, &providerSub); err != nil {
		log.Warnf("[Billing] Dropping undecodable subscription payload: %v", err)
		return nil
	}

	sub, err := s.subs.GetByProviderSubscriptionID(providerSub.ID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("subscription.updated for unknown subscription %s", providerSub.ID)
		}
		return err
	}

	if len(providerSub.Items.Data) > 0 {
		price := providerSub.Items.Data[0].Price
		plan, err := s.catalog.GetPlanByProductID(price.Product)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("product %s not mirrored yet", price.Product)
			}
			return err
		}
		sub.PlanID = price.Product
		sub.PriceID = price.ID
		sub.TotalTokens = plan.TokenCount
	}

	sub.Status = mapProviderStatus(providerSub.Status)
	sub.TrialStart = unixPtr(providerSub.TrialStart)
	sub.TrialEnd = unixPtr(providerSub.TrialEnd)
	sub.CurrentPeriodStart = time.Unix(providerSub.CurrentPeriodStart, 0)
	sub.CurrentPeriodEnd = time.Unix(providerSub.CurrentPeriodEnd, 0)
	// The provider signals a scheduled cancellation either as a boolean or
	// as a cancel_at timestamp, depending on how it was requested.
	sub.CancelAtPeriodEnd = providerSub.CancelAtPeriodEnd || providerSub.CancelAt != nil

	if err := s.subs.Update(sub); err != nil {
		return err
	}

	// Plan changes re-cut the cycle the host explicitly agreed to, so slot
	// expiries follow the new period even when that shortens them.
	return s.engine.UpdateSlotsToNewPeriod(sub.HostID, sub.CurrentPeriodEnd)
}

func (s *Synchronizer) handleSubscriptionDeleted(payload json.RawMessage) error {
	var providerSub ProviderSubscription
	if err := json.Unmarshal(payload, &providerSub); err != nil {
		log.Warnf("[Billing] Dropping undecodable subscription payload: %v", err)
		return nil
	}

	sub, err := s.subs.GetByProviderSubscriptionID(providerSub.ID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			log.Warnf("[Billing] subscription.deleted for unknown subscription %s, nothing to cancel", providerSub.ID)
			return nil
		}
		return err
	}
	if sub.Status == models.SubscriptionStatusCancelled {
		return nil
	}

	now := s.now()
	sub.Status = models.SubscriptionStatusCancelled
	sub.CancelledAt = &now
	return s.subs.Update(sub)
}

// handleInvoicePaid is the renewal path. Initial and plan-change invoices
// are skipped here: checkout-completed and subscription.updated own those.
func (s *Synchronizer) handleInvoicePaid(payload json.RawMessage) error {
	var invoice Invoice
	if err := json.Unmarshal(payload, &invoice); err != nil {
		log.Warnf("[Billing] Dropping undecodable invoice payload: %v", err)
		return nil
	}
	if invoice.BillingReason == BillingReasonSubscriptionCreate ||
		invoice.BillingReason == BillingReasonSubscriptionUpdate {
		return nil
	}

	sub, err := s.findByInvoice(&invoice)
	if err != nil {
		return err
	}

	newEnd := time.Unix(invoice.PeriodEnd, 0)
	// Monotonic: a late or duplicated renewal must never rewind the period.
	if newEnd.After(sub.CurrentPeriodEnd) {
		sub.CurrentPeriodStart = time.Unix(invoice.PeriodStart, 0)
		sub.CurrentPeriodEnd = newEnd
	}
	if sub.Status == models.SubscriptionStatusPastDue || sub.Status == models.SubscriptionStatusIncomplete {
		sub.Status = models.SubscriptionStatusActive
	}
	if err := s.subs.Update(sub); err != nil {
		return err
	}

	if err := s.engine.MarkPastDue(sub.HostID, false); err != nil {
		return err
	}
	if purged, err := s.engine.PurgeEmptySlots(sub.HostID); err != nil {
		return err
	} else if purged > 0 {
		log.Infof("[Billing] Purged %d unclaimed empty slots of host %d at renewal", purged, sub.HostID)
	}
	return s.engine.ExtendSlotsAtRenewal(sub.HostID, newEnd)
}

func (s *Synchronizer) handleInvoicePaymentFailed(payload json.RawMessage) error {
	var invoice Invoice
	if err := json.Unmarshal(payload, &invoice); err != nil {
		log.Warnf("[Billing] Dropping undecodable invoice payload: %v", err)
		return nil
	}

	sub, err := s.findByInvoice(&invoice)
	if err != nil {
		return err
	}

	if sub.Status != models.SubscriptionStatusPastDue {
		sub.Status = models.SubscriptionStatusPastDue
		if err := s.subs.Update(sub); err != nil {
			return err
		}
	}
	return s.engine.MarkPastDue(sub.HostID, true)
}

func (s *Synchronizer) handleCustomerDeleted(payload json.RawMessage) error {
	var customer ProviderCustomer
	if err := json.Unmarshal(payload, &customer); err != nil {
		log.Warnf("[Billing] Dropping undecodable customer payload: %v", err)
		return nil
	}
	if strings.TrimSpace(customer.ID) == "" {
		return nil
	}
	return s.subs.DeleteByProviderCustomerID(customer.ID)
}

func (s *Synchronizer) handleProductUpserted(payload json.RawMessage) error {
	var product ProviderProduct
	if err := json.Unmarshal(payload, &product); err != nil {
		log.Warnf("[Billing] Dropping undecodable product payload: %v", err)
		return nil
	}

	rawTokens, ok := product.Metadata[ProductTokenMetadataKey]
	if !ok {
		log.Warnf("[Billing] Product %s has no %s metadata, not mirroring", product.ID, ProductTokenMetadataKey)
		return nil
	}
	tokens, err := strconv.Atoi(strings.TrimSpace(rawTokens))
	if err != nil || tokens < 0 {
		log.Warnf("[Billing] Product %s carries unusable %s=%q, not mirroring", product.ID, ProductTokenMetadataKey, rawTokens)
		return nil
	}

	return s.catalog.UpsertPlan(&models.BillingPlan{
		ProviderProductID: product.ID,
		Name:              product.Name,
		TokenCount:        tokens,
		Active:            product.Active,
	})
}

func (s *Synchronizer) handleProductDeleted(payload json.RawMessage) error {
	var product ProviderProduct
	if err := json.Unmarshal(payload, &product); err != nil {
		log.Warnf("[Billing] Dropping undecodable product payload: %v", err)
		return nil
	}
	return s.catalog.DeactivatePlan(product.ID)
}

func (s *Synchronizer) handlePriceUpserted(payload json.RawMessage) error {
	var price ProviderPrice
	if err := json.Unmarshal(payload, &price); err != nil {
		log.Warnf("[Billing] Dropping undecodable price payload: %v", err)
		return nil
	}

	period, ok := mapBillingInterval(price.Recurring.Interval, price.Recurring.IntervalCount)
	if !ok {
		log.Warnf("[Billing] Price %s has unsupported interval %s/%d, not mirroring",
			price.ID, price.Recurring.Interval, price.Recurring.IntervalCount)
		return nil
	}

	return s.catalog.UpsertPrice(&models.BillingPrice{
		ProviderPriceID:   price.ID,
		ProviderProductID: price.Product,
		BillingPeriod:     period,
		Active:            price.Active,
	})
}

func (s *Synchronizer) handlePriceDeleted(payload json.RawMessage) error {
	var price ProviderPrice
	if err := json.Unmarshal(payload, &price); err != nil {
		log.Warnf("[Billing] Dropping undecodable price payload: %v", err)
		return nil
	}
	return s.catalog.DeactivatePrice(price.ID)
}

func (s *Synchronizer) findByInvoice(invoice *Invoice) (*models.HostSubscription, error) {
	if strings.TrimSpace(invoice.Subscription) != "" {
		sub, err := s.subs.GetByProviderSubscriptionID(invoice.Subscription)
		if err == nil {
			return sub, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	}
	if strings.TrimSpace(invoice.Customer) != "" {
		sub, err := s.subs.GetByProviderCustomerID(invoice.Customer)
		if err == nil {
			return sub, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	}
	return nil, fmt.Errorf("invoice %s references no known subscription", invoice.ID)
}

// mapProviderStatus maps the provider's subscription status vocabulary onto
// ours.
func mapProviderStatus(status string) string {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "trialing":
		return models.SubscriptionStatusTrialing
	case "active":
		return models.SubscriptionStatusActive
	case "past_due", "unpaid":
		return models.SubscriptionStatusPastDue
	case "canceled", "cancelled":
		return models.SubscriptionStatusCancelled
	case "incomplete_expired":
		return models.SubscriptionStatusExpired
	default:
		return models.SubscriptionStatusIncomplete
	}
}

// mapBillingInterval maps provider recurring intervals to billing periods.
func mapBillingInterval(interval string, count int) (string, bool) {
	if count == 0 {
		count = 1
	}
	switch strings.ToLower(strings.TrimSpace(interval)) {
	case "month":
		switch count {
		case 1:
			return models.BillingPeriodMonthly, true
		case 3:
			return models.BillingPeriodQuarterly, true
		case 6:
			return models.BillingPeriodSemiAnnual, true
		case 12:
			return models.BillingPeriodYearly, true
		}
	case "year":
		if count == 1 {
			return models.BillingPeriodYearly, true
		}
	}
	return "", false
}

func parseHostID(ref string) (uint, error) {
	id, err := strconv.ParseUint(strings.TrimSpace(ref), 10, 32)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("client reference %q is not a host id", ref)
	}
	return uint(id), nil
}

func unixPtr(ts *int64) *time.Time {
	if ts == nil {
		return nil
	}
	t := time.Unix(*ts, 0)
	return &t
}
