package billing

import "encoding/json"

// Event types emitted by the billing provider.
const (
	EventCheckoutCompleted    = "checkout.session.completed"
	EventSubscriptionCreated  = "customer.subscription.created"
	EventSubscriptionUpdated  = "customer.subscription.updated"
	EventSubscriptionDeleted  = "customer.subscription.deleted"
	EventInvoicePaid          = "invoice.paid"
	EventInvoicePaymentFailed = "invoice.payment_failed"
	EventCustomerDeleted      = "customer.deleted"
	EventProductCreated       = "product.created"
	EventProductUpdated       = "product.updated"
	EventProductDeleted       = "product.deleted"
	EventPriceCreated         = "price.created"
	EventPriceUpdated         = "price.updated"
	EventPriceDeleted         = "price.deleted"
)

// Invoice billing reasons the renewal path must skip: initial subscription
// creation and plan changes are owned by the checkout and
// subscription-updated handlers.
const (
	BillingReasonSubscriptionCreate = "subscription_create"
	BillingReasonSubscriptionUpdate = "subscription_update"
	BillingReasonSubscriptionCycle  = "subscription_cycle"
)

// EventEnvelope is the provider's wire envelope. Data.Object is decoded per
// event type.
type EventEnvelope struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		Object             json.RawMessage `json:"object"`
		PreviousAttributes json.RawMessage `json:"previous_attributes,omitempty"`
	} `json:"data"`
}

// CheckoutSession is the payload of checkout.session.completed. The client
// reference carries our host id through the provider's checkout.
type CheckoutSession struct {
	ID                string `json:"id"`
	Customer          string `json:"customer"`
	Subscription      string `json:"subscription"`
	ClientReferenceID string `json:"client_reference_id"`
	Status            string `json:"status"`
}

// ProviderSubscription is the provider-side subscription object, both as
// event payload and as the response of a live API read.
type ProviderSubscription struct {
	ID                 string `json:"id"`
	Customer           string `json:"customer"`
	Status             string `json:"status"`
	CancelAtPeriodEnd  bool   `json:"cancel_at_period_end"`
	CancelAt           *int64 `json:"cancel_at"`
	CanceledAt         *int64 `json:"canceled_at"`
	CurrentPeriodStart int64  `json:"current_period_start"`
	CurrentPeriodEnd   int64  `json:"current_period_end"`
	TrialStart         *int64 `json:"trial_start"`
	TrialEnd           *int64 `json:"trial_end"`
	Items              struct {
		Data []struct {
			Price ProviderPrice `json:"price"`
		} `json:"data"`
	} `json:"items"`
}

// Invoice is the payload of invoice.paid / invoice.payment_failed.
type Invoice struct {
	ID            string `json:"id"`
	Customer      string `json:"customer"`
	Subscription  string `json:"subscription"`
	BillingReason string `json:"billing_reason"`
	PeriodStart   int64  `json:"period_start"`
	PeriodEnd     int64  `json:"period_end"`
}

// ProviderCustomer is the payload of customer.deleted.
type ProviderCustomer struct {
	ID      string `json:"id"`
	Deleted bool   `json:"deleted"`
}

// ProviderProduct is the catalog product payload. The token allowance rides
// in provider-side metadata; products without it are not mirrored.
type ProviderProduct struct {
	ID       string            `json:"id"`
	Name     string            `json:"name"`
	Active   bool              `json:"active"`
	Metadata map[string]string `json:"metadata"`
}

// ProviderPrice is the catalog price payload.
type ProviderPrice struct {
	ID        string `json:"id"`
	Product   string `json:"product"`
	Active    bool   `json:"active"`
	Recurring struct {
		Interval      string `json:"interval"`
		IntervalCount int    `json:"interval_count"`
	} `json:"recurring"`
}

// ProductTokenMetadataKey is the provider-side metadata key carrying the
// token allowance of a plan.
const ProductTokenMetadataKey = "token_count"
