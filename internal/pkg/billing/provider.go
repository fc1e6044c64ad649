package billing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/FeWoHub/fewohub/internal/pkg/env"
)

const defaultProviderAPIBaseURL = "https://api.billing.example.com/v1"

// ProviderClient reads live state from the billing provider. The
// checkout-completed handler uses it instead of trusting event payloads,
// which removes the race against the provider's own subscription-created
// event.
type ProviderClient interface {
	GetSubscription(ctx context.Context, subscriptionID string) (*ProviderSubscription, error)
}

// HTTPProviderClient talks to the provider's REST API with secret-key
// authentication.
type HTTPProviderClient struct {
	SecretKey  string
	APIBaseURL string

	HTTPClient *http.Client
}

// NewProviderClientFromEnv builds a provider client from environment
// configuration.
func NewProviderClientFromEnv() *HTTPProviderClient {
	return &HTTPProviderClient{
		SecretKey:  strings.TrimSpace(env.GetEnv("BILLING_SECRET_KEY", "")),
		APIBaseURL: strings.TrimRight(strings.TrimSpace(env.GetEnv("BILLING_API_BASE_URL", defaultProviderAPIBaseURL)), "/"),
		HTTPClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// GetSubscription fetches the authoritative subscription state by id.
func (c *HTTPProviderClient) GetSubscription(ctx context.Context, subscriptionID string) (*ProviderSubscription, error) {
	if strings.TrimSpace(c.SecretKey) == "" {
		return nil, errors.New("BILLING_SECRET_KEY is not configured")
	}
	id := strings.TrimSpace(subscriptionID)
	if id == "" {
		return nil, errors.New("subscription id is required")
	}

	endpoint := c.APIBaseURL + "/subscriptions/" + url.PathEscape(id)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.SecretKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("provider request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("provider returned status %d for subscription %s: %s",
			resp.StatusCode, id, strings.TrimSpace(string(body)))
	}

	var sub ProviderSubscription
	if err := json.Unmarshal(body, &sub); err != nil {
		return nil, fmt.Errorf("decoding subscription %s: %w", id, err)
	}
	return &sub, nil
}
