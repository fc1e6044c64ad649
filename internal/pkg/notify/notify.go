package notify

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2/log"

	"github.com/FeWoHub/fewohub/internal/pkg/env"
)

// Notification kinds sent to the external notification service.
const (
	KindListingPublished = "listing_published"
	KindListingOffline   = "listing_offline"
	KindSlotExpired      = "slot_expired"
	KindSlotConverted    = "slot_converted"
)

// Notification is the payload handed to the external notification service.
type Notification struct {
	Kind      string `json:"kind"`
	HostID    uint   `json:"host_id"`
	ListingID uint   `json:"listing_id,omitempty"`
	SlotID    uint   `json:"slot_id,omitempty"`
	Message   string `json:"message,omitempty"`
}

var httpClient = &http.Client{Timeout: 10 * time.Second}

// Send dispatches a notification best-effort. Failures are logged and
// swallowed; a broken notification service must never fail an entitlement
// operation.
func Send(n Notification) {
	endpoint := env.GetEnv("NOTIFY_ENDPOINT", "")
	if endpoint == "" {
		log.Debugf("[Notify] NOTIFY_ENDPOINT not set, skipping %s for host %d", n.Kind, n.HostID)
		return
	}

	body, err := json.Marshal(n)
	if err != nil {
		log.Errorf("[Notify] Could not encode notification: %v", err)
		return
	}

	resp, err := httpClient.Post(endpoint, "application/json", bytes.NewReader(body))
	if err != nil {
		log.Errorf("[Notify] Sending %s for host %d failed: %v", n.Kind, n.HostID, err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		log.Errorf("[Notify] Notification service answered %s for %s", resp.Status, n.Kind)
		return
	}
	log.Infof("[Notify] Sent %s for host %d", n.Kind, n.HostID)
}

// SendListingPublished notifies about a listing going live.
func SendListingPublished(hostID, listingID, slotID uint) {
	Send(Notification{
		Kind:      KindListingPublished,
		HostID:    hostID,
		ListingID: listingID,
		SlotID:    slotID,
	})
}

// SendSlotExpired notifies about a slot torn down by the expiry sweep.
func SendSlotExpired(hostID, listingID, slotID uint) {
	Send(Notification{
		Kind:      KindSlotExpired,
		HostID:    hostID,
		ListingID: listingID,
		SlotID:    slotID,
		Message:   fmt.Sprintf("advertising slot %d expired", slotID),
	})
}
