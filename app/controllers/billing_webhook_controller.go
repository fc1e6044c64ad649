package controllers

import (
	"encoding/json"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/FeWoHub/fewohub/app/models"
	"github.com/FeWoHub/fewohub/app/repository"
	"github.com/FeWoHub/fewohub/internal/pkg/billing"
	"github.com/FeWoHub/fewohub/internal/pkg/env"
	"github.com/FeWoHub/fewohub/internal/pkg/jobqueue"
)

// HandleBillingWebhook receives provider events. The event is recorded
// first and applied asynchronously by the job queue, so the provider gets a
// fast acknowledgement and redelivery only has to survive the unique event
// id, not the whole sync pipeline.
func HandleBillingWebhook(c *fiber.Ctx) error {
	rawBody := append([]byte(nil), c.BodyRaw()...)
	signature := strings.TrimSpace(c.Get("Billing-Signature"))
	secret := env.GetEnv("BILLING_WEBHOOK_SECRET", "")

	var envelope struct {
		ID   string `json:"id"`
		Type string `json:"type"`
	}
	if err := json.Unmarshal(rawBody, &envelope); err != nil || strings.TrimSpace(envelope.ID) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_payload", "message": "Event id is missing"})
	}

	signatureValid := billing.VerifyWebhookSignature(rawBody, signature, secret)

	events := repository.GetGlobalRepositories().WebhookEvent
	created, stored, err := events.CreateIfNotExists(&models.BillingWebhookEvent{
		ProviderEventID: envelope.ID,
		EventType:       envelope.Type,
		PayloadJSON:     string(rawBody),
		SignatureValid:  signatureValid,
	})
	if err != nil {
		log.Errorf("[BillingWebhook] Could not persist event %s: %v", envelope.ID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "webhook_persist_failed"})
	}
	if !created {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"ok": true, "duplicate": true})
	}
	if !signatureValid {
		_ = events.MarkProcessed(stored.ID, "invalid webhook signature")
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid_signature"})
	}

	manager := jobqueue.GetManager()
	if manager == nil {
		log.Error("[BillingWebhook] Job queue not initialized, event stays pending")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "queue_unavailable"})
	}

	payload := jobqueue.BillingEventJobPayload{EventID: stored.ID}
	if _, err := manager.GetQueue().EnqueueJob(jobqueue.JobTypeBillingEvent, payload.ToMap()); err != nil {
		log.Errorf("[BillingWebhook] Could not enqueue event %s: %v", envelope.ID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "enqueue_failed"})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{"ok": true})
}
