package controllers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/FeWoHub/fewohub/internal/pkg/jobqueue"
)

// Admin endpoints for support staff: flag a host past due, force immediate
// expiry of all their slots, or rebuild a host's listing projection.

// HandleAdminMarkPastDue toggles the past-due marker on all of a host's
// subscription slots.
func HandleAdminMarkPastDue(c *fiber.Ctx) error {
	hostID, err := parseIDParam(c, "id")
	if err != nil {
		return errorResponse(c, err)
	}

	var req struct {
		PastDue *bool `json:"past_due" validate:"required"`
	}
	if err := c.BodyParser(&req); err != nil || req.PastDue == nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "validation_failed", "message": "past_due is required"})
	}

	if err := GetEntitlementEngine().MarkPastDue(hostID, *req.PastDue); err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(fiber.Map{"ok": true})
}

// HandleAdminImmediateExpiry marks every slot of the host for pickup by the
// next expiry sweep, then triggers a sweep.
func HandleAdminImmediateExpiry(c *fiber.Ctx) error {
	hostID, err := parseIDParam(c, "id")
	if err != nil {
		return errorResponse(c, err)
	}

	if err := GetEntitlementEngine().MarkImmediateExpiry(hostID); err != nil {
		return errorResponse(c, err)
	}

	if manager := jobqueue.GetManager(); manager != nil {
		if _, err := manager.EnqueueSweepNow(0); err != nil {
			return errorResponse(c, err)
		}
	}
	return c.JSON(fiber.Map{"ok": true})
}

// HandleAdminReconcileProjection rebuilds the denormalized slot fields on
// all of a host's listings from the slot store.
func HandleAdminReconcileProjection(c *fiber.Ctx) error {
	hostID, err := parseIDParam(c, "id")
	if err != nil {
		return errorResponse(c, err)
	}

	manager := jobqueue.GetManager()
	if manager == nil {
		// Queue not running (tests, one-off tools): reconcile inline.
		if err := GetListingPublisher().ReconcileHostProjections(hostID); err != nil {
			return errorResponse(c, err)
		}
		return c.JSON(fiber.Map{"ok": true})
	}

	payload := jobqueue.ProjectionSyncJobPayload{HostID: hostID}
	job, err := manager.GetQueue().EnqueueJob(jobqueue.JobTypeProjectionSync, payload.ToMap())
	if err != nil {
		return errorResponse(c, err)
	}
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"ok": true, "job_id": job.ID})
}

// HandleAdminQueueStats reports job queue counters.
func HandleAdminQueueStats(c *fiber.Ctx) error {
	manager := jobqueue.GetManager()
	if manager == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "queue_unavailable"})
	}

	stats, err := manager.GetQueue().GetJobStats(c.Context())
	if err != nil {
		return errorResponse(c, err)
	}
	size, _ := manager.GetQueue().GetQueueSize(c.Context())
	return c.JSON(fiber.Map{"stats": stats, "queued": size})
}
