package controllers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/FeWoHub/fewohub/app/models"
	"github.com/FeWoHub/fewohub/app/repository"
	"github.com/FeWoHub/fewohub/internal/pkg/entitlements"
	"github.com/FeWoHub/fewohub/internal/pkg/publisher"
)

// HandleTokenAvailability reports how many advertising tokens a host has
// left and whether a subscription-model publish would succeed right now.
func HandleTokenAvailability(c *fiber.Ctx) error {
	hostID, err := parseIDParam(c, "id")
	if err != nil {
		return errorResponse(c, err)
	}

	avail, err := GetEntitlementEngine().TokenAvailability(hostID)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(avail)
}

// HandlePublishListing takes a listing live on a new or reused slot.
func HandlePublishListing(c *fiber.Ctx) error {
	listingID, err := parseIDParam(c, "id")
	if err != nil {
		return errorResponse(c, err)
	}

	var req publisher.PublishRequest
	if err := c.BodyParser(&req); err != nil {
		return errorResponse(c, entitlements.NewValidationError("invalid request body: %v", err))
	}
	req.ListingID = listingID
	if err := validate.Struct(req); err != nil {
		return errorResponse(c, entitlements.NewValidationError("%v", err))
	}

	slot, err := GetListingPublisher().Publish(req)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(slot)
}

// HandleUnpublishListing takes a listing offline. Its slot stays attached
// and keeps aging, so republishing does not cost a fresh token.
func HandleUnpublishListing(c *fiber.Ctx) error {
	listingID, err := parseIDParam(c, "id")
	if err != nil {
		return errorResponse(c, err)
	}

	if err := GetListingPublisher().Unpublish(listingID); err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(fiber.Map{"ok": true})
}

// HandleDeleteListing removes a listing. A subscription slot is emptied and
// kept for reuse until the next renewal; a commission slot is dropped.
func HandleDeleteListing(c *fiber.Ctx) error {
	listingID, err := parseIDParam(c, "id")
	if err != nil {
		return errorResponse(c, err)
	}

	if err := GetListingPublisher().HandleListingDeleted(listingID); err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(fiber.Map{"ok": true})
}

// HandleConvertListingSlot switches the ad model of a listing's slot.
func HandleConvertListingSlot(c *fiber.Ctx) error {
	listingID, err := parseIDParam(c, "id")
	if err != nil {
		return errorResponse(c, err)
	}

	var req struct {
		AdModel string `json:"ad_model" validate:"required,oneof=subscription commission"`
	}
	if err := c.BodyParser(&req); err != nil {
		return errorResponse(c, entitlements.NewValidationError("invalid request body: %v", err))
	}
	if err := validate.Struct(req); err != nil {
		return errorResponse(c, entitlements.NewValidationError("%v", err))
	}

	slot, err := GetListingPublisher().ConvertListingSlot(listingID, req.AdModel)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(slot)
}

// HandleListEmptySlots returns a host's reusable empty subscription slots.
func HandleListEmptySlots(c *fiber.Ctx) error {
	hostID, err := parseIDParam(c, "id")
	if err != nil {
		return errorResponse(c, err)
	}

	slots, err := repository.GetGlobalRepositories().Slot.ListEmptyByHostID(hostID)
	if err != nil {
		return errorResponse(c, err)
	}
	if slots == nil {
		slots = []models.AdSlot{}
	}
	return c.JSON(fiber.Map{"slots": slots})
}
