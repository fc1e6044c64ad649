package controllers

import (
	"errors"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/FeWoHub/fewohub/internal/pkg/entitlements"
)

var validate = validator.New()

// parseIDParam reads a positive numeric route parameter.
func parseIDParam(c *fiber.Ctx, name string) (uint, error) {
	raw := c.Params(name)
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		return 0, entitlements.NewValidationError("invalid %s: %q", name, raw)
	}
	return uint(id), nil
}

// errorResponse maps engine errors onto HTTP statuses. Validation problems
// are client errors, missing records are 404, lost races 409 and operations
// that are illegal for the current subscription or slot state 422.
func errorResponse(c *fiber.Ctx, err error) error {
	switch {
	case entitlements.IsValidation(err):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "validation_failed", "message": err.Error()})
	case entitlements.IsNotFound(err), errors.Is(err, gorm.ErrRecordNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not_found", "message": err.Error()})
	case entitlements.IsConflict(err):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "conflict", "message": err.Error()})
	case entitlements.IsState(err):
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": "invalid_state", "message": err.Error()})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Unexpected error"})
	}
}
