package router

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/basicauth"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"github.com/FeWoHub/fewohub/app/controllers"
	"github.com/FeWoHub/fewohub/internal/pkg/env"
)

type ApiRouter struct {
}

func (h ApiRouter) InstallRouter(app *fiber.App) {
	// Wire engine, publisher, synchronizer and job queue before any route
	// can fire.
	controllers.InitializeEntitlementServices()

	api := app.Group("/api", limiter.New())
	api.Get("/", func(ctx *fiber.Ctx) error {
		return ctx.Status(fiber.StatusOK).JSON(fiber.Map{
			"message": "Hello from api",
		})
	})

	v1 := api.Group("/v1")

	// Billing provider callbacks. The webhook route must see the raw body,
	// so it sits outside any body-mutating middleware.
	v1.Post("/billing/webhook", controllers.HandleBillingWebhook)

	// Host entitlement surface
	v1.Get("/hosts/:id/token-availability", controllers.HandleTokenAvailability)
	v1.Get("/hosts/:id/empty-slots", controllers.HandleListEmptySlots)

	// Listing lifecycle
	v1.Post("/listings/:id/publish", controllers.HandlePublishListing)
	v1.Post("/listings/:id/unpublish", controllers.HandleUnpublishListing)
	v1.Post("/listings/:id/convert-slot", controllers.HandleConvertListingSlot)
	v1.Delete("/listings/:id", controllers.HandleDeleteListing)

	// Support staff operations behind basic auth
	admin := v1.Group("/admin", basicauth.New(basicauth.Config{
		Users: map[string]string{
			env.GetEnv("ADMIN_USER", "admin"): env.GetEnv("ADMIN_PASSWORD", ""),
		},
	}))
	admin.Post("/hosts/:id/past-due", controllers.HandleAdminMarkPastDue)
	admin.Post("/hosts/:id/expire-now", controllers.HandleAdminImmediateExpiry)
	admin.Post("/hosts/:id/reconcile-projection", controllers.HandleAdminReconcileProjection)
	admin.Get("/queue/stats", controllers.HandleAdminQueueStats)
}

func NewApiRouter() *ApiRouter {
	return &ApiRouter{}
}
