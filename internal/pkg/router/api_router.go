package router

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/basicauth"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"github.com/harborlist/harborlist/app/controllers"
	"github.com/harborlist/harborlist/internal/pkg/env"
	"github.com/harborlist/harborlist/internal/pkg/middleware"
)

type ApiRouter struct {
}

func (h ApiRouter) InstallRouter(app *fiber.App) {
	api := app.Group("/api", limiter.New())
	api.Get("/", func(ctx *fiber.Ctx) error {
		return ctx.Status(fiber.StatusOK).JSON(fiber.Map{
			"message": "HarborList entitlement API",
		})
	})

	v1 := api.Group("/v1", middleware.ServiceKeyAuth())

	// authorization
	v1.Post("/authorize", controllers.HandleAuthorize)

	// tier catalog
	v1.Get("/tiers", controllers.HandleListTiers)
	v1.Get("/tiers/:tier_id", controllers.HandleGetTier)

	// account membership and entitlements
	accounts := v1.Group("/accounts/:id")
	accounts.Get("/entitlements", controllers.HandleGetEntitlements)
	accounts.Post("/membership/activate", controllers.HandleActivateMembership)
	accounts.Post("/membership/deactivate", controllers.HandleDeactivateMembership)
	accounts.Post("/membership/tier", controllers.HandleChangeTier)

	// capability grants
	accounts.Get("/capabilities", controllers.HandleListCapabilities)
	accounts.Post("/capabilities", controllers.HandleGrantCapability)
	accounts.Delete("/capabilities/:feature", controllers.HandleRevokeCapability)

	// sub-accounts
	accounts.Get("/subaccounts", controllers.HandleListSubAccounts)
	accounts.Post("/subaccounts", controllers.HandleCreateSubAccount)
	accounts.Put("/subaccounts/:sub_id", controllers.HandleUpdateSubAccount)
	accounts.Delete("/subaccounts/:sub_id", controllers.HandleSuspendSubAccount)

	// administrative surface
	admin := v1.Group("/admin", basicauth.New(basicauth.Config{
		Users: map[string]string{
			env.GetEnv("ADMIN_USER", "admin"): env.GetEnv("ADMIN_PASSWORD", "admin"),
		},
	}))
	admin.Post("/sweep", controllers.HandleTriggerSweep)
	admin.Get("/sweep/report", controllers.HandleSweepReport)
	admin.Get("/counters", controllers.HandleAuthzCounters)
	admin.Post("/accounts/tier", controllers.HandleBulkChangeTier)
}

func NewApiRouter() *ApiRouter {
	return &ApiRouter{}
}
