package controllers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/harborlist/harborlist/app/models"
	"github.com/harborlist/harborlist/app/repository"
)

// ActivateMembershipRequest is the body of the activate endpoint.
type ActivateMembershipRequest struct {
	TierID       string `json:"tier_id"`
	BillingCycle string `json:"billing_cycle"`
	AutoRenew    bool   `json:"auto_renew"`
}

// ChangeTierRequest is the body of the tier change endpoints.
type ChangeTierRequest struct {
	TierID string `json:"tier_id"`
}

// BulkChangeTierRequest is the body of the bulk tier change endpoint.
type BulkChangeTierRequest struct {
	AccountIDs []uint `json:"account_ids"`
	TierID     string `json:"tier_id"`
}

// HandleActivateMembership starts or extends a premium membership.
func HandleActivateMembership(c *fiber.Ctx) error {
	accountID, err := parseIDParam(c, "id")
	if err != nil {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", err.Error())
	}
	var req ActivateMembershipRequest
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "Invalid request body")
	}
	if req.BillingCycle != models.BillingCycleMonthly && req.BillingCycle != models.BillingCycleYearly {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "billing_cycle must be 'monthly' or 'yearly'")
	}

	account, err := services.Membership.Activate(c.Context(), accountID, req.TierID, req.BillingCycle, req.AutoRenew)
	if err != nil {
		return handleDomainError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(account)
}

// HandleDeactivateMembership ends a premium membership immediately and drops
// the account to its class baseline.
func HandleDeactivateMembership(c *fiber.Ctx) error {
	accountID, err := parseIDParam(c, "id")
	if err != nil {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", err.Error())
	}

	account, err := services.Membership.Deactivate(c.Context(), accountID)
	if err != nil {
		return handleDomainError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(account)
}

// HandleChangeTier moves a non-premium account to another tier of its class.
func HandleChangeTier(c *fiber.Ctx) error {
	accountID, err := parseIDParam(c, "id")
	if err != nil {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", err.Error())
	}
	var req ChangeTierRequest
	if err := c.BodyParser(&req); err != nil || req.TierID == "" {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "tier_id is required")
	}

	account, err := services.Membership.ChangeTier(c.Context(), accountID, req.TierID)
	if err != nil {
		return handleDomainError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(account)
}

// HandleBulkChangeTier applies a tier change to up to the batch limit of
// accounts and reports the outcome per account.
func HandleBulkChangeTier(c *fiber.Ctx) error {
	var req BulkChangeTierRequest
	if err := c.BodyParser(&req); err != nil || req.TierID == "" || len(req.AccountIDs) == 0 {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "tier_id and account_ids are required")
	}

	results, err := services.Membership.BulkChangeTier(c.Context(), req.AccountIDs, req.TierID)
	if err != nil {
		return handleDomainError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"results": results})
}

// HandleGetEntitlements resolves and returns the account's effective
// entitlements at request time.
func HandleGetEntitlements(c *fiber.Ctx) error {
	accountID, err := parseIDParam(c, "id")
	if err != nil {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", err.Error())
	}

	account, err := repository.GetGlobalFactory().GetAccountRepository().GetByID(accountID)
	if err != nil {
		return handleDomainError(c, err)
	}
	ent, err := services.Resolver.Resolve(account, time.Now())
	if err != nil {
		return handleDomainError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(ent)
}
