package controllers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/harborlist/harborlist/app/models"
	"github.com/harborlist/harborlist/app/repository"
)

// HandleListTiers returns the published tier catalog, optionally filtered by
// account class.
func HandleListTiers(c *fiber.Ctx) error {
	accountClass := c.Query("account_class")
	if accountClass != "" &&
		accountClass != models.AccountClassIndividual &&
		accountClass != models.AccountClassDealer {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "account_class must be 'individual' or 'dealer'")
	}

	tiers, err := repository.GetGlobalFactory().GetTierRepository().ListActive(accountClass)
	if err != nil {
		return handleDomainError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"tiers": tiers})
}

// HandleGetTier returns one tier by its public id.
func HandleGetTier(c *fiber.Ctx) error {
	tier, err := repository.GetGlobalFactory().GetTierRepository().GetByTierID(c.Params("tier_id"))
	if err != nil {
		return handleDomainError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(tier)
}
