package controllers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/harborlist/harborlist/app/models"
	"github.com/harborlist/harborlist/internal/pkg/delegation"
)

// CreateSubAccountRequest is the body of the sub-account creation endpoint.
type CreateSubAccountRequest struct {
	Name                 string             `json:"name"`
	Email                string             `json:"email"`
	Password             string             `json:"password"`
	Role                 string             `json:"role"`
	AccessScope          models.AccessScope `json:"access_scope"`
	DelegatedPermissions []string           `json:"delegated_permissions"`
}

// SuspendSubAccountRequest carries the optional suspension reason.
type SuspendSubAccountRequest struct {
	Reason string `json:"reason"`
}

// HandleCreateSubAccount provisions a sub-account under the parent account.
func HandleCreateSubAccount(c *fiber.Ctx) error {
	parentID, err := parseIDParam(c, "id")
	if err != nil {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", err.Error())
	}
	var req CreateSubAccountRequest
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "Invalid request body")
	}

	sub, err := services.SubAccounts.Create(c.Context(), delegation.CreateSubAccountInput{
		ParentAccountID:      parentID,
		Name:                 req.Name,
		Email:                req.Email,
		Password:             req.Password,
		Role:                 req.Role,
		AccessScope:          req.AccessScope,
		DelegatedPermissions: req.DelegatedPermissions,
	})
	if err != nil {
		return handleDomainError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(sub)
}

// HandleListSubAccounts returns all sub-accounts of the parent.
func HandleListSubAccounts(c *fiber.Ctx) error {
	parentID, err := parseIDParam(c, "id")
	if err != nil {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", err.Error())
	}

	subs, err := services.SubAccounts.ListByParent(c.Context(), parentID)
	if err != nil {
		return handleDomainError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"sub_accounts": subs})
}

// HandleUpdateSubAccount applies partial changes to a sub-account.
func HandleUpdateSubAccount(c *fiber.Ctx) error {
	subID, err := parseIDParam(c, "sub_id")
	if err != nil {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", err.Error())
	}
	var req delegation.UpdateSubAccountInput
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "Invalid request body")
	}

	sub, err := services.SubAccounts.Update(c.Context(), subID, req)
	if err != nil {
		return handleDomainError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(sub)
}

// HandleSuspendSubAccount suspends a sub-account. The record is kept for
// audit attribution; suspension is the delete of this API.
func HandleSuspendSubAccount(c *fiber.Ctx) error {
	subID, err := parseIDParam(c, "sub_id")
	if err != nil {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", err.Error())
	}
	var req SuspendSubAccountRequest
	_ = c.BodyParser(&req) // body optional

	if err := services.SubAccounts.Suspend(c.Context(), subID, req.Reason); err != nil {
		return handleDomainError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
