package controllers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/harborlist/harborlist/app/models"
	"github.com/harborlist/harborlist/internal/pkg/capabilities"
)

// GrantCapabilityRequest is the body of the capability grant endpoint.
type GrantCapabilityRequest struct {
	FeatureID      string         `json:"feature_id"`
	GrantedBy      string         `json:"granted_by"`
	ExpiresAt      *time.Time     `json:"expires_at,omitempty"`
	LimitsOverride *models.Limits `json:"limits_override,omitempty"`
}

// HandleGrantCapability appends a capability grant for the account.
func HandleGrantCapability(c *fiber.Ctx) error {
	accountID, err := parseIDParam(c, "id")
	if err != nil {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", err.Error())
	}
	var req GrantCapabilityRequest
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "Invalid request body")
	}

	grant, err := services.Capabilities.Grant(c.Context(), capabilities.GrantInput{
		AccountID:      accountID,
		FeatureID:      req.FeatureID,
		GrantedBy:      req.GrantedBy,
		ExpiresAt:      req.ExpiresAt,
		LimitsOverride: req.LimitsOverride,
	})
	if err != nil {
		return handleDomainError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(grant)
}

// HandleRevokeCapability appends a revocation row for the feature. The grant
// history stays intact.
func HandleRevokeCapability(c *fiber.Ctx) error {
	accountID, err := parseIDParam(c, "id")
	if err != nil {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", err.Error())
	}
	featureID := c.Params("feature")
	if featureID == "" {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "feature is required")
	}
	revokedBy := c.Query("revoked_by", "admin")

	if err := services.Capabilities.Revoke(c.Context(), accountID, featureID, revokedBy); err != nil {
		return handleDomainError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// HandleListCapabilities returns the full grant history for the account,
// newest first.
func HandleListCapabilities(c *fiber.Ctx) error {
	accountID, err := parseIDParam(c, "id")
	if err != nil {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", err.Error())
	}

	grants, err := services.Capabilities.History(c.Context(), accountID)
	if err != nil {
		return handleDomainError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"grants": grants})
}
