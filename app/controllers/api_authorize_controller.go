package controllers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/harborlist/harborlist/internal/pkg/delegation"
)

// AuthorizeRequest is the body of POST /api/v1/authorize.
type AuthorizeRequest struct {
	ActorType  string `json:"actor_type"`
	ActorID    uint   `json:"actor_id"`
	Action     string `json:"action"`
	ResourceID uint   `json:"resource_id,omitempty"`
}

// HandleAuthorize evaluates a single authorization question and returns the
// decision. Policy denials are 200 responses with allowed=false; only
// infrastructure trouble produces an error status.
func HandleAuthorize(c *fiber.Ctx) error {
	var req AuthorizeRequest
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "Invalid request body")
	}

	actorType := delegation.ActorType(req.ActorType)
	if actorType != delegation.ActorTypeAccount && actorType != delegation.ActorTypeSubAccount {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "actor_type must be 'account' or 'sub_account'")
	}
	if req.ActorID == 0 || req.Action == "" {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "actor_id and action are required")
	}
	action := delegation.Action(req.Action)
	if delegation.ActionRequiresResource(action) && req.ResourceID == 0 {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "resource_id is required for this action")
	}

	decision, err := services.Engine.Authorize(c.Context(), actorType, req.ActorID, action, req.ResourceID)
	if err != nil {
		return handleDomainError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(decision)
}
