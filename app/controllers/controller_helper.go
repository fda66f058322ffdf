package controllers

import (
	"errors"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/harborlist/harborlist/app/models"
	"github.com/harborlist/harborlist/internal/pkg/capabilities"
	"github.com/harborlist/harborlist/internal/pkg/delegation"
	"github.com/harborlist/harborlist/internal/pkg/membership"
	"github.com/harborlist/harborlist/internal/pkg/sweeper"
)

// Services bundles everything the HTTP handlers call into. Wired once at
// startup by Setup.
type Services struct {
	Resolver     delegation.Resolver
	Membership   *membership.Service
	Capabilities *capabilities.Service
	Engine       *delegation.Engine
	SubAccounts  *delegation.Manager
	Sweep        *sweeper.Manager
}

var services *Services

// Setup installs the service bundle used by all handlers.
func Setup(s *Services) {
	services = s
}

// parseIDParam reads a numeric path parameter.
func parseIDParam(c *fiber.Ctx, name string) (uint, error) {
	raw := c.Params(name)
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		return 0, errors.New("invalid " + name)
	}
	return uint(id), nil
}

// jsonError writes the standard error envelope.
func jsonError(c *fiber.Ctx, status int, code, message string) error {
	return c.Status(status).JSON(fiber.Map{"error": code, "message": message})
}

// handleDomainError maps service errors onto HTTP responses. Anything
// unrecognized is a 500.
func handleDomainError(c *fiber.Ctx, err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", verrs.Error())
	}

	switch {
	case errors.Is(err, models.ErrAccountNotFound):
		return jsonError(c, fiber.StatusNotFound, "not_found", "Account not found")
	case errors.Is(err, models.ErrTierNotFound):
		return jsonError(c, fiber.StatusNotFound, "not_found", "Tier not found")
	case errors.Is(err, models.ErrSubAccountNotFound):
		return jsonError(c, fiber.StatusNotFound, "not_found", "Sub-account not found")
	case errors.Is(err, models.ErrSubAccountLimitReached):
		return jsonError(c, fiber.StatusConflict, "sub_account_limit_reached", "Sub-account limit reached for this plan")
	case errors.Is(err, models.ErrInvalidTierTransition):
		return jsonError(c, fiber.StatusConflict, "invalid_tier_transition", "The requested tier change is not allowed")
	case errors.Is(err, models.ErrVersionConflict):
		return jsonError(c, fiber.StatusConflict, "conflict", "The account was modified concurrently, retry")
	case errors.Is(err, models.ErrPermissionNotDelegatable):
		return jsonError(c, fiber.StatusUnprocessableEntity, "permission_not_delegatable", "A delegated permission is not covered by the parent plan")
	case errors.Is(err, models.ErrInvalidAccessScope):
		return jsonError(c, fiber.StatusUnprocessableEntity, "invalid_access_scope", "Access scope references listings the parent does not own")
	case errors.Is(err, models.ErrBatchTooLarge):
		return jsonError(c, fiber.StatusBadRequest, "batch_too_large", "Too many accounts in one batch")
	case errors.Is(err, models.ErrTransientFailure):
		return jsonError(c, fiber.StatusServiceUnavailable, "service_unavailable", "Temporary backend failure, retry")
	default:
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Unexpected error")
	}
}
