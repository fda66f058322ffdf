package controllers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/harborlist/harborlist/internal/pkg/metrics/counter"
)

// HandleTriggerSweep runs one expiration sweep immediately and returns its
// report.
func HandleTriggerSweep(c *fiber.Ctx) error {
	report := services.Sweep.TriggerSweep(c.Context())
	return c.Status(fiber.StatusOK).JSON(report)
}

// HandleSweepReport returns the report of the most recent sweep.
func HandleSweepReport(c *fiber.Ctx) error {
	report := services.Sweep.LastReport()
	if report == nil {
		return jsonError(c, fiber.StatusNotFound, "not_found", "No sweep has run yet")
	}
	return c.Status(fiber.StatusOK).JSON(report)
}

// HandleAuthzCounters exposes the allow/deny decision counters for operator
// dashboards.
func HandleAuthzCounters(c *fiber.Ctx) error {
	allows, denies, err := counter.Snapshot()
	if err != nil {
		return jsonError(c, fiber.StatusServiceUnavailable, "service_unavailable", "Counter backend unavailable")
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"allow": allows, "deny": denies})
}
