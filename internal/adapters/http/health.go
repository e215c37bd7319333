package http

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
)

// HealthHandler returns a basic liveness check.
func HealthHandler(deps *Dependencies) fiber.Handler {
	startedAt := time.Now()

	return func(c *fiber.Ctx) error {
		body := fiber.Map{
			"status":  "healthy",
			"uptime":  time.Since(startedAt).String(),
			"version": "dev",
		}
		if deps.Tracking != nil {
			body["sessions"] = deps.Tracking.Count()
		}
		return c.JSON(body)
	}
}

// ReadyHandler checks DB, NATS, and cache connectivity.
func ReadyHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), 3*time.Second)
		defer cancel()

		checks, allOK := readiness(ctx, deps)

		status := "ready"
		code := fiber.StatusOK
		if !allOK {
			status = "not ready"
			code = fiber.StatusServiceUnavailable
		}

		return c.Status(code).JSON(fiber.Map{
			"status": status,
			"checks": checks,
		})
	}
}

// readiness probes each backing service. Only the database is required;
// the API degrades without cache or broker.
func readiness(ctx context.Context, deps *Dependencies) (map[string]string, bool) {
	checks := make(map[string]string)
	allOK := true

	if deps.DB != nil {
		if err := deps.DB.Ping(ctx); err != nil {
			checks["database"] = "error: " + err.Error()
			allOK = false
		} else {
			checks["database"] = "ok"
		}
	} else {
		checks["database"] = "not configured"
		allOK = false
	}

	if deps.NATS != nil {
		if deps.NATS.Connected() {
			checks["nats"] = "ok"
		} else {
			checks["nats"] = "disconnected"
			allOK = false
		}
	} else {
		checks["nats"] = "not configured"
	}

	if deps.Cache != nil {
		if err := deps.Cache.Ping(ctx); err != nil {
			checks["cache"] = "error: " + err.Error()
			allOK = false
		} else {
			checks["cache"] = "ok"
		}
	} else {
		checks["cache"] = "not configured"
	}

	return checks, allOK
}
