package httpapi

import (
	"context"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/misbar-ag/satwatch/internal/monitor"
)

var validate = validator.New()

// RegisterRoutes wires the HTTP handlers into the Fiber app. The routes are
// the pipeline's whole surface for the UI collaborator: current results,
// fleet stats, the alert log, the refreshing flag and a manual trigger.
func RegisterRoutes(app *fiber.App, service *monitor.Service, store monitor.Store) {
	v1 := app.Group("/api/v1")

	v1.Get("/sites", func(c *fiber.Ctx) error {
		sites, err := store.LoadSites(c.Context())
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "failed to load sites")
		}
		return c.JSON(fiber.Map{"sites": sites})
	})

	v1.Get("/results", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"results": service.Results()})
	})

	v1.Get("/results/:siteID", func(c *fiber.Ctx) error {
		result, ok := service.Result(c.Params("siteID"))
		if !ok {
			return fiber.NewError(fiber.StatusNotFound, "no data for requested site")
		}
		return c.JSON(result)
	})

	v1.Get("/stats", func(c *fiber.Ctx) error {
		return c.JSON(service.Stats())
	})

	v1.Get("/alerts", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"alerts": service.Alerts()})
	})

	v1.Get("/status", func(c *fiber.Ctx) error {
		resp := fiber.Map{
			"refreshing":      service.Refreshing(),
			"refreshInterval": service.Interval().String(),
		}
		if err := service.LastError(); err != nil {
			resp["lastError"] = err.Error()
		}
		return c.JSON(resp)
	})

	v1.Post("/refresh", func(c *fiber.Ctx) error {
		// Detach the cycle from the request: a refresh outlives the
		// HTTP exchange that triggered it.
		if service.Refreshing() {
			return fiber.NewError(fiber.StatusConflict, "refresh already in progress")
		}

		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
			defer cancel()

			if err := service.RefreshAll(ctx); err != nil && !errors.Is(err, monitor.ErrRefreshInProgress) {
				// Already surfaced via the status endpoint.
				return
			}
		}()

		return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"status": "refresh started"})
	})

	v1.Get("/thresholds", func(c *fiber.Ctx) error {
		return c.JSON(service.Thresholds())
	})

	v1.Put("/thresholds", func(c *fiber.Ctx) error {
		var req monitor.AlertThresholds
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		if err := service.UpdateThresholds(c.Context(), req); err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "failed to save thresholds")
		}
		return c.JSON(req)
	})
}
