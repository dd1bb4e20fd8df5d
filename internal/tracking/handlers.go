package tracking

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/keshav2k4/employee-tracker-App/internal/device"
)

func RegisterRoutes(r fiber.Router, ctrl *Controller, authMiddleware fiber.Handler) {
	r.Post("/start", authMiddleware, func(c *fiber.Ctx) error {
		var req StartRequest
		if len(c.Body()) > 0 {
			if err := c.BodyParser(&req); err != nil {
				return fiber.NewError(fiber.StatusBadRequest, err.Error())
			}
		}
		if req.IntervalMS < 0 {
			return fiber.NewError(fiber.StatusBadRequest, "interval_ms must not be negative")
		}
		outcome, err := ctrl.Start(c.Context(), time.Duration(req.IntervalMS)*time.Millisecond)
		if err != nil {
			return fixError(err)
		}
		return c.JSON(fiber.Map{
			"status":  ctrl.Status(),
			"outcome": outcome,
		})
	})

	r.Post("/stop", authMiddleware, func(c *fiber.Ctx) error {
		ctrl.Stop()
		return c.JSON(ctrl.Status())
	})

	r.Get("/status", authMiddleware, func(c *fiber.Ctx) error {
		return c.JSON(ctrl.Status())
	})

	r.Get("/current", authMiddleware, func(c *fiber.Ctx) error {
		sample, err := ctrl.CurrentFix(c.Context())
		if err != nil {
			return fixError(err)
		}
		return c.JSON(sample)
	})
}

func fixError(err error) error {
	switch {
	case errors.Is(err, device.ErrPermissionDenied):
		return fiber.NewError(fiber.StatusForbidden, err.Error())
	case errors.Is(err, device.ErrTimeout):
		return fiber.NewError(fiber.StatusGatewayTimeout, err.Error())
	case errors.Is(err, device.ErrUnavailable):
		return fiber.NewError(fiber.StatusServiceUnavailable, err.Error())
	default:
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
}
