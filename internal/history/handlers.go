package history

import (
	"context"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
)

// RemoteFetcher loads server-side history for the current employee.
type RemoteFetcher func(ctx context.Context, start, end *time.Time) ([]Entry, error)

func RegisterRoutes(r fiber.Router, store Store, remote RemoteFetcher, authMiddleware fiber.Handler) {
	r.Get("/", authMiddleware, func(c *fiber.Ctx) error {
		start, end, err := parseRange(c, time.Now())
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		var entries []Entry
		if start == nil && end == nil {
			entries = store.All(c.Context())
		} else {
			entries = store.ByDateRange(c.Context(), start, end)
		}

		if c.QueryBool("include_remote") && remote != nil {
			remoteEntries, err := remote(c.Context(), start, end)
			if err != nil {
				log.Printf("remote history fetch failed: %v", err)
			} else {
				entries = Merge(entries, remoteEntries)
			}
		}
		return c.JSON(entries)
	})

	r.Get("/stats", authMiddleware, func(c *fiber.Ctx) error {
		return c.JSON(store.Stats(c.Context()))
	})

	r.Get("/export", authMiddleware, func(c *fiber.Ctx) error {
		payload, err := store.Export(c.Context())
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
		c.Set(fiber.HeaderContentDisposition, `attachment; filename="location_history.json"`)
		return c.Send(payload)
	})

	r.Delete("/", authMiddleware, func(c *fiber.Ctx) error {
		if err := store.Clear(c.Context()); err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.SendStatus(fiber.StatusNoContent)
	})
}

// parseRange reads either the range shortcut (today, week, all) or explicit
// RFC 3339 start/end query parameters.
func parseRange(c *fiber.Ctx, now time.Time) (*time.Time, *time.Time, error) {
	switch c.Query("range") {
	case "today":
		start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
		return &start, nil, nil
	case "week":
		start := now.Add(-7 * 24 * time.Hour)
		return &start, nil, nil
	case "", "all":
	default:
		return nil, nil, fiber.NewError(fiber.StatusBadRequest, "range must be today, week or all")
	}

	start, err := parseTimeParam(c.Query("start"))
	if err != nil {
		return nil, nil, err
	}
	end, err := parseTimeParam(c.Query("end"))
	if err != nil {
		return nil, nil, err
	}
	return start, end, nil
}

func parseTimeParam(v string) (*time.Time, error) {
	if v == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return nil, fiber.NewError(fiber.StatusBadRequest, "invalid time: "+v)
	}
	return &t, nil
}
