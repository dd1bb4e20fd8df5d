package auth

import (
	"errors"
	"log"

	"github.com/gofiber/fiber/v2"
)

// RegisterRoutes mounts login/logout/profile. beforeLogout runs before the
// session is cleared (tracking is stopped there).
func RegisterRoutes(r fiber.Router, svc *Service, authMiddleware fiber.Handler, beforeLogout func()) {
	r.Post("/login", func(c *fiber.Ctx) error {
		var req LoginRequest
		if err := c.BodyParser(&req); err != nil || req.Username == "" || req.Password == "" {
			return fiber.NewError(fiber.StatusBadRequest, "username and password required")
		}
		user, tokens, err := svc.Login(c.Context(), req)
		switch {
		case errors.Is(err, ErrLoginFailed):
			return fiber.NewError(fiber.StatusUnauthorized, err.Error())
		case errors.Is(err, ErrStoreUnavailable):
			return fiber.NewError(fiber.StatusServiceUnavailable, err.Error())
		case err != nil:
			return fiber.NewError(fiber.StatusBadGateway, err.Error())
		}
		log.Printf("login successful for %s (%s)", user.FullName, user.UserType)
		return c.JSON(fiber.Map{"user": user, "tokens": tokens})
	})

	r.Post("/logout", authMiddleware, func(c *fiber.Ctx) error {
		if beforeLogout != nil {
			beforeLogout()
		}
		if err := svc.Logout(c.Context()); err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.SendStatus(fiber.StatusNoContent)
	})

	r.Get("/me", authMiddleware, func(c *fiber.Ctx) error {
		user, err := svc.CurrentUser(c.Context())
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		if user == nil {
			return fiber.NewError(fiber.StatusNotFound, "not logged in")
		}
		return c.JSON(user)
	})
}
