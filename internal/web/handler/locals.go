package handler

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ctr49/matrix-authentication-service/internal/db/models"
)

const (
	// LocalsUser is the fiber locals key holding the logged-in user.
	LocalsUser = "user"

	// LocalsSessionID is the fiber locals key holding the current session ID.
	LocalsSessionID = "session_id"
)

// CurrentUser returns the logged-in user stored in fiber locals by the auth
// middleware, or nil when the request is unauthenticated.
func CurrentUser(c *fiber.Ctx) *models.User {
	u, ok := c.Locals(LocalsUser).(*models.User)
	if !ok {
		return nil
	}

	return u
}

// CurrentSessionID returns the session ID of the request, or "".
func CurrentSessionID(c *fiber.Ctx) string {
	sid, ok := c.Locals(LocalsSessionID).(string)
	if !ok {
		return ""
	}

	return sid
}
