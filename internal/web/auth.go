package web

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	sessioncontroller "github.com/ctr49/matrix-authentication-service/internal/db/controller/session"
	"github.com/ctr49/matrix-authentication-service/internal/web/handler"
	"github.com/ctr49/matrix-authentication-service/internal/web/handler/login"
	"github.com/ctr49/matrix-authentication-service/internal/web/handler/oidc"
	"github.com/ctr49/matrix-authentication-service/internal/web/session"
)

// AuthMiddleware checks for a valid session and exposes the current
// user and session ID to downstream handlers via locals.
func AuthMiddleware(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		isLoginPage := IsLoginPage(c)

		originalURL := strings.ToLower(c.OriginalURL())
		if strings.HasPrefix(originalURL, "/static") ||
			strings.HasPrefix(originalURL, oidc.Path) ||
			strings.HasPrefix(originalURL, "/checkalive") ||
			strings.HasPrefix(originalURL, "/metrics") {
			return c.Next()
		}

		loginCookie := c.Cookies("session")

		// no session cookie, redirect to login page
		if loginCookie == "" {
			if isLoginPage {
				return c.Next()
			}

			return c.Redirect(login.Path)
		}

		sessData := new(session.Data)
		_ = sessData.Read(loginCookie)

		if sessData.User.ID == 0 {
			if isLoginPage {
				return c.Next()
			}

			return c.Redirect(login.Path)
		}

		// logged-in users have no business on the login page
		if isLoginPage {
			return c.Redirect(handler.RootPath)
		}

		c.Locals(handler.LocalsUser, &sessData.User)
		c.Locals(handler.LocalsSessionID, loginCookie)

		if err := sessioncontroller.Touch(db, loginCookie); err != nil {
			log.Debug().Err(err).Msg("failed to touch browser session")
		}

		return c.Next()
	}
}

// IsLoginPage checks if the current request is for the login page.
func IsLoginPage(c *fiber.Ctx) bool {
	originalURL := strings.ToLower(c.OriginalURL())
	return strings.HasPrefix(originalURL, login.Path)
}
