package login

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/pquerna/otp/totp"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/ctr49/matrix-authentication-service/internal/config"
	sessioncontroller "github.com/ctr49/matrix-authentication-service/internal/db/controller/session"
	"github.com/ctr49/matrix-authentication-service/internal/db/models"
	"github.com/ctr49/matrix-authentication-service/internal/web/handler"
	"github.com/ctr49/matrix-authentication-service/internal/web/session"
)

const (
	// Path is the path to the login page.
	Path = "/login"
)

// Service is the login handler service.
type Service struct {
	handler.Service
	cfg *config.Config
	db  *gorm.DB
}

// Handler is the login handler.
var Handler = Service{}

// Init initializes the login handler.
func (s *Service) Init(app *fiber.App, cfg *config.Config, db *gorm.DB) error {
	if app == nil || cfg == nil || db == nil {
		return errors.New(handler.ErrNilACDFatalLogMsg)
	}

	s.db = db
	s.cfg = cfg

	app.Route(Path, func(router fiber.Router) {
		router.Get(handler.RouterRootPath, s.Get)
		router.Post(handler.RouterRootPath, s.Post)
	})

	return nil
}

func (s *Service) renderError(c *fiber.Ctx, message string) error {
	return c.Render("login", fiber.Map{
		"oidc_enabled": s.cfg.OIDC.Enabled,
		"error":        message,
	})
}

// Get handles the login page rendering.
func (s *Service) Get(c *fiber.Ctx) error {
	return c.Render("login", fiber.Map{
		"oidc_enabled": s.cfg.OIDC.Enabled,
	})
}

// Post handles the login form submission.
func (s *Service) Post(c *fiber.Ctx) error {
	form := struct {
		Username string `form:"username"`
		Password string `form:"password"`
		TOTPCode string `form:"totp_code"`
	}{}

	if err := c.BodyParser(&form); err != nil {
		return s.renderError(c, ErrInvalidFormData.Error())
	}

	var dbUser models.User

	result := s.db.Where("username = ?", form.Username).First(&dbUser)
	if result.Error != nil {
		return s.renderError(c, ErrInvalidCredentials.Error())
	}

	if !dbUser.Active {
		return s.renderError(c, "Account is inactive")
	}

	if !dbUser.VerifyPassword(form.Password) {
		return s.renderError(c, ErrInvalidCredentials.Error())
	}

	// second factor, when enabled on the account
	if dbUser.TOTPEnabled && !totp.Validate(form.TOTPCode, dbUser.TOTPSecret) {
		return s.renderError(c, ErrInvalidTOTPCode.Error())
	}

	sessionID, err := session.GenerateSessionID()
	if err != nil {
		log.Error().Err(err).Msg("failed to generate session ID")
		return s.renderError(c, ErrInternalServerError.Error())
	}

	userSession := &session.Data{
		User: dbUser,
	}

	if err = userSession.Write(sessionID, s.cfg.Webserver.Session.ExpiryTime); err != nil {
		log.Error().Err(err).Msg("failed to write session")
		return s.renderError(c, ErrInternalServerError.Error())
	}

	// record the browser session for the sessions page
	userAgent := c.Get(fiber.HeaderUserAgent)
	if _, err = sessioncontroller.Create(
		s.db, dbUser.ID, sessionID, ClientName(userAgent), userAgent, c.IP(),
	); err != nil {
		log.Error().Err(err).Msg("failed to record browser session")
	}

	cookieSettings := &fiber.Cookie{
		Name:     "session",
		Value:    sessionID,
		MaxAge:   int(s.cfg.Webserver.Session.ExpiryTime.Seconds()),
		Secure:   true,
		HTTPOnly: true,
		SameSite: "Lax",
	}

	if s.cfg.DevMode {
		cookieSettings.Secure = false
	}

	c.Cookie(cookieSettings)

	log.Info().Uint64("user_id", dbUser.ID).Msg("user logged in")

	return c.Redirect(handler.RootPath)
}

// ClientName derives a short human readable client name from a User-Agent
// header. Order matters: Edge and Chrome both carry "Chrome", Chrome and
// Safari both carry "Safari".
func ClientName(userAgent string) string {
	switch {
	case userAgent == "":
		return "Unknown client"
	case strings.Contains(userAgent, "Firefox/"):
		return "Firefox"
	case strings.Contains(userAgent, "Edg/"):
		return "Edge"
	case strings.Contains(userAgent, "Chrome/"):
		return "Chrome"
	case strings.Contains(userAgent, "Safari/"):
		return "Safari"
	case strings.Contains(userAgent, "curl/"):
		return "curl"
	default:
		return "Other"
	}
}
