package oidc

import (
	"github.com/gofiber/fiber/v2"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/ctr49/matrix-authentication-service/internal/auth"
	"github.com/ctr49/matrix-authentication-service/internal/config"
	sessioncontroller "github.com/ctr49/matrix-authentication-service/internal/db/controller/session"
	"github.com/ctr49/matrix-authentication-service/internal/web/handler"
	"github.com/ctr49/matrix-authentication-service/internal/web/handler/login"
	"github.com/ctr49/matrix-authentication-service/internal/web/session"
)

const (
	// Path is the base path for the upstream OpenID Connect login flow.
	Path = "/auth/oidc"

	// CallbackPath is the redirect URI path registered with the provider.
	CallbackPath = Path + "/callback"

	stateCookie = "oidc_state"
)

// Service is the upstream OpenID Connect login handler service.
type Service struct {
	handler.Service
	cfg      *config.Config
	db       *gorm.DB
	provider *auth.OIDCProvider
}

// Handler is the OIDC handler.
var Handler = Service{}

// Init initializes the OIDC handler. When upstream login is disabled in
// the configuration the routes are not registered.
func (s *Service) Init(app *fiber.App, cfg *config.Config, db *gorm.DB, provider *auth.OIDCProvider) error {
	if app == nil || cfg == nil || db == nil {
		return errors.New(handler.ErrNilACDFatalLogMsg)
	}

	s.cfg = cfg
	s.db = db
	s.provider = provider

	if !cfg.OIDC.Enabled || provider == nil {
		log.Debug().Msg("upstream OIDC login disabled, routes not registered")
		return nil
	}

	app.Get(Path, s.Login)
	app.Get(CallbackPath, s.Callback)

	return nil
}

// Login starts the authorization code flow by redirecting the browser
// to the upstream provider with a fresh state token.
func (s *Service) Login(c *fiber.Ctx) error {
	state, err := auth.GenerateStateToken()
	if err != nil {
		log.Error().Err(err).Msg("failed to generate oidc state token")
		return c.Status(fiber.StatusInternalServerError).SendString("internal server error")
	}

	cookieSettings := &fiber.Cookie{
		Name:     stateCookie,
		Value:    state,
		MaxAge:   300,
		Secure:   true,
		HTTPOnly: true,
		SameSite: "Lax",
	}

	if s.cfg.DevMode {
		cookieSettings.Secure = false
	}

	c.Cookie(cookieSettings)

	return c.Redirect(s.provider.GetAuthURL(state))
}

// Callback completes the authorization code flow. The state parameter
// must match the state cookie issued by Login.
func (s *Service) Callback(c *fiber.Ctx) error {
	state := c.Query("state")
	if state == "" || state != c.Cookies(stateCookie) {
		log.Warn().Str("remote_ip", c.IP()).Msg("oidc callback with invalid state")
		return c.Status(fiber.StatusBadRequest).SendString("invalid state")
	}

	// state is single use
	c.Cookie(&fiber.Cookie{Name: stateCookie, Value: "", MaxAge: -1, HTTPOnly: true})

	code := c.Query("code")
	if code == "" {
		return c.Status(fiber.StatusBadRequest).SendString("missing code")
	}

	user, rawIDToken, err := s.provider.HandleCallback(c.Context(), code)
	if err != nil {
		log.Error().Err(err).Msg("oidc callback failed")
		return c.Redirect(login.Path)
	}

	sessionID, err := session.GenerateSessionID()
	if err != nil {
		log.Error().Err(err).Msg("failed to generate session ID")
		return c.Status(fiber.StatusInternalServerError).SendString("internal server error")
	}

	// keep the raw ID token so logout can pass it as id_token_hint
	userSession := &session.Data{User: *user, IDToken: rawIDToken}
	if err = userSession.Write(sessionID, s.cfg.Webserver.Session.ExpiryTime); err != nil {
		log.Error().Err(err).Msg("failed to write session")
		return c.Status(fiber.StatusInternalServerError).SendString("internal server error")
	}

	userAgent := c.Get(fiber.HeaderUserAgent)
	if _, err = sessioncontroller.Create(
		s.db, user.ID, sessionID, login.ClientName(userAgent), userAgent, c.IP(),
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

	log.Info().Uint64("user_id", user.ID).Str("auth_source", string(user.AuthSource)).Msg("user logged in via oidc")

	return c.Redirect(handler.RootPath)
}
