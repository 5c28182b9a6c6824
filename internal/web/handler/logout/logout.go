package logout

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/ctr49/matrix-authentication-service/internal/auth"
	"github.com/ctr49/matrix-authentication-service/internal/config"
	sessioncontroller "github.com/ctr49/matrix-authentication-service/internal/db/controller/session"
	"github.com/ctr49/matrix-authentication-service/internal/db/models"
	"github.com/ctr49/matrix-authentication-service/internal/web/handler"
	"github.com/ctr49/matrix-authentication-service/internal/web/handler/login"
	"github.com/ctr49/matrix-authentication-service/internal/web/session"
)

const (
	// Path is the path to the logout endpoint.
	Path = "/logout"
)

// Service is the logout handler service.
type Service struct {
	handler.Service
	cfg      *config.Config
	db       *gorm.DB
	provider *auth.OIDCProvider
}

// Handler is the logout handler.
var Handler = Service{}

// Init initializes the logout handler. The provider is optional and only
// used for RP-initiated logout of OIDC-sourced accounts.
func (s *Service) Init(app *fiber.App, cfg *config.Config, db *gorm.DB, provider *auth.OIDCProvider) error {
	if app == nil || cfg == nil || db == nil {
		return errors.New(handler.ErrNilACDFatalLogMsg)
	}

	s.cfg = cfg
	s.db = db
	s.provider = provider

	app.Get(Path, s.Logout)
	app.Post(Path, s.Logout)

	return nil
}

// Logout clears the session store entry, removes the matching browser
// session record and expires the session cookie. Accounts that logged in
// through the upstream OIDC provider are sent to its end-session endpoint.
func (s *Service) Logout(c *fiber.Ctx) error {
	var providerURL string

	sessionID := c.Cookies("session")
	if sessionID != "" {
		sessData := new(session.Data)
		if err := sessData.Read(sessionID); err == nil && sessData.User.ID > 0 {
			providerURL = s.providerLogoutURL(c.Context(), &sessData.User, sessData.IDToken)

			if err := sessioncontroller.Revoke(s.db, sessData.User.ID, sessionID); err != nil &&
				!errors.Is(err, sessioncontroller.ErrSessionNotFound) {
				log.Error().Err(err).Msg("failed to remove browser session record")
			}
		}

		if err := session.Delete(sessionID); err != nil {
			log.Error().Err(err).Msg("failed to delete session from store")
		}
	}

	cookieSettings := &fiber.Cookie{
		Name:     "session",
		Value:    "",
		MaxAge:   -1,
		Secure:   true,
		HTTPOnly: true,
		SameSite: "Lax",
	}

	if s.cfg.DevMode {
		cookieSettings.Secure = false
	}

	c.Cookie(cookieSettings)

	if providerURL != "" {
		return c.Redirect(providerURL)
	}

	return c.Redirect(login.Path)
}

// providerLogoutURL returns the upstream end-session URL for OIDC-sourced
// accounts, or "" when the local login page is the right target.
func (s *Service) providerLogoutURL(ctx context.Context, user *models.User, rawIDToken string) string {
	if s.provider == nil || user.AuthSource != models.AuthSourceOIDC || rawIDToken == "" {
		return ""
	}

	// a token that no longer verifies makes a useless id_token_hint
	if _, err := s.provider.VerifyToken(ctx, rawIDToken); err != nil {
		log.Debug().Err(err).Uint64("user_id", user.ID).Msg("stored id token no longer verifies, local logout only")
		return ""
	}

	return s.provider.GetLogoutURL(rawIDToken, s.cfg.Webserver.URL+login.Path)
}
