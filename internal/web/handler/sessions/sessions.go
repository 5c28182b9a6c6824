// Package sessions provides the browser sessions page: list active sessions
// of the account and revoke single sessions or all others.
package sessions

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/ctr49/matrix-authentication-service/internal/config"
	sessioncontroller "github.com/ctr49/matrix-authentication-service/internal/db/controller/session"
	"github.com/ctr49/matrix-authentication-service/internal/web/handler"
	"github.com/ctr49/matrix-authentication-service/internal/web/navigation"
	websession "github.com/ctr49/matrix-authentication-service/internal/web/session"
)

const (
	// Path is the path to the sessions page.
	Path = "/sessions"

	// TemplateName is the name of the sessions template.
	TemplateName = "sessions/sessions"
)

// Row represents one session for template rendering.
type Row struct {
	SessionID  string
	ClientName string
	UserAgent  string
	RemoteIP   string
	LastSeenAt string
	Current    bool
}

// Service is the sessions handler service.
type Service struct {
	handler.Service
	cfg *config.Config
	db  *gorm.DB
	bar *navigation.Bar
}

// Handler is the sessions handler.
var Handler = Service{}

// Init initializes the sessions handler.
func (s *Service) Init(app *fiber.App, cfg *config.Config, db *gorm.DB, bar *navigation.Bar) error {
	if app == nil || cfg == nil || db == nil || bar == nil {
		return errors.New(handler.ErrNilACDFatalLogMsg)
	}

	s.cfg = cfg
	s.db = db
	s.bar = bar

	app.Route(Path, func(router fiber.Router) {
		router.Get(handler.RouterRootPath, s.Get)
		router.Post("/revoke", s.Revoke)
		router.Post("/revoke-others", s.RevokeOthers)
	})

	return nil
}

func (s *Service) navContext(c *fiber.Ctx) *navigation.Context {
	return navigation.NewContext("Sessions", s.bar.Resolve(c.Path())).
		AddBreadcrumb("Account", handler.RootPath, false).
		AddBreadcrumb("Sessions", Path, true)
}

// Get handles the sessions page rendering.
func (s *Service) Get(c *fiber.Ctx) error {
	user := handler.CurrentUser(c)
	if user == nil {
		return c.Redirect("/login")
	}

	current := handler.CurrentSessionID(c)

	sessions, err := sessioncontroller.ListForUser(s.db, user.ID)
	if err != nil {
		log.Error().Err(err).Uint64("user_id", user.ID).Msg("failed to list sessions")
		return c.Status(fiber.StatusInternalServerError).SendString("Failed to load sessions")
	}

	rows := make([]Row, 0, len(sessions))
	for _, sess := range sessions {
		rows = append(rows, Row{
			SessionID:  sess.SessionID,
			ClientName: sess.ClientName,
			UserAgent:  sess.UserAgent,
			RemoteIP:   sess.RemoteIP,
			LastSeenAt: sess.LastSeenAt.Format("2006-01-02 15:04 MST"),
			Current:    sess.SessionID == current,
		})
	}

	return c.Render(TemplateName, fiber.Map{
		"User":       user,
		"Sessions":   rows,
		"Navigation": s.navContext(c),
	}, handler.BaseLayout)
}

// Revoke handles revocation of a single session.
func (s *Service) Revoke(c *fiber.Ctx) error {
	user := handler.CurrentUser(c)
	if user == nil {
		return c.Redirect("/login")
	}

	sessionID := strings.TrimSpace(c.FormValue("session_id"))
	if sessionID == "" {
		return c.Status(fiber.StatusBadRequest).SendString("Missing session id")
	}

	if err := sessioncontroller.Revoke(s.db, user.ID, sessionID); err != nil {
		if errors.Is(err, sessioncontroller.ErrSessionNotFound) {
			return c.Status(fiber.StatusNotFound).SendString("Session not found")
		}

		log.Error().Err(err).Uint64("user_id", user.ID).Msg("failed to revoke session")

		return c.Status(fiber.StatusInternalServerError).SendString("Failed to revoke session")
	}

	// also drop the session store entry so the cookie becomes useless
	if err := websession.Delete(sessionID); err != nil {
		log.Error().Err(err).Msg("failed to delete session from store")
	}

	log.Info().Uint64("user_id", user.ID).Msg("session revoked")

	return c.Redirect(Path)
}

// RevokeOthers handles revocation of every session except the current one.
func (s *Service) RevokeOthers(c *fiber.Ctx) error {
	user := handler.CurrentUser(c)
	if user == nil {
		return c.Redirect("/login")
	}

	current := handler.CurrentSessionID(c)
	if current == "" {
		return c.Status(fiber.StatusBadRequest).SendString("Missing current session")
	}

	victims, err := sessioncontroller.RevokeOthers(s.db, user.ID, current)
	if err != nil {
		log.Error().Err(err).Uint64("user_id", user.ID).Msg("failed to revoke other sessions")
		return c.Status(fiber.StatusInternalServerError).SendString("Failed to revoke sessions")
	}

	for _, victim := range victims {
		if err := websession.Delete(victim.SessionID); err != nil {
			log.Error().Err(err).Msg("failed to delete session from store")
		}
	}

	log.Info().Uint64("user_id", user.ID).Int("count", len(victims)).Msg("other sessions revoked")

	return c.Redirect(Path)
}
