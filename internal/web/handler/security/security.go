// Package security provides the account security page: password change and
// two-factor authentication (TOTP) management.
package security

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/pquerna/otp/totp"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/ctr49/matrix-authentication-service/internal/auth"
	"github.com/ctr49/matrix-authentication-service/internal/config"
	usercontroller "github.com/ctr49/matrix-authentication-service/internal/db/controller/user"
	"github.com/ctr49/matrix-authentication-service/internal/db/models"
	"github.com/ctr49/matrix-authentication-service/internal/web/handler"
	"github.com/ctr49/matrix-authentication-service/internal/web/navigation"
)

const (
	// Path is the path to the security page.
	Path = "/security"

	// TemplateName is the name of the security template.
	TemplateName = "security/security"

	totpIssuer = "Account Console"
)

// PasswordForm holds the password change fields.
type PasswordForm struct {
	OldPassword string `form:"old_password" validate:"required"`
	NewPassword string `form:"new_password" validate:"required,min=12,max=128"`
}

// TOTPForm holds the two-factor confirmation code.
type TOTPForm struct {
	Secret string `form:"secret" validate:"required"`
	Code   string `form:"code"   validate:"required,len=6,numeric"`
}

// Service is the security handler service.
type Service struct {
	handler.Service
	cfg       *config.Config
	db        *gorm.DB
	bar       *navigation.Bar
	validator *validator.Validate
}

// Handler is the security handler.
var Handler = Service{}

// Init initializes the security handler.
func (s *Service) Init(app *fiber.App, cfg *config.Config, db *gorm.DB, bar *navigation.Bar) error {
	if app == nil || cfg == nil || db == nil || bar == nil {
		return errors.New(handler.ErrNilACDFatalLogMsg)
	}

	s.cfg = cfg
	s.db = db
	s.bar = bar
	s.validator = validator.New()

	app.Route(Path, func(router fiber.Router) {
		router.Get(handler.RouterRootPath, s.Get)
		router.Post("/password", s.ChangePassword)
		router.Post("/totp", s.EnableTOTP)
		router.Post("/totp/confirm", s.ConfirmTOTP)
		router.Post("/totp/disable", s.DisableTOTP)
	})

	return nil
}

func (s *Service) navContext(c *fiber.Ctx) *navigation.Context {
	return navigation.NewContext("Security", s.bar.Resolve(c.Path())).
		AddBreadcrumb("Account", handler.RootPath, false).
		AddBreadcrumb("Security", Path, true)
}

func (s *Service) render(c *fiber.Ctx, user *models.User, extra fiber.Map) error {
	data := fiber.Map{
		"User":       user,
		"Navigation": s.navContext(c),
	}

	for k, v := range extra {
		data[k] = v
	}

	return c.Render(TemplateName, data, handler.BaseLayout)
}

// Get handles the security page rendering.
func (s *Service) Get(c *fiber.Ctx) error {
	user := handler.CurrentUser(c)
	if user == nil {
		return c.Redirect("/login")
	}

	return s.render(c, user, nil)
}

// ChangePassword handles the password change form.
func (s *Service) ChangePassword(c *fiber.Ctx) error {
	user := handler.CurrentUser(c)
	if user == nil {
		return c.Redirect("/login")
	}

	form := new(PasswordForm)
	if err := c.BodyParser(form); err != nil {
		return s.renderStatus(c, user, fiber.StatusBadRequest, "Invalid form data")
	}

	if err := s.validator.Struct(form); err != nil {
		return s.renderStatus(c, user, fiber.StatusBadRequest,
			"New password must be between 12 and 128 characters")
	}

	fresh, err := usercontroller.GetByID(s.db, user.ID)
	if err != nil {
		log.Error().Err(err).Uint64("user_id", user.ID).Msg("failed to load user")
		return s.renderStatus(c, user, fiber.StatusInternalServerError, "Internal server error")
	}

	if !fresh.VerifyPassword(form.OldPassword) {
		log.Debug().Uint64("user_id", user.ID).Err(auth.ErrInvalidOldPassword).Msg("password change rejected")
		return s.renderStatus(c, user, fiber.StatusBadRequest, "Current password is incorrect")
	}

	if err := usercontroller.UpdatePassword(s.db, user.ID, models.HashPassword(form.NewPassword)); err != nil {
		log.Error().Err(err).Uint64("user_id", user.ID).Msg("failed to update password")
		return s.renderStatus(c, user, fiber.StatusInternalServerError, "Internal server error")
	}

	log.Info().Uint64("user_id", user.ID).Msg("password changed")

	return s.render(c, user, fiber.Map{"Success": "Password changed"})
}

// EnableTOTP generates a fresh TOTP secret and shows the confirmation form.
// The secret is only persisted after a valid code confirms it.
func (s *Service) EnableTOTP(c *fiber.Ctx) error {
	user := handler.CurrentUser(c)
	if user == nil {
		return c.Redirect("/login")
	}

	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      totpIssuer,
		AccountName: user.Username,
	})
	if err != nil {
		log.Error().Err(err).Uint64("user_id", user.ID).Msg("failed to generate totp secret")
		return s.renderStatus(c, user, fiber.StatusInternalServerError, "Internal server error")
	}

	return s.render(c, user, fiber.Map{
		"TOTPSecret": key.Secret(),
		"TOTPURL":    key.URL(),
	})
}

// ConfirmTOTP validates the first code against the pending secret and, on
// success, turns two-factor authentication on.
func (s *Service) ConfirmTOTP(c *fiber.Ctx) error {
	user := handler.CurrentUser(c)
	if user == nil {
		return c.Redirect("/login")
	}

	form := new(TOTPForm)
	if err := c.BodyParser(form); err != nil {
		return s.renderStatus(c, user, fiber.StatusBadRequest, "Invalid form data")
	}

	if err := s.validator.Struct(form); err != nil {
		return s.renderStatus(c, user, fiber.StatusBadRequest, "Code must be 6 digits")
	}

	if !totp.Validate(form.Code, form.Secret) {
		return s.renderStatus(c, user, fiber.StatusBadRequest, "Code does not match, try again")
	}

	if err := usercontroller.SetTOTP(s.db, user.ID, form.Secret, true); err != nil {
		log.Error().Err(err).Uint64("user_id", user.ID).Msg("failed to enable totp")
		return s.renderStatus(c, user, fiber.StatusInternalServerError, "Internal server error")
	}

	user.TOTPEnabled = true

	log.Info().Uint64("user_id", user.ID).Msg("two-factor authentication enabled")

	return s.render(c, user, fiber.Map{"Success": "Two-factor authentication enabled"})
}

// DisableTOTP turns two-factor authentication off.
func (s *Service) DisableTOTP(c *fiber.Ctx) error {
	user := handler.CurrentUser(c)
	if user == nil {
		return c.Redirect("/login")
	}

	if err := usercontroller.SetTOTP(s.db, user.ID, "", false); err != nil {
		log.Error().Err(err).Uint64("user_id", user.ID).Msg("failed to disable totp")
		return s.renderStatus(c, user, fiber.StatusInternalServerError, "Internal server error")
	}

	user.TOTPEnabled = false

	log.Info().Uint64("user_id", user.ID).Msg("two-factor authentication disabled")

	return s.render(c, user, fiber.Map{"Success": "Two-factor authentication disabled"})
}

func (s *Service) renderStatus(c *fiber.Ctx, user *models.User, status int, msg string) error {
	c.Status(status)
	return s.render(c, user, fiber.Map{"Error": msg})
}
