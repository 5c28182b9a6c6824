// Package profile provides the account profile page at the console root.
package profile

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/ctr49/matrix-authentication-service/internal/config"
	usercontroller "github.com/ctr49/matrix-authentication-service/internal/db/controller/user"
	"github.com/ctr49/matrix-authentication-service/internal/web/handler"
	"github.com/ctr49/matrix-authentication-service/internal/web/navigation"
)

const (
	// Path is the path to the profile page.
	Path = handler.RootPath

	// TemplateName is the name of the profile template.
	TemplateName = "profile/profile"
)

// Form holds the editable profile fields.
type Form struct {
	DisplayName string `form:"display_name" validate:"required,max=255"`
	Email       string `form:"email"        validate:"required,email,max=255"`
}

// Service is the profile handler service.
type Service struct {
	handler.Service
	cfg       *config.Config
	db        *gorm.DB
	bar       *navigation.Bar
	validator *validator.Validate
}

// Handler is the profile handler.
var Handler = Service{}

// Init initializes the profile handler.
func (s *Service) Init(app *fiber.App, cfg *config.Config, db *gorm.DB, bar *navigation.Bar) error {
	if app == nil || cfg == nil || db == nil || bar == nil {
		return errors.New(handler.ErrNilACDFatalLogMsg)
	}

	s.cfg = cfg
	s.db = db
	s.bar = bar
	s.validator = validator.New()

	app.Get(Path, s.Get)
	app.Post(Path, s.Post)

	return nil
}

func (s *Service) navContext(c *fiber.Ctx) *navigation.Context {
	return navigation.NewContext("Profile", s.bar.Resolve(c.Path())).
		AddBreadcrumb("Account", Path, false).
		AddBreadcrumb("Profile", Path, true)
}

// Get handles the profile page rendering.
func (s *Service) Get(c *fiber.Ctx) error {
	user := handler.CurrentUser(c)
	if user == nil {
		return c.Redirect("/login")
	}

	return c.Render(TemplateName, fiber.Map{
		"User":       user,
		"Navigation": s.navContext(c),
	}, handler.BaseLayout)
}

// Post handles the profile form submission.
func (s *Service) Post(c *fiber.Ctx) error {
	user := handler.CurrentUser(c)
	if user == nil {
		return c.Redirect("/login")
	}

	form := new(Form)
	if err := c.BodyParser(form); err != nil {
		log.Error().Err(err).Msg("failed to parse profile form")
		return c.Status(fiber.StatusBadRequest).Render(TemplateName, fiber.Map{
			"User":       user,
			"Navigation": s.navContext(c),
			"Error":      "Invalid form data",
		}, handler.BaseLayout)
	}

	if err := s.validator.Struct(form); err != nil {
		var validationErrors validator.ValidationErrors
		errors.As(err, &validationErrors)

		errorMessages := make([]string, len(validationErrors))
		for i, ve := range validationErrors {
			errorMessages[i] = "Field '" + ve.Field() + "' failed validation tag '" + ve.Tag() + "'"
		}

		log.Debug().Err(err).Msg("profile form validation failed")

		return c.Status(fiber.StatusBadRequest).Render(TemplateName, fiber.Map{
			"User":       user,
			"Navigation": s.navContext(c),
			"Error":      errorMessages,
		}, handler.BaseLayout)
	}

	if err := usercontroller.UpdateProfile(s.db, user.ID, form.DisplayName, form.Email); err != nil {
		log.Error().Err(err).Uint64("user_id", user.ID).Msg("failed to update profile")
		return c.Status(fiber.StatusInternalServerError).SendString("Failed to update profile")
	}

	user.DisplayName = form.DisplayName
	user.Email = form.Email

	return c.Render(TemplateName, fiber.Map{
		"User":       user,
		"Navigation": s.navContext(c),
		"Success":    "Profile updated",
	}, handler.BaseLayout)
}
