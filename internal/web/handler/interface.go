package handler

import (
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/ctr49/matrix-authentication-service/internal/config"
	"github.com/ctr49/matrix-authentication-service/internal/web/navigation"
)

// Service is the interface for a web handler service.
type Service interface {
	Init(app *fiber.App, cfg *config.Config, db *gorm.DB, bar *navigation.Bar) error
}
