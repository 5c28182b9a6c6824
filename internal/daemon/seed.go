package daemon

import (
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/ctr49/matrix-authentication-service/internal/config"
	"github.com/ctr49/matrix-authentication-service/internal/db/models"
)

// seed creates the initial admin account when the user table is empty.
func seed(cfg *config.Config, db *gorm.DB) {
	var count int64

	db.Model(&models.User{}).Count(&count)
	if count > 0 {
		return
	}

	if cfg.Seed.AdminPassword == "" {
		log.Warn().Msg("user table is empty and no seed admin password is configured, skipping seed")
		return
	}

	admin := &models.User{
		Username:   cfg.Seed.AdminUsername,
		Email:      cfg.Seed.AdminEmail,
		Password:   models.HashPassword(cfg.Seed.AdminPassword),
		Active:     true,
		Admin:      true,
		AuthSource: models.AuthSourceLocal,
	}

	if err := db.Create(admin).Error; err != nil {
		log.Error().Err(err).Msg("failed to seed admin user")
		return
	}

	log.Info().Str("username", admin.Username).Msg("seeded initial admin user")
}
