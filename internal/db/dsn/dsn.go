// Package dsn provides Data Source Name and gorm dialector construction for
// the configured database driver.
package dsn

import (
	"fmt"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/ctr49/matrix-authentication-service/internal/config"
)

// Create builds the Data Source Name from the configuration.
func Create(cfg *config.Config) string {
	switch cfg.DB.Driver {
	case config.DriverPostgres:
		return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s %s",
			cfg.DB.Host,
			cfg.DB.Port,
			cfg.DB.User,
			cfg.DB.Password,
			cfg.DB.Name,
			cfg.DB.Extras,
		)
	case config.DriverMySQL:
		return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?%s",
			cfg.DB.User,
			cfg.DB.Password,
			cfg.DB.Host,
			cfg.DB.Port,
			cfg.DB.Name,
			cfg.DB.Extras,
		)
	default:
		return cfg.DB.Path
	}
}

// Dialector returns the gorm dialector for the configured driver.
func Dialector(cfg *config.Config) gorm.Dialector {
	switch cfg.DB.Driver {
	case config.DriverPostgres:
		return postgres.Open(Create(cfg))
	case config.DriverMySQL:
		return mysql.Open(Create(cfg))
	default:
		return sqlite.Open(Create(cfg))
	}
}
