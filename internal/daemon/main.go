// Package daemon wires the database, session storage and web service
// together and runs the account console.
package daemon

import (
	"context"
	"fmt"

	"github.com/gofiber/storage"
	storagemysql "github.com/gofiber/storage/mysql/v2"
	storagepostgres "github.com/gofiber/storage/postgres/v3"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/ctr49/matrix-authentication-service/internal/auth"
	"github.com/ctr49/matrix-authentication-service/internal/config"
	"github.com/ctr49/matrix-authentication-service/internal/db/dsn"
	"github.com/ctr49/matrix-authentication-service/internal/db/models"
	"github.com/ctr49/matrix-authentication-service/internal/web"
	websession "github.com/ctr49/matrix-authentication-service/internal/web/session"
)

// Daemon represents the main application daemon.
type Daemon struct {
	cfg        *config.Config
	webService *web.Service
}

// Start starts the Daemon's web service and blocks until it stops.
func (d *Daemon) Start() error {
	addr := fmt.Sprintf(":%d", d.cfg.Webserver.Port)

	go d.webService.WaitShutdown()

	return d.webService.Start(addr)
}

// New creates a new Daemon instance with the provided configuration.
func New(cfg *config.Config) (*Daemon, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}

	db, err := gorm.Open(dsn.Dialector(cfg), &gorm.Config{})
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect database")
	}

	if err = db.AutoMigrate(
		&models.User{},
		&models.Session{},
	); err != nil {
		return nil, errors.Wrap(err, "failed to migrate database")
	}

	seed(cfg, db)

	websession.Init(newSessionStorage(cfg))

	var oidcProvider *auth.OIDCProvider

	if cfg.OIDC.Enabled {
		oidcProvider, err = auth.NewOIDCProvider(context.Background(), cfg.OIDC, db)
		if err != nil {
			return nil, errors.Wrap(err, "failed to initialize oidc provider")
		}

		log.Info().Str("provider", cfg.OIDC.ProviderURL).Msg("upstream oidc login enabled")
	}

	webService, err := web.New(cfg, db, oidcProvider)
	if err != nil {
		return nil, errors.Wrap(err, "failed to initialize web service")
	}

	return &Daemon{
		cfg:        cfg,
		webService: webService,
	}, nil
}

// newSessionStorage selects the fiber session storage backend. A nil
// return makes the session package fall back to in-memory storage.
func newSessionStorage(cfg *config.Config) storage.Storage {
	switch cfg.Webserver.SessionStorage {
	case config.DriverMySQL:
		return storagemysql.New(storagemysql.Config{
			ConnectionURI: dsn.Create(cfg),
			Table:         "web_sessions",
		})
	case config.DriverPostgres:
		return storagepostgres.New(storagepostgres.Config{
			ConnectionURI: dsn.Create(cfg),
			Table:         "web_sessions",
		})
	default:
		return nil
	}
}
