package config

import (
	"time"

	"github.com/ctr49/matrix-authentication-service/internal/logger"
)

// Session settings.
type Session struct {
	ExpiryTime time.Duration
}

// Config overall data structure.
type Config struct {
	DevMode   bool // enable dev mode for development
	DB        DB
	Log       logger.Log
	Title     string
	Webserver Webserver
	Nav       Nav
	OIDC      OIDC
	Seed      Seed
}

// DB implements database settings. Driver selects the backend.
type DB struct {
	Driver   string // sqlite (default), mysql or postgres
	Path     string // database file path (sqlite only)
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	Extras   string // extra DSN parameters
}

// Webserver implement webserver settings.
type Webserver struct {
	BrowseStatic   bool    // enable static file browsing (for development purposes only)
	DisableRecover bool    // disable recover middleware
	Domain         string  // domain name for the webserver
	Port           int     // listening port for the webserver
	ShutDownTime   int     // wait time for shutdown
	URL            string  // base url for the webserver
	SessionStorage string  // memory (default), mysql or postgres
	Session        Session // session settings
}

// Nav implements navigation bar settings.
type Nav struct {
	WrapFocus bool // arrow-key focus wraps around at the ends of the bar
}

// OIDC implements upstream OpenID Connect login settings.
type OIDC struct {
	Enabled      bool
	ProviderURL  string
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Scopes       []string
}

// Seed implements the initial admin account, created when the user table is empty.
type Seed struct {
	AdminUsername string
	AdminPassword string
	AdminEmail    string
}
