// Package config handles input from etc/*.toml files
package config

import (
	"bytes"
	"encoding/json"
	"os"
	"time"

	"github.com/pkg/errors"

	"github.com/BurntSushi/toml"
)

const (
	// DriverSQLite selects the embedded sqlite backend.
	DriverSQLite = "sqlite"
	// DriverMySQL selects the mysql backend.
	DriverMySQL = "mysql"
	// DriverPostgres selects the postgres backend.
	DriverPostgres = "postgres"

	// SessionStorageMemory keeps sessions in process memory.
	SessionStorageMemory = "memory"

	defaultShutDownTime  = 5
	defaultSessionExpiry = 12 * time.Hour
	defaultSQLitePath    = "./console.db"
	defaultAdminUsername = "admin"
)

// ReadConfig from the config file at the given path.
func ReadConfig(path string) (Config, error) {
	var (
		c             Config
		JSONConfigEnv string
		err           error
	)

	// Read main configuration
	if path == "" {
		path = "./etc/main.toml"
	}

	if _, err = toml.DecodeFile(path, &c); err != nil {
		return Config{}, errors.Wrap(err, "failed to read main config file")
	}

	// override it from env
	JSONConfigEnv = os.Getenv("MAS_CONSOLE_CONFIG_JSON")

	if JSONConfigEnv != "" {
		c, err = decodeAndMergeConfig(c, JSONConfigEnv)
		if err != nil {
			return c, err
		}
	}

	return validate(c)
}

func decodeAndMergeConfig(c Config, configAsJSON string) (Config, error) {
	err := json.Unmarshal([]byte(configAsJSON), &c)
	if err != nil {
		return Config{}, errors.Wrap(err, "failed to merge json config from env")
	}

	return c, nil
}

// DumpConfig config as TOML String.
func DumpConfig(c Config) (string, error) {
	var buffer bytes.Buffer
	t := toml.NewEncoder(&buffer)

	if err := t.Encode(c); err != nil {
		return "", err //nolint: wrapcheck
	}

	return buffer.String(), nil
}

// DumpConfigJSON config as JSON String.
func DumpConfigJSON(c Config) (string, error) {
	var buffer bytes.Buffer
	j := json.NewEncoder(&buffer)
	j.SetIndent("", "  ")

	if err := j.Encode(c); err != nil {
		return "", err //nolint: wrapcheck
	}

	return buffer.String(), nil
}

// validate minimal config settings and apply defaults.
func validate(c Config) (Config, error) {
	invalidErrMessage := "invalid config"

	if c.Webserver.Port == 0 {
		return c, errors.Wrap(ErrWebServerPortCanNotBeZero, invalidErrMessage)
	}

	if c.Webserver.URL == "" {
		return c, errors.Wrap(ErrEmptyURL, invalidErrMessage)
	}

	if c.Webserver.ShutDownTime == 0 {
		c.Webserver.ShutDownTime = defaultShutDownTime
	}

	if c.Webserver.Session.ExpiryTime == 0 {
		c.Webserver.Session.ExpiryTime = defaultSessionExpiry
	}

	switch c.Webserver.SessionStorage {
	case "", SessionStorageMemory:
		c.Webserver.SessionStorage = SessionStorageMemory
	case DriverMySQL, DriverPostgres:
	default:
		return c, errors.Wrap(ErrUnknownSessionStorage, invalidErrMessage)
	}

	switch c.DB.Driver {
	case "", DriverSQLite:
		c.DB.Driver = DriverSQLite

		if c.DB.Path == "" {
			c.DB.Path = defaultSQLitePath
		}
	case DriverMySQL, DriverPostgres:
	default:
		return c, errors.Wrap(ErrUnknownDBDriver, invalidErrMessage)
	}

	if c.Seed.AdminUsername == "" {
		c.Seed.AdminUsername = defaultAdminUsername
	}

	return c, nil
}
