// Copyright (c) 2023 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package config is an adapter which allows users to write a yaml
// configuration file and allow the regweb to instantiate different
// components, from the adapter or use cases layers, using those
// configuration settings.
// A handful of settings may also be overridden through environment
// variables (DATABASE_URL, PORT, AUTH_ENABLED, AUTH_TOKEN_HASH, and
// CORS_ORIGINS), so deployment environments can inject them without
// rewriting the configuration file.
// However, the parsed and validated configurations should be passed
// to their ultimate components as a series of individual params (for
// the mandatory items) and a series of functional options (for
// the optional items), so they may be accumulated and validated
// in another (possibly non-exorted) config struct (or directly in the
// relevant end-component such as a UseCase instance). This design
// decision causes a bit of redundancy in favor of a defensive solution.
package config

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"

	"github.com/caarlos0/env/v11"
	"github.com/dataproducts/registry/pkg/adapter/db/postgres"
	"github.com/dataproducts/registry/pkg/adapter/restful/gin"
	"github.com/dataproducts/registry/pkg/adapter/restful/gin/middleware"
	"gopkg.in/yaml.v3"
)

// Config contains all settings which are required by different parts
// of the project such as adapters or use cases. It is preferred to
// implement Config with primitive fields or other structs which are
// defined in this package, not models or structs which are defined in
// other layers, so the configuration can be versioned and kept intact
// while other layers can change freely.
type Config struct {
	Database Database
	Gin      Gin
	Auth     Auth
	CORS     CORS `yaml:"cors"`
}

// envOverrides lists the settings which may be injected through the
// environment, taking precedence over the configuration file.
type envOverrides struct {
	DatabaseURL   string   `env:"DATABASE_URL"`
	Addr          string   `env:"PORT"`
	AuthEnabled   *bool    `env:"AUTH_ENABLED"`
	AuthTokenHash string   `env:"AUTH_TOKEN_HASH"`
	CORSOrigins   []string `env:"CORS_ORIGINS" envSeparator:","`
}

// Database contains the database related configuration settings.
// Either a complete connection URL or the individual connection
// items may be provided; a non-empty URL takes precedence.
type Database struct {
	URL      string // postgresql:// connection string
	Host     string // domain name or IP address of the DBMS server
	Port     int    // port number of the DBMS server
	Name     string // database name, like registry_dev
	Role     string // role/username for connecting to the database
	PassFile string `yaml:"pass-file"` // path of the password file
}

// NewPool instantiates a new database connection pool based on the
// connection information which are stored in d instance.
func (d Database) NewPool(ctx context.Context) (*postgres.Pool, error) {
	connURL := d.URL
	if connURL == "" {
		pass, err := os.ReadFile(d.PassFile)
		if err != nil {
			return nil, fmt.Errorf("reading pass-file: %w", err)
		}
		u := url.URL{
			Scheme: "postgresql",
			User:   url.UserPassword(d.Role, string(pass)),
			Host:   fmt.Sprintf("%s:%d", d.Host, d.Port),
			Path:   d.Name,
		}
		connURL = u.String()
	}
	p, err := postgres.NewPool(ctx, connURL)
	if err != nil {
		return nil, fmt.Errorf("pool creation: %w", err)
	}
	return p, nil
}

// Gin contains the gin-gonic related configuration settings.
type Gin struct {
	Logger   bool   // Whether to register the gin.Logger() middleware
	Recovery bool   // Whether to register the gin.Recovery() middleware
	Addr     string // listen address, like :8080
}

// Auth contains the bearer-token authentication settings. When
// enabled, every request must carry an Authorization header with a
// token matching the stored scram hash; the plaintext token itself is
// never written to the configuration file. The regweb token hash
// command can be used in order to generate the hash string.
type Auth struct {
	Enabled   bool
	TokenHash string `yaml:"token-hash"`
}

// CORS contains the cross-origin resource sharing settings. An empty
// origins list disables the CORS middleware entirely.
type CORS struct {
	Origins []string
}

// NewEngine instantiates a new gin-gonic engine instance based on
// the c settings, registering the recovery, logging, CORS, and
// bearer-token authentication middlewares as configured.
func (c *Config) NewEngine() (*gin.Engine, error) {
	middlewares := make([]gin.HandlerFunc, 0, 4)
	if c.Gin.Logger {
		middlewares = append(middlewares, gin.Logger())
	}
	if c.Gin.Recovery {
		middlewares = append(middlewares, gin.Recovery())
	}
	if len(c.CORS.Origins) > 0 {
		middlewares = append(
			middlewares, middleware.CORS(c.CORS.Origins),
		)
	}
	if c.Auth.Enabled {
		auth, err := middleware.BearerToken(c.Auth.TokenHash)
		if err != nil {
			return nil, fmt.Errorf("auth middleware: %w", err)
		}
		middlewares = append(middlewares, auth)
	}
	return gin.New(middlewares...), nil
}

// Load function loads, validates, and normalizes the configuration
// file and returns its settings as an instance of the Config struct.
// Environment overrides are applied after the file is parsed and
// before the validation phase.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	c := &Config{}
	if err = yaml.Unmarshal(data, c); err != nil {
		return nil, fmt.Errorf("unmarshalling yaml: %w", err)
	}
	if err = c.applyEnv(); err != nil {
		return nil, fmt.Errorf("applying env overrides: %w", err)
	}
	if err = c.ValidateAndNormalize(); err != nil {
		return nil, fmt.Errorf("validating configs: %w", err)
	}
	return c, nil
}

// applyEnv parses the recognized environment variables and overrides
// the corresponding settings with any provided values.
func (c *Config) applyEnv() error {
	var ov envOverrides
	if err := env.Parse(&ov); err != nil {
		return err
	}
	if ov.DatabaseURL != "" {
		c.Database.URL = ov.DatabaseURL
	}
	if ov.Addr != "" {
		c.Gin.Addr = ":" + ov.Addr
	}
	if ov.AuthEnabled != nil {
		c.Auth.Enabled = *ov.AuthEnabled
	}
	if ov.AuthTokenHash != "" {
		c.Auth.TokenHash = ov.AuthTokenHash
	}
	if len(ov.CORSOrigins) > 0 {
		c.CORS.Origins = ov.CORSOrigins
	}
	return nil
}

// ValidateAndNormalize validates the configuration settings and
// fills the missing optional items with their default values.
func (c *Config) ValidateAndNormalize() error {
	if c.Database.URL == "" {
		switch {
		case c.Database.Host == "":
			return errors.New("database.host is required")
		case c.Database.Port <= 0 || c.Database.Port > 65535:
			return fmt.Errorf(
				"database.port (%d) is out of range",
				c.Database.Port,
			)
		case c.Database.Name == "":
			return errors.New("database.name is required")
		case c.Database.Role == "":
			return errors.New("database.role is required")
		case c.Database.PassFile == "":
			return errors.New("database.pass-file is required")
		}
	}
	if c.Gin.Addr == "" {
		c.Gin.Addr = ":8080"
	}
	if c.Auth.Enabled && c.Auth.TokenHash == "" {
		return errors.New(
			"auth.token-hash is required when auth is enabled",
		)
	}
	return nil
}
