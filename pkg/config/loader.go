package config

import (
	"fmt"

	"github.com/caarlos0/env/v10"
)

// Environment names recognized across the service configuration.
const (
	EnvDevelopment = "development"
	EnvStaging     = "staging"
	EnvProduction  = "production"
)

// Load parses environment variables into the provided struct.
// The struct should use `env` tags to define mappings.
//
// Example:
//
//	type Config struct {
//	    Port      int           `env:"HTTP_PORT" envDefault:"8080"`
//	    AccessTTL time.Duration `env:"ACCESS_TOKEN_TTL" envDefault:"720h"`
//	}
func Load(cfg any) error {
	if err := env.Parse(cfg); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}
	return nil
}

// IsDevelopment reports whether the given environment name allows
// development-only defaults such as the placeholder JWT secret.
func IsDevelopment(environment string) bool {
	return environment == EnvDevelopment || environment == ""
}
