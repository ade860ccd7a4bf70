// Package config populates configuration structs from environment variables.
//
// Struct fields are described with caarlos0/env tags:
//
//	type StripeConfig struct {
//		APIKey string `env:"STRIPE_API_KEY,required"`
//	}
//
// A .env file in the working directory is read once before the first parse,
// values already present in the process environment take precedence.
package config

import (
	"errors"
	"sync"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

var (
	ErrParsingConfig = errors.New("failed to parse environment variables into config")
	ErrNilPointer    = errors.New("nil pointer provided to config loader")
	ErrEnvFile       = errors.New("failed to load env file")
)

var dotenvOnce sync.Once

// Load parses environment variables into v.
func Load[T any](v *T) error {
	dotenvOnce.Do(func() {
		// A missing .env is normal outside local development.
		_ = godotenv.Load()
	})
	if v == nil {
		return ErrNilPointer
	}
	if err := env.Parse(v); err != nil {
		return errors.Join(ErrParsingConfig, err)
	}
	return nil
}

// LoadFiles reads the given env files into the process environment without
// overriding variables that are already set. Call it before Load.
func LoadFiles(paths ...string) error {
	if len(paths) == 0 {
		return nil
	}
	if err := godotenv.Load(paths...); err != nil {
		return errors.Join(ErrEnvFile, err)
	}
	return nil
}
