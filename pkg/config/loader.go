// Package config loads typed configuration from environment variables and
// an optional .env file.
package config

import (
	"errors"
	"fmt"
	"reflect"
	"sync"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

var (
	ErrParsingConfig = errors.New("config.errors.parsing_failed")
	ErrInvalidConfig = errors.New("config.errors.invalid")
	ErrNilPointer    = errors.New("config.errors.nil_pointer")
)

var (
	dotenvOnce sync.Once

	cacheMu sync.Mutex
	cache   = map[reflect.Type]any{}
)

// Load fills v from the process environment. The .env file in the working
// directory is read once if present. Each config type is parsed once and
// served from cache afterwards.
func Load[T any](v *T) error {
	if v == nil {
		return ErrNilPointer
	}
	dotenvOnce.Do(func() {
		// A missing .env file is fine.
		_ = godotenv.Load()
	})

	key := reflect.TypeFor[T]()

	cacheMu.Lock()
	defer cacheMu.Unlock()

	if cached, ok := cache[key]; ok {
		*v = cached.(T)
		return nil
	}
	if err := env.Parse(v); err != nil {
		return errors.Join(ErrParsingConfig, err)
	}
	cache[key] = *v
	return nil
}

// MustLoad panics when Load fails.
func MustLoad[T any](v *T) {
	if err := Load(v); err != nil {
		panic(fmt.Sprintf("config: %v", err))
	}
}

// Parse fills v from environ only, bypassing the process environment and
// the cache.
func Parse[T any](v *T, environ map[string]string) error {
	if v == nil {
		return ErrNilPointer
	}
	if err := env.ParseWithOptions(v, env.Options{Environment: environ}); err != nil {
		return errors.Join(ErrParsingConfig, err)
	}
	return nil
}

// Reset drops cached configs.
func Reset() {
	cacheMu.Lock()
	defer cacheMu.Unlock()
	clear(cache)
}
