package config

import (
	"fmt"
	"time"

	"github.com/dmitrymomot/talktime/pkg/environment"
)

// Storage backends.
const (
	BackendPostgres = "postgres"
	BackendMongo    = "mongo"
	BackendRedis    = "redis"
	BackendMemory   = "memory"
)

// App is the service configuration. Connection settings for each backend
// live in their own packages and are loaded only when selected.
type App struct {
	Env                string        `env:"APP_ENV" envDefault:"development"`
	ServiceName        string        `env:"SERVICE_NAME" envDefault:"talktime"`
	LogLevel           string        `env:"LOG_LEVEL" envDefault:"info"`
	Timezone           string        `env:"USAGE_TIMEZONE" envDefault:"UTC"`
	LedgerBackend      string        `env:"LEDGER_BACKEND" envDefault:"postgres"`
	SectionBackend     string        `env:"SECTION_BACKEND"`
	SessionBackend     string        `env:"SESSION_BACKEND" envDefault:"redis"`
	SessionTTL         time.Duration `env:"SESSION_TTL" envDefault:"6h"`
	MaxSessionDuration time.Duration `env:"MAX_SESSION_DURATION" envDefault:"4h"`
	MongoDatabase      string        `env:"MONGODB_DATABASE" envDefault:"talktime"`
}

// Validate reports the first invalid setting.
func (a App) Validate() error {
	if _, err := environment.Parse(a.Env); err != nil {
		return fmt.Errorf("%w: APP_ENV %q", ErrInvalidConfig, a.Env)
	}
	if _, err := time.LoadLocation(a.Timezone); err != nil {
		return fmt.Errorf("%w: USAGE_TIMEZONE %q", ErrInvalidConfig, a.Timezone)
	}
	switch a.LedgerBackend {
	case BackendPostgres, BackendMongo, BackendMemory:
	default:
		return fmt.Errorf("%w: LEDGER_BACKEND %q", ErrInvalidConfig, a.LedgerBackend)
	}
	switch a.SectionBackend {
	case "", a.LedgerBackend, BackendRedis, BackendMemory:
	default:
		return fmt.Errorf("%w: SECTION_BACKEND %q must be empty, %q, %q or %q",
			ErrInvalidConfig, a.SectionBackend, a.LedgerBackend, BackendRedis, BackendMemory)
	}
	switch a.SessionBackend {
	case BackendRedis, BackendMemory:
	default:
		return fmt.Errorf("%w: SESSION_BACKEND %q", ErrInvalidConfig, a.SessionBackend)
	}
	if a.SessionTTL <= 0 || a.MaxSessionDuration <= 0 {
		return fmt.Errorf("%w: session durations must be positive", ErrInvalidConfig)
	}
	if a.MaxSessionDuration > a.SessionTTL {
		return fmt.Errorf("%w: MAX_SESSION_DURATION exceeds SESSION_TTL", ErrInvalidConfig)
	}
	if a.LedgerBackend == BackendMongo && a.MongoDatabase == "" {
		return fmt.Errorf("%w: MONGODB_DATABASE is required", ErrInvalidConfig)
	}
	return nil
}

// Environment returns the parsed APP_ENV, development when invalid.
func (a App) Environment() environment.Environment {
	env, err := environment.Parse(a.Env)
	if err != nil {
		return environment.Development
	}
	return env
}

// Location returns the time zone that decides where a usage day starts.
func (a App) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(a.Timezone)
	if err != nil {
		return nil, fmt.Errorf("%w: USAGE_TIMEZONE %q", ErrInvalidConfig, a.Timezone)
	}
	return loc, nil
}

// Sections returns the backend for role-play section counters.
func (a App) Sections() string {
	if a.SectionBackend == "" {
		return a.LedgerBackend
	}
	return a.SectionBackend
}

// Uses reports whether any store is configured on backend.
func (a App) Uses(backend string) bool {
	return a.LedgerBackend == backend || a.Sections() == backend || a.SessionBackend == backend
}
