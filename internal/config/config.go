package config

import (
	"errors"
	"fmt"
	"os"
	"time"
)

var ErrMissingRequiredValue = errors.New("missing required value")
var ErrInvalidValue = errors.New("invalid value")

type environment string

const (
	production  environment = "production"
	staging     environment = "staging"
	development environment = "development"
)

const (
	defaultPort         = "8123"
	defaultRetryBackoff = 500 * time.Millisecond
)

type Config struct {
	cloudSQLUnixSocketPath string
	dBPassword             string
	dBUsername             string
	sentryDSN              string
	wargamingApplicationID string
	gcpProject             string
	port                   string
	statsRetryBackoff      time.Duration
	inMemoryStorage        bool
	env                    environment
}

func (c *Config) CloudSQLUnixSocketPath() string {
	return c.cloudSQLUnixSocketPath
}

func (c *Config) DBPassword() string {
	return c.dBPassword
}

func (c *Config) DBUsername() string {
	return c.dBUsername
}

func (c *Config) SentryDSN() string {
	return c.sentryDSN
}

func (c *Config) WargamingApplicationID() string {
	return c.wargamingApplicationID
}

// Optional, enables trace correlation in Google Cloud Logging
func (c *Config) GCPProject() string {
	return c.gcpProject
}

func (c *Config) Port() string {
	return c.port
}

// Pause between attempts of a retried stats request
func (c *Config) StatsRetryBackoff() time.Duration {
	return c.statsRetryBackoff
}

// Development only: keep last snapshots in memory instead of postgres
func (c *Config) InMemoryStorage() bool {
	return c.inMemoryStorage
}

func (c *Config) IsProduction() bool {
	return c.env == production
}

func (c *Config) IsStaging() bool {
	return c.env == staging
}

func (c *Config) IsDevelopment() bool {
	return c.env == development
}

// Return a string representation suitable for logging etc
func (c *Config) NonSensitiveString() string {
	return fmt.Sprintf("Config{env: %s, port: %s, statsRetryBackoff: %s, inMemoryStorage: %t, ...}", string(c.env), c.port, c.statsRetryBackoff, c.inMemoryStorage)
}

func ConfigFromEnv() (Config, error) {
	missingKey := func(key string) (Config, error) {
		return Config{}, fmt.Errorf("%w: %s", ErrMissingRequiredValue, key)
	}

	var env environment
	rawEnv, ok := os.LookupEnv("BLITZSTATS_ENVIRONMENT")
	if !ok {
		return missingKey("BLITZSTATS_ENVIRONMENT")
	}
	switch rawEnv {
	case "production":
		env = production
	case "staging":
		env = staging
	case "development":
		env = development
	default:
		return Config{}, fmt.Errorf("%w: BLITZSTATS_ENVIRONMENT (%s)", ErrInvalidValue, rawEnv)
	}
	if string(env) == "" {
		panic("logic error: env is empty")
	}

	cloudSQLUnixSocketPath := os.Getenv("CLOUDSQL_UNIX_SOCKET")
	dbPassword := os.Getenv("DB_PASSWORD")
	dbUsername := os.Getenv("DB_USERNAME")
	sentryDSN := os.Getenv("SENTRY_DSN")
	wargamingApplicationID := os.Getenv("WG_APPLICATION_ID")
	gcpProject := os.Getenv("GOOGLE_CLOUD_PROJECT")

	port := os.Getenv("PORT")
	if port == "" {
		port = defaultPort
	}

	statsRetryBackoff := defaultRetryBackoff
	if rawBackoff := os.Getenv("STATS_RETRY_BACKOFF"); rawBackoff != "" {
		parsed, err := time.ParseDuration(rawBackoff)
		if err != nil || parsed <= 0 {
			return Config{}, fmt.Errorf("%w: STATS_RETRY_BACKOFF (%s)", ErrInvalidValue, rawBackoff)
		}
		statsRetryBackoff = parsed
	}

	inMemoryStorage := false
	switch rawStorage := os.Getenv("BLITZSTATS_STORAGE"); rawStorage {
	case "", "postgres":
	case "memory":
		if env != development {
			return Config{}, fmt.Errorf("%w: BLITZSTATS_STORAGE (memory is only allowed in development)", ErrInvalidValue)
		}
		inMemoryStorage = true
	default:
		return Config{}, fmt.Errorf("%w: BLITZSTATS_STORAGE (%s)", ErrInvalidValue, rawStorage)
	}

	if env == production || env == staging {
		if cloudSQLUnixSocketPath == "" {
			return missingKey("CLOUDSQL_UNIX_SOCKET")
		}
		if dbUsername == "" {
			return missingKey("DB_USERNAME")
		}
		if dbPassword == "" {
			return missingKey("DB_PASSWORD")
		}
		if sentryDSN == "" {
			return missingKey("SENTRY_DSN")
		}
		if wargamingApplicationID == "" {
			return missingKey("WG_APPLICATION_ID")
		}
	}

	return Config{
		cloudSQLUnixSocketPath: cloudSQLUnixSocketPath,
		dBPassword:             dbPassword,
		dBUsername:             dbUsername,
		sentryDSN:              sentryDSN,
		wargamingApplicationID: wargamingApplicationID,
		gcpProject:             gcpProject,
		port:                   port,
		statsRetryBackoff:      statsRetryBackoff,
		inMemoryStorage:        inMemoryStorage,
		env:                    env,
	}, nil
}
