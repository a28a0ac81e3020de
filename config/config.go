// Package config loads the service configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config is built once at startup and handed to every component that needs it.
type Config struct {
	Port string `envconfig:"PORT" default:"8080"`

	MongoURI          string `envconfig:"MONGO_URI" required:"true"`
	MongoDatabase     string `envconfig:"MONGO_DATABASE" default:"wayfarer"`
	MongoTransactions bool   `envconfig:"MONGO_TRANSACTIONS" default:"false"`

	// Redis caching is disabled when RedisURL is empty.
	RedisURL      string        `envconfig:"REDIS_URL" default:""`
	RedisPassword string        `envconfig:"REDIS_PASSWORD" default:""`
	CacheTTL      time.Duration `envconfig:"CACHE_TTL" default:"10m"`

	GeminiAPIKey           string        `envconfig:"GEMINI_API_KEY" required:"true"`
	GeminiModel            string        `envconfig:"GEMINI_MODEL" default:"gemini-2.0-flash"`
	GenerationTimeout      time.Duration `envconfig:"GENERATION_TIMEOUT" default:"60s"`
	GenerationRetryBackoff time.Duration `envconfig:"GENERATION_RETRY_BACKOFF" default:"2s"`

	MapsAPIKey     string `envconfig:"MAPS_API_KEY" required:"true"`
	MapsBaseURL    string `envconfig:"MAPS_BASE_URL" default:"https://maps.googleapis.com/maps/api"`
	WeatherAPIKey  string `envconfig:"WEATHER_API_KEY" required:"true"`
	WeatherBaseURL string `envconfig:"WEATHER_BASE_URL" default:"https://api.openweathermap.org/data/2.5"`

	// PublicBaseURL prefixes the plan links printed on exported itineraries.
	PublicBaseURL string `envconfig:"PUBLIC_BASE_URL" default:"http://localhost:8080"`

	SuggestionRatePerMinute int `envconfig:"SUGGESTION_RATE_PER_MINUTE" default:"6"`

	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
	LogPretty bool   `envconfig:"LOG_PRETTY" default:"false"`
}

// Load reads .env when present, then the process environment. A missing
// required variable is an error.
func Load() (*Config, error) {
	// a missing .env is fine; the environment may already be populated
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment variables: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values envconfig cannot express.
func (c *Config) Validate() error {
	var errs []error
	for key, v := range map[string]string{
		"MONGO_URI":       c.MongoURI,
		"GEMINI_API_KEY":  c.GeminiAPIKey,
		"MAPS_API_KEY":    c.MapsAPIKey,
		"WEATHER_API_KEY": c.WeatherAPIKey,
	} {
		if strings.TrimSpace(v) == "" {
			errs = append(errs, fmt.Errorf("%s is required", key))
		}
	}
	if c.GenerationTimeout <= 0 {
		errs = append(errs, errors.New("GENERATION_TIMEOUT must be positive"))
	}
	if c.GenerationRetryBackoff < 0 {
		errs = append(errs, errors.New("GENERATION_RETRY_BACKOFF must not be negative"))
	}
	if c.CacheTTL <= 0 {
		errs = append(errs, errors.New("CACHE_TTL must be positive"))
	}
	if c.SuggestionRatePerMinute <= 0 {
		errs = append(errs, errors.New("SUGGESTION_RATE_PER_MINUTE must be positive"))
	}
	if c.MongoURI != "" && !strings.HasPrefix(c.MongoURI, "mongodb://") && !strings.HasPrefix(c.MongoURI, "mongodb+srv://") {
		errs = append(errs, fmt.Errorf("MONGO_URI has unsupported scheme: %q", c.MongoURI))
	}
	return errors.Join(errs...)
}

// Addr is the listen address derived from Port.
func (c *Config) Addr() string {
	if strings.HasPrefix(c.Port, ":") {
		return c.Port
	}
	return ":" + c.Port
}
