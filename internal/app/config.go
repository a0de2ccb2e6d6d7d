package app

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/aussiebroadwan/labres/pkg/authsdk"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	APIURL  string `yaml:"api_url"`  // Required: lab API base URL
	AuthURL string `yaml:"auth_url"` // Required: auth service base URL
	APIKey  string `yaml:"api_key"`  // Optional: sent as x-api-key to the auth service

	StoreDriver   string `yaml:"store_driver"`    // Optional: sqlite or memory (default: sqlite)
	DatabaseFile  string `yaml:"db_file"`         // Optional: path to the SQLite file (default: ./labres.db)
	MasterKeyPath string `yaml:"master_key_path"` // Optional: seals stored values when set (or LABRES_MASTER_KEY)

	RefreshInterval time.Duration `yaml:"refresh_interval"` // Optional: token refresh cadence (default: 4m)
	HTTPTimeout     time.Duration `yaml:"http_timeout"`     // Optional: per request timeout (default: 15s)
	RateLimitRPS    int           `yaml:"rate_limit_rps"`   // Optional: outbound requests per second per host, 0 disables
	MetricsFile     string        `yaml:"metrics_file"`     // Optional: write metrics here on exit

	Env       string `yaml:"env"`        // Environment (dev, prod) (default: prod)
	LogLevel  string `yaml:"log_level"`  // Log level (debug, info, warn, error) (default: warn)
	LogFormat string `yaml:"log_format"` // Log format (json, text) (default: text)
}

// LoadConfig reads .env (if present), then the environment, then overlays
// the YAML file at path when path is non-empty.
func LoadConfig(path string) (Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file found, using environment variables")
	}

	cfg := Config{
		APIURL:          os.Getenv("LABRES_API_URL"),
		AuthURL:         os.Getenv("LABRES_AUTH_URL"),
		APIKey:          os.Getenv("LABRES_API_KEY"),
		StoreDriver:     getEnvOrDefault("LABRES_STORE_DRIVER", "sqlite"),
		DatabaseFile:    getEnvOrDefault("LABRES_DB_FILE", "labres.db"),
		MasterKeyPath:   os.Getenv("LABRES_MASTER_KEY_PATH"),
		RefreshInterval: getEnvDurationOrDefault("LABRES_REFRESH_INTERVAL", authsdk.DefaultRefreshInterval),
		HTTPTimeout:     getEnvDurationOrDefault("LABRES_HTTP_TIMEOUT", 15*time.Second),
		RateLimitRPS:    getEnvIntOrDefault("LABRES_RATE_LIMIT_RPS", 0),
		MetricsFile:     os.Getenv("LABRES_METRICS_FILE"),
		Env:             getEnvOrDefault("ENV", "prod"),
		LogLevel:        getEnvOrDefault("LOG_LEVEL", "warn"),
		LogFormat:       getEnvOrDefault("LOG_FORMAT", "text"),
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	return cfg, cfg.Validate()
}

// Validate checks that the configuration is usable.
func (c Config) Validate() error {
	var errs []error
	if c.APIURL == "" {
		errs = append(errs, errors.New("LABRES_API_URL is required"))
	}
	if c.AuthURL == "" {
		errs = append(errs, errors.New("LABRES_AUTH_URL is required"))
	}
	switch c.StoreDriver {
	case "sqlite", "memory":
	default:
		errs = append(errs, fmt.Errorf("unknown store driver %q", c.StoreDriver))
	}
	if c.RefreshInterval <= 0 {
		errs = append(errs, errors.New("refresh interval must be positive"))
	}
	if c.RateLimitRPS < 0 {
		errs = append(errs, errors.New("rate limit must not be negative"))
	}
	return errors.Join(errs...)
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}

	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	// Bare integers are seconds.
	if seconds, err := strconv.Atoi(value); err == nil {
		return time.Duration(seconds) * time.Second
	}

	return defaultValue
}
