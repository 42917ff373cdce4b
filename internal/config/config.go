// Package config provides application configuration loading and management.
package config

import (
	"errors"
	"fmt"
	"log"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// DefaultEmulatorSecret is the signing secret used by the local emulator when none is configured.
const DefaultEmulatorSecret = "feedsync-emulator-secret-change-me"

// Config holds application configuration values loaded from file or environment variables.
type Config struct {
	Endpoint            string `mapstructure:"APPWRITE_ENDPOINT"`
	ProjectID           string `mapstructure:"APPWRITE_PROJECT_ID"`
	DatabaseID          string `mapstructure:"DATABASE_ID"`
	PostCollectionID    string `mapstructure:"COLLECTION_ID_POST"`
	CommentCollectionID string `mapstructure:"COLLECTION_ID_COMMENT"`
	BucketID            string `mapstructure:"BUCKET_ID"`

	SessionStore string        `mapstructure:"SESSION_STORE"`
	SessionFile  string        `mapstructure:"SESSION_FILE"`
	RedisURL     string        `mapstructure:"REDIS_URL"`
	HTTPTimeout  time.Duration `mapstructure:"HTTP_TIMEOUT"`
	PageSize     int           `mapstructure:"PAGE_SIZE"`

	ImageMaxUploadSizeMB int `mapstructure:"IMAGE_MAX_UPLOAD_MB"`
	ImageMaxDimension    int `mapstructure:"IMAGE_MAX_DIMENSION"`

	LogLevel string `mapstructure:"LOG_LEVEL"`
	Env      string `mapstructure:"APP_ENV"`

	TracingEnabled      bool    `mapstructure:"TRACING_ENABLED"`
	TracingExporter     string  `mapstructure:"TRACING_EXPORTER"`
	OTLPEndpoint        string  `mapstructure:"OTLP_ENDPOINT"`
	TracingSamplerRatio float64 `mapstructure:"TRACING_SAMPLER_RATIO"`

	EmulatorPort      string `mapstructure:"EMULATOR_PORT"`
	EmulatorDBDriver  string `mapstructure:"EMULATOR_DB_DRIVER"`
	EmulatorDBDSN     string `mapstructure:"EMULATOR_DB_DSN"`
	EmulatorUploadDir string `mapstructure:"EMULATOR_UPLOAD_DIR"`
	EmulatorJWTSecret string `mapstructure:"EMULATOR_JWT_SECRET"`
}

// LoadConfig loads application configuration from .env, config files and environment variables.
func LoadConfig() (*Config, error) {
	// .env is optional; existing environment variables win over it.
	_ = godotenv.Load()

	viper.AddConfigPath(".")
	viper.AddConfigPath("..")
	if dir := userConfigDir(); dir != "" {
		viper.AddConfigPath(dir)
	}
	viper.SetConfigName("config")
	viper.SetConfigType("yml")
	viper.AutomaticEnv()

	// The base config file is optional.
	_ = viper.ReadInConfig()

	env := viper.GetString("APP_ENV")
	if env != "" && env != "development" {
		viper.SetConfigName("config." + env)
		if err := viper.MergeInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read profile config 'config.%s.yml': %w", env, err)
			}
		} else {
			log.Printf("Loaded profile-specific configuration: config.%s.yml", env)
		}
	}

	setDefaults()

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}

	config.normalize()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

func setDefaults() {
	viper.SetDefault("APPWRITE_ENDPOINT", "http://localhost:8390/v1")
	viper.SetDefault("APPWRITE_PROJECT_ID", "feedsync")
	viper.SetDefault("DATABASE_ID", "feed")
	viper.SetDefault("COLLECTION_ID_POST", "posts")
	viper.SetDefault("COLLECTION_ID_COMMENT", "comments")
	viper.SetDefault("BUCKET_ID", "post-images")
	viper.SetDefault("SESSION_STORE", "file")
	viper.SetDefault("SESSION_FILE", filepath.Join(userConfigDir(), "session.yml"))
	viper.SetDefault("REDIS_URL", "localhost:6379")
	viper.SetDefault("HTTP_TIMEOUT", "30s")
	viper.SetDefault("PAGE_SIZE", 100)
	viper.SetDefault("IMAGE_MAX_UPLOAD_MB", 10)
	viper.SetDefault("IMAGE_MAX_DIMENSION", 2048)
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("APP_ENV", "development")
	viper.SetDefault("TRACING_ENABLED", false)
	viper.SetDefault("TRACING_EXPORTER", "stdout")
	viper.SetDefault("OTLP_ENDPOINT", "localhost:4318")
	viper.SetDefault("TRACING_SAMPLER_RATIO", 1.0)
	viper.SetDefault("EMULATOR_PORT", "8390")
	viper.SetDefault("EMULATOR_DB_DRIVER", "sqlite")
	viper.SetDefault("EMULATOR_DB_DSN", "feedsync-emulator.db")
	viper.SetDefault("EMULATOR_UPLOAD_DIR", filepath.Join(os.TempDir(), "feedsync", "uploads"))
	viper.SetDefault("EMULATOR_JWT_SECRET", DefaultEmulatorSecret)
}

func userConfigDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "feedsync")
}

func (c *Config) normalize() {
	c.Endpoint = strings.TrimRight(strings.TrimSpace(c.Endpoint), "/")
	c.SessionStore = strings.ToLower(strings.TrimSpace(c.SessionStore))
	c.EmulatorDBDriver = strings.ToLower(strings.TrimSpace(c.EmulatorDBDriver))
	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))
	c.TracingExporter = strings.ToLower(strings.TrimSpace(c.TracingExporter))
}

// IsProduction reports whether the configured environment is a production profile.
func (c *Config) IsProduction() bool {
	return c.Env == "production" || c.Env == "prod"
}

// Validate ensures that required configuration values are present and well-formed.
func (c *Config) Validate() error {
	required := []struct {
		key, val string
	}{
		{"APPWRITE_ENDPOINT", c.Endpoint},
		{"APPWRITE_PROJECT_ID", c.ProjectID},
		{"DATABASE_ID", c.DatabaseID},
		{"COLLECTION_ID_POST", c.PostCollectionID},
		{"COLLECTION_ID_COMMENT", c.CommentCollectionID},
		{"BUCKET_ID", c.BucketID},
	}
	for _, r := range required {
		if strings.TrimSpace(r.val) == "" {
			return fmt.Errorf("%s is required", r.key)
		}
	}

	u, err := url.Parse(c.Endpoint)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return fmt.Errorf("APPWRITE_ENDPOINT must be an absolute http(s) URL, got %q", c.Endpoint)
	}

	switch c.SessionStore {
	case "file", "redis":
	default:
		return fmt.Errorf("SESSION_STORE must be 'file' or 'redis', got %q", c.SessionStore)
	}
	if c.SessionStore == "file" && c.SessionFile == "" {
		return errors.New("SESSION_FILE is required when SESSION_STORE is 'file'")
	}

	if c.PageSize <= 0 {
		return errors.New("PAGE_SIZE must be positive")
	}
	if c.ImageMaxUploadSizeMB <= 0 {
		return errors.New("IMAGE_MAX_UPLOAD_MB must be positive")
	}

	if c.TracingEnabled {
		switch c.TracingExporter {
		case "stdout", "otlp":
		default:
			return fmt.Errorf("TRACING_EXPORTER must be 'stdout' or 'otlp', got %q", c.TracingExporter)
		}
		if c.TracingSamplerRatio < 0 || c.TracingSamplerRatio > 1 {
			return fmt.Errorf("TRACING_SAMPLER_RATIO must be within [0, 1], got %v", c.TracingSamplerRatio)
		}
	}

	switch c.EmulatorDBDriver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("EMULATOR_DB_DRIVER must be 'sqlite' or 'postgres', got %q", c.EmulatorDBDriver)
	}

	if c.IsProduction() {
		if u.Scheme != "https" {
			return errors.New("APPWRITE_ENDPOINT must use https in production")
		}
		if c.EmulatorJWTSecret == DefaultEmulatorSecret {
			log.Println("WARNING: EMULATOR_JWT_SECRET uses the default value; never expose the emulator in production.")
		}
	}

	return nil
}
