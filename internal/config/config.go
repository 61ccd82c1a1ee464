// Package config loads application configuration from defaults, a YAML file and the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"
	_ "time/tzdata" // reporting time zones on images without zoneinfo

	"github.com/bissquit/hotel-admin/internal/pkg/password"
	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix prefixes every environment override. Levels are separated by a
// double underscore: HOTEL_DATABASE__URL sets database.url.
const EnvPrefix = "HOTEL_"

// DefaultPath is used when CONFIG_PATH is not set.
const DefaultPath = "config.yaml"

// Config is the application configuration.
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Database  DatabaseConfig  `koanf:"database"`
	Log       LogConfig       `koanf:"log"`
	JWT       JWTConfig       `koanf:"jwt"`
	CORS      CORSConfig      `koanf:"cors"`
	RateLimit RateLimitConfig `koanf:"rate_limit"`
	Reporting ReportingConfig `koanf:"reporting"`
	Admin     AdminConfig     `koanf:"admin"`
	Password  PasswordConfig  `koanf:"password"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host              string        `koanf:"host"`
	Port              string        `koanf:"port" validate:"required"`
	MetricsPort       string        `koanf:"metrics_port" validate:"required"`
	ReadTimeout       time.Duration `koanf:"read_timeout"`
	ReadHeaderTimeout time.Duration `koanf:"read_header_timeout"`
	WriteTimeout      time.Duration `koanf:"write_timeout"`
	IdleTimeout       time.Duration `koanf:"idle_timeout"`
}

// DatabaseConfig contains PostgreSQL settings.
type DatabaseConfig struct {
	URL             string        `koanf:"url" validate:"required"`
	MaxOpenConns    int           `koanf:"max_open_conns" validate:"gte=0"`
	MaxIdleConns    int           `koanf:"max_idle_conns" validate:"gte=0"`
	ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime"`
	ConnectTimeout  time.Duration `koanf:"connect_timeout" validate:"gt=0"`
	ConnectAttempts int           `koanf:"connect_attempts" validate:"gte=1"`
	AutoMigrate     bool          `koanf:"auto_migrate"`
	MigrationsPath  string        `koanf:"migrations_path"`
}

// LogConfig contains logger settings.
type LogConfig struct {
	Level  string `koanf:"level" validate:"oneof=debug info warn error"`
	Format string `koanf:"format" validate:"oneof=text json"`
}

// JWTConfig contains access token settings.
type JWTConfig struct {
	SecretKey     string        `koanf:"secret_key" validate:"required"`
	Issuer        string        `koanf:"issuer"`
	TokenDuration time.Duration `koanf:"token_duration" validate:"gt=0"`
}

// CORSConfig contains CORS settings.
type CORSConfig struct {
	AllowedOrigins []string `koanf:"allowed_origins"`
}

// RateLimitConfig throttles login and registration per client IP.
type RateLimitConfig struct {
	Enabled bool          `koanf:"enabled"`
	RPS     float64       `koanf:"rps" validate:"gt=0"`
	Burst   int           `koanf:"burst" validate:"gte=1"`
	TTL     time.Duration `koanf:"ttl" validate:"gt=0"`
}

// ReportingConfig contains registration statistics settings.
type ReportingConfig struct {
	Timezone string `koanf:"timezone" validate:"required"`
}

// Location returns the time zone named by Timezone.
func (c ReportingConfig) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load reporting timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// AdminConfig contains staff user management settings.
type AdminConfig struct {
	// ResetPassword, when set, is assigned on every password reset.
	ResetPassword           string `koanf:"reset_password" validate:"omitempty,min=6,max=72"`
	GeneratedPasswordLength int    `koanf:"generated_password_length" validate:"gte=8,lte=72"`
	BootstrapLogin          string `koanf:"bootstrap_login"`
	BootstrapPassword       string `koanf:"bootstrap_password" validate:"required_with=BootstrapLogin,max=72"`
}

// PasswordConfig contains password hashing settings.
type PasswordConfig struct {
	BcryptCost int `koanf:"bcrypt_cost" validate:"gte=4,lte=31"`
}

// Default returns the configuration used before file and environment overrides.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:              "0.0.0.0",
			Port:              "8080",
			MetricsPort:       "9090",
			ReadTimeout:       15 * time.Second,
			ReadHeaderTimeout: 5 * time.Second,
			WriteTimeout:      15 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
		Database: DatabaseConfig{
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
			ConnectTimeout:  30 * time.Second,
			ConnectAttempts: 5,
			MigrationsPath:  "file://migrations",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		JWT: JWTConfig{
			Issuer:        "hotel-admin",
			TokenDuration: 12 * time.Hour,
		},
		RateLimit: RateLimitConfig{
			Enabled: true,
			RPS:     1,
			Burst:   5,
			TTL:     10 * time.Minute,
		},
		Reporting: ReportingConfig{
			Timezone: "UTC",
		},
		Admin: AdminConfig{
			GeneratedPasswordLength: 12,
		},
		Password: PasswordConfig{
			BcryptCost: 10,
		},
	}
}

// Load reads configuration from path and the environment. A missing file is
// not an error; defaults and environment variables still apply.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("load config file: %w", err)
			}
		}
	}

	if err := k.Load(env.ProviderWithValue(EnvPrefix, ".", envKeyValue), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	cfg := Default()
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadFromEnv loads configuration from the file named by CONFIG_PATH.
func LoadFromEnv() (*Config, error) {
	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = DefaultPath
	}
	return Load(path)
}

// envKeyValue maps HOTEL_RATE_LIMIT__RPS to rate_limit.rps and splits list values.
func envKeyValue(key, value string) (string, any) {
	key = strings.ToLower(strings.TrimPrefix(key, EnvPrefix))
	key = strings.ReplaceAll(key, "__", ".")

	if key == "cors.allowed_origins" {
		parts := strings.Split(value, ",")
		origins := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				origins = append(origins, p)
			}
		}
		return key, origins
	}

	return key, value
}

// Validate checks field constraints and cross-field rules.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if _, err := c.Reporting.Location(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	for key, value := range map[string]string{
		"admin.reset_password":     c.Admin.ResetPassword,
		"admin.bootstrap_password": c.Admin.BootstrapPassword,
	} {
		if len(value) > password.MaxLength {
			return fmt.Errorf("invalid config: %s must not exceed %d bytes", key, password.MaxLength)
		}
	}
	if c.Database.AutoMigrate && c.Database.MigrationsPath == "" {
		return errors.New("invalid config: database.migrations_path is required when auto_migrate is enabled")
	}
	return nil
}
