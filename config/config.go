// Package config loads the server settings from .env files, the process
// environment, and an optional YAML file.
//
// Sources are consulted in this order, later ones taking precedence:
// defaults, the YAML file, and finally environment variables prefixed with
// WIRING_ (e.g., WIRING_CACHE_SIZE). Variables from .env files are loaded
// into the environment first but never override variables that are already
// set.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// DefaultPrefix is prepended to every environment variable name.
const DefaultPrefix = "WIRING"

// Config holds the settings of the wiring server.
type Config struct {
	// Addr is the TCP address the HTTP server listens on.
	Addr string `mapstructure:"addr" validate:"required"`
	// LogLevel is the minimum level of emitted log records.
	LogLevel string `mapstructure:"log_level" validate:"required"`
	// LogFormat is either "text" or "json".
	LogFormat string `mapstructure:"log_format" validate:"oneof=text json"`
	// CacheSize is the capacity of the value cache.
	CacheSize int `mapstructure:"cache_size" validate:"gte=1"`
	// Eager compiles all route plans before the server starts accepting
	// requests.
	Eager bool `mapstructure:"eager"`
	// JWTSecret is the HMAC key used to verify bearer tokens. Token based
	// authentication is disabled if empty.
	JWTSecret string `mapstructure:"jwt_secret"`
	// ShutdownTimeout bounds the graceful shutdown.
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"gt=0"`
}

var defaults = map[string]any{
	"addr":             ":8080",
	"log_level":        "info",
	"log_format":       "text",
	"cache_size":       256,
	"eager":            true,
	"jwt_secret":       "",
	"shutdown_timeout": 10 * time.Second,
}

type options struct {
	prefix   string
	file     string
	envFiles []string
}

// Option customizes Load.
type Option func(*options)

// WithPrefix overrides DefaultPrefix. An empty value is ignored.
func WithPrefix(prefix string) Option {
	return func(o *options) {
		if prefix != "" {
			o.prefix = prefix
		}
	}
}

// WithFile reads settings from the YAML file at path. The file must exist.
func WithFile(path string) Option {
	return func(o *options) {
		o.file = path
	}
}

// WithEnvFiles loads the given .env files instead of the default ".env".
// Unlike the default, explicitly named files must exist.
func WithEnvFiles(paths ...string) Option {
	return func(o *options) {
		o.envFiles = append(o.envFiles, paths...)
	}
}

// Load assembles the configuration and validates it.
func Load(opts ...Option) (*Config, error) {
	o := options{prefix: DefaultPrefix}
	for _, opt := range opts {
		opt(&o)
	}

	if len(o.envFiles) == 0 {
		if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load .env file: %w", err)
		}
	} else if err := godotenv.Load(o.envFiles...); err != nil {
		return nil, fmt.Errorf("failed to load env files: %w", err)
	}

	v := viper.New()
	for k, d := range defaults {
		v.SetDefault(k, d)
	}
	v.SetEnvPrefix(o.prefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if o.file != "" {
		v.SetConfigFile(o.file)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks cfg for invalid settings.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		var ve validator.ValidationErrors
		if errors.As(err, &ve) {
			msgs := make([]string, len(ve))
			for i, fe := range ve {
				msgs[i] = fmt.Sprintf("%s failed on %q", fe.Field(), fe.Tag())
			}
			return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}
