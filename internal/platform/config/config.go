package config

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const (
	defaultEnvFile         = ".env"
	defaultPort            = "8080"
	defaultReadTimeout     = 15 * time.Second
	defaultWriteTimeout    = 30 * time.Second
	defaultIdleTimeout     = 120 * time.Second
	defaultBackendURL      = "http://localhost:5000"
	defaultBackendTimeout  = 10 * time.Second
	defaultStorageDriver   = "file"
	defaultStoragePath     = ".nutricart"
	defaultCategory        = "snacks"
	defaultCurrency        = "INR"
	defaultLocale          = "en-IN"
	defaultNotifyDelay     = 3 * time.Second
	defaultUploadMaxBytes  = 5 * 1024 * 1024
	defaultEnvironment     = "local"
	developmentSigningKey  = "nutricart-dev-signing-key"
	minimumSigningKeyBytes = 16
)

// Config captures all runtime configuration organised by concern.
type Config struct {
	Environment string
	Server      ServerConfig
	Backend     BackendConfig
	Storage     StorageConfig
	Catalog     CatalogConfig
	Display     DisplayConfig
	Notify      NotifyConfig
	Upload      UploadConfig
	Session     SessionConfig
}

// ServerConfig configures HTTP server parameters.
type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// BackendConfig points at the upstream catalog/profile backend.
type BackendConfig struct {
	URL     string
	Timeout time.Duration
}

// StorageConfig selects the durable visitor slot.
type StorageConfig struct {
	Driver string
	Path   string
}

// CatalogConfig controls the category registry.
type CatalogConfig struct {
	CategoriesFile  string
	DefaultCategory string
}

// DisplayConfig controls money formatting.
type DisplayConfig struct {
	Currency string
	Locale   string
}

// NotifyConfig controls toast lifetime.
type NotifyConfig struct {
	Delay time.Duration
}

// UploadConfig limits profile image uploads.
type UploadConfig struct {
	MaxBytes int64
}

// SessionConfig holds the cookie signing key.
type SessionConfig struct {
	SigningKey string
}

// IsLocal reports whether the configuration targets a developer machine.
func (c Config) IsLocal() bool {
	return c.Environment == "" || c.Environment == "local" || c.Environment == "dev"
}

// ValidationError is returned when required configuration fields are missing or invalid.
type ValidationError struct {
	fields []string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("config validation failed: missing or invalid fields [%s]", strings.Join(e.fields, ", "))
}

// Fields returns a copy of the missing/invalid field list.
func (e *ValidationError) Fields() []string {
	out := make([]string, len(e.fields))
	copy(out, e.fields)
	return out
}

// Option customises Load behaviour.
type Option func(*loaderOptions)

type loaderOptions struct {
	envFile      string
	envMap       map[string]string
	useSystemEnv bool
}

// WithEnvFile overrides the .env file path used for local overrides.
func WithEnvFile(path string) Option {
	return func(o *loaderOptions) {
		o.envFile = path
	}
}

// WithEnvMap injects an explicit key/value map for environment lookups. Values in the map
// take precedence over system environment variables.
func WithEnvMap(values map[string]string) Option {
	return func(o *loaderOptions) {
		o.envMap = values
	}
}

// WithoutSystemEnv disables reading from os.Getenv, relying only on provided maps and .env files.
func WithoutSystemEnv() Option {
	return func(o *loaderOptions) {
		o.useSystemEnv = false
	}
}

// Load assembles the application configuration by combining defaults, .env overrides and
// environment variables.
func Load(ctx context.Context, opts ...Option) (Config, error) {
	options := loaderOptions{
		envFile:      defaultEnvFile,
		useSystemEnv: true,
	}
	for _, opt := range opts {
		opt(&options)
	}

	dotEnvValues, err := loadDotEnv(options.envFile)
	if err != nil {
		return Config{}, err
	}

	lookup := func(key string) (string, bool) {
		if options.envMap != nil {
			if value, ok := options.envMap[key]; ok {
				return value, true
			}
		}
		if options.useSystemEnv {
			if value, ok := os.LookupEnv(key); ok {
				return value, true
			}
		}
		if dotEnvValues != nil {
			if value, ok := dotEnvValues[key]; ok {
				return value, true
			}
		}
		return "", false
	}

	cfg := Config{
		Environment: strings.ToLower(stringWithDefault(lookup, "NUTRICART_ENV", defaultEnvironment)),
		Server: ServerConfig{
			Port:         stringWithDefault(lookup, "NUTRICART_SERVER_PORT", defaultPort),
			ReadTimeout:  durationWithDefault(lookup, "NUTRICART_SERVER_READ_TIMEOUT", defaultReadTimeout),
			WriteTimeout: durationWithDefault(lookup, "NUTRICART_SERVER_WRITE_TIMEOUT", defaultWriteTimeout),
			IdleTimeout:  durationWithDefault(lookup, "NUTRICART_SERVER_IDLE_TIMEOUT", defaultIdleTimeout),
		},
		Backend: BackendConfig{
			URL:     strings.TrimRight(stringWithDefault(lookup, "NUTRICART_BACKEND_URL", defaultBackendURL), "/"),
			Timeout: durationWithDefault(lookup, "NUTRICART_BACKEND_TIMEOUT", defaultBackendTimeout),
		},
		Storage: StorageConfig{
			Driver: strings.ToLower(stringWithDefault(lookup, "NUTRICART_STORAGE_DRIVER", defaultStorageDriver)),
			Path:   stringWithDefault(lookup, "NUTRICART_STORAGE_PATH", defaultStoragePath),
		},
		Catalog: CatalogConfig{
			CategoriesFile:  stringWithDefault(lookup, "NUTRICART_CATEGORIES_FILE", ""),
			DefaultCategory: strings.ToLower(stringWithDefault(lookup, "NUTRICART_DEFAULT_CATEGORY", defaultCategory)),
		},
		Display: DisplayConfig{
			Currency: strings.ToUpper(stringWithDefault(lookup, "NUTRICART_CURRENCY", defaultCurrency)),
			Locale:   stringWithDefault(lookup, "NUTRICART_LOCALE", defaultLocale),
		},
		Notify: NotifyConfig{
			Delay: durationWithDefault(lookup, "NUTRICART_NOTIFY_DELAY", defaultNotifyDelay),
		},
		Upload: UploadConfig{
			MaxBytes: int64WithDefault(lookup, "NUTRICART_UPLOAD_MAX_BYTES", defaultUploadMaxBytes),
		},
		Session: SessionConfig{
			SigningKey: stringWithDefault(lookup, "NUTRICART_SESSION_SIGNING_KEY", ""),
		},
	}

	if cfg.Session.SigningKey == "" && cfg.IsLocal() {
		cfg.Session.SigningKey = developmentSigningKey
	}

	if err := validateConfig(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func validateConfig(cfg Config) error {
	var missing []string

	if cfg.Server.Port == "" {
		missing = append(missing, "Server.Port")
	}
	if cfg.Backend.URL == "" || !(strings.HasPrefix(cfg.Backend.URL, "http://") || strings.HasPrefix(cfg.Backend.URL, "https://")) {
		missing = append(missing, "Backend.URL")
	}
	if cfg.Backend.Timeout <= 0 {
		missing = append(missing, "Backend.Timeout")
	}
	switch cfg.Storage.Driver {
	case "file", "sqlite", "memory":
	default:
		missing = append(missing, "Storage.Driver")
	}
	if cfg.Storage.Driver != "memory" && strings.TrimSpace(cfg.Storage.Path) == "" {
		missing = append(missing, "Storage.Path")
	}
	if cfg.Catalog.DefaultCategory == "" {
		missing = append(missing, "Catalog.DefaultCategory")
	}
	if cfg.Notify.Delay <= 0 {
		missing = append(missing, "Notify.Delay")
	}
	if cfg.Upload.MaxBytes <= 0 {
		missing = append(missing, "Upload.MaxBytes")
	}
	if len(cfg.Session.SigningKey) < minimumSigningKeyBytes {
		missing = append(missing, "Session.SigningKey")
	}

	if len(missing) > 0 {
		return &ValidationError{fields: missing}
	}
	return nil
}

func loadDotEnv(path string) (map[string]string, error) {
	if path == "" {
		return nil, nil
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		absPath = path
	}

	file, err := os.Open(absPath)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("config: unable to read %s: %w", absPath, err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	values := make(map[string]string)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimSpace(strings.TrimPrefix(line, "export "))
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		values[key] = strings.Trim(strings.TrimSpace(value), "\"'")
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("config: failed parsing %s: %w", absPath, err)
	}
	return values, nil
}

func stringWithDefault(lookup func(string) (string, bool), key, fallback string) string {
	if value, ok := lookup(key); ok && strings.TrimSpace(value) != "" {
		return strings.TrimSpace(value)
	}
	return fallback
}

func durationWithDefault(lookup func(string) (string, bool), key string, fallback time.Duration) time.Duration {
	if value, ok := lookup(key); ok && value != "" {
		d, err := time.ParseDuration(value)
		if err == nil {
			return d
		}
	}
	return fallback
}

func int64WithDefault(lookup func(string) (string, bool), key string, fallback int64) int64 {
	if value, ok := lookup(key); ok && value != "" {
		if parsed, err := strconv.ParseInt(value, 10, 64); err == nil {
			return parsed
		}
	}
	return fallback
}
