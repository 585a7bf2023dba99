// Package config provides YAML-based configuration management with environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultFileName is looked up next to the executable when CONFIG_PATH is unset.
const DefaultFileName = "textextract.yaml"

// AppConfig represents the root configuration structure
type AppConfig struct {
	Server     ServerConfig     `yaml:"server"`
	Fetch      FetchConfig      `yaml:"fetch"`
	Store      StoreConfig      `yaml:"store"`
	Extraction ExtractionConfig `yaml:"extraction"`
	History    HistoryConfig    `yaml:"history"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Port               int    `yaml:"port"`
	BindAddress        string `yaml:"bind_address"`
	EnableCORS         bool   `yaml:"enable_cors"`
	AllowOrigins       string `yaml:"allow_origins"`
	ReadTimeout        int    `yaml:"read_timeout_seconds"`
	WriteTimeout       int    `yaml:"write_timeout_seconds"`
	IdleTimeout        int    `yaml:"idle_timeout_seconds"`
	ShutdownTimeout    int    `yaml:"shutdown_timeout_seconds"`
	BodyLimit          string `yaml:"body_limit"`
	EnableGzip         bool   `yaml:"enable_gzip"`
	ExposeErrorDetails bool   `yaml:"expose_error_details"`
}

// FetchConfig bounds document downloads
type FetchConfig struct {
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	MaxBytes       int64  `yaml:"max_bytes"`
	UserAgent      string `yaml:"user_agent"`
}

// StoreConfig selects the record store that receives extracted text
type StoreConfig struct {
	Driver         string `yaml:"driver"` // rest | postgres | none
	URL            string `yaml:"url"`
	ServiceKey     string `yaml:"service_key"`
	DatabaseURL    string `yaml:"database_url"`
	Table          string `yaml:"table"`
	IDColumn       string `yaml:"id_column"`
	TextColumn     string `yaml:"text_column"`
	StatusColumn   string `yaml:"status_column"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// ExtractionConfig tunes the format strategies
type ExtractionConfig struct {
	PDFPageSeparator     string `yaml:"pdf_page_separator"`
	DOCMinRunLength      int    `yaml:"doc_min_run_length"`
	MaxDecompressedBytes int64  `yaml:"max_decompressed_bytes"`
}

// HistoryConfig controls the local extraction history database
type HistoryConfig struct {
	Enabled      bool   `yaml:"enabled"`
	Path         string `yaml:"path"`
	DefaultLimit int    `yaml:"default_limit"`
}

// LoggingConfig controls the process logger
type LoggingConfig struct {
	Level          string `yaml:"level"`  // debug | info | warn | error
	Format         string `yaml:"format"` // json | text
	RequestLogging bool   `yaml:"request_logging"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *AppConfig {
	return &AppConfig{
		Server: ServerConfig{
			Port:            8000,
			BindAddress:     "0.0.0.0",
			EnableCORS:      true,
			AllowOrigins:    "*",
			ReadTimeout:     30,
			WriteTimeout:    120,
			IdleTimeout:     120,
			ShutdownTimeout: 15,
			BodyLimit:       "1M",
			EnableGzip:      true,
		},
		Fetch: FetchConfig{
			TimeoutSeconds: 30,
			MaxBytes:       50 << 20,
			UserAgent:      "textextract/1.0",
		},
		Store: StoreConfig{
			Driver:         "rest",
			Table:          "song_scripts",
			IDColumn:       "id",
			TextColumn:     "content",
			TimeoutSeconds: 10,
		},
		Extraction: ExtractionConfig{
			PDFPageSeparator:     "\n",
			DOCMinRunLength:      4,
			MaxDecompressedBytes: 64 << 20,
		},
		History: HistoryConfig{
			Enabled:      true,
			Path:         "./data/history.duckdb",
			DefaultLimit: 50,
		},
		Logging: LoggingConfig{
			Level:          "info",
			Format:         "json",
			RequestLogging: true,
		},
	}
}

// DefaultPath returns CONFIG_PATH, or DefaultFileName next to the executable.
func DefaultPath() string {
	if p := os.Getenv("CONFIG_PATH"); p != "" {
		return p
	}
	exe, err := os.Executable()
	if err != nil {
		return DefaultFileName
	}
	return filepath.Join(filepath.Dir(exe), DefaultFileName)
}

// LoadConfig loads configuration from a YAML file. A missing file yields the
// defaults; environment overrides apply in both cases.
func LoadConfig(configPath string) (*AppConfig, error) {
	config := DefaultConfig()

	data, err := os.ReadFile(configPath)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	default:
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	config.applyEnvironmentOverrides()
	config.resolvePaths(filepath.Dir(configPath))

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Save writes the configuration as YAML.
func (c *AppConfig) Save(configPath string) error {
	output, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	header := []byte("# Text extraction service configuration\n# Secrets may be supplied with SUPABASE_SERVICE_KEY and DATABASE_URL instead.\n\n")
	if err := os.WriteFile(configPath, append(header, output...), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// applyEnvironmentOverrides allows environment variables to override config values
func (c *AppConfig) applyEnvironmentOverrides() {
	if port := os.Getenv("PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			c.Server.Port = p
		}
	}
	if addr := os.Getenv("BIND_ADDRESS"); addr != "" {
		c.Server.BindAddress = addr
	}

	if u := os.Getenv("SUPABASE_URL"); u != "" {
		c.Store.URL = u
	}
	if key := os.Getenv("SUPABASE_SERVICE_KEY"); key != "" {
		c.Store.ServiceKey = key
	}
	if dsn := os.Getenv("DATABASE_URL"); dsn != "" {
		c.Store.DatabaseURL = dsn
	}
	if driver := os.Getenv("STORE_DRIVER"); driver != "" {
		c.Store.Driver = strings.ToLower(driver)
	}
	if table := os.Getenv("STORE_TABLE"); table != "" {
		c.Store.Table = table
	}

	if v := os.Getenv("FETCH_TIMEOUT_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Fetch.TimeoutSeconds = n
		}
	}
	if v := os.Getenv("FETCH_MAX_BYTES"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			c.Fetch.MaxBytes = n
		}
	}

	if v := os.Getenv("HISTORY_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.History.Enabled = b
		}
	}
	if p := os.Getenv("HISTORY_PATH"); p != "" {
		c.History.Path = p
	}

	if level := os.Getenv("LOG_LEVEL"); level != "" {
		c.Logging.Level = strings.ToLower(level)
	}
	if format := os.Getenv("LOG_FORMAT"); format != "" {
		c.Logging.Format = strings.ToLower(format)
	}
}

// resolvePaths converts relative paths to absolute based on config file location
func (c *AppConfig) resolvePaths(configDir string) {
	if c.History.Path != "" && !filepath.IsAbs(c.History.Path) {
		c.History.Path = filepath.Join(configDir, c.History.Path)
	}
}

// Validate checks limits and that the chosen store driver has its credentials.
func (c *AppConfig) Validate() error {
	var errs []error

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d out of range", c.Server.Port))
	}
	if c.Fetch.TimeoutSeconds <= 0 {
		errs = append(errs, errors.New("fetch.timeout_seconds must be positive"))
	}
	if c.Fetch.MaxBytes <= 0 {
		errs = append(errs, errors.New("fetch.max_bytes must be positive"))
	}
	if c.Store.TimeoutSeconds <= 0 {
		errs = append(errs, errors.New("store.timeout_seconds must be positive"))
	}

	switch c.Store.Driver {
	case "rest":
		if c.Store.URL == "" || c.Store.ServiceKey == "" {
			errs = append(errs, errors.New("store driver rest requires SUPABASE_URL and SUPABASE_SERVICE_KEY"))
		}
	case "postgres":
		if c.Store.DatabaseURL == "" {
			errs = append(errs, errors.New("store driver postgres requires DATABASE_URL"))
		}
	case "none":
	default:
		errs = append(errs, fmt.Errorf("unknown store driver %q", c.Store.Driver))
	}

	if c.History.Enabled && c.History.Path == "" {
		errs = append(errs, errors.New("history.path is required when history is enabled"))
	}

	switch c.Logging.Format {
	case "json", "text":
	default:
		errs = append(errs, fmt.Errorf("unknown log format %q", c.Logging.Format))
	}

	return errors.Join(errs...)
}

// GetServerAddr returns the server bind address
func (c *AppConfig) GetServerAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.BindAddress, c.Server.Port)
}

func seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}

func (c *AppConfig) FetchTimeout() time.Duration { return seconds(c.Fetch.TimeoutSeconds) }
func (c *AppConfig) StoreTimeout() time.Duration { return seconds(c.Store.TimeoutSeconds) }
func (c *AppConfig) ReadTimeout() time.Duration { return seconds(c.Server.ReadTimeout) }
func (c *AppConfig) WriteTimeout() time.Duration { return seconds(c.Server.WriteTimeout) }
func (c *AppConfig) IdleTimeout() time.Duration { return seconds(c.Server.IdleTimeout) }
func (c *AppConfig) ShutdownTimeout() time.Duration { return seconds(c.Server.ShutdownTimeout) }
