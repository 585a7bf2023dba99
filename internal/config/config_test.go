package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setStoreEnv(t *testing.T) {
	t.Setenv("SUPABASE_URL", "https://project.supabase.co")
	t.Setenv("SUPABASE_SERVICE_KEY", "service-key")
}

func TestLoadConfig_MissingFileUsesDefaults(t *testing.T) {
	setStoreEnv(t)
	dir := t.TempDir()

	cfg, err := LoadConfig(filepath.Join(dir, DefaultFileName))
	require.NoError(t, err)

	assert.Equal(t, 8000, cfg.Server.Port)
	assert.Equal(t, 30*time.Second, cfg.FetchTimeout())
	assert.Equal(t, int64(50<<20), cfg.Fetch.MaxBytes)
	assert.Equal(t, 10*time.Second, cfg.StoreTimeout())
	assert.Equal(t, "song_scripts", cfg.Store.Table)
	assert.Equal(t, "https://project.supabase.co", cfg.Store.URL)
	assert.Equal(t, filepath.Join(dir, "data", "history.duckdb"), cfg.History.Path)
}

func TestLoadConfig_YAMLFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
server:
  port: 9100
  expose_error_details: true
fetch:
  timeout_seconds: 5
  max_bytes: 1024
store:
  driver: postgres
  database_url: postgres://u:p@localhost/db
  table: documents
  status_column: extraction_status
history:
  enabled: false
logging:
  level: debug
  format: text
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 9100, cfg.Server.Port)
	assert.True(t, cfg.Server.ExposeErrorDetails)
	assert.Equal(t, 5*time.Second, cfg.FetchTimeout())
	assert.Equal(t, int64(1024), cfg.Fetch.MaxBytes)
	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "documents", cfg.Store.Table)
	assert.Equal(t, "content", cfg.Store.TextColumn, "unset fields keep defaults")
	assert.Equal(t, "extraction_status", cfg.Store.StatusColumn)
	assert.False(t, cfg.History.Enabled)
	assert.Equal(t, "text", cfg.Logging.Format)
}

func TestLoadConfig_EnvironmentOverrides(t *testing.T) {
	setStoreEnv(t)
	t.Setenv("PORT", "7001")
	t.Setenv("BIND_ADDRESS", "127.0.0.1")
	t.Setenv("FETCH_TIMEOUT_SECONDS", "12")
	t.Setenv("FETCH_MAX_BYTES", "2048")
	t.Setenv("STORE_TABLE", "lyrics")
	t.Setenv("HISTORY_ENABLED", "false")
	t.Setenv("LOG_LEVEL", "DEBUG")

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:7001", cfg.GetServerAddr())
	assert.Equal(t, 12*time.Second, cfg.FetchTimeout())
	assert.Equal(t, int64(2048), cfg.Fetch.MaxBytes)
	assert.Equal(t, "lyrics", cfg.Store.Table)
	assert.False(t, cfg.History.Enabled)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoadConfig_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server: [unterminated"), 0644))

	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *AppConfig)
		wantErr string
	}{
		{"rest without credentials", func(c *AppConfig) {}, "SUPABASE_URL"},
		{"postgres without dsn", func(c *AppConfig) { c.Store.Driver = "postgres" }, "DATABASE_URL"},
		{"unknown driver", func(c *AppConfig) { c.Store.Driver = "redis" }, "unknown store driver"},
		{"bad port", func(c *AppConfig) { c.Store.Driver = "none"; c.Server.Port = 0 }, "port"},
		{"zero fetch limit", func(c *AppConfig) { c.Store.Driver = "none"; c.Fetch.MaxBytes = 0 }, "max_bytes"},
		{"bad log format", func(c *AppConfig) { c.Store.Driver = "none"; c.Logging.Format = "xml" }, "log format"},
		{"valid none", func(c *AppConfig) { c.Store.Driver = "none" }, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.yaml")
	cfg := DefaultConfig()
	cfg.Store.Driver = "none"
	cfg.Server.Port = 8123
	require.NoError(t, cfg.Save(path))

	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 8123, loaded.Server.Port)
	assert.Equal(t, "\n", loaded.Extraction.PDFPageSeparator)
}

func TestLoggingConfig_NewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := LoggingConfig{Level: "warn", Format: "json"}.NewLogger(&buf)

	logger.Info("hidden")
	logger.Warn("shown", "component", "test")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"msg":"shown"`)
	assert.Contains(t, buf.String(), `"component":"test"`)
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, "DEBUG", parseLevel("debug").String())
	assert.Equal(t, "INFO", parseLevel("nonsense").String())
}
