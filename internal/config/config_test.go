package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate runs the test from an empty directory so no stray config or .env
// file is picked up.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "xdg"))
	t.Setenv("HOME", dir)
	return dir
}

func TestLoad_Defaults(t *testing.T) {
	isolate(t)

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, EngineTesseract, cfg.OCR.Engine)
	assert.Equal(t, "eng", cfg.OCR.Language)
	assert.Equal(t, 3, cfg.OCR.PSM)
	assert.Equal(t, 3, cfg.OCR.OEM)
	assert.Equal(t, 2*time.Minute, cfg.OCR.Timeout)
	assert.False(t, cfg.OCR.AutoDetect)
	assert.True(t, cfg.Preprocess.Enabled)
	assert.False(t, cfg.Preprocess.Deskew)
	assert.Equal(t, 300, cfg.Document.DPI)
	assert.Equal(t, 2, cfg.Document.Workers)
	assert.Equal(t, "txt", cfg.Export.DefaultFormat)
	assert.Equal(t, "OCR Results", cfg.Export.Title)
	assert.Equal(t, 5*time.Second, cfg.Clipboard.Timeout)
	assert.Equal(t, zerolog.InfoLevel, cfg.Level())

	assert.Equal(t, cfg, Default())
}

func TestLoad_File(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "custom.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
ocr:
  language: deu+eng
  psm: 6
  oem: 1
  timeout: 30s
  auto_detect: true
preprocess:
  deskew: true
  adaptive_threshold: true
document:
  dpi: 150
  workers: 4
export:
  default_format: docx
  title: Scan
clipboard:
  timeout: 2s
log_level: debug
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "deu+eng", cfg.OCR.Language)
	assert.Equal(t, 6, cfg.OCR.PSM)
	assert.Equal(t, 1, cfg.OCR.OEM)
	assert.Equal(t, 30*time.Second, cfg.OCR.Timeout)
	assert.True(t, cfg.OCR.AutoDetect)
	assert.True(t, cfg.Preprocess.Enabled, "unset keys keep their defaults")
	assert.True(t, cfg.Preprocess.Deskew)
	assert.True(t, cfg.Preprocess.AdaptiveThreshold)
	assert.Equal(t, 150, cfg.Document.DPI)
	assert.Equal(t, 4, cfg.Document.Workers)
	assert.Equal(t, "docx", cfg.Export.DefaultFormat)
	assert.Equal(t, "Scan", cfg.Export.Title)
	assert.Equal(t, 2*time.Second, cfg.Clipboard.Timeout)
	assert.Equal(t, zerolog.DebugLevel, cfg.Level())
}

func TestLoad_SearchPath(t *testing.T) {
	dir := isolate(t)
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "config"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config", "ocrdesk.yaml"), []byte("ocr:\n  language: fra\n"), 0o644))

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "fra", cfg.OCR.Language)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	dir := isolate(t)
	_, err := Load(filepath.Join(dir, "nope.yaml"))
	assert.Error(t, err)
}

func TestLoad_EnvOverrides(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "ocrdesk.yaml")
	require.NoError(t, os.WriteFile(path, []byte("ocr:\n  language: fra\n  psm: 6\n"), 0o644))

	t.Setenv("OCRDESK_OCR_LANGUAGE", "spa")
	t.Setenv("OCRDESK_DOCUMENT_WORKERS", "8")
	t.Setenv("OCRDESK_PREPROCESS_ENABLED", "false")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "spa", cfg.OCR.Language)
	assert.Equal(t, 6, cfg.OCR.PSM)
	assert.Equal(t, 8, cfg.Document.Workers)
	assert.False(t, cfg.Preprocess.Enabled)
}

func TestLoad_EnvFile(t *testing.T) {
	dir := isolate(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("OCRDESK_OCR_LANGUAGE=por\n"), 0o644))
	t.Cleanup(func() { os.Unsetenv("OCRDESK_OCR_LANGUAGE") })

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "por", cfg.OCR.Language)
}

func TestLoad_Invalid(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("ocr:\n  psm: 42\n"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ocr.psm")
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
		errMsg  string
	}{
		{"defaults", func(*Config) {}, false, ""},
		{"library engine", func(c *Config) { c.OCR.Engine = EngineLibrary }, false, ""},
		{"unknown engine", func(c *Config) { c.OCR.Engine = "cloud" }, true, "ocr.engine"},
		{"empty language", func(c *Config) { c.OCR.Language = " " }, true, "ocr.language cannot be empty"},
		{"psm too low", func(c *Config) { c.OCR.PSM = -1 }, true, "ocr.psm"},
		{"psm too high", func(c *Config) { c.OCR.PSM = 14 }, true, "ocr.psm"},
		{"psm max", func(c *Config) { c.OCR.PSM = 13 }, false, ""},
		{"oem too high", func(c *Config) { c.OCR.OEM = 4 }, true, "ocr.oem"},
		{"zero timeout", func(c *Config) { c.OCR.Timeout = 0 }, true, "ocr.timeout must be positive"},
		{"zero dpi", func(c *Config) { c.Document.DPI = 0 }, true, "document.dpi must be positive"},
		{"zero workers", func(c *Config) { c.Document.Workers = 0 }, true, "document.workers must be positive"},
		{"bad format", func(c *Config) { c.Export.DefaultFormat = "odt" }, true, "export.default_format"},
		{"htm format", func(c *Config) { c.Export.DefaultFormat = "htm" }, false, ""},
		{"clipboard timeout", func(c *Config) { c.Clipboard.Timeout = -time.Second }, true, "clipboard.timeout must be positive"},
		{"bad log level", func(c *Config) { c.LogLevel = "loud" }, true, "invalid log_level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestConfig_Level(t *testing.T) {
	cfg := Default()
	cfg.LogLevel = "warn"
	assert.Equal(t, zerolog.WarnLevel, cfg.Level())
	cfg.LogLevel = ""
	assert.Equal(t, zerolog.InfoLevel, cfg.Level())
}
