// Package config loads ocrdesk settings from a YAML file, .env files and
// OCRDESK_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"

	"github.com/ironsheep/ocrdesk/internal/export"
	"github.com/ironsheep/ocrdesk/internal/ocr"
)

// EnvPrefix prefixes every environment variable: ocr.language is read from
// OCRDESK_OCR_LANGUAGE.
const EnvPrefix = "OCRDESK"

// Engine names accepted by ocr.engine.
const (
	EngineTesseract = "tesseract"
	EngineLibrary   = "library"
)

// Config represents the application configuration
type Config struct {
	OCR        OCRConfig        `mapstructure:"ocr" json:"ocr" yaml:"ocr"`
	Preprocess PreprocessConfig `mapstructure:"preprocess" json:"preprocess" yaml:"preprocess"`
	Document   DocumentConfig   `mapstructure:"document" json:"document" yaml:"document"`
	Export     ExportConfig     `mapstructure:"export" json:"export" yaml:"export"`
	Clipboard  ClipboardConfig  `mapstructure:"clipboard" json:"clipboard" yaml:"clipboard"`
	LogLevel   string           `mapstructure:"log_level" json:"log_level" yaml:"log_level"`
}

// OCRConfig selects and tunes the recognition engine
type OCRConfig struct {
	Engine         string        `mapstructure:"engine" json:"engine" yaml:"engine"` // tesseract or library
	Binary         string        `mapstructure:"binary" json:"binary" yaml:"binary"`
	TessdataPrefix string        `mapstructure:"tessdata_prefix" json:"tessdata_prefix" yaml:"tessdata_prefix"`
	Language       string        `mapstructure:"language" json:"language" yaml:"language"`
	PSM            int           `mapstructure:"psm" json:"psm" yaml:"psm"`
	OEM            int           `mapstructure:"oem" json:"oem" yaml:"oem"`
	Timeout        time.Duration `mapstructure:"timeout" json:"timeout" yaml:"timeout"`
	AutoDetect     bool          `mapstructure:"auto_detect" json:"auto_detect" yaml:"auto_detect"`
}

// PreprocessConfig contains raster cleanup settings
type PreprocessConfig struct {
	Enabled           bool `mapstructure:"enabled" json:"enabled" yaml:"enabled"`
	Deskew            bool `mapstructure:"deskew" json:"deskew" yaml:"deskew"`
	AdaptiveThreshold bool `mapstructure:"adaptive_threshold" json:"adaptive_threshold" yaml:"adaptive_threshold"`
}

// DocumentConfig contains PDF import settings
type DocumentConfig struct {
	Renderer string `mapstructure:"renderer" json:"renderer" yaml:"renderer"` // pdftoppm binary
	DPI      int    `mapstructure:"dpi" json:"dpi" yaml:"dpi"`
	Workers  int    `mapstructure:"workers" json:"workers" yaml:"workers"`
	Password string `mapstructure:"password" json:"-" yaml:"-"`
}

// ExportConfig contains export settings
type ExportConfig struct {
	Dir           string `mapstructure:"dir" json:"dir" yaml:"dir"`
	DefaultFormat string `mapstructure:"default_format" json:"default_format" yaml:"default_format"`
	PDFFont       string `mapstructure:"pdf_font" json:"pdf_font" yaml:"pdf_font"`
	Title         string `mapstructure:"title" json:"title" yaml:"title"`
}

// ClipboardConfig contains clipboard settings
type ClipboardConfig struct {
	Timeout time.Duration `mapstructure:"timeout" json:"timeout" yaml:"timeout"`
}

// envFiles are the .env locations checked, in order. The first one found is
// loaded.
var envFiles = []string{".env", ".env.local"}

// Load reads the configuration.
//
// When configFile is empty, ocrdesk.yaml is searched for in the working
// directory, ./config and the user config directory. A missing file is not
// an error. Environment variables override file values.
func Load(configFile string) (*Config, error) {
	if err := loadEnvFile(); err != nil {
		log.Debug().Err(err).Msg("No .env file loaded")
	}

	v := viper.New()
	setDefaults(v)

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("ocrdesk")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		if dir, err := os.UserConfigDir(); err == nil {
			v.AddConfigPath(filepath.Join(dir, "ocrdesk"))
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		log.Debug().Msg("No config file found, using environment variables and defaults")
	} else {
		log.Debug().Str("file", v.ConfigFileUsed()).Msg("Config file loaded")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	var cfg Config
	// Defaults always decode.
	_ = v.Unmarshal(&cfg)
	return &cfg
}

// loadEnvFile loads environment variables from the first .env file found
func loadEnvFile() error {
	for _, location := range envFiles {
		if _, err := os.Stat(location); err == nil {
			if err := godotenv.Load(location); err != nil {
				return fmt.Errorf("error loading .env file from %s: %w", location, err)
			}
			log.Debug().Str("file", location).Msg(".env file loaded")
			return nil
		}
	}
	return fmt.Errorf("no .env file found")
}

func setDefaults(v *viper.Viper) {
	// OCR defaults
	v.SetDefault("ocr.engine", EngineTesseract)
	v.SetDefault("ocr.binary", "")
	v.SetDefault("ocr.tessdata_prefix", "")
	v.SetDefault("ocr.language", ocr.DefaultLanguage)
	v.SetDefault("ocr.psm", int(ocr.DefaultPageSegMode))
	v.SetDefault("ocr.oem", int(ocr.DefaultEngineMode))
	v.SetDefault("ocr.timeout", ocr.DefaultTimeout.String())
	v.SetDefault("ocr.auto_detect", false)

	// Preprocessing defaults
	v.SetDefault("preprocess.enabled", true)
	v.SetDefault("preprocess.deskew", false)
	v.SetDefault("preprocess.adaptive_threshold", false)

	// Document defaults
	v.SetDefault("document.renderer", "")
	v.SetDefault("document.dpi", 300)
	v.SetDefault("document.workers", 2)
	v.SetDefault("document.password", "")

	// Export defaults
	v.SetDefault("export.dir", ".")
	v.SetDefault("export.default_format", string(export.FormatTXT))
	v.SetDefault("export.pdf_font", "")
	v.SetDefault("export.title", export.DefaultTitle)

	v.SetDefault("clipboard.timeout", "5s")
	v.SetDefault("log_level", "info")
}

// Validate validates the configuration
func (c *Config) Validate() error {
	switch c.OCR.Engine {
	case EngineTesseract, EngineLibrary:
	default:
		return fmt.Errorf("ocr.engine must be %q or %q, got %q", EngineTesseract, EngineLibrary, c.OCR.Engine)
	}
	if strings.TrimSpace(c.OCR.Language) == "" {
		return fmt.Errorf("ocr.language cannot be empty")
	}
	if !ocr.PageSegMode(c.OCR.PSM).Valid() {
		return fmt.Errorf("ocr.psm must be between 0 and 13, got %d", c.OCR.PSM)
	}
	if !ocr.EngineMode(c.OCR.OEM).Valid() {
		return fmt.Errorf("ocr.oem must be between 0 and 3, got %d", c.OCR.OEM)
	}
	if c.OCR.Timeout <= 0 {
		return fmt.Errorf("ocr.timeout must be positive")
	}

	if c.Document.DPI <= 0 {
		return fmt.Errorf("document.dpi must be positive")
	}
	if c.Document.Workers <= 0 {
		return fmt.Errorf("document.workers must be positive")
	}

	if _, err := export.ParseFormat(c.Export.DefaultFormat); err != nil {
		return fmt.Errorf("export.default_format: %w", err)
	}

	if c.Clipboard.Timeout <= 0 {
		return fmt.Errorf("clipboard.timeout must be positive")
	}

	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("invalid log_level %q (valid: debug, info, warn, error)", c.LogLevel)
	}
	return nil
}

// Level returns the configured log level, defaulting to info.
func (c *Config) Level() zerolog.Level {
	level, err := zerolog.ParseLevel(c.LogLevel)
	if err != nil || level == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return level
}
