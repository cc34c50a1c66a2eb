// Package config loads service configuration from a YAML file, a .env file and
// environment variables, in that order of precedence (later wins).
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the OCR/PDF service.
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Upload        UploadConfig        `yaml:"upload"`
	OCR           OCRConfig           `yaml:"ocr"`
	PDF           PDFConfig           `yaml:"pdf"`
	CORS          CORSConfig          `yaml:"cors"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host              string        `yaml:"host"`
	Port              int           `yaml:"port"`
	ReadHeaderTimeout time.Duration `yaml:"read_header_timeout"`
	// WriteTimeout of zero leaves slow OCR/render calls unbounded.
	WriteTimeout     time.Duration `yaml:"write_timeout"`
	IdleTimeout      time.Duration `yaml:"idle_timeout"`
	GracefulShutdown time.Duration `yaml:"graceful_shutdown"`
	TempDir          string        `yaml:"temp_dir"`
}

// UploadConfig bounds request bodies.
type UploadConfig struct {
	MaxMB int `yaml:"max_mb"`
}

// OCRConfig holds Tesseract settings.
type OCRConfig struct {
	Languages   []string `yaml:"languages"`
	PageSegMode int      `yaml:"page_seg_mode"` // 0 keeps the engine default
	DPI         int      `yaml:"dpi"`
}

// PDFConfig holds document rendering settings.
type PDFConfig struct {
	PageSize string `yaml:"page_size"`
	Compress bool   `yaml:"compress"`
	Creator  string `yaml:"creator"`
}

// CORSConfig holds allowed browser origins.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// ObservabilityConfig holds logging settings.
type ObservabilityConfig struct {
	LogLevel    string `yaml:"log_level"`
	LogFormat   string `yaml:"log_format"`
	ServiceName string `yaml:"service_name"`
}

var pageSizes = map[string]bool{
	"A3":     true,
	"A4":     true,
	"A5":     true,
	"Letter": true,
	"Legal":  true,
}

// Load reads configuration from a YAML file (optional) and applies .env and
// environment overrides.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	// A missing .env is the normal case outside local development.
	_ = godotenv.Load()

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

// DefaultConfig returns a configuration with development defaults.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:              "0.0.0.0",
			Port:              8000,
			ReadHeaderTimeout: 10 * time.Second,
			IdleTimeout:       120 * time.Second,
			GracefulShutdown:  10 * time.Second,
			TempDir:           os.TempDir(),
		},
		Upload: UploadConfig{
			MaxMB: 10,
		},
		OCR: OCRConfig{
			Languages: []string{"eng"},
		},
		PDF: PDFConfig{
			PageSize: "Letter",
			Compress: true,
			Creator:  "quick-demo",
		},
		CORS: CORSConfig{
			AllowedOrigins: []string{"http://localhost:3000"},
		},
		Observability: ObservabilityConfig{
			LogLevel:    "info",
			LogFormat:   "json",
			ServiceName: "ocr-pdf",
		},
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Upload.MaxMB <= 0 {
		return fmt.Errorf("upload.max_mb must be positive, got %d", c.Upload.MaxMB)
	}
	if c.OCR.PageSegMode < 0 || c.OCR.PageSegMode > 13 {
		return fmt.Errorf("invalid ocr page_seg_mode: %d", c.OCR.PageSegMode)
	}
	if c.OCR.DPI < 0 {
		return fmt.Errorf("invalid ocr dpi: %d", c.OCR.DPI)
	}
	if !pageSizes[c.PDF.PageSize] {
		return fmt.Errorf("invalid pdf page_size: %s", c.PDF.PageSize)
	}
	if c.Observability.LogFormat != "json" && c.Observability.LogFormat != "console" {
		return fmt.Errorf("invalid log format: %s", c.Observability.LogFormat)
	}
	return nil
}

// Addr returns the listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// MaxUploadBytes returns the request body limit in bytes.
func (c *Config) MaxUploadBytes() int64 {
	return int64(c.Upload.MaxMB) * 1024 * 1024
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("SERVER_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("TEMP_DIR"); v != "" {
		cfg.Server.TempDir = v
	}
	if v := os.Getenv("MAX_UPLOAD_MB"); v != "" {
		if mb, err := strconv.Atoi(v); err == nil && mb > 0 {
			cfg.Upload.MaxMB = mb
		}
	}
	if v := os.Getenv("OCR_LANGUAGES"); v != "" {
		cfg.OCR.Languages = splitList(v)
	}
	if v := os.Getenv("OCR_PSM"); v != "" {
		if psm, err := strconv.Atoi(v); err == nil {
			cfg.OCR.PageSegMode = psm
		}
	}
	if v := os.Getenv("PDF_PAGE_SIZE"); v != "" {
		cfg.PDF.PageSize = v
	}
	if v := os.Getenv("CORS_ALLOWED_ORIGINS"); v != "" {
		cfg.CORS.AllowedOrigins = splitList(v)
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Observability.LogLevel = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Observability.LogFormat = v
	}
}

// splitList accepts comma or plus separated values ("eng,deu" or "eng+deu").
func splitList(v string) []string {
	fields := strings.FieldsFunc(v, func(r rune) bool { return r == ',' || r == '+' })
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}
