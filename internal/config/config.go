// Package config loads the service configuration from YAML.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/go-playground/validator"
	"gopkg.in/yaml.v3"

	"github.com/jo-hoe/goimages/internal/core"
	"github.com/jo-hoe/goimages/internal/loader"
	"github.com/jo-hoe/goimages/internal/query"
	"github.com/jo-hoe/goimages/internal/saver"
)

type Process struct {
	// Savers lists the enabled output formats, all when empty.
	Savers            []string      `yaml:"savers"`
	Timeout           time.Duration `yaml:"timeout" validate:"min=0"`
	LimitInputPixels  int64         `yaml:"limitInputPixels" validate:"min=0"`
	LimitOutputPixels int64         `yaml:"limitOutputPixels" validate:"min=0"`
	MaxPages          int           `yaml:"maxPages" validate:"min=0"`
	Quality           int           `yaml:"quality" validate:"min=1,max=100"`
	JpegQuality       int           `yaml:"jpegQuality" validate:"min=0,max=100"`
	WebpQuality       int           `yaml:"webpQuality" validate:"min=0,max=100"`
	AvifQuality       int           `yaml:"avifQuality" validate:"min=0,max=100"`
	TiffQuality       int           `yaml:"tiffQuality" validate:"min=0,max=100"`
	AvifEffort        int           `yaml:"avifEffort" validate:"min=0,max=9"`
	GifEffort         int           `yaml:"gifEffort" validate:"min=1,max=10"`
	ZlibLevel         int           `yaml:"zlibLevel" validate:"min=0,max=9"`
	FailOnError       bool          `yaml:"failOnError"`
}

type Upstream struct {
	Timeout      time.Duration `yaml:"timeout" validate:"min=0"`
	MaxSize      int64         `yaml:"maxSize" validate:"min=0"`
	MaxRedirects int           `yaml:"maxRedirects" validate:"min=0"`
	UserAgent    string        `yaml:"userAgent"`
}

type Cache struct {
	Type             string        `yaml:"type" validate:"oneof=none sqlite redis"`
	ConnectionString string        `yaml:"connectionString"`
	TTL              time.Duration `yaml:"ttl" validate:"min=0"`
}

type Config struct {
	Port      int      `yaml:"port" validate:"min=0,max=65535"`
	LogLevel  string   `yaml:"logLevel" validate:"oneof=debug info warn error"`
	LogFormat string   `yaml:"logFormat" validate:"oneof=text json"`
	Process   Process  `yaml:"process"`
	Upstream  Upstream `yaml:"upstream"`
	Cache     Cache    `yaml:"cache"`
}

// Default returns the configuration used for every key absent from the file.
func Default() Config {
	return Config{
		Port:      8080,
		LogLevel:  "info",
		LogFormat: "text",
		Process: Process{
			Timeout:           10 * time.Second,
			LimitInputPixels:  71000000,
			LimitOutputPixels: 71000000,
			MaxPages:          256,
			Quality:           80,
			AvifEffort:        4,
			GifEffort:         7,
			ZlibLevel:         6,
		},
		Upstream: Upstream{
			Timeout:      10 * time.Second,
			MaxSize:      100 << 20,
			MaxRedirects: 10,
			UserAgent:    "Mozilla/5.0 (compatible; goimages/1.0)",
		},
		Cache: Cache{
			Type: "none",
			TTL:  24 * time.Hour,
		},
	}
}

// LoadConfig loads configuration from the specified YAML file
func LoadConfig(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
	}

	config := Default()
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", configPath, err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration in %s: %w", configPath, err)
	}
	return &config, nil
}

// Validate checks the struct constraints and the saver names.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return err
	}
	if err := validateSavers(c.Process.Savers); err != nil {
		return fmt.Errorf("invalid saver configuration: %w", err)
	}
	if c.Cache.Type != "none" && c.Cache.ConnectionString == "" {
		return fmt.Errorf("cache %s requires a connectionString", c.Cache.Type)
	}
	return nil
}

// validateSavers ensures all saver names are known and unique
func validateSavers(savers []string) error {
	seen := make(map[query.Output]bool)

	for i, name := range savers {
		if name == "" {
			return fmt.Errorf("saver at index %d has empty name", i)
		}

		output, err := query.ParseOutput(name)
		if err != nil || output == query.OutputOrigin {
			return fmt.Errorf("unknown saver: %s", name)
		}

		if seen[output] {
			return fmt.Errorf("duplicate saver name: %s", name)
		}
		seen[output] = true
	}

	return nil
}

// SaverMask returns the enabled savers. Names were checked by Validate.
func (c *Config) SaverMask() saver.Mask {
	if len(c.Process.Savers) == 0 {
		return saver.AllSavers
	}
	var outputs []query.Output
	for _, name := range c.Process.Savers {
		if output, err := query.ParseOutput(name); err == nil {
			outputs = append(outputs, output)
		}
	}
	return saver.MaskOf(outputs...)
}

// CoreOptions converts the process section for core.NewProcessor.
func (c *Config) CoreOptions() core.Options {
	p := c.Process
	return core.Options{
		Timeout: p.Timeout,
		Limits: loader.Limits{
			LimitInputPixels: p.LimitInputPixels,
			MaxPages:         p.MaxPages,
			FailOnError:      p.FailOnError,
		},
		Save: saver.Options{
			Savers:            c.SaverMask(),
			LimitOutputPixels: p.LimitOutputPixels,
			Quality:           p.Quality,
			JpegQuality:       p.JpegQuality,
			WebpQuality:       p.WebpQuality,
			AvifQuality:       p.AvifQuality,
			TiffQuality:       p.TiffQuality,
			AvifEffort:        p.AvifEffort,
			GifEffort:         p.GifEffort,
			ZlibLevel:         p.ZlibLevel,
		},
	}
}

// Level returns the slog level named by LogLevel.
func (c *Config) Level() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Logger returns a logger writing to stderr in the configured format.
func (c *Config) Logger() *slog.Logger {
	opts := &slog.HandlerOptions{Level: c.Level()}
	if c.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}
