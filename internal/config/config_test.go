package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jo-hoe/goimages/internal/query"
	"github.com/jo-hoe/goimages/internal/saver"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to create test config file: %v", err)
	}
	return configPath
}

func TestLoadConfig_Success(t *testing.T) {
	configPath := writeConfig(t, `port: 9090
logFormat: json
process:
  savers: [png, webp, json]
  timeout: 5s
  quality: 70
  jpegQuality: 90
cache:
  type: sqlite
  connectionString: ":memory:"
  ttl: 1h`)

	config, err := LoadConfig(configPath)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if config.Port != 9090 {
		t.Errorf("Expected port to be 9090, got %d", config.Port)
	}
	if config.Process.Timeout != 5*time.Second {
		t.Errorf("Expected timeout to be 5s, got %s", config.Process.Timeout)
	}
	if config.Cache.TTL != time.Hour {
		t.Errorf("Expected ttl to be 1h, got %s", config.Cache.TTL)
	}
	// absent keys keep their defaults
	if config.Process.MaxPages != 256 || config.Process.ZlibLevel != 6 {
		t.Errorf("Expected defaults for maxPages and zlibLevel, got %d and %d", config.Process.MaxPages, config.Process.ZlibLevel)
	}

	opts := config.CoreOptions()
	if opts.Save.Quality != 70 || opts.Save.JpegQuality != 90 {
		t.Errorf("Expected qualities 70 and 90, got %d and %d", opts.Save.Quality, opts.Save.JpegQuality)
	}
	if opts.Limits.LimitInputPixels != 71000000 {
		t.Errorf("Expected input pixel limit 71000000, got %d", opts.Limits.LimitInputPixels)
	}
	if want := saver.MaskOf(query.OutputPng, query.OutputWebp, query.OutputJson); opts.Save.Savers != want {
		t.Errorf("Expected saver mask %v, got %v", want.Names(), opts.Save.Savers.Names())
	}
}

func TestLoadConfig_FileNotFound(t *testing.T) {
	config, err := LoadConfig("/path/that/does/not/exist/config.yaml")
	if err == nil {
		t.Fatal("Expected error for non-existent file, got nil")
	}
	if config != nil {
		t.Error("Expected config to be nil when file doesn't exist")
	}
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"malformed yaml", "port: [", "failed to parse"},
		{"unknown saver", "process:\n  savers: [png, bmp]", "unknown saver: bmp"},
		{"origin saver", "process:\n  savers: [origin]", "unknown saver: origin"},
		{"duplicate saver", "process:\n  savers: [jpg, jpeg]", "duplicate saver name: jpeg"},
		{"empty saver", "process:\n  savers: [\"\"]", "saver at index 0 has empty name"},
		{"quality out of range", "process:\n  quality: 101", "Quality"},
		{"unknown cache", "cache:\n  type: memcached", "Type"},
		{"cache without connection", "cache:\n  type: redis", "requires a connectionString"},
		{"unknown log level", "logLevel: verbose", "LogLevel"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, tt.content))
			if err == nil {
				t.Fatal("Expected an error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}

func TestSaverMask_DefaultsToAll(t *testing.T) {
	config := Default()
	if config.SaverMask() != saver.AllSavers {
		t.Errorf("Expected all savers, got %v", config.SaverMask().Names())
	}
}
