package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the application configuration: server and workspace settings
// come from YAML, provider secrets from the environment.
type Config struct {
	Server struct {
		Port int    `yaml:"port"`
		Host string `yaml:"host"`
	} `yaml:"server"`

	Storage struct {
		TempDir    string `yaml:"temp_dir"`
		ReportsDir string `yaml:"reports_dir"`
		Database   string `yaml:"database"`
	} `yaml:"storage"`

	Cleanup struct {
		IntervalMinutes int `yaml:"interval_minutes"`
		MaxAgeHours     int `yaml:"max_age_hours"`
	} `yaml:"cleanup"`

	Limits struct {
		MaxFileSizeMB int `yaml:"max_file_size_mb"`
	} `yaml:"limits"`

	// SummaryEndpoint is where the pipeline submits extracted audio.
	// Empty means the server's own /api/summary route.
	SummaryEndpoint string `yaml:"summary_endpoint"`

	Provider Provider `yaml:"-"`
}

// Provider holds the generative-endpoint settings. All fields except the
// prompt are required, but validation happens per request in the proxy so a
// misconfigured server still boots and reports the error over HTTP.
type Provider struct {
	APIKey  string
	Prompt  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// Load reads the YAML file, overlays provider settings from the
// environment (a .env file is honored when present), and applies defaults.
func Load(path string) (*Config, error) {
	// Missing .env is fine; real environments set variables directly.
	_ = godotenv.Load()

	var cfg Config
	if path != "" {
		file, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(file, &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	cfg.Provider = Provider{
		APIKey:  os.Getenv("GEMINI_API_KEY"),
		Prompt:  os.Getenv("GEMINI_PROMPT"),
		BaseURL: os.Getenv("GEMINI_BASE_URL"),
		Model:   os.Getenv("GEMINI_MODEL_NAME"),
		Timeout: envSeconds("GEMINI_TIMEOUT_SECONDS", 120),
	}

	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.Host == "" {
		c.Server.Host = "0.0.0.0"
	}
	if c.Storage.TempDir == "" {
		c.Storage.TempDir = "temp"
	}
	if c.Storage.ReportsDir == "" {
		c.Storage.ReportsDir = "reports"
	}
	if c.Storage.Database == "" {
		c.Storage.Database = "data/insights.db"
	}
	if c.Cleanup.IntervalMinutes == 0 {
		c.Cleanup.IntervalMinutes = 30
	}
	if c.Cleanup.MaxAgeHours == 0 {
		c.Cleanup.MaxAgeHours = 6
	}
	if c.Limits.MaxFileSizeMB == 0 {
		c.Limits.MaxFileSizeMB = 500
	}
}

func envSeconds(key string, fallback int) time.Duration {
	if raw := os.Getenv(key); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			return time.Duration(n) * time.Second
		}
	}
	return time.Duration(fallback) * time.Second
}
