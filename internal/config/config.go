// Package config holds the benchmark harness configuration: a validated
// struct loaded from YAML with environment overrides.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Target  TargetConfig  `yaml:"target"`
	Load    LoadConfig    `yaml:"load"`
	Server  ServerConfig  `yaml:"server"`
	Output  OutputConfig  `yaml:"output"`
	Emit    EmitConfig    `yaml:"emit"`
	Archive ArchiveConfig `yaml:"archive"`
}

// TargetConfig describes the endpoint under test.
type TargetConfig struct {
	Endpoint   string        `yaml:"endpoint"`
	Timeout    time.Duration `yaml:"timeout"`
	MaxRetries int           `yaml:"max_retries"`
	RetryDelay time.Duration `yaml:"retry_delay"`
}

// LoadConfig describes how traffic is generated.
type LoadConfig struct {
	RPS             float64 `yaml:"rps"`
	NumUsers        int     `yaml:"num_users"`
	DurationSeconds int     `yaml:"duration_seconds"`
	RampUpSeconds   int     `yaml:"ramp_up_seconds"`
	MaxInFlight     int     `yaml:"max_in_flight"`
}

// ServerConfig describes the status server.
type ServerConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Addr     string `yaml:"addr"`
	LogLevel string `yaml:"log_level"`
}

// OutputConfig describes where results land.
type OutputConfig struct {
	Dir      string `yaml:"dir"`
	Platform string `yaml:"platform"`
}

// EmitConfig describes the optional CloudWatch sink.
type EmitConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Region    string `yaml:"region"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
}

// ArchiveConfig describes the optional S3 snapshot archive.
type ArchiveConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Endpoint  string `yaml:"endpoint"`
	Region    string `yaml:"region"`
	Bucket    string `yaml:"bucket"`
	Prefix    string `yaml:"prefix"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Target: TargetConfig{
			Endpoint:   "http://localhost:8000/chat",
			Timeout:    30 * time.Second,
			MaxRetries: 3,
			RetryDelay: time.Second,
		},
		Load: LoadConfig{
			RPS:             10,
			NumUsers:        5,
			DurationSeconds: 60,
			RampUpSeconds:   10,
			MaxInFlight:     100,
		},
		Server: ServerConfig{
			Addr:     ":9090",
			LogLevel: "info",
		},
		Output: OutputConfig{
			Dir:      "results",
			Platform: "local",
		},
		Emit:    EmitConfig{Region: "us-east-1"},
		Archive: ArchiveConfig{Region: "us-east-1"},
	}
}

// Load reads path, applies environment overrides and validates. An
// empty path yields defaults plus overrides.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	LoadFromEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks field ranges.
func (c *Config) Validate() error {
	if c.Target.Endpoint == "" {
		return fmt.Errorf("config: target.endpoint is required")
	}
	if c.Target.MaxRetries < 1 {
		return fmt.Errorf("config: target.max_retries must be at least 1, got %d", c.Target.MaxRetries)
	}
	if c.Load.RPS <= 0 {
		return fmt.Errorf("config: load.rps must be positive, got %f", c.Load.RPS)
	}
	if c.Load.NumUsers < 1 {
		return fmt.Errorf("config: load.num_users must be at least 1, got %d", c.Load.NumUsers)
	}
	if c.Load.DurationSeconds < 1 {
		return fmt.Errorf("config: load.duration_seconds must be at least 1, got %d", c.Load.DurationSeconds)
	}
	if c.Load.RampUpSeconds < 0 {
		return fmt.Errorf("config: load.ramp_up_seconds must not be negative, got %d", c.Load.RampUpSeconds)
	}
	if c.Load.MaxInFlight < 1 {
		return fmt.Errorf("config: load.max_in_flight must be at least 1, got %d", c.Load.MaxInFlight)
	}
	if c.Archive.Enabled && c.Archive.Bucket == "" {
		return fmt.Errorf("config: archive.bucket is required when archiving is enabled")
	}
	return nil
}

// Duration returns the run duration.
func (c *Config) Duration() time.Duration {
	return time.Duration(c.Load.DurationSeconds) * time.Second
}

// RampUp returns the ramp-up window.
func (c *Config) RampUp() time.Duration {
	return time.Duration(c.Load.RampUpSeconds) * time.Second
}
