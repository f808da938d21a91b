package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 30*time.Second, cfg.Target.Timeout)
	assert.Equal(t, 3, cfg.Target.MaxRetries)
	assert.Equal(t, 100, cfg.Load.MaxInFlight)
}

func TestLoad_FromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
target:
  endpoint: http://bench.internal:8000/chat
  timeout: 10s
  max_retries: 5
  retry_delay: 500ms
load:
  rps: 50
  num_users: 20
  duration_seconds: 120
  ramp_up_seconds: 30
  max_in_flight: 200
output:
  platform: aws-ec2
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "http://bench.internal:8000/chat", cfg.Target.Endpoint)
	assert.Equal(t, 10*time.Second, cfg.Target.Timeout)
	assert.Equal(t, 500*time.Millisecond, cfg.Target.RetryDelay)
	assert.Equal(t, 50.0, cfg.Load.RPS)
	assert.Equal(t, 200, cfg.Load.MaxInFlight)
	assert.Equal(t, "aws-ec2", cfg.Output.Platform)
	assert.Equal(t, 2*time.Minute, cfg.Duration())
	assert.Equal(t, 30*time.Second, cfg.RampUp())
	// Unset sections keep defaults.
	assert.Equal(t, "results", cfg.Output.Dir)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("GENIEBENCH_ENDPOINT", "http://override:9000/chat")
	t.Setenv("GENIEBENCH_RPS", "75")
	t.Setenv("GENIEBENCH_PLATFORM", "colab")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "http://override:9000/chat", cfg.Target.Endpoint)
	assert.Equal(t, 75.0, cfg.Load.RPS)
	assert.Equal(t, "colab", cfg.Output.Platform)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestValidate_Rejections(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty endpoint", func(c *Config) { c.Target.Endpoint = "" }},
		{"zero retries", func(c *Config) { c.Target.MaxRetries = 0 }},
		{"zero rps", func(c *Config) { c.Load.RPS = 0 }},
		{"zero users", func(c *Config) { c.Load.NumUsers = 0 }},
		{"zero duration", func(c *Config) { c.Load.DurationSeconds = 0 }},
		{"negative ramp", func(c *Config) { c.Load.RampUpSeconds = -1 }},
		{"zero in-flight", func(c *Config) { c.Load.MaxInFlight = 0 }},
		{"archive without bucket", func(c *Config) { c.Archive.Enabled = true }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
