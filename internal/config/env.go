package config

import (
	"os"
	"strconv"
	"time"
)

// LoadFromEnv overrides configuration from environment variables.
func LoadFromEnv(cfg *Config) {
	if endpoint := os.Getenv("GENIEBENCH_ENDPOINT"); endpoint != "" {
		cfg.Target.Endpoint = endpoint
	}

	if timeout := os.Getenv("GENIEBENCH_TIMEOUT"); timeout != "" {
		if d, err := time.ParseDuration(timeout); err == nil {
			cfg.Target.Timeout = d
		}
	}

	if rps := os.Getenv("GENIEBENCH_RPS"); rps != "" {
		if v, err := strconv.ParseFloat(rps, 64); err == nil {
			cfg.Load.RPS = v
		}
	}

	if platform := os.Getenv("GENIEBENCH_PLATFORM"); platform != "" {
		cfg.Output.Platform = platform
	}

	if dir := os.Getenv("GENIEBENCH_OUTPUT_DIR"); dir != "" {
		cfg.Output.Dir = dir
	}

	if logLevel := os.Getenv("GENIEBENCH_LOG_LEVEL"); logLevel != "" {
		cfg.Server.LogLevel = logLevel
	}

	// AWS credentials for the optional sinks.
	if key := os.Getenv("AWS_ACCESS_KEY_ID"); key != "" && cfg.Emit.AccessKey == "" {
		cfg.Emit.AccessKey = key
		cfg.Emit.SecretKey = os.Getenv("AWS_SECRET_ACCESS_KEY")
	}
}
