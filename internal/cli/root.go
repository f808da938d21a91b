// Package cli wires the benchmark harness into its command-line
// surface: run, sustain, stress, compare and health subcommands.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/FairForge/geniebench/internal/config"
)

var (
	cfgFile      string
	flagEndpoint string
	flagPlatform string
	flagOutDir   string
	flagProvider string

	rootCmd = &cobra.Command{
		Use:   "geniebench",
		Short: "Load-test harness for the travel-planning chat endpoint",
		Long: `geniebench drives synthetic traffic against a chat endpoint and
aggregates latency, throughput and reliability statistics into
per-platform snapshots that can be compared across environments.`,
		SilenceUsage: true,
	}
)

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "path to YAML config file")
	rootCmd.PersistentFlags().StringVar(&flagEndpoint, "endpoint", "", "target endpoint (overrides config)")
	rootCmd.PersistentFlags().StringVar(&flagPlatform, "platform", "", "platform tag for snapshots (overrides config)")
	rootCmd.PersistentFlags().StringVar(&flagOutDir, "output-dir", "", "directory for result files (overrides config)")
	rootCmd.PersistentFlags().StringVar(&flagProvider, "provider", "cloud", "platform provider: cloud, notebook or cluster")
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}
	if flagEndpoint != "" {
		cfg.Target.Endpoint = flagEndpoint
	}
	if flagPlatform != "" {
		cfg.Output.Platform = flagPlatform
	}
	if flagOutDir != "" {
		cfg.Output.Dir = flagOutDir
	}
	return cfg, nil
}

func buildLogger(level string) (*zap.Logger, error) {
	zcfg := zap.NewProductionConfig()
	if level != "" {
		lvl, err := zap.ParseAtomicLevel(level)
		if err != nil {
			return nil, fmt.Errorf("parse log level %q: %w", level, err)
		}
		zcfg.Level = lvl
	}
	return zcfg.Build()
}
