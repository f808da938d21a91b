package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/FairForge/geniebench/internal/compare"
)

var compareCmd = &cobra.Command{
	Use:   "compare <snapshot.json> [snapshot.json...]",
	Short: "Compare metrics snapshots from different platforms",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		logger, err := buildLogger(cfg.Server.LogLevel)
		if err != nil {
			return err
		}
		defer func() { _ = logger.Sync() }()

		analyzer := compare.NewAnalyzer(logger)
		if err := analyzer.Load(args); err != nil {
			return err
		}

		summary := analyzer.GenerateSummary()
		if err := printJSON(summary); err != nil {
			return err
		}

		for _, insight := range summary.Insights {
			fmt.Println("-", insight)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(compareCmd)
}
