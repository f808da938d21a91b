package cli

import (
	"time"

	"github.com/spf13/cobra"
)

var (
	sustainRPS      float64
	sustainDuration time.Duration
	sustainRampUp   time.Duration
)

var sustainCmd = &cobra.Command{
	Use:   "sustain",
	Short: "Run a sustained fixed-rate load test",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp()
		if err != nil {
			return err
		}

		ctx, cancel := runContext()
		defer cancel()
		defer a.close(ctx)

		rps := sustainRPS
		if rps == 0 {
			rps = a.cfg.Load.RPS
		}
		duration := sustainDuration
		if duration == 0 {
			duration = a.cfg.Duration()
		}
		rampUp := sustainRampUp
		if rampUp == 0 {
			rampUp = a.cfg.RampUp()
		}

		result, err := a.tester.RunSustained(ctx, rps, a.chatScenario(), duration, rampUp)
		if err != nil {
			return err
		}

		if err := a.report(ctx, result, "sustained"); err != nil {
			return err
		}
		printRunSummary(result)
		return nil
	},
}

func init() {
	sustainCmd.Flags().Float64Var(&sustainRPS, "rps", 0, "target requests per second (default from config)")
	sustainCmd.Flags().DurationVar(&sustainDuration, "duration", 0, "test duration (default from config)")
	sustainCmd.Flags().DurationVar(&sustainRampUp, "ramp-up", 0, "ramp-up window (default from config)")
	rootCmd.AddCommand(sustainCmd)
}
