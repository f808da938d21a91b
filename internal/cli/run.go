package cli

import (
	"time"

	"github.com/spf13/cobra"
)

var (
	runUsers    int
	runDuration time.Duration
	runRampUp   time.Duration
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a concurrent-users load test",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp()
		if err != nil {
			return err
		}

		ctx, cancel := runContext()
		defer cancel()
		defer a.close(ctx)

		users := runUsers
		if users == 0 {
			users = a.cfg.Load.NumUsers
		}
		duration := runDuration
		if duration == 0 {
			duration = a.cfg.Duration()
		}
		rampUp := runRampUp
		if rampUp == 0 {
			rampUp = a.cfg.RampUp()
		}

		result, err := a.tester.RunConcurrentUsers(ctx, users, a.chatScenario(), duration, rampUp)
		if err != nil {
			return err
		}

		if err := a.report(ctx, result, "concurrent"); err != nil {
			return err
		}
		printRunSummary(result)
		return nil
	},
}

func init() {
	runCmd.Flags().IntVar(&runUsers, "users", 0, "number of concurrent users (default from config)")
	runCmd.Flags().DurationVar(&runDuration, "duration", 0, "test duration (default from config)")
	runCmd.Flags().DurationVar(&runRampUp, "ramp-up", 0, "ramp-up window (default from config)")
	rootCmd.AddCommand(runCmd)
}
