package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var (
	stressStartRPS float64
	stressMaxRPS   float64
	stressRampUp   time.Duration
	stressHold     time.Duration
)

var stressCmd = &cobra.Command{
	Use:   "stress",
	Short: "Ramp load from a start rate to a max rate and hold it",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp()
		if err != nil {
			return err
		}

		ctx, cancel := runContext()
		defer cancel()
		defer a.close(ctx)

		result, err := a.tester.RunStress(ctx, stressStartRPS, stressMaxRPS, a.chatScenario(), stressRampUp, stressHold)
		if err != nil {
			return err
		}

		if err := a.report(ctx, result.Overall, "stress"); err != nil {
			return err
		}

		printRunSummary(result.Overall)
		fmt.Println("\nper-level breakdown:")
		for _, level := range result.Levels {
			lr := result.ByLevel[level]
			fmt.Printf("  %4d rps: %5d requests, %.2f%% success, p95=%.1fms\n",
				level, lr.TotalRequests, lr.SuccessRate*100, lr.P95LatencyMS)
		}
		return nil
	},
}

func init() {
	stressCmd.Flags().Float64Var(&stressStartRPS, "start-rps", 1, "initial request rate")
	stressCmd.Flags().Float64Var(&stressMaxRPS, "max-rps", 50, "peak request rate")
	stressCmd.Flags().DurationVar(&stressRampUp, "ramp-up", time.Minute, "time to ramp from start to max")
	stressCmd.Flags().DurationVar(&stressHold, "hold", time.Minute, "time to hold the peak rate")
	rootCmd.AddCommand(stressCmd)
}
