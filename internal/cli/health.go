package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Probe the target endpoint once and report its status",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp()
		if err != nil {
			return err
		}

		ctx, cancel := runContext()
		defer cancel()
		defer a.close(ctx)

		status := a.client.HealthCheck(ctx)
		if err := printJSON(status); err != nil {
			return err
		}
		if !status.Healthy {
			return fmt.Errorf("endpoint %s is unhealthy", a.cfg.Target.Endpoint)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(healthCmd)
}
