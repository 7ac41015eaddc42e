package cmd

import (
	"github.com/spf13/cobra"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check that the Snow server is reachable",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return emitResult(newClient(cmd).HealthCheck(cmd.Context()))
	},
}

func init() {
	rootCmd.AddCommand(healthCmd)
}
