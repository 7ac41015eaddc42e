package cmd

import (
	"github.com/spf13/cobra"

	"github.com/snowcli/snowctl/internal/logging"
)

var (
	sessionPage     int
	sessionPageSize int
	sessionQuery    string
)

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Manage server-side sessions",
}

var sessionListCmd = &cobra.Command{
	Use:   "list",
	Short: "List sessions",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		logging.Session().Debug("listing sessions", "page", sessionPage, "page_size", sessionPageSize, "query", sessionQuery)
		return emitResult(newClient(cmd).ListSessions(cmd.Context(), sessionPage, sessionPageSize, sessionQuery))
	},
}

var sessionLoadCmd = &cobra.Command{
	Use:   "load <session-id>",
	Short: "Load a stored session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return emitResult(newClient(cmd).LoadSession(cmd.Context(), args[0]))
	},
}

var sessionDeleteCmd = &cobra.Command{
	Use:   "delete <session-id>",
	Short: "Delete a stored session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return emitResult(newClient(cmd).DeleteSession(cmd.Context(), args[0]))
	},
}

func init() {
	rootCmd.AddCommand(sessionCmd)
	sessionCmd.AddCommand(sessionListCmd, sessionLoadCmd, sessionDeleteCmd)

	sessionListCmd.Flags().IntVar(&sessionPage, "page", 0, "page number, starting at 0")
	sessionListCmd.Flags().IntVar(&sessionPageSize, "page-size", 20, "sessions per page")
	sessionListCmd.Flags().StringVarP(&sessionQuery, "query", "q", "", "search filter")
}
