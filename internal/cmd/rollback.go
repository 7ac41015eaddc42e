package cmd

import (
	"strconv"

	"github.com/spf13/cobra"

	"github.com/snowcli/snowctl/internal/client"
)

var (
	rollbackSession string
	rollbackFiles   bool
	rollbackOnly    []string
)

var rollbackCmd = &cobra.Command{
	Use:   "rollback",
	Short: "Inspect rollback points and roll a session back",
}

var rollbackPointsCmd = &cobra.Command{
	Use:   "points",
	Short: "List the session's rollback points",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if rollbackSession == "" {
			return emitInvalidArgs("rollback points requires --session")
		}
		return emitResult(newClient(cmd).ListRollbackPoints(cmd.Context(), rollbackSession))
	},
}

var rollbackToCmd = &cobra.Command{
	Use:   "to <message-index>",
	Short: "Roll the session back to a message index",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if msg := validateRollbackArgs(rollbackSession, rollbackFiles, rollbackOnly); msg != "" {
			return emitInvalidArgs(msg)
		}
		index, err := strconv.Atoi(args[0])
		if err != nil {
			return emitInvalidArgs("the message index must be an integer")
		}
		return emitResult(newClient(cmd).Rollback(cmd.Context(), client.RollbackOptions{
			SessionID:     rollbackSession,
			MessageIndex:  index,
			RollbackFiles: rollbackFiles,
			SelectedFiles: rollbackOnly,
		}))
	},
}

func init() {
	rootCmd.AddCommand(rollbackCmd)
	rollbackCmd.AddCommand(rollbackPointsCmd, rollbackToCmd)

	rollbackCmd.PersistentFlags().StringVarP(&rollbackSession, "session", "s", "", "session id to roll back")
	rollbackToCmd.Flags().BoolVar(&rollbackFiles, "files", false, "also restore files")
	rollbackToCmd.Flags().StringArrayVar(&rollbackOnly, "file", nil, "restore only this file (repeatable, requires --files)")
}

// validateRollbackArgs checks the rollback flag combination.
func validateRollbackArgs(session string, files bool, selected []string) string {
	switch {
	case session == "":
		return "rollback requires --session"
	case len(selected) > 0 && !files:
		return "--file requires --files"
	default:
		return ""
	}
}
