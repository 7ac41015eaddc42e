package cmd

import (
	"github.com/spf13/cobra"
)

var agentSession string

var agentCmd = &cobra.Command{
	Use:   "agent",
	Short: "Inspect and switch the session's primary agent",
}

var agentSwitchCmd = &cobra.Command{
	Use:   "switch <agent-id>",
	Short: "Switch the session's primary agent",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return emitResult(newClient(cmd).SwitchAgent(cmd.Context(), args[0], agentSession))
	},
}

// agentListCmd lists the available agents. There is no listing endpoint;
// the client probes with an unknown agent id and repackages the error's
// availableAgents side channel.
var agentListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the available primary agents",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return emitResult(newClient(cmd).ListAgents(cmd.Context(), agentSession))
	},
}

func init() {
	rootCmd.AddCommand(agentCmd)
	agentCmd.AddCommand(agentSwitchCmd, agentListCmd)

	agentCmd.PersistentFlags().StringVarP(&agentSession, "session", "s", "", "session id (a session is created when omitted)")
}
