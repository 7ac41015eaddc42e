package cmd

import (
	"github.com/spf13/cobra"
)

var (
	respondSession   string
	respondRequestID string
	answerText       string
	abortSession     string
)

var confirmCmd = &cobra.Command{
	Use:   "confirm",
	Short: "Approve a pending tool confirmation",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if msg := validateRespondArgs(respondSession, respondRequestID); msg != "" {
			return emitInvalidArgs(msg)
		}
		return emitResult(newClient(cmd).ConfirmTool(cmd.Context(), respondSession, respondRequestID, true))
	},
}

var rejectCmd = &cobra.Command{
	Use:   "reject",
	Short: "Reject a pending tool confirmation",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if msg := validateRespondArgs(respondSession, respondRequestID); msg != "" {
			return emitInvalidArgs(msg)
		}
		return emitResult(newClient(cmd).ConfirmTool(cmd.Context(), respondSession, respondRequestID, false))
	},
}

var answerCmd = &cobra.Command{
	Use:   "answer",
	Short: "Answer a pending question from the assistant",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if msg := validateAnswerArgs(respondSession, respondRequestID, answerText); msg != "" {
			return emitInvalidArgs(msg)
		}
		return emitResult(newClient(cmd).AnswerQuestion(cmd.Context(), respondSession, respondRequestID, answerText))
	},
}

var abortCmd = &cobra.Command{
	Use:   "abort",
	Short: "Interrupt the session's running task",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if abortSession == "" {
			return emitInvalidArgs("abort requires --session")
		}
		return emitResult(newClient(cmd).Abort(cmd.Context(), abortSession))
	},
}

func init() {
	rootCmd.AddCommand(confirmCmd, rejectCmd, answerCmd, abortCmd)

	for _, c := range []*cobra.Command{confirmCmd, rejectCmd, answerCmd} {
		c.Flags().StringVarP(&respondSession, "session", "s", "", "session id of the pending request")
		c.Flags().StringVar(&respondRequestID, "request-id", "", "requestId of the pending request")
	}
	answerCmd.Flags().StringVar(&answerText, "text", "", "answer text")

	abortCmd.Flags().StringVarP(&abortSession, "session", "s", "", "session id to interrupt")
}

// validateRespondArgs checks the confirm/reject flag combination. A
// non-empty return is the invalid_args message.
func validateRespondArgs(session, requestID string) string {
	switch {
	case requestID == "":
		return "confirm and reject require --request-id"
	case session == "":
		return "confirm and reject require --session"
	default:
		return ""
	}
}

// validateAnswerArgs checks the answer flag combination.
func validateAnswerArgs(session, requestID, text string) string {
	switch {
	case requestID == "":
		return "answer requires --request-id"
	case text == "":
		return "answer requires --text"
	case session == "":
		return "answer requires --session"
	default:
		return ""
	}
}
