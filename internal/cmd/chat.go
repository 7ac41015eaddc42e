package cmd

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/snowcli/snowctl/internal/client"
)

var (
	chatSession     string
	chatImages      []string
	chatNoYolo      bool
	chatLoadSession string
	chatSwitchAgent string
)

// chatCmd sends one chat message and waits for the turn to finish or for
// the server to ask something back.
var chatCmd = &cobra.Command{
	Use:   "chat <message>",
	Short: "Send a chat message and wait for the response",
	Long: `Send a chat message to the Snow server and wait until the turn
completes, fails, or the server requests confirmation or an answer.

The optional --load-session and --switch-agent flags run before the
message is sent, chaining the three steps in one invocation:

  snowctl chat --load-session 01JD... --switch-agent coder "fix the test"`,
	Args: cobra.ArbitraryArgs,
	RunE: runChat,
}

func init() {
	rootCmd.AddCommand(chatCmd)

	chatCmd.Flags().StringVarP(&chatSession, "session", "s", "", "session id for a continued conversation")
	chatCmd.Flags().StringArrayVarP(&chatImages, "image", "i", nil, "local image file to attach (repeatable)")
	chatCmd.Flags().BoolVar(&chatNoYolo, "no-yolo", false, "route non-sensitive tools through confirmation too")
	chatCmd.Flags().StringVar(&chatLoadSession, "load-session", "", "load this session before sending")
	chatCmd.Flags().StringVar(&chatSwitchAgent, "switch-agent", "", "switch to this agent before sending")
}

func runChat(cmd *cobra.Command, args []string) error {
	message := strings.Join(args, " ")
	if message == "" && chatLoadSession == "" && chatSwitchAgent == "" {
		return emitInvalidArgs("a message is required (or --load-session / --switch-agent to run those steps alone)")
	}

	c := newClient(cmd)
	ctx := cmd.Context()
	sessionID := chatSession

	if chatLoadSession != "" {
		res := c.LoadSession(ctx, chatLoadSession)
		if res.Status != client.StatusSuccess {
			return emitResult(res)
		}
		sessionID = chatLoadSession
		if message == "" && chatSwitchAgent == "" {
			return emitResult(res)
		}
	}

	if chatSwitchAgent != "" {
		res := c.SwitchAgent(ctx, chatSwitchAgent, sessionID)
		if res.Status != client.StatusSuccess {
			return emitResult(res)
		}
		if message == "" {
			return emitResult(res)
		}
		if res.SessionID != "" {
			sessionID = res.SessionID
		}
	}

	return emitResult(c.SendChat(ctx, client.ChatOptions{
		Content:   message,
		SessionID: sessionID,
		Images:    chatImages,
		YoloMode:  !chatNoYolo,
	}))
}
