// Package cmd provides the CLI commands for snowctl.
package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/snowcli/snowctl/internal/client"
	"github.com/snowcli/snowctl/internal/config"
	"github.com/snowcli/snowctl/internal/logging"
)

var (
	// Global flags
	hostFlag           string
	portFlag           int
	connectTimeoutFlag time.Duration
	requestTimeoutFlag time.Duration
	configPath         string
	debug              bool
	logLevel           string
	logFile            string

	// Loaded configuration
	cfg *config.Config
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "snowctl",
	Short: "snowctl - client for the Snow chat-orchestration server",
	Long: `snowctl talks to a Snow SSE server over HTTP and Server-Sent Events.

Each invocation performs one operation (chat message, tool confirmation,
question answer, agent switch, session management, rollback, health check)
and prints exactly one JSON result object to stdout. The exit code is
non-zero for any result other than success or a pending interactive
request.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "help" || cmd.Name() == "completion" {
			return nil
		}

		var err error
		if configPath != "" {
			cfg, err = config.Load(configPath)
		} else {
			cfg, err = config.LoadDefault()
		}
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}

		// Priority: --log-level flag > --debug flag > rc file > info.
		effectiveLogLevel := cfg.Log.Level
		if logLevel != "" {
			effectiveLogLevel = logLevel
		} else if debug {
			effectiveLogLevel = "debug"
		}
		effectiveLogFile := cfg.Log.File
		if logFile != "" {
			effectiveLogFile = logFile
		}
		if err := logging.Initialize(logging.Config{
			Level: effectiveLogLevel,
			File: logging.FileConfig{
				Path:       effectiveLogFile,
				MaxSizeMB:  cfg.Log.MaxSizeMB,
				MaxBackups: cfg.Log.MaxBackups,
				Compress:   cfg.Log.Compress,
			},
		}); err != nil {
			return fmt.Errorf("failed to initialize logging: %w", err)
		}
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		return logging.Close()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&hostFlag, "host", "H", config.DefaultHost, "Snow server host")
	rootCmd.PersistentFlags().IntVarP(&portFlag, "port", "p", config.DefaultPort, "Snow server port")
	rootCmd.PersistentFlags().DurationVar(&connectTimeoutFlag, "connect-timeout", config.DefaultConnectTimeout, "timeout for connecting and the stream handshake")
	rootCmd.PersistentFlags().DurationVar(&requestTimeoutFlag, "request-timeout", config.DefaultRequestTimeout, "timeout for a whole operation")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to the rc file (default ~/.snowctlrc)")
	rootCmd.PersistentFlags().BoolVarP(&debug, "debug", "v", false, "enable debug logging to stderr")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "write logs to this file (rotated)")
}

// newClient builds the protocol client, letting explicitly set flags
// override the rc file.
func newClient(cmd *cobra.Command) *client.Client {
	host := cfg.Host
	port := cfg.Port
	connectTimeout := cfg.ConnectTimeout
	requestTimeout := cfg.RequestTimeout

	flags := cmd.Flags()
	if flags.Changed("host") {
		host = hostFlag
	}
	if flags.Changed("port") {
		port = portFlag
	}
	if flags.Changed("connect-timeout") {
		connectTimeout = connectTimeoutFlag
	}
	if flags.Changed("request-timeout") {
		requestTimeout = requestTimeoutFlag
	}

	return client.New(host, port,
		client.WithConnectTimeout(connectTimeout),
		client.WithRequestTimeout(requestTimeout),
	)
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}
