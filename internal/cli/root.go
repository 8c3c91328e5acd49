package cli

import (
	"os"

	"github.com/spf13/cobra"
)

var cfg *Config

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	cfg = DefaultConfig()

	rootCmd := &cobra.Command{
		Use:   "securechat",
		Short: "Client for the SecureChat private-messaging relay",
		Long: `securechat is the interactive client for the SecureChat relay.

It connects over websocket, registers or logs in an account, and
exchanges private messages with peers that are currently online.`,
		SilenceUsage: true,
	}

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfg.ServerURL, "server", cfg.ServerURL, "Server URL (env: SECURECHAT_SERVER)")
	rootCmd.PersistentFlags().DurationVar(&cfg.RequestTimeout, "timeout", cfg.RequestTimeout, "Timeout for request/response operations")
	rootCmd.PersistentFlags().BoolVarP(&cfg.Verbose, "verbose", "v", cfg.Verbose, "Verbose output")

	// Add subcommands
	rootCmd.AddCommand(newChatCmd())
	rootCmd.AddCommand(newHealthCmd())

	return rootCmd
}

// Execute runs the root command
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
