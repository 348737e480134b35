// Zterm is a terminal front end for sending ZEC through a zcashd node.
//
// Running without arguments opens the interactive send screen. The
// subcommands cover scripted sends and quick node queries.
//
// Usage:
//
//	zterm [command] [flags]
//
// Configuration is read from ~/.zterm/config.yaml and ZTERM_* environment
// variables. See 'zterm --help' for available commands.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// set with -ldflags "-X main.version=..."
var version = "dev"

var (
	configPath string
	logLevel   string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "zterm",
	Short: "Send ZEC from the terminal",
	Long: `A terminal UI for composing and submitting Zcash transactions
through a zcashd-compatible JSON-RPC node.

If no command is specified, the interactive send screen will launch.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runTUI,
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default ~/.zterm/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error")

	rootCmd.AddCommand(sendCmd, classifyCmd, balanceCmd, statusCmd, addressesCmd, versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "zterm %s\n", version)
	},
}
