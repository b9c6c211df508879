package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// Version information, injected at build time via ldflags.
var (
	Version   = "dev"
	Build     = "unknown"
	BuildTime = "unknown"
)

var (
	configPath string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:   "slack-purge CHANNEL_ID",
	Short: "Delete every message and thread reply in a Slack channel",
	Long: `slack-purge deletes all messages in a Slack channel, including every reply
in every thread, using the Slack Web API.

The channel ID is the last part of the channel URL:
https://mycompany.slack.com/messages/CHANNEL_ID/

The token needs the channels:history, groups:history, im:history,
mpim:history and chat:write scopes. Set it in the config file or in the
SLACK_PURGE_TOKEN environment variable (a .env file is also read).

Deletions are paced and slow down automatically whenever Slack reports
rate limiting.`,
	Version:       fmt.Sprintf("%s (build %s, %s)", Version, Build, BuildTime),
	Args:          cobra.ExactArgs(1),
	SilenceErrors: true,
	RunE:          runPurge,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (default ~/.config/slack-purge/slack-purge.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error (overrides config)")
	rootCmd.Flags().Duration("delay", 0, "initial pause between deletions, e.g. 500ms (overrides config)")

	rootCmd.AddCommand(configCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := execute(ctx)
	stop()
	os.Exit(code)
}

// execute runs the root command and returns the process exit code.
func execute(ctx context.Context) int {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(rootCmd.ErrOrStderr(), err)
		return 1
	}
	return 0
}
