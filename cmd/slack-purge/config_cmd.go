package main

import (
	"fmt"
	"io"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/chrisedwards/slack-purge/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show the effective configuration",
	Long: `Show the configuration slack-purge would run with, after merging the
config file, .env, SLACK_PURGE_* environment variables and flags.
The token is redacted.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		printConfig(cmd.OutOrStdout(), cfg)
		return nil
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a starter config file",
	Long: `Write a config file with default settings and a placeholder token to the
--config path, or to ~/.config/slack-purge/slack-purge.yaml.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		force, _ := cmd.Flags().GetBool("force")
		path := configPath
		if path == "" {
			path = config.DefaultConfigPath()
		}
		if err := writeStarterConfig(path, force); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
		return nil
	},
}

func init() {
	configInitCmd.Flags().Bool("force", false, "overwrite an existing file")
	configCmd.AddCommand(configInitCmd)
}

func writeStarterConfig(path string, force bool) error {
	if _, err := os.Stat(path); err == nil && !force {
		return errors.Errorf("%s already exists (use --force to overwrite)", path)
	}
	return config.Default().Save(path)
}

func printConfig(w io.Writer, cfg *config.Config) {
	file := cfg.ConfigFile()
	if file == "" {
		file = "(none, using defaults)"
	}
	fmt.Fprintf(w, "Config file:      %s\n", file)
	fmt.Fprintf(w, "Token:            %s\n", cfg.RedactedToken())
	fmt.Fprintf(w, "Base URL:         %s\n", cfg.BaseURL)
	fmt.Fprintf(w, "Delay:            %s\n", cfg.Delay)
	fmt.Fprintf(w, "Rate limit pause: %s\n", cfg.RateLimitPause)
	fmt.Fprintf(w, "Delay step:       %s\n", cfg.DelayStep)
	fmt.Fprintf(w, "Page size:        %d\n", cfg.PageSize)
	fmt.Fprintf(w, "Log level:        %s\n", cfg.LogLevel)
}
