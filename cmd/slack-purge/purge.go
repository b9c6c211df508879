package main

import (
	"io/fs"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/chrisedwards/slack-purge/internal/config"
	"github.com/chrisedwards/slack-purge/internal/purge"
	"github.com/chrisedwards/slack-purge/internal/slack"
)

func runPurge(cmd *cobra.Command, args []string) error {
	// Arguments are valid past this point; further errors are not usage errors.
	cmd.SilenceUsage = true

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	logger := newLogger(cfg.LogLevel, cmd.ErrOrStderr())
	if cfg.TokenIsPlaceholder() {
		logger.Warn().Msg("Token seems incorrect. Set token in the config file or SLACK_PURGE_TOKEN.")
	}

	client := slack.NewClient(cfg.Token).WithBaseURL(cfg.BaseURL)
	driver := purge.New(client, args[0], purge.Options{
		Delay:          cfg.Delay,
		RateLimitPause: cfg.RateLimitPause,
		DelayStep:      cfg.DelayStep,
		PageSize:       cfg.PageSize,
		Out:            cmd.OutOrStdout(),
		ErrOut:         cmd.ErrOrStderr(),
		Logger:         &logger,
	})

	_, err = driver.Run(cmd.Context())
	return err
}

// loadConfig resolves configuration from .env, the config file, the
// environment and command-line flags, in increasing precedence.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, errors.Wrap(err, "loading .env")
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	if f := cmd.Flags().Lookup("delay"); f != nil && f.Changed {
		delay, err := cmd.Flags().GetDuration("delay")
		if err != nil {
			return nil, err
		}
		cfg.Delay = delay
	}

	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid configuration")
	}
	return cfg, nil
}
