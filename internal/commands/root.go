// Copyright (c) 2024, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package commands

import (
	"fmt"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"github.com/autobrr/plexbrr/internal/config"
	"github.com/autobrr/plexbrr/internal/logger"
	"github.com/autobrr/plexbrr/internal/services/plex"
)

const defaultConfigPath = "config.toml"

type commandContext struct {
	configFlag   string
	logLevelFlag string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		cfg, err := config.Load(strings.TrimSpace(c.configFlag))
		if err != nil {
			c.configErr = err
			return
		}
		if c.logLevelFlag != "" {
			cfg.LogLevel = c.logLevelFlag
		}
		logger.Init(cfg.LogLevel)
		c.config = cfg
	})
	return c.config, c.configErr
}

// plexClient returns a client for the configured media server
func (c *commandContext) plexClient() (*plex.Client, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		if !config.HasRequiredEnvVars() {
			return nil, fmt.Errorf("%w (set [plex] in %s or PLEXBRR__PLEX_HOST and PLEXBRR__PLEX_TOKEN)", err, c.configFlag)
		}
		return nil, err
	}
	return plex.NewClient(cfg.Plex), nil
}

// NewRootCommand builds the plexbrr command tree
func NewRootCommand() *cobra.Command {
	ctx := &commandContext{}

	rootCmd := &cobra.Command{
		Use:           "plexbrr",
		Short:         "Plex Media Server activity and metadata client",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "version" {
				return nil
			}
			_, err := ctx.ensureConfig()
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&ctx.configFlag, "config", "c", defaultConfigPath, "Configuration file path")
	rootCmd.PersistentFlags().StringVar(&ctx.logLevelFlag, "log-level", "", "Override the configured log level")

	rootCmd.AddCommand(newServeCommand(ctx))
	rootCmd.AddCommand(newActivityCommand(ctx))
	rootCmd.AddCommand(newMetadataCommand(ctx))
	rootCmd.AddCommand(newSessionsCommand(ctx))
	rootCmd.AddCommand(newImageCommand(ctx))
	rootCmd.AddCommand(newHistoryCommand(ctx))
	rootCmd.AddCommand(newVersionCommand())

	return rootCmd
}
