// Copyright (c) 2024, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newMetadataCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "metadata <ratingKey>",
		Short: "Show normalized metadata for a library item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.plexClient()
			if err != nil {
				return err
			}

			metadata, err := client.GetMetadataDetails(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("fetch metadata: %w", err)
			}

			return writeJSON(cmd, metadata)
		},
	}
}
