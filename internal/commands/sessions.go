// Copyright (c) 2024, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/autobrr/plexbrr/internal/services/plex"
)

func newSessionsCommand(ctx *commandContext) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "Dump the raw sessions document",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var outputFormat plex.OutputFormat
			switch format {
			case "raw", "":
				outputFormat = plex.FormatRaw
			case "dict":
				outputFormat = plex.FormatDict
			case "json":
				outputFormat = plex.FormatJSON
			default:
				return fmt.Errorf("unknown format %q, want raw, dict or json", format)
			}

			client, err := ctx.plexClient()
			if err != nil {
				return err
			}

			result, err := client.GetSessions(cmd.Context(), outputFormat)
			if err != nil {
				return fmt.Errorf("fetch sessions: %w", err)
			}

			out := cmd.OutOrStdout()
			switch v := result.(type) {
			case []byte:
				_, err = out.Write(v)
			case string:
				_, err = fmt.Fprintln(out, v)
			default:
				err = writeJSON(cmd, v)
			}
			return err
		},
	}

	cmd.Flags().StringVar(&format, "format", "raw", "Output format: raw, dict or json")
	return cmd
}
