// Copyright (c) 2024, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package commands

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"
)

func newImageCommand(ctx *commandContext) *cobra.Command {
	var width, height int
	var output string

	cmd := &cobra.Command{
		Use:   "image <path>",
		Short: "Download an image through the media server transcoder",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if output == "" {
				return fmt.Errorf("--output is required")
			}

			client, err := ctx.plexClient()
			if err != nil {
				return err
			}

			img, err := client.GetImage(cmd.Context(), args[0], strconv.Itoa(width), strconv.Itoa(height))
			if err != nil {
				return fmt.Errorf("fetch image: %w", err)
			}

			if err := os.WriteFile(output, img.Data, 0o644); err != nil {
				return fmt.Errorf("write image: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d bytes (%s) to %s\n", len(img.Data), img.ContentType, output)
			return nil
		},
	}

	cmd.Flags().IntVar(&width, "width", 0, "Target width, applied only together with --height")
	cmd.Flags().IntVar(&height, "height", 0, "Target height, applied only together with --width")
	cmd.Flags().StringVarP(&output, "output", "o", "", "File to write the image to")
	return cmd
}
