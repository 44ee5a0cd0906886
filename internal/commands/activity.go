// Copyright (c) 2024, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/autobrr/plexbrr/internal/types"
)

func newActivityCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "activity",
		Short: "Show what is currently playing",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.plexClient()
			if err != nil {
				return err
			}

			activity, err := client.GetCurrentActivity(cmd.Context())
			if err != nil {
				return fmt.Errorf("fetch activity: %w", err)
			}

			if jsonOutput {
				return writeJSON(cmd, activity)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Streams: %s\n", activity.StreamCount)
			if len(activity.Sessions) == 0 {
				return nil
			}
			fmt.Fprintln(out, renderActivity(activity))
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func renderActivity(activity *types.Activity) string {
	rows := make([][]string, 0, len(activity.Sessions))
	for _, session := range activity.Sessions {
		id := session.Identity()
		rows = append(rows, []string{
			id.SessionKey,
			id.Type,
			sessionTitle(session),
			id.User,
			id.Player,
			id.State,
			id.ProgressPercent + "%",
			decision(id),
		})
	}

	return renderTable(
		[]string{"Session", "Type", "Title", "User", "Player", "State", "Progress", "Decision"},
		rows,
		0, 6,
	)
}

// sessionTitle prefixes the parent title for tracks and episodes
func sessionTitle(session types.Session) string {
	switch s := session.(type) {
	case *types.TrackSession:
		return s.Artist + " - " + s.Track
	case *types.EpisodeSession:
		return s.GrandparentTitle + " - " + s.Title
	case *types.MovieSession:
		return s.Title
	default:
		return session.Identity().Title
	}
}

func decision(id types.SessionIdentity) string {
	if id.VideoDecision == "" || id.VideoDecision == id.AudioDecision {
		return id.AudioDecision
	}
	return fmt.Sprintf("%s / %s", id.VideoDecision, id.AudioDecision)
}
