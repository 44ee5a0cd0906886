// Copyright (c) 2024, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/autobrr/plexbrr/internal/database"
	"github.com/autobrr/plexbrr/internal/types"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var params types.FindHistoryParams
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List sessions recorded by the activity monitor",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			db, err := database.InitDBWithConfig(cfg.Database)
			if err != nil {
				return err
			}
			defer db.Close()

			history, err := db.ListSessionHistory(cmd.Context(), params)
			if err != nil {
				return fmt.Errorf("list history: %w", err)
			}

			if jsonOutput {
				return writeJSON(cmd, history)
			}

			if len(history) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No sessions recorded")
				return nil
			}

			rows := make([][]string, 0, len(history))
			for _, h := range history {
				rows = append(rows, []string{
					h.TakenAt.Local().Format(time.DateTime),
					h.MediaType,
					h.Title,
					h.User,
					h.Player,
					h.State,
					h.ProgressPercent + "%",
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Seen", "Type", "Title", "User", "Player", "State", "Progress"},
				rows,
				6,
			))
			return nil
		},
	}

	cmd.Flags().Uint64Var(&params.Limit, "limit", database.DefaultHistoryLimit, "Maximum number of rows")
	cmd.Flags().StringVar(&params.User, "user", "", "Only show sessions of this user")
	cmd.Flags().StringVar(&params.RatingKey, "rating-key", "", "Only show sessions of this item")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}
