package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"llmcall/internal/history"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent calls",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			store, err := history.Open(cfg.Paths.HistoryDB)
			if err != nil {
				return fmt.Errorf("open call history: %w", err)
			}
			defer store.Close()

			records, err := store.Recent(cmd.Context(), limit)
			if err != nil {
				return fmt.Errorf("load call history: %w", err)
			}
			if len(records) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No calls recorded")
				return nil
			}

			rows := make([][]string, 0, len(records))
			for _, rec := range records {
				rows = append(rows, []string{
					rec.CreatedAt.Local().Format(time.DateTime),
					rec.Outcome,
					formatBool(rec.CacheHit),
					strconv.Itoa(rec.PromptChars),
					strconv.Itoa(rec.ResponseChars),
					strconv.Itoa(rec.Chunks),
					strconv.Itoa(rec.Attempts),
					rec.Duration.Round(time.Second).String(),
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Started", "Outcome", "Cached", "Prompt", "Response", "Chunks", "Attempts", "Duration"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignRight, alignRight, alignRight},
			))
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of calls to show")
	return cmd
}

func formatBool(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
