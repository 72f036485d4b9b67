package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"llmcall/internal/gemini"
)

func newModelsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "models",
		Short: "List the models available to the configured API key",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			client := gemini.NewClient(gemini.Config{
				APIKey:         cfg.Gemini.APIKey,
				BaseURL:        cfg.Gemini.BaseURL,
				Model:          cfg.Gemini.Model,
				TimeoutSeconds: cfg.Gemini.TimeoutSeconds,
			})
			models, err := client.ListModels(cmd.Context())
			if err != nil {
				return fmt.Errorf("list models: %w", err)
			}

			rows := make([][]string, 0, len(models))
			for _, m := range models {
				rows = append(rows, []string{
					m.Name,
					m.DisplayName,
					strconv.Itoa(m.InputTokenLimit),
					strconv.Itoa(m.OutputTokenLimit),
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Model", "Display Name", "Input Tokens", "Output Tokens"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight},
			))
			return nil
		},
	}
}
