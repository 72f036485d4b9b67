package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

func newCallCommand(ctx *commandContext) *cobra.Command {
	var promptFile string
	var noCache bool

	cmd := &cobra.Command{
		Use:   "call [prompt]",
		Short: "Send a prompt to the model and print the response",
		Long: "Send a prompt to the model and print the response on stdout.\n" +
			"The prompt comes from the argument, --file, or stdin, in that order.\n" +
			"Responses are cached by exact prompt text; oversized prompts are\n" +
			"split into chunks and processed sequentially.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			prompt, err := readPrompt(cmd.InOrStdin(), args, promptFile)
			if err != nil {
				return err
			}

			logger, err := ctx.buildLogger(cfg)
			if err != nil {
				return err
			}

			release, err := ctx.acquireLock(cfg)
			if err != nil {
				return err
			}
			defer release()

			client, cleanup, err := ctx.buildRelay(cfg, logger)
			if err != nil {
				return err
			}
			defer cleanup()

			response, err := client.Call(cmd.Context(), prompt, !noCache)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), response)
			return nil
		},
	}

	cmd.Flags().StringVarP(&promptFile, "file", "f", "", "Read the prompt from a file")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "Skip cache lookup and write-through")
	return cmd
}

func readPrompt(stdin io.Reader, args []string, promptFile string) (string, error) {
	if len(args) == 1 && strings.TrimSpace(promptFile) != "" {
		return "", errors.New("prompt argument and --file are mutually exclusive")
	}
	var prompt string
	switch {
	case len(args) == 1:
		prompt = args[0]
	case strings.TrimSpace(promptFile) != "":
		data, err := os.ReadFile(promptFile)
		if err != nil {
			return "", fmt.Errorf("read prompt file: %w", err)
		}
		prompt = string(data)
	default:
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("read prompt from stdin: %w", err)
		}
		prompt = string(data)
	}
	if strings.TrimSpace(prompt) == "" {
		return "", errors.New("prompt is empty")
	}
	return prompt, nil
}
