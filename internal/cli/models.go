package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/dshills/lens/internal/providers"
	"github.com/spf13/cobra"
)

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "Provider and model management",
}

type modelInfo struct {
	Provider string
	Models   []string
}

var knownModels = []modelInfo{
	{
		Provider: "anthropic",
		Models: []string{
			"claude-sonnet-4-20250514",
			"claude-opus-4-20250514",
			"claude-haiku-4-5",
			"claude-3-5-haiku-latest",
		},
	},
	{
		Provider: "openai",
		Models: []string{
			"gpt-5",
			"gpt-4.1",
			"gpt-4.1-mini",
			"gpt-4o",
			"gpt-4o-mini",
			"o3-mini",
		},
	},
	{
		Provider: "gemini",
		Models: []string{
			"gemini-2.5-pro",
			"gemini-2.5-flash",
			"gemini-2.0-flash",
		},
	},
	{
		Provider: "ollama",
		Models: []string{
			"llama3.3",
			"qwen2.5-coder",
			"deepseek-coder-v2",
			"codellama",
		},
	},
}

func writeModels(w io.Writer, models []modelInfo) error {
	ew := &errWriter{w: w}
	for _, info := range models {
		ew.printf("%s:\n", info.Provider)
		for _, m := range info.Models {
			if p, ok := providers.Price(m); ok {
				ew.printf("  - %-28s $%.2f in / $%.2f out per 1M tokens\n", m, p.Input, p.Output)
				continue
			}
			ew.printf("  - %-28s local\n", m)
		}
		ew.printf("\n")
	}
	return ew.err
}

var modelsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List known providers and models",
	RunE: func(cmd *cobra.Command, args []string) error {
		return writeModels(os.Stdout, knownModels)
	},
}

var modelsDoctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Validate provider credentials",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfig()
		if err != nil {
			return err
		}
		defer func() { _ = logger.Sync() }()

		fmt.Fprintf(os.Stdout, "Checking %s (%s)...\n", cfg.Provider, cfg.Model)

		p, err := newCompleter(cfg.Provider, cfg.Model, providers.WithLogger(logger))
		if err != nil {
			fmt.Fprintf(os.Stderr, "FAIL: %v\n", err)
			exitCode = engineExitCode(err)
			return nil
		}

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		resp, err := p.Complete(ctx, providers.Request{
			Context:   []providers.Segment{{Name: "probe", Text: "Respond with exactly: ok"}},
			Task:      "ping",
			MaxTokens: 10,
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "FAIL: %v\n", err)
			if providers.IsAuthError(err) {
				exitCode = ExitAuthError
			} else {
				exitCode = ExitRuntimeError
			}
			return nil
		}

		fmt.Fprintf(os.Stdout, "OK: %s is configured and responding (%d tokens)\n", p.Name(), resp.Usage.Total())
		return nil
	},
}

func init() {
	modelsCmd.AddCommand(modelsListCmd)
	modelsCmd.AddCommand(modelsDoctorCmd)
	modelsDoctorCmd.Flags().StringVar(&flagProvider, "provider", "", "Provider to check")
	modelsDoctorCmd.Flags().StringVar(&flagModel, "model", "", "Model to check")
}
