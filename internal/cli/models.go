package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/dshills/cimedic/internal/config"
	"github.com/dshills/cimedic/internal/providers"
)

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "Provider and model management",
}

type modelInfo struct {
	Provider string
	Env      string
	Models   []string
}

var knownModels = []modelInfo{
	{
		Provider: "groq",
		Env:      "GROQ_API_KEY or LLM_API_KEY",
		Models: []string{
			"llama-3.1-8b-instant",
			"llama-3.3-70b-versatile",
		},
	},
	{
		Provider: "anthropic",
		Env:      "ANTHROPIC_API_KEY",
		Models: []string{
			"claude-sonnet-4-6",
			"claude-haiku-4-5",
		},
	},
	{
		Provider: "openai",
		Env:      "OPENAI_API_KEY",
		Models: []string{
			"gpt-4.1-mini",
			"gpt-4o-mini",
			"o3-mini",
		},
	},
	{
		Provider: "gemini",
		Env:      "GEMINI_API_KEY or GOOGLE_API_KEY",
		Models: []string{
			"gemini-2.5-flash",
			"gemini-2.5-pro",
		},
	},
	{
		Provider: "ollama",
		Env:      "OLLAMA_HOST",
		Models: []string{
			"llama3.1",
			"qwen2.5-coder",
		},
	},
}

var modelsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List known providers and models",
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		for _, info := range knownModels {
			fmt.Fprintf(out, "%s (%s):\n", info.Provider, info.Env)
			for _, m := range info.Models {
				fmt.Fprintf(out, "  - %s:%s\n", info.Provider, m)
			}
			fmt.Fprintln(out)
		}
	},
}

var flagDoctorModels string

var modelsDoctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Validate provider credentials for the configured models",
	Long: "Sends a one-token request to every model of the advisory chain and the plan model " +
		"(or the models given with --models) and reports which respond.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, ok := loadConfig()
		if !ok {
			return nil
		}

		specs := doctorModels(cfg)
		if flagDoctorModels != "" {
			specs = splitComma(flagDoctorModels)
		}
		chain, err := providers.ParseModelSpecs(specs)
		if err != nil {
			fail(ExitConfigError, err)
			return nil
		}
		if len(chain) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No models configured.")
			return nil
		}

		out := cmd.OutOrStdout()
		for _, spec := range chain {
			fmt.Fprintf(out, "Checking %s...\n", spec)
			if err := ping(cmd.Context(), spec); err != nil {
				fmt.Fprintf(os.Stderr, "FAIL: %s: %v\n", spec, err)
				code := ExitRuntimeError
				if providers.IsAuthError(err) {
					code = ExitAuthError
				}
				if exitCode == ExitSuccess || code == ExitAuthError {
					exitCode = code
				}
				continue
			}
			fmt.Fprintf(out, "OK: %s is configured and responding\n", spec)
		}
		return nil
	},
}

// doctorModels lists the advisory chain and the plan model, without
// duplicates.
func doctorModels(cfg config.Config) []string {
	seen := make(map[string]bool)
	var specs []string
	for _, s := range append(append([]string(nil), cfg.Advisory.Models...), cfg.Plan.Model) {
		if s != "" && !seen[s] {
			seen[s] = true
			specs = append(specs, s)
		}
	}
	return specs
}

func ping(ctx context.Context, spec providers.ModelSpec) error {
	if ctx == nil {
		ctx = context.Background()
	}
	backend, err := newBackend(spec.Provider, spec.Model)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	_, err = backend.Complete(ctx, providers.Request{
		SystemPrompt: "Respond with exactly: ok",
		UserPrompt:   "ping",
		MaxTokens:    10,
	})
	return err
}

func init() {
	modelsCmd.AddCommand(modelsListCmd)
	modelsCmd.AddCommand(modelsDoctorCmd)
	modelsDoctorCmd.Flags().StringVar(&flagDoctorModels, "models", "", "Comma-separated provider:model list to check")
}
