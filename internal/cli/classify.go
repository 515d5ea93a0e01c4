package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dshills/cimedic/internal/cache"
	"github.com/dshills/cimedic/internal/diagnosis"
	"github.com/dshills/cimedic/internal/metrics"
	"github.com/dshills/cimedic/internal/providers"
)

var flagClassifyLog string

var classifyCmd = &cobra.Command{
	Use:   "classify",
	Short: "Classify a CI log and print the diagnosis as JSON",
	RunE: func(cmd *cobra.Command, args []string) error {
		log, err := readLog(flagClassifyLog)
		if err != nil {
			fail(ExitRuntimeError, err)
			return nil
		}
		data, err := json.MarshalIndent(diagnosis.Classify(log), "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return nil
	},
}

var (
	flagAdviseLog    string
	flagAdviseModels string
	flagAdviseFormat string
)

var adviseCmd = &cobra.Command{
	Use:   "advise",
	Short: "Ask the advisory model chain to diagnose a CI log",
	Long: "Sends the (redacted, tail-truncated) CI log to each model of the chain in order and prints the " +
		"first answer. Nothing in the working tree is changed.",
	RunE: func(cmd *cobra.Command, args []string) error {
		if flagAdviseFormat != "text" && flagAdviseFormat != "json" {
			return fmt.Errorf("unsupported format %q: use text or json", flagAdviseFormat)
		}
		cfg, ok := loadConfig()
		if !ok {
			return nil
		}
		logger, err := newLogger(cfg)
		if err != nil {
			fail(ExitConfigError, err)
			return nil
		}
		defer func() { _ = logger.Sync() }()

		log, err := readLog(flagAdviseLog)
		if err != nil {
			fail(ExitRuntimeError, err)
			return nil
		}
		if strings.TrimSpace(log) == "" {
			fail(ExitUsageError, errors.New("no CI logs provided"))
			return nil
		}

		specs := cfg.Advisory.Models
		if flagAdviseModels != "" {
			specs = splitComma(flagAdviseModels)
		}
		chain, err := providers.ParseModelSpecs(specs)
		if err != nil {
			fail(ExitConfigError, err)
			return nil
		}

		c, err := cache.New(cfg.Cache.Enabled, cfg.Cache.Dir, cfg.Cache.TTLSeconds)
		if err != nil {
			fail(ExitRuntimeError, fmt.Errorf("opening cache: %w", err))
			return nil
		}
		ctx := cmd.Context()
		rec := metrics.New()
		advice, err := newAdvisor(cfg, logger, c, rec).Diagnose(ctx, log, chain)
		if cfg.Metrics.Textfile != "" {
			if werr := rec.WriteTextfile(cfg.Metrics.Textfile); werr != nil {
				logger.Warn(ctx, "writing metrics textfile failed", zap.Error(werr))
			}
		}
		if err != nil {
			fail(exitCodeFor(err), err)
			return nil
		}

		out := cmd.OutOrStdout()
		if flagAdviseFormat == "json" {
			data, err := json.MarshalIndent(advice, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(out, string(data))
			return nil
		}
		fmt.Fprintf(os.Stderr, "Diagnosis from %s\n", advice.Model)
		fmt.Fprintln(out, strings.TrimSpace(advice.Text))
		return nil
	},
}

func init() {
	classifyCmd.Flags().StringVar(&flagClassifyLog, "log", "", "CI log file, - for stdin (default: $CI_LOGS)")

	adviseCmd.Flags().StringVar(&flagAdviseLog, "log", "", "CI log file, - for stdin (default: $CI_LOGS)")
	adviseCmd.Flags().StringVar(&flagAdviseModels, "models", "", "Comma-separated provider:model chain (default: advisory.models)")
	adviseCmd.Flags().StringVar(&flagAdviseFormat, "format", "text", "Output format (text, json)")
}
