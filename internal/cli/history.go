package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/dshills/cimedic/internal/history"
)

var (
	flagHistoryLimit  int
	flagHistoryFormat string
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recent remediation runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, ok := loadConfig()
		if !ok {
			return nil
		}
		if cfg.History.Path == "" {
			fail(ExitConfigError, errors.New("run history is disabled: set history.path"))
			return nil
		}

		store, err := history.Open(cfg.History.Path)
		if err != nil {
			fail(ExitRuntimeError, err)
			return nil
		}
		defer store.Close()

		entries, err := store.List(cmd.Context(), flagHistoryLimit)
		if err != nil {
			fail(ExitRuntimeError, err)
			return nil
		}

		out := cmd.OutOrStdout()
		if flagHistoryFormat == "json" {
			data, err := json.MarshalIndent(entries, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(out, string(data))
			return nil
		}
		if len(entries) == 0 {
			fmt.Fprintln(out, "No runs recorded.")
			return nil
		}
		tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "TIME\tSTATUS\tKIND\tPRIMARY\tSTRATEGY\tFILES")
		for _, e := range entries {
			status := e.Status
			if e.DryRun {
				status += " (dry run)"
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
				e.RecordedAt.Local().Format("2006-01-02 15:04:05"),
				status, e.Kind, dash(e.Primary), dash(e.Strategy), dash(strings.Join(e.FilesTouched, ",")))
		}
		return tw.Flush()
	},
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func init() {
	historyCmd.Flags().IntVar(&flagHistoryLimit, "limit", 20, "Number of runs to show")
	historyCmd.Flags().StringVar(&flagHistoryFormat, "format", "text", "Output format (text, json)")
}
