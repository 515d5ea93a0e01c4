package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/dshills/cimedic/internal/engine"
)

// AppliedHeading introduces the list of applied edits in a PR comment.
const AppliedHeading = "CI Bot applied fixes automatically:"

// MarkdownWriter outputs a PR-comment-friendly markdown report.
type MarkdownWriter struct{}

func (m *MarkdownWriter) Write(w io.Writer, report *Report) error {
	ew := &errWriter{w: w}
	res := report.Result

	ew.printf("## cimedic: %s %s\n\n", mdStatusIcon(res.Status), res.Status)

	ew.printf("| Diagnosis | Detail | Strategy |\n")
	ew.printf("|-----------|--------|----------|\n")
	detail := res.Diagnosis.Primary
	if res.Diagnosis.Secondary != "" {
		detail += " → " + res.Diagnosis.Secondary
	}
	ew.printf("| %s | %s | %s |\n\n", res.Diagnosis.Kind, mdCode(detail), orDash(res.Strategy))

	ew.printf("%s\n\n", res.Explanation)

	if len(res.EditsApplied) > 0 && !res.DryRun {
		ew.printf("%s\n\n", AppliedHeading)
		for _, e := range res.EditsApplied {
			ew.printf("- `%s` → %s\n", e.Path, orDash(e.Reason))
		}
		ew.println("")
	} else if len(res.EditsApplied) > 0 {
		ew.printf("Proposed edits (dry run, nothing written):\n\n")
		for _, e := range res.EditsApplied {
			ew.printf("- `%s` → %s\n", e.Path, orDash(e.Reason))
		}
		ew.println("")
	}

	if res.Advice != "" {
		ew.printf("**Advice:** %s\n\n", res.Advice)
	}

	if report.Advisory != nil {
		ew.printf("<details>\n<summary>Advisory diagnosis (%s)</summary>\n\n", report.Advisory.Model)
		ew.printf("> %s\n\n", strings.ReplaceAll(strings.TrimSpace(report.Advisory.Text), "\n", "\n> "))
		ew.printf("</details>\n\n")
	} else if report.AdvisoryError != "" {
		ew.printf("*Advisory diagnosis unavailable: %s*\n\n", report.AdvisoryError)
	}

	if report.Commit != "" {
		ew.printf("Commit: `%s`\n\n", report.Commit)
	}
	ew.printf("*Run `%s` in %dms*\n", res.RunID, res.ElapsedMs)

	return ew.err
}

func mdStatusIcon(s engine.Status) string {
	switch s {
	case engine.StatusApplied:
		return ":white_check_mark:"
	case engine.StatusSkipped:
		return ":information_source:"
	case engine.StatusNoMatch:
		return ":grey_question:"
	default:
		return ":x:"
	}
}

func mdCode(s string) string {
	if s == "" {
		return "-"
	}
	return fmt.Sprintf("`%s`", s)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
