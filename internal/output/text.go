package output

import (
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/dshills/cimedic/internal/engine"
)

var (
	headerColor  = color.New(color.Bold)
	appliedColor = color.New(color.FgGreen, color.Bold)
	skippedColor = color.New(color.FgYellow, color.Bold)
	noMatchColor = color.New(color.FgCyan, color.Bold)
	failedColor  = color.New(color.FgRed, color.Bold)
	pathColor    = color.New(color.FgBlue)
)

// TextWriter outputs a human-readable text report.
type TextWriter struct{}

func (t *TextWriter) Write(w io.Writer, report *Report) error {
	ew := &errWriter{w: w}
	res := report.Result

	ew.printf("%s: %s\n", headerColor.Sprint("cimedic"), statusColor(res.Status).Sprint(strings.ToUpper(string(res.Status))))
	if report.Repo != nil {
		ew.printf("Repository: %s", report.Repo.Root)
		if report.Repo.Branch != "" {
			ew.printf(" (branch: %s)", report.Repo.Branch)
		}
		ew.println("")
	}
	ew.printf("Diagnosis: %s", res.Diagnosis.Kind)
	if res.Diagnosis.Primary != "" {
		ew.printf(" %s", res.Diagnosis.Primary)
	}
	if res.Diagnosis.Secondary != "" {
		ew.printf(" -> %s", res.Diagnosis.Secondary)
	}
	ew.println("")
	if res.Strategy != "" {
		ew.printf("Strategy: %s\n", res.Strategy)
	}
	ew.println(strings.Repeat("─", 60))

	for _, line := range wrapText(res.Explanation, 70) {
		ew.printf("%s\n", line)
	}

	if len(res.EditsApplied) > 0 {
		label := "Edits"
		if res.DryRun {
			label = "Edits (dry run)"
		}
		ew.printf("\n%s\n", headerColor.Sprint(label))
		for _, e := range res.EditsApplied {
			ew.printf("  %s  %s\n", pathColor.Sprint(e.Path), e.Operation)
			if e.Reason != "" {
				for _, line := range wrapText(e.Reason, 70) {
					ew.printf("    %s\n", line)
				}
			}
		}
	}

	if res.Advice != "" {
		ew.printf("\n%s\n", headerColor.Sprint("Advice"))
		for _, line := range wrapText(res.Advice, 70) {
			ew.printf("  %s\n", line)
		}
	}

	if report.Advisory != nil {
		title := "Advisory diagnosis (" + report.Advisory.Model.String()
		if report.Advisory.Cached {
			title += ", cached"
		}
		ew.printf("\n%s\n", headerColor.Sprint(title+")"))
		for _, para := range strings.Split(strings.TrimSpace(report.Advisory.Text), "\n") {
			for _, line := range wrapText(para, 70) {
				ew.printf("  %s\n", line)
			}
		}
	} else if report.AdvisoryError != "" {
		ew.printf("\n%s %s\n", failedColor.Sprint("Advisory unavailable:"), report.AdvisoryError)
	}

	if report.Commit != "" || report.CommentURL != "" {
		ew.println("")
		if report.Commit != "" {
			ew.printf("Committed: %s\n", report.Commit)
		}
		if report.CommentURL != "" {
			ew.printf("Comment: %s\n", report.CommentURL)
		}
	}

	ew.printf("\n%s\n", strings.Repeat("─", 60))
	ew.printf("Run %s completed in %dms\n", res.RunID, res.ElapsedMs)

	return ew.err
}

func statusColor(s engine.Status) *color.Color {
	switch s {
	case engine.StatusApplied:
		return appliedColor
	case engine.StatusSkipped:
		return skippedColor
	case engine.StatusNoMatch:
		return noMatchColor
	default:
		return failedColor
	}
}

func wrapText(text string, width int) []string {
	if len(text) <= width {
		return []string{text}
	}
	var lines []string
	words := strings.Fields(text)
	var current strings.Builder
	for _, word := range words {
		if current.Len()+len(word)+1 > width && current.Len() > 0 {
			lines = append(lines, current.String())
			current.Reset()
		}
		if current.Len() > 0 {
			current.WriteString(" ")
		}
		current.WriteString(word)
	}
	if current.Len() > 0 {
		lines = append(lines, current.String())
	}
	return lines
}
