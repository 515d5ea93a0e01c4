package output

import (
	"fmt"
	"io"
	"os"

	"github.com/dshills/cimedic/internal/advisory"
	"github.com/dshills/cimedic/internal/engine"
	"github.com/dshills/cimedic/internal/gitctx"
)

// Report is everything known about one invocation.
type Report struct {
	Tool    string           `json:"tool"`
	Version string           `json:"version"`
	Repo    *gitctx.RepoMeta `json:"repo,omitempty"`
	Result  engine.Result    `json:"result"`

	// Advisory is the model diagnosis obtained when no strategy matched.
	Advisory      *advisory.Advice `json:"advisory,omitempty"`
	AdvisoryError string           `json:"advisoryError,omitempty"`

	Commit     string `json:"commit,omitempty"`
	CommentURL string `json:"commentUrl,omitempty"`
}

// Writer writes a report in a specific format.
type Writer interface {
	Write(w io.Writer, report *Report) error
}

// Formats lists the supported format names.
func Formats() []string {
	return []string{"text", "json", "markdown"}
}

// GetWriter returns a writer for the specified format.
func GetWriter(format string) (Writer, error) {
	switch format {
	case "text", "":
		return &TextWriter{}, nil
	case "json":
		return &JSONWriter{}, nil
	case "markdown", "md":
		return &MarkdownWriter{}, nil
	default:
		return nil, fmt.Errorf("unsupported output format: %s", format)
	}
}

// WriteReport writes the report to the specified output (file path or stdout).
func WriteReport(report *Report, format, outPath string) error {
	writer, err := GetWriter(format)
	if err != nil {
		return err
	}

	var w io.Writer
	if outPath != "" {
		f, err := os.Create(outPath)
		if err != nil {
			return fmt.Errorf("creating output file: %w", err)
		}
		defer f.Close()
		w = f
	} else {
		w = os.Stdout
	}

	return writer.Write(w, report)
}

// errWriter wraps an io.Writer and captures the first error.
type errWriter struct {
	w   io.Writer
	err error
}

func (ew *errWriter) printf(format string, args ...any) {
	if ew.err != nil {
		return
	}
	_, ew.err = fmt.Fprintf(ew.w, format, args...)
}

func (ew *errWriter) println(s string) {
	if ew.err != nil {
		return
	}
	_, ew.err = fmt.Fprintln(ew.w, s)
}
