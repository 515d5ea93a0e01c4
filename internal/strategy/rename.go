package strategy

import (
	"context"
	"fmt"
	"strings"

	"github.com/dshills/cimedic/internal/patch"
)

// RenameStrategy replaces a misspelled identifier with the interpreter's
// suggestion in every candidate file. The replacement is a plain substring
// swap and is not token-aware: "load_dta" inside "reload_dta_cache" is
// rewritten too.
type RenameStrategy struct {
	Workers int
}

func (s *RenameStrategy) Name() string { return "rename" }

func (s *RenameStrategy) Plan(ctx context.Context, in Input, tree Tree) (Plan, error) {
	from, to := in.Diagnosis.Primary, in.Diagnosis.Secondary
	edits, err := scanFiles(ctx, tree, s.Workers, func(path, content string) []patch.FileEdit {
		if !strings.Contains(content, from) {
			return nil
		}
		return []patch.FileEdit{{
			Path:      path,
			Operation: patch.ReplaceContent,
			Match:     from,
			Value:     to,
			Reason:    fmt.Sprintf("%s is not defined; the interpreter suggests %s", from, to),
		}}
	})
	if err != nil {
		return Plan{}, fmt.Errorf("scanning for %s: %w", from, err)
	}

	if len(edits) == 0 {
		return Plan{
			Explanation: fmt.Sprintf("Identifier %s does not appear in any candidate file; nothing to change.", from),
		}, nil
	}
	return Plan{
		Edits: edits,
		Explanation: fmt.Sprintf("Renamed undefined identifier %s to %s in %d file(s): %s.",
			from, to, len(edits), strings.Join(touchedFiles(edits), ", ")),
	}, nil
}
