package strategy

import (
	"context"
	"fmt"
	"strings"

	"github.com/dshills/cimedic/internal/patch"
)

// ImportRemovalStrategy deletes import statements of a module that is not
// trusted for installation.
type ImportRemovalStrategy struct {
	Workers int
}

func (s *ImportRemovalStrategy) Name() string { return "import_removal" }

func (s *ImportRemovalStrategy) Plan(ctx context.Context, in Input, tree Tree) (Plan, error) {
	name := in.Diagnosis.Primary
	edits, err := scanFiles(ctx, tree, s.Workers, func(path, content string) []patch.FileEdit {
		var out []patch.FileEdit
		seen := make(map[string]bool)
		for _, line := range strings.Split(content, "\n") {
			line = strings.TrimSuffix(line, "\r")
			if !IsImportOf(line, name) || seen[line] {
				continue
			}
			seen[line] = true
			out = append(out, patch.FileEdit{
				Path:      path,
				Operation: patch.RemoveLine,
				Match:     line,
				Reason:    fmt.Sprintf("module %s does not exist and is not an allow-listed dependency", name),
			})
		}
		return out
	})
	if err != nil {
		return Plan{}, fmt.Errorf("scanning imports of %s: %w", name, err)
	}

	if len(edits) == 0 {
		return Plan{
			Explanation: fmt.Sprintf("Module %s is not on the dependency allow-list and no file imports it directly; nothing to change.", name),
		}, nil
	}
	files := touchedFiles(edits)
	return Plan{
		Edits: edits,
		Explanation: fmt.Sprintf("Removed %d import(s) of missing module %s from %d file(s): %s. %s is not on the dependency allow-list, so it is treated as a stale reference.",
			len(edits), name, len(files), strings.Join(files, ", "), name),
	}, nil
}

// IsImportOf reports whether line is exactly "import <name>" or begins with
// "from <name> import".
func IsImportOf(line, name string) bool {
	if name == "" {
		return false
	}
	return line == "import "+name || strings.HasPrefix(line, "from "+name+" import")
}
