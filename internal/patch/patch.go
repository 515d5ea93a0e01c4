// Package patch describes and applies single-file textual edits.
//
// A [FileEdit] is a description, not an action. [Apply] is a pure transform
// over file content and is idempotent for every operation: applying an edit to
// content it has already been applied to returns the content unchanged.
package patch

import (
	"errors"
	"fmt"
	"path"
	"strings"
)

// Operation is the kind of textual mutation an edit performs.
type Operation string

const (
	RemoveLine       Operation = "remove_line"
	ReplaceLine      Operation = "replace_line"
	AppendLine       Operation = "add_line"
	ReplaceContent   Operation = "replace_content"
	AppendDependency Operation = "add_dependency"
)

// Valid reports whether op is a known operation.
func (op Operation) Valid() bool {
	switch op {
	case RemoveLine, ReplaceLine, AppendLine, ReplaceContent, AppendDependency:
		return true
	default:
		return false
	}
}

// needsMatch reports whether op locates its target via Match.
func (op Operation) needsMatch() bool {
	return op == RemoveLine || op == ReplaceLine || op == ReplaceContent
}

// FileEdit is one described mutation of one file. Path is slash separated
// and relative to the working tree root.
type FileEdit struct {
	Path      string    `json:"path"`
	Operation Operation `json:"operation"`
	Match     string    `json:"match,omitempty"`
	Value     string    `json:"value"`
	Reason    string    `json:"reason,omitempty"`
}

// ErrInvalidEdit is wrapped by every Validate failure.
var ErrInvalidEdit = errors.New("invalid file edit")

// Validate checks that the fields required by the operation are present and
// that the path stays inside the working tree.
func (e FileEdit) Validate() error {
	if !e.Operation.Valid() {
		return fmt.Errorf("%w: unknown operation %q", ErrInvalidEdit, e.Operation)
	}
	if e.Path == "" {
		return fmt.Errorf("%w: %s requires a path", ErrInvalidEdit, e.Operation)
	}
	clean := path.Clean(strings.ReplaceAll(e.Path, "\\", "/"))
	if path.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, "../") {
		return fmt.Errorf("%w: path %q escapes the working tree", ErrInvalidEdit, e.Path)
	}
	if e.Operation.needsMatch() && e.Match == "" {
		return fmt.Errorf("%w: %s on %s requires a match", ErrInvalidEdit, e.Operation, e.Path)
	}
	if !e.Operation.needsMatch() && e.Value == "" {
		return fmt.Errorf("%w: %s on %s requires a value", ErrInvalidEdit, e.Operation, e.Path)
	}
	if strings.Contains(e.Value, "\n") && e.Operation != ReplaceContent {
		return fmt.Errorf("%w: %s value must be a single line", ErrInvalidEdit, e.Operation)
	}
	return nil
}

func (e FileEdit) String() string {
	switch e.Operation {
	case RemoveLine:
		return fmt.Sprintf("%s: remove line %q", e.Path, e.Match)
	case ReplaceLine:
		return fmt.Sprintf("%s: replace lines containing %q with %q", e.Path, e.Match, e.Value)
	case ReplaceContent:
		return fmt.Sprintf("%s: replace %q with %q", e.Path, e.Match, e.Value)
	default:
		return fmt.Sprintf("%s: append %q", e.Path, e.Value)
	}
}

// Apply returns content with edit applied. Content that holds nothing the edit
// targets is returned unchanged. Unknown operations are a no-op.
func Apply(edit FileEdit, content string) string {
	switch edit.Operation {
	case RemoveLine:
		return removeLines(content, edit.Match)
	case ReplaceLine:
		return replaceLines(content, edit.Match, edit.Value)
	case AppendLine, AppendDependency:
		return appendLine(content, edit.Value)
	case ReplaceContent:
		return replaceContent(content, edit.Match, edit.Value)
	default:
		return content
	}
}

// ApplyAll applies edits to content in order.
func ApplyAll(edits []FileEdit, content string) string {
	for _, e := range edits {
		content = Apply(e, content)
	}
	return content
}

func removeLines(content, match string) string {
	if match == "" || !strings.Contains(content, match) {
		return content
	}
	lines := strings.Split(content, "\n")
	kept := lines[:0:0]
	for i, line := range lines {
		// The empty element after a trailing newline is the file terminator.
		if i == len(lines)-1 && line == "" {
			kept = append(kept, line)
			continue
		}
		if strings.TrimSuffix(line, "\r") == match {
			continue
		}
		kept = append(kept, line)
	}
	return strings.Join(kept, "\n")
}

func replaceLines(content, match, value string) string {
	if match == "" || !strings.Contains(content, match) {
		return content
	}
	lines := strings.Split(content, "\n")
	for i, line := range lines {
		if !strings.Contains(line, match) {
			continue
		}
		if strings.HasSuffix(line, "\r") {
			lines[i] = value + "\r"
		} else {
			lines[i] = value
		}
	}
	return strings.Join(lines, "\n")
}

func appendLine(content, value string) string {
	if value == "" || hasLine(content, value) {
		return content
	}
	if content != "" && !strings.HasSuffix(content, "\n") {
		content += "\n"
	}
	return content + value + "\n"
}

func hasLine(content, value string) bool {
	for _, line := range strings.Split(content, "\n") {
		if strings.TrimSuffix(line, "\r") == value {
			return true
		}
	}
	return false
}

// replaceContent swaps every occurrence of match for value until none is
// left. When value
// contains match, occurrences that are already part of value are left alone
// so a second pass is a no-op.
func replaceContent(content, match, value string) string {
	if match == "" || !strings.Contains(content, match) {
		return content
	}
	if !strings.Contains(value, match) {
		// A replacement can join its neighbors into a new match.
		for i := 0; i <= len(content) && strings.Contains(content, match); i++ {
			content = strings.ReplaceAll(content, match, value)
		}
		return content
	}
	parts := strings.Split(content, value)
	for i, p := range parts {
		parts[i] = strings.ReplaceAll(p, match, value)
	}
	return strings.Join(parts, value)
}
