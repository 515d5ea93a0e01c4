package strategy

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"regexp"
	"strings"

	"github.com/dshills/cimedic/internal/patch"
)

// DependencyStrategy adds a trusted missing module to the dependency
// manifest.
type DependencyStrategy struct {
	Manifest string
}

func (s *DependencyStrategy) Name() string { return "dependency" }

func (s *DependencyStrategy) Plan(_ context.Context, in Input, tree Tree) (Plan, error) {
	name := DistributionName(in.Diagnosis.Primary)
	content, err := tree.ReadFile(s.Manifest)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Plan{}, fmt.Errorf("reading manifest: %w", err)
	}

	if ManifestHas(content, name) {
		return Plan{
			Explanation: fmt.Sprintf("Module %s is allow-listed and already declared in %s; nothing to change.", name, s.Manifest),
		}, nil
	}
	return Plan{
		Edits: []patch.FileEdit{{
			Path:      s.Manifest,
			Operation: patch.AppendDependency,
			Value:     name,
			Reason:    fmt.Sprintf("%s is imported but not declared as a dependency", name),
		}},
		Explanation: fmt.Sprintf("Added allow-listed dependency %s to %s.", name, s.Manifest),
	}, nil
}

// distributions maps import names to the package that provides them where
// the two differ.
var distributions = map[string]string{
	"yaml":     "PyYAML",
	"bs4":      "beautifulsoup4",
	"cv2":      "opencv-python",
	"PIL":      "Pillow",
	"sklearn":  "scikit-learn",
	"dateutil": "python-dateutil",
	"dotenv":   "python-dotenv",
	"jwt":      "PyJWT",
	"OpenSSL":  "pyOpenSSL",
	"git":      "GitPython",
}

// DistributionName returns the package to declare for an imported module.
// Submodules resolve through their top-level package.
func DistributionName(module string) string {
	top, _, _ := strings.Cut(strings.TrimSpace(module), ".")
	if dist, ok := distributions[top]; ok {
		return dist
	}
	return top
}

var nameSeparators = regexp.MustCompile(`[-_.]+`)

// NormalizeName canonicalizes a Python package name: case-insensitive, with
// runs of "-", "_" and "." equivalent.
func NormalizeName(name string) string {
	return nameSeparators.ReplaceAllString(strings.ToLower(strings.TrimSpace(name)), "-")
}

// requirementName extracts the package name of one manifest line, or "" for
// blank lines, comments and pip options.
func requirementName(line string) string {
	if i := strings.Index(line, "#"); i >= 0 {
		line = line[:i]
	}
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "-") {
		return ""
	}
	if i := strings.IndexAny(line, "[<>=!~;@ \t"); i >= 0 {
		line = line[:i]
	}
	return line
}

// ManifestHas reports whether a requirements manifest already declares name,
// ignoring version specifiers, extras and markers.
func ManifestHas(content, name string) bool {
	want := NormalizeName(name)
	for _, line := range strings.Split(content, "\n") {
		if n := requirementName(line); n != "" && NormalizeName(n) == want {
			return true
		}
	}
	return false
}
