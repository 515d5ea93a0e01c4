// Package strategy turns a diagnosis into a remediation plan.
//
// A Strategy is stateless: it reads the working tree, never writes it, and
// returns the FileEdits (or advisory text) that would fix the failure. The
// Registry picks exactly one strategy per diagnosis kind.
package strategy

import (
	"context"
	"fmt"
	"strings"

	"github.com/dshills/cimedic/internal/diagnosis"
	"github.com/dshills/cimedic/internal/patch"
)

// Tree is the read-only view of a working tree strategies plan against.
type Tree interface {
	// Files returns the sorted candidate source files.
	Files(ctx context.Context) ([]string, error)
	// ReadFile returns the content of a slash-separated relative path.
	ReadFile(rel string) (string, error)
}

// Input is what a strategy plans from.
type Input struct {
	Diagnosis diagnosis.Diagnosis
	// Log is the raw CI log. Only strategies that need more than the
	// diagnosis look at it.
	Log string
}

// Plan is the outcome of planning.
type Plan struct {
	Edits        []patch.FileEdit
	Advice       string
	AdvisoryOnly bool
	Explanation  string
}

// Strategy produces a remediation plan for one diagnosis.
type Strategy interface {
	Name() string
	Plan(ctx context.Context, in Input, tree Tree) (Plan, error)
}

// Options configures the strategies a Registry hands out.
type Options struct {
	// AllowList holds module names trusted for dependency insertion. The
	// package name a module is installed under is accepted too.
	AllowList []string
	// Manifest is the dependency manifest path, relative to the tree root.
	Manifest string
	// Typos maps mistyped commands to the intended command.
	Typos map[string]string
	// Tools maps commands to installation hints.
	Tools map[string]string
	// Workers bounds concurrent file scans. Zero means GOMAXPROCS.
	Workers int
	// Fallback, when set, handles diagnoses of kind unknown.
	Fallback Strategy
}

// DefaultManifest is the dependency manifest used when none is configured.
const DefaultManifest = "requirements.txt"

// Registry maps diagnosis kinds to strategies.
type Registry struct {
	allow      map[string]bool
	dependency *DependencyStrategy
	imports    *ImportRemovalStrategy
	rename     *RenameStrategy
	command    *CommandAdvisoryStrategy
	fallback   Strategy
}

// NewRegistry builds the strategies from opts. The option maps are copied.
func NewRegistry(opts Options) *Registry {
	manifest := opts.Manifest
	if manifest == "" {
		manifest = DefaultManifest
	}
	allow := make(map[string]bool, len(opts.AllowList))
	for _, name := range opts.AllowList {
		allow[NormalizeName(name)] = true
	}
	return &Registry{
		allow:      allow,
		dependency: &DependencyStrategy{Manifest: manifest},
		imports:    &ImportRemovalStrategy{Workers: opts.Workers},
		rename:     &RenameStrategy{Workers: opts.Workers},
		command:    NewCommandAdvisory(opts.Typos, opts.Tools),
		fallback:   opts.Fallback,
	}
}

// Allowed reports whether a module, or the package providing it, is on the
// allow-list.
func (r *Registry) Allowed(name string) bool {
	top, _, _ := strings.Cut(name, ".")
	return r.allow[NormalizeName(name)] || r.allow[NormalizeName(top)] ||
		r.allow[NormalizeName(DistributionName(name))]
}

// Resolve returns the strategy for d. It returns a nil Strategy and no error
// when no strategy is registered for the diagnosis kind.
func (r *Registry) Resolve(d diagnosis.Diagnosis) (Strategy, error) {
	switch d.Kind {
	case diagnosis.UndefinedIdentifier:
		if d.Primary == "" || d.Secondary == "" {
			return nil, fmt.Errorf("undefined identifier diagnosis needs both names, got %q -> %q", d.Primary, d.Secondary)
		}
		return r.rename, nil
	case diagnosis.MissingModule:
		if d.Primary == "" {
			return nil, fmt.Errorf("missing module diagnosis has no module name")
		}
		if r.Allowed(d.Primary) {
			return r.dependency, nil
		}
		return r.imports, nil
	case diagnosis.CommandNotFound:
		return r.command, nil
	case diagnosis.Unknown, "":
		if r.fallback == nil {
			return nil, nil
		}
		return r.fallback, nil
	default:
		return nil, fmt.Errorf("unsupported diagnosis kind %q", d.Kind)
	}
}
