package engine

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"runtime"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/dshills/cimedic/internal/diagnosis"
	"github.com/dshills/cimedic/internal/logging"
	"github.com/dshills/cimedic/internal/patch"
	"github.com/dshills/cimedic/internal/strategy"
)

// Tree is the working tree a run reads and patches.
type Tree interface {
	strategy.Tree
	WriteFile(rel, content string) error
	RemoveFile(rel string) error
}

// Resolver picks the strategy for a diagnosis. A nil Strategy with a nil
// error means no strategy is registered for the kind.
type Resolver interface {
	Resolve(d diagnosis.Diagnosis) (strategy.Strategy, error)
}

// Recorder receives run metrics.
type Recorder interface {
	RecordRun(status, kind string, elapsed time.Duration)
	RecordEdit(operation string)
	RecordFilesTouched(n int)
}

// Options configures an Engine.
type Options struct {
	// DryRun computes the new contents but never writes them.
	DryRun bool
	// Workers bounds concurrent file reads. Zero means GOMAXPROCS.
	Workers  int
	Logger   *logging.Logger
	Recorder Recorder
}

// Engine runs remediations. It keeps no state between runs.
type Engine struct {
	resolver Resolver
	opts     Options
	newID    func() string
}

// New returns an Engine dispatching through resolver.
func New(resolver Resolver, opts Options) *Engine {
	if opts.Logger == nil {
		opts.Logger = logging.Nop()
	}
	if opts.Workers <= 0 {
		opts.Workers = runtime.GOMAXPROCS(0)
	}
	return &Engine{resolver: resolver, opts: opts, newID: uuid.NewString}
}

// Run remediates the failure described by log against tree. It never
// returns an error: every failure, including a panicking strategy, is
// reported as a failed Result.
func (e *Engine) Run(ctx context.Context, log string, tree Tree) (res Result) {
	start := time.Now()
	res = Result{
		RunID:  e.newID(),
		States: []State{StateStart},
		DryRun: e.opts.DryRun,
	}
	ctx = logging.WithRunID(ctx, res.RunID)
	logger := e.opts.Logger

	defer func() {
		if r := recover(); r != nil {
			logger.Error(ctx, "remediation panicked", zap.Any("panic", r), zap.Stack("stack"))
			res = failed(res, fmt.Errorf("panic: %v", r))
		}
		res.States = append(res.States, StateDone)
		elapsed := time.Since(start)
		res.ElapsedMs = elapsed.Milliseconds()
		logger.Info(ctx, "remediation finished",
			zap.String("status", string(res.Status)),
			zap.String("kind", string(res.Diagnosis.Kind)),
			zap.String("strategy", res.Strategy),
			zap.Strings("files", res.FilesTouched),
			zap.Bool("dry_run", res.DryRun),
		)
		e.record(res, elapsed)
	}()

	res.Diagnosis = diagnosis.Classify(log)
	res.States = append(res.States, StateClassified)
	logger.Debug(ctx, "log classified",
		zap.String("kind", string(res.Diagnosis.Kind)),
		zap.String("primary", res.Diagnosis.Primary),
	)

	strat, err := e.resolver.Resolve(res.Diagnosis)
	if err != nil {
		return failed(res, fmt.Errorf("resolving strategy: %w", err))
	}
	if strat == nil {
		res.Status = StatusNoMatch
		res.States = append(res.States, StateNoMatch)
		res.Explanation = "The CI log did not match any known failure signature; no files were changed."
		return res
	}
	res.Strategy = strat.Name()
	res.States = append(res.States, StateDispatched)

	plan, err := strat.Plan(ctx, strategy.Input{Diagnosis: res.Diagnosis, Log: log}, tree)
	if err != nil {
		return failed(res, fmt.Errorf("strategy %s: %w", strat.Name(), err))
	}
	logger.Debug(ctx, "plan ready", zap.Int("edits", len(plan.Edits)), zap.Bool("advisory", plan.AdvisoryOnly))

	if plan.AdvisoryOnly {
		res.Status = StatusSkipped
		res.States = append(res.States, StateSkipped)
		res.Advice = plan.Advice
		res.Explanation = plan.Explanation
		return res
	}

	for i, edit := range plan.Edits {
		if err := edit.Validate(); err != nil {
			return failed(res, fmt.Errorf("edit %d: %w", i+1, err))
		}
	}

	changes, err := e.compute(ctx, tree, plan.Edits)
	if err != nil {
		return failed(res, err)
	}

	touched := make([]string, 0, len(changes))
	for i, c := range changes {
		if !e.opts.DryRun {
			if err := tree.WriteFile(c.path, c.content); err != nil {
				err = fmt.Errorf("writing %s: %w", c.path, err)
				if stuck := e.rollback(ctx, tree, changes[:i]); len(stuck) > 0 {
					res.FilesTouched = stuck
					err = fmt.Errorf("%w; could not restore %s", err, strings.Join(stuck, ", "))
				}
				return failed(res, err)
			}
			logger.Debug(ctx, "file patched", zap.String("path", c.path))
		}
		touched = append(touched, c.path)
	}

	res.Status = StatusApplied
	res.States = append(res.States, StateApplied)
	res.EditsApplied = append([]patch.FileEdit{}, plan.Edits...)
	res.FilesTouched = touched
	res.Explanation = appliedExplanation(plan, len(touched), e.opts.DryRun)
	return res
}

// change is the new content of one file. original is the content it
// replaces; created marks a file that did not exist before the run.
type change struct {
	path     string
	content  string
	original string
	created  bool
}

// rollback restores written files in reverse order and returns the paths it
// could not restore.
func (e *Engine) rollback(ctx context.Context, tree Tree, written []change) []string {
	var stuck []string
	for i := len(written) - 1; i >= 0; i-- {
		c := written[i]
		var err error
		if c.created {
			err = tree.RemoveFile(c.path)
		} else {
			err = tree.WriteFile(c.path, c.original)
		}
		if err != nil {
			e.opts.Logger.Error(ctx, "restoring file failed", zap.String("path", c.path), zap.Error(err))
			stuck = append(stuck, c.path)
			continue
		}
		e.opts.Logger.Debug(ctx, "file restored", zap.String("path", c.path))
	}
	sort.Strings(stuck)
	return stuck
}

// compute applies edits in memory and returns the files whose content
// changes, sorted by path. A missing file is only acceptable when every
// edit targeting it appends.
func (e *Engine) compute(ctx context.Context, tree Tree, edits []patch.FileEdit) ([]change, error) {
	byPath := make(map[string][]patch.FileEdit)
	for _, edit := range edits {
		byPath[edit.Path] = append(byPath[edit.Path], edit)
	}
	paths := make([]string, 0, len(byPath))
	for p := range byPath {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	results := make([]*change, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.opts.Workers)
	for i, p := range paths {
		i, p := i, p
		g.Go(func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = fmt.Errorf("patching %s: panic: %v", p, r)
				}
			}()
			if err := gctx.Err(); err != nil {
				return err
			}
			fileEdits := byPath[p]
			created := false
			content, err := tree.ReadFile(p)
			if err != nil {
				if !errors.Is(err, fs.ErrNotExist) || !allAppend(fileEdits) {
					return fmt.Errorf("reading %s: %w", p, err)
				}
				content, created = "", true
			}
			updated := patch.ApplyAll(fileEdits, content)
			if updated != content {
				results[i] = &change{path: p, content: updated, original: content, created: created}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var changes []change
	for _, c := range results {
		if c != nil {
			changes = append(changes, *c)
		}
	}
	return changes, nil
}

func allAppend(edits []patch.FileEdit) bool {
	for _, e := range edits {
		if e.Operation != patch.AppendLine && e.Operation != patch.AppendDependency {
			return false
		}
	}
	return true
}

func appliedExplanation(plan strategy.Plan, touched int, dryRun bool) string {
	explanation := plan.Explanation
	switch {
	case len(plan.Edits) == 0 && explanation == "":
		explanation = "Nothing needed changing."
	case len(plan.Edits) > 0 && touched == 0:
		explanation += " Every edit was already in place; nothing needed changing."
	}
	if dryRun && touched > 0 {
		explanation += fmt.Sprintf(" Dry run: %d file(s) would change, none were written.", touched)
	}
	return explanation
}

// failed turns res into a failed result. The edits are dropped. FilesTouched
// lists only files a rollback could not restore.
func failed(res Result, err error) Result {
	res.Status = StatusFailed
	res.States = append(res.States, StateFailed)
	res.EditsApplied = nil
	res.Advice = ""
	res.Explanation = fmt.Sprintf("Remediation failed: %v.", err)
	if len(res.FilesTouched) == 0 {
		res.Explanation += " No files were changed."
	}
	return res
}

func (e *Engine) record(res Result, elapsed time.Duration) {
	if e.opts.Recorder == nil {
		return
	}
	e.opts.Recorder.RecordRun(string(res.Status), string(res.Diagnosis.Kind), elapsed)
	if res.DryRun || len(res.FilesTouched) == 0 {
		return
	}
	if res.Status == StatusApplied {
		for _, edit := range res.EditsApplied {
			if slices.Contains(res.FilesTouched, edit.Path) {
				e.opts.Recorder.RecordEdit(string(edit.Operation))
			}
		}
	}
	e.opts.Recorder.RecordFilesTouched(len(res.FilesTouched))
}
