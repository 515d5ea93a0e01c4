package strategy

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/dshills/cimedic/internal/cache"
	"github.com/dshills/cimedic/internal/patch"
	"github.com/dshills/cimedic/internal/providers"
	"github.com/dshills/cimedic/internal/redact"
)

// maxPromptFiles caps the file listing sent with a plan request.
const maxPromptFiles = 200

// PlanStrategy asks a model backend for a JSON fix plan. It serves
// diagnoses no deterministic strategy recognizes.
type PlanStrategy struct {
	backend  providers.Backend
	model    string
	manifest string
	cache    *cache.Cache
	// MaxLogBytes tails the log before upload; zero sends it whole.
	MaxLogBytes int
	// Timeout bounds each backend call; zero means no extra bound.
	Timeout time.Duration
}

// NewPlanStrategy returns a PlanStrategy using backend. The cache may be nil.
func NewPlanStrategy(backend providers.Backend, model, manifest string, c *cache.Cache) *PlanStrategy {
	if manifest == "" {
		manifest = DefaultManifest
	}
	return &PlanStrategy{backend: backend, model: model, manifest: manifest, cache: c}
}

func (s *PlanStrategy) Name() string { return "llm_plan" }

// fix is one entry of the model's plan.
type fix struct {
	File   string `json:"file"`
	Action string `json:"action"`
	Match  string `json:"match"`
	Value  string `json:"value"`
	Reason string `json:"reason"`
}

type fixPlan struct {
	Fixes []fix `json:"fixes"`
}

func (s *PlanStrategy) Plan(ctx context.Context, in Input, tree Tree) (Plan, error) {
	log := redact.Log(in.Log, s.MaxLogBytes)
	if strings.TrimSpace(log) == "" {
		return Plan{Explanation: "The CI log is empty; there is nothing to plan a fix from."}, nil
	}

	files, err := tree.Files(ctx)
	if err != nil {
		return Plan{}, fmt.Errorf("listing files: %w", err)
	}
	if len(files) > maxPromptFiles {
		files = files[:maxPromptFiles]
	}

	key := cache.Key{Purpose: cache.PurposePlan, Provider: s.backend.Name(), Model: s.model, Input: log}
	content, cached := "", false
	if s.cache != nil {
		content, cached = s.cache.Get(key)
	}
	if !cached {
		content, err = s.complete(ctx, buildPlanPrompt(log, files))
		if err != nil {
			return Plan{}, fmt.Errorf("requesting fix plan: %w", err)
		}
	}

	fp, err := parseFixPlan(content)
	if err != nil {
		repaired, rerr := s.complete(ctx, buildRepairPrompt(err, content))
		if rerr != nil {
			return Plan{}, fmt.Errorf("repair pass failed: %w (original error: %w)", rerr, err)
		}
		fp, err = parseFixPlan(repaired)
		if err != nil {
			return Plan{}, fmt.Errorf("fix plan validation failed after repair: %w", err)
		}
		if s.cache != nil {
			_ = s.cache.Put(key, repaired)
		}
	} else if !cached && s.cache != nil {
		_ = s.cache.Put(key, content)
	}

	edits, skipped, err := s.toEdits(fp, tree)
	if err != nil {
		return Plan{}, err
	}
	if len(edits) == 0 {
		return Plan{
			Explanation: fmt.Sprintf("The failure was not recognized and %s proposed no applicable fix.", s.backend.Name()),
		}, nil
	}

	var reasons []string
	for _, e := range edits {
		if e.Reason != "" {
			reasons = append(reasons, fmt.Sprintf("%s: %s", e.Path, e.Reason))
		}
	}
	explanation := fmt.Sprintf("Applied %d model-proposed edit(s) from %s:%s.", len(edits), s.backend.Name(), s.model)
	if len(reasons) > 0 {
		explanation += " " + strings.Join(reasons, "; ") + "."
	}
	if skipped > 0 {
		explanation += fmt.Sprintf(" Skipped %d fix(es) targeting files that do not exist.", skipped)
	}
	return Plan{Edits: edits, Explanation: explanation}, nil
}

func (s *PlanStrategy) complete(ctx context.Context, prompt string) (string, error) {
	if s.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.Timeout)
		defer cancel()
	}
	resp, err := s.backend.Complete(ctx, providers.Request{
		SystemPrompt: planSystemPrompt,
		UserPrompt:   prompt,
		MaxTokens:    2048,
	})
	if err != nil {
		return "", err
	}
	return resp.Content, nil
}

func parseFixPlan(content string) (fixPlan, error) {
	var fp fixPlan
	dec := json.NewDecoder(strings.NewReader(stripFences(content)))
	if err := dec.Decode(&fp); err != nil {
		return fp, fmt.Errorf("invalid JSON object: %w", err)
	}
	if fp.Fixes == nil {
		return fp, errors.New(`response has no "fixes" array`)
	}
	return fp, nil
}

// toEdits converts model fixes into validated edits. Fixes whose target file
// does not exist are skipped; any other invalid fix rejects the plan.
func (s *PlanStrategy) toEdits(fp fixPlan, tree Tree) ([]patch.FileEdit, int, error) {
	var edits []patch.FileEdit
	skipped := 0
	for i, f := range fp.Fixes {
		e := patch.FileEdit{
			Path:      strings.TrimPrefix(strings.TrimSpace(f.File), "./"),
			Operation: patch.Operation(f.Action),
			Match:     f.Match,
			Value:     f.Value,
			Reason:    f.Reason,
		}
		if e.Operation == patch.AppendDependency {
			e.Path = s.manifest
		}
		if err := e.Validate(); err != nil {
			return nil, 0, fmt.Errorf("fix %d: %w", i+1, err)
		}
		if e.Operation != patch.AppendDependency && e.Operation != patch.AppendLine {
			if _, err := tree.ReadFile(e.Path); errors.Is(err, fs.ErrNotExist) {
				skipped++
				continue
			}
		}
		edits = append(edits, e)
	}
	return edits, skipped, nil
}
