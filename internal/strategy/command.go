package strategy

import (
	"context"
	"fmt"
	"maps"
	"strings"
)

// ManualIntervention is the advice given when no rule recognizes a command.
const ManualIntervention = "Manual intervention required: no automatic fix is known for this command."

// CommandAdvisoryStrategy explains a missing command without editing files.
type CommandAdvisoryStrategy struct {
	typos map[string]string
	tools map[string]string
}

// NewCommandAdvisory copies the typo and tool tables.
func NewCommandAdvisory(typos, tools map[string]string) *CommandAdvisoryStrategy {
	return &CommandAdvisoryStrategy{typos: maps.Clone(typos), tools: maps.Clone(tools)}
}

func (s *CommandAdvisoryStrategy) Name() string { return "command_advisory" }

func (s *CommandAdvisoryStrategy) Plan(_ context.Context, in Input, _ Tree) (Plan, error) {
	cmd := in.Diagnosis.Primary
	advice := s.Suggest(cmd)
	return Plan{
		Advice:       advice,
		AdvisoryOnly: true,
		Explanation:  fmt.Sprintf("Advisory only, no files were changed. Command %q was not found in the CI environment. %s", cmd, advice),
	}, nil
}

// Suggest resolves the advice for cmd: known typos first, then the
// unexecutable-script and missing-shebang heuristics, then install hints.
func (s *CommandAdvisoryStrategy) Suggest(cmd string) string {
	if fix, ok := s.typos[cmd]; ok {
		return fmt.Sprintf("%q looks like a typo: replace %s with %s in the failing CI step.", cmd, cmd, fix)
	}
	if strings.HasPrefix(cmd, "./") {
		return fmt.Sprintf("%s is invoked as a local script but could not be executed: make sure it is committed with the execute bit (git update-index --chmod=+x %s).",
			cmd, strings.TrimPrefix(cmd, "./"))
	}
	if strings.HasSuffix(cmd, ".sh") {
		return fmt.Sprintf("%s looks like a shell script run without an interpreter: add a \"#!/usr/bin/env bash\" shebang or run it as \"bash %s\".", cmd, cmd)
	}
	if hint, ok := s.tools[cmd]; ok {
		return fmt.Sprintf("%s is not installed on the runner: %s", cmd, hint)
	}
	return ManualIntervention
}
