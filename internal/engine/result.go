package engine

import (
	"github.com/dshills/cimedic/internal/diagnosis"
	"github.com/dshills/cimedic/internal/patch"
)

// Status is the terminal outcome of a run.
type Status string

const (
	StatusApplied Status = "applied"
	StatusNoMatch Status = "no_match"
	StatusSkipped Status = "skipped"
	StatusFailed  Status = "failed"
)

// State is a step of the run state machine.
type State string

const (
	StateStart      State = "start"
	StateClassified State = "classified"
	StateDispatched State = "dispatched"
	StateApplied    State = State(StatusApplied)
	StateNoMatch    State = State(StatusNoMatch)
	StateSkipped    State = State(StatusSkipped)
	StateFailed     State = State(StatusFailed)
	StateDone       State = "done"
)

// Result is the immutable record of one run.
type Result struct {
	RunID        string              `json:"runId"`
	Diagnosis    diagnosis.Diagnosis `json:"diagnosis"`
	Strategy     string              `json:"strategy,omitempty"`
	EditsApplied []patch.FileEdit    `json:"editsApplied"`
	FilesTouched []string            `json:"filesTouched"`
	Status       Status              `json:"status"`
	Explanation  string              `json:"explanation"`
	Advice       string              `json:"advice,omitempty"`
	States       []State             `json:"states"`
	DryRun       bool                `json:"dryRun,omitempty"`
	ElapsedMs    int64               `json:"elapsedMs"`
}

// Succeeded reports whether the run ended in a non-failure state.
func (r Result) Succeeded() bool {
	return r.Status != StatusFailed
}
