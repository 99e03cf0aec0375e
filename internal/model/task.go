package model

import (
	"fmt"
	"time"
)

// Stage is one ordered step in the suggestion pipeline.
type Stage int

const (
	// StageContextAnalysis extracts an opaque context report from the code.
	StageContextAnalysis Stage = iota + 1
	// StageVulnerabilityScan detects security findings using the context report.
	StageVulnerabilityScan
	// StageOptimizationGen produces ranked optimization records.
	StageOptimizationGen
	// StageStyleAdaptation rewrites suggested code to match the user style profile.
	StageStyleAdaptation
	// StageTelemetryHook records generated suggestions and commits the task. Terminal.
	StageTelemetryHook
)

var stageNames = map[Stage]string{
	StageContextAnalysis:   "CONTEXT_ANALYSIS",
	StageVulnerabilityScan: "VULNERABILITY_SCAN",
	StageOptimizationGen:   "OPTIMIZATION_GEN",
	StageStyleAdaptation:   "STYLE_ADAPTATION",
	StageTelemetryHook:     "TELEMETRY_HOOK",
}

func (s Stage) String() string {
	name, ok := stageNames[s]
	if !ok {
		return fmt.Sprintf("UNKNOWN(%d)", int(s))
	}
	return name
}

// Terminal returns true when the stage is the last one of the sequence.
func (s Stage) Terminal() bool { return s == StageTelemetryHook }

// Valid returns true when the stage is one of the enumerated values.
func (s Stage) Valid() bool {
	_, ok := stageNames[s]
	return ok
}

// DefaultPriority is the priority used when the caller doesn't set one.
// Lower is more urgent.
const DefaultPriority = 5

// Task is the mutable unit of work flowing through the pipeline. It is owned
// by exactly one worker between dequeue and the next enqueue or terminal
// commit, the queue hand-off is the only synchronization it needs.
type Task struct {
	ID       string
	FilePath string
	Code     string
	Stage    Stage
	Priority int
	// Attempts counts executions of the current stage, it resets to 0 when
	// the stage advances.
	Attempts int
	Metadata map[string]interface{}

	// Results accumulated as the task progresses through the stages.
	ContextReport    *ContextReport
	VulnReport       *VulnReport
	Optimizations    []Optimization
	FinalSuggestions []Suggestion

	CreatedAt time.Time
}

// Validate validates a newly ingested task.
func (t *Task) Validate() error {
	if t.FilePath == "" {
		return fmt.Errorf("file path is required: %w", ErrNotValid)
	}
	if t.Code == "" {
		return fmt.Errorf("code is required: %w", ErrNotValid)
	}
	if !t.Stage.Valid() {
		return fmt.Errorf("unknown stage %d: %w", int(t.Stage), ErrNotValid)
	}
	if t.Priority < 0 {
		return fmt.Errorf("priority must not be negative: %w", ErrNotValid)
	}
	return nil
}
