package model

import "github.com/google/uuid"

// Task describes a single image discovered under the input root.
type Task struct {
	ID         uuid.UUID `json:"id"`
	SourcePath string    `json:"source_path"` // path to the source file as yielded by the walk
	RelPath    string    `json:"rel_path"`    // path relative to the input root
	DestRel    string    `json:"dest_rel"`    // RelPath with the extension forced to .png
}

// Statuses of a processed task.
const (
	StatusProcessed = "processed"
	StatusFailed    = "failed"
)

// Result is the outcome of one task.
type Result struct {
	Task   Task        `json:"task"`
	Status string      `json:"status"`
	Kind   FailureKind `json:"kind,omitempty"`
	Error  string      `json:"error,omitempty"`
}

// Report aggregates the outcome of a whole run.
type Report struct {
	RunID     uuid.UUID `json:"run_id"`
	Processed int       `json:"processed"`
	Failed    int       `json:"failed"`
}
