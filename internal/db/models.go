package db

import (
	"time"
)

// RunStatus classifies the outcome of an export run.
type RunStatus string

const (
	RunStatusSuccess RunStatus = "success"
	RunStatusPartial RunStatus = "partial" // Run completed with warnings or incomplete reconciliation
	RunStatusError   RunStatus = "error"   // Run failed on a critical error
)

// ValidRunStatuses contains all valid run status values.
var ValidRunStatuses = map[RunStatus]bool{
	RunStatusSuccess: true,
	RunStatusPartial: true,
	RunStatusError:   true,
}

// IsValid returns true if the run status is a known valid value.
func (s RunStatus) IsValid() bool {
	return ValidRunStatuses[s]
}

// RunLog is one recorded export run.
type RunLog struct {
	ID            string        `json:"id"`
	Status        RunStatus     `json:"status"`
	Message       string        `json:"message"`
	ExportedCount int           `json:"exported_count"`
	DeletedCount  int           `json:"deleted_count"`
	ImportedCount int           `json:"imported_count"`
	Warnings      []string      `json:"warnings,omitempty"`
	Dispatched    string        `json:"dispatched"`
	Duration      time.Duration `json:"duration"`
	CreatedAt     time.Time     `json:"created_at"`
}
