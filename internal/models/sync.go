package models

import "time"

// SyncScopeAll marks a run over the whole catalog.
const SyncScopeAll = "all"

// Sync run states.
const (
	SyncStatusQueued    = "queued"
	SyncStatusRunning   = "running"
	SyncStatusCompleted = "completed"
	SyncStatusFailed    = "failed"
	SyncStatusCancelled = "cancelled"
)

// SyncFailure records why a course was skipped or failed.
type SyncFailure struct {
	Code   string `json:"code"`
	Reason string `json:"reason"`
}

// SyncReport summarises one sync run.
type SyncReport struct {
	RunID          string        `json:"run_id"`
	Scope          string        `json:"scope"`
	Status         string        `json:"status"`
	StartedAt      time.Time     `json:"started_at"`
	FinishedAt     time.Time     `json:"finished_at,omitempty"`
	Processed      int           `json:"processed"`
	Skipped        int           `json:"skipped"`
	Failed         int           `json:"failed"`
	GradesWritten  int           `json:"grades_written"`
	GradesRejected int           `json:"grades_rejected"`
	Failures       []SyncFailure `json:"failures,omitempty"`
}
