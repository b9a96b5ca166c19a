package types

import (
	"encoding/json"
	"time"
)

// JobStatus represents the status of a job run
type JobStatus string

const (
	JobRunning   JobStatus = "running"
	JobSucceeded JobStatus = "succeeded"
	JobFailed    JobStatus = "failed"
)

// JobRecord is the journaled view of one job run
type JobRecord struct {
	ID         string    `json:"id"`
	InputDir   string    `json:"input_dir"`
	OutputDir  string    `json:"output_dir"`
	Status     JobStatus `json:"status"`
	Records    int       `json:"records"`
	Emissions  int       `json:"emissions"`
	Results    int       `json:"results"`
	Error      string    `json:"error,omitempty"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at,omitempty"`
}

// LedgerState is the state every ledger replica agrees on
type LedgerState struct {
	Jobs    map[string]*JobRecord `json:"jobs"`
	Version int64                 `json:"version"`
}

// LogEntry represents an entry in the ledger log
type LogEntry struct {
	Type      string          `json:"type"`      // "job"
	Operation string          `json:"operation"` // "start", "complete", "fail"
	Data      json.RawMessage `json:"data"`
	Timestamp time.Time       `json:"timestamp"`
}

// JobStart is a log entry operation
type JobStart struct {
	JobID     string `json:"job_id"`
	InputDir  string `json:"input_dir"`
	OutputDir string `json:"output_dir"`
}

// JobCompletion is a log entry operation
type JobCompletion struct {
	JobID     string `json:"job_id"`
	Records   int    `json:"records"`
	Emissions int    `json:"emissions"`
	Results   int    `json:"results"`
}

// JobFailure is a log entry operation
type JobFailure struct {
	JobID string `json:"job_id"`
	Error string `json:"error"`
}
