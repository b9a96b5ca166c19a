package ledger

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"

	"WordCount/internal/logger"
	"WordCount/internal/types"

	raft "github.com/hashicorp/raft"
)

var (
	ErrJobNotFound = errors.New("job not found")
	ErrJobExists   = errors.New("job already recorded")
	ErrJobFinished = errors.New("job already finished")
)

// FSM implements the Finite State Machine for Raft.
// It maintains the journal of job runs.
type FSM struct {
	mu     sync.RWMutex
	state  *types.LedgerState
	logger *logger.Logger
}

// NewFSM creates a new FSM with an empty journal
func NewFSM(lg *logger.Logger) *FSM {
	if lg == nil {
		lg = logger.New("INFO")
	}
	return &FSM{
		state:  newState(),
		logger: lg,
	}
}

func newState() *types.LedgerState {
	return &types.LedgerState{Jobs: make(map[string]*types.JobRecord)}
}

// Apply implements raft.FSM - processes a log entry committed by Raft
func (f *FSM) Apply(log *raft.Log) interface{} {
	f.mu.Lock()
	defer f.mu.Unlock()

	var entry types.LogEntry
	if err := json.Unmarshal(log.Data, &entry); err != nil {
		f.logger.Error("Failed to unmarshal log entry: %v", err)
		return fmt.Errorf("failed to unmarshal log entry: %w", err)
	}

	f.logger.Debug("Applying log entry: type=%s operation=%s index=%d", entry.Type, entry.Operation, log.Index)

	switch entry.Type {
	case "job":
		return f.applyJobOperation(&entry)
	default:
		f.logger.Warn("Unknown log entry type: %s", entry.Type)
		return fmt.Errorf("unknown log entry type: %s", entry.Type)
	}
}

func (f *FSM) applyJobOperation(entry *types.LogEntry) interface{} {
	switch entry.Operation {
	case "start":
		var start types.JobStart
		if err := json.Unmarshal(entry.Data, &start); err != nil {
			return fmt.Errorf("invalid job start data: %w", err)
		}
		if _, exists := f.state.Jobs[start.JobID]; exists {
			return fmt.Errorf("%w: %s", ErrJobExists, start.JobID)
		}

		f.state.Jobs[start.JobID] = &types.JobRecord{
			ID:        start.JobID,
			InputDir:  start.InputDir,
			OutputDir: start.OutputDir,
			Status:    types.JobRunning,
			StartedAt: entry.Timestamp,
		}
		f.state.Version++
		f.logger.Debug("Job started: job_id=%s output=%s", start.JobID, start.OutputDir)
		return nil

	case "complete":
		var done types.JobCompletion
		if err := json.Unmarshal(entry.Data, &done); err != nil {
			return fmt.Errorf("invalid job completion data: %w", err)
		}
		job, err := f.runningJob(done.JobID)
		if err != nil {
			return err
		}

		job.Status = types.JobSucceeded
		job.Records = done.Records
		job.Emissions = done.Emissions
		job.Results = done.Results
		job.FinishedAt = entry.Timestamp
		f.state.Version++
		f.logger.Debug("Job succeeded: job_id=%s results=%d", done.JobID, done.Results)
		return nil

	case "fail":
		var failure types.JobFailure
		if err := json.Unmarshal(entry.Data, &failure); err != nil {
			return fmt.Errorf("invalid job failure data: %w", err)
		}
		job, err := f.runningJob(failure.JobID)
		if err != nil {
			return err
		}

		job.Status = types.JobFailed
		job.Error = failure.Error
		job.FinishedAt = entry.Timestamp
		f.state.Version++
		f.logger.Debug("Job failed: job_id=%s error=%s", failure.JobID, failure.Error)
		return nil

	default:
		f.logger.Warn("Unknown job operation: %s", entry.Operation)
		return fmt.Errorf("unknown job operation: %s", entry.Operation)
	}
}

func (f *FSM) runningJob(id string) (*types.JobRecord, error) {
	job, exists := f.state.Jobs[id]
	if !exists {
		f.logger.Warn("Job not found: job_id=%s", id)
		return nil, fmt.Errorf("%w: %s", ErrJobNotFound, id)
	}
	if job.Status != types.JobRunning {
		return nil, fmt.Errorf("%w: %s is %s", ErrJobFinished, id, job.Status)
	}
	return job, nil
}

// Snapshot implements raft.FSM - creates a snapshot of the current state
func (f *FSM) Snapshot() (raft.FSMSnapshot, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return &snapshot{state: copyState(f.state)}, nil
}

// Restore implements raft.FSM - restores state from a snapshot
func (f *FSM) Restore(rc io.ReadCloser) error {
	defer rc.Close()

	var state types.LedgerState
	if err := json.NewDecoder(rc).Decode(&state); err != nil {
		return fmt.Errorf("failed to decode snapshot: %w", err)
	}
	if state.Jobs == nil {
		state.Jobs = make(map[string]*types.JobRecord)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.state = &state
	return nil
}

// GetState returns a copy of the current journal
func (f *FSM) GetState() *types.LedgerState {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return copyState(f.state)
}

// GetJob returns a copy of one job record
func (f *FSM) GetJob(id string) (types.JobRecord, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	job, ok := f.state.Jobs[id]
	if !ok {
		return types.JobRecord{}, false
	}
	return *job, true
}

// Jobs returns every job ordered by start time.
func (f *FSM) Jobs() []types.JobRecord {
	f.mu.RLock()
	jobs := make([]types.JobRecord, 0, len(f.state.Jobs))
	for _, job := range f.state.Jobs {
		jobs = append(jobs, *job)
	}
	f.mu.RUnlock()

	sort.Slice(jobs, func(i, j int) bool {
		if !jobs[i].StartedAt.Equal(jobs[j].StartedAt) {
			return jobs[i].StartedAt.Before(jobs[j].StartedAt)
		}
		return jobs[i].ID < jobs[j].ID
	})
	return jobs
}

func copyState(state *types.LedgerState) *types.LedgerState {
	out := &types.LedgerState{
		Jobs:    make(map[string]*types.JobRecord, len(state.Jobs)),
		Version: state.Version,
	}
	for k, v := range state.Jobs {
		job := *v
		out.Jobs[k] = &job
	}
	return out
}

// snapshot implements raft.FSMSnapshot
type snapshot struct {
	state *types.LedgerState
}

// Persist writes the snapshot to a sink
func (s *snapshot) Persist(sink raft.SnapshotSink) error {
	data, err := json.Marshal(s.state)
	if err != nil {
		sink.Cancel()
		return err
	}

	if _, err := sink.Write(data); err != nil {
		sink.Cancel()
		return err
	}

	return sink.Close()
}

func (s *snapshot) Release() {}
