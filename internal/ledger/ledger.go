package ledger

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"WordCount/internal/logger"
	"WordCount/internal/types"

	raft "github.com/hashicorp/raft"
	raftboltdb "github.com/hashicorp/raft-boltdb/v2"
)

const (
	defaultNodeID        = "wordcount"
	defaultLeaderTimeout = 5 * time.Second
	applyTimeout         = 5 * time.Second
)

// Ledger journals job runs through a single-voter Raft node. The node talks
// over an in-memory transport, so it never opens a socket.
type Ledger struct {
	nodeID        string
	raft          *raft.Raft
	fsm           *FSM
	logStore      raft.LogStore
	stableStore   raft.StableStore
	snapshotStore raft.SnapshotStore
	transport     *raft.InmemTransport
	logger        *logger.Logger
}

// Config for opening a ledger
type Config struct {
	NodeID        string         // Raft server id, defaults to "wordcount"
	DataDir       string         // Bolt stores and snapshots; empty keeps everything in memory
	LeaderTimeout time.Duration  // How long Open waits for the node to lead
	Logger        *logger.Logger // Defaults to an INFO logger on stderr
}

// Open starts the ledger node, bootstrapping it on first use, and waits
// until it is leader.
func Open(cfg Config) (*Ledger, error) {
	if cfg.NodeID == "" {
		cfg.NodeID = defaultNodeID
	}
	if cfg.LeaderTimeout <= 0 {
		cfg.LeaderTimeout = defaultLeaderTimeout
	}
	lg := cfg.Logger
	if lg == nil {
		lg = logger.New("INFO")
	}

	l := &Ledger{
		nodeID: cfg.NodeID,
		fsm:    NewFSM(lg),
		logger: lg,
	}

	if err := l.openStores(cfg.DataDir); err != nil {
		l.closeStores()
		return nil, err
	}

	addr, transport := raft.NewInmemTransport(raft.ServerAddress(cfg.NodeID))
	l.transport = transport

	raftCfg := raft.DefaultConfig()
	raftCfg.LocalID = raft.ServerID(cfg.NodeID)
	raftCfg.HeartbeatTimeout = 200 * time.Millisecond
	raftCfg.ElectionTimeout = 200 * time.Millisecond
	raftCfg.LeaderLeaseTimeout = 100 * time.Millisecond
	raftCfg.SnapshotInterval = 2 * time.Second
	raftCfg.SnapshotThreshold = 20
	raftCfg.LogOutput = io.Discard
	if lg.Level() <= logger.DEBUG {
		raftCfg.LogOutput = os.Stderr
	}

	hasState, err := raft.HasExistingState(l.logStore, l.stableStore, l.snapshotStore)
	if err != nil {
		l.closeStores()
		return nil, fmt.Errorf("failed to inspect ledger state: %w", err)
	}

	r, err := raft.NewRaft(raftCfg, l.fsm, l.logStore, l.stableStore, l.snapshotStore, transport)
	if err != nil {
		lg.Error("Failed to create raft instance: %v", err)
		l.closeStores()
		return nil, fmt.Errorf("failed to create raft: %w", err)
	}
	l.raft = r

	if !hasState {
		configuration := raft.Configuration{
			Servers: []raft.Server{
				{
					Suffrage: raft.Voter,
					ID:       raft.ServerID(cfg.NodeID),
					Address:  addr,
				},
			},
		}
		if err := r.BootstrapCluster(configuration).Error(); err != nil {
			lg.Error("Failed to bootstrap ledger: %v", err)
			l.Close()
			return nil, fmt.Errorf("failed to bootstrap ledger: %w", err)
		}
		lg.Debug("Ledger bootstrapped: node_id=%s", cfg.NodeID)
	}

	if err := l.waitForLeader(cfg.LeaderTimeout); err != nil {
		l.Close()
		return nil, err
	}

	lg.Info("Ledger open: node_id=%s data_dir=%q", cfg.NodeID, cfg.DataDir)
	return l, nil
}

func (l *Ledger) openStores(dataDir string) error {
	if dataDir == "" {
		store := raft.NewInmemStore()
		l.logStore = store
		l.stableStore = store
		l.snapshotStore = raft.NewInmemSnapshotStore()
		return nil
	}

	if err := os.MkdirAll(dataDir, 0755); err != nil {
		l.logger.Error("Failed to create ledger directory: %v", err)
		return fmt.Errorf("failed to create ledger directory: %w", err)
	}

	logStore, err := raftboltdb.NewBoltStore(filepath.Join(dataDir, "raft-logs.db"))
	if err != nil {
		l.logger.Error("Failed to create log store: %v", err)
		return fmt.Errorf("failed to create log store: %w", err)
	}
	l.logStore = logStore

	stableStore, err := raftboltdb.NewBoltStore(filepath.Join(dataDir, "raft-stable.db"))
	if err != nil {
		l.logger.Error("Failed to create stable store: %v", err)
		return fmt.Errorf("failed to create stable store: %w", err)
	}
	l.stableStore = stableStore

	snapshotStore, err := raft.NewFileSnapshotStore(dataDir, 3, io.Discard)
	if err != nil {
		l.logger.Error("Failed to create snapshot store: %v", err)
		return fmt.Errorf("failed to create snapshot store: %w", err)
	}
	l.snapshotStore = snapshotStore
	return nil
}

func (l *Ledger) waitForLeader(timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if l.raft.State() == raft.Leader {
			return nil
		}
		time.Sleep(20 * time.Millisecond)
	}
	return fmt.Errorf("ledger node %s did not become leader within %s", l.nodeID, timeout)
}

// IsLeader returns true if this node accepts writes
func (l *Ledger) IsLeader() bool {
	return l.raft.State() == raft.Leader
}

func (l *Ledger) apply(operation string, payload interface{}) error {
	if !l.IsLeader() {
		return fmt.Errorf("ledger node %s is not the leader", l.nodeID)
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal %s payload: %w", operation, err)
	}
	entry, err := json.Marshal(&types.LogEntry{
		Type:      "job",
		Operation: operation,
		Data:      data,
		Timestamp: time.Now(),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal entry: %w", err)
	}

	f := l.raft.Apply(entry, applyTimeout)
	if err := f.Error(); err != nil {
		return fmt.Errorf("failed to apply log: %w", err)
	}
	if err, ok := f.Response().(error); ok && err != nil {
		return err
	}
	return nil
}

// StartJob records that a job began writing to outputDir
func (l *Ledger) StartJob(jobID, inputDir, outputDir string) error {
	return l.apply("start", types.JobStart{JobID: jobID, InputDir: inputDir, OutputDir: outputDir})
}

// CompleteJob records a successful run
func (l *Ledger) CompleteJob(jobID string, records, emissions, results int) error {
	return l.apply("complete", types.JobCompletion{
		JobID:     jobID,
		Records:   records,
		Emissions: emissions,
		Results:   results,
	})
}

// FailJob records a failed run
func (l *Ledger) FailJob(jobID string, cause error) error {
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	return l.apply("fail", types.JobFailure{JobID: jobID, Error: msg})
}

// Job returns the journaled record of one job
func (l *Ledger) Job(jobID string) (types.JobRecord, bool) {
	return l.fsm.GetJob(jobID)
}

// Jobs returns every journaled job ordered by start time
func (l *Ledger) Jobs() []types.JobRecord {
	return l.fsm.Jobs()
}

// Snapshot forces a snapshot of the journal
func (l *Ledger) Snapshot() error {
	return l.raft.Snapshot().Error()
}

// Close stops the Raft node and releases its stores
func (l *Ledger) Close() error {
	var firstErr error
	if l.raft != nil {
		if err := l.raft.Shutdown().Error(); err != nil {
			firstErr = err
		}
	}
	if l.transport != nil {
		if err := l.transport.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if err := l.closeStores(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

func (l *Ledger) closeStores() error {
	var firstErr error
	if closer, ok := l.logStore.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			firstErr = err
		}
	}
	if closer, ok := l.stableStore.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	l.logStore = nil
	l.stableStore = nil
	return firstErr
}
