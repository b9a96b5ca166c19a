package coordinator

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"WordCount/internal/input"
	"WordCount/internal/ledger"
	"WordCount/internal/logger"
	"WordCount/internal/mapreduce"
	"WordCount/internal/output"
	"WordCount/internal/wordcount"
)

// Runner drives word count jobs from an input source to a completed
// output directory.
type Runner struct {
	engine *mapreduce.Engine
	mapper mapreduce.Mapper
	ledger *ledger.Ledger
	logger *logger.Logger
}

// Config for a runner
type Config struct {
	Workers int            // Map and sort goroutines; below one means one per CPU
	Ledger  *ledger.Ledger // Optional job journal
	Logger  *logger.Logger // Defaults to an INFO logger on stderr
}

// Summary describes one finished job.
type Summary struct {
	JobID     string
	Records   int
	Emissions int
	Results   int
	OutputDir string
	Duration  time.Duration
}

// NewRunner creates a runner counting words with cfg.Workers goroutines.
func NewRunner(cfg Config) *Runner {
	lg := cfg.Logger
	if lg == nil {
		lg = logger.New("INFO")
	}
	return &Runner{
		engine: mapreduce.NewEngine(cfg.Workers),
		mapper: wordcount.Counter{},
		ledger: cfg.Ledger,
		logger: lg,
	}
}

// Run counts the words of src and publishes them under outputDir. The
// directory must not exist; on success it holds the result file and the
// success marker. Nothing is retried.
func (r *Runner) Run(src input.Source, outputDir string) (*Summary, error) {
	start := time.Now()
	jobID := "job-" + uuid.New().String()[:8]

	if err := output.CheckAbsent(outputDir); err != nil {
		r.logger.Error("Job rejected: job_id=%s error=%v", jobID, err)
		return nil, err
	}

	r.logger.Info("Job started: job_id=%s input=%s output=%s workers=%d",
		jobID, describe(src), outputDir, r.engine.Workers())
	r.journal(func(l *ledger.Ledger) error {
		return l.StartJob(jobID, describe(src), outputDir)
	})

	summary, err := r.run(jobID, src, outputDir)
	if err != nil {
		r.logger.Error("Job failed: job_id=%s error=%v", jobID, err)
		r.journal(func(l *ledger.Ledger) error {
			return l.FailJob(jobID, err)
		})
		return nil, err
	}

	summary.Duration = time.Since(start)
	r.journal(func(l *ledger.Ledger) error {
		return l.CompleteJob(jobID, summary.Records, summary.Emissions, summary.Results)
	})
	r.logger.Info("Job succeeded: %s", logger.Fields(map[string]interface{}{
		"job_id":    jobID,
		"records":   summary.Records,
		"emissions": summary.Emissions,
		"results":   summary.Results,
		"elapsed":   summary.Duration,
	}))
	return summary, nil
}

func (r *Runner) run(jobID string, src input.Source, outputDir string) (*Summary, error) {
	records, err := src.Records()
	if err != nil {
		return nil, fmt.Errorf("failed to read input: %w", err)
	}
	r.logger.Debug("Input loaded: job_id=%s records=%d", jobID, len(records))

	emissions := r.engine.Map(records, r.mapper)
	r.logger.Debug("Map finished: job_id=%s emissions=%d", jobID, len(emissions))

	sorted := r.engine.Sort(emissions)
	results := mapreduce.Reduce(sorted)
	r.logger.Debug("Reduce finished: job_id=%s results=%d", jobID, len(results))

	sink := output.NewSink(outputDir, r.logger)
	if err := sink.Create(); err != nil {
		return nil, err
	}
	if err := sink.WriteResults(results); err != nil {
		return nil, err
	}
	if err := sink.MarkSuccess(); err != nil {
		return nil, err
	}

	return &Summary{
		JobID:     jobID,
		Records:   len(records),
		Emissions: len(emissions),
		Results:   len(results),
		OutputDir: sink.Dir(),
	}, nil
}

// journal records a job event when a ledger is configured. A journaling
// failure is logged and never fails the job.
func (r *Runner) journal(fn func(*ledger.Ledger) error) {
	if r.ledger == nil {
		return
	}
	if err := fn(r.ledger); err != nil {
		r.logger.Warn("Failed to journal job event: %v", err)
	}
}

func describe(src input.Source) string {
	if d, ok := src.(input.Dir); ok {
		return d.Path
	}
	return fmt.Sprintf("%T", src)
}
