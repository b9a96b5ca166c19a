package output

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"WordCount/internal/logger"
	"WordCount/internal/types"
)

const (
	// ResultFile is the fixed name of the result file inside the output directory.
	ResultFile = "part-00000"
	// MarkerFile signals that the output directory is complete.
	MarkerFile = "_SUCCESS"

	markerMessage = "Job completed successfully.\n"
)

var (
	ErrAlreadyExists     = fmt.Errorf("output directory already exists: %w", fs.ErrExist)
	ErrNotCreated        = errors.New("output directory not created by this sink")
	ErrResultsNotWritten = errors.New("results have not been written")
	ErrAlreadyComplete   = errors.New("output already marked complete")
	ErrIncomplete        = errors.New("output directory has no success marker")
	ErrInsufficientSpace = errors.New("insufficient disk space for results")

	errSpaceUnknown = errors.New("free space unknown")
)

// Sink owns the lifecycle of one output directory: create it, write the
// result file, then publish the success marker.
type Sink struct {
	dir     string
	state   types.OutputState
	written bool
	logger  *logger.Logger
}

// NewSink returns a sink for dir. Nothing touches the file system until Create.
func NewSink(dir string, lg *logger.Logger) *Sink {
	if lg == nil {
		lg = logger.New("INFO")
	}
	return &Sink{dir: dir, state: types.OutputAbsent, logger: lg}
}

func (s *Sink) Dir() string {
	return s.dir
}

func (s *Sink) State() types.OutputState {
	return s.state
}

// CheckAbsent fails with ErrAlreadyExists when the directory is already there.
func CheckAbsent(dir string) error {
	_, err := os.Lstat(dir)
	switch {
	case err == nil:
		return fmt.Errorf("%w: %s", ErrAlreadyExists, dir)
	case errors.Is(err, fs.ErrNotExist):
		return nil
	default:
		return fmt.Errorf("failed to stat output directory %s: %w", dir, err)
	}
}

// Create makes the output directory. It never reuses an existing directory.
func (s *Sink) Create() error {
	if s.state != types.OutputAbsent {
		return fmt.Errorf("%w: %s", ErrAlreadyExists, s.dir)
	}

	// The parent may be missing; the directory itself must not exist.
	if err := os.MkdirAll(filepath.Dir(s.dir), 0755); err != nil {
		return fmt.Errorf("failed to create parent of output directory: %w", err)
	}

	if err := os.Mkdir(s.dir, 0755); err != nil {
		if errors.Is(err, fs.ErrExist) {
			return fmt.Errorf("%w: %s", ErrAlreadyExists, s.dir)
		}
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	s.state = types.OutputIncomplete
	return nil
}

// WriteResults serializes results as "key\tcount\n" lines, in the order
// given, into the result file. The file is flushed and synced before return.
func (s *Sink) WriteResults(results []types.Result) error {
	switch s.state {
	case types.OutputAbsent:
		return ErrNotCreated
	case types.OutputComplete:
		return ErrAlreadyComplete
	}

	if err := s.preflight(encodedSize(results)); err != nil {
		return err
	}

	path := filepath.Join(s.dir, ResultFile)
	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("failed to create result file: %w", err)
	}

	if err := writeResults(file, results); err != nil {
		file.Close()
		return fmt.Errorf("failed to write result file %s: %w", path, err)
	}
	if err := file.Sync(); err != nil {
		file.Close()
		return fmt.Errorf("failed to sync result file %s: %w", path, err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("failed to close result file %s: %w", path, err)
	}

	s.written = true
	return nil
}

// preflight fails only when the file system reports too little space. If
// the free space cannot be read the write goes ahead and reports a full disk
// itself.
func (s *Sink) preflight(need uint64) error {
	err := checkSpace(s.dir, need)
	if errors.Is(err, errSpaceUnknown) {
		s.logger.Warn("Skipping free space check: %v", err)
		return nil
	}
	return err
}

func writeResults(file *os.File, results []types.Result) error {
	w := bufio.NewWriter(file)
	for _, r := range results {
		if _, err := w.WriteString(formatResult(r)); err != nil {
			return err
		}
	}
	return w.Flush()
}

func formatResult(r types.Result) string {
	return r.Key + "\t" + strconv.Itoa(r.Count) + "\n"
}

func encodedSize(results []types.Result) uint64 {
	var n uint64
	for _, r := range results {
		n += uint64(len(formatResult(r)))
	}
	return n
}

// MarkSuccess publishes the success marker. It is only valid after a
// successful WriteResults. The marker is written under a temporary name and
// renamed so it never appears half written.
func (s *Sink) MarkSuccess() error {
	switch {
	case s.state == types.OutputAbsent:
		return ErrNotCreated
	case s.state == types.OutputComplete:
		return ErrAlreadyComplete
	case !s.written:
		return ErrResultsNotWritten
	}

	tmp := filepath.Join(s.dir, "."+MarkerFile+".tmp")
	if err := os.WriteFile(tmp, []byte(markerMessage), 0644); err != nil {
		return fmt.Errorf("failed to write success marker: %w", err)
	}

	final := filepath.Join(s.dir, MarkerFile)
	if err := os.Rename(tmp, final); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to publish success marker: %w", err)
	}

	if err := syncDir(s.dir); err != nil {
		return fmt.Errorf("failed to sync output directory: %w", err)
	}

	s.state = types.OutputComplete
	return nil
}

func syncDir(dir string) error {
	d, err := os.Open(dir)
	if err != nil {
		return err
	}
	defer d.Close()
	return d.Sync()
}

// Inspect reports the state of an output directory as a downstream consumer
// sees it.
func Inspect(dir string) (types.OutputState, error) {
	if _, err := os.Stat(dir); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return types.OutputAbsent, nil
		}
		return types.OutputAbsent, err
	}
	if _, err := os.Stat(filepath.Join(dir, MarkerFile)); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return types.OutputIncomplete, nil
		}
		return types.OutputIncomplete, err
	}
	return types.OutputComplete, nil
}

// IsComplete reports whether dir carries the success marker.
func IsComplete(dir string) (bool, error) {
	state, err := Inspect(dir)
	if err != nil {
		return false, err
	}
	return state == types.OutputComplete, nil
}

// ReadResults loads the results of a completed output directory. A
// directory without the marker is treated as partial and rejected.
func ReadResults(dir string) ([]types.Result, error) {
	ok, err := IsComplete(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to inspect output directory: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrIncomplete, dir)
	}

	path := filepath.Join(dir, ResultFile)
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open result file: %w", err)
	}
	defer file.Close()

	results := []types.Result{}
	reader := bufio.NewReader(file)
	for lineNo := 1; ; lineNo++ {
		line, err := reader.ReadString('\n')
		if line != "" {
			r, perr := parseResult(strings.TrimSuffix(line, "\n"))
			if perr != nil {
				return nil, fmt.Errorf("%s:%d: %w", path, lineNo, perr)
			}
			results = append(results, r)
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("failed to read result file: %w", err)
		}
	}
	return results, nil
}

func parseResult(line string) (types.Result, error) {
	key, value, ok := strings.Cut(line, "\t")
	if !ok {
		return types.Result{}, fmt.Errorf("malformed result line %q", line)
	}
	count, err := strconv.Atoi(value)
	if err != nil {
		return types.Result{}, fmt.Errorf("malformed count in %q: %w", line, err)
	}
	return types.Result{Key: key, Count: count}, nil
}
