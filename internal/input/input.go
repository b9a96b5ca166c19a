package input

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode/utf8"

	"WordCount/internal/types"
)

// ErrInvalidUTF8 reports an input line that is not valid UTF-8.
var ErrInvalidUTF8 = errors.New("not valid UTF-8")

// Source supplies the records of a job.
type Source interface {
	Records() ([]types.Record, error)
}

// Dir reads every regular file directly inside Path, one record per line.
type Dir struct {
	Path string
}

// Files lists the regular files of the directory in name order. Symlinks
// are followed. Hidden files and sub-directories are skipped.
func (d Dir) Files() ([]string, error) {
	entries, err := os.ReadDir(d.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to read input directory %s: %w", d.Path, err)
	}

	var files []string
	for _, entry := range entries {
		if strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		path := filepath.Join(d.Path, entry.Name())
		if entry.Type()&fs.ModeSymlink != 0 {
			info, err := os.Stat(path)
			if err != nil {
				return nil, fmt.Errorf("failed to resolve input file %s: %w", path, err)
			}
			if !info.Mode().IsRegular() {
				continue
			}
		} else if !entry.Type().IsRegular() {
			continue
		}
		files = append(files, path)
	}
	sort.Strings(files)
	return files, nil
}

// Records loads every line of every file. Each record is tagged with the
// path of the file it came from.
func (d Dir) Records() ([]types.Record, error) {
	files, err := d.Files()
	if err != nil {
		return nil, err
	}

	records := []types.Record{}
	for _, path := range files {
		records, err = readLines(path, records)
		if err != nil {
			return nil, err
		}
	}
	return records, nil
}

func readLines(path string, records []types.Record) ([]types.Record, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open input file %s: %w", path, err)
	}
	defer file.Close()

	// bufio.Reader instead of Scanner: lines have no length limit.
	reader := bufio.NewReader(file)
	for lineNo := 1; ; lineNo++ {
		line, err := reader.ReadString('\n')
		if line != "" {
			line = strings.TrimSuffix(strings.TrimSuffix(line, "\n"), "\r")
			if !utf8.ValidString(line) {
				return nil, fmt.Errorf("failed to read input file %s: line %d: %w", path, lineNo, ErrInvalidUTF8)
			}
			records = append(records, types.Record{Source: path, Line: line})
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return records, nil
			}
			return nil, fmt.Errorf("failed to read input file %s: %w", path, err)
		}
	}
}

// Lines is an in-memory Source, mostly useful in tests.
type Lines []string

func (l Lines) Records() ([]types.Record, error) {
	records := make([]types.Record, 0, len(l))
	for i, line := range l {
		records = append(records, types.Record{Source: fmt.Sprintf("line-%d", i), Line: line})
	}
	return records, nil
}
