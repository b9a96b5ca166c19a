package mapreduce

import (
	"runtime"
	"slices"
	"strings"
	"sync"

	"WordCount/internal/types"
)

// Mapper defines the map function interface.
type Mapper interface {
	Map(rec types.Record, emit func(key string, value int))
}

// Engine is the MapReduce execution engine.
type Engine struct {
	numWorkers int
}

// NewEngine creates a new MapReduce engine. numWorkers below one means one
// worker per CPU.
func NewEngine(numWorkers int) *Engine {
	if numWorkers < 1 {
		numWorkers = runtime.NumCPU()
	}
	return &Engine{numWorkers: numWorkers}
}

// Workers reports how many goroutines the map and sort stages use.
func (e *Engine) Workers() int {
	return e.numWorkers
}

// Execute runs map, sort and reduce over records, each stage to completion.
func (e *Engine) Execute(records []types.Record, mapper Mapper) []types.Result {
	return Reduce(e.Sort(e.Map(records, mapper)))
}

// Map applies mapper to every record. Records are split into contiguous
// chunks, one per worker; emission order across chunks is not preserved.
func (e *Engine) Map(records []types.Record, mapper Mapper) []types.Emission {
	if len(records) == 0 {
		return []types.Emission{}
	}

	chunks := split(len(records), e.numWorkers)
	if len(chunks) == 1 {
		return mapChunk(records, mapper)
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	emissions := []types.Emission{}

	for _, c := range chunks {
		wg.Add(1)
		go func(part []types.Record) {
			defer wg.Done()

			kvs := mapChunk(part, mapper)

			mu.Lock()
			emissions = append(emissions, kvs...)
			mu.Unlock()
		}(records[c.lo:c.hi])
	}

	wg.Wait()
	return emissions
}

func mapChunk(records []types.Record, mapper Mapper) []types.Emission {
	kvs := make([]types.Emission, 0, len(records))
	emit := func(key string, value int) {
		kvs = append(kvs, types.Emission{Key: key, Value: value})
	}
	for _, rec := range records {
		mapper.Map(rec, emit)
	}
	return kvs
}

// Sort orders emissions by key using byte-wise comparison and returns the
// sorted slice; callers must use the return value. With one worker the input
// is sorted in place. With more, each partition of the input is sorted on its
// own goroutine and the partitions are merged into a new slice, leaving the
// input only partially ordered.
func (e *Engine) Sort(emissions []types.Emission) []types.Emission {
	chunks := split(len(emissions), e.numWorkers)
	if len(chunks) <= 1 {
		slices.SortFunc(emissions, compareKeys)
		return emissions
	}

	var wg sync.WaitGroup
	parts := make([][]types.Emission, len(chunks))
	for i, c := range chunks {
		parts[i] = emissions[c.lo:c.hi]
		wg.Add(1)
		go func(part []types.Emission) {
			defer wg.Done()
			slices.SortFunc(part, compareKeys)
		}(parts[i])
	}
	wg.Wait()

	return merge(parts, len(emissions))
}

func compareKeys(a, b types.Emission) int {
	return strings.Compare(a.Key, b.Key)
}

// Reduce folds a key-sorted emission stream into one result per key in a
// single pass, keeping only the current key and its running sum.
func Reduce(sorted []types.Emission) []types.Result {
	results := []types.Result{}
	if len(sorted) == 0 {
		return results
	}

	current := sorted[0].Key
	sum := 0
	for _, kv := range sorted {
		if kv.Key != current {
			results = append(results, types.Result{Key: current, Count: sum})
			current = kv.Key
			sum = 0
		}
		sum += kv.Value
	}
	// flush the trailing run
	results = append(results, types.Result{Key: current, Count: sum})

	return results
}

type span struct {
	lo, hi int
}

// split cuts [0, n) into at most parts contiguous non-empty spans.
func split(n, parts int) []span {
	if n == 0 {
		return nil
	}
	if parts > n {
		parts = n
	}
	if parts < 1 {
		parts = 1
	}

	spans := make([]span, 0, parts)
	size := n / parts
	extra := n % parts
	lo := 0
	for i := 0; i < parts; i++ {
		hi := lo + size
		if extra > 0 {
			hi++
			extra--
		}
		spans = append(spans, span{lo: lo, hi: hi})
		lo = hi
	}
	return spans
}
