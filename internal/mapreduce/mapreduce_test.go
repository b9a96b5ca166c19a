package mapreduce

import (
	"fmt"
	"math/rand"
	"reflect"
	"testing"

	"WordCount/internal/types"
	"WordCount/internal/wordcount"
)

func records(lines ...string) []types.Record {
	recs := make([]types.Record, 0, len(lines))
	for i, line := range lines {
		recs = append(recs, types.Record{Source: fmt.Sprintf("file-%d", i), Line: line})
	}
	return recs
}

func TestEndToEndScenario(t *testing.T) {
	engine := NewEngine(1)
	recs := records("the cat sat", "the cat ran")

	emissions := engine.Map(recs, wordcount.Counter{})
	wantEmissions := []types.Emission{{Key: "the", Value: 1}, {Key: "cat", Value: 1}, {Key: "sat", Value: 1}, {Key: "the", Value: 1}, {Key: "cat", Value: 1}, {Key: "ran", Value: 1}}
	if !reflect.DeepEqual(emissions, wantEmissions) {
		t.Fatalf("unexpected emissions: %v", emissions)
	}

	results := Reduce(engine.Sort(emissions))
	want := []types.Result{{Key: "cat", Count: 2}, {Key: "ran", Count: 1}, {Key: "sat", Count: 1}, {Key: "the", Count: 2}}
	if !reflect.DeepEqual(results, want) {
		t.Fatalf("unexpected results: %v", results)
	}
}

func TestNormalizationThroughPipeline(t *testing.T) {
	cases := []struct {
		line string
		want []types.Result
	}{
		{"  a  a ", []types.Result{{Key: "a", Count: 2}}},
		{"Cat cat CAT", []types.Result{{Key: "cat", Count: 3}}},
		{"Don't stop!", []types.Result{{Key: "dont", Count: 1}, {Key: "stop", Count: 1}}},
	}
	for _, tc := range cases {
		got := NewEngine(1).Execute(records(tc.line), wordcount.Counter{})
		if !reflect.DeepEqual(got, tc.want) {
			t.Errorf("Execute(%q) = %v, want %v", tc.line, got, tc.want)
		}
	}
}

func TestReduceEmpty(t *testing.T) {
	got := Reduce(nil)
	if got == nil || len(got) != 0 {
		t.Fatalf("expected empty non-nil results, got %#v", got)
	}

	got = NewEngine(4).Execute(nil, wordcount.Counter{})
	if len(got) != 0 {
		t.Fatalf("expected no results for empty input, got %v", got)
	}
}

func TestReduceFlushesTrailingRun(t *testing.T) {
	sorted := []types.Emission{{Key: "a", Value: 1}, {Key: "b", Value: 1}, {Key: "b", Value: 1}, {Key: "b", Value: 1}}
	got := Reduce(sorted)
	want := []types.Result{{Key: "a", Count: 1}, {Key: "b", Count: 3}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected results: %v", got)
	}

	single := Reduce([]types.Emission{{Key: "only", Value: 1}})
	if !reflect.DeepEqual(single, []types.Result{{Key: "only", Count: 1}}) {
		t.Fatalf("single run not flushed: %v", single)
	}
}

func TestReduceSumsValues(t *testing.T) {
	got := Reduce([]types.Emission{{Key: "x", Value: 2}, {Key: "x", Value: 5}, {Key: "y", Value: 0}})
	want := []types.Result{{Key: "x", Count: 7}, {Key: "y", Count: 0}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected results: %v", got)
	}
}

func TestReduceIsDeterministic(t *testing.T) {
	sorted := NewEngine(1).Sort(randomEmissions(rand.New(rand.NewSource(7)), 500))
	first := Reduce(sorted)
	second := Reduce(sorted)
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("reduce is not deterministic")
	}
}

func TestSortUsesByteOrder(t *testing.T) {
	emissions := []types.Emission{{Key: "b", Value: 1}, {Key: "B", Value: 1}, {Key: "a", Value: 1}, {Key: "é", Value: 1}, {Key: "z", Value: 1}}
	got := NewEngine(1).Sort(emissions)

	keys := make([]string, len(got))
	for i, kv := range got {
		keys[i] = kv.Key
	}
	want := []string{"B", "a", "b", "z", "é"}
	if !reflect.DeepEqual(keys, want) {
		t.Fatalf("unexpected key order: %q", keys)
	}
}

func TestParallelSortMatchesSequential(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for _, workers := range []int{2, 3, 8, 64} {
		input := randomEmissions(rng, 1000)
		seq := NewEngine(1).Sort(append([]types.Emission(nil), input...))
		par := NewEngine(workers).Sort(append([]types.Emission(nil), input...))

		if len(par) != len(seq) {
			t.Fatalf("workers=%d: length %d, want %d", workers, len(par), len(seq))
		}
		for i := range seq {
			if par[i].Key != seq[i].Key {
				t.Fatalf("workers=%d: key %d = %q, want %q", workers, i, par[i].Key, seq[i].Key)
			}
		}
		if !reflect.DeepEqual(Reduce(par), Reduce(seq)) {
			t.Fatalf("workers=%d: reduce differs from sequential", workers)
		}
	}
}

func TestSortResultIsTheReturnValue(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for _, workers := range []int{1, 4} {
		input := randomEmissions(rng, 200)
		sorted := NewEngine(workers).Sort(input)

		if len(sorted) != 200 {
			t.Fatalf("workers=%d: length %d, want 200", workers, len(sorted))
		}
		for i := 1; i < len(sorted); i++ {
			if sorted[i-1].Key > sorted[i].Key {
				t.Fatalf("workers=%d: returned slice not sorted at %d", workers, i)
			}
		}
	}
}

func TestParallelExecuteMatchesSequential(t *testing.T) {
	lines := []string{
		"It was the best of times, it was the worst of times;",
		"it was the age of wisdom, it was the age of foolishness.",
		"Don't panic!",
		"",
		"  spaced   out  ",
	}
	var recs []types.Record
	for i := 0; i < 50; i++ {
		recs = append(recs, records(lines...)...)
	}

	seq := NewEngine(1).Execute(recs, wordcount.Counter{})
	par := NewEngine(6).Execute(recs, wordcount.Counter{})
	if !reflect.DeepEqual(seq, par) {
		t.Fatalf("parallel results differ:\nseq=%v\npar=%v", seq, par)
	}
}

func TestCountingAndGroupingCompleteness(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	words := []string{"alpha", "beta", "gamma", "delta", "epsilon"}

	expected := make(map[string]int)
	var recs []types.Record
	for i := 0; i < 200; i++ {
		n := rng.Intn(6)
		line := ""
		for j := 0; j < n; j++ {
			w := words[rng.Intn(len(words))]
			expected[w]++
			line += w + " "
		}
		recs = append(recs, types.Record{Source: "gen", Line: line})
	}

	engine := NewEngine(4)
	emissions := engine.Map(recs, wordcount.Counter{})
	results := Reduce(engine.Sort(emissions))

	if len(results) != len(expected) {
		t.Fatalf("got %d results, want %d distinct keys", len(results), len(expected))
	}
	total := 0
	for i, r := range results {
		if i > 0 && results[i-1].Key >= r.Key {
			t.Fatalf("results not strictly ordered at %d: %q then %q", i, results[i-1].Key, r.Key)
		}
		if expected[r.Key] != r.Count {
			t.Errorf("count for %q = %d, want %d", r.Key, r.Count, expected[r.Key])
		}
		total += r.Count
	}
	if total != len(emissions) {
		t.Fatalf("sum of counts %d != emissions %d", total, len(emissions))
	}
}

func TestSplit(t *testing.T) {
	cases := []struct {
		n, parts int
		want     int
	}{
		{0, 4, 0},
		{3, 8, 3},
		{10, 3, 3},
		{10, 1, 1},
	}
	for _, tc := range cases {
		spans := split(tc.n, tc.parts)
		if len(spans) != tc.want {
			t.Fatalf("split(%d, %d) gave %d spans, want %d", tc.n, tc.parts, len(spans), tc.want)
		}
		covered := 0
		for _, s := range spans {
			if s.hi <= s.lo {
				t.Fatalf("empty span %v", s)
			}
			covered += s.hi - s.lo
		}
		if covered != tc.n {
			t.Fatalf("split(%d, %d) covers %d", tc.n, tc.parts, covered)
		}
	}
}

func randomEmissions(rng *rand.Rand, n int) []types.Emission {
	out := make([]types.Emission, n)
	for i := range out {
		out[i] = types.Emission{Key: fmt.Sprintf("k%03d", rng.Intn(97)), Value: 1}
	}
	return out
}
