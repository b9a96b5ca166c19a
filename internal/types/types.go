package types

// Record is a single line of input together with the file it came from.
// Source is informational only and never takes part in grouping.
type Record struct {
	Source string
	Line   string
}

// Emission is the intermediate key-value pair produced by mappers.
type Emission struct {
	Key   string
	Value int
}

// Result is the final count for one distinct key.
type Result struct {
	Key   string
	Count int
}

// OutputState describes the lifecycle of a job output directory.
type OutputState int

const (
	OutputAbsent OutputState = iota
	OutputIncomplete
	OutputComplete
)

func (s OutputState) String() string {
	switch s {
	case OutputAbsent:
		return "absent"
	case OutputIncomplete:
		return "created-incomplete"
	case OutputComplete:
		return "created-complete"
	default:
		return "unknown"
	}
}
