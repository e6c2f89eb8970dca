package pipeline

import (
	"time"
)

// Summary is the aggregate outcome of a run. Per-record and per-page
// problems are counted here instead of being returned as errors.
type Summary struct {
	RunID string `json:"run_id"`

	PagesFetched int   `json:"pages_fetched"`
	PagesFailed  int   `json:"pages_failed"`
	PagesEmpty   int   `json:"pages_empty"`
	FailedPages  []int `json:"failed_pages,omitempty"`

	RowsSeen      int `json:"rows_seen"`
	ParseFailures int `json:"parse_failures"`
	// Accepted counts records that passed validation, Clean and Degraded
	// split them by whether an optional field was dropped.
	Accepted   int            `json:"accepted"`
	Clean      int            `json:"clean"`
	Degraded   int            `json:"degraded"`
	Persisted  int            `json:"persisted"`
	Duplicates int            `json:"duplicates"`
	Rejected   map[string]int `json:"rejected"`
	Dropped    map[string]int `json:"dropped"`

	StopReason string    `json:"stop_reason"`
	Start      time.Time `json:"start"`
	End        time.Time `json:"end"`
}

func newSummary(runID string, start time.Time) Summary {
	return Summary{
		RunID:    runID,
		Rejected: map[string]int{},
		Dropped:  map[string]int{},
		Start:    start,
	}
}

// RejectedTotal returns the number of rejected records across all reasons.
func (s Summary) RejectedTotal() int {
	total := 0
	for _, n := range s.Rejected {
		total += n
	}
	return total
}

func (s Summary) Duration() time.Duration {
	if s.End.IsZero() {
		return 0
	}
	return s.End.Sub(s.Start)
}
