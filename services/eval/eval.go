// Package eval runs RAG evaluation pipelines and aggregates their results.
package eval

import (
	"fmt"
	"time"
)

// RunStatus represents the status of an evaluation run.
type RunStatus int

const (
	RunStatusUnspecified RunStatus = iota
	RunStatusPending
	RunStatusRunning
	RunStatusCompleted
	RunStatusFailed
)

func (s RunStatus) String() string {
	switch s {
	case RunStatusPending:
		return "pending"
	case RunStatusRunning:
		return "running"
	case RunStatusCompleted:
		return "completed"
	case RunStatusFailed:
		return "failed"
	default:
		return "unspecified"
	}
}

// Run represents one evaluation execution over a static dataset.
type Run struct {
	ID           string
	Name         string
	InputURI     string
	OutputURI    string
	Metrics      []string
	Status       RunStatus
	ErrorMessage string
	SampleCount  int
	Report       *Report
	CreatedAt    time.Time
	StartedAt    *time.Time
	CompletedAt  *time.Time
}

// Report is the aggregated artifact of a run: per-metric score columns with
// summary statistics plus a per-sample row table. It is immutable once
// produced and is the only artifact retained after the run.
type Report struct {
	Metrics []MetricReport `json:"metrics"`
	Samples []SampleRow    `json:"samples"`
}

// MetricReport is one metric's column in the report. A nil score marks a
// sample for which the metric was unavailable; nil mean/std mark summary
// statistics that are undefined because no sample produced a valid score.
// Undefined is never collapsed to zero: a mean of 0.0 is a real score.
type MetricReport struct {
	Name       string     `json:"name"`
	Scores     []*float64 `json:"scores"`
	Mean       *float64   `json:"mean"`
	StdDev     *float64   `json:"std_dev"`
	ValidCount int        `json:"valid_count"`
	TokensUsed int        `json:"tokens_used,omitempty"`
}

// SampleRow carries one sample's scores across all metrics, in the
// dataset's original order, for row-level inspection.
type SampleRow struct {
	Index    int                 `json:"index"`
	Question string              `json:"question"`
	Scores   map[string]*float64 `json:"scores"`
	Reasons  map[string]string   `json:"reasons,omitempty"`
}

// Metric returns the named metric's column, if present.
func (r *Report) Metric(name string) (*MetricReport, bool) {
	for i := range r.Metrics {
		if r.Metrics[i].Name == name {
			return &r.Metrics[i], true
		}
	}
	return nil, false
}

// clone returns an independent copy of the run, including its report.
func (r *Run) clone() *Run {
	out := *r
	out.Metrics = append([]string(nil), r.Metrics...)
	if r.Report != nil {
		out.Report = r.Report.clone()
	}
	return &out
}

func (r *Report) clone() *Report {
	out := &Report{
		Metrics: make([]MetricReport, len(r.Metrics)),
		Samples: make([]SampleRow, len(r.Samples)),
	}
	for i, m := range r.Metrics {
		m.Scores = cloneScores(m.Scores)
		m.Mean = cloneFloat(m.Mean)
		m.StdDev = cloneFloat(m.StdDev)
		out.Metrics[i] = m
	}
	for i, s := range r.Samples {
		s.Scores = cloneScoreMap(s.Scores)
		if s.Reasons != nil {
			reasons := make(map[string]string, len(s.Reasons))
			for k, v := range s.Reasons {
				reasons[k] = v
			}
			s.Reasons = reasons
		}
		out.Samples[i] = s
	}
	return out
}

func cloneScores(scores []*float64) []*float64 {
	if scores == nil {
		return nil
	}
	out := make([]*float64, len(scores))
	for i, s := range scores {
		out[i] = cloneFloat(s)
	}
	return out
}

func cloneScoreMap(scores map[string]*float64) map[string]*float64 {
	if scores == nil {
		return nil
	}
	out := make(map[string]*float64, len(scores))
	for k, v := range scores {
		out[k] = cloneFloat(v)
	}
	return out
}

func cloneFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	f := *v
	return &f
}

// PersistenceError indicates the output artifact could not be written.
// The in-memory report remains valid; callers may retry the save step
// without re-running the evaluation.
type PersistenceError struct {
	URI string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("failed to persist report to %s: %v", e.URI, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// ListRunsQuery contains filters for listing runs.
type ListRunsQuery struct {
	Status RunStatus
	Limit  int
	Offset int
}
