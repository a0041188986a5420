// Package sweep holds what every periodic reconciliation job shares:
// the per-item results summary and the scheduler running the jobs.
package sweep

import (
	"context"
	"fmt"
	"time"
)

type Outcome string

const (
	OutcomeChanged   Outcome = "changed"
	OutcomeUnchanged Outcome = "unchanged"
	OutcomeSkipped   Outcome = "skipped"
	OutcomeFailed    Outcome = "failed"
)

// skip reasons
const (
	ReasonConflict  = "conflict"
	ReasonCancelled = "cancelled"
)

// Job is a reconciliation pass over a set of records.
// RunOnce only returns an error when the candidate set cannot be loaded; per-item failures go to the Summary.
type Job interface {
	Name() string
	RunOnce(ctx context.Context, now time.Time) (Summary, error)
}

// Result is the outcome of processing one record.
type Result struct {
	ID      string  `json:"id"`
	Outcome Outcome `json:"outcome"`
	Action  string  `json:"action,omitempty"`
	Error   string  `json:"error,omitempty"`
}

type Summary struct {
	Job        string    `json:"job"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Processed  int       `json:"processed"`
	Changed    int       `json:"changed"`
	Unchanged  int       `json:"unchanged"`
	Skipped    int       `json:"skipped"`
	Failed     int       `json:"failed"`
	Error      string    `json:"error,omitempty"`
	Results    []Result  `json:"results"`
}

func NewSummary(job string, now time.Time) Summary {
	return Summary{Job: job, StartedAt: now, Results: []Result{}}
}

func (s *Summary) add(id string, outcome Outcome, action string, err error) {
	r := Result{ID: id, Outcome: outcome, Action: action}
	if err != nil {
		r.Error = err.Error()
	}
	s.Results = append(s.Results, r)

	switch outcome {
	case OutcomeChanged:
		s.Changed++
	case OutcomeUnchanged:
		s.Unchanged++
	case OutcomeSkipped:
		s.Skipped++
		return // not processed
	case OutcomeFailed:
		s.Failed++
	}
	s.Processed++
}

func (s *Summary) Changes(id, action string)  { s.add(id, OutcomeChanged, action, nil) }
func (s *Summary) NoChange(id, action string) { s.add(id, OutcomeUnchanged, action, nil) }
func (s *Summary) Skip(id, action string)     { s.add(id, OutcomeSkipped, action, nil) }
func (s *Summary) Fail(id string, err error)  { s.add(id, OutcomeFailed, "", err) }
func (s *Summary) Finish(now time.Time)       { s.FinishedAt = now }
func (s Summary) Duration() time.Duration     { return s.FinishedAt.Sub(s.StartedAt) }
func (s Summary) HasFailures() bool           { return s.Failed > 0 || s.Error != "" }

func (s Summary) String() string {
	return fmt.Sprintf(
		"sweep %s: processed=%d changed=%d unchanged=%d skipped=%d failed=%d in %s",
		s.Job, s.Processed, s.Changed, s.Unchanged, s.Skipped, s.Failed, s.Duration(),
	)
}

// SkipRemaining records the IDs left over when a sweep is cancelled.
func (s *Summary) SkipRemaining(ids []string, reason string) {
	for _, id := range ids {
		s.Skip(id, reason)
	}
}
