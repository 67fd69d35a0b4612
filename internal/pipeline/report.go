package pipeline

import (
	"fmt"
	"time"

	"github.com/okian/solvedboard/internal/domain/model"
)

// Run outcomes.
const (
	OutcomeSuccess = "success"
	OutcomePartial = "partial"
	OutcomeFailed  = "failed"
)

// Report summarises one run.
type Report struct {
	RunID           string    `json:"run_id"`
	Trigger         string    `json:"trigger,omitempty"`
	Organization    string    `json:"organization"`
	StartedAt       time.Time `json:"started_at"`
	FinishedAt      time.Time `json:"finished_at"`
	Members         int       `json:"members"`
	ProfileFailures []string  `json:"profile_failures,omitempty"`
	ProblemFailures []string  `json:"problem_failures,omitempty"`
	PeersError      string    `json:"peers_error,omitempty"`
	DroppedProblems int       `json:"dropped_problems,omitempty"`
	Outcome         string    `json:"outcome"`
	Error           string    `json:"error,omitempty"`
}

// Partial reports whether the run completed with reduced coverage.
func (r *Report) Partial() bool {
	return len(r.ProfileFailures) > 0 || len(r.ProblemFailures) > 0 || r.PeersError != ""
}

// Err returns an error wrapping model.ErrPartialData for partial runs.
func (r *Report) Err() error {
	if !r.Partial() {
		return nil
	}
	return fmt.Errorf("%w: %d profile and %d problem-list failures of %d members",
		model.ErrPartialData, len(r.ProfileFailures), len(r.ProblemFailures), r.Members)
}

// Duration is the wall time of the run.
func (r *Report) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}
