// Package magnetar holds the domain types of the assignment scoring and
// rating engine: assignments, participations, submissions and ratings,
// together with the participation time window rules that everything else
// builds on.
package magnetar

import "time"

const Version = "v0.3.1"

// RatingRun is the audit record of one rating scheduler execution.
// RunID is an opaque unique identifier so log lines, metrics and the
// audit table can be correlated.
type RatingRun struct {
	ID        int       `json:"id"`
	RunID     string    `json:"run_id" db:"run_id"`
	StartedAt time.Time `json:"started_at" db:"started_at"`

	// AssignmentID is the assignment whose rating triggered the run.
	// The replay may cover later assignments as well.
	AssignmentID int `json:"assignment_id" db:"assignment_id"`

	RatedAssignments int `json:"rated_assignments" db:"rated_assignments"`
	RatingsWritten   int `json:"ratings_written" db:"ratings_written"`
}
