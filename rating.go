package magnetar

import "time"

// Topcoder-family rating baselines. A user enters the system at
// InitialRating/InitialVolatility; after the first rated assignment the
// volatility snaps to FirstVolatility.
const (
	InitialRating     = 1200
	InitialVolatility = 535
	FirstVolatility   = 385
)

// Rating is one user's rating state after one rated assignment. Rows form
// a per-user history ordered by LastRated; the newest row mirrors into the
// user profile.
type Rating struct {
	ID           int `json:"id"`
	UserID       int `json:"user_id" db:"user_id"`
	AssignmentID int `json:"assignment_id" db:"assignment_id"`

	ParticipationID int `json:"participation_id" db:"participation_id"`

	Rank       int `json:"rank"`
	Rating     int `json:"rating"`
	Volatility int `json:"volatility"`

	// LastRated is the end time of the assignment that produced this row,
	// not the wall clock of the rating run. Rerating is keyed on it.
	LastRated time.Time `json:"last_rated" db:"last_rated"`
}

type RatingFilter struct {
	UserID       *int `json:"user_id"`
	AssignmentID *int `json:"assignment_id"`

	// LastRatedFrom/LastRatedBefore select the half-open interval
	// [LastRatedFrom, LastRatedBefore) that a rerate wipes and replays.
	LastRatedFrom   *time.Time `json:"last_rated_from"`
	LastRatedBefore *time.Time `json:"last_rated_before"`

	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}
