package magnetar

import (
	"time"

	"github.com/shopspring/decimal"
)

// Verdict codes of the underlying judge. Only the two non-verdicts matter
// to scoring: compile errors and internal errors never count as attempts.
const (
	VerdictAC = "AC"
	VerdictWA = "WA"
	VerdictCE = "CE"
	VerdictIE = "IE"
)

// Submission is the minimal view of a judged submission that scoring needs.
// The judging pipeline that produces these lives outside this engine.
type Submission struct {
	ID        int       `json:"id"`
	UserID    int       `json:"user_id" db:"user_id"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`

	Result string          `json:"result"`
	Points decimal.Decimal `json:"points"`
}

// Counted reports whether the submission is a real attempt. CE and IE
// submissions are invisible to penalties and attempt counting.
func (s *Submission) Counted() bool {
	return s.Result != VerdictCE && s.Result != VerdictIE
}

func (s *Submission) Accepted() bool {
	return s.Result == VerdictAC
}

// AssignmentSubmission attaches a submission to a participation and an
// assignment problem, with the points it earned inside the assignment.
type AssignmentSubmission struct {
	ID              int `json:"id"`
	SubmissionID    int `json:"submission_id" db:"submission_id"`
	ProblemID       int `json:"problem_id" db:"problem_id"`
	ParticipationID int `json:"participation_id" db:"participation_id"`

	Points decimal.Decimal `json:"points"`

	// Pretest rows are ignored by scoring once the window closes.
	Pretest bool `json:"pretest"`
}

// ScoresheetEntry is one attempt row of a scoresheet: the assignment-side
// points plus the underlying submission's verdict and timestamp.
type ScoresheetEntry struct {
	ProblemID    int             `json:"problem_id" db:"problem_id"`
	SubmissionID int             `json:"submission_id" db:"submission_id"`
	Points       decimal.Decimal `json:"points"`
	Result       string          `json:"result"`
	SubmittedAt  time.Time       `json:"submitted_at" db:"submitted_at"`
}

func (e *ScoresheetEntry) Counted() bool {
	return e.Result != VerdictCE && e.Result != VerdictIE
}

func (e *ScoresheetEntry) Accepted() bool {
	return e.Result == VerdictAC
}

// Scoresheet is everything a scoring format sees for one participation:
// the resolved personal window, the problem list in label order and all
// non-pretest attempts in submission order.
type Scoresheet struct {
	Assignment    *Assignment          `json:"assignment"`
	Participation *Participation       `json:"participation"`
	Problems      []*AssignmentProblem `json:"problems"`
	Entries       []*ScoresheetEntry   `json:"entries"`

	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// SecondsIntoWindow converts an attempt timestamp to whole seconds since
// the personal window opened, clamped at zero for early submissions.
func (sheet *Scoresheet) SecondsIntoWindow(at time.Time) int64 {
	if at.Before(sheet.Start) {
		return 0
	}
	return int64(at.Sub(sheet.Start) / time.Second)
}
