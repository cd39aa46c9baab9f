package db

import (
	"context"
	"errors"

	"github.com/MagnetarProjects/magnetar"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// CreateSubmission records a judged submission. A zero CreatedAt defers to
// the database clock.
func (s *DB) CreateSubmission(ctx context.Context, sub *magnetar.Submission) error {
	if sub.UserID == 0 || sub.Result == "" {
		return magnetar.ErrMissingRequired
	}
	if sub.CreatedAt.IsZero() {
		return s.conn.QueryRow(ctx,
			"INSERT INTO submissions (user_id, result, points) VALUES ($1, $2, $3) RETURNING id, created_at",
			sub.UserID, sub.Result, sub.Points,
		).Scan(&sub.ID, &sub.CreatedAt)
	}
	return s.conn.QueryRow(ctx,
		"INSERT INTO submissions (user_id, created_at, result, points) VALUES ($1, $2, $3, $4) RETURNING id",
		sub.UserID, sub.CreatedAt, sub.Result, sub.Points,
	).Scan(&sub.ID)
}

// UpdateSubmissionResult rewrites a submission's verdict and points, the
// rejudge entry point.
func (s *DB) UpdateSubmissionResult(ctx context.Context, id int, result string, points decimal.Decimal) error {
	_, err := s.conn.Exec(ctx, "UPDATE submissions SET result = $1, points = $2 WHERE id = $3", result, points, id)
	return err
}

// CreateAssignmentSubmission attaches a submission to a participation and
// problem.
func (s *DB) CreateAssignmentSubmission(ctx context.Context, asub *magnetar.AssignmentSubmission) error {
	if asub.SubmissionID == 0 || asub.ProblemID == 0 || asub.ParticipationID == 0 {
		return magnetar.ErrMissingRequired
	}
	return s.conn.QueryRow(ctx,
		"INSERT INTO assignment_submissions (submission_id, problem_id, participation_id, points, pretest) VALUES ($1, $2, $3, $4, $5) RETURNING id",
		asub.SubmissionID, asub.ProblemID, asub.ParticipationID, asub.Points, asub.Pretest,
	).Scan(&asub.ID)
}

// UpdateAssignmentSubmissionPoints follows a rejudge into the assignment
// row.
func (s *DB) UpdateAssignmentSubmissionPoints(ctx context.Context, submissionID int, points decimal.Decimal) error {
	_, err := s.conn.Exec(ctx, "UPDATE assignment_submissions SET points = $1 WHERE submission_id = $2", points, submissionID)
	return err
}

// AttemptCount counts the participation's submissions to one problem,
// pretests included, for submission limit enforcement.
func (s *DB) AttemptCount(ctx context.Context, participationID, problemID int) (int, error) {
	var count int
	err := s.conn.QueryRow(ctx,
		"SELECT COUNT(*) FROM assignment_submissions WHERE participation_id = $1 AND problem_id = $2",
		participationID, problemID,
	).Scan(&count)
	return count, err
}

// AssignmentSubmissionBySubmissionID finds the assignment row of a
// submission, nil if it was never attached to one. A submission belongs to
// at most one assignment.
func (s *DB) AssignmentSubmissionBySubmissionID(ctx context.Context, submissionID int) (*magnetar.AssignmentSubmission, error) {
	rows, _ := s.conn.Query(ctx, "SELECT * FROM assignment_submissions WHERE submission_id = $1 LIMIT 1", submissionID)
	asub, err := pgx.CollectOneRow(rows, pgx.RowToAddrOfStructByName[magnetar.AssignmentSubmission])
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return asub, err
}

// AssignmentSubmissions returns the participation's attached submissions in
// insertion order.
func (s *DB) AssignmentSubmissions(ctx context.Context, participationID int) ([]*magnetar.AssignmentSubmission, error) {
	rows, _ := s.conn.Query(ctx, "SELECT * FROM assignment_submissions WHERE participation_id = $1 ORDER BY id ASC", participationID)
	subs, err := pgx.CollectRows(rows, pgx.RowToAddrOfStructByName[magnetar.AssignmentSubmission])
	if errors.Is(err, pgx.ErrNoRows) {
		return []*magnetar.AssignmentSubmission{}, nil
	}
	return subs, err
}
