package db

import (
	"context"
	"errors"

	"github.com/MagnetarProjects/magnetar"
	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
)

// AssignmentProblems returns the assignment's problems in label order.
func (s *DB) AssignmentProblems(ctx context.Context, assignmentID int) ([]*magnetar.AssignmentProblem, error) {
	rows, _ := s.conn.Query(ctx, "SELECT * FROM assignment_problems WHERE assignment_id = $1 ORDER BY ord ASC, id ASC", assignmentID)
	problems, err := pgx.CollectRows(rows, pgx.RowToAddrOfStructByName[magnetar.AssignmentProblem])
	if errors.Is(err, pgx.ErrNoRows) {
		return []*magnetar.AssignmentProblem{}, nil
	}
	return problems, err
}

// AssignmentProblem looks up one attached problem by its row ID.
func (s *DB) AssignmentProblem(ctx context.Context, id int) (*magnetar.AssignmentProblem, error) {
	rows, _ := s.conn.Query(ctx, "SELECT * FROM assignment_problems WHERE id = $1 LIMIT 1", id)
	problem, err := pgx.CollectOneRow(rows, pgx.RowToAddrOfStructByName[magnetar.AssignmentProblem])
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return problem, err
}

// AttachProblem binds a problem into an assignment and fills in the row ID.
func (s *DB) AttachProblem(ctx context.Context, pb *magnetar.AssignmentProblem) error {
	if pb.AssignmentID == 0 || pb.ProblemID == 0 {
		return magnetar.ErrMissingRequired
	}
	return s.conn.QueryRow(ctx,
		"INSERT INTO assignment_problems (assignment_id, problem_id, points, partial, pretested, ord, max_submissions) VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id",
		pb.AssignmentID, pb.ProblemID, pb.Points, pb.Partial, pb.Pretested, pb.Order, pb.MaxSubmissions,
	).Scan(&pb.ID)
}

// UpdateAssignmentProblem updates an attached problem's scoring parameters.
func (s *DB) UpdateAssignmentProblem(ctx context.Context, id int, upd magnetar.AssignmentProblemUpdate) error {
	q := sq.Update("assignment_problems").Where(sq.Eq{"id": id})
	count := 0
	if v := upd.Points; v != nil {
		q = q.Set("points", v)
		count++
	}
	if v := upd.Partial; v != nil {
		q = q.Set("partial", v)
		count++
	}
	if v := upd.Pretested; v != nil {
		q = q.Set("pretested", v)
		count++
	}
	if v := upd.Order; v != nil {
		q = q.Set("ord", v)
		count++
	}
	if v := upd.MaxSubmissions; v != nil {
		q = q.Set("max_submissions", v)
		count++
	}
	if count == 0 {
		return magnetar.ErrNoUpdates
	}

	query, args, err := q.ToSql()
	if err != nil {
		return err
	}
	_, err = s.conn.Exec(ctx, query, args...)
	return err
}

// DetachProblem removes a problem from an assignment. Its submission rows
// cascade away with it.
func (s *DB) DetachProblem(ctx context.Context, id int) error {
	_, err := s.conn.Exec(ctx, "DELETE FROM assignment_problems WHERE id = $1", id)
	return err
}
