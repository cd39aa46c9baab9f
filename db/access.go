package db

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
)

// RateExcludedUsers returns the users whose participations in the
// assignment never rate, sorted by ID.
func (s *DB) RateExcludedUsers(ctx context.Context, assignmentID int) ([]int, error) {
	return s.userIDList(ctx, "SELECT user_id FROM assignment_rate_exclusions WHERE assignment_id = $1 ORDER BY user_id ASC", assignmentID)
}

// UpdateRateExcludedUsers replaces the assignment's rate exclusion list.
func (s *DB) UpdateRateExcludedUsers(ctx context.Context, assignmentID int, userIDs []int) error {
	return s.updateManyToMany(ctx, "assignment_rate_exclusions", "assignment_id", "user_id", assignmentID, userIDs)
}

// BannedUsers returns the users barred from the assignment, sorted by ID.
func (s *DB) BannedUsers(ctx context.Context, assignmentID int) ([]int, error) {
	return s.userIDList(ctx, "SELECT user_id FROM assignment_bans WHERE assignment_id = $1 ORDER BY user_id ASC", assignmentID)
}

// BanUser adds the user to the assignment's ban list. Banning twice is a
// no-op.
func (s *DB) BanUser(ctx context.Context, assignmentID, userID int) error {
	_, err := s.conn.Exec(ctx, "INSERT INTO assignment_bans (assignment_id, user_id) VALUES ($1, $2) ON CONFLICT DO NOTHING", assignmentID, userID)
	return err
}

func (s *DB) UnbanUser(ctx context.Context, assignmentID, userID int) error {
	_, err := s.conn.Exec(ctx, "DELETE FROM assignment_bans WHERE assignment_id = $1 AND user_id = $2", assignmentID, userID)
	return err
}

func (s *DB) UserBanned(ctx context.Context, assignmentID, userID int) (bool, error) {
	var banned bool
	err := s.conn.QueryRow(ctx, "SELECT EXISTS (SELECT 1 FROM assignment_bans WHERE assignment_id = $1 AND user_id = $2)", assignmentID, userID).Scan(&banned)
	return banned, err
}

func (s *DB) userIDList(ctx context.Context, query string, args ...any) ([]int, error) {
	rows, _ := s.conn.Query(ctx, query, args...)
	ids, err := pgx.CollectRows(rows, pgx.RowTo[int])
	if errors.Is(err, pgx.ErrNoRows) {
		return []int{}, nil
	}
	return ids, err
}
