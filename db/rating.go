package db

import (
	"context"
	"errors"
	"time"

	"github.com/MagnetarProjects/magnetar"
	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
)

// Ratings retrieves rating rows based on a filter, oldest first.
func (s *DB) Ratings(ctx context.Context, filter magnetar.RatingFilter) ([]*magnetar.Rating, error) {
	sb := sq.Select("*").From("ratings")
	sb = ratingFilterQuery(&filter, sb)
	query, args, err := sb.OrderBy("last_rated ASC", "id ASC").ToSql()
	if err != nil {
		return nil, err
	}

	rows, _ := s.conn.Query(ctx, query, args...)
	ratings, err := pgx.CollectRows(rows, pgx.RowToAddrOfStructByName[magnetar.Rating])
	if errors.Is(err, pgx.ErrNoRows) {
		return []*magnetar.Rating{}, nil
	}
	return ratings, err
}

// CountRatings counts the rows matching a filter, ignoring pagination.
func (s *DB) CountRatings(ctx context.Context, filter magnetar.RatingFilter) (int, error) {
	sb := sq.Select("COUNT(*)").From("ratings")
	sb = ratingFilterQuery(&filter, sb).RemoveLimit().RemoveOffset()
	query, args, err := sb.ToSql()
	if err != nil {
		return -1, err
	}

	var count int
	err = s.conn.QueryRow(ctx, query, args...).Scan(&count)
	return count, err
}

// CreateRatings bulk-inserts one rating run's rows.
func (s *DB) CreateRatings(ctx context.Context, ratings []*magnetar.Rating) error {
	rows := make([][]any, 0, len(ratings))
	for _, r := range ratings {
		rows = append(rows, []any{r.UserID, r.AssignmentID, r.ParticipationID, r.Rank, r.Rating, r.Volatility, r.LastRated})
	}
	_, err := s.conn.CopyFrom(ctx,
		pgx.Identifier{"ratings"},
		[]string{"user_id", "assignment_id", "participation_id", "rank", "rating", "volatility", "last_rated"},
		pgx.CopyFromRows(rows),
	)
	return err
}

// DeleteRatings wipes every rating row whose source assignment ended inside
// the half-open interval [from, before), returning how many went away.
func (s *DB) DeleteRatings(ctx context.Context, from, before time.Time) (int64, error) {
	tag, err := s.conn.Exec(ctx, "DELETE FROM ratings WHERE last_rated >= $1 AND last_rated < $2", from, before)
	return tag.RowsAffected(), err
}

// RatedUserIDs lists the users holding rating rows in [from, before). The
// scheduler snapshots this before wiping the interval so it can refresh the
// profile mirror even of users the replay no longer covers.
func (s *DB) RatedUserIDs(ctx context.Context, from, before time.Time) ([]int, error) {
	return s.userIDList(ctx,
		"SELECT DISTINCT user_id FROM ratings WHERE last_rated >= $1 AND last_rated < $2 ORDER BY user_id ASC",
		from, before,
	)
}

// LatestRatings returns, per user, the newest rating row strictly before
// the cutoff. Users with no prior row are simply absent.
func (s *DB) LatestRatings(ctx context.Context, userIDs []int, before time.Time) (map[int]*magnetar.Rating, error) {
	rows, _ := s.conn.Query(ctx,
		"SELECT DISTINCT ON (user_id) * FROM ratings WHERE user_id = ANY($1) AND last_rated < $2 ORDER BY user_id ASC, last_rated DESC, id DESC",
		userIDs, before,
	)
	ratings, err := pgx.CollectRows(rows, pgx.RowToAddrOfStructByName[magnetar.Rating])
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}

	out := make(map[int]*magnetar.Rating, len(ratings))
	for _, r := range ratings {
		out[r.UserID] = r
	}
	return out, nil
}

// RatedCounts returns, per user, how many rated assignments they finished
// strictly before the cutoff.
func (s *DB) RatedCounts(ctx context.Context, userIDs []int, before time.Time) (map[int]int, error) {
	rows, _ := s.conn.Query(ctx,
		"SELECT user_id, COUNT(*) AS times FROM ratings WHERE user_id = ANY($1) AND last_rated < $2 GROUP BY user_id",
		userIDs, before,
	)
	counts, err := pgx.CollectRows(rows, pgx.RowToStructByPos[struct {
		UserID int
		Times  int
	}])
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}

	out := make(map[int]int, len(counts))
	for _, c := range counts {
		out[c.UserID] = c.Times
	}
	return out, nil
}

// CreateRatingRun records the audit row of one scheduler execution.
func (s *DB) CreateRatingRun(ctx context.Context, run *magnetar.RatingRun) error {
	if run.RunID == "" {
		return magnetar.ErrMissingRequired
	}
	return s.conn.QueryRow(ctx,
		"INSERT INTO rating_runs (run_id, assignment_id, rated_assignments, ratings_written) VALUES ($1, $2, $3, $4) RETURNING id, started_at",
		run.RunID, run.AssignmentID, run.RatedAssignments, run.RatingsWritten,
	).Scan(&run.ID, &run.StartedAt)
}

// RatingRuns lists the newest audit rows, most recent first.
func (s *DB) RatingRuns(ctx context.Context, limit int) ([]*magnetar.RatingRun, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, _ := s.conn.Query(ctx, "SELECT * FROM rating_runs ORDER BY started_at DESC, id DESC LIMIT $1", limit)
	runs, err := pgx.CollectRows(rows, pgx.RowToAddrOfStructByName[magnetar.RatingRun])
	if errors.Is(err, pgx.ErrNoRows) {
		return []*magnetar.RatingRun{}, nil
	}
	return runs, err
}

func ratingFilterQuery(filter *magnetar.RatingFilter, sb sq.SelectBuilder) sq.SelectBuilder {
	where := sq.And{}
	if v := filter.UserID; v != nil {
		where = append(where, sq.Eq{"user_id": v})
	}
	if v := filter.AssignmentID; v != nil {
		where = append(where, sq.Eq{"assignment_id": v})
	}
	if v := filter.LastRatedFrom; v != nil {
		where = append(where, sq.Expr("last_rated >= ?", v))
	}
	if v := filter.LastRatedBefore; v != nil {
		where = append(where, sq.Expr("last_rated < ?", v))
	}

	if v := filter.Limit; v > 0 {
		sb = sb.Limit(uint64(v))
	}
	if v := filter.Offset; v > 0 {
		sb = sb.Offset(uint64(v))
	}

	return sb.Where(where)
}
