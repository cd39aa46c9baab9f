package db

import (
	"context"
	"errors"
	"time"

	"github.com/MagnetarProjects/magnetar"
	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
)

// Assignment looks up an assignment by ID.
func (s *DB) Assignment(ctx context.Context, id int) (*magnetar.Assignment, error) {
	return s.assignmentLookup(ctx, magnetar.AssignmentFilter{ID: &id})
}

// AssignmentByKey looks up an assignment by its URL key.
func (s *DB) AssignmentByKey(ctx context.Context, key string) (*magnetar.Assignment, error) {
	return s.assignmentLookup(ctx, magnetar.AssignmentFilter{Key: &key})
}

func (s *DB) assignmentLookup(ctx context.Context, filter magnetar.AssignmentFilter) (*magnetar.Assignment, error) {
	filter.Limit = 1
	assignments, err := s.Assignments(ctx, filter)
	if err != nil || len(assignments) == 0 {
		return nil, err
	}
	return assignments[0], nil
}

// Assignments retrieves assignments based on a filter, ordered by end time.
// The rating scheduler leans on this ordering when it replays history.
func (s *DB) Assignments(ctx context.Context, filter magnetar.AssignmentFilter) ([]*magnetar.Assignment, error) {
	sb := sq.Select("*").From("assignments")
	sb = assignmentFilterQuery(&filter, sb)
	query, args, err := sb.OrderBy("end_time ASC", "id ASC").ToSql()
	if err != nil {
		return nil, err
	}

	rows, _ := s.conn.Query(ctx, query, args...)
	assignments, err := pgx.CollectRows(rows, pgx.RowToAddrOfStructByName[assignment])
	if errors.Is(err, pgx.ErrNoRows) {
		return []*magnetar.Assignment{}, nil
	}

	out := make([]*magnetar.Assignment, len(assignments))
	for i := range assignments {
		out[i] = assignments[i].export()
	}
	return out, err
}

// CreateAssignment persists a new assignment and fills in its ID and
// creation time.
func (s *DB) CreateAssignment(ctx context.Context, a *magnetar.Assignment) error {
	if a.Key == "" || a.Name == "" {
		return magnetar.ErrMissingRequired
	}
	cfg := a.FormatConfig
	if cfg == nil {
		cfg = map[string]any{}
	}
	return s.conn.QueryRow(ctx,
		`INSERT INTO assignments (
			key, name, start_time, end_time, time_limit_secs,
			rated, rate_all, rating_floor, rating_ceiling,
			scoreboard_visibility, format_name, format_config, label_script,
			points_precision, access_code
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15) RETURNING id, created_at`,
		a.Key, a.Name, a.StartTime, a.EndTime, durationSecs(a.TimeLimit),
		a.Rated, a.RateAll, a.RatingFloor, a.RatingCeiling,
		a.ScoreboardVisibility, a.FormatName, cfg, a.LabelScript,
		a.PointsPrecision, a.AccessCode,
	).Scan(&a.ID, &a.CreatedAt)
}

// UpdateAssignment updates an assignment.
func (s *DB) UpdateAssignment(ctx context.Context, id int, upd magnetar.AssignmentUpdate) error {
	q, count := assignmentUpdateQuery(&upd, sq.Update("assignments").Where(sq.Eq{"id": id}))
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

// DeleteAssignment permanently deletes an assignment and, through cascades,
// everything hanging off it.
func (s *DB) DeleteAssignment(ctx context.Context, id int) error {
	_, err := s.conn.Exec(ctx, "DELETE FROM assignments WHERE id = $1", id)
	return err
}

// RefreshUserCount recounts the live participants denormalized onto the
// assignment row.
func (s *DB) RefreshUserCount(ctx context.Context, assignmentID int) error {
	_, err := s.conn.Exec(ctx, `UPDATE assignments SET user_count = (
		SELECT COUNT(*) FROM assignment_participations
		WHERE assignment_id = assignments.id AND virtual = 0
	) WHERE id = $1`, assignmentID)
	return err
}

func assignmentFilterQuery(filter *magnetar.AssignmentFilter, sb sq.SelectBuilder) sq.SelectBuilder {
	where := sq.And{}
	if v := filter.ID; v != nil {
		where = append(where, sq.Eq{"id": v})
	}
	if v := filter.Key; v != nil {
		where = append(where, sq.Eq{"key": v})
	}
	if v := filter.Rated; v != nil {
		where = append(where, sq.Eq{"rated": v})
	}
	if v := filter.EndTimeFrom; v != nil {
		where = append(where, sq.Expr("end_time >= ?", v))
	}
	if v := filter.EndTimeBefore; v != nil {
		where = append(where, sq.Expr("end_time < ?", v))
	}
	if v := filter.Tag; v != nil {
		where = append(where, sq.Expr("EXISTS (SELECT 1 FROM assignment_tag_links WHERE assignment_id = assignments.id AND tag_id = ?)", v))
	}

	if v := filter.Limit; v > 0 {
		sb = sb.Limit(uint64(v))
	}
	if v := filter.Offset; v > 0 {
		sb = sb.Offset(uint64(v))
	}

	return sb.Where(where)
}

func assignmentUpdateQuery(upd *magnetar.AssignmentUpdate, q sq.UpdateBuilder) (sq.UpdateBuilder, int) {
	count := 0
	set := func(column string, value any) {
		q = q.Set(column, value)
		count++
	}

	if v := upd.Name; v != nil {
		set("name", v)
	}
	if v := upd.StartTime; v != nil {
		set("start_time", v)
	}
	if v := upd.EndTime; v != nil {
		set("end_time", v)
	}
	if upd.ClearTimeLimit {
		set("time_limit_secs", nil)
	} else if v := upd.TimeLimit; v != nil {
		set("time_limit_secs", durationSecs(v))
	}
	if v := upd.Rated; v != nil {
		set("rated", v)
	}
	if v := upd.RateAll; v != nil {
		set("rate_all", v)
	}
	if v := upd.RatingFloor; v != nil {
		set("rating_floor", v)
	}
	if v := upd.RatingCeiling; v != nil {
		set("rating_ceiling", v)
	}
	if v := upd.ScoreboardVisibility; v != nil {
		set("scoreboard_visibility", v)
	}
	if v := upd.FormatName; v != nil {
		set("format_name", v)
	}
	if v := upd.FormatConfig; v != nil {
		set("format_config", v)
	}
	if v := upd.LabelScript; v != nil {
		set("label_script", v)
	}
	if v := upd.PointsPrecision; v != nil {
		set("points_precision", v)
	}
	if v := upd.AccessCode; v != nil {
		set("access_code", v)
	}

	return q, count
}

type assignment struct {
	ID        int       `db:"id"`
	CreatedAt time.Time `db:"created_at"`
	Key       string    `db:"key"`
	Name      string    `db:"name"`

	StartTime     time.Time `db:"start_time"`
	EndTime       time.Time `db:"end_time"`
	TimeLimitSecs *int64    `db:"time_limit_secs"`

	Rated         bool `db:"rated"`
	RateAll       bool `db:"rate_all"`
	RatingFloor   *int `db:"rating_floor"`
	RatingCeiling *int `db:"rating_ceiling"`

	ScoreboardVisibility string `db:"scoreboard_visibility"`

	FormatName   string         `db:"format_name"`
	FormatConfig map[string]any `db:"format_config"`
	LabelScript  string         `db:"label_script"`

	PointsPrecision int    `db:"points_precision"`
	AccessCode      string `db:"access_code"`
	UserCount       int    `db:"user_count"`
}

func (a *assignment) export() *magnetar.Assignment {
	if a == nil {
		return nil
	}
	var limit *time.Duration
	if a.TimeLimitSecs != nil {
		d := time.Duration(*a.TimeLimitSecs) * time.Second
		limit = &d
	}
	return &magnetar.Assignment{
		ID:        a.ID,
		CreatedAt: a.CreatedAt,
		Key:       a.Key,
		Name:      a.Name,

		StartTime: a.StartTime,
		EndTime:   a.EndTime,
		TimeLimit: limit,

		Rated:         a.Rated,
		RateAll:       a.RateAll,
		RatingFloor:   a.RatingFloor,
		RatingCeiling: a.RatingCeiling,

		ScoreboardVisibility: a.ScoreboardVisibility,

		FormatName:   a.FormatName,
		FormatConfig: a.FormatConfig,
		LabelScript:  a.LabelScript,

		PointsPrecision: a.PointsPrecision,
		AccessCode:      a.AccessCode,
		UserCount:       a.UserCount,
	}
}

func durationSecs(d *time.Duration) *int64 {
	if d == nil {
		return nil
	}
	secs := int64(*d / time.Second)
	return &secs
}
