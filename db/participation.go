package db

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/MagnetarProjects/magnetar"
	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// Participation looks up a participation by ID.
func (s *DB) Participation(ctx context.Context, id int) (*magnetar.Participation, error) {
	return s.participationLookup(ctx, magnetar.ParticipationFilter{ID: &id})
}

// ParticipationByVirtual looks up the user's participation with the given
// virtual marker, the unique key inside one assignment.
func (s *DB) ParticipationByVirtual(ctx context.Context, assignmentID, userID, virtual int) (*magnetar.Participation, error) {
	return s.participationLookup(ctx, magnetar.ParticipationFilter{
		AssignmentID: &assignmentID,
		UserID:       &userID,
		Virtual:      &virtual,
	})
}

func (s *DB) participationLookup(ctx context.Context, filter magnetar.ParticipationFilter) (*magnetar.Participation, error) {
	filter.Limit = 1
	participations, err := s.Participations(ctx, filter)
	if err != nil || len(participations) == 0 {
		return nil, err
	}
	return participations[0], nil
}

// Participations retrieves participations based on a filter, in creation
// order.
func (s *DB) Participations(ctx context.Context, filter magnetar.ParticipationFilter) ([]*magnetar.Participation, error) {
	sb := sq.Select("*").From("assignment_participations")
	sb = participationFilterQuery(&filter, sb)
	query, args, err := sb.OrderBy("real_start ASC", "id ASC").ToSql()
	if err != nil {
		return nil, err
	}

	rows, _ := s.conn.Query(ctx, query, args...)
	participations, err := pgx.CollectRows(rows, pgx.RowToAddrOfStructByName[magnetar.Participation])
	if errors.Is(err, pgx.ErrNoRows) {
		return []*magnetar.Participation{}, nil
	}
	return participations, err
}

// CreateParticipation persists a new participation and fills in its ID.
// Scores start at zero; the aggregator owns them from here on.
func (s *DB) CreateParticipation(ctx context.Context, p *magnetar.Participation) error {
	if p.AssignmentID == 0 || p.UserID == 0 {
		return magnetar.ErrMissingRequired
	}
	return s.conn.QueryRow(ctx,
		"INSERT INTO assignment_participations (assignment_id, user_id, virtual, real_start) VALUES ($1, $2, $3, $4) RETURNING id",
		p.AssignmentID, p.UserID, p.Virtual, p.RealStart,
	).Scan(&p.ID)
}

// NextVirtualIndex reserves the number of the user's next virtual rerun.
func (s *DB) NextVirtualIndex(ctx context.Context, assignmentID, userID int) (int, error) {
	var index int
	err := s.conn.QueryRow(ctx,
		"SELECT COALESCE(MAX(virtual), 0) + 1 FROM assignment_participations WHERE assignment_id = $1 AND user_id = $2 AND virtual >= 1",
		assignmentID, userID,
	).Scan(&index)
	return index, err
}

// UpdateParticipationResult writes back what the scoring format computed.
func (s *DB) UpdateParticipationResult(ctx context.Context, id int, res magnetar.ParticipationResult) error {
	data := res.FormatData
	if data == nil {
		data = json.RawMessage("{}")
	}
	_, err := s.conn.Exec(ctx,
		"UPDATE assignment_participations SET score = $1, cumtime = $2, tiebreaker = $3, format_data = $4 WHERE id = $5",
		res.Score, res.Cumtime, res.Tiebreaker, data, id,
	)
	return err
}

// SetDisqualified flips the disqualification flag together with the score
// it forces.
func (s *DB) SetDisqualified(ctx context.Context, id int, disqualified bool, score decimal.Decimal) error {
	_, err := s.conn.Exec(ctx,
		"UPDATE assignment_participations SET disqualified = $1, score = $2 WHERE id = $3",
		disqualified, score, id,
	)
	return err
}

// ScoresheetEntries returns every counted attempt of the participation in
// submission order: the assignment-side points joined with the verdict and
// timestamp of the underlying submission. Pretest rows are left out.
func (s *DB) ScoresheetEntries(ctx context.Context, participationID int) ([]*magnetar.ScoresheetEntry, error) {
	rows, _ := s.conn.Query(ctx, `
	SELECT asubs.problem_id, asubs.submission_id, asubs.points, subs.result, subs.created_at AS submitted_at
	FROM assignment_submissions asubs
	INNER JOIN submissions subs ON subs.id = asubs.submission_id
	WHERE asubs.participation_id = $1 AND NOT asubs.pretest
	ORDER BY subs.created_at ASC, subs.id ASC
`, participationID)
	entries, err := pgx.CollectRows(rows, pgx.RowToAddrOfStructByName[magnetar.ScoresheetEntry])
	if errors.Is(err, pgx.ErrNoRows) {
		return []*magnetar.ScoresheetEntry{}, nil
	}
	return entries, err
}

func participationFilterQuery(filter *magnetar.ParticipationFilter, sb sq.SelectBuilder) sq.SelectBuilder {
	where := sq.And{}
	if v := filter.ID; v != nil {
		where = append(where, sq.Eq{"id": v})
	}
	if v := filter.AssignmentID; v != nil {
		where = append(where, sq.Eq{"assignment_id": v})
	}
	if v := filter.UserID; v != nil {
		where = append(where, sq.Eq{"user_id": v})
	}
	if v := filter.Virtual; v != nil {
		where = append(where, sq.Eq{"virtual": v})
	}
	if filter.LiveOnly {
		where = append(where, sq.Eq{"virtual": magnetar.ParticipationLive})
	}
	if filter.Ranked {
		where = append(where, sq.GtOrEq{"virtual": magnetar.ParticipationLive})
	}
	if v := filter.Disqualified; v != nil {
		where = append(where, sq.Eq{"disqualified": v})
	}

	if v := filter.Limit; v > 0 {
		sb = sb.Limit(uint64(v))
	}
	if v := filter.Offset; v > 0 {
		sb = sb.Offset(uint64(v))
	}

	return sb.Where(where)
}
