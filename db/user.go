package db

import (
	"context"
	"errors"

	"github.com/MagnetarProjects/magnetar"
	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
)

// User looks up a user by ID.
func (s *DB) User(ctx context.Context, id int) (*magnetar.User, error) {
	return s.userLookup(ctx, magnetar.UserFilter{ID: &id})
}

// UserByName looks up a user by name, case-insensitively.
func (s *DB) UserByName(ctx context.Context, name string) (*magnetar.User, error) {
	return s.userLookup(ctx, magnetar.UserFilter{Name: &name})
}

func (s *DB) userLookup(ctx context.Context, filter magnetar.UserFilter) (*magnetar.User, error) {
	filter.Limit = 1
	users, err := s.Users(ctx, filter)
	if err != nil || len(users) == 0 {
		return nil, err
	}
	return users[0], nil
}

// Users retrieves users based on a filter.
func (s *DB) Users(ctx context.Context, filter magnetar.UserFilter) ([]*magnetar.User, error) {
	sb := sq.Select("*").From("users")
	sb = userFilterQuery(&filter, sb)
	query, args, err := sb.OrderBy("id ASC").ToSql()
	if err != nil {
		return nil, err
	}

	rows, _ := s.conn.Query(ctx, query, args...)
	users, err := pgx.CollectRows(rows, pgx.RowToAddrOfStructByName[magnetar.User])
	if errors.Is(err, pgx.ErrNoRows) {
		return []*magnetar.User{}, nil
	}
	return users, err
}

// CreateUser creates a new user with the given name.
func (s *DB) CreateUser(ctx context.Context, name string) (*magnetar.User, error) {
	if name == "" {
		return nil, magnetar.ErrMissingRequired
	}
	user := &magnetar.User{Name: name}
	err := s.conn.QueryRow(ctx, "INSERT INTO users (name) VALUES ($1) RETURNING id, created_at", name).Scan(&user.ID, &user.CreatedAt)
	if err != nil {
		return nil, err
	}
	return user, nil
}

// UpdateUser updates a user.
func (s *DB) UpdateUser(ctx context.Context, id int, upd magnetar.UserUpdate) error {
	q := sq.Update("users").Where(sq.Eq{"id": id})
	count := 0
	if v := upd.Name; v != nil {
		q = q.Set("name", v)
		count++
	}
	if v := upd.Rating; v != nil {
		q = q.Set("rating", v)
		count++
	}
	if v := upd.Volatility; v != nil {
		q = q.Set("volatility", v)
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

// SetCurrentParticipation points the user at the participation they are
// actively in, or at nothing.
func (s *DB) SetCurrentParticipation(ctx context.Context, userID int, participationID *int) error {
	_, err := s.conn.Exec(ctx, "UPDATE users SET current_participation_id = $1 WHERE id = $2", participationID, userID)
	return err
}

// ClearCurrentParticipation detaches every user who is actively inside the
// given participation. Disqualification kicks the user out through this.
func (s *DB) ClearCurrentParticipation(ctx context.Context, participationID int) error {
	_, err := s.conn.Exec(ctx, "UPDATE users SET current_participation_id = NULL WHERE current_participation_id = $1", participationID)
	return err
}

// SyncRatingMirror rewrites the denormalized rating and volatility on the
// given users from their newest rating row, clearing users left with no
// rating history.
func (s *DB) SyncRatingMirror(ctx context.Context, userIDs []int) error {
	if len(userIDs) == 0 {
		return nil
	}
	return s.InTransaction(ctx, func(tx *DB) error {
		if _, err := tx.conn.Exec(ctx, `
	UPDATE users SET rating = latest.rating, volatility = latest.volatility
	FROM (
		SELECT DISTINCT ON (user_id) user_id, rating, volatility
		FROM ratings WHERE user_id = ANY($1)
		ORDER BY user_id ASC, last_rated DESC, id DESC
	) latest
	WHERE users.id = latest.user_id
`, userIDs); err != nil {
			return err
		}

		_, err := tx.conn.Exec(ctx, `
	UPDATE users SET rating = NULL, volatility = NULL
	WHERE id = ANY($1) AND NOT EXISTS (SELECT 1 FROM ratings WHERE user_id = users.id)
`, userIDs)
		return err
	})
}

func userFilterQuery(filter *magnetar.UserFilter, sb sq.SelectBuilder) sq.SelectBuilder {
	where := sq.And{}
	if v := filter.ID; v != nil {
		where = append(where, sq.Eq{"id": v})
	}
	if v := filter.IDs; v != nil && len(v) == 0 {
		where = append(where, sq.Expr("0 = 1"))
	}
	if v := filter.IDs; len(v) > 0 {
		where = append(where, sq.Expr("id = ANY(?)", v))
	}
	if v := filter.Name; v != nil {
		where = append(where, sq.Expr("lower(name) = lower(?)", v))
	}
	if v := filter.Rated; v != nil {
		if *v {
			where = append(where, sq.Expr("rating IS NOT NULL"))
		} else {
			where = append(where, sq.Expr("rating IS NULL"))
		}
	}

	if v := filter.Limit; v > 0 {
		sb = sb.Limit(uint64(v))
	}
	if v := filter.Offset; v > 0 {
		sb = sb.Offset(uint64(v))
	}

	return sb.Where(where)
}
