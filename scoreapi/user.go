package scoreapi

import (
	"context"
	"log/slog"

	"github.com/MagnetarProjects/magnetar"
)

// CreateUser registers a user by name. Accounts normally come from the
// platform's auth system; this exists for tools and tests.
func (s *BaseAPI) CreateUser(ctx context.Context, name string) (*magnetar.User, error) {
	user, err := s.db.CreateUser(ctx, name)
	if err != nil {
		slog.WarnContext(ctx, "Couldn't create user", slog.Any("err", err))
		return nil, magnetar.WrapError(err, "Couldn't create user")
	}
	return user, nil
}

// User looks up a user by ID.
func (s *BaseAPI) User(ctx context.Context, id int) (*magnetar.User, error) {
	user, err := s.db.User(ctx, id)
	if err != nil || user == nil {
		return nil, magnetar.WrapError(magnetar.ErrNotFound, "User not found")
	}
	return user, nil
}

// UserByName looks up a user by name, case-insensitively.
func (s *BaseAPI) UserByName(ctx context.Context, name string) (*magnetar.User, error) {
	user, err := s.db.UserByName(ctx, name)
	if err != nil || user == nil {
		return nil, magnetar.WrapError(magnetar.ErrNotFound, "User not found")
	}
	return user, nil
}

// Users lists users matching the filter.
func (s *BaseAPI) Users(ctx context.Context, filter magnetar.UserFilter) ([]*magnetar.User, error) {
	users, err := s.db.Users(ctx, filter)
	if err != nil {
		return nil, magnetar.WrapError(err, "Couldn't fetch users")
	}
	return users, nil
}
