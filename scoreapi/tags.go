package scoreapi

import (
	"context"
	"log/slog"

	"github.com/MagnetarProjects/magnetar"
)

// CreateTag creates an assignment tag.
func (s *BaseAPI) CreateTag(ctx context.Context, tag *magnetar.AssignmentTag) error {
	if err := tag.Validate(); err != nil {
		return magnetar.Statusf(400, "Invalid tag: %v", err)
	}
	if err := s.db.CreateTag(ctx, tag); err != nil {
		slog.WarnContext(ctx, "Couldn't create tag", slog.Any("err", err))
		return magnetar.WrapError(err, "Couldn't create tag")
	}
	return nil
}

// Tags lists every assignment tag.
func (s *BaseAPI) Tags(ctx context.Context) ([]*magnetar.AssignmentTag, error) {
	tags, err := s.db.Tags(ctx)
	if err != nil {
		return nil, magnetar.WrapError(err, "Couldn't fetch tags")
	}
	return tags, nil
}

// UpdateAssignmentTags replaces the assignment's tag set.
func (s *BaseAPI) UpdateAssignmentTags(ctx context.Context, assignmentID int, tagIDs []int) error {
	if err := s.db.UpdateAssignmentTags(ctx, assignmentID, tagIDs); err != nil {
		return magnetar.WrapError(err, "Couldn't update assignment tags")
	}
	return nil
}

// DeleteTag removes a tag from every assignment carrying it.
func (s *BaseAPI) DeleteTag(ctx context.Context, id int) error {
	if err := s.db.DeleteTag(ctx, id); err != nil {
		return magnetar.WrapError(err, "Couldn't delete tag")
	}
	return nil
}
