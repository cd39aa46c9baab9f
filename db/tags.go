package db

import (
	"context"
	"errors"

	"github.com/MagnetarProjects/magnetar"
	"github.com/jackc/pgx/v5"
)

// Tags returns all assignment tags sorted by name.
func (s *DB) Tags(ctx context.Context) ([]*magnetar.AssignmentTag, error) {
	rows, _ := s.conn.Query(ctx, "SELECT * FROM assignment_tags ORDER BY name ASC")
	return collectTags(rows)
}

// TagsByAssignment returns the tags attached to one assignment.
func (s *DB) TagsByAssignment(ctx context.Context, assignmentID int) ([]*magnetar.AssignmentTag, error) {
	rows, _ := s.conn.Query(ctx, `
	SELECT tags.* FROM assignment_tags tags
	INNER JOIN assignment_tag_links links ON links.tag_id = tags.id
	WHERE links.assignment_id = $1
	ORDER BY tags.name ASC
`, assignmentID)
	return collectTags(rows)
}

// CreateTag creates a new tag and fills in its ID.
func (s *DB) CreateTag(ctx context.Context, tag *magnetar.AssignmentTag) error {
	if tag.Name == "" {
		return magnetar.ErrMissingRequired
	}
	return s.conn.QueryRow(ctx,
		"INSERT INTO assignment_tags (name, color, description) VALUES ($1, $2, $3) RETURNING id",
		tag.Name, tag.Color, tag.Description,
	).Scan(&tag.ID)
}

// UpdateAssignmentTags replaces the assignment's tag set.
func (s *DB) UpdateAssignmentTags(ctx context.Context, assignmentID int, tagIDs []int) error {
	return s.updateManyToMany(ctx, "assignment_tag_links", "assignment_id", "tag_id", assignmentID, tagIDs)
}

// DeleteTag removes a tag everywhere.
func (s *DB) DeleteTag(ctx context.Context, id int) error {
	_, err := s.conn.Exec(ctx, "DELETE FROM assignment_tags WHERE id = $1", id)
	return err
}

func collectTags(rows pgx.Rows) ([]*magnetar.AssignmentTag, error) {
	tags, err := pgx.CollectRows(rows, pgx.RowToAddrOfStructByName[magnetar.AssignmentTag])
	if errors.Is(err, pgx.ErrNoRows) {
		return []*magnetar.AssignmentTag{}, nil
	}
	return tags, err
}
