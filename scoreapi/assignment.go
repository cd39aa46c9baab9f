package scoreapi

import (
	"context"
	"log/slog"
	"time"

	"github.com/MagnetarProjects/magnetar"
	"github.com/MagnetarProjects/magnetar/internal/config"
	"github.com/MagnetarProjects/magnetar/scoring"
)

var accessCodeLength = config.GenFlag[int]("behavior.assignment.access_code_length", 8, "Length of generated assignment access codes")

// CreateAssignment creates an assignment with the default points format and
// defaulted scoreboard settings. Everything else is set through
// UpdateAssignment.
func (s *BaseAPI) CreateAssignment(ctx context.Context, key, name string, start, end time.Time) (*magnetar.Assignment, error) {
	a := &magnetar.Assignment{
		Key:  key,
		Name: name,

		StartTime: start,
		EndTime:   end,

		ScoreboardVisibility: magnetar.ScoreboardVisible,
		FormatName:           "points",
		PointsPrecision:      magnetar.DefaultPointsPrecision,
	}
	if err := a.Validate(); err != nil {
		return nil, err
	}
	if err := s.db.CreateAssignment(ctx, a); err != nil {
		slog.WarnContext(ctx, "Couldn't create assignment", slog.Any("err", err))
		return nil, magnetar.WrapError(err, "Couldn't create assignment")
	}
	return a, nil
}

// UpdateAssignment applies the update only if the assignment would still be
// valid afterwards: the window stays ordered, the scoring format accepts
// its configuration and the label script runs.
func (s *BaseAPI) UpdateAssignment(ctx context.Context, id int, upd magnetar.AssignmentUpdate) error {
	a, err := s.Assignment(ctx, id)
	if err != nil {
		return err
	}

	applyAssignmentUpdate(a, upd)
	if err := a.Validate(); err != nil {
		return err
	}
	if err := s.validateScoring(ctx, a); err != nil {
		return err
	}

	if err := s.db.UpdateAssignment(ctx, id, upd); err != nil {
		slog.WarnContext(ctx, "Couldn't update assignment", slog.Any("err", err))
		return magnetar.WrapError(err, "Couldn't update assignment")
	}
	return nil
}

// Assignment looks up an assignment by ID, tags included.
func (s *BaseAPI) Assignment(ctx context.Context, id int) (*magnetar.Assignment, error) {
	a, err := s.db.Assignment(ctx, id)
	if err != nil || a == nil {
		return nil, magnetar.WrapError(magnetar.ErrNotFound, "Assignment not found")
	}
	return s.withTags(ctx, a)
}

// AssignmentByKey looks up an assignment by its URL key, tags included.
func (s *BaseAPI) AssignmentByKey(ctx context.Context, key string) (*magnetar.Assignment, error) {
	a, err := s.db.AssignmentByKey(ctx, key)
	if err != nil || a == nil {
		return nil, magnetar.WrapError(magnetar.ErrNotFound, "Assignment not found")
	}
	return s.withTags(ctx, a)
}

// Assignments lists assignments matching the filter, ordered by end time.
func (s *BaseAPI) Assignments(ctx context.Context, filter magnetar.AssignmentFilter) ([]*magnetar.Assignment, error) {
	assignments, err := s.db.Assignments(ctx, filter)
	if err != nil {
		return nil, magnetar.WrapError(err, "Couldn't fetch assignments")
	}
	return assignments, nil
}

func (s *BaseAPI) DeleteAssignment(ctx context.Context, id int) error {
	if err := s.db.DeleteAssignment(ctx, id); err != nil {
		slog.WarnContext(ctx, "Couldn't delete assignment", slog.Any("err", err))
		return magnetar.WrapError(err, "Couldn't delete assignment")
	}
	return nil
}

// AttachProblem binds a problem into an assignment.
func (s *BaseAPI) AttachProblem(ctx context.Context, pb *magnetar.AssignmentProblem) error {
	if err := pb.Validate(); err != nil {
		return err
	}
	if err := s.db.AttachProblem(ctx, pb); err != nil {
		slog.WarnContext(ctx, "Couldn't attach problem", slog.Any("err", err))
		return magnetar.WrapError(err, "Couldn't attach problem")
	}
	return nil
}

func (s *BaseAPI) UpdateAssignmentProblem(ctx context.Context, id int, upd magnetar.AssignmentProblemUpdate) error {
	if v := upd.MaxSubmissions; v != nil && *v <= 0 {
		return magnetar.Statusf(400, "Submission limit must be positive")
	}
	if err := s.db.UpdateAssignmentProblem(ctx, id, upd); err != nil {
		return magnetar.WrapError(err, "Couldn't update assignment problem")
	}
	return nil
}

func (s *BaseAPI) DetachProblem(ctx context.Context, id int) error {
	if err := s.db.DetachProblem(ctx, id); err != nil {
		return magnetar.WrapError(err, "Couldn't detach problem")
	}
	return nil
}

// AssignmentProblems returns the assignment's problems in label order.
func (s *BaseAPI) AssignmentProblems(ctx context.Context, assignmentID int) ([]*magnetar.AssignmentProblem, error) {
	problems, err := s.db.AssignmentProblems(ctx, assignmentID)
	if err != nil {
		return nil, magnetar.WrapError(err, "Couldn't fetch assignment problems")
	}
	return problems, nil
}

// ProblemLabel names the problem at the zero-based index: the assignment's
// label script if it carries one, the scoring format's labeling otherwise.
func (s *BaseAPI) ProblemLabel(ctx context.Context, a *magnetar.Assignment, index int) (string, error) {
	if a.LabelScript != "" {
		return s.labeler.Label(ctx, a.LabelScript, index)
	}
	f, err := scoring.Get(a.FormatName)
	if err != nil {
		return "", err
	}
	return f.Label(index), nil
}

// ProblemLabels resolves the label of every problem, keyed by assignment
// problem ID.
func (s *BaseAPI) ProblemLabels(ctx context.Context, a *magnetar.Assignment) (map[int]string, error) {
	problems, err := s.AssignmentProblems(ctx, a.ID)
	if err != nil {
		return nil, err
	}
	labels := make(map[int]string, len(problems))
	for i, pb := range problems {
		label, err := s.ProblemLabel(ctx, a, i)
		if err != nil {
			return nil, err
		}
		labels[pb.ID] = label
	}
	return labels, nil
}

// UpdateRateExcludedUsers replaces the set of users held out of rating.
func (s *BaseAPI) UpdateRateExcludedUsers(ctx context.Context, assignmentID int, userIDs []int) error {
	if err := s.db.UpdateRateExcludedUsers(ctx, assignmentID, userIDs); err != nil {
		return magnetar.WrapError(err, "Couldn't update rate exclusions")
	}
	return nil
}

// ResetAccessCode rotates the assignment's join code and returns the new
// one. Participants already inside keep their windows.
func (s *BaseAPI) ResetAccessCode(ctx context.Context, assignmentID int) (string, error) {
	code := magnetar.RandomAccessCode(accessCodeLength.Value())
	if err := s.db.UpdateAssignment(ctx, assignmentID, magnetar.AssignmentUpdate{AccessCode: &code}); err != nil {
		return "", magnetar.WrapError(err, "Couldn't reset access code")
	}
	return code, nil
}

// ClearAccessCode makes the assignment freely joinable again.
func (s *BaseAPI) ClearAccessCode(ctx context.Context, assignmentID int) error {
	code := ""
	if err := s.db.UpdateAssignment(ctx, assignmentID, magnetar.AssignmentUpdate{AccessCode: &code}); err != nil {
		return magnetar.WrapError(err, "Couldn't clear access code")
	}
	return nil
}

// validateScoring rejects format configurations and label scripts that
// would blow up at scoreboard time. Scripts get smoke-tested on the first
// label.
func (s *BaseAPI) validateScoring(ctx context.Context, a *magnetar.Assignment) error {
	if err := scoring.Validate(a.FormatName, a.FormatConfig); err != nil {
		return err
	}
	if a.LabelScript != "" {
		if _, err := s.labeler.Label(ctx, a.LabelScript, 0); err != nil {
			return err
		}
	}
	return nil
}

func (s *BaseAPI) withTags(ctx context.Context, a *magnetar.Assignment) (*magnetar.Assignment, error) {
	tags, err := s.db.TagsByAssignment(ctx, a.ID)
	if err != nil {
		return nil, magnetar.WrapError(err, "Couldn't fetch assignment tags")
	}
	a.Tags = tags
	return a, nil
}

func applyAssignmentUpdate(a *magnetar.Assignment, upd magnetar.AssignmentUpdate) {
	if v := upd.Name; v != nil {
		a.Name = *v
	}
	if v := upd.StartTime; v != nil {
		a.StartTime = *v
	}
	if v := upd.EndTime; v != nil {
		a.EndTime = *v
	}
	if upd.ClearTimeLimit {
		a.TimeLimit = nil
	} else if v := upd.TimeLimit; v != nil {
		a.TimeLimit = v
	}
	if v := upd.Rated; v != nil {
		a.Rated = *v
	}
	if v := upd.RateAll; v != nil {
		a.RateAll = *v
	}
	if v := upd.RatingFloor; v != nil {
		a.RatingFloor = v
	}
	if v := upd.RatingCeiling; v != nil {
		a.RatingCeiling = v
	}
	if v := upd.ScoreboardVisibility; v != nil {
		a.ScoreboardVisibility = *v
	}
	if v := upd.FormatName; v != nil {
		a.FormatName = *v
	}
	if v := upd.FormatConfig; v != nil {
		a.FormatConfig = v
	}
	if v := upd.LabelScript; v != nil {
		a.LabelScript = *v
	}
	if v := upd.PointsPrecision; v != nil {
		a.PointsPrecision = *v
	}
	if v := upd.AccessCode; v != nil {
		a.AccessCode = *v
	}
}
