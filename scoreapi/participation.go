package scoreapi

import (
	"context"
	"log/slog"
	"time"

	"github.com/MagnetarProjects/magnetar"
	"github.com/MagnetarProjects/magnetar/db"
	"github.com/MagnetarProjects/magnetar/internal/config"
	"github.com/MagnetarProjects/magnetar/scoring"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

var recomputeWorkers = config.GenFlag[int]("behavior.aggregator.num_workers", 8, "Parallel workers for full-assignment recomputes")

// JoinAssignment enters the user into the live run of an assignment. The
// user must be outside any other assignment, the window must be open and,
// when the assignment carries an access code, it must match. Rejoining
// one's own live run is idempotent as long as its personal window is
// still open.
func (s *BaseAPI) JoinAssignment(ctx context.Context, a *magnetar.Assignment, user *magnetar.User, accessCode string) (*magnetar.Participation, error) {
	now := time.Now()

	if err := s.checkNotBanned(ctx, a, user); err != nil {
		return nil, err
	}
	if a.AccessCode != "" && accessCode != a.AccessCode {
		return nil, magnetar.Statusf(403, "Wrong access code")
	}

	existing, err := s.db.ParticipationByVirtual(ctx, a.ID, user.ID, magnetar.ParticipationLive)
	if err != nil {
		return nil, magnetar.WrapError(err, "Couldn't look up participation")
	}
	if existing != nil {
		if user.CurrentParticipationID != nil && *user.CurrentParticipationID == existing.ID {
			return existing, nil
		}
		if user.CurrentParticipationID != nil {
			return nil, magnetar.Statusf(400, "Already inside another assignment")
		}
		// Leaving never stops the personal clock, so the window may
		// have run out in the meantime.
		if existing.Ended(a, now) {
			return nil, magnetar.Statusf(400, "Your time for this assignment is up")
		}
		if err := s.db.SetCurrentParticipation(ctx, user.ID, &existing.ID); err != nil {
			return nil, magnetar.WrapError(err, "Couldn't rejoin assignment")
		}
		return existing, nil
	}

	if user.CurrentParticipationID != nil {
		return nil, magnetar.Statusf(400, "Already inside another assignment")
	}
	if now.Before(a.StartTime) {
		return nil, magnetar.Statusf(400, "Assignment hasn't started")
	}
	if a.Ended(now) {
		return nil, magnetar.Statusf(400, "Assignment is over, join virtually instead")
	}

	p := &magnetar.Participation{
		AssignmentID: a.ID,
		UserID:       user.ID,
		Virtual:      magnetar.ParticipationLive,
		RealStart:    now,
	}
	err = s.db.InTransaction(ctx, func(tx *db.DB) error {
		if err := tx.CreateParticipation(ctx, p); err != nil {
			return err
		}
		if err := tx.SetCurrentParticipation(ctx, user.ID, &p.ID); err != nil {
			return err
		}
		return tx.RefreshUserCount(ctx, a.ID)
	})
	if err != nil {
		slog.WarnContext(ctx, "Couldn't join assignment", slog.Any("err", err), slog.Int("assignment_id", a.ID), slog.Int("user_id", user.ID))
		return nil, magnetar.WrapError(err, "Couldn't join assignment")
	}
	return p, nil
}

// Spectate enters the user as a spectator. Spectators track the full
// assignment window, are never ranked or rated and are not asked for the
// access code.
func (s *BaseAPI) Spectate(ctx context.Context, a *magnetar.Assignment, user *magnetar.User) (*magnetar.Participation, error) {
	now := time.Now()

	if err := s.checkNotBanned(ctx, a, user); err != nil {
		return nil, err
	}

	existing, err := s.db.ParticipationByVirtual(ctx, a.ID, user.ID, magnetar.ParticipationSpectate)
	if err != nil {
		return nil, magnetar.WrapError(err, "Couldn't look up participation")
	}
	if existing != nil {
		if user.CurrentParticipationID != nil && *user.CurrentParticipationID == existing.ID {
			return existing, nil
		}
		if user.CurrentParticipationID != nil {
			return nil, magnetar.Statusf(400, "Already inside another assignment")
		}
		if err := s.db.SetCurrentParticipation(ctx, user.ID, &existing.ID); err != nil {
			return nil, magnetar.WrapError(err, "Couldn't rejoin assignment")
		}
		return existing, nil
	}

	if user.CurrentParticipationID != nil {
		return nil, magnetar.Statusf(400, "Already inside another assignment")
	}

	p := &magnetar.Participation{
		AssignmentID: a.ID,
		UserID:       user.ID,
		Virtual:      magnetar.ParticipationSpectate,
		RealStart:    now,
	}
	err = s.db.InTransaction(ctx, func(tx *db.DB) error {
		if err := tx.CreateParticipation(ctx, p); err != nil {
			return err
		}
		return tx.SetCurrentParticipation(ctx, user.ID, &p.ID)
	})
	if err != nil {
		slog.WarnContext(ctx, "Couldn't spectate assignment", slog.Any("err", err), slog.Int("assignment_id", a.ID), slog.Int("user_id", user.ID))
		return nil, magnetar.WrapError(err, "Couldn't spectate assignment")
	}
	return p, nil
}

// StartVirtual begins a fresh virtual rerun of an assignment that already
// ended. Each rerun replays the original window length (or the time limit)
// from its own start and never touches ratings.
func (s *BaseAPI) StartVirtual(ctx context.Context, a *magnetar.Assignment, user *magnetar.User, accessCode string) (*magnetar.Participation, error) {
	now := time.Now()

	if err := s.checkNotBanned(ctx, a, user); err != nil {
		return nil, err
	}
	if !a.Ended(now) {
		return nil, magnetar.Statusf(400, "Virtual participation opens once the assignment ends")
	}
	if a.AccessCode != "" && accessCode != a.AccessCode {
		return nil, magnetar.Statusf(403, "Wrong access code")
	}
	if user.CurrentParticipationID != nil {
		return nil, magnetar.Statusf(400, "Already inside another assignment")
	}

	p := &magnetar.Participation{
		AssignmentID: a.ID,
		UserID:       user.ID,
		RealStart:    now,
	}
	err := s.db.InTransaction(ctx, func(tx *db.DB) error {
		index, err := tx.NextVirtualIndex(ctx, a.ID, user.ID)
		if err != nil {
			return err
		}
		p.Virtual = index
		if err := tx.CreateParticipation(ctx, p); err != nil {
			return err
		}
		return tx.SetCurrentParticipation(ctx, user.ID, &p.ID)
	})
	if err != nil {
		slog.WarnContext(ctx, "Couldn't start virtual participation", slog.Any("err", err), slog.Int("assignment_id", a.ID), slog.Int("user_id", user.ID))
		return nil, magnetar.WrapError(err, "Couldn't start virtual participation")
	}
	return p, nil
}

// LeaveAssignment detaches the user from whatever they are currently in.
// The personal window keeps running; only the pointer is dropped.
func (s *BaseAPI) LeaveAssignment(ctx context.Context, user *magnetar.User) error {
	if user.CurrentParticipationID == nil {
		return nil
	}
	if err := s.db.SetCurrentParticipation(ctx, user.ID, nil); err != nil {
		return magnetar.WrapError(err, "Couldn't leave assignment")
	}
	return nil
}

// Participation looks up a participation by ID.
func (s *BaseAPI) Participation(ctx context.Context, id int) (*magnetar.Participation, error) {
	p, err := s.db.Participation(ctx, id)
	if err != nil || p == nil {
		return nil, magnetar.WrapError(magnetar.ErrNotFound, "Participation not found")
	}
	return p, nil
}

// Participations lists participations matching the filter.
func (s *BaseAPI) Participations(ctx context.Context, filter magnetar.ParticipationFilter) ([]*magnetar.Participation, error) {
	participations, err := s.db.Participations(ctx, filter)
	if err != nil {
		return nil, magnetar.WrapError(err, "Couldn't fetch participations")
	}
	return participations, nil
}

// AddSubmission attaches a judged submission to a participation's problem
// and recomputes the standings row, all in one transaction. The submission
// carries the judge's verdict and its 0..100 score; the points awarded
// inside the assignment are derived from the problem's value here.
func (s *BaseAPI) AddSubmission(ctx context.Context, participationID, problemID int, sub *magnetar.Submission) (*magnetar.AssignmentSubmission, error) {
	now := time.Now()

	var asub *magnetar.AssignmentSubmission
	err := s.db.InTransaction(ctx, func(tx *db.DB) error {
		p, err := tx.Participation(ctx, participationID)
		if err != nil || p == nil {
			return magnetar.WrapError(magnetar.ErrNotFound, "Participation not found")
		}
		a, err := tx.Assignment(ctx, p.AssignmentID)
		if err != nil || a == nil {
			return magnetar.WrapError(magnetar.ErrNotFound, "Assignment not found")
		}
		pb, err := tx.AssignmentProblem(ctx, problemID)
		if err != nil {
			return magnetar.WrapError(err, "Couldn't look up assignment problem")
		}
		if pb == nil || pb.AssignmentID != a.ID {
			return magnetar.Statusf(400, "Problem is not part of this assignment")
		}

		if now.Before(p.EffectiveStart(a)) {
			return magnetar.Statusf(400, "Assignment hasn't started")
		}
		if p.Ended(a, now) {
			return magnetar.Statusf(400, "Your time for this assignment is up")
		}
		if pb.MaxSubmissions != nil {
			count, err := tx.AttemptCount(ctx, p.ID, pb.ID)
			if err != nil {
				return magnetar.WrapError(err, "Couldn't count attempts")
			}
			if count >= *pb.MaxSubmissions {
				return magnetar.Statusf(400, "Submission limit of %d reached", *pb.MaxSubmissions)
			}
		}

		sub.UserID = p.UserID
		sub.CreatedAt = now
		if err := tx.CreateSubmission(ctx, sub); err != nil {
			return magnetar.WrapError(err, "Couldn't create submission")
		}
		asub = &magnetar.AssignmentSubmission{
			SubmissionID:    sub.ID,
			ProblemID:       pb.ID,
			ParticipationID: p.ID,
			Points:          assignmentPoints(sub, pb, a.PointsPrecision),
			Pretest:         pb.Pretested,
		}
		if err := tx.CreateAssignmentSubmission(ctx, asub); err != nil {
			return magnetar.WrapError(err, "Couldn't attach submission")
		}
		return s.recomputeTx(ctx, tx, a, p)
	})
	if err != nil {
		return nil, err
	}
	return asub, nil
}

// ApplyJudgement records the rejudged verdict of a submission, rescales its
// assignment points and recomputes the owning participation.
func (s *BaseAPI) ApplyJudgement(ctx context.Context, submissionID int, result string, points decimal.Decimal) error {
	return s.db.InTransaction(ctx, func(tx *db.DB) error {
		asub, err := tx.AssignmentSubmissionBySubmissionID(ctx, submissionID)
		if err != nil {
			return magnetar.WrapError(err, "Couldn't look up assignment submission")
		}
		if asub == nil {
			return magnetar.WrapError(magnetar.ErrNotFound, "Submission is not attached to an assignment")
		}
		p, err := tx.Participation(ctx, asub.ParticipationID)
		if err != nil || p == nil {
			return magnetar.WrapError(magnetar.ErrNotFound, "Participation not found")
		}
		a, err := tx.Assignment(ctx, p.AssignmentID)
		if err != nil || a == nil {
			return magnetar.WrapError(magnetar.ErrNotFound, "Assignment not found")
		}
		pb, err := tx.AssignmentProblem(ctx, asub.ProblemID)
		if err != nil || pb == nil {
			return magnetar.WrapError(magnetar.ErrNotFound, "Assignment problem not found")
		}

		if err := tx.UpdateSubmissionResult(ctx, submissionID, result, points); err != nil {
			return magnetar.WrapError(err, "Couldn't update submission")
		}
		scaled := assignmentPoints(&magnetar.Submission{Result: result, Points: points}, pb, a.PointsPrecision)
		if err := tx.UpdateAssignmentSubmissionPoints(ctx, submissionID, scaled); err != nil {
			return magnetar.WrapError(err, "Couldn't update assignment points")
		}
		return s.recomputeTx(ctx, tx, a, p)
	})
}

// RecomputeResults reruns the assignment's scoring format over the
// participation and persists the outcome. Disqualified rows keep the
// sentinel score no matter what the format computed. Idempotent: with no
// submission changes in between, a second run writes identical values.
func (s *BaseAPI) RecomputeResults(ctx context.Context, participationID int) error {
	return s.db.InTransaction(ctx, func(tx *db.DB) error {
		p, err := tx.Participation(ctx, participationID)
		if err != nil || p == nil {
			return magnetar.WrapError(magnetar.ErrNotFound, "Participation not found")
		}
		a, err := tx.Assignment(ctx, p.AssignmentID)
		if err != nil || a == nil {
			return magnetar.WrapError(magnetar.ErrNotFound, "Assignment not found")
		}
		return s.recomputeTx(ctx, tx, a, p)
	})
}

// RecomputeAssignment recomputes every participation of the assignment,
// a few in parallel. Used after scoring settings change or problems get
// reweighted.
func (s *BaseAPI) RecomputeAssignment(ctx context.Context, assignmentID int) error {
	a, err := s.Assignment(ctx, assignmentID)
	if err != nil {
		return err
	}
	participations, err := s.db.Participations(ctx, magnetar.ParticipationFilter{AssignmentID: &a.ID})
	if err != nil {
		return magnetar.WrapError(err, "Couldn't fetch participations")
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(recomputeWorkers.Value(), 1))
	for _, p := range participations {
		p := p
		g.Go(func() error {
			return s.RecomputeResults(gctx, p.ID)
		})
	}
	if err := g.Wait(); err != nil {
		slog.WarnContext(ctx, "Couldn't recompute assignment", slog.Any("err", err), slog.Int("assignment_id", a.ID))
		return magnetar.WrapError(err, "Couldn't recompute assignment")
	}
	return nil
}

// SetDisqualified flips a participation's disqualification. Disqualifying
// forces the sentinel score, bans the user from the assignment and kicks
// them out of it if they are inside; requalifying unbans and recomputes
// the natural score. If the assignment was already rated, the rating chain
// is replayed with the changed eligibility.
func (s *BaseAPI) SetDisqualified(ctx context.Context, participationID int, disqualified bool) error {
	var a *magnetar.Assignment
	err := s.db.InTransaction(ctx, func(tx *db.DB) error {
		p, err := tx.Participation(ctx, participationID)
		if err != nil || p == nil {
			return magnetar.WrapError(magnetar.ErrNotFound, "Participation not found")
		}
		a, err = tx.Assignment(ctx, p.AssignmentID)
		if err != nil || a == nil {
			return magnetar.WrapError(magnetar.ErrNotFound, "Assignment not found")
		}

		if disqualified {
			if err := tx.SetDisqualified(ctx, p.ID, true, magnetar.DisqualifiedScore); err != nil {
				return magnetar.WrapError(err, "Couldn't disqualify participation")
			}
			if err := tx.BanUser(ctx, a.ID, p.UserID); err != nil {
				return magnetar.WrapError(err, "Couldn't ban participant")
			}
			return tx.ClearCurrentParticipation(ctx, p.ID)
		}

		if err := tx.SetDisqualified(ctx, p.ID, false, p.Score); err != nil {
			return magnetar.WrapError(err, "Couldn't requalify participation")
		}
		if err := tx.UnbanUser(ctx, a.ID, p.UserID); err != nil {
			return magnetar.WrapError(err, "Couldn't unban participant")
		}
		p.Disqualified = false
		return s.recomputeTx(ctx, tx, a, p)
	})
	if err != nil {
		return err
	}

	if a.Rated {
		count, err := s.db.CountRatings(ctx, magnetar.RatingFilter{AssignmentID: &a.ID})
		if err != nil {
			return magnetar.WrapError(err, "Couldn't check existing ratings")
		}
		if count > 0 {
			return s.Rate(ctx, a.ID)
		}
	}
	return nil
}

// recomputeTx is the aggregator core: assemble the scoresheet, run the
// assignment's scoring format over it and write the outcome back, with the
// disqualification override applied last so no reader ever sees a
// recomputed-but-not-yet-overridden score.
func (s *BaseAPI) recomputeTx(ctx context.Context, tx *db.DB, a *magnetar.Assignment, p *magnetar.Participation) error {
	problems, err := tx.AssignmentProblems(ctx, a.ID)
	if err != nil {
		return magnetar.WrapError(err, "Couldn't fetch assignment problems")
	}
	entries, err := tx.ScoresheetEntries(ctx, p.ID)
	if err != nil {
		return magnetar.WrapError(err, "Couldn't fetch scoresheet")
	}

	f, err := scoring.Get(a.FormatName)
	if err != nil {
		return err
	}
	outcome, err := f.Score(&magnetar.Scoresheet{
		Assignment:    a,
		Participation: p,
		Problems:      problems,
		Entries:       entries,
		Start:         p.EffectiveStart(a),
		End:           p.EffectiveEnd(a),
	})
	if err != nil {
		return magnetar.WrapError(err, "Couldn't score participation")
	}
	if outcome.Score.LessThanOrEqual(magnetar.DisqualifiedScore) {
		return magnetar.Statusf(500, "Format %q scored below the disqualification sentinel", a.FormatName)
	}

	if err := tx.UpdateParticipationResult(ctx, p.ID, resultFromOutcome(outcome, p.Disqualified)); err != nil {
		return magnetar.WrapError(err, "Couldn't persist participation results")
	}
	recomputesTotal.Inc()
	return nil
}

// resultFromOutcome folds the disqualification override into the freshly
// scored outcome. Only the score is masked; cumtime, tiebreaker and format
// data keep their real values so they come back intact when the flag is
// lifted and the row is rescored.
func resultFromOutcome(outcome *scoring.Outcome, disqualified bool) magnetar.ParticipationResult {
	res := magnetar.ParticipationResult{
		Score:      outcome.Score,
		Cumtime:    outcome.Cumtime,
		Tiebreaker: outcome.Tiebreaker,
		FormatData: outcome.FormatData,
	}
	if disqualified {
		res.Score = magnetar.DisqualifiedScore
	}
	return res
}

func (s *BaseAPI) checkNotBanned(ctx context.Context, a *magnetar.Assignment, user *magnetar.User) error {
	banned, err := s.db.UserBanned(ctx, a.ID, user.ID)
	if err != nil {
		return magnetar.WrapError(err, "Couldn't check assignment bans")
	}
	if banned {
		return magnetar.Statusf(403, "You are banned from this assignment")
	}
	return nil
}

var hundred = decimal.NewFromInt(100)

// assignmentPoints scales a judge score (0..100) onto the problem's value
// inside the assignment. Non-partial problems award all or nothing.
func assignmentPoints(sub *magnetar.Submission, pb *magnetar.AssignmentProblem, precision int) decimal.Decimal {
	if !sub.Counted() {
		return decimal.Zero
	}
	value := decimal.NewFromInt(int64(pb.Points))
	if !pb.Partial {
		if sub.Points.GreaterThanOrEqual(hundred) {
			return value
		}
		return decimal.Zero
	}
	return sub.Points.Mul(value).Div(hundred).Round(int32(precision))
}
