package scoreapi

import (
	"context"
	"log/slog"
	"slices"
	"time"

	"github.com/MagnetarProjects/magnetar"
	"github.com/MagnetarProjects/magnetar/db"
	"github.com/MagnetarProjects/magnetar/rating"
	"github.com/google/uuid"
)

// ratingLock is the advisory lock key every rating run takes for the
// duration of its transaction. Runs over overlapping time ranges would
// otherwise interleave deletes and inserts.
const ratingLock int64 = 0x6d61676e8172

// Rate recomputes the rating chain from the given assignment onward: it
// wipes every rating produced by assignments that ended no earlier than
// this one, then replays those assignments oldest first, each replay
// reading the ratings the previous ones just wrote. Rating an assignment
// therefore also heals every later rated assignment, and running it twice
// with no new data writes identical rows.
//
// The assignment must be rated and must have ended.
func (s *BaseAPI) Rate(ctx context.Context, assignmentID int) error {
	now := time.Now()

	a, err := s.Assignment(ctx, assignmentID)
	if err != nil {
		return err
	}
	if !a.Rated {
		return magnetar.Statusf(400, "Assignment is not rated")
	}
	if !a.Ended(now) {
		return magnetar.Statusf(400, "Assignment hasn't ended yet")
	}

	run := &magnetar.RatingRun{RunID: uuid.NewString(), AssignmentID: a.ID}
	var affected []int
	err = s.db.InTransaction(ctx, func(tx *db.DB) error {
		if err := tx.AdvisoryXactLock(ctx, ratingLock); err != nil {
			return magnetar.WrapError(err, "Couldn't take the rating lock")
		}

		// Snapshot who held ratings in the window before wiping it: the
		// replay may drop some of them (eligibility can change), but their
		// profile mirrors still have to be refreshed afterwards.
		ids, err := tx.RatedUserIDs(ctx, a.EndTime, now)
		if err != nil {
			return magnetar.WrapError(err, "Couldn't snapshot rated users")
		}
		affected = ids

		if _, err := tx.DeleteRatings(ctx, a.EndTime, now); err != nil {
			return magnetar.WrapError(err, "Couldn't clear stale ratings")
		}

		rated := true
		targets, err := tx.Assignments(ctx, magnetar.AssignmentFilter{
			Rated:         &rated,
			EndTimeFrom:   &a.EndTime,
			EndTimeBefore: &now,
		})
		if err != nil {
			return magnetar.WrapError(err, "Couldn't collect assignments to rate")
		}

		for _, target := range targets {
			rows, err := s.rateOne(ctx, tx, target)
			if err != nil {
				return err
			}
			run.RatedAssignments++
			run.RatingsWritten += len(rows)
			for _, row := range rows {
				affected = append(affected, row.UserID)
			}
		}

		return tx.CreateRatingRun(ctx, run)
	})
	if err != nil {
		slog.WarnContext(ctx, "Rating run failed", slog.Any("err", err), slog.Int("assignment_id", a.ID))
		return err
	}

	slices.Sort(affected)
	if err := s.db.SyncRatingMirror(ctx, slices.Compact(affected)); err != nil {
		// The rating rows themselves are committed; mirrors are
		// denormalized and the next run refreshes them again.
		slog.WarnContext(ctx, "Couldn't refresh profile rating mirrors", slog.Any("err", err), slog.String("run_id", run.RunID))
	}

	ratingRunsTotal.Inc()
	ratingsWrittenTotal.Add(float64(run.RatingsWritten))
	ratingRunDuration.Observe(time.Since(now).Seconds())
	slog.InfoContext(ctx, "Rated assignments",
		slog.String("run_id", run.RunID),
		slog.Int("assignments", run.RatedAssignments),
		slog.Int("ratings", run.RatingsWritten),
	)
	return nil
}

// RatePending rates the earliest rated assignment that ended without any
// rating rows. One pass settles the whole backlog, since rating an
// assignment replays every later rated one too. Returns the assignment it
// rated, or nil when there was nothing pending.
func (s *BaseAPI) RatePending(ctx context.Context) (*magnetar.Assignment, error) {
	now := time.Now()
	rated := true
	assignments, err := s.db.Assignments(ctx, magnetar.AssignmentFilter{
		Rated:         &rated,
		EndTimeBefore: &now,
	})
	if err != nil {
		return nil, magnetar.WrapError(err, "Couldn't fetch assignments")
	}

	for _, a := range assignments {
		count, err := s.db.CountRatings(ctx, magnetar.RatingFilter{AssignmentID: &a.ID})
		if err != nil {
			return nil, magnetar.WrapError(err, "Couldn't count ratings")
		}
		if count > 0 {
			continue
		}
		if err := s.Rate(ctx, a.ID); err != nil {
			return nil, err
		}
		return a, nil
	}
	return nil, nil
}

// RatingRuns lists the most recent scheduler audit rows.
func (s *BaseAPI) RatingRuns(ctx context.Context, limit int) ([]*magnetar.RatingRun, error) {
	runs, err := s.db.RatingRuns(ctx, limit)
	if err != nil {
		return nil, magnetar.WrapError(err, "Couldn't fetch rating runs")
	}
	return runs, nil
}

// UserRatingHistory returns the user's rating rows, oldest first. The last
// row is what their profile mirrors.
func (s *BaseAPI) UserRatingHistory(ctx context.Context, userID int) ([]*magnetar.Rating, error) {
	ratings, err := s.db.Ratings(ctx, magnetar.RatingFilter{UserID: &userID})
	if err != nil {
		return nil, magnetar.WrapError(err, "Couldn't fetch rating history")
	}
	return ratings, nil
}

// AssignmentRatings returns the ratings one assignment produced, in rank
// order.
func (s *BaseAPI) AssignmentRatings(ctx context.Context, assignmentID int) ([]*magnetar.Rating, error) {
	ratings, err := s.db.Ratings(ctx, magnetar.RatingFilter{AssignmentID: &assignmentID})
	if err != nil {
		return nil, magnetar.WrapError(err, "Couldn't fetch assignment ratings")
	}
	slices.SortFunc(ratings, func(a, b *magnetar.Rating) int { return a.Rank - b.Rank })
	return ratings, nil
}

// rateOne replays one assignment inside the scheduler's transaction and
// returns the rows it wrote. An empty eligible field writes nothing and is
// not an error.
func (s *BaseAPI) rateOne(ctx context.Context, tx *db.DB, a *magnetar.Assignment) ([]*magnetar.Rating, error) {
	participations, err := tx.Participations(ctx, magnetar.ParticipationFilter{
		AssignmentID: &a.ID,
		LiveOnly:     true,
	})
	if err != nil {
		return nil, magnetar.WrapError(err, "Couldn't fetch participants")
	}
	excluded, err := tx.RateExcludedUsers(ctx, a.ID)
	if err != nil {
		return nil, magnetar.WrapError(err, "Couldn't fetch rate exclusions")
	}

	eligible := eligibleParticipations(a, participations, excluded)
	if len(eligible) == 0 {
		return nil, nil
	}

	userIDs := make([]int, 0, len(eligible))
	byUser := make(map[int]*magnetar.Participation, len(eligible))
	for _, p := range eligible {
		userIDs = append(userIDs, p.UserID)
		byUser[p.UserID] = p
	}

	// Prior state is everything rated strictly before this assignment
	// ended, which inside the replay loop includes the rows the previous
	// iterations just wrote. That is what chains ratings forward in time.
	prior, err := tx.LatestRatings(ctx, userIDs, a.EndTime)
	if err != nil {
		return nil, magnetar.WrapError(err, "Couldn't fetch prior ratings")
	}
	counts, err := tx.RatedCounts(ctx, userIDs, a.EndTime)
	if err != nil {
		return nil, magnetar.WrapError(err, "Couldn't fetch rating counts")
	}

	field := contestantField(a, eligible, prior, counts)
	if len(field) == 0 {
		return nil, nil
	}

	rows := ratingRows(a, rating.Recalculate(field), byUser)
	if err := tx.CreateRatings(ctx, rows); err != nil {
		return nil, magnetar.WrapError(err, "Couldn't persist ratings")
	}
	return rows, nil
}

// eligibleParticipations narrows the live rows down to the rating field:
// rate-excluded users leave, and sentinel scores leave unless the
// assignment rates everyone who joined.
func eligibleParticipations(a *magnetar.Assignment, participations []*magnetar.Participation, excluded []int) []*magnetar.Participation {
	skip := make(map[int]bool, len(excluded))
	for _, id := range excluded {
		skip[id] = true
	}

	eligible := make([]*magnetar.Participation, 0, len(participations))
	for _, p := range participations {
		if !p.Live() || skip[p.UserID] {
			continue
		}
		if !a.RateAll && p.Score.Equal(magnetar.DisqualifiedScore) {
			continue
		}
		eligible = append(eligible, p)
	}
	return eligible
}

// contestantField pairs each eligible participation with its prior rating
// state and applies the floor/ceiling gate: previously rated users outside
// the bounds sit this one out, never-rated users always pass.
func contestantField(a *magnetar.Assignment, eligible []*magnetar.Participation, prior map[int]*magnetar.Rating, counts map[int]int) []*rating.Contestant {
	field := make([]*rating.Contestant, 0, len(eligible))
	for _, p := range eligible {
		c := &rating.Contestant{
			UserID:     p.UserID,
			Score:      p.Score,
			Cumtime:    p.Cumtime,
			Tiebreaker: p.Tiebreaker,
		}
		if r := prior[p.UserID]; r != nil {
			if a.RatingFloor != nil && r.Rating < *a.RatingFloor {
				continue
			}
			if a.RatingCeiling != nil && r.Rating > *a.RatingCeiling {
				continue
			}
			c.Rating = r.Rating
			c.Volatility = r.Volatility
			c.Times = counts[p.UserID]
		}
		field = append(field, c)
	}
	return field
}

// ratingRows turns the engine's results into rows stamped with the
// assignment's end time, the key the replay interval selects on.
func ratingRows(a *magnetar.Assignment, results []*rating.Result, byUser map[int]*magnetar.Participation) []*magnetar.Rating {
	rows := make([]*magnetar.Rating, 0, len(results))
	for _, r := range results {
		rows = append(rows, &magnetar.Rating{
			UserID:          r.UserID,
			AssignmentID:    a.ID,
			ParticipationID: byUser[r.UserID].ID,
			Rank:            r.Rank,
			Rating:          r.Rating,
			Volatility:      r.Volatility,
			LastRated:       a.EndTime,
		})
	}
	return rows
}
