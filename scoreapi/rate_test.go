package scoreapi

import (
	"testing"
	"time"

	"github.com/MagnetarProjects/magnetar"
	"github.com/MagnetarProjects/magnetar/rating"
	"github.com/shopspring/decimal"
)

func liveParticipation(id, userID int, score int64) *magnetar.Participation {
	return &magnetar.Participation{
		ID:           id,
		AssignmentID: 1,
		UserID:       userID,
		Virtual:      magnetar.ParticipationLive,
		Score:        decimal.NewFromInt(score),
	}
}

func TestEligibleParticipations(t *testing.T) {
	a := &magnetar.Assignment{ID: 1, Rated: true}
	sentinel := &magnetar.Participation{
		ID: 4, AssignmentID: 1, UserID: 40,
		Virtual: magnetar.ParticipationLive,
		Score:   magnetar.DisqualifiedScore,
	}
	participations := []*magnetar.Participation{
		liveParticipation(1, 10, 100),
		liveParticipation(2, 20, 50),
		{ID: 3, AssignmentID: 1, UserID: 30, Virtual: 1, Score: decimal.NewFromInt(200)},
		sentinel,
		{ID: 5, AssignmentID: 1, UserID: 50, Virtual: magnetar.ParticipationSpectate},
	}

	t.Run("virtual and spectator rows never rate", func(t *testing.T) {
		eligible := eligibleParticipations(a, participations, nil)
		if len(eligible) != 2 {
			t.Fatalf("got %d eligible rows, want 2", len(eligible))
		}
		for _, p := range eligible {
			if !p.Live() {
				t.Errorf("non-live participation of user %d slipped through", p.UserID)
			}
		}
	})

	t.Run("rate-excluded users leave entirely", func(t *testing.T) {
		eligible := eligibleParticipations(a, participations, []int{10})
		for _, p := range eligible {
			if p.UserID == 10 {
				t.Error("excluded user 10 stayed in the field")
			}
		}
		if len(eligible) != 1 {
			t.Errorf("got %d eligible rows, want 1", len(eligible))
		}
	})

	t.Run("sentinel scores leave unless rate_all", func(t *testing.T) {
		for _, p := range eligibleParticipations(a, participations, nil) {
			if p.UserID == sentinel.UserID {
				t.Error("disqualified sentinel row stayed in the field")
			}
		}

		all := &magnetar.Assignment{ID: 1, Rated: true, RateAll: true}
		found := false
		for _, p := range eligibleParticipations(all, participations, nil) {
			if p.UserID == sentinel.UserID {
				found = true
			}
		}
		if !found {
			t.Error("rate_all did not bring the sentinel row back")
		}
	})
}

func TestContestantFieldBounds(t *testing.T) {
	floor, ceiling := 1000, 2000
	a := &magnetar.Assignment{ID: 1, RatingFloor: &floor, RatingCeiling: &ceiling}

	eligible := []*magnetar.Participation{
		liveParticipation(1, 10, 100), // prior 900, below floor
		liveParticipation(2, 20, 90),  // prior 1500, inside
		liveParticipation(3, 30, 80),  // prior 2100, above ceiling
		liveParticipation(4, 40, 70),  // never rated, always passes
	}
	prior := map[int]*magnetar.Rating{
		10: {UserID: 10, Rating: 900, Volatility: 300},
		20: {UserID: 20, Rating: 1500, Volatility: 300},
		30: {UserID: 30, Rating: 2100, Volatility: 300},
	}
	counts := map[int]int{10: 3, 20: 5, 30: 7}

	field := contestantField(a, eligible, prior, counts)
	if len(field) != 2 {
		t.Fatalf("got %d contestants, want 2", len(field))
	}
	byUser := map[int]*rating.Contestant{}
	for _, c := range field {
		byUser[c.UserID] = c
	}
	if byUser[20] == nil || byUser[40] == nil {
		t.Fatalf("field holds users %v, want 20 and 40", byUser)
	}
	if byUser[20].Rating != 1500 || byUser[20].Times != 5 {
		t.Errorf("user 20 carries (rating=%d, times=%d), want (1500, 5)", byUser[20].Rating, byUser[20].Times)
	}
	if byUser[40].Times != 0 {
		t.Errorf("never-rated user 40 has times=%d, want 0", byUser[40].Times)
	}
}

func TestRatingRows(t *testing.T) {
	end := time.Date(2024, 6, 1, 17, 0, 0, 0, time.UTC)
	a := &magnetar.Assignment{ID: 7, EndTime: end}

	byUser := map[int]*magnetar.Participation{
		10: {ID: 101, UserID: 10},
		20: {ID: 102, UserID: 20},
	}
	results := []*rating.Result{
		{UserID: 20, Rank: 1, Rating: 1400, Volatility: 385},
		{UserID: 10, Rank: 2, Rating: 1000, Volatility: 385},
	}

	rows := ratingRows(a, results, byUser)
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(rows))
	}
	for i, row := range rows {
		if !row.LastRated.Equal(end) {
			t.Errorf("row %d stamped %v, want the assignment end %v", i, row.LastRated, end)
		}
		if row.AssignmentID != a.ID {
			t.Errorf("row %d belongs to assignment %d, want %d", i, row.AssignmentID, a.ID)
		}
	}
	if rows[0].ParticipationID != 102 || rows[1].ParticipationID != 101 {
		t.Errorf("participation mapping came out (%d, %d), want (102, 101)",
			rows[0].ParticipationID, rows[1].ParticipationID)
	}
	if rows[0].Rank != 1 || rows[1].Rank != 2 {
		t.Errorf("ranks came out (%d, %d), want (1, 2)", rows[0].Rank, rows[1].Rank)
	}
}

func TestAssignmentPoints(t *testing.T) {
	partial := &magnetar.AssignmentProblem{Points: 50, Partial: true}
	binary := &magnetar.AssignmentProblem{Points: 50, Partial: false}

	tests := map[string]struct {
		sub  *magnetar.Submission
		pb   *magnetar.AssignmentProblem
		want decimal.Decimal
	}{
		"partial scales the judge score": {
			sub:  &magnetar.Submission{Result: magnetar.VerdictWA, Points: decimal.NewFromInt(40)},
			pb:   partial,
			want: decimal.NewFromInt(20),
		},
		"partial full score": {
			sub:  &magnetar.Submission{Result: magnetar.VerdictAC, Points: decimal.NewFromInt(100)},
			pb:   partial,
			want: decimal.NewFromInt(50),
		},
		"binary rejects partial credit": {
			sub:  &magnetar.Submission{Result: magnetar.VerdictWA, Points: decimal.NewFromInt(99)},
			pb:   binary,
			want: decimal.Zero,
		},
		"binary awards everything at 100": {
			sub:  &magnetar.Submission{Result: magnetar.VerdictAC, Points: decimal.NewFromInt(100)},
			pb:   binary,
			want: decimal.NewFromInt(50),
		},
		"compile errors earn nothing": {
			sub:  &magnetar.Submission{Result: magnetar.VerdictCE, Points: decimal.NewFromInt(100)},
			pb:   partial,
			want: decimal.Zero,
		},
	}

	for name, test := range tests {
		test := test
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			got := assignmentPoints(test.sub, test.pb, magnetar.DefaultPointsPrecision)
			if !got.Equal(test.want) {
				t.Errorf("assignmentPoints() = %s, want %s", got, test.want)
			}
		})
	}
}
