package rating

import (
	"testing"

	"github.com/MagnetarProjects/magnetar"
	"github.com/shopspring/decimal"
)

func score(v int64) decimal.Decimal {
	return decimal.NewFromInt(v)
}

func TestStandingsOrder(t *testing.T) {
	contestants := []*Contestant{
		{UserID: 1, Score: score(50), Cumtime: 100},
		{UserID: 2, Score: score(50), Cumtime: 80},
		{UserID: 3, Score: score(40), Cumtime: 10},
	}
	results := Recalculate(contestants)

	wantOrder := []int{2, 1, 3}
	for i, want := range wantOrder {
		if results[i].UserID != want {
			t.Errorf("rank %d went to user %d, want user %d", i+1, results[i].UserID, want)
		}
		if results[i].Rank != i+1 {
			t.Errorf("user %d got rank %d, want %d", results[i].UserID, results[i].Rank, i+1)
		}
	}
}

func TestOrderBreaksFullTiesByUserID(t *testing.T) {
	contestants := []*Contestant{
		{UserID: 9, Score: score(10), Cumtime: 60, Tiebreaker: 5},
		{UserID: 4, Score: score(10), Cumtime: 60, Tiebreaker: 5},
	}
	Order(contestants)
	if contestants[0].UserID != 4 || contestants[1].UserID != 9 {
		t.Errorf("full tie ordered as (%d, %d), want (4, 9)", contestants[0].UserID, contestants[1].UserID)
	}
}

func TestRecalculateFreshPair(t *testing.T) {
	contestants := []*Contestant{
		{UserID: 1, Score: score(100), Cumtime: 300},
		{UserID: 2, Score: score(50), Cumtime: 300},
	}
	results := Recalculate(contestants)

	winner, loser := results[0], results[1]
	if winner.UserID != 1 {
		t.Fatalf("winner is user %d, want user 1", winner.UserID)
	}
	if winner.Rating != 1416 || loser.Rating != 984 {
		t.Errorf("fresh pair rated (%d, %d), want (1416, 984)", winner.Rating, loser.Rating)
	}
	if winner.Volatility != magnetar.FirstVolatility || loser.Volatility != magnetar.FirstVolatility {
		t.Errorf("fresh volatilities (%d, %d), want both %d", winner.Volatility, loser.Volatility, magnetar.FirstVolatility)
	}
}

func TestRecalculateDeterministic(t *testing.T) {
	build := func() []*Contestant {
		return []*Contestant{
			{UserID: 3, Score: score(80), Cumtime: 500, Rating: 1800, Volatility: 300, Times: 4},
			{UserID: 1, Score: score(100), Cumtime: 200, Rating: 1500, Volatility: 385, Times: 1},
			{UserID: 2, Score: score(100), Cumtime: 300},
			{UserID: 4, Score: score(10), Cumtime: 100, Rating: 2600, Volatility: 250, Times: 30},
		}
	}
	// Same field in a different input order.
	shuffled := build()
	shuffled[0], shuffled[2] = shuffled[2], shuffled[0]
	shuffled[1], shuffled[3] = shuffled[3], shuffled[1]

	first := Recalculate(build())
	second := Recalculate(shuffled)

	if len(first) != len(second) {
		t.Fatalf("result sizes differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if *first[i] != *second[i] {
			t.Errorf("result %d differs: %+v vs %+v", i, first[i], second[i])
		}
	}
}

func TestRecalculateGainAndLoss(t *testing.T) {
	contestants := []*Contestant{
		{UserID: 1, Score: score(100), Cumtime: 100, Rating: 1400, Volatility: 385, Times: 2},
		{UserID: 2, Score: score(90), Cumtime: 100, Rating: 1400, Volatility: 385, Times: 2},
		{UserID: 3, Score: score(80), Cumtime: 100, Rating: 1400, Volatility: 385, Times: 2},
	}
	results := Recalculate(contestants)

	if results[0].Rating <= 1400 {
		t.Errorf("first place rating %d, want a gain over 1400", results[0].Rating)
	}
	if results[2].Rating >= 1400 {
		t.Errorf("last place rating %d, want a loss below 1400", results[2].Rating)
	}
	// The cap bounds every swing.
	for _, r := range results {
		swing := r.Rating - 1400
		if swing < 0 {
			swing = -swing
		}
		if swing > 150+1500/4 {
			t.Errorf("user %d swung by %d, beyond the cap", r.UserID, swing)
		}
	}
}

func TestRecalculateHighRatingDampened(t *testing.T) {
	// Identical outcomes, but user 2 sits above 2500 and moves on a
	// reduced weight.
	base := []*Contestant{
		{UserID: 1, Score: score(100), Cumtime: 100, Rating: 1500, Volatility: 300, Times: 10},
		{UserID: 2, Score: score(50), Cumtime: 100, Rating: 2600, Volatility: 300, Times: 10},
		{UserID: 3, Score: score(75), Cumtime: 100, Rating: 1500, Volatility: 300, Times: 10},
	}
	results := Recalculate(base)
	for _, r := range results {
		if r.UserID == 2 && r.Rating >= 2600 {
			t.Errorf("user 2 rated %d after losing to the field, want a drop", r.Rating)
		}
	}
}

func TestRecalculateSingleContestant(t *testing.T) {
	results := Recalculate([]*Contestant{{UserID: 7, Score: score(100)}})
	if len(results) != 1 {
		t.Fatalf("got %d results, want 1", len(results))
	}
	r := results[0]
	if r.Rank != 1 || r.Rating != magnetar.InitialRating || r.Volatility != magnetar.FirstVolatility {
		t.Errorf("single fresh contestant got %+v", r)
	}
}

func TestRecalculateEmpty(t *testing.T) {
	if results := Recalculate(nil); len(results) != 0 {
		t.Errorf("empty field produced %d results", len(results))
	}
}
