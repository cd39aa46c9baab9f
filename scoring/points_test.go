package scoring

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/MagnetarProjects/magnetar"
	"github.com/shopspring/decimal"
)

var sheetStart = time.Date(2024, 4, 2, 12, 0, 0, 0, time.UTC)

func testSheet(formatName string, config map[string]any, entries ...*magnetar.ScoresheetEntry) *magnetar.Scoresheet {
	a := &magnetar.Assignment{
		Key:             "round1",
		Name:            "Round 1",
		StartTime:       sheetStart,
		EndTime:         sheetStart.Add(5 * time.Hour),
		FormatName:      formatName,
		FormatConfig:    config,
		PointsPrecision: magnetar.DefaultPointsPrecision,
	}
	p := &magnetar.Participation{AssignmentID: 1, UserID: 1, RealStart: sheetStart}
	return &magnetar.Scoresheet{
		Assignment:    a,
		Participation: p,
		Entries:       entries,
		Start:         p.EffectiveStart(a),
		End:           p.EffectiveEnd(a),
	}
}

func entry(problem int, minutesIn int, result string, points float64) *magnetar.ScoresheetEntry {
	return &magnetar.ScoresheetEntry{
		ProblemID:   problem,
		Points:      decimal.NewFromFloat(points),
		Result:      result,
		SubmittedAt: sheetStart.Add(time.Duration(minutesIn) * time.Minute),
	}
}

func TestPointsScore(t *testing.T) {
	format, err := Get("points")
	if err != nil {
		t.Fatal(err)
	}

	t.Run("empty sheet scores zero", func(t *testing.T) {
		out, err := format.Score(testSheet("points", nil))
		if err != nil {
			t.Fatal(err)
		}
		if !out.Score.IsZero() || out.Cumtime != 0 || out.Tiebreaker != 0 {
			t.Errorf("empty sheet gave score=%s cumtime=%d tiebreaker=%f", out.Score, out.Cumtime, out.Tiebreaker)
		}
	})

	t.Run("best per problem with first-best time", func(t *testing.T) {
		sheet := testSheet("points", nil,
			entry(1, 10, magnetar.VerdictWA, 30),
			entry(1, 20, magnetar.VerdictAC, 100), // first best for problem 1
			entry(1, 40, magnetar.VerdictAC, 100), // same score later, ignored
			entry(2, 25, magnetar.VerdictWA, 0),   // never scores
			entry(3, 50, magnetar.VerdictAC, 70),
		)
		out, err := format.Score(sheet)
		if err != nil {
			t.Fatal(err)
		}
		if want := decimal.NewFromInt(170); !out.Score.Equal(want) {
			t.Errorf("score = %s, want %s", out.Score, want)
		}
		// 20min + 50min, problem 2 contributes nothing
		if want := int64((20 + 50) * 60); out.Cumtime != want {
			t.Errorf("cumtime = %d, want %d", out.Cumtime, want)
		}

		var data map[string]pointsCell
		if err := json.Unmarshal(out.FormatData, &data); err != nil {
			t.Fatal(err)
		}
		if got := data["1"].Time; got != 20*60 {
			t.Errorf("problem 1 first-best time = %d, want %d", got, 20*60)
		}
		if got := data["2"].Points; !got.IsZero() {
			t.Errorf("problem 2 points = %s, want 0", got)
		}
	})

	t.Run("submissions before the window clamp to zero", func(t *testing.T) {
		sheet := testSheet("points", nil, entry(1, -30, magnetar.VerdictAC, 100))
		out, err := format.Score(sheet)
		if err != nil {
			t.Fatal(err)
		}
		if out.Cumtime != 0 {
			t.Errorf("cumtime = %d, want 0 for pre-window submission", out.Cumtime)
		}
	})

	t.Run("score rounds to the assignment precision", func(t *testing.T) {
		sheet := testSheet("points", nil, entry(1, 5, magnetar.VerdictAC, 33.33337))
		sheet.Assignment.PointsPrecision = 2
		out, err := format.Score(sheet)
		if err != nil {
			t.Fatal(err)
		}
		if want := decimal.NewFromFloat(33.33); !out.Score.Equal(want) {
			t.Errorf("score = %s, want %s", out.Score, want)
		}
	})

	t.Run("scoring twice gives identical outcomes", func(t *testing.T) {
		sheet := testSheet("points", nil,
			entry(1, 10, magnetar.VerdictWA, 30),
			entry(1, 20, magnetar.VerdictAC, 100),
			entry(2, 50, magnetar.VerdictAC, 70),
		)
		first, err := format.Score(sheet)
		if err != nil {
			t.Fatal(err)
		}
		second, err := format.Score(sheet)
		if err != nil {
			t.Fatal(err)
		}
		if !first.Score.Equal(second.Score) || first.Cumtime != second.Cumtime ||
			first.Tiebreaker != second.Tiebreaker || string(first.FormatData) != string(second.FormatData) {
			t.Error("scoring the same sheet twice diverged")
		}
	})
}

func TestPointsConfigRejected(t *testing.T) {
	format, err := Get("points")
	if err != nil {
		t.Fatal(err)
	}
	if err := format.ValidateConfig(nil); err != nil {
		t.Errorf("nil config rejected: %v", err)
	}
	if err := format.ValidateConfig(map[string]any{"penalty": 20}); err == nil {
		t.Error("points format accepted a config")
	}
}

func TestPointsLabels(t *testing.T) {
	format, _ := Get("points")
	tests := []struct {
		index int
		want  string
	}{{0, "1"}, {1, "2"}, {9, "10"}}
	for _, test := range tests {
		if got := format.Label(test.index); got != test.want {
			t.Errorf("Label(%d) = %q, want %q", test.index, got, test.want)
		}
	}
}
