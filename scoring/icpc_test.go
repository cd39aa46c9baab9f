package scoring

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/MagnetarProjects/magnetar"
	"github.com/shopspring/decimal"
)

func TestICPCLabels(t *testing.T) {
	format, err := Get("icpc")
	if err != nil {
		t.Fatal(err)
	}
	tests := []struct {
		index int
		want  string
	}{
		{0, "A"}, {1, "B"}, {25, "Z"},
		{26, "AA"}, {27, "AB"}, {51, "AZ"}, {52, "BA"},
		{701, "ZZ"}, {702, "AAA"},
	}
	for _, test := range tests {
		if got := format.Label(test.index); got != test.want {
			t.Errorf("Label(%d) = %q, want %q", test.index, got, test.want)
		}
	}
}

func TestICPCConfig(t *testing.T) {
	format, err := Get("icpc")
	if err != nil {
		t.Fatal(err)
	}

	tests := map[string]struct {
		config map[string]any
		ok     bool
	}{
		"nil config":          {config: nil, ok: true},
		"empty config":        {config: map[string]any{}, ok: true},
		"integer penalty":     {config: map[string]any{"penalty": 10}, ok: true},
		"json number penalty": {config: map[string]any{"penalty": float64(15)}, ok: true},
		"zero penalty":        {config: map[string]any{"penalty": 0}, ok: true},
		"negative penalty":    {config: map[string]any{"penalty": -5}, ok: false},
		"fractional penalty":  {config: map[string]any{"penalty": 2.5}, ok: false},
		"string penalty":      {config: map[string]any{"penalty": "20"}, ok: false},
		"unknown key":         {config: map[string]any{"bonus": 1}, ok: false},
	}

	for name, test := range tests {
		test := test
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			err := format.ValidateConfig(test.config)
			if test.ok && err != nil {
				t.Errorf("ValidateConfig() = %v, want nil", err)
			}
			if !test.ok {
				if err == nil {
					t.Fatal("ValidateConfig() = nil, want error")
				}
				if !errors.Is(err, magnetar.ErrFormatConfig) {
					t.Errorf("ValidateConfig() = %v, want ErrFormatConfig", err)
				}
			}
		})
	}
}

func TestICPCScore(t *testing.T) {
	format, err := Get("icpc")
	if err != nil {
		t.Fatal(err)
	}

	t.Run("penalties count wrong attempts before the solve", func(t *testing.T) {
		sheet := testSheet("icpc", nil,
			entry(1, 5, magnetar.VerdictWA, 0),
			entry(1, 8, magnetar.VerdictCE, 0), // compile errors are free
			entry(1, 10, magnetar.VerdictAC, 1),
			entry(1, 15, magnetar.VerdictWA, 0), // after the solve, irrelevant
			entry(2, 30, magnetar.VerdictAC, 1),
		)
		out, err := format.Score(sheet)
		if err != nil {
			t.Fatal(err)
		}
		if want := decimal.NewFromInt(2); !out.Score.Equal(want) {
			t.Errorf("score = %s, want %s", out.Score, want)
		}
		// 10min + 30min solves plus one wrong attempt at 20 penalty minutes
		want := int64(10*60 + 30*60 + 20*60)
		if out.Cumtime != want {
			t.Errorf("cumtime = %d, want %d", out.Cumtime, want)
		}
		if want := float64(30 * 60); out.Tiebreaker != want {
			t.Errorf("tiebreaker = %f, want %f (last solve)", out.Tiebreaker, want)
		}

		var data map[string]icpcCell
		if err := json.Unmarshal(out.FormatData, &data); err != nil {
			t.Fatal(err)
		}
		if data["1"].Penalty != 1 {
			t.Errorf("problem 1 wrong attempts = %d, want 1", data["1"].Penalty)
		}
	})

	t.Run("unsolved problems cost nothing but keep their attempts", func(t *testing.T) {
		sheet := testSheet("icpc", nil,
			entry(1, 5, magnetar.VerdictWA, 0),
			entry(1, 25, magnetar.VerdictWA, 0),
		)
		out, err := format.Score(sheet)
		if err != nil {
			t.Fatal(err)
		}
		if !out.Score.IsZero() || out.Cumtime != 0 {
			t.Errorf("unsolved sheet gave score=%s cumtime=%d", out.Score, out.Cumtime)
		}
		var data map[string]icpcCell
		if err := json.Unmarshal(out.FormatData, &data); err != nil {
			t.Fatal(err)
		}
		if data["1"].Penalty != 2 {
			t.Errorf("attempt count = %d, want 2", data["1"].Penalty)
		}
	})

	t.Run("custom penalty from config", func(t *testing.T) {
		sheet := testSheet("icpc", map[string]any{"penalty": float64(5)},
			entry(1, 5, magnetar.VerdictWA, 0),
			entry(1, 10, magnetar.VerdictAC, 1),
		)
		out, err := format.Score(sheet)
		if err != nil {
			t.Fatal(err)
		}
		if want := int64(10*60 + 5*60); out.Cumtime != want {
			t.Errorf("cumtime = %d, want %d", out.Cumtime, want)
		}
	})

	t.Run("bad config surfaces on scoring too", func(t *testing.T) {
		sheet := testSheet("icpc", map[string]any{"penalty": "many"})
		if _, err := format.Score(sheet); !errors.Is(err, magnetar.ErrFormatConfig) {
			t.Errorf("Score() = %v, want ErrFormatConfig", err)
		}
	})
}
