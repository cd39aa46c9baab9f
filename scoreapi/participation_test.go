package scoreapi

import (
	"encoding/json"
	"testing"

	"github.com/MagnetarProjects/magnetar"
	"github.com/MagnetarProjects/magnetar/scoring"
	"github.com/shopspring/decimal"
)

func TestResultFromOutcome(t *testing.T) {
	outcome := &scoring.Outcome{
		Score:      decimal.NewFromInt(120),
		Cumtime:    4520,
		Tiebreaker: 300,
		FormatData: json.RawMessage(`{"1":{"points":"120","time":300}}`),
	}

	t.Run("clean row passes through", func(t *testing.T) {
		res := resultFromOutcome(outcome, false)
		if !res.Score.Equal(outcome.Score) || res.Cumtime != outcome.Cumtime || res.Tiebreaker != outcome.Tiebreaker {
			t.Errorf("outcome changed on the way through: %+v", res)
		}
	})

	t.Run("disqualification masks only the score", func(t *testing.T) {
		res := resultFromOutcome(outcome, true)
		if !res.Score.Equal(magnetar.DisqualifiedScore) {
			t.Errorf("disqualified score is %s, want the sentinel", res.Score)
		}
		if res.Cumtime != outcome.Cumtime || res.Tiebreaker != outcome.Tiebreaker || string(res.FormatData) != string(outcome.FormatData) {
			t.Errorf("disqualification touched more than the score: %+v", res)
		}
	})

	t.Run("lifting the flag restores the real score", func(t *testing.T) {
		masked := resultFromOutcome(outcome, true)
		restored := resultFromOutcome(outcome, false)
		if restored.Score.Equal(masked.Score) {
			t.Fatal("restored score still carries the sentinel")
		}
		if !restored.Score.Equal(outcome.Score) {
			t.Errorf("restored score is %s, want %s", restored.Score, outcome.Score)
		}
	})
}
