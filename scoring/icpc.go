package scoring

import (
	"encoding/json"
	"fmt"
	"math"
	"slices"
	"strconv"

	"github.com/MagnetarProjects/magnetar"
	"github.com/shopspring/decimal"
)

func init() {
	Register(&icpcFormat{})
}

// icpcFormat scores like an ICPC-style round: the first submission reaching
// a problem's best result counts, earlier failed attempts cost penalty
// minutes, and the time of the last solve breaks remaining ties.
type icpcFormat struct{}

const defaultICPCPenalty = 20 // minutes per failed attempt

func (*icpcFormat) Name() string { return "icpc" }

func (*icpcFormat) ValidateConfig(config map[string]any) error {
	_, err := icpcPenalty(config)
	return err
}

func icpcPenalty(config map[string]any) (int64, error) {
	penalty := int64(defaultICPCPenalty)
	for key, val := range config {
		if key != "penalty" {
			return 0, magnetar.WrapError(magnetar.ErrFormatConfig, "Unknown ICPC config key %q", key)
		}
		switch v := val.(type) {
		case int:
			penalty = int64(v)
		case int64:
			penalty = v
		case float64:
			// JSON numbers arrive as float64
			if v != math.Trunc(v) {
				return 0, magnetar.WrapError(magnetar.ErrFormatConfig, "ICPC penalty must be a whole number of minutes")
			}
			penalty = int64(v)
		case json.Number:
			p, err := v.Int64()
			if err != nil {
				return 0, magnetar.WrapError(magnetar.ErrFormatConfig, "ICPC penalty must be a whole number of minutes")
			}
			penalty = p
		default:
			return 0, magnetar.WrapError(magnetar.ErrFormatConfig, "ICPC penalty must be a number, got %T", val)
		}
		if penalty < 0 {
			return 0, magnetar.WrapError(magnetar.ErrFormatConfig, "ICPC penalty must not be negative")
		}
	}
	return penalty, nil
}

func (*icpcFormat) Label(index int) string {
	index++
	var buf []byte
	for index > 0 {
		buf = append(buf, byte('A'+(index-1)%26))
		index = (index - 1) / 26
	}
	slices.Reverse(buf)
	return string(buf)
}

type icpcCell struct {
	Points  decimal.Decimal `json:"points"`
	Time    int64           `json:"time"`
	Penalty int             `json:"penalty"`
}

func (*icpcFormat) Score(sheet *magnetar.Scoresheet) (*Outcome, error) {
	penaltyMin, err := icpcPenalty(sheet.Assignment.FormatConfig)
	if err != nil {
		return nil, err
	}

	type state struct {
		best        decimal.Decimal
		bestTime    int64
		attempts    int // counted attempts overall
		wrongBefore int // counted attempts before the first best one
		scored      bool
	}
	states := make(map[int]*state)
	for _, e := range sheet.Entries {
		st, ok := states[e.ProblemID]
		if !ok {
			st = &state{best: decimal.Zero}
			states[e.ProblemID] = st
		}
		// CE and IE don't exist as far as penalties are concerned
		if !e.Counted() {
			continue
		}
		if e.Points.GreaterThan(st.best) {
			st.best = e.Points
			st.bestTime = sheet.SecondsIntoWindow(e.SubmittedAt)
			st.wrongBefore = st.attempts
			st.scored = true
		}
		st.attempts++
	}

	score := decimal.Zero
	var cumtime, penalty, last int64
	data := make(map[string]*icpcCell, len(states))
	for id, st := range states {
		cell := &icpcCell{Points: st.best, Time: st.bestTime}
		if st.scored {
			cell.Penalty = st.wrongBefore
			penalty += int64(st.wrongBefore) * penaltyMin * 60
			cumtime += st.bestTime
			last = max(last, st.bestTime)
		} else {
			// Unsolved problems still display their attempt count
			cell.Penalty = st.attempts
		}
		score = score.Add(st.best)
		data[strconv.Itoa(id)] = cell
	}

	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("couldn't encode format data: %w", err)
	}

	return &Outcome{
		Score:      score.Round(int32(sheet.Assignment.PointsPrecision)),
		Cumtime:    cumtime + penalty,
		Tiebreaker: float64(last),
		FormatData: raw,
	}, nil
}
