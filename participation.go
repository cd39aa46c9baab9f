package magnetar

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// Virtual participation markers. Anything >= 1 is the nth virtual attempt.
const (
	ParticipationLive     = 0
	ParticipationSpectate = -1
)

// DisqualifiedScore is stored as the score of disqualified participations so
// they sink to the bottom of every scoreboard. Scoring formats must produce
// scores strictly greater than it; the aggregator enforces this.
var DisqualifiedScore = decimal.NewFromInt(-9999)

// Participation is one user's attempt at an assignment: the live run, a
// spectator entry or a numbered virtual rerun.
type Participation struct {
	ID           int `json:"id"`
	AssignmentID int `json:"assignment_id" db:"assignment_id"`
	UserID       int `json:"user_id" db:"user_id"`

	Virtual int `json:"virtual"`

	// RealStart is the wall-clock moment the participation was created.
	// Only virtual windows derive from it; live windows derive from it
	// solely when the assignment carries a time limit.
	RealStart time.Time `json:"real_start" db:"real_start"`

	Score        decimal.Decimal `json:"score"`
	Cumtime      int64           `json:"cumtime"`
	Tiebreaker   float64         `json:"tiebreaker"`
	Disqualified bool            `json:"disqualified" db:"disqualified"`

	// FormatData is opaque per-format state (first-solve times, penalty
	// counts, ...) written back by the scoring format.
	FormatData json.RawMessage `json:"format_data" db:"format_data"`
}

func (p *Participation) Live() bool {
	return p.Virtual == ParticipationLive
}

func (p *Participation) Spectator() bool {
	return p.Virtual == ParticipationSpectate
}

// EffectiveStart resolves when this participation's personal window opens.
// Spectators and unlimited live runs share the assignment start; virtual
// runs and time-limited live runs are clocked from their own real start.
func (p *Participation) EffectiveStart(a *Assignment) time.Time {
	if p.Spectator() {
		return a.StartTime
	}
	if p.Virtual >= 1 || a.TimeLimit != nil {
		return p.RealStart
	}
	return a.StartTime
}

// EffectiveEnd resolves when this participation's personal window closes.
//
//   - live without a time limit, and spectators: the assignment end;
//   - live with limit L: RealStart+L, but never past the assignment end;
//   - virtual without a limit: RealStart plus the assignment duration;
//   - virtual with limit L: RealStart+L.
func (p *Participation) EffectiveEnd(a *Assignment) time.Time {
	switch {
	case p.Virtual >= 1:
		if a.TimeLimit != nil {
			return p.RealStart.Add(*a.TimeLimit)
		}
		return p.RealStart.Add(a.Duration())
	case p.Spectator():
		return a.EndTime
	default:
		if a.TimeLimit != nil {
			if end := p.RealStart.Add(*a.TimeLimit); end.Before(a.EndTime) {
				return end
			}
		}
		return a.EndTime
	}
}

// Ended reports whether the personal window is over. The boundary instant
// still belongs to the window: a participation ends strictly after its
// effective end passes.
func (p *Participation) Ended(a *Assignment, now time.Time) bool {
	return p.EffectiveEnd(a).Before(now)
}

// TimeRemaining is the time left in the personal window. The second return
// is false once the window has ended, so callers can tell "no time left"
// apart from the zero duration of a window ending exactly now.
func (p *Participation) TimeRemaining(a *Assignment, now time.Time) (time.Duration, bool) {
	end := p.EffectiveEnd(a)
	if end.Before(now) {
		return 0, false
	}
	return end.Sub(now), true
}

type ParticipationFilter struct {
	ID           *int `json:"id"`
	AssignmentID *int `json:"assignment_id"`
	UserID       *int `json:"user_id"`

	Virtual *int `json:"virtual"`

	// LiveOnly narrows to Virtual == 0 rows, the only ones that rate.
	LiveOnly bool `json:"live_only"`
	// Ranked narrows to Virtual >= 0 rows, i.e. everything a scoreboard
	// shows. Spectators are never ranked.
	Ranked bool `json:"ranked"`

	Disqualified *bool `json:"disqualified"`

	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

// ParticipationResult is what the aggregator persists after a recompute.
type ParticipationResult struct {
	Score      decimal.Decimal `json:"score"`
	Cumtime    int64           `json:"cumtime"`
	Tiebreaker float64         `json:"tiebreaker"`
	FormatData json.RawMessage `json:"format_data"`
}
