package magnetar

import (
	"regexp"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/gosimple/slug"
)

// Scoreboard visibility modes. They are carried on the assignment so other
// systems can enforce them; this engine only stores the value.
const (
	ScoreboardVisible        = "visible"
	ScoreboardHiddenUntilEnd = "hidden-until-end"
	ScoreboardParticipant    = "participant"
)

const DefaultPointsPrecision = 3

type Assignment struct {
	ID        int       `json:"id"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`

	// Key is the URL-safe unique identifier, [a-z0-9]+ only.
	Key  string `json:"key"`
	Name string `json:"name"`

	StartTime time.Time `json:"start_time" db:"start_time"`
	EndTime   time.Time `json:"end_time" db:"end_time"`

	// TimeLimit is the optional per-participant window length.
	// nil = participants keep the full assignment window.
	TimeLimit *time.Duration `json:"time_limit"`

	Rated         bool `json:"rated"`
	RateAll       bool `json:"rate_all" db:"rate_all"`
	RatingFloor   *int `json:"rating_floor" db:"rating_floor"`
	RatingCeiling *int `json:"rating_ceiling" db:"rating_ceiling"`

	ScoreboardVisibility string `json:"scoreboard_visibility" db:"scoreboard_visibility"`

	FormatName   string         `json:"format_name" db:"format_name"`
	FormatConfig map[string]any `json:"format_config" db:"format_config"`

	// LabelScript optionally overrides the format's problem labels with a
	// JavaScript function of the zero-based problem index.
	LabelScript string `json:"label_script" db:"label_script"`

	PointsPrecision int `json:"points_precision" db:"points_precision"`

	// AccessCode gates live joining when non-empty. Spectators and
	// virtual participants are not asked for it.
	AccessCode string `json:"access_code" db:"access_code"`

	UserCount int `json:"user_count" db:"user_count"`

	Tags []*AssignmentTag `json:"tags,omitempty"`
}

var keyRegexp = regexp.MustCompile("^[a-z0-9]+$")

var nameValidation = []validation.Rule{validation.Required, validation.Length(1, 128)}

// Validate checks the pure field invariants. Format and label script
// validation need the scoring registry and live in the service layer.
func (a *Assignment) Validate() error {
	if !a.StartTime.Before(a.EndTime) {
		return ErrInvalidWindow
	}
	if a.TimeLimit != nil && *a.TimeLimit <= 0 {
		return ErrInvalidWindow
	}
	if a.RatingFloor != nil && a.RatingCeiling != nil && *a.RatingFloor > *a.RatingCeiling {
		return Statusf(400, "Rating floor must not exceed rating ceiling")
	}
	if err := validation.ValidateStruct(a,
		validation.Field(&a.Key, validation.Required, validation.Length(1, 50), validation.Match(keyRegexp)),
		validation.Field(&a.Name, nameValidation...),
		validation.Field(&a.PointsPrecision, validation.Min(0), validation.Max(10)),
		validation.Field(&a.ScoreboardVisibility, validation.In(ScoreboardVisible, ScoreboardHiddenUntilEnd, ScoreboardParticipant)),
	); err != nil {
		return Statusf(400, "Invalid assignment: %v", err)
	}
	return nil
}

// Ended reports whether the assignment window itself is over. Like
// participation windows, the end instant still belongs to the window.
// Individual participants may end earlier, see Participation.Ended.
func (a *Assignment) Ended(now time.Time) bool {
	return a.EndTime.Before(now)
}

// Duration is the full assignment window length, the basis for virtual
// participation windows.
func (a *Assignment) Duration() time.Duration {
	return a.EndTime.Sub(a.StartTime)
}

// SuggestKey derives a valid assignment key from a display name.
func SuggestKey(name string) string {
	return strings.ReplaceAll(slug.Make(name), "-", "")
}

type AssignmentFilter struct {
	ID  *int    `json:"id"`
	Key *string `json:"key"`

	Rated *bool `json:"rated"`

	// EndTimeFrom/EndTimeBefore select assignments whose end time lies in
	// [EndTimeFrom, EndTimeBefore). The rating scheduler replays on this.
	EndTimeFrom   *time.Time `json:"end_time_from"`
	EndTimeBefore *time.Time `json:"end_time_before"`

	Tag *int `json:"tag"`

	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

type AssignmentUpdate struct {
	Name *string `json:"name"`

	StartTime *time.Time     `json:"start_time"`
	EndTime   *time.Time     `json:"end_time"`
	TimeLimit *time.Duration `json:"time_limit"`

	// ClearTimeLimit drops the per-participant limit. Wins over TimeLimit.
	ClearTimeLimit bool `json:"clear_time_limit"`

	Rated         *bool `json:"rated"`
	RateAll       *bool `json:"rate_all"`
	RatingFloor   *int  `json:"rating_floor"`
	RatingCeiling *int  `json:"rating_ceiling"`

	ScoreboardVisibility *string `json:"scoreboard_visibility"`

	FormatName   *string        `json:"format_name"`
	FormatConfig map[string]any `json:"format_config"`

	LabelScript *string `json:"label_script"`

	PointsPrecision *int    `json:"points_precision"`
	AccessCode      *string `json:"access_code"`
}

// AssignmentProblem binds a problem into an assignment with its scoring
// parameters. Order is the zero-based position used for labels.
type AssignmentProblem struct {
	ID           int `json:"id"`
	AssignmentID int `json:"assignment_id" db:"assignment_id"`
	ProblemID    int `json:"problem_id" db:"problem_id"`

	Points    int  `json:"points"`
	Partial   bool `json:"partial"`
	Pretested bool `json:"pretested"`

	Order int `json:"order" db:"ord"`

	// MaxSubmissions caps attempts per participant. nil = unlimited.
	MaxSubmissions *int `json:"max_submissions" db:"max_submissions"`
}

func (pb *AssignmentProblem) Validate() error {
	if pb.MaxSubmissions != nil && *pb.MaxSubmissions <= 0 {
		return Statusf(400, "Submission limit must be positive")
	}
	return validation.ValidateStruct(pb,
		validation.Field(&pb.Points, validation.Min(0)),
		validation.Field(&pb.Order, validation.Min(0)),
	)
}

type AssignmentProblemUpdate struct {
	Points    *int  `json:"points"`
	Partial   *bool `json:"partial"`
	Pretested *bool `json:"pretested"`

	Order          *int `json:"order"`
	MaxSubmissions *int `json:"max_submissions"`
}
