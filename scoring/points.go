package scoring

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/MagnetarProjects/magnetar"
	"github.com/shopspring/decimal"
)

func init() {
	Register(&pointsFormat{})
}

// pointsFormat is the default format: best submission per problem counts,
// cumulative time is the sum of the first-best submission times of every
// problem that scored.
type pointsFormat struct{}

func (*pointsFormat) Name() string { return "points" }

func (*pointsFormat) ValidateConfig(config map[string]any) error {
	for key := range config {
		return magnetar.WrapError(magnetar.ErrFormatConfig, "Points format takes no configuration, got key %q", key)
	}
	return nil
}

func (*pointsFormat) Label(index int) string {
	return strconv.Itoa(index + 1)
}

type pointsCell struct {
	Points decimal.Decimal `json:"points"`
	Time   int64           `json:"time"`
}

func (*pointsFormat) Score(sheet *magnetar.Scoresheet) (*Outcome, error) {
	best := make(map[int]*pointsCell)
	for _, e := range sheet.Entries {
		cell, ok := best[e.ProblemID]
		if !ok || e.Points.GreaterThan(cell.Points) {
			best[e.ProblemID] = &pointsCell{Points: e.Points, Time: sheet.SecondsIntoWindow(e.SubmittedAt)}
		}
	}

	score := decimal.Zero
	var cumtime int64
	data := make(map[string]*pointsCell, len(best))
	for id, cell := range best {
		if cell.Points.IsPositive() {
			cumtime += cell.Time
		}
		score = score.Add(cell.Points)
		data[strconv.Itoa(id)] = cell
	}

	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("couldn't encode format data: %w", err)
	}

	return &Outcome{
		Score:      score.Round(int32(sheet.Assignment.PointsPrecision)),
		Cumtime:    cumtime,
		FormatData: raw,
	}, nil
}
