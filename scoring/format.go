// Package scoring turns a participation's scoresheet into its standings row
// (score, cumulative time, tiebreaker). Formats are pure: they never touch
// the clock or the database, so recomputing is idempotent by construction.
package scoring

import (
	"encoding/json"
	"slices"
	"sync"

	"github.com/MagnetarProjects/magnetar"
	"github.com/shopspring/decimal"
)

// Outcome is the result of scoring one participation.
type Outcome struct {
	Score      decimal.Decimal `json:"score"`
	Cumtime    int64           `json:"cumtime"`
	Tiebreaker float64         `json:"tiebreaker"`

	// FormatData is persisted on the participation and fed back on the
	// next run. Keyed by assignment problem ID.
	FormatData json.RawMessage `json:"format_data"`
}

// Format is a scoring strategy. Implementations must be stateless and
// deterministic: equal scoresheets yield equal outcomes, and every outcome
// score must be strictly greater than magnetar.DisqualifiedScore.
type Format interface {
	Name() string

	// ValidateConfig rejects configurations the format cannot run with.
	// nil/empty config always means defaults and must be accepted.
	ValidateConfig(config map[string]any) error

	// Label names the problem at the zero-based index.
	Label(index int) string

	Score(sheet *magnetar.Scoresheet) (*Outcome, error)
}

var (
	formatsMu sync.RWMutex
	formats   = make(map[string]Format)
)

// Register makes a format available by name. Formats register themselves
// from init, like database drivers; duplicate names panic.
func Register(f Format) {
	formatsMu.Lock()
	defer formatsMu.Unlock()
	if _, ok := formats[f.Name()]; ok {
		panic("scoring: Register called twice for format " + f.Name())
	}
	formats[f.Name()] = f
}

// Get resolves a format name. Unknown names are a configuration error.
func Get(name string) (Format, error) {
	formatsMu.RLock()
	defer formatsMu.RUnlock()
	f, ok := formats[name]
	if !ok {
		return nil, magnetar.WrapError(magnetar.ErrFormatConfig, "Unknown scoring format %q", name)
	}
	return f, nil
}

// Names lists the registered formats in lexical order.
func Names() []string {
	formatsMu.RLock()
	defer formatsMu.RUnlock()
	names := make([]string, 0, len(formats))
	for name := range formats {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Validate checks a (name, config) pair as stored on an assignment.
func Validate(name string, config map[string]any) error {
	f, err := Get(name)
	if err != nil {
		return err
	}
	return f.ValidateConfig(config)
}
