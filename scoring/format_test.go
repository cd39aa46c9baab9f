package scoring

import (
	"errors"
	"slices"
	"testing"

	"github.com/MagnetarProjects/magnetar"
)

func TestFormatRegistry(t *testing.T) {
	t.Run("builtin formats registered", func(t *testing.T) {
		names := Names()
		if !slices.IsSorted(names) {
			t.Errorf("Names() not sorted: %v", names)
		}
		for _, want := range []string{"icpc", "points"} {
			if !slices.Contains(names, want) {
				t.Errorf("format %q not registered, have %v", want, names)
			}
		}
	})

	t.Run("unknown format is a config error", func(t *testing.T) {
		if _, err := Get("haskell"); !errors.Is(err, magnetar.ErrFormatConfig) {
			t.Errorf("Get gave %v, want ErrFormatConfig", err)
		}
	})

	t.Run("validate checks name then config", func(t *testing.T) {
		if err := Validate("points", nil); err != nil {
			t.Errorf("points rejected empty config: %v", err)
		}
		if err := Validate("points", map[string]any{"penalty": 20}); !errors.Is(err, magnetar.ErrFormatConfig) {
			t.Errorf("points accepted stray config key: %v", err)
		}
		if err := Validate("icpc", map[string]any{"penalty": 10}); err != nil {
			t.Errorf("icpc rejected penalty config: %v", err)
		}
		if err := Validate("missing", nil); !errors.Is(err, magnetar.ErrFormatConfig) {
			t.Errorf("Validate gave %v for unknown format, want ErrFormatConfig", err)
		}
	})
}
