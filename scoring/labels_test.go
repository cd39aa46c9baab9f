package scoring

import (
	"context"
	"errors"
	"testing"

	"github.com/MagnetarProjects/magnetar"
)

func TestScriptLabeler(t *testing.T) {
	labeler, err := NewScriptLabeler()
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	t.Run("arrow function", func(t *testing.T) {
		got, err := labeler.Label(ctx, `n => "P" + (n + 1)`, 0)
		if err != nil {
			t.Fatal(err)
		}
		if got != "P1" {
			t.Errorf("label = %q, want %q", got, "P1")
		}
	})

	t.Run("parenthesized function expression", func(t *testing.T) {
		got, err := labeler.Label(ctx, `(function(n) { return String.fromCharCode(65 + n); })`, 2)
		if err != nil {
			t.Fatal(err)
		}
		if got != "C" {
			t.Errorf("label = %q, want %q", got, "C")
		}
	})

	badScripts := map[string]string{
		"does not compile":     `n => {`,
		"not a function":       `"just a string"`,
		"returns a number":     `n => n + 1`,
		"throws":               `n => { throw new Error("nope"); }`,
		"loops forever":        `n => { while (true) {} }`,
		"function declaration": `function label(n) { return "x"; }`,
	}
	for name, script := range badScripts {
		t.Run(name, func(t *testing.T) {
			_, err := labeler.Label(ctx, script, 0)
			if !errors.Is(err, magnetar.ErrLabelScript) {
				t.Errorf("Label() = %v, want ErrLabelScript", err)
			}
		})
	}

	t.Run("compiled program is reused", func(t *testing.T) {
		const script = `n => "" + n`
		if _, err := labeler.Label(ctx, script, 1); err != nil {
			t.Fatal(err)
		}
		got, err := labeler.Label(ctx, script, 7)
		if err != nil {
			t.Fatal(err)
		}
		if got != "7" {
			t.Errorf("label = %q, want %q", got, "7")
		}
	})
}
