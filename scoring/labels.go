package scoring

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MagnetarProjects/magnetar"
	"github.com/MagnetarProjects/magnetar/internal/config"
	"github.com/Yiling-J/theine-go"
	"github.com/dop251/goja"
)

var labelScriptTimeout = config.GenFlag[int](
	"scoring.label_script.timeout_ms", 200,
	"Maximum label script runtime (milliseconds)",
)

// ScriptLabeler runs per-assignment JavaScript label overrides. A script
// must evaluate to a function of the zero-based problem index returning a
// string; anything else is magnetar.ErrLabelScript.
//
// Compiled programs are cached by source text, execution always gets a
// fresh VM.
type ScriptLabeler struct {
	programs *theine.LoadingCache[string, *goja.Program]
}

func NewScriptLabeler() (*ScriptLabeler, error) {
	cache, err := theine.NewBuilder[string, *goja.Program](64).BuildWithLoader(
		func(ctx context.Context, src string) (theine.Loaded[*goja.Program], error) {
			prog, err := goja.Compile("label_script.js", src, true)
			if err != nil {
				return theine.Loaded[*goja.Program]{}, magnetar.WrapError(magnetar.ErrLabelScript, "Label script doesn't compile: %v", err)
			}
			return theine.Loaded[*goja.Program]{Value: prog, Cost: 1, TTL: 2 * time.Hour}, nil
		})
	if err != nil {
		return nil, fmt.Errorf("could not build label script cache: %w", err)
	}
	return &ScriptLabeler{programs: cache}, nil
}

func (sl *ScriptLabeler) Label(ctx context.Context, script string, index int) (string, error) {
	prog, err := sl.programs.Get(ctx, script)
	if err != nil {
		return "", err
	}

	vm := goja.New()
	timer := time.AfterFunc(time.Duration(labelScriptTimeout.Value())*time.Millisecond, func() {
		vm.Interrupt("label script timed out")
	})
	defer timer.Stop()

	val, err := vm.RunProgram(prog)
	if err != nil {
		return "", scriptError(err)
	}
	fn, ok := goja.AssertFunction(val)
	if !ok {
		return "", magnetar.WrapError(magnetar.ErrLabelScript, "Label script must evaluate to a function")
	}

	res, err := fn(goja.Undefined(), vm.ToValue(index))
	if err != nil {
		return "", scriptError(err)
	}
	label, ok := res.Export().(string)
	if !ok {
		return "", magnetar.WrapError(magnetar.ErrLabelScript, "Label script must return a string")
	}
	return label, nil
}

func scriptError(err error) error {
	var exception *goja.Exception
	if errors.As(err, &exception) {
		if val := exception.Value(); val != nil {
			return magnetar.WrapError(magnetar.ErrLabelScript, "Label script: %s", val.String())
		}
	}
	return magnetar.WrapError(magnetar.ErrLabelScript, "Label script: %v", err)
}
