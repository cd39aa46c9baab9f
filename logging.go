package magnetar

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"time"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
	slogmulti "github.com/samber/slog-multi"
	"gopkg.in/natefinch/lumberjack.v2"
)

func logColors(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}

	if os.Getenv("NO_COLOR") != "" {
		return false
	}

	if !isatty.IsTerminal(f.Fd()) {
		return false
	}

	return os.Getenv("TERM") != "dumb"
}

// GetSlogHandler builds the canonical console handler: colored when the
// output is a real terminal, error attributes highlighted, RFC3339 stamps.
func GetSlogHandler(debug bool, out io.Writer) slog.Handler {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}

	return tint.NewHandler(out, &tint.Options{
		AddSource: true,
		Level:     level,
		ReplaceAttr: func(groups []string, attr slog.Attr) slog.Attr {
			if _, ok := attr.Value.Any().(error); attr.Key == "err" || ok {
				return tint.Attr(9, attr)
			}
			return attr
		},
		TimeFormat: time.RFC3339,
		NoColor:    !logColors(out),
	})
}

// InitLogging installs the default logger for the command-line tools:
// the console handler, fanned out to a rotating JSON log file when logDir
// is non-empty.
func InitLogging(debug bool, logDir string) error {
	handler := GetSlogHandler(debug, os.Stderr)
	if logDir != "" {
		if err := os.MkdirAll(logDir, 0755); err != nil {
			return fmt.Errorf("could not create log dir: %w", err)
		}
		level := slog.LevelInfo
		if debug {
			level = slog.LevelDebug
		}
		handler = slogmulti.Fanout(handler, slog.NewJSONHandler(&lumberjack.Logger{
			Filename:   path.Join(logDir, "magnetar.log"),
			MaxSize:    50, // megabytes
			MaxBackups: 4,
		}, &slog.HandlerOptions{AddSource: true, Level: level}))
	}
	slog.SetDefault(slog.New(handler))
	return nil
}
