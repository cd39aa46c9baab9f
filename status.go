package magnetar

import (
	"errors"
	"fmt"
	"log/slog"
)

var (
	ErrNoUpdates       = Statusf(400, "No updates specified")
	ErrMissingRequired = Statusf(400, "Missing required fields")

	ErrNotFound = Statusf(404, "Not found")

	// ErrInvalidWindow rejects assignments whose start time is not
	// strictly before their end time.
	ErrInvalidWindow = Statusf(400, "Assignment window is invalid")

	// ErrFormatConfig rejects unknown scoring formats and format
	// configurations the format does not accept.
	ErrFormatConfig = Statusf(400, "Invalid scoring format configuration")

	// ErrLabelScript rejects problem label scripts that do not compile,
	// throw, or return a non-string label.
	ErrLabelScript = Statusf(400, "Invalid problem label script")
)

var _ error = &statusError{}

type statusError struct {
	Code int
	Text string

	WrappedError error
}

func (s *statusError) LogValue() slog.Value {
	if s == nil {
		return slog.Value{}
	}
	return slog.StringValue(s.Text)
}

func (s *statusError) Error() string {
	return s.Text
}

func (s *statusError) Unwrap() error {
	return s.WrappedError
}

func (s *statusError) Is(target error) bool {
	if err, ok := target.(*statusError); ok {
		return err.Text == s.Text
	}
	return false
}

func Statusf(status int, format string, args ...any) error {
	return &statusError{Code: status, Text: fmt.Sprintf(format, args...)}
}

// WrapError attaches context text to err while keeping its status code and
// errors.Is identity.
func WrapError(err error, format string, args ...any) error {
	return &statusError{Code: ErrorCode(err), Text: fmt.Sprintf(format, args...), WrappedError: err}
}

func ErrorCode(err error) int {
	if err == nil {
		return 200
	}
	var err2 *statusError
	if errors.As(err, &err2) {
		return err2.Code
	}
	return 500
}
