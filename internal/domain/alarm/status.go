package alarm

import (
	"fmt"
	"strings"
)

// Status is the classification of an alarm output.
type Status int

const (
	// StatusUndefined means the algorithm could not compute a value.
	StatusUndefined Status = iota
	// StatusClean means the value lies within the warning limits.
	StatusClean
	// StatusWarning means the value is outside the warning limits only.
	StatusWarning
	// StatusError means the value is outside the error limits.
	StatusError
)

// String returns the upper-case label used in summaries.
func (s Status) String() string {
	switch s {
	case StatusClean:
		return "CLEAN"
	case StatusWarning:
		return "WARNING"
	case StatusError:
		return "ERROR"
	default:
		return "UNDEFINED"
	}
}

// ParseStatus converts a label (case-insensitive) into a Status.
func ParseStatus(s string) (Status, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "clean":
		return StatusClean, nil
	case "warning", "warn":
		return StatusWarning, nil
	case "error":
		return StatusError, nil
	case "undefined":
		return StatusUndefined, nil
	default:
		return StatusUndefined, fmt.Errorf("%w: unknown status %q", ErrConfiguration, s)
	}
}

// IsClassified reports whether the status is one of CLEAN, WARNING, ERROR.
func (s Status) IsClassified() bool {
	return s == StatusClean || s == StatusWarning || s == StatusError
}

// Severity orders classified statuses: CLEAN=0, WARNING=1, ERROR=2.
// Undefined has no severity and returns -1.
func (s Status) Severity() int {
	switch s {
	case StatusClean:
		return 0
	case StatusWarning:
		return 1
	case StatusError:
		return 2 //nolint:mnd // Highest severity.
	default:
		return -1
	}
}

// AtLeast reports whether s is classified and as severe as threshold.
// An undefined status never satisfies a classified threshold and an
// undefined threshold is only satisfied by an undefined status.
func (s Status) AtLeast(threshold Status) bool {
	if !threshold.IsClassified() {
		return !s.IsClassified()
	}

	return s.IsClassified() && s.Severity() >= threshold.Severity()
}

// Worse returns the more severe of two statuses. Classified statuses always
// win over StatusUndefined, which only survives when both are undefined.
func Worse(a, b Status) Status {
	switch {
	case !a.IsClassified():
		return b
	case !b.IsClassified():
		return a
	case b.Severity() > a.Severity():
		return b
	default:
		return a
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Status) UnmarshalText(text []byte) error {
	parsed, err := ParseStatus(string(text))
	if err != nil {
		return err
	}

	*s = parsed

	return nil
}
