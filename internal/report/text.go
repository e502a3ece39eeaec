package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/oshokin/latmon/internal/domain/alarm"
)

// TimeLayout is the timestamp layout of every report.
const TimeLayout = time.RFC3339

// WriteText writes the per-alarm text summary of every result whose status
// is at least threshold. StatusUndefined selects every result.
func WriteText(w io.Writer, s *alarm.Summary, threshold alarm.Status) error {
	var b strings.Builder

	counts := s.Counts()

	fmt.Fprintf(&b, "Alarm summary %s at %s: %s\n", s.RunID, s.Timestamp.Format(TimeLayout), s.Status())
	fmt.Fprintf(&b, "%d alarms: %d clean, %d warning, %d error, %d undefined\n",
		len(s.Results),
		counts[alarm.StatusClean],
		counts[alarm.StatusWarning],
		counts[alarm.StatusError],
		counts[alarm.StatusUndefined])

	for _, r := range s.Filter(threshold) {
		b.WriteString("\n")
		b.WriteString(ResultText(&r))
	}

	if _, err := io.WriteString(w, b.String()); err != nil {
		return fmt.Errorf("write text summary: %w", err)
	}

	return nil
}

// ResultText renders one result.
func ResultText(r *alarm.Result) string {
	var b strings.Builder

	fmt.Fprintf(&b, "** %s on %s (set %s) **\n", r.Algorithm, r.Alarm, r.Set)

	if len(r.Parameters) > 0 {
		b.WriteString("Parameters  : " + FormatParameters(r.Parameters) + "\n")
	}

	b.WriteString(r.Output.TextSummary(r.Limits))

	if r.Rollup != r.Status() {
		b.WriteString("Rollup      : " + r.Rollup.String() + "\n")
	}

	if r.Diagnostic != "" {
		b.WriteString("Diagnostic  : " + r.Diagnostic + "\n")
	}

	for _, warning := range r.Warnings {
		b.WriteString("Warning     : " + warning + "\n")
	}

	return b.String()
}

// FormatParameters renders parameters as name=value pairs.
func FormatParameters(params []alarm.Parameter) string {
	parts := make([]string, 0, len(params))
	for _, p := range params {
		parts = append(parts, p.Name+"="+p.Value)
	}

	return strings.Join(parts, ", ")
}
