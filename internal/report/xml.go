package report

import (
	"encoding/xml"
	"fmt"
	"io"

	"github.com/oshokin/latmon/internal/domain/alarm"
)

// xmlSummary is the <alarmSummary> document read by the web tools.
type xmlSummary struct {
	XMLName xml.Name `xml:"alarmSummary"`
	// RunID identifies the pass.
	RunID string `xml:"run_id,attr"`
	// Timestamp is the pass start time.
	Timestamp string `xml:"timestamp,attr"`
	// Status is the overall rollup.
	Status string `xml:"status,attr"`
	// Plots group the results per plot.
	Plots []xmlPlot `xml:"plot"`
}

// xmlPlot groups the alarms that ran on one plot.
type xmlPlot struct {
	// Name is the plot name.
	Name string `xml:"name,attr"`
	// Alarms are the results on the plot.
	Alarms []xmlAlarm `xml:"alarm"`
}

// xmlAlarm is one evaluated alarm.
type xmlAlarm struct {
	// Function is the algorithm name.
	Function string `xml:"function,attr"`
	// Set is the alarm set name.
	Set string `xml:"set,attr"`
	// Status is the output status.
	Status string `xml:"status,attr"`
	// Parameters are the configured parameters.
	Parameters []xmlParameter `xml:"parameter"`
	// Limits are the resolved thresholds.
	Limits xmlLimits `xml:"limits"`
	// Output is the computed value.
	Output string `xml:"output"`
	// Error is the error bar, if any.
	Error string `xml:"error,omitempty"`
	// StatusText repeats the status as an element.
	StatusText string `xml:"status"`
	// Rollup is the status contributed to the overall rollup.
	Rollup string `xml:"rollup"`
	// Details are the auxiliary sub-results.
	Details []xmlDetail `xml:"detail"`
	// Diagnostic explains failures.
	Diagnostic string `xml:"diagnostic,omitempty"`
	// Warnings are non-fatal problems.
	Warnings []string `xml:"warning"`
}

// xmlParameter is a configured parameter.
type xmlParameter struct {
	// Name is the parameter key.
	Name string `xml:"name,attr"`
	// Value is the literal value.
	Value string `xml:"value,attr"`
}

// xmlLimits are the four thresholds.
type xmlLimits struct {
	// ErrorMin is the lower error threshold.
	ErrorMin string `xml:"error_min,attr"`
	// WarningMin is the lower warning threshold.
	WarningMin string `xml:"warning_min,attr"`
	// WarningMax is the upper warning threshold.
	WarningMax string `xml:"warning_max,attr"`
	// ErrorMax is the upper error threshold.
	ErrorMax string `xml:"error_max,attr"`
}

// xmlDetail is a named sub-result.
type xmlDetail struct {
	// Name is the detail name.
	Name string `xml:"name,attr"`
	// Value is the rendered value.
	Value string `xml:",chardata"`
}

// WriteXML writes the XML summary. Plots appear in order of their first
// result, alarms in result order.
func WriteXML(w io.Writer, s *alarm.Summary) error {
	doc := xmlSummary{
		RunID:     s.RunID,
		Timestamp: s.Timestamp.Format(TimeLayout),
		Status:    s.Status().String(),
	}

	index := make(map[string]int)

	for i := range s.Results {
		r := &s.Results[i]

		pos, ok := index[r.Alarm]
		if !ok {
			pos = len(doc.Plots)
			index[r.Alarm] = pos
			doc.Plots = append(doc.Plots, xmlPlot{Name: r.Alarm})
		}

		doc.Plots[pos].Alarms = append(doc.Plots[pos].Alarms, newXMLAlarm(r))
	}

	if _, err := io.WriteString(w, xml.Header); err != nil {
		return fmt.Errorf("write XML summary: %w", err)
	}

	encoder := xml.NewEncoder(w)
	encoder.Indent("", "  ")

	if err := encoder.Encode(doc); err != nil {
		return fmt.Errorf("write XML summary: %w", err)
	}

	if _, err := io.WriteString(w, "\n"); err != nil {
		return fmt.Errorf("write XML summary: %w", err)
	}

	return nil
}

// newXMLAlarm converts a result.
func newXMLAlarm(r *alarm.Result) xmlAlarm {
	out := xmlAlarm{
		Function:   r.Algorithm,
		Set:        r.Set,
		Status:     r.Status().String(),
		StatusText: r.Status().String(),
		Rollup:     r.Rollup.String(),
		Output:     alarm.FormatNumber(r.Output.Value()),
		Diagnostic: r.Diagnostic,
		Warnings:   r.Warnings,
		Limits: xmlLimits{
			ErrorMin:   alarm.FormatNumber(r.Limits.ErrorMin),
			WarningMin: alarm.FormatNumber(r.Limits.WarningMin),
			WarningMax: alarm.FormatNumber(r.Limits.WarningMax),
			ErrorMax:   alarm.FormatNumber(r.Limits.ErrorMax),
		},
	}

	if bar, ok := r.Output.Error(); ok {
		out.Error = alarm.FormatNumber(bar)
	}

	for _, p := range r.Parameters {
		out.Parameters = append(out.Parameters, xmlParameter(p))
	}

	for _, d := range r.Output.Details() {
		out.Details = append(out.Details, xmlDetail{Name: d.Name, Value: alarm.FormatDetail(d.Value)})
	}

	return out
}
