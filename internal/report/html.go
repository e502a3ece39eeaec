package report

import (
	"fmt"
	"html/template"
	"io"
	"strings"

	"github.com/oshokin/latmon/internal/domain/alarm"
)

const htmlLayout = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>Alarm summary {{.RunID}}</title>
<style>
body { font-family: sans-serif; }
table { border-collapse: collapse; }
td, th { border: 1px solid #ccc; padding: 2px 6px; }
.CLEAN { background: #c8f0c8; }
.WARNING { background: #ffe6a0; }
.ERROR { background: #f5a0a0; }
.UNDEFINED { background: #ddd; }
</style>
</head>
<body>
<h1 class="{{.Status}}">Alarm summary: {{.Status}}</h1>
<p>Run {{.RunID}} at {{.Timestamp}}. {{.Total}} alarms:
{{.Clean}} clean, {{.Warning}} warning, {{.Error}} error, {{.Undefined}} undefined.</p>
<table>
<tr><th>Plot</th><th>Algorithm</th><th>Set</th><th>Parameters</th><th>Output</th><th>Limits</th><th>Status</th><th>Rollup</th><th>Notes</th></tr>
{{range .Rows}}<tr class="{{.Status}}">
<td><a href="#{{.Anchor}}">{{.Plot}}</a></td><td>{{.Algorithm}}</td><td>{{.Set}}</td><td>{{.Parameters}}</td>
<td>{{.Output}}</td><td>{{.Limits}}</td><td>{{.Status}}</td><td>{{.Rollup}}</td><td>{{.Notes}}</td>
</tr>
{{end}}</table>
{{range .Plots}}<h2 id="{{.Anchor}}">{{.Name}}</h2>
{{if .Image}}<img src="{{.Image}}" alt="{{.Name}}">{{end}}
<pre>{{.Text}}</pre>
{{end}}</body>
</html>
`

var htmlTemplate = template.Must(template.New("summary").Parse(htmlLayout))

// htmlPage is the data of the HTML report.
type htmlPage struct {
	// RunID identifies the pass.
	RunID string
	// Timestamp is the pass start time.
	Timestamp string
	// Status is the overall rollup.
	Status string
	// Total is the number of results.
	Total int
	// Clean counts clean results.
	Clean int
	// Warning counts warning results.
	Warning int
	// Error counts error results.
	Error int
	// Undefined counts undefined results.
	Undefined int
	// Rows are the table rows.
	Rows []htmlRow
	// Plots are the per-plot sections.
	Plots []htmlPlot
}

// htmlRow is one result in the table.
type htmlRow struct {
	// Plot is the plot name.
	Plot string
	// Anchor links to the plot section.
	Anchor string
	// Algorithm is the algorithm name.
	Algorithm string
	// Set is the alarm set name.
	Set string
	// Parameters are the rendered parameters.
	Parameters string
	// Output is the value with its error.
	Output string
	// Limits are the rendered limits.
	Limits string
	// Status is the output status.
	Status string
	// Rollup is the rollup status.
	Rollup string
	// Notes carries the diagnostic or undefined reason.
	Notes string
}

// htmlPlot is one plot section.
type htmlPlot struct {
	// Name is the plot name.
	Name string
	// Anchor is the section id.
	Anchor string
	// Image is the relative image path, if rendered.
	Image string
	// Text holds the text summaries of the plot's results.
	Text string
}

// WriteHTML writes the HTML report of every result whose status is at least
// threshold. images maps plot names to image paths, as RenderPlots returns.
func WriteHTML(w io.Writer, s *alarm.Summary, threshold alarm.Status, images map[string]string) error {
	counts := s.Counts()
	page := htmlPage{
		RunID:     s.RunID,
		Timestamp: s.Timestamp.Format(TimeLayout),
		Status:    s.Status().String(),
		Total:     len(s.Results),
		Clean:     counts[alarm.StatusClean],
		Warning:   counts[alarm.StatusWarning],
		Error:     counts[alarm.StatusError],
		Undefined: counts[alarm.StatusUndefined],
	}

	index := make(map[string]int)

	for _, r := range s.Filter(threshold) {
		anchor := strings.TrimSuffix(PlotFileName(r.Alarm), ".png")

		page.Rows = append(page.Rows, htmlRow{
			Plot:       r.Alarm,
			Anchor:     anchor,
			Algorithm:  r.Algorithm,
			Set:        r.Set,
			Parameters: FormatParameters(r.Parameters),
			Output:     formatValue(r.Output),
			Limits:     r.Limits.String(),
			Status:     r.Status().String(),
			Rollup:     r.Rollup.String(),
			Notes:      notes(&r),
		})

		pos, ok := index[r.Alarm]
		if !ok {
			pos = len(page.Plots)
			index[r.Alarm] = pos
			page.Plots = append(page.Plots, htmlPlot{Name: r.Alarm, Anchor: anchor, Image: images[r.Alarm]})
		}

		page.Plots[pos].Text += ResultText(&r) + "\n"
	}

	if err := htmlTemplate.Execute(w, page); err != nil {
		return fmt.Errorf("write HTML report: %w", err)
	}

	return nil
}

// formatValue renders the value and its error bar.
func formatValue(o alarm.Output) string {
	text := alarm.FormatNumber(o.Value())
	if bar, ok := o.Error(); ok {
		text += " +/- " + alarm.FormatNumber(bar)
	}

	return text
}

// notes picks the most useful remark for the table.
func notes(r *alarm.Result) string {
	switch {
	case r.Diagnostic != "":
		return r.Diagnostic
	case r.Output.Reason() != "":
		return r.Output.Reason()
	default:
		return strings.Join(r.Warnings, "; ")
	}
}
