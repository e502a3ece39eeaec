package report

import (
	"fmt"
	"image/color"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strconv"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/oshokin/latmon/internal/algorithm"
	"github.com/oshokin/latmon/internal/domain/alarm"
	"github.com/oshokin/latmon/internal/histogram"
)

// PlotDir is the report subdirectory holding plot images.
const PlotDir = "plots"

const (
	plotWidth  = 6 * vg.Inch
	plotHeight = 4 * vg.Inch
)

var (
	barColor    = color.RGBA{R: 0x4c, G: 0x72, B: 0xb0, A: 0xff}
	statusColor = map[alarm.Status]color.Color{
		alarm.StatusClean:     color.RGBA{G: 0x99, A: 0xff},
		alarm.StatusWarning:   color.RGBA{R: 0xe6, G: 0x9f, A: 0xff},
		alarm.StatusError:     color.RGBA{R: 0xd5, A: 0xff},
		alarm.StatusUndefined: color.Gray{Y: 0x80},
	}

	unsafeFileChars = regexp.MustCompile(`[^A-Za-z0-9_.-]+`)
)

// RenderPlot draws the histogram bars over the native range as a PNG and
// marks the user range (min/max parameters) of every result, colored by
// status.
func RenderPlot(w io.Writer, h *histogram.Histogram, results []alarm.Result) error {
	p := plot.New()
	p.Title.Text = h.Name()
	p.X.Label.Text = "x"
	p.Y.Label.Text = "entries"
	p.Add(plotter.NewGrid())

	width := h.BinWidth()
	bins := make([]plotter.HistogramBin, 0, h.NumBins())
	top := 0.0

	for i := 1; i <= h.NumBins(); i++ {
		low := h.BinLowEdge(i)
		content := h.BinContent(i)
		top = max(top, content)

		bins = append(bins, plotter.HistogramBin{Min: low, Max: low + width, Weight: content})
	}

	bars := &plotter.Histogram{
		Bins:      bins,
		Width:     width,
		FillColor: barColor,
		LineStyle: plotter.DefaultLineStyle,
	}
	p.Add(bars)

	xmin, xmax := h.NativeRange()
	p.X.Min, p.X.Max = xmin, xmax

	for i := range results {
		if err := addRangeMarkers(p, &results[i], top); err != nil {
			return err
		}
	}

	writer, err := p.WriterTo(plotWidth, plotHeight, "png")
	if err != nil {
		return fmt.Errorf("render plot %s: %w", h.Name(), err)
	}

	if _, err = writer.WriteTo(w); err != nil {
		return fmt.Errorf("write plot %s: %w", h.Name(), err)
	}

	return nil
}

// addRangeMarkers draws vertical lines at the user range of a result.
func addRangeMarkers(p *plot.Plot, r *alarm.Result, top float64) error {
	for _, param := range r.Parameters {
		if param.Name != algorithm.ParamMin && param.Name != algorithm.ParamMax {
			continue
		}

		x, err := strconv.ParseFloat(param.Value, 64)
		if err != nil {
			continue
		}

		line, err := plotter.NewLine(plotter.XYs{{X: x, Y: 0}, {X: x, Y: top}})
		if err != nil {
			return fmt.Errorf("draw range marker: %w", err)
		}

		line.Color = statusColor[r.Status()]
		line.Dashes = []vg.Length{vg.Points(4), vg.Points(2)} //nolint:mnd // dash pattern

		p.Add(line)
		p.Legend.Add(fmt.Sprintf("%s %s", r.Algorithm, param.Name), line)
	}

	return nil
}

// PlotFileName returns the image file name of a plot.
func PlotFileName(name string) string {
	return unsafeFileChars.ReplaceAllString(name, "_") + ".png"
}

// RenderPlots writes one PNG per plot of the summary into dir/plots and
// returns the image paths relative to dir, keyed by plot name. Plots that
// are not in the catalog are skipped.
func RenderPlots(dir string, catalog *histogram.Catalog, s *alarm.Summary) (map[string]string, error) {
	byPlot := make(map[string][]alarm.Result)
	for _, r := range s.Results {
		byPlot[r.Alarm] = append(byPlot[r.Alarm], r)
	}

	if err := os.MkdirAll(filepath.Join(dir, PlotDir), 0o750); err != nil { //nolint:mnd // directory permissions
		return nil, fmt.Errorf("create plot directory: %w", err)
	}

	paths := make(map[string]string, len(byPlot))

	for name, results := range byPlot {
		h, ok := catalog.Get(name)
		if !ok {
			continue
		}

		rel := filepath.Join(PlotDir, PlotFileName(name))
		if err := renderPlotFile(filepath.Join(dir, rel), h, results); err != nil {
			return nil, err
		}

		paths[name] = filepath.ToSlash(rel)
	}

	return paths, nil
}

// renderPlotFile writes one plot to path.
func renderPlotFile(path string, h *histogram.Histogram, results []alarm.Result) (err error) {
	f, err := os.Create(filepath.Clean(path))
	if err != nil {
		return fmt.Errorf("create plot file: %w", err)
	}

	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("close plot file: %w", closeErr)
		}
	}()

	return RenderPlot(f, h, results)
}
