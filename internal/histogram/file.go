package histogram

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ErrInvalidFile is returned for histogram files that cannot be decoded.
var ErrInvalidFile = errors.New("invalid histogram file")

// fileDocument is the on-disk layout of a histogram file.
type fileDocument struct {
	// Histograms lists every stored histogram.
	Histograms []fileHistogram `yaml:"histograms"`
}

// fileHistogram is a single stored histogram.
type fileHistogram struct {
	// Name is the unique histogram name.
	Name string `yaml:"name"`
	// Type is the histogram type, TH1F when empty.
	Type string `yaml:"type,omitempty"`
	// Bins is the number of regular bins.
	Bins int `yaml:"bins"`
	// XMin is the low edge of the axis.
	XMin float64 `yaml:"xmin"`
	// XMax is the high edge of the axis.
	XMax float64 `yaml:"xmax"`
	// Contents holds the regular bin contents.
	Contents []float64 `yaml:"contents"`
	// Underflow is the underflow bin content.
	Underflow float64 `yaml:"underflow,omitempty"`
	// Overflow is the overflow bin content.
	Overflow float64 `yaml:"overflow,omitempty"`
	// Entries is the number of entries; the sum of contents when nil.
	Entries *float64 `yaml:"entries,omitempty"`
}

// LoadFile reads a histogram file from disk into a catalog.
func LoadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read histogram file: %w", err)
	}

	catalog, err := Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return catalog, nil
}

// Decode reads histograms in YAML form.
func Decode(r io.Reader) (*Catalog, error) {
	var doc fileDocument

	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)

	if err := decoder.Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: %w", ErrInvalidFile, err)
	}

	histograms := make([]*Histogram, 0, len(doc.Histograms))

	for _, fh := range doc.Histograms {
		bins := fh.Bins
		if bins == 0 {
			bins = len(fh.Contents)
		}

		if len(fh.Contents) != bins {
			return nil, fmt.Errorf("%w: %s declares %d bins but stores %d", ErrInvalidFile, fh.Name, bins, len(fh.Contents))
		}

		h, err := New(fh.Name, fh.Type, bins, fh.XMin, fh.XMax)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidFile, err)
		}

		h.SetBinContent(0, fh.Underflow)
		h.SetBinContent(bins+1, fh.Overflow)

		for i, c := range fh.Contents {
			h.SetBinContent(i+1, c)
		}

		if fh.Entries != nil {
			h.SetEntries(*fh.Entries)
		}

		histograms = append(histograms, h)
	}

	return NewCatalog(histograms...)
}

// Encode writes the catalog in the format Decode reads.
func Encode(w io.Writer, c *Catalog) error {
	doc := fileDocument{
		Histograms: make([]fileHistogram, 0, c.Len()),
	}

	for _, h := range c.All() {
		n := h.NumBins()
		entries := h.Entries()

		fh := fileHistogram{
			Name:      h.Name(),
			Type:      h.Type(),
			Bins:      n,
			XMin:      h.xmin,
			XMax:      h.xmax,
			Contents:  append([]float64(nil), h.contents[1:n+1]...),
			Underflow: h.contents[0],
			Overflow:  h.contents[n+1],
			Entries:   &entries,
		}

		doc.Histograms = append(doc.Histograms, fh)
	}

	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2) //nolint:mnd // Two-space YAML indentation.

	if err := encoder.Encode(doc); err != nil {
		return fmt.Errorf("encode histograms: %w", err)
	}

	return encoder.Close()
}
