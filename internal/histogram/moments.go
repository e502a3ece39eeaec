package histogram

import (
	"fmt"

	"gonum.org/v1/gonum/stat"
)

// Mean returns the content-weighted mean of the bin centers in the current range.
func (h *Histogram) Mean() (float64, error) {
	mean, _, err := h.moments()

	return mean, err
}

// RMS returns the content-weighted standard deviation of the bin centers in
// the current range.
func (h *Histogram) RMS() (float64, error) {
	_, std, err := h.moments()

	return std, err
}

// moments computes mean and population standard deviation over the range.
func (h *Histogram) moments() (float64, float64, error) {
	n := h.last - h.first + 1
	centers := make([]float64, 0, n)
	weights := make([]float64, 0, n)

	var total float64

	for i := h.first; i <= h.last; i++ {
		centers = append(centers, h.BinCenter(i))
		weights = append(weights, h.contents[i])
		total += h.contents[i]
	}

	if total <= 0 {
		return 0, 0, fmt.Errorf("%w: %s bins [%d, %d]", ErrEmptyRange, h.name, h.first, h.last)
	}

	mean, std := stat.PopMeanStdDev(centers, weights)

	return mean, std, nil
}
