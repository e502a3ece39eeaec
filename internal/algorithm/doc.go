// Package algorithm implements the computations alarms run on histograms.
//
// Each algorithm turns one histogram, a parameter map and a set of limits
// into an alarm.Output. Algorithms are looked up by name in a Registry built
// with NewRegistry. Range-restricted computations always go through
// histogram.Histogram.WithRange, so the histogram is left as it was found.
package algorithm
