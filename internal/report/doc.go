// Package report renders evaluation summaries as text, XML and HTML,
// and draws the monitored histograms as PNG images.
package report
