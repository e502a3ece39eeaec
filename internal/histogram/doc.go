// Package histogram provides the one-dimensional histograms alarms run on.
//
// A Histogram exposes bin contents, moments over a restricted axis range and
// chi-square fits of a few standard models. Histograms are read from YAML
// files into a Catalog, which resolves wildcard plot names.
package histogram
