// Package config defines the settings used by the latmon binaries and
// provides helpers to load, validate and save them in YAML format.
//
// Paths cover the alarm configuration, exceptions, monitored histograms and
// every output; addresses cover the gRPC report server and the metrics
// endpoint.
package config
