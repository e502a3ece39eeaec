// Package server implements the alarm-server command.
//
// The server answers report queries over gRPC from the latest results
// snapshot written by the alarm handler, reloads the snapshot when the file
// changes and optionally exposes the summary as Prometheus gauges.
package server
