// Package inspector implements the alarm-inspector command, a client of the
// report service that prints the latest summary or the results of a single
// alarm, once or on every new evaluation pass.
package inspector
