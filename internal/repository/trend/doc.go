// Package trend records alarm outputs across runs in SQLite and answers
// time series and output-distribution queries over them.
package trend
