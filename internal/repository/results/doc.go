// Package results persists the latest evaluation summary.
//
// The FileRepository stores and loads the summary as protojson of a
// structpb.Struct and exposes a Repository interface that the report
// server depends on.
package results
