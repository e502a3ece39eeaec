// Package version exposes build metadata of the alarm tools.
//
// Version, Commit and BuildTime are injected with ldflags. The values are
// printed by the version subcommand, logged at startup and sent as the gRPC
// user agent of report clients.
package version
