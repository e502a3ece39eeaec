// Package report implements the gRPC transport for the report service.
//
// The service is described by hand with well-known Struct messages, so no
// generated code is needed. The server adapts the latest summary to those
// messages and calls into a provided business-service interface.
package report
