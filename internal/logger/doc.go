// Package logger provides a small wrapper around zap to offer:
//   - an explicitly constructed sugared logger with a console encoder,
//   - context helpers (ToContext/FromContext/WithName/WithKV/WithFields),
//   - level parsing utilities,
//   - convenience functions (Infof, ErrorKV, etc.).
//
// There is no process-wide logger. Each command builds one with New and
// stores it in the context; code without a logger in its context logs nowhere.
package logger
