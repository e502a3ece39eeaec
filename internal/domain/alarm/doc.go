// Package alarm contains the core domain types of the alarm handler.
//
// It defines Status (the classification of an alarm output), Limits (the
// four-threshold range model with classification and badness), Output (the
// immutable value/error/status triple produced by an algorithm), the
// exception list used to exempt known-bad identifiers, and the Result and
// Summary types consumed by the reporting layer.
package alarm
