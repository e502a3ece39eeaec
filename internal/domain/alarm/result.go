package alarm

import (
	"time"
)

// Parameter is an algorithm parameter as written in the configuration.
type Parameter struct {
	// Name is the parameter key.
	Name string
	// Value is the literal text of the value.
	Value string
}

// Result is one evaluated alarm as the reporting layer sees it.
type Result struct {
	// Set is the name of the alarm set the alarm belongs to.
	Set string
	// Alarm is the alarm name, i.e. the name of the plot it ran on.
	Alarm string
	// Algorithm is the algorithm name.
	Algorithm string
	// Parameters are the configured parameters in declaration order.
	Parameters []Parameter
	// Limits are the thresholds used for classification.
	Limits Limits
	// Output is the algorithm output.
	Output Output
	// Diagnostic explains failures (misconfiguration, unsupported type, ...).
	Diagnostic string
	// Warnings collects non-fatal problems such as ignored parameters.
	Warnings []string
	// Rollup is the status this alarm contributes to the overall status.
	Rollup Status
}

// Status is a shortcut for the output status.
func (r *Result) Status() Status {
	return r.Output.Status()
}

// Summary is the outcome of one evaluation pass.
type Summary struct {
	// RunID identifies the evaluation pass.
	RunID string
	// Timestamp is when the pass started.
	Timestamp time.Time
	// Results are ordered by alarm set declaration, alarm declaration
	// and plot name.
	Results []Result
}

// Status returns the worst rollup status across all results.
// It is UNDEFINED only when no result was classified.
func (s *Summary) Status() Status {
	status := StatusUndefined
	for i := range s.Results {
		status = Worse(status, s.Results[i].Rollup)
	}

	return status
}

// Counts returns the number of results per output status.
func (s *Summary) Counts() map[Status]int {
	counts := map[Status]int{
		StatusUndefined: 0,
		StatusClean:     0,
		StatusWarning:   0,
		StatusError:     0,
	}

	for i := range s.Results {
		counts[s.Results[i].Status()]++
	}

	return counts
}

// Filter returns the results whose status is at least threshold.
// StatusClean returns every classified result, StatusUndefined every result.
func (s *Summary) Filter(threshold Status) []Result {
	out := make([]Result, 0, len(s.Results))

	for i := range s.Results {
		r := s.Results[i]
		if threshold == StatusUndefined || r.Status().AtLeast(threshold) {
			out = append(out, r)
		}
	}

	return out
}

// Find returns the results for an alarm and, if not empty, an algorithm.
func (s *Summary) Find(alarmName, algorithm string) []Result {
	var out []Result

	for i := range s.Results {
		r := s.Results[i]
		if r.Alarm == alarmName && (algorithm == "" || r.Algorithm == algorithm) {
			out = append(out, r)
		}
	}

	return out
}
