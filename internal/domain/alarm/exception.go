package alarm

import "sort"

// IdentifierStatus addresses the alarm as a whole in an exception entry.
// It suppresses the alarm in status rollups without touching its output.
const IdentifierStatus = "status"

// Exception lists the identifiers exempted for one (alarm, algorithm) pair.
type Exception struct {
	// Alarm is the alarm name (the name of the plot the alarm runs on).
	Alarm string
	// Algorithm is the algorithm name.
	Algorithm string
	// Identifiers maps an exempted identifier to the status it may still
	// contribute to rollups when it violates the limits.
	Identifiers map[string]Status
}

// exceptionKey indexes exceptions by alarm and algorithm.
type exceptionKey struct {
	// alarm is the alarm name.
	alarm string
	// algorithm is the algorithm name.
	algorithm string
}

// ExceptionList is the preloaded mapping of exempted identifiers.
// A nil list exempts nothing.
type ExceptionList struct {
	// entries holds the exceptions by key.
	entries map[exceptionKey]Exception
}

// NewExceptionList builds a list from the given exceptions. Later entries
// for the same (alarm, algorithm) pair are merged into earlier ones.
func NewExceptionList(exceptions ...Exception) *ExceptionList {
	list := &ExceptionList{
		entries: make(map[exceptionKey]Exception, len(exceptions)),
	}

	for _, e := range exceptions {
		list.Add(e)
	}

	return list
}

// Add merges an exception into the list.
func (l *ExceptionList) Add(e Exception) {
	key := exceptionKey{alarm: e.Alarm, algorithm: e.Algorithm}

	current, ok := l.entries[key]
	if !ok {
		current = Exception{
			Alarm:       e.Alarm,
			Algorithm:   e.Algorithm,
			Identifiers: make(map[string]Status, len(e.Identifiers)),
		}
	}

	for id, status := range e.Identifiers {
		current.Identifiers[id] = status
	}

	l.entries[key] = current
}

// Len returns the number of (alarm, algorithm) entries.
func (l *ExceptionList) Len() int {
	if l == nil {
		return 0
	}

	return len(l.entries)
}

// IsExempt reports whether identifier is exempted for the alarm and algorithm.
func (l *ExceptionList) IsExempt(alarm, algorithm, identifier string) bool {
	_, ok := l.lookup(alarm, algorithm, identifier)

	return ok
}

// Exemptor returns a predicate bound to one alarm and algorithm, the shape
// multi-element algorithms consume.
func (l *ExceptionList) Exemptor(alarm, algorithm string) func(identifier string) bool {
	return func(identifier string) bool {
		return l.IsExempt(alarm, algorithm, identifier)
	}
}

// RollupStatus returns the status an alarm contributes to the overall
// rollup. An alarm exempted through IdentifierStatus contributes at most
// its configured status on violation; others contribute their own status.
func (l *ExceptionList) RollupStatus(alarm, algorithm string, status Status) Status {
	capStatus, ok := l.lookup(alarm, algorithm, IdentifierStatus)
	if !ok || !status.IsClassified() {
		return status
	}

	if status.Severity() > capStatus.Severity() {
		return capStatus
	}

	return status
}

// Exceptions returns the entries sorted by alarm then algorithm.
func (l *ExceptionList) Exceptions() []Exception {
	if l == nil {
		return nil
	}

	out := make([]Exception, 0, len(l.entries))
	for _, e := range l.entries {
		out = append(out, e)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Alarm != out[j].Alarm {
			return out[i].Alarm < out[j].Alarm
		}

		return out[i].Algorithm < out[j].Algorithm
	})

	return out
}

// lookup returns the status on violation for an exempted identifier.
func (l *ExceptionList) lookup(alarm, algorithm, identifier string) (Status, bool) {
	if l == nil {
		return StatusUndefined, false
	}

	e, ok := l.entries[exceptionKey{alarm: alarm, algorithm: algorithm}]
	if !ok {
		return StatusUndefined, false
	}

	status, ok := e.Identifiers[identifier]

	return status, ok
}
