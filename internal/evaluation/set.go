package evaluation

import (
	"context"

	"github.com/oshokin/latmon/internal/algorithm"
	"github.com/oshokin/latmon/internal/domain/alarm"
	"github.com/oshokin/latmon/internal/histogram"
	"github.com/oshokin/latmon/internal/logger"
)

// AlarmSet groups the definitions sharing one plot name pattern.
type AlarmSet struct {
	// List is the name of the enclosing alarm list.
	List string
	// Name is the set name and plot pattern.
	Name string
	// Definitions are ordered by declaration.
	Definitions []*Definition
}

// Evaluate runs every definition against every histogram matching the set
// name, in declaration order then plot name order. A pattern matching no
// histogram yields results only for the misconfigured definitions.
func (s *AlarmSet) Evaluate(
	ctx context.Context,
	catalog *histogram.Catalog,
	registry *algorithm.Registry,
	exceptions *alarm.ExceptionList,
) []alarm.Result {
	plots := catalog.Match(s.Name)
	if len(plots) == 0 {
		logger.DebugKV(ctx, "Alarm set matches no plot", "set", s.Name)

		return s.unbound(registry)
	}

	results := make([]alarm.Result, 0, len(plots)*len(s.Definitions))

	for _, def := range s.Definitions {
		// Unknown names leave alg nil and are reported by Alarm.Evaluate.
		alg, _ := registry.Lookup(def.Algorithm)

		for _, h := range plots {
			if ctx.Err() != nil {
				return results
			}

			a := &Alarm{
				Definition: def,
				Histogram:  h,
				Algorithm:  alg,
				Exceptions: exceptions,
			}

			results = append(results, a.Evaluate(ctx))
		}
	}

	return results
}

// unbound reports the definitions that could not run against any plot, named
// after the set pattern.
func (s *AlarmSet) unbound(registry *algorithm.Registry) []alarm.Result {
	var results []alarm.Result

	for _, def := range s.Definitions {
		err := def.Err
		if err == nil {
			if _, err = registry.Lookup(def.Algorithm); err == nil {
				continue
			}
		}

		results = append(results, alarm.Result{
			Set:        def.Set,
			Alarm:      s.Name,
			Algorithm:  def.Algorithm,
			Parameters: def.Parameters,
			Output:     alarm.UndefinedOutput(err.Error()),
			Rollup:     alarm.StatusUndefined,
			Diagnostic: err.Error(),
		})
	}

	return results
}
