package evaluation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/oshokin/latmon/internal/algorithm"
	"github.com/oshokin/latmon/internal/domain/alarm"
	"github.com/oshokin/latmon/internal/histogram"
	"github.com/oshokin/latmon/internal/logger"
)

// ErrStrict is returned in strict mode when a definition is misconfigured.
var ErrStrict = errors.New("misconfigured alarms in strict mode")

// HandlerOptions configures a Handler.
type HandlerOptions struct {
	// Registry resolves algorithm names. NewRegistry is used when nil.
	Registry *algorithm.Registry
	// Sets are the enabled alarm sets in declaration order.
	Sets []*AlarmSet
	// Exceptions are the exemptions; nil exempts nothing.
	Exceptions *alarm.ExceptionList
	// Strict makes misconfigured definitions fatal.
	Strict bool
	// Now returns the evaluation time. time.Now when nil.
	Now func() time.Time
}

// Handler evaluates the configured alarm sets against histogram catalogs.
type Handler struct {
	// registry resolves algorithm names.
	registry *algorithm.Registry
	// sets are the enabled alarm sets.
	sets []*AlarmSet
	// exceptions are the exemptions.
	exceptions *alarm.ExceptionList
	// strict makes misconfigured definitions fatal.
	strict bool
	// now returns the evaluation time.
	now func() time.Time
}

// NewHandler builds a handler.
func NewHandler(opts HandlerOptions) *Handler {
	h := &Handler{
		registry:   opts.Registry,
		sets:       opts.Sets,
		exceptions: opts.Exceptions,
		strict:     opts.Strict,
		now:        opts.Now,
	}

	if h.registry == nil {
		h.registry = algorithm.NewRegistry()
	}

	if h.now == nil {
		h.now = time.Now
	}

	return h
}

// Check reports misconfigured definitions without evaluating anything.
// In strict mode it returns ErrStrict when there is at least one.
func (h *Handler) Check() ([]error, error) {
	var problems []error

	for _, set := range h.sets {
		for _, def := range set.Definitions {
			if def.Err != nil {
				problems = append(problems, fmt.Errorf("set %s, alarm %s: %w", set.Name, def.Algorithm, def.Err))

				continue
			}

			if _, err := h.registry.Lookup(def.Algorithm); err != nil {
				problems = append(problems, fmt.Errorf("set %s: %w", set.Name, err))
			}
		}
	}

	if h.strict && len(problems) > 0 {
		return problems, fmt.Errorf("%w: %w", ErrStrict, errors.Join(problems...))
	}

	return problems, nil
}

// Evaluate runs every alarm set against catalog and returns the summary.
func (h *Handler) Evaluate(ctx context.Context, catalog *histogram.Catalog) (*alarm.Summary, error) {
	problems, err := h.Check()
	if err != nil {
		return nil, err
	}

	summary := &alarm.Summary{
		RunID:     uuid.NewString(),
		Timestamp: h.now().UTC(),
	}

	ctx = logger.WithKV(ctx, "run_id", summary.RunID)

	for _, p := range problems {
		logger.WarnKV(ctx, "Misconfigured alarm", "error", p)
	}

	for _, set := range h.sets {
		summary.Results = append(summary.Results, set.Evaluate(ctx, catalog, h.registry, h.exceptions)...)

		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("evaluate alarm sets: %w", err)
		}
	}

	counts := summary.Counts()

	logger.InfoKV(ctx, "Alarms evaluated",
		"alarms", len(summary.Results),
		"clean", counts[alarm.StatusClean],
		"warning", counts[alarm.StatusWarning],
		"error", counts[alarm.StatusError],
		"undefined", counts[alarm.StatusUndefined],
		"status", summary.Status(),
	)

	return summary, nil
}
