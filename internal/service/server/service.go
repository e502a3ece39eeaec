package server

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/oshokin/latmon/internal/domain/alarm"
	"github.com/oshokin/latmon/internal/logger"
	"github.com/oshokin/latmon/internal/repository/results"
)

// service keeps the latest summary in memory and reloads it from the
// results repository on demand.
// It is unexported to keep the transport decoupled from the implementation.
type service struct {
	// repo reads the results snapshot.
	repo results.Repository
	// summary is the latest loaded summary; nil until one was written.
	summary *alarm.Summary
	// onLoad is called with every newly loaded summary.
	onLoad func(*alarm.Summary)
	// mu protects summary.
	mu sync.RWMutex
}

// newService creates a service backed by the provided repository and loads
// the current snapshot. A missing snapshot is not an error.
func newService(ctx context.Context, repository results.Repository, onLoad func(*alarm.Summary)) (*service, error) {
	s := &service{
		repo:   repository,
		onLoad: onLoad,
	}

	if err := s.Reload(ctx); err != nil && !errors.Is(err, results.ErrNotFound) {
		return nil, err
	}

	return s, nil
}

// Reload replaces the in-memory summary with the stored snapshot. The
// previous summary is kept when the snapshot cannot be read.
func (s *service) Reload(ctx context.Context) error {
	if s.repo == nil {
		return nil
	}

	summary, err := s.repo.Load(ctx)
	if err != nil {
		if errors.Is(err, results.ErrNotFound) {
			return err
		}

		return fmt.Errorf("load results: %w", err)
	}

	s.mu.Lock()
	s.summary = summary
	s.mu.Unlock()

	if s.onLoad != nil {
		s.onLoad(summary)
	}

	logger.InfoKV(ctx, "Results loaded",
		"run_id", summary.RunID,
		"status", summary.Status().String(),
		"alarms", len(summary.Results))

	return nil
}

// Summary returns the latest summary. Loaded summaries are never modified,
// so callers share it read-only.
func (s *service) Summary(context.Context) (*alarm.Summary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.summary == nil {
		return nil, results.ErrNotFound
	}

	return s.summary, nil
}
