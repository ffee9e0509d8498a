package fanout

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// JobQueue accepts triggers for asynchronous processing by the Worker.
type JobQueue interface {
	EnqueueTrigger(ctx context.Context, t Trigger) error
}

// Service is the shared notification pipeline consumed by every call site
// (reports, follows, messages, admin broadcasts).
type Service struct {
	resolver   *Resolver
	writer     *Writer
	dispatcher *Dispatcher
	jobs       JobQueue
	logger     *zap.Logger
}

// NewService wires the pipeline. jobs may be nil, in which case Enqueue
// degrades to the synchronous path.
func NewService(resolver *Resolver, writer *Writer, dispatcher *Dispatcher, jobs JobQueue, logger *zap.Logger) *Service {
	return &Service{
		resolver:   resolver,
		writer:     writer,
		dispatcher: dispatcher,
		jobs:       jobs,
		logger:     logger,
	}
}

// Notify runs the full pipeline synchronously: resolve, write, dispatch.
// Resolution and write failures surface to the caller; delivery failures do
// not. A trigger that resolves to nobody is a no-op.
func (s *Service) Notify(ctx context.Context, t Trigger) error {
	if err := t.Validate(); err != nil {
		return err
	}

	audience, err := s.resolver.Resolve(ctx, t)
	if err != nil {
		return err
	}
	if len(audience) == 0 {
		s.logger.Debug("trigger resolved to empty audience",
			zap.String("kind", string(t.Kind)),
			zap.String("source_ref", t.SourceRef))
		return nil
	}

	records, err := s.writer.Write(ctx, t, audience)
	if err != nil {
		return err
	}

	// Best-effort from here on: a failed push must never look like a failed
	// report, message, or follow to the user who triggered it.
	s.dispatcher.Dispatch(ctx, t, records)
	return nil
}

// Enqueue validates the trigger and hands it to the job queue so fan-out
// happens off the request path. Call this only after the triggering business
// write has committed.
func (s *Service) Enqueue(ctx context.Context, t Trigger) error {
	if err := t.Validate(); err != nil {
		return err
	}
	if s.jobs == nil {
		return s.Notify(ctx, t)
	}
	if err := s.jobs.EnqueueTrigger(ctx, t); err != nil {
		return fmt.Errorf("failed to enqueue trigger: %w", err)
	}
	return nil
}
