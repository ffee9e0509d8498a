package fanout

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// TriggerSource yields queued triggers. Dequeue blocks up to the queue's poll
// interval and returns (nil, nil) when nothing is pending.
type TriggerSource interface {
	DequeueTrigger(ctx context.Context) (*Trigger, error)
}

// RetrySource yields failed push chunks awaiting redelivery.
type RetrySource interface {
	DequeueRetry(ctx context.Context) (*RetryChunk, error)
}

// Worker consumes the trigger queue and the push retry queue in the
// background, decoupling fan-out latency from the triggering request.
type Worker struct {
	service    *Service
	dispatcher *Dispatcher
	triggers   TriggerSource
	retries    RetrySource
	logger     *zap.Logger

	// retryBackoff is the base delay before redelivering a chunk; the actual
	// delay doubles per attempt.
	retryBackoff time.Duration
}

// NewWorker creates a Worker. retryBackoff <= 0 defaults to 2s.
func NewWorker(service *Service, dispatcher *Dispatcher, triggers TriggerSource, retries RetrySource, logger *zap.Logger, retryBackoff time.Duration) *Worker {
	if retryBackoff <= 0 {
		retryBackoff = 2 * time.Second
	}
	return &Worker{
		service:      service,
		dispatcher:   dispatcher,
		triggers:     triggers,
		retries:      retries,
		logger:       logger,
		retryBackoff: retryBackoff,
	}
}

// Start launches the consumer loops. They run until ctx is cancelled.
func (w *Worker) Start(ctx context.Context) {
	w.logger.Info("starting fan-out worker")
	go w.triggerLoop(ctx)
	go w.retryLoop(ctx)
}

func (w *Worker) triggerLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		t, err := w.triggers.DequeueTrigger(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			w.logger.Error("failed to dequeue trigger", zap.Error(err))
			time.Sleep(time.Second)
			continue
		}
		if t == nil {
			continue
		}

		if err := w.service.Notify(ctx, *t); err != nil {
			// The business action already committed; all we can do is log.
			w.logger.Error("fan-out failed for queued trigger",
				zap.String("kind", string(t.Kind)),
				zap.String("source_ref", t.SourceRef),
				zap.Error(err))
		}
	}
}

func (w *Worker) retryLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		chunk, err := w.retries.DequeueRetry(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			w.logger.Error("failed to dequeue retry chunk", zap.Error(err))
			time.Sleep(time.Second)
			continue
		}
		if chunk == nil {
			continue
		}

		// Exponential backoff keyed on the attempt the chunk is about to make.
		delay := w.retryBackoff << uint(chunk.Attempt-1)
		w.logger.Info("redelivering push chunk",
			zap.Int("attempt", chunk.Attempt),
			zap.Int("size", len(chunk.Items)),
			zap.Duration("delay", delay))

		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}

		w.dispatcher.Redispatch(ctx, *chunk)
	}
}
