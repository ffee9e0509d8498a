package fanout

import (
	"context"
	"sync"
	"time"

	"github.com/semtim/backend/internal/models"
	"github.com/semtim/backend/pkg/push"
	"go.uber.org/zap"
)

// TokenDirectory is the slice of the push token repository the dispatcher
// needs: batched lookup plus pruning of gateway-rejected tokens.
type TokenDirectory interface {
	GetByUserIDs(ctx context.Context, userIDs []uint) (map[uint]string, error)
	DeleteByToken(ctx context.Context, token string) error
}

// PushClient sends one gateway batch and returns per-message results.
type PushClient interface {
	Send(ctx context.Context, messages []push.Message) ([]push.Result, error)
}

// RetryQueue receives chunks that failed at the HTTP level for later
// redelivery by the retry worker. May be nil, in which case failed chunks
// are dropped after logging.
type RetryQueue interface {
	EnqueueRetry(ctx context.Context, chunk RetryChunk) error
}

// RetryItem pairs a notification record with its prepared push message.
type RetryItem struct {
	NotificationID uint         `json:"notification_id"`
	Message        push.Message `json:"message"`
}

// RetryChunk is one failed gateway batch queued for redelivery.
type RetryChunk struct {
	Attempt int         `json:"attempt"`
	Items   []RetryItem `json:"items"`
}

// DispatcherOptions bound the dispatcher's concurrency and retry behavior.
type DispatcherOptions struct {
	// Concurrency caps in-flight gateway calls per dispatch. Defaults to 4.
	Concurrency int
	// Timeout bounds each gateway call. Defaults to 10s.
	Timeout time.Duration
	// MaxAttempts caps deliveries per chunk including the first. Defaults to 3.
	MaxAttempts int
}

// Dispatcher chunks records into gateway-sized batches, sends them, and
// records delivery state. Delivery is best-effort: nothing here ever fails
// the business action behind the trigger.
type Dispatcher struct {
	tokens      TokenDirectory
	store       NotificationStore
	client      PushClient
	retry       RetryQueue
	logger      *zap.Logger
	concurrency int
	timeout     time.Duration
	maxAttempts int
}

// NewDispatcher creates a Dispatcher. retry may be nil to disable redelivery.
func NewDispatcher(tokens TokenDirectory, store NotificationStore, client PushClient, retry RetryQueue, logger *zap.Logger, opts DispatcherOptions) *Dispatcher {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 4
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 3
	}
	return &Dispatcher{
		tokens:      tokens,
		store:       store,
		client:      client,
		retry:       retry,
		logger:      logger,
		concurrency: opts.Concurrency,
		timeout:     opts.Timeout,
		maxAttempts: opts.MaxAttempts,
	}
}

// Dispatch delivers push messages for the given records. Records without a
// registered token and records already marked sent are skipped; their rows
// stay visible in-app regardless. Chunks go out concurrently under the
// configured limit and Dispatch returns once every chunk settled.
func (d *Dispatcher) Dispatch(ctx context.Context, t Trigger, records []models.Notification) {
	pending := make([]models.Notification, 0, len(records))
	recipientIDs := make([]uint, 0, len(records))
	for _, rec := range records {
		if rec.PushSent {
			continue
		}
		pending = append(pending, rec)
		recipientIDs = append(recipientIDs, rec.RecipientID)
	}
	if len(pending) == 0 {
		return
	}

	tokens, err := d.tokens.GetByUserIDs(ctx, recipientIDs)
	if err != nil {
		d.logger.Error("push token lookup failed, skipping dispatch",
			zap.String("source_ref", t.SourceRef),
			zap.Error(err))
		return
	}

	items := make([]RetryItem, 0, len(pending))
	for _, rec := range pending {
		token, ok := tokens[rec.RecipientID]
		if !ok {
			continue // in-app only, no device token
		}
		items = append(items, RetryItem{
			NotificationID: rec.ID,
			Message: push.Message{
				To:    token,
				Title: rec.Title,
				Body:  rec.Body,
				Data:  rec.Data,
				Sound: "default",
				Badge: 1,
			},
		})
	}
	if len(items) == 0 {
		return
	}

	d.logger.Info("dispatching push batch",
		zap.String("source_ref", t.SourceRef),
		zap.Int("recipients", len(pending)),
		zap.Int("with_token", len(items)))

	d.send(ctx, items, 1)
}

// Redispatch retries one previously failed chunk.
func (d *Dispatcher) Redispatch(ctx context.Context, chunk RetryChunk) {
	d.send(ctx, chunk.Items, chunk.Attempt)
}

// send splits items into gateway-sized chunks and delivers them concurrently.
func (d *Dispatcher) send(ctx context.Context, items []RetryItem, attempt int) {
	sem := make(chan struct{}, d.concurrency)
	var wg sync.WaitGroup
	for start := 0; start < len(items); start += push.MaxBatchSize {
		end := start + push.MaxBatchSize
		if end > len(items) {
			end = len(items)
		}
		chunk := items[start:end]

		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-sem }()
			d.sendChunk(ctx, chunk, attempt)
		}()
	}
	wg.Wait()
}

// sendChunk performs one gateway call. An HTTP-level failure confirms nothing
// in the chunk; the chunk is queued for redelivery until the attempt ceiling.
func (d *Dispatcher) sendChunk(ctx context.Context, items []RetryItem, attempt int) {
	messages := make([]push.Message, len(items))
	for i, item := range items {
		messages[i] = item.Message
	}

	callCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	results, err := d.client.Send(callCtx, messages)
	if err != nil {
		d.logger.Warn("push chunk failed",
			zap.Int("size", len(items)),
			zap.Int("attempt", attempt),
			zap.Error(err))
		d.enqueueRetry(ctx, items, attempt)
		return
	}

	sentIDs := make([]uint, 0, len(items))
	for i, res := range results {
		switch {
		case res.OK():
			sentIDs = append(sentIDs, items[i].NotificationID)
		case res.DeviceNotRegistered():
			// Stale token: prune it so future dispatches skip the device.
			if err := d.tokens.DeleteByToken(ctx, items[i].Message.To); err != nil {
				d.logger.Warn("failed to prune stale push token", zap.Error(err))
			}
		default:
			d.logger.Warn("push message rejected",
				zap.Uint("notification_id", items[i].NotificationID),
				zap.String("reason", res.Message))
		}
	}

	if err := d.store.MarkPushSent(ctx, sentIDs); err != nil {
		d.logger.Error("failed to mark notifications as push-sent",
			zap.Int("count", len(sentIDs)),
			zap.Error(err))
	}
}

func (d *Dispatcher) enqueueRetry(ctx context.Context, items []RetryItem, attempt int) {
	if d.retry == nil {
		return
	}
	if attempt >= d.maxAttempts {
		d.logger.Error("push chunk dropped after exhausting attempts",
			zap.Int("size", len(items)),
			zap.Int("attempts", attempt))
		return
	}
	chunk := RetryChunk{Attempt: attempt + 1, Items: items}
	if err := d.retry.EnqueueRetry(ctx, chunk); err != nil {
		d.logger.Error("failed to enqueue push retry chunk", zap.Error(err))
	}
}
