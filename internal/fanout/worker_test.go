package fanout

import (
	"context"
	"testing"
	"time"

	"github.com/semtim/backend/pkg/push"
	"go.uber.org/zap"
)

type chanTriggerSource struct{ ch chan Trigger }

func (s *chanTriggerSource) DequeueTrigger(ctx context.Context) (*Trigger, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case t := <-s.ch:
		return &t, nil
	}
}

type chanRetrySource struct{ ch chan RetryChunk }

func (s *chanRetrySource) DequeueRetry(ctx context.Context) (*RetryChunk, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case chunk := <-s.ch:
		return &chunk, nil
	}
}

func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal(msg)
}

func TestWorkerProcessesQueuedTriggers(t *testing.T) {
	store := &fakeStore{}
	tokens := &fakeTokens{tokens: map[uint]string{2: "tok-2"}}
	client := &fakeClient{}
	svc := newTestService(trabzonUsers(), &fakeConversations{}, store, tokens, client, nil)
	dispatcher := NewDispatcher(tokens, store, client, nil, zap.NewNop(), DispatcherOptions{})

	triggers := &chanTriggerSource{ch: make(chan Trigger, 1)}
	retries := &chanRetrySource{ch: make(chan RetryChunk)}
	worker := NewWorker(svc, dispatcher, triggers, retries, zap.NewNop(), time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	worker.Start(ctx)

	triggers.ch <- Trigger{
		Kind:         KindFollow,
		ActorID:      1,
		TargetUserID: 2,
		Title:        "New follower",
		SourceRef:    "follow:1:2",
	}

	waitFor(t, func() bool { return store.sentCount() == 1 },
		"queued trigger never produced a delivered notification")
}

func TestWorkerRedeliversRetryChunks(t *testing.T) {
	store := &fakeStore{}
	tokens := &fakeTokens{tokens: map[uint]string{}}
	client := &fakeClient{}
	svc := newTestService(trabzonUsers(), &fakeConversations{}, store, tokens, client, nil)
	dispatcher := NewDispatcher(tokens, store, client, nil, zap.NewNop(), DispatcherOptions{})

	triggers := &chanTriggerSource{ch: make(chan Trigger)}
	retries := &chanRetrySource{ch: make(chan RetryChunk, 1)}
	worker := NewWorker(svc, dispatcher, triggers, retries, zap.NewNop(), time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	worker.Start(ctx)

	retries.ch <- RetryChunk{
		Attempt: 2,
		Items:   []RetryItem{{NotificationID: 1, Message: push.Message{To: "tok-1", Title: "Road closed"}}},
	}

	waitFor(t, func() bool { return client.callCount() == 1 },
		"retry chunk never reached the gateway")
}
