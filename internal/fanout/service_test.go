package fanout

import (
	"context"
	"errors"
	"testing"

	"github.com/semtim/backend/pkg/push"
	"go.uber.org/zap"
)

func newTestService(users *fakeUsers, conversations *fakeConversations, store *fakeStore, tokens *fakeTokens, client *fakeClient, jobs JobQueue) *Service {
	resolver := NewResolver(users, conversations)
	writer := NewWriter(store)
	dispatcher := NewDispatcher(tokens, store, client, nil, zap.NewNop(), DispatcherOptions{})
	return NewService(resolver, writer, dispatcher, jobs, zap.NewNop())
}

func TestNotifyEndToEnd(t *testing.T) {
	store := &fakeStore{}
	tokens := &fakeTokens{tokens: map[uint]string{2: "tok-2", 3: "tok-3"}}
	client := &fakeClient{}
	svc := newTestService(trabzonUsers(), &fakeConversations{}, store, tokens, client, nil)

	err := svc.Notify(context.Background(), Trigger{
		Kind:      KindReport,
		ActorID:   1,
		Severity:  SeverityCritical,
		City:      "Trabzon",
		Title:     "Flooding downtown",
		SourceRef: "report-9",
	})
	if err != nil {
		t.Fatalf("Notify() returned error: %v", err)
	}

	if len(store.rows) != 2 {
		t.Errorf("store holds %d rows, want 2", len(store.rows))
	}
	if got := client.callCount(); got != 1 {
		t.Fatalf("gateway called %d times, want 1", got)
	}
	if got := store.sentCount(); got != 2 {
		t.Errorf("%d records marked sent, want 2", got)
	}
}

func TestNotifyLowSeverityIsNoOp(t *testing.T) {
	store := &fakeStore{}
	client := &fakeClient{}
	svc := newTestService(trabzonUsers(), &fakeConversations{}, store, &fakeTokens{tokens: map[uint]string{}}, client, nil)

	err := svc.Notify(context.Background(), Trigger{
		Kind:      KindReport,
		ActorID:   1,
		Severity:  SeverityLow,
		City:      "Trabzon",
		Title:     "Pothole",
		SourceRef: "report-low",
	})
	if err != nil {
		t.Fatalf("Notify() returned error: %v", err)
	}
	if len(store.rows) != 0 {
		t.Errorf("store holds %d rows for a low-severity report, want 0", len(store.rows))
	}
	if got := client.callCount(); got != 0 {
		t.Errorf("gateway called %d times, want 0", got)
	}
}

func TestNotifyInvalidTrigger(t *testing.T) {
	svc := newTestService(trabzonUsers(), &fakeConversations{}, &fakeStore{}, &fakeTokens{tokens: map[uint]string{}}, &fakeClient{}, nil)

	if err := svc.Notify(context.Background(), Trigger{Kind: KindReport, ActorID: 1}); err == nil {
		t.Fatal("Notify() expected validation error for trigger without title/source_ref")
	}
}

func TestNotifyRejectsNormalReportWithoutCategory(t *testing.T) {
	store := &fakeStore{}
	client := &fakeClient{}
	svc := newTestService(trabzonUsers(), &fakeConversations{}, store, &fakeTokens{tokens: map[uint]string{}}, client, nil)

	err := svc.Notify(context.Background(), Trigger{
		Kind:      KindReport,
		ActorID:   1,
		Severity:  SeverityNormal,
		City:      "Trabzon",
		District:  "Ortahisar",
		Title:     "Water outage",
		SourceRef: "report-2",
	})
	if err == nil {
		t.Fatal("Notify() expected rejection for a normal report without a category")
	}
	if len(store.rows) != 0 {
		t.Errorf("store holds %d rows after a rejected trigger, want 0", len(store.rows))
	}
}

func TestNotifyWriteFailureSurfaces(t *testing.T) {
	store := &fakeStore{createErr: errors.New("connection refused")}
	svc := newTestService(trabzonUsers(), &fakeConversations{}, store, &fakeTokens{tokens: map[uint]string{}}, &fakeClient{}, nil)

	err := svc.Notify(context.Background(), Trigger{
		Kind:      KindReport,
		ActorID:   1,
		Severity:  SeverityCritical,
		City:      "Trabzon",
		Title:     "Flooding downtown",
		SourceRef: "report-9",
	})
	if err == nil {
		t.Fatal("Notify() expected error when the store is down")
	}
}

func TestNotifyDeliveryFailureDoesNotSurface(t *testing.T) {
	store := &fakeStore{}
	tokens := &fakeTokens{tokens: map[uint]string{2: "tok-2"}}
	client := &fakeClient{respond: func([]push.Message) ([]push.Result, error) {
		return nil, errors.New("gateway returned status 502")
	}}
	svc := newTestService(trabzonUsers(), &fakeConversations{}, store, tokens, client, nil)

	err := svc.Notify(context.Background(), Trigger{
		Kind:         KindFollow,
		ActorID:      1,
		TargetUserID: 2,
		Title:        "New follower",
		SourceRef:    "follow:1:2",
	})
	if err != nil {
		t.Fatalf("Notify() surfaced a delivery failure: %v", err)
	}
	// The record survives for in-app display even though the push failed.
	if len(store.rows) != 1 || store.rows[0].PushSent {
		t.Errorf("store rows = %+v, want one unsent record", store.rows)
	}
}

func TestEnqueueHandsTriggerToQueue(t *testing.T) {
	jobs := &fakeJobQueue{}
	svc := newTestService(trabzonUsers(), &fakeConversations{}, &fakeStore{}, &fakeTokens{tokens: map[uint]string{}}, &fakeClient{}, jobs)

	trigger := Trigger{
		Kind:      KindBroadcast,
		ActorID:   7,
		Title:     "Scheduled maintenance",
		SourceRef: "broadcast-1",
	}
	if err := svc.Enqueue(context.Background(), trigger); err != nil {
		t.Fatalf("Enqueue() returned error: %v", err)
	}
	if len(jobs.triggers) != 1 || jobs.triggers[0].SourceRef != "broadcast-1" {
		t.Errorf("queued triggers = %v, want the broadcast trigger", jobs.triggers)
	}
}

func TestEnqueueValidatesBeforeQueueing(t *testing.T) {
	jobs := &fakeJobQueue{}
	svc := newTestService(trabzonUsers(), &fakeConversations{}, &fakeStore{}, &fakeTokens{tokens: map[uint]string{}}, &fakeClient{}, jobs)

	if err := svc.Enqueue(context.Background(), Trigger{Kind: KindFollow, ActorID: 1}); err == nil {
		t.Fatal("Enqueue() expected validation error")
	}
	if len(jobs.triggers) != 0 {
		t.Errorf("%d invalid triggers reached the queue", len(jobs.triggers))
	}
}

func TestEnqueueWithoutQueueRunsSynchronously(t *testing.T) {
	store := &fakeStore{}
	tokens := &fakeTokens{tokens: map[uint]string{2: "tok-2"}}
	client := &fakeClient{}
	svc := newTestService(trabzonUsers(), &fakeConversations{}, store, tokens, client, nil)

	err := svc.Enqueue(context.Background(), Trigger{
		Kind:         KindFollow,
		ActorID:      1,
		TargetUserID: 2,
		Title:        "New follower",
		SourceRef:    "follow:1:2",
	})
	if err != nil {
		t.Fatalf("Enqueue() returned error: %v", err)
	}
	if len(store.rows) != 1 {
		t.Errorf("store holds %d rows, want 1 from the synchronous fallback", len(store.rows))
	}
}
