package fanout

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"testing"

	"github.com/semtim/backend/internal/models"
	"github.com/semtim/backend/pkg/push"
	"go.uber.org/zap"
)

// seedRecords creates count pending notification rows in the store and
// registers a token for every recipient except those listed in noToken.
func seedRecords(t *testing.T, store *fakeStore, tokens *fakeTokens, count int, noToken ...uint) []models.Notification {
	t.Helper()
	skip := make(map[uint]bool)
	for _, id := range noToken {
		skip[id] = true
	}
	rows := make([]models.Notification, 0, count)
	for i := 1; i <= count; i++ {
		recipient := uint(i)
		rows = append(rows, models.Notification{
			RecipientID: recipient,
			Type:        models.NotificationTypeEvent,
			SourceRef:   "report-1",
			Title:       "Road closed",
		})
		if !skip[recipient] {
			tokens.tokens[recipient] = fmt.Sprintf("ExponentPushToken[%d]", recipient)
		}
	}
	if err := store.CreateBatch(context.Background(), rows); err != nil {
		t.Fatalf("seeding store: %v", err)
	}
	written, err := store.ListBySourceRef(context.Background(), "report-1", models.NotificationTypeEvent)
	if err != nil {
		t.Fatalf("reading seeded rows: %v", err)
	}
	return written
}

func newTestDispatcher(store *fakeStore, tokens *fakeTokens, client *fakeClient, retry RetryQueue) *Dispatcher {
	return NewDispatcher(tokens, store, client, retry, zap.NewNop(), DispatcherOptions{})
}

func TestDispatchSkipsRecipientsWithoutToken(t *testing.T) {
	store := &fakeStore{}
	tokens := &fakeTokens{tokens: map[uint]string{}}
	client := &fakeClient{}

	// 40 recipients in the district, 5 of them never registered a device.
	records := seedRecords(t, store, tokens, 40, 7, 12, 19, 23, 31)

	d := newTestDispatcher(store, tokens, client, nil)
	d.Dispatch(context.Background(), Trigger{Kind: KindReport, SourceRef: "report-1"}, records)

	if got := client.callCount(); got != 1 {
		t.Fatalf("gateway called %d times, want 1", got)
	}
	if got := len(client.calls[0]); got != 35 {
		t.Errorf("batch carried %d messages, want 35", got)
	}
	if got := store.sentCount(); got != 35 {
		t.Errorf("%d records marked sent, want 35", got)
	}
}

func TestDispatchChunksLargeAudiences(t *testing.T) {
	store := &fakeStore{}
	tokens := &fakeTokens{tokens: map[uint]string{}}
	client := &fakeClient{}

	records := seedRecords(t, store, tokens, 250)

	d := newTestDispatcher(store, tokens, client, nil)
	d.Dispatch(context.Background(), Trigger{Kind: KindBroadcast, SourceRef: "report-1"}, records)

	if got := client.callCount(); got != 3 {
		t.Fatalf("gateway called %d times, want 3", got)
	}
	sizes := make([]int, 0, 3)
	for _, call := range client.calls {
		if len(call) > push.MaxBatchSize {
			t.Errorf("batch of %d exceeds gateway cap %d", len(call), push.MaxBatchSize)
		}
		sizes = append(sizes, len(call))
	}
	sort.Ints(sizes)
	if sizes[0] != 50 || sizes[1] != 100 || sizes[2] != 100 {
		t.Errorf("batch sizes = %v, want [50 100 100]", sizes)
	}
	if got := store.sentCount(); got != 250 {
		t.Errorf("%d records marked sent, want 250", got)
	}
}

func TestDispatchFailedChunkGoesToRetryQueue(t *testing.T) {
	store := &fakeStore{}
	tokens := &fakeTokens{tokens: map[uint]string{}}
	client := &fakeClient{respond: func([]push.Message) ([]push.Result, error) {
		return nil, errors.New("gateway returned status 502")
	}}
	retry := &fakeRetryQueue{}

	records := seedRecords(t, store, tokens, 10)

	d := newTestDispatcher(store, tokens, client, retry)
	d.Dispatch(context.Background(), Trigger{Kind: KindReport, SourceRef: "report-1"}, records)

	if got := store.sentCount(); got != 0 {
		t.Errorf("%d records marked sent after failed chunk, want 0", got)
	}
	if len(retry.chunks) != 1 {
		t.Fatalf("%d chunks enqueued for retry, want 1", len(retry.chunks))
	}
	chunk := retry.chunks[0]
	if chunk.Attempt != 2 {
		t.Errorf("retry chunk attempt = %d, want 2", chunk.Attempt)
	}
	if len(chunk.Items) != 10 {
		t.Errorf("retry chunk holds %d items, want 10", len(chunk.Items))
	}
}

func TestRedispatchDropsChunkAtAttemptCeiling(t *testing.T) {
	store := &fakeStore{}
	tokens := &fakeTokens{tokens: map[uint]string{}}
	client := &fakeClient{respond: func([]push.Message) ([]push.Result, error) {
		return nil, errors.New("gateway returned status 502")
	}}
	retry := &fakeRetryQueue{}

	d := newTestDispatcher(store, tokens, client, retry)
	d.Redispatch(context.Background(), RetryChunk{
		Attempt: 3,
		Items:   []RetryItem{{NotificationID: 1, Message: push.Message{To: "tok"}}},
	})

	if len(retry.chunks) != 0 {
		t.Errorf("%d chunks re-enqueued past the attempt ceiling, want 0", len(retry.chunks))
	}
}

func TestDispatchPrunesUnregisteredDevices(t *testing.T) {
	store := &fakeStore{}
	tokens := &fakeTokens{tokens: map[uint]string{}}
	client := &fakeClient{respond: func(messages []push.Message) ([]push.Result, error) {
		results := make([]push.Result, len(messages))
		for i := range messages {
			if messages[i].To == "ExponentPushToken[2]" {
				results[i] = push.Result{Status: push.StatusError, Message: "DeviceNotRegistered: token expired"}
			} else {
				results[i] = push.Result{Status: push.StatusOK}
			}
		}
		return results, nil
	}}

	records := seedRecords(t, store, tokens, 3)

	d := newTestDispatcher(store, tokens, client, nil)
	d.Dispatch(context.Background(), Trigger{Kind: KindReport, SourceRef: "report-1"}, records)

	if got := store.sentCount(); got != 2 {
		t.Errorf("%d records marked sent, want 2", got)
	}
	if len(tokens.deleted) != 1 || tokens.deleted[0] != "ExponentPushToken[2]" {
		t.Errorf("pruned tokens = %v, want the rejected token only", tokens.deleted)
	}
	if _, ok := tokens.tokens[2]; ok {
		t.Error("rejected token still registered after prune")
	}
}

func TestDispatchSkipsAlreadySentRecords(t *testing.T) {
	store := &fakeStore{}
	tokens := &fakeTokens{tokens: map[uint]string{}}
	client := &fakeClient{}

	records := seedRecords(t, store, tokens, 4)
	// A previous delivery already confirmed the first two rows.
	if err := store.MarkPushSent(context.Background(), []uint{records[0].ID, records[1].ID}); err != nil {
		t.Fatalf("marking seeded rows: %v", err)
	}
	records, err := store.ListBySourceRef(context.Background(), "report-1", models.NotificationTypeEvent)
	if err != nil {
		t.Fatalf("reloading rows: %v", err)
	}

	d := newTestDispatcher(store, tokens, client, nil)
	d.Dispatch(context.Background(), Trigger{Kind: KindReport, SourceRef: "report-1"}, records)

	if got := client.callCount(); got != 1 {
		t.Fatalf("gateway called %d times, want 1", got)
	}
	if got := len(client.calls[0]); got != 2 {
		t.Errorf("batch carried %d messages, want only the 2 unsent", got)
	}
}

func TestDispatchNoTokensNoGatewayCall(t *testing.T) {
	store := &fakeStore{}
	tokens := &fakeTokens{tokens: map[uint]string{}}
	client := &fakeClient{}

	records := seedRecords(t, store, tokens, 3, 1, 2, 3)

	d := newTestDispatcher(store, tokens, client, nil)
	d.Dispatch(context.Background(), Trigger{Kind: KindReport, SourceRef: "report-1"}, records)

	if got := client.callCount(); got != 0 {
		t.Errorf("gateway called %d times for token-less audience, want 0", got)
	}
}
