package fanout

import (
	"context"
	"errors"
	"sync"

	"github.com/semtim/backend/internal/models"
	"github.com/semtim/backend/pkg/push"
)

// testUser is the profile snapshot the fake directory resolves against.
type testUser struct {
	id         uint
	city       string
	district   string
	active     bool
	categories []string
}

type fakeUsers struct {
	users []testUser
	err   error
}

func (f *fakeUsers) ListActiveIDs(_ context.Context) ([]uint, error) {
	if f.err != nil {
		return nil, f.err
	}
	var ids []uint
	for _, u := range f.users {
		if u.active {
			ids = append(ids, u.id)
		}
	}
	return ids, nil
}

func (f *fakeUsers) ListActiveIDsByCity(_ context.Context, city string) ([]uint, error) {
	if f.err != nil {
		return nil, f.err
	}
	var ids []uint
	for _, u := range f.users {
		if u.active && u.city == city {
			ids = append(ids, u.id)
		}
	}
	return ids, nil
}

func (f *fakeUsers) ListActiveIDsByDistrict(_ context.Context, city, district string) ([]uint, error) {
	if f.err != nil {
		return nil, f.err
	}
	var ids []uint
	for _, u := range f.users {
		if u.active && u.city == city && u.district == district {
			ids = append(ids, u.id)
		}
	}
	return ids, nil
}

func (f *fakeUsers) ListActiveIDsByCategory(_ context.Context, category string) ([]uint, error) {
	if f.err != nil {
		return nil, f.err
	}
	var ids []uint
	for _, u := range f.users {
		if !u.active {
			continue
		}
		for _, c := range u.categories {
			if c == category {
				ids = append(ids, u.id)
				break
			}
		}
	}
	return ids, nil
}

func (f *fakeUsers) FilterActive(_ context.Context, ids []uint) ([]uint, error) {
	if f.err != nil {
		return nil, f.err
	}
	active := make(map[uint]bool)
	for _, u := range f.users {
		if u.active {
			active[u.id] = true
		}
	}
	var out []uint
	for _, id := range ids {
		if active[id] {
			out = append(out, id)
		}
	}
	return out, nil
}

type fakeConversations struct {
	members map[string][]uint
}

func (f *fakeConversations) MemberIDs(_ context.Context, conversationID string) ([]uint, error) {
	members, ok := f.members[conversationID]
	if !ok {
		return nil, errors.New("conversation not found")
	}
	return members, nil
}

// fakeStore enforces the (source_ref, recipient_id, type) uniqueness the
// real store gets from its index, so writer retries behave like production.
type fakeStore struct {
	mu        sync.Mutex
	rows      []models.Notification
	nextID    uint
	createErr error
	markErr   error
}

func (f *fakeStore) CreateBatch(_ context.Context, notifications []models.Notification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	for _, n := range notifications {
		if f.exists(n.SourceRef, n.RecipientID, n.Type) {
			continue
		}
		f.nextID++
		n.ID = f.nextID
		f.rows = append(f.rows, n)
	}
	return nil
}

func (f *fakeStore) exists(sourceRef string, recipientID uint, typ models.NotificationType) bool {
	for _, row := range f.rows {
		if row.SourceRef == sourceRef && row.RecipientID == recipientID && row.Type == typ {
			return true
		}
	}
	return false
}

func (f *fakeStore) ListBySourceRef(_ context.Context, sourceRef string, typ models.NotificationType) ([]models.Notification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Notification
	for _, row := range f.rows {
		if row.SourceRef == sourceRef && row.Type == typ {
			out = append(out, row)
		}
	}
	return out, nil
}

func (f *fakeStore) MarkPushSent(_ context.Context, ids []uint) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.markErr != nil {
		return f.markErr
	}
	marked := make(map[uint]bool, len(ids))
	for _, id := range ids {
		marked[id] = true
	}
	for i := range f.rows {
		if marked[f.rows[i].ID] {
			f.rows[i].PushSent = true
		}
	}
	return nil
}

func (f *fakeStore) sentCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	count := 0
	for _, row := range f.rows {
		if row.PushSent {
			count++
		}
	}
	return count
}

type fakeTokens struct {
	mu      sync.Mutex
	tokens  map[uint]string
	deleted []string
	err     error
}

func (f *fakeTokens) GetByUserIDs(_ context.Context, userIDs []uint) (map[uint]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	out := make(map[uint]string)
	for _, id := range userIDs {
		if token, ok := f.tokens[id]; ok {
			out[id] = token
		}
	}
	return out, nil
}

func (f *fakeTokens) DeleteByToken(_ context.Context, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, token)
	for id, t := range f.tokens {
		if t == token {
			delete(f.tokens, id)
		}
	}
	return nil
}

// fakeClient records every gateway batch. respond may be set to shape the
// per-message results; the default confirms everything.
type fakeClient struct {
	mu      sync.Mutex
	calls   [][]push.Message
	respond func(messages []push.Message) ([]push.Result, error)
}

func (f *fakeClient) Send(_ context.Context, messages []push.Message) ([]push.Result, error) {
	f.mu.Lock()
	batch := make([]push.Message, len(messages))
	copy(batch, messages)
	f.calls = append(f.calls, batch)
	respond := f.respond
	f.mu.Unlock()

	if respond != nil {
		return respond(messages)
	}
	results := make([]push.Result, len(messages))
	for i := range results {
		results[i] = push.Result{Status: push.StatusOK}
	}
	return results, nil
}

func (f *fakeClient) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type fakeRetryQueue struct {
	mu     sync.Mutex
	chunks []RetryChunk
}

func (f *fakeRetryQueue) EnqueueRetry(_ context.Context, chunk RetryChunk) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.chunks = append(f.chunks, chunk)
	return nil
}

type fakeJobQueue struct {
	mu       sync.Mutex
	triggers []Trigger
	err      error
}

func (f *fakeJobQueue) EnqueueTrigger(_ context.Context, t Trigger) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.triggers = append(f.triggers, t)
	return nil
}
