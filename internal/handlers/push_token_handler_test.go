package handlers

import (
	"context"
	"net/http"
	"testing"

	"github.com/labstack/echo/v4"
)

type fakePushTokenRepo struct {
	tokens map[uint]string
}

func (f *fakePushTokenRepo) Upsert(_ context.Context, userID uint, token string) error {
	f.tokens[userID] = token
	return nil
}

func (f *fakePushTokenRepo) DeleteByUserID(_ context.Context, userID uint) error {
	delete(f.tokens, userID)
	return nil
}

func (f *fakePushTokenRepo) DeleteByToken(_ context.Context, token string) error {
	for id, t := range f.tokens {
		if t == token {
			delete(f.tokens, id)
		}
	}
	return nil
}

func (f *fakePushTokenRepo) GetByUserIDs(_ context.Context, userIDs []uint) (map[uint]string, error) {
	out := make(map[uint]string)
	for _, id := range userIDs {
		if token, ok := f.tokens[id]; ok {
			out[id] = token
		}
	}
	return out, nil
}

func TestRegisterTokenReplacesPrevious(t *testing.T) {
	repo := &fakePushTokenRepo{tokens: map[uint]string{1: "old-token"}}
	h := NewPushTokenHandler(repo)

	e := echo.New()
	c, rec := newAuthedContext(e, http.MethodPut, "/api/push-token", `{"token":"new-token"}`, 1)

	if err := h.RegisterToken(c); err != nil {
		t.Fatalf("RegisterToken() returned error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if repo.tokens[1] != "new-token" {
		t.Errorf("stored token = %q, want the replacement", repo.tokens[1])
	}
}

func TestRegisterTokenRejectsEmptyToken(t *testing.T) {
	repo := &fakePushTokenRepo{tokens: map[uint]string{}}
	h := NewPushTokenHandler(repo)

	e := echo.New()
	c, _ := newAuthedContext(e, http.MethodPut, "/api/push-token", `{"token":""}`, 1)

	err := h.RegisterToken(c)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusBadRequest {
		t.Fatalf("RegisterToken() error = %v, want 400", err)
	}
}

func TestRemoveToken(t *testing.T) {
	repo := &fakePushTokenRepo{tokens: map[uint]string{1: "tok-1", 2: "tok-2"}}
	h := NewPushTokenHandler(repo)

	e := echo.New()
	c, _ := newAuthedContext(e, http.MethodDelete, "/api/push-token", "", 1)

	if err := h.RemoveToken(c); err != nil {
		t.Fatalf("RemoveToken() returned error: %v", err)
	}
	if _, ok := repo.tokens[1]; ok {
		t.Error("caller's token still registered after removal")
	}
	if _, ok := repo.tokens[2]; !ok {
		t.Error("another user's token was removed")
	}
}
