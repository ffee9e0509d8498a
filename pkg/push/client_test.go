package push

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestSend(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("Content-Type = %q, want application/json", ct)
		}

		var messages []Message
		if err := json.NewDecoder(r.Body).Decode(&messages); err != nil {
			t.Errorf("decoding request body: %v", err)
		}
		if len(messages) != 2 {
			t.Errorf("request carried %d messages, want 2", len(messages))
		}
		if messages[0].To != "tok-1" || messages[0].Title != "Road closed" {
			t.Errorf("first message = %+v", messages[0])
		}

		json.NewEncoder(w).Encode(map[string]interface{}{
			"data": []map[string]string{
				{"status": "ok"},
				{"status": "error", "message": "DeviceNotRegistered: token expired"},
			},
		})
	}))
	defer server.Close()

	client := NewClient(server.URL, 5*time.Second)
	results, err := client.Send(context.Background(), []Message{
		{To: "tok-1", Title: "Road closed", Body: "Main street is blocked"},
		{To: "tok-2", Title: "Road closed", Body: "Main street is blocked"},
	})
	if err != nil {
		t.Fatalf("Send() returned error: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("Send() returned %d results, want 2", len(results))
	}
	if !results[0].OK() {
		t.Errorf("first result = %+v, want ok", results[0])
	}
	if results[1].OK() || !results[1].DeviceNotRegistered() {
		t.Errorf("second result = %+v, want DeviceNotRegistered", results[1])
	}
}

func TestSendEmptyBatch(t *testing.T) {
	client := NewClient("http://gateway.invalid", time.Second)
	results, err := client.Send(context.Background(), nil)
	if err != nil {
		t.Fatalf("Send() returned error for empty batch: %v", err)
	}
	if results != nil {
		t.Errorf("Send() = %v, want nil for empty batch", results)
	}
}

func TestSendRejectsOversizedBatch(t *testing.T) {
	called := false
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer server.Close()

	client := NewClient(server.URL, time.Second)
	if _, err := client.Send(context.Background(), make([]Message, MaxBatchSize+1)); err == nil {
		t.Fatal("Send() expected error for batch over the gateway cap")
	}
	if called {
		t.Error("oversized batch still reached the gateway")
	}
}

func TestSendGatewayError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad gateway", http.StatusBadGateway)
	}))
	defer server.Close()

	client := NewClient(server.URL, time.Second)
	if _, err := client.Send(context.Background(), []Message{{To: "tok-1"}}); err == nil {
		t.Fatal("Send() expected error for 502 response")
	}
}

func TestSendResultCountMismatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"data": []map[string]string{{"status": "ok"}},
		})
	}))
	defer server.Close()

	client := NewClient(server.URL, time.Second)
	if _, err := client.Send(context.Background(), []Message{{To: "tok-1"}, {To: "tok-2"}}); err == nil {
		t.Fatal("Send() expected error when result count differs from message count")
	}
}

func TestSendTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer server.Close()

	client := NewClient(server.URL, 20*time.Millisecond)
	if _, err := client.Send(context.Background(), []Message{{To: "tok-1"}}); err == nil {
		t.Fatal("Send() expected error when the gateway stalls past the timeout")
	}
}
