package notify

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestWebhook_Notify(t *testing.T) {
	var received map[string]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
			t.Errorf("failed to decode payload: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	wh := NewWebhook(server.URL, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err := wh.Notify(context.Background(), "new order ORD-1"); err != nil {
		t.Fatalf("notify failed: %v", err)
	}
	if received["text"] != "new order ORD-1" {
		t.Errorf("unexpected payload: %v", received)
	}
}

func TestWebhook_NotifyServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	wh := NewWebhook(server.URL, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err := wh.Notify(context.Background(), "boom"); err == nil {
		t.Fatal("expected an error for a 500 response")
	}
}
