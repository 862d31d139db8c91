package qstash

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestPublishJSON(t *testing.T) {
	t.Parallel()

	var (
		gotPath   string
		gotAuth   string
		gotHeader string
		gotBody   map[string]any
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		gotHeader = r.Header.Get("Upstash-Forward-X-Session-Id")
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode body: %v", err)
		}
		fmt.Fprint(w, `{"messageId":"msg_1"}`)
	}))
	t.Cleanup(server.Close)

	client := MustNew(Config{URL: server.URL, Token: "secret"})
	out, err := client.PublishJSON(context.Background(), "support-escalations", map[string]any{"urgency": "high"}, map[string]string{
		"X-Session-Id": "s-1",
	})
	if err != nil {
		t.Fatalf("PublishJSON() error = %v", err)
	}
	if out.MessageID != "msg_1" {
		t.Fatalf("MessageID = %q", out.MessageID)
	}
	if gotPath != "/v2/publish/support-escalations" {
		t.Fatalf("path = %q", gotPath)
	}
	if gotAuth != "Bearer secret" || gotHeader != "s-1" {
		t.Fatalf("headers = %q %q", gotAuth, gotHeader)
	}
	if gotBody["urgency"] != "high" {
		t.Fatalf("body = %#v", gotBody)
	}
}

func TestPublishJSONHTTPError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
	}))
	t.Cleanup(server.Close)

	client := MustNew(Config{URL: server.URL, Token: "bad"})
	if _, err := client.PublishJSON(context.Background(), "topic", map[string]any{}, nil); err == nil {
		t.Fatal("expected error")
	}
}

func TestNewClientRequiresToken(t *testing.T) {
	t.Parallel()

	if _, err := NewClient(Config{URL: "https://qstash.upstash.io"}); err == nil {
		t.Fatal("expected error for missing token")
	}
}
