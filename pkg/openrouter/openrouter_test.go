package openrouter

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestNewValidatesConfig(t *testing.T) {
	t.Parallel()

	for _, cfg := range []Config{
		{APIKey: "k"},
		{Model: "openai/gpt-4o-mini"},
	} {
		if _, err := cfg.New(context.Background()); err == nil {
			t.Fatalf("New(%+v) expected error", cfg)
		}
	}
}

func TestNewClientRequiresAPIKey(t *testing.T) {
	t.Parallel()

	if NewClient(Config{APIKey: " "}) != nil {
		t.Fatal("expected nil client without api key")
	}
}

func TestModelAvailable(t *testing.T) {
	t.Parallel()

	var gotTitle string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotTitle = r.Header.Get("X-Title")
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"object": "list",
			"data": []map[string]any{
				{"id": "openai/gpt-4o-mini", "object": "model", "created": 0, "owned_by": "openai"},
			},
		})
	}))
	t.Cleanup(server.Close)

	cfg := Config{BaseURL: server.URL, APIKey: "k", Model: "openai/gpt-4o-mini", SiteName: "support-demo"}
	ok, err := ModelAvailable(context.Background(), cfg)
	if err != nil || !ok {
		t.Fatalf("ModelAvailable() = %v, %v", ok, err)
	}
	if gotTitle != "support-demo" {
		t.Fatalf("X-Title = %q", gotTitle)
	}

	cfg.Model = "missing/model"
	if ok, _ := ModelAvailable(context.Background(), cfg); ok {
		t.Fatal("expected missing model to be unavailable")
	}
}
