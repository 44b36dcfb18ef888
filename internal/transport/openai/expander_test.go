package openai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/kailas-cloud/candex/internal/domain"
)

func chatServer(t *testing.T, content string, status int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		var req struct {
			Model    string `json:"model"`
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		if len(req.Messages) != 2 || req.Messages[0].Role != "system" || req.Messages[1].Content != "golang" {
			t.Errorf("unexpected messages: %+v", req.Messages)
		}

		w.Header().Set("Content-Type", "application/json")
		if status != http.StatusOK {
			w.WriteHeader(status)
			_ = json.NewEncoder(w).Encode(map[string]any{
				"error": map[string]any{"message": "unavailable", "type": "server_error"},
			})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":     "cmpl-1",
			"object": "chat.completion",
			"model":  req.Model,
			"choices": []map[string]any{{
				"index":         0,
				"message":       map[string]any{"role": "assistant", "content": content},
				"finish_reason": "stop",
			}},
		})
	}))
}

func TestExpander_Expand(t *testing.T) {
	srv := chatServer(t, "backend developer, microservices\nignored line", http.StatusOK)
	defer srv.Close()

	exp := NewExpander(&ExpanderConfig{APIKey: "k", BaseURL: srv.URL, Model: "m", RatePerSec: 100})
	got, err := exp.Expand(context.Background(), "golang")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "backend developer microservices" {
		t.Errorf("got %q", got)
	}
}

func TestExpander_MaxWords(t *testing.T) {
	srv := chatServer(t, "a b c d e", http.StatusOK)
	defer srv.Close()

	exp := NewExpander(&ExpanderConfig{APIKey: "k", BaseURL: srv.URL, Model: "m", MaxWords: 2, RatePerSec: 100})
	got, err := exp.Expand(context.Background(), "golang")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "a b" {
		t.Errorf("got %q, want %q", got, "a b")
	}
}

func TestExpander_ProviderError(t *testing.T) {
	srv := chatServer(t, "", http.StatusInternalServerError)
	defer srv.Close()

	exp := NewExpander(&ExpanderConfig{APIKey: "k", BaseURL: srv.URL, Model: "m", RatePerSec: 100})
	_, err := exp.Expand(context.Background(), "golang")
	if !errors.Is(err, domain.ErrExpansionFailed) {
		t.Fatalf("expected ErrExpansionFailed, got %v", err)
	}
}

func TestExpander_RateLimitHonoursContext(t *testing.T) {
	exp := NewExpander(&ExpanderConfig{APIKey: "k", BaseURL: "http://unused", Model: "m", RatePerSec: 0.001, Burst: 1})
	// drain the single token
	exp.limiter.Allow()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := exp.Expand(ctx, "golang")
	if !errors.Is(err, domain.ErrExpansionFailed) {
		t.Fatalf("expected ErrExpansionFailed, got %v", err)
	}
}

func TestCleanExpansion(t *testing.T) {
	tests := []struct {
		in   string
		max  int
		want string
	}{
		{"  \"go, rust\"  ", 0, "go rust"},
		{"\n\n- devops; sre\nmore", 0, "devops sre"},
		{"", 3, ""},
		{"one two three four", 3, "one two three"},
	}
	for _, tt := range tests {
		if got := cleanExpansion(tt.in, tt.max); got != tt.want {
			t.Errorf("cleanExpansion(%q, %d) = %q, want %q", tt.in, tt.max, got, tt.want)
		}
	}
}
