package openai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	openai "github.com/sashabaranov/go-openai"

	"github.com/kailas-cloud/candex/internal/domain"
	"github.com/kailas-cloud/candex/internal/metrics"
)

func TestMain(m *testing.M) {
	metrics.RegisterEmbeddingMetrics()
	os.Exit(m.Run())
}

// --- Fake provider ---

type fakeItem struct {
	Object    string    `json:"object"`
	Embedding []float32 `json:"embedding"`
	Index     int       `json:"index"`
}

type fakeUsage struct {
	PromptTokens int `json:"prompt_tokens"`
	TotalTokens  int `json:"total_tokens"`
}

type fakeResponse struct {
	Object string     `json:"object"`
	Data   []fakeItem `json:"data"`
	Model  string     `json:"model"`
	Usage  fakeUsage  `json:"usage"`
}

// embeddingServer answers /embeddings with vecs; vecs[i] gets index order[i].
func embeddingServer(t *testing.T, tokens int, order []int, vecs ...[]float32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/embeddings" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		resp := fakeResponse{Object: "list", Model: "e5", Usage: fakeUsage{tokens, tokens}}
		for i, v := range vecs {
			idx := i
			if order != nil {
				idx = order[i]
			}
			resp.Data = append(resp.Data, fakeItem{Object: "embedding", Embedding: v, Index: idx})
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestEmbedder(url string, dims int, provider string) *Embedder {
	return NewEmbedder(&Config{
		APIKey:     "test-key",
		BaseURL:    url,
		Model:      "e5",
		Dimensions: dims,
		Provider:   provider,
	})
}

// --- Tests ---

func TestEmbedder_Embed(t *testing.T) {
	var gotAuth string
	var gotReq openai.EmbeddingRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&gotReq)
		_ = json.NewEncoder(w).Encode(fakeResponse{
			Object: "list",
			Data:   []fakeItem{{Object: "embedding", Embedding: []float32{0.1, 0.2, 0.3, 0.4}}},
			Usage:  fakeUsage{42, 42},
		})
	}))
	defer srv.Close()

	res, err := newTestEmbedder(srv.URL, 4, "test").Embed(context.Background(), "golang backend")
	if err != nil {
		t.Fatalf("Embed failed: %v", err)
	}
	if gotAuth != "Bearer test-key" {
		t.Errorf("unexpected auth header: %q", gotAuth)
	}
	if gotReq.Dimensions != 4 {
		t.Errorf("expected dimensions 4 in request, got %d", gotReq.Dimensions)
	}
	if len(res.Embedding) != 4 || res.Embedding[3] != 0.4 {
		t.Errorf("unexpected embedding %v", res.Embedding)
	}
	if res.PromptTokens != 42 || res.TotalTokens != 42 {
		t.Errorf("unexpected usage %d/%d", res.PromptTokens, res.TotalTokens)
	}
}

func TestEmbedder_BatchEmbed_ReordersByIndex(t *testing.T) {
	srv := embeddingServer(t, 20, []int{1, 0}, []float32{0.3, 0.4}, []float32{0.1, 0.2})

	res, err := newTestEmbedder(srv.URL, 0, "test").BatchEmbed(context.Background(), []string{"a", "b"})
	if err != nil {
		t.Fatalf("BatchEmbed failed: %v", err)
	}
	if len(res.Embeddings) != 2 {
		t.Fatalf("expected 2 embeddings, got %d", len(res.Embeddings))
	}
	if res.Embeddings[0][0] != 0.1 || res.Embeddings[1][0] != 0.3 {
		t.Errorf("embeddings not in input order: %v", res.Embeddings)
	}
	if res.TotalTokens != 20 {
		t.Errorf("expected TotalTokens=20, got %d", res.TotalTokens)
	}
}

func TestEmbedder_BatchEmbed_Empty(t *testing.T) {
	res, err := newTestEmbedder("http://unused", 0, "test").BatchEmbed(context.Background(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Embeddings != nil {
		t.Errorf("expected nil embeddings, got %v", res.Embeddings)
	}
}

func TestEmbedder_BatchEmbed_CountMismatch(t *testing.T) {
	srv := embeddingServer(t, 5, nil, []float32{0.1})

	_, err := newTestEmbedder(srv.URL, 0, "test").BatchEmbed(context.Background(), []string{"a", "b"})
	if !errors.Is(err, domain.ErrEmbeddingProviderError) {
		t.Fatalf("expected ErrEmbeddingProviderError, got %v", err)
	}
}

func TestEmbedder_DimensionMismatch(t *testing.T) {
	srv := embeddingServer(t, 5, nil, []float32{0.1, 0.2, 0.3})
	emb := newTestEmbedder(srv.URL, 4, "dims-test")

	_, err := emb.Embed(context.Background(), "a")
	if !errors.Is(err, domain.ErrEmbeddingProviderError) {
		t.Fatalf("expected ErrEmbeddingProviderError, got %v", err)
	}
	if !strings.Contains(err.Error(), "3 dimensions, want 4") {
		t.Errorf("unexpected message %q", err.Error())
	}
	got := testutil.ToFloat64(metrics.EmbeddingErrorsTotal.WithLabelValues("dims-test", "e5", "dimension_mismatch"))
	if got != 1 {
		t.Errorf("expected one dimension_mismatch error, got %f", got)
	}
}

func TestEmbedder_RecordsSuccessMetrics(t *testing.T) {
	srv := embeddingServer(t, 7, nil, []float32{1}, []float32{2})
	emb := newTestEmbedder(srv.URL, 0, "metrics-test")

	if _, err := emb.BatchEmbed(context.Background(), []string{"a", "b"}); err != nil {
		t.Fatalf("BatchEmbed failed: %v", err)
	}

	if v := testutil.ToFloat64(metrics.EmbeddingRequestsTotal.WithLabelValues("metrics-test", "e5", "ok")); v != 1 {
		t.Errorf("requests ok = %f, want 1", v)
	}
	if v := testutil.ToFloat64(metrics.EmbeddingTokensTotal.WithLabelValues("metrics-test", "e5", "total")); v != 7 {
		t.Errorf("total tokens = %f, want 7", v)
	}
}

func TestEmbedder_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{"message": "rate limit exceeded", "type": "rate_limit_error"},
		})
	}))
	defer srv.Close()

	_, err := newTestEmbedder(srv.URL, 0, "test").Embed(context.Background(), "a")
	if !errors.Is(err, domain.ErrEmbeddingProviderError) {
		t.Fatalf("expected ErrEmbeddingProviderError, got %v", err)
	}
	if !strings.Contains(err.Error(), "rate limit exceeded") {
		t.Errorf("expected provider message, got %q", err.Error())
	}
}

func TestParseAPIError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"detail body", &openai.RequestError{HTTPStatusCode: 400, Body: []byte(`{"detail":"input too long"}`)}, "input too long"},
		{"raw body", &openai.RequestError{HTTPStatusCode: 502, Body: []byte("bad gateway")}, "bad gateway"},
		{"deadline", context.DeadlineExceeded, "deadline exceeded"},
		{"other", errors.New("dial tcp"), "embedding request failed"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := parseAPIError(tc.err)
			if !errors.Is(err, domain.ErrEmbeddingProviderError) {
				t.Fatalf("expected ErrEmbeddingProviderError, got %v", err)
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Errorf("expected %q in %q", tc.want, err.Error())
			}
		})
	}
}
