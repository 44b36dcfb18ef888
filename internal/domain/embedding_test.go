package domain

import (
	"context"
	"errors"
	"testing"
)

// --- Mocks ---

// recordingEmbedder remembers every text it saw and returns a vector of the text length.
type recordingEmbedder struct {
	seen []string
	err  error
}

func (r *recordingEmbedder) Embed(_ context.Context, text string) (EmbeddingResult, error) {
	if r.err != nil {
		return EmbeddingResult{}, r.err
	}
	r.seen = append(r.seen, text)
	return EmbeddingResult{Embedding: []float32{float32(len(text))}, PromptTokens: 1, TotalTokens: 2}, nil
}

// recordingBatcher adds a native batch call.
type recordingBatcher struct {
	recordingEmbedder
	batches [][]string
}

func (r *recordingBatcher) BatchEmbed(_ context.Context, texts []string) (BatchEmbeddingResult, error) {
	if r.err != nil {
		return BatchEmbeddingResult{}, r.err
	}
	r.batches = append(r.batches, texts)
	out := BatchEmbeddingResult{TotalTokens: 10}
	for _, t := range texts {
		out.Embeddings = append(out.Embeddings, []float32{float32(len(t))})
	}
	return out, nil
}

type checkingEmbedder struct {
	recordingEmbedder
	healthErr error
	checked   bool
}

func (c *checkingEmbedder) HealthCheck(_ context.Context) error {
	c.checked = true
	return c.healthErr
}

// --- Tests ---

func TestInstructionEmbedder_Embed(t *testing.T) {
	tests := []struct {
		name        string
		instruction string
		text        string
		want        string
	}{
		{"query prefix", "query: ", "senior go developer", "query: senior go developer"},
		{"passage prefix", "passage: ", "backend, 5 years", "passage: backend, 5 years"},
		{"no prefix", "", "designer", "designer"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			inner := &recordingEmbedder{}
			res, err := NewInstructionEmbedder(inner, tc.instruction).Embed(context.Background(), tc.text)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(inner.seen) != 1 || inner.seen[0] != tc.want {
				t.Errorf("inner saw %q, want %q", inner.seen, tc.want)
			}
			if res.Embedding[0] != float32(len(tc.want)) {
				t.Errorf("unexpected embedding %v", res.Embedding)
			}
		})
	}
}

func TestInstructionEmbedder_EmbedError(t *testing.T) {
	down := errors.New("provider down")
	_, err := NewInstructionEmbedder(&recordingEmbedder{err: down}, "query: ").Embed(context.Background(), "x")
	if !errors.Is(err, down) {
		t.Fatalf("expected wrapped inner error, got %v", err)
	}
}

func TestInstructionEmbedder_BatchUsesNativeBatch(t *testing.T) {
	inner := &recordingBatcher{}
	res, err := NewInstructionEmbedder(inner, "passage: ").BatchEmbed(context.Background(), []string{"a", "bb"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(inner.batches) != 1 || inner.batches[0][1] != "passage: bb" {
		t.Errorf("expected one prefixed batch, got %v", inner.batches)
	}
	if len(inner.seen) != 0 {
		t.Errorf("expected no single calls, got %v", inner.seen)
	}
	if res.TotalTokens != 10 {
		t.Errorf("expected batch usage, got %d", res.TotalTokens)
	}
}

func TestInstructionEmbedder_BatchFallsBackToSingle(t *testing.T) {
	inner := &recordingEmbedder{}
	res, err := NewInstructionEmbedder(inner, "q: ").BatchEmbed(context.Background(), []string{"a", "b", "c"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(inner.seen) != 3 || inner.seen[2] != "q: c" {
		t.Errorf("expected three prefixed single calls, got %v", inner.seen)
	}
	if res.PromptTokens != 3 || res.TotalTokens != 6 {
		t.Errorf("expected summed usage 3/6, got %d/%d", res.PromptTokens, res.TotalTokens)
	}
}

func TestInstructionEmbedder_BatchError(t *testing.T) {
	down := errors.New("batch down")
	inner := &recordingBatcher{recordingEmbedder: recordingEmbedder{err: down}}

	_, err := NewInstructionEmbedder(inner, "q: ").BatchEmbed(context.Background(), []string{"a"})
	if !errors.Is(err, down) {
		t.Fatalf("expected wrapped batch error, got %v", err)
	}
}

func TestBatchFallback(t *testing.T) {
	res, err := BatchFallback(context.Background(), &recordingEmbedder{}, []string{"ab", "abc"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Embeddings) != 2 || res.Embeddings[1][0] != 3 {
		t.Errorf("unexpected embeddings %v", res.Embeddings)
	}

	empty, err := BatchFallback(context.Background(), &recordingEmbedder{}, nil)
	if err != nil || len(empty.Embeddings) != 0 {
		t.Errorf("expected empty result, got %v, %v", empty, err)
	}

	if _, err := BatchFallback(context.Background(), &recordingEmbedder{err: errors.New("x")}, []string{"a"}); err == nil {
		t.Error("expected error")
	}
}

func TestEmbedBatch_PicksPath(t *testing.T) {
	batcher := &recordingBatcher{}
	if _, err := EmbedBatch(context.Background(), batcher, []string{"a"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(batcher.batches) != 1 {
		t.Errorf("expected native batch, got %d batches", len(batcher.batches))
	}

	single := &recordingEmbedder{}
	if _, err := EmbedBatch(context.Background(), single, []string{"a", "b"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(single.seen) != 2 {
		t.Errorf("expected fallback single calls, got %d", len(single.seen))
	}
}

func TestInstructionEmbedder_HealthCheck(t *testing.T) {
	inner := &checkingEmbedder{healthErr: errors.New("down")}
	if err := NewInstructionEmbedder(inner, "q: ").HealthCheck(context.Background()); err == nil {
		t.Fatal("expected forwarded health error")
	}
	if !inner.checked {
		t.Error("expected inner HealthCheck to be called")
	}

	if err := NewInstructionEmbedder(&recordingEmbedder{}, "q: ").HealthCheck(context.Background()); err != nil {
		t.Fatalf("embedder without health check must report healthy, got %v", err)
	}
}
