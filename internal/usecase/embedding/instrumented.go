package embedding

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/candex/internal/domain"
)

// DefaultMaxAPIBatchSize is the largest batch sent in one provider request.
const DefaultMaxAPIBatchSize = 256

// Options tunes the chunking of large batches.
type Options struct {
	Provider string
	Model    string
	// ChunkSize caps texts per provider request. <= 0 uses DefaultMaxAPIBatchSize.
	ChunkSize int
	// Parallel caps chunks in flight at once. <= 0 means one at a time.
	Parallel int
}

// InstrumentedEmbedder splits ingest batches into provider-sized chunks and
// logs each call. Transport metrics are recorded in transport/openai.
type InstrumentedEmbedder struct {
	inner  domain.Embedder
	opts   Options
	logger *zap.Logger
}

// NewInstrumentedEmbedder wraps inner with chunking and logging.
func NewInstrumentedEmbedder(inner domain.Embedder, opts Options, logger *zap.Logger) *InstrumentedEmbedder {
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = DefaultMaxAPIBatchSize
	}
	if opts.Parallel <= 0 {
		opts.Parallel = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InstrumentedEmbedder{
		inner: inner,
		opts:  opts,
		logger: logger.With(
			zap.String("provider", opts.Provider),
			zap.String("model", opts.Model),
		),
	}
}

// Embed vectorizes a single query or profile text.
func (p *InstrumentedEmbedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	start := time.Now()
	result, err := p.inner.Embed(ctx, text)
	if err != nil {
		p.logger.Error("Embedding request failed",
			zap.Duration("duration", time.Since(start)),
			zap.Error(err),
		)
		return domain.EmbeddingResult{}, fmt.Errorf("embed: %w", err)
	}

	p.logger.Debug("Embedding request completed",
		zap.Duration("duration", time.Since(start)),
		zap.Int("dimensions", len(result.Embedding)),
		zap.Int("total_tokens", result.TotalTokens),
	)
	return result, nil
}

// BatchEmbed embeds texts chunk by chunk, up to Parallel chunks at once.
// Output order matches texts; the first failing chunk cancels the rest.
func (p *InstrumentedEmbedder) BatchEmbed(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	if len(texts) == 0 {
		return domain.BatchEmbeddingResult{}, nil
	}

	start := time.Now()
	size := p.opts.ChunkSize
	chunks := (len(texts) + size - 1) / size
	out := make([][]float32, len(texts))
	usage := make([]domain.BatchEmbeddingResult, chunks)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.opts.Parallel)
	for c := range chunks {
		offset := c * size
		chunk := texts[offset:min(offset+size, len(texts))]
		g.Go(func() error {
			res, err := p.embedChunk(gctx, chunk)
			if err != nil {
				p.logger.Error("Batch embedding chunk failed",
					zap.Int("chunk_offset", offset),
					zap.Int("chunk_size", len(chunk)),
					zap.Error(err),
				)
				return fmt.Errorf("batch embed: chunk at %d: %w", offset, err)
			}
			copy(out[offset:], res.Embeddings)
			usage[c] = domain.BatchEmbeddingResult{PromptTokens: res.PromptTokens, TotalTokens: res.TotalTokens}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return domain.BatchEmbeddingResult{}, err //nolint:wrapcheck // wrapped per chunk
	}

	result := domain.BatchEmbeddingResult{Embeddings: out}
	for _, u := range usage {
		result.PromptTokens += u.PromptTokens
		result.TotalTokens += u.TotalTokens
	}

	p.logger.Debug("Batch embedding completed",
		zap.Duration("duration", time.Since(start)),
		zap.Int("texts", len(texts)),
		zap.Int("chunks", chunks),
		zap.Int("total_tokens", result.TotalTokens),
	)
	return result, nil
}

// HealthCheck forwards to the inner embedder when it can report health.
func (p *InstrumentedEmbedder) HealthCheck(ctx context.Context) error {
	if hc, ok := p.inner.(domain.HealthChecker); ok {
		return hc.HealthCheck(ctx) //nolint:wrapcheck // transparent decorator
	}
	return nil
}

func (p *InstrumentedEmbedder) embedChunk(ctx context.Context, chunk []string) (domain.BatchEmbeddingResult, error) {
	res, err := domain.EmbedBatch(ctx, p.inner, chunk)
	if err != nil {
		return domain.BatchEmbeddingResult{}, fmt.Errorf("inner: %w", err)
	}
	if len(res.Embeddings) != len(chunk) {
		return domain.BatchEmbeddingResult{}, fmt.Errorf("expected %d embeddings, got %d",
			len(chunk), len(res.Embeddings))
	}
	return res, nil
}
