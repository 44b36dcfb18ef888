// Package app is the composition root shared by the server and the ingest command.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/kailas-cloud/candex/internal/config"
	"github.com/kailas-cloud/candex/internal/db"
	"github.com/kailas-cloud/candex/internal/db/postgres"
	dbQdrant "github.com/kailas-cloud/candex/internal/db/qdrant"
	dbRedis "github.com/kailas-cloud/candex/internal/db/redis"
	"github.com/kailas-cloud/candex/internal/domain"
	"github.com/kailas-cloud/candex/internal/domain/labels"
	"github.com/kailas-cloud/candex/internal/domain/search/facet"
	"github.com/kailas-cloud/candex/internal/domain/search/fusion"
	logpkg "github.com/kailas-cloud/candex/internal/logger"
	"github.com/kailas-cloud/candex/internal/metrics"
	"github.com/kailas-cloud/candex/internal/repository/embcache"
	"github.com/kailas-cloud/candex/internal/retry"
	openaiEmb "github.com/kailas-cloud/candex/internal/transport/openai"
	embeddinguc "github.com/kailas-cloud/candex/internal/usecase/embedding"
	healthuc "github.com/kailas-cloud/candex/internal/usecase/health"
	"github.com/kailas-cloud/candex/internal/usecase/ingest"
	searchuc "github.com/kailas-cloud/candex/internal/usecase/search"
)

const embeddingProvider = "openai"

// App holds the process-scoped handles built from configuration.
type App struct {
	Config config.Config
	Logger *zap.Logger

	Source  *postgres.Store
	Vectors db.VectorStore
	Cache   *dbRedis.Store // nil when the embedding cache is disabled
	Labels  labels.File

	DocEmbedder   domain.Embedder
	QueryEmbedder domain.Embedder
}

// New connects the stores, waits for them to be ready and builds the embedder chains.
func New(ctx context.Context, cfg config.Config, logger *zap.Logger) (*App, error) {
	a := &App{Config: cfg, Logger: logger}

	lbl, err := labels.Load(config.ResolvePath(cfg.LabelsFile))
	if err != nil {
		return nil, fmt.Errorf("load labels: %w", err)
	}
	a.Labels = lbl

	source, err := postgres.NewStore(ctx, postgres.Config{
		DSN:      cfg.Source.DSN,
		MaxConns: cfg.Source.MaxConns,
		MinConns: cfg.Source.MinConns,
		Tables: postgres.Tables{
			Users:      cfg.Source.Tables.Users,
			Candidates: cfg.Source.Tables.Candidates,
			Findworks:  cfg.Source.Tables.Findworks,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("create source store: %w", err)
	}
	a.Source = source
	if err := a.Source.WaitForReady(ctx, seconds(cfg.Source.ReadinessTimeout)); err != nil {
		a.Close()
		return nil, fmt.Errorf("source not ready: %w", err)
	}
	logger.Info("Connected to source store")

	vectors, err := openVectorStore(cfg.VectorStore)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("create vector store: %w", err)
	}
	a.Vectors = vectors
	if err := a.Vectors.WaitForReady(ctx, seconds(cfg.VectorStore.ReadinessTimeout)); err != nil {
		a.Close()
		return nil, fmt.Errorf("vector store not ready: %w", err)
	}
	logger.Info("Connected to vector store", zap.String("driver", cfg.VectorStore.Driver))

	if cfg.Cache.Enabled {
		cache, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.Cache.Addrs,
			Password: cfg.Cache.Password,
		})
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("create cache store: %w", err)
		}
		a.Cache = cache
		logger.Info("Embedding cache enabled", zap.Strings("addrs", cfg.Cache.Addrs))
	}

	metrics.RegisterEmbeddingMetrics()
	metrics.RegisterSearchMetrics()
	metrics.RegisterHTTPMetrics()

	a.DocEmbedder = a.buildEmbedder(cfg.Embedding.DocumentInstruction)
	a.QueryEmbedder = a.buildEmbedder(cfg.Embedding.QueryInstruction)
	logger.Info("Embedders created",
		zap.String("model", cfg.Embedding.Model),
		zap.Int("dimensions", cfg.Embedding.Dimensions),
	)
	return a, nil
}

// Close releases every open store.
func (a *App) Close() {
	if a.Cache != nil {
		a.Cache.Close()
	}
	if a.Vectors != nil {
		a.Vectors.Close()
	}
	if a.Source != nil {
		a.Source.Close()
	}
}

// NewRunner builds the sync driver and its single-flight runner.
func (a *App) NewRunner(reg prometheus.Registerer) *ingest.Runner {
	cfg := a.Config
	logger := logpkg.WithComponent(a.Logger, "sync")

	resolver := ingest.NewResolver(a.Vectors, cfg.Sync.CursorUpperBound, cfg.Sync.CursorWindow, logger)
	driver := ingest.NewDriver(ingest.Deps{
		Source:     a.Source,
		Index:      a.Vectors,
		Resolver:   resolver,
		Embedder:   a.DocEmbedder,
		Normalizer: ingest.NewNormalizer(a.Labels.Skills, cfg.Sync.SkillsClause, cfg.Sync.MaxTextChars),
		Metrics:    metrics.NewSyncMetrics(reg),
		Logger:     logger,
	}, ingest.Config{
		Layout:       domain.VectorLayout(cfg.VectorStore.Layout),
		Dimensions:   cfg.VectorStore.Dimensions,
		HNSW:         db.HNSWParams{M: cfg.VectorStore.HNSWM, EFConstruct: cfg.VectorStore.HNSWEFConstruct},
		PageSize:     cfg.Sync.PageSize,
		MinTextChars: cfg.Sync.MinTextChars,
		Wait:         cfg.VectorStore.Wait(),
		Init:         retry.Policy{MaxAttempts: cfg.VectorStore.InitAttempts, Delay: cfg.VectorStore.InitDelay()},
		Upsert:       retry.Policy{MaxAttempts: cfg.Sync.UpsertAttempts, Delay: cfg.Sync.UpsertDelay()},
		BatchDelay:   cfg.Sync.BatchDelay(),
	})
	return ingest.NewRunner(driver, a.Source, resolver, logger)
}

// NewSearchService builds the planner, assembler and search service.
func (a *App) NewSearchService() (*searchuc.Service, error) {
	cfg := a.Config
	logger := logpkg.WithComponent(a.Logger, "search")

	strategy, err := fusion.Parse(cfg.Search.Fusion)
	if err != nil {
		return nil, fmt.Errorf("search fusion: %w", err)
	}
	policy, err := facet.NewPolicy(cfg.Search.Facets)
	if err != nil {
		return nil, fmt.Errorf("search facets: %w", err)
	}

	var expander domain.Expander
	if cfg.Search.Expansion.Enabled {
		expander = openaiEmb.NewExpander(&openaiEmb.ExpanderConfig{
			APIKey:       cfg.Expansion.APIKey,
			BaseURL:      cfg.Expansion.BaseURL,
			Model:        cfg.Expansion.Model,
			SystemPrompt: cfg.Expansion.SystemPrompt,
			MaxWords:     cfg.Expansion.MaxWords,
			RatePerSec:   cfg.Expansion.RatePerSec,
			Burst:        cfg.Expansion.Burst,
			Timeout:      seconds(cfg.Expansion.TimeoutSec),
			Logger:       logger,
		})
	}

	planner := searchuc.NewPlanner(a.QueryEmbedder, expander, searchuc.PlannerConfig{
		Layout:             domain.VectorLayout(cfg.VectorStore.Layout),
		Fusion:             strategy,
		Limit:              cfg.Search.Limit,
		PrefetchLimit:      cfg.Search.PrefetchLimit,
		Policy:             policy,
		Lexical:            cfg.Search.Lexical.Enabled,
		Expansion:          cfg.Search.Expansion.Enabled,
		MaxExpansionTokens: cfg.Search.Expansion.MaxTokens,
	}, logger)
	assembler := searchuc.NewAssembler(a.Source, a.Labels.Skills, logger)
	return searchuc.New(planner, a.Vectors, assembler, logger), nil
}

// NewHealthService registers the source, vector store, embedding and cache checks.
func (a *App) NewHealthService() *healthuc.Service {
	svc := healthuc.New().
		Critical(healthuc.Source, a.Source).
		Critical(healthuc.VectorStore, a.Vectors)
	if hc, ok := a.DocEmbedder.(domain.HealthChecker); ok {
		svc.Optional(healthuc.Embedding, hc.HealthCheck)
	}
	if a.Cache != nil {
		svc.Optional(healthuc.Cache, a.Cache.Ping)
	}
	return svc
}

// buildEmbedder assembles the decorator chain: OpenAI -> Cached -> Instrumented -> Instruction.
func (a *App) buildEmbedder(instruction string) domain.Embedder {
	cfg := a.Config.Embedding

	base := openaiEmb.NewEmbedder(&openaiEmb.Config{
		APIKey:     cfg.APIKey,
		BaseURL:    cfg.BaseURL,
		Model:      cfg.Model,
		Dimensions: cfg.Dimensions,
		Provider:   embeddingProvider,
		Timeout:    seconds(cfg.TimeoutSec),
		Logger:     a.Logger,
	})

	var embedder domain.Embedder = base
	if a.Cache != nil {
		embedder = embcache.New(base, a.Cache, embcache.Options{
			Prefix: a.Config.Cache.Prefix,
			Model:  cfg.Model,
			TTL:    seconds(a.Config.Cache.TTLSec),
		}, metrics.EmbeddingCacheTotal, a.Logger)
	}

	embedder = embeddinguc.NewInstrumentedEmbedder(embedder, embeddinguc.Options{
		Provider:  embeddingProvider,
		Model:     cfg.Model,
		ChunkSize: cfg.BatchSize,
		Parallel:  cfg.Parallel,
	}, a.Logger)

	// outermost, so the cache key includes the instruction
	if instruction != "" {
		return domain.NewInstructionEmbedder(embedder, instruction)
	}
	return embedder
}

func openVectorStore(cfg config.VectorStoreConfig) (db.VectorStore, error) {
	layout := domain.VectorLayout(cfg.Layout)
	switch cfg.Driver {
	case "qdrant":
		s, err := dbQdrant.NewStore(dbQdrant.Config{
			Addr:       cfg.Addr,
			APIKey:     cfg.APIKey,
			UseTLS:     cfg.UseTLS,
			Collection: cfg.Collection,
			Layout:     layout,
			Dimensions: cfg.Dimensions,
		})
		if err != nil {
			return nil, err
		}
		return s, nil
	case "redis":
		s, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:      cfg.Addrs,
			Username:   cfg.Username,
			Password:   cfg.Password,
			DB:         cfg.DB,
			Index:      cfg.Index,
			Prefix:     cfg.Prefix,
			Layout:     layout,
			Dimensions: cfg.Dimensions,
		})
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown vector store driver %q", cfg.Driver)
	}
}

func seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}
