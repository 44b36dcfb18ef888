package ingest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/kailas-cloud/candex/internal/db"
	"github.com/kailas-cloud/candex/internal/domain"
	"github.com/kailas-cloud/candex/internal/metrics"
	"github.com/kailas-cloud/candex/internal/retry"
)

// State is a sync driver phase.
type State int

// Driver states in transition order.
const (
	StateIdle State = iota
	StateResolving
	StateFetching
	StateEmbedding
	StateUpserting
	StateAdvancing
	StateDone
	StateFailed
)

var stateNames = [...]string{"idle", "resolving", "fetching", "embedding", "upserting", "advancing", "done", "failed"}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("state(%d)", int(s))
	}
	return stateNames[s]
}

// Skip reasons.
const (
	SkipShortText  = "short_text"
	SkipEmbedError = "embed_error"
)

// DefaultPageSize is the number of profiles fetched per batch.
const DefaultPageSize = 100

// Options are per-run overrides.
type Options struct {
	StartID    int64 // 0 = none
	ForceStart bool  // start exactly at StartID instead of max(StartID, resolved)
	PageSize   int   // 0 = driver default
}

// Config holds the driver tuning read from configuration.
type Config struct {
	Layout       domain.VectorLayout
	Dimensions   int
	HNSW         db.HNSWParams
	PageSize     int
	MinTextChars int
	Wait         bool
	Init         retry.Policy
	Upsert       retry.Policy
	BatchDelay   time.Duration
}

// Report summarizes a sync run.
type Report struct {
	Start    int64
	Target   int64
	Cursor   int64
	Batches  int
	Fetched  int
	Written  int
	Skipped  map[string]int
	Duration time.Duration
	State    State
}

// SkippedTotal returns the number of skipped records over all reasons.
func (r Report) SkippedTotal() int {
	n := 0
	for _, v := range r.Skipped {
		n += v
	}
	return n
}

// Deps are the collaborators of a Driver.
type Deps struct {
	Source     Source
	Index      Index
	Resolver   CursorResolver
	Embedder   domain.Embedder
	Normalizer *Normalizer
	Metrics    *metrics.SyncMetrics // nil registers on a private registry
	Logger     *zap.Logger
}

// Driver runs one resumable pass that copies profiles from the source store into the index.
type Driver struct {
	source     Source
	index      Index
	resolver   CursorResolver
	embedder   domain.Embedder
	normalizer *Normalizer
	cfg        Config
	metrics    *metrics.SyncMetrics
	logger     *zap.Logger
}

// NewDriver creates a sync driver.
func NewDriver(deps Deps, cfg Config) *Driver {
	if cfg.PageSize <= 0 {
		cfg.PageSize = DefaultPageSize
	}
	if cfg.MinTextChars <= 0 {
		cfg.MinTextChars = DefaultMinTextChars
	}
	if !cfg.Layout.IsValid() {
		cfg.Layout = domain.LayoutNamed
	}
	if cfg.Dimensions <= 0 {
		cfg.Dimensions = domain.DefaultDimensions
	}
	if cfg.Init.MaxAttempts <= 0 {
		cfg.Init = retry.Policy{MaxAttempts: 5, Delay: 3 * time.Second}
	}
	if cfg.Upsert.MaxAttempts <= 0 {
		cfg.Upsert = retry.Policy{MaxAttempts: 3, Delay: 2 * time.Second}
	}
	m := deps.Metrics
	if m == nil {
		m = metrics.NewSyncMetrics(prometheus.NewRegistry())
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	n := deps.Normalizer
	if n == nil {
		n = NewNormalizer(nil, "", 0)
	}
	return &Driver{
		source:     deps.Source,
		index:      deps.Index,
		resolver:   deps.Resolver,
		embedder:   deps.Embedder,
		normalizer: n,
		cfg:        cfg,
		metrics:    m,
		logger:     logger,
	}
}

// Run bootstraps the collection, resolves the cursor and syncs batches until the
// cursor reaches the source max id, a page comes back empty, or a step fails.
func (d *Driver) Run(ctx context.Context, opts Options) (Report, error) {
	started := time.Now()
	rep := Report{Skipped: map[string]int{}}
	d.setState(&rep, StateResolving)

	if err := d.bootstrap(ctx); err != nil {
		return d.fail(&rep, started, err)
	}

	resolved, err := d.resolver.Resolve(ctx)
	if err != nil {
		return d.fail(&rep, started, fmt.Errorf("resolve cursor: %w", err))
	}
	target, err := d.source.MaxID(ctx)
	if err != nil {
		return d.fail(&rep, started, fmt.Errorf("source max id: %w: %w", domain.ErrUnavailable, err))
	}

	override := opts.StartID > 0
	cursor := resolved
	if override {
		if opts.ForceStart {
			cursor = opts.StartID
		} else {
			cursor = max(opts.StartID, resolved)
		}
	}
	rep.Start, rep.Target, rep.Cursor = cursor, target, cursor
	d.metrics.Target.Set(float64(target))
	d.metrics.Cursor.Set(float64(cursor))

	if cursor >= target && !override {
		d.logger.Info("Index already synchronized",
			zap.Int64("cursor", cursor),
			zap.Int64("target", target),
		)
		return d.done(&rep, started), nil
	}

	pageSize := d.cfg.PageSize
	if opts.PageSize > 0 {
		pageSize = opts.PageSize
	}

	d.logger.Info("Sync started",
		zap.Int64("start", cursor),
		zap.Int64("target", target),
		zap.Int64("resolved", resolved),
		zap.Int("page_size", pageSize),
	)

	limiter := rate.NewLimiter(rate.Inf, 1)
	if d.cfg.BatchDelay > 0 {
		limiter = rate.NewLimiter(rate.Every(d.cfg.BatchDelay), 1)
	}

	for cursor < target {
		if err := ctx.Err(); err != nil {
			return d.fail(&rep, started, err)
		}
		if err := limiter.Wait(ctx); err != nil {
			return d.fail(&rep, started, fmt.Errorf("batch throttle: %w", err))
		}

		next, fetched, err := d.runBatch(ctx, &rep, cursor, pageSize)
		if err != nil {
			return d.fail(&rep, started, err)
		}
		if fetched == 0 {
			d.logger.Info("Source exhausted", zap.Int64("cursor", cursor))
			break
		}

		// skipped records still consume their id slot
		cursor = next
		rep.Cursor = cursor
		d.metrics.Cursor.Set(float64(cursor))
	}

	return d.done(&rep, started), nil
}

// runBatch processes one page and returns the id of its last record.
func (d *Driver) runBatch(ctx context.Context, rep *Report, cursor int64, pageSize int) (int64, int, error) {
	batchStart := time.Now()

	d.setState(rep, StateFetching)
	page, err := d.source.FetchPage(ctx, cursor, pageSize)
	if err != nil {
		return 0, 0, fmt.Errorf("fetch page after %d: %w: %w", cursor, domain.ErrUnavailable, err)
	}
	if len(page) == 0 {
		return cursor, 0, nil
	}

	d.setState(rep, StateEmbedding)
	points, skipped := d.buildPoints(ctx, page)

	d.setState(rep, StateUpserting)
	if len(points) > 0 {
		if err := d.upsert(ctx, points); err != nil {
			return 0, 0, err
		}
	}

	d.setState(rep, StateAdvancing)
	last := page[len(page)-1].ID

	rep.Batches++
	rep.Fetched += len(page)
	rep.Written += len(points)
	nSkipped := 0
	for reason, n := range skipped {
		rep.Skipped[reason] += n
		d.metrics.RecordsSkipped.WithLabelValues(reason).Add(float64(n))
		nSkipped += n
	}
	d.metrics.Batches.Inc()
	d.metrics.PointsWritten.Add(float64(len(points)))
	d.metrics.BatchDuration.Observe(time.Since(batchStart).Seconds())

	d.logger.Info("Batch synced",
		zap.Int("batch", rep.Batches),
		zap.Int("fetched", len(page)),
		zap.Int("written", len(points)),
		zap.Int("skipped", nSkipped),
		zap.Int64("cursor", last),
		zap.Int64("target", rep.Target),
		zap.Duration("duration", time.Since(batchStart)),
	)
	return last, len(page), nil
}

type candidate struct {
	profile  domain.Profile
	content  string
	position string
}

// buildPoints normalizes and embeds a page. Short texts and embedding failures skip the record.
func (d *Driver) buildPoints(ctx context.Context, page []domain.Profile) ([]domain.IndexPoint, map[string]int) {
	skipped := map[string]int{}
	named := d.cfg.Layout == domain.LayoutNamed

	cands := make([]candidate, 0, len(page))
	for _, p := range page {
		content := d.normalizer.Normalize(p)
		if TextLen(content) < d.cfg.MinTextChars {
			skipped[SkipShortText]++
			d.logger.Warn("Skipping profile with short text",
				zap.Int64("id", p.ID),
				zap.Int("chars", TextLen(content)),
			)
			continue
		}
		c := candidate{profile: p, content: content}
		if named {
			c.position = d.normalizer.PositionText(p)
		}
		cands = append(cands, c)
	}
	if len(cands) == 0 {
		return nil, skipped
	}

	texts := make([]string, 0, len(cands)*2)
	for _, c := range cands {
		texts = append(texts, c.content)
		if named {
			texts = append(texts, c.position)
		}
	}
	vecs := d.embedAll(ctx, texts)

	stride := 1
	if named {
		stride = 2
	}
	points := make([]domain.IndexPoint, 0, len(cands))
	for i, c := range cands {
		content := vecs[i*stride]
		var vectors map[string][]float32
		if named {
			position := vecs[i*stride+1]
			if content != nil && position != nil {
				vectors = map[string][]float32{domain.VectorContent: content, domain.VectorPosition: position}
			}
		} else if content != nil {
			vectors = map[string][]float32{domain.VectorDefault: content}
		}
		if vectors == nil {
			skipped[SkipEmbedError]++
			continue
		}

		pt := BuildPoint(c.profile, c.content, vectors)
		if err := pt.Validate(d.cfg.Dimensions); err != nil {
			skipped[SkipEmbedError]++
			d.logger.Warn("Skipping invalid point", zap.Int64("id", c.profile.ID), zap.Error(err))
			continue
		}
		points = append(points, pt)
	}
	return points, skipped
}

// embedAll embeds texts in one batch call when supported, falling back to one call per
// text so a single failure only loses that text. Failed entries are nil.
func (d *Driver) embedAll(ctx context.Context, texts []string) [][]float32 {
	if be, ok := d.embedder.(domain.BatchEmbedder); ok {
		res, err := be.BatchEmbed(ctx, texts)
		if err == nil && len(res.Embeddings) == len(texts) {
			return res.Embeddings
		}
		d.logger.Warn("Batch embedding failed, falling back to single calls",
			zap.Int("texts", len(texts)),
			zap.Error(err),
		)
	}

	out := make([][]float32, len(texts))
	for i, t := range texts {
		res, err := d.embedder.Embed(ctx, t)
		if err != nil {
			d.logger.Warn("Embedding failed, skipping text", zap.Int("index", i), zap.Error(err))
			continue
		}
		out[i] = res.Embedding
	}
	return out
}

func (d *Driver) upsert(ctx context.Context, points []domain.IndexPoint) error {
	err := d.cfg.Upsert.Do(ctx, func(ctx context.Context) error {
		return d.index.Upsert(ctx, points, d.cfg.Wait)
	}, func(attempt int, err error) {
		d.metrics.UpsertRetries.Inc()
		d.logger.Warn("Batch upsert failed, retrying",
			zap.Int("attempt", attempt),
			zap.Int("points", len(points)),
			zap.Error(err),
		)
	})
	if err != nil {
		return fmt.Errorf("%w: %d points: %w", domain.ErrUpsertFailed, len(points), err)
	}
	return nil
}

func (d *Driver) bootstrap(ctx context.Context) error {
	schema := db.ProfileSchema(d.cfg.Layout, d.cfg.Dimensions).WithHNSW(d.cfg.HNSW)
	err := d.cfg.Init.Do(ctx, func(ctx context.Context) error {
		err := d.index.EnsureCollection(ctx, schema)
		if errors.Is(err, db.ErrSchemaMismatch) {
			return retry.Permanent(err)
		}
		return err
	}, func(attempt int, err error) {
		d.logger.Warn("Collection bootstrap failed, retrying",
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
	})
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrCollectionBootstrap, err)
	}
	return nil
}

func (d *Driver) setState(rep *Report, s State) {
	if rep.State != s {
		d.logger.Debug("Sync state", zap.Stringer("from", rep.State), zap.Stringer("to", s))
	}
	rep.State = s
	d.metrics.State.Set(float64(s))
}

func (d *Driver) done(rep *Report, started time.Time) Report {
	d.setState(rep, StateDone)
	rep.Duration = time.Since(started)
	d.metrics.Runs.WithLabelValues("done").Inc()
	d.logger.Info("Sync finished",
		zap.Int64("cursor", rep.Cursor),
		zap.Int64("target", rep.Target),
		zap.Int("batches", rep.Batches),
		zap.Int("written", rep.Written),
		zap.Int("skipped", rep.SkippedTotal()),
		zap.Duration("duration", rep.Duration),
	)
	return *rep
}

func (d *Driver) fail(rep *Report, started time.Time, err error) (Report, error) {
	d.setState(rep, StateFailed)
	rep.Duration = time.Since(started)
	d.metrics.Runs.WithLabelValues("failed").Inc()
	level := d.logger.Error
	if errors.Is(err, context.Canceled) {
		level = d.logger.Warn
	}
	level("Sync failed",
		zap.Int64("cursor", rep.Cursor),
		zap.Int64("target", rep.Target),
		zap.Int("batches", rep.Batches),
		zap.Error(err),
	)
	return *rep, err
}
