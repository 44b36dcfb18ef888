package ingest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/candex/internal/domain"
)

// Status is a snapshot of the runner.
type Status struct {
	Running   bool
	StartedAt time.Time
	Last      *Report
	LastErr   error
}

// Runner executes sync runs one at a time in the background.
type Runner struct {
	driver   *Driver
	source   Source
	resolver CursorResolver
	logger   *zap.Logger

	run sync.Mutex // held for the duration of a run
	wg  sync.WaitGroup

	mu        sync.Mutex
	running   bool
	startedAt time.Time
	last      *Report
	lastErr   error
	cancel    context.CancelFunc
}

// NewRunner creates a single-flight runner around driver.
func NewRunner(driver *Driver, source Source, resolver CursorResolver, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{driver: driver, source: source, resolver: resolver, logger: logger}
}

// Start launches a background run. It returns domain.ErrSyncInProgress when a run is in flight.
// The run outlives ctx cancellation; use Shutdown to stop it.
func (r *Runner) Start(ctx context.Context, opts Options) error {
	if !r.run.TryLock() {
		return domain.ErrSyncInProgress
	}
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	r.begin(cancel)

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer r.run.Unlock()
		defer cancel()
		rep, err := r.driver.Run(runCtx, opts)
		r.finish(rep, err)
	}()
	return nil
}

// RunSync runs in the calling goroutine and returns the report.
func (r *Runner) RunSync(ctx context.Context, opts Options) (Report, error) {
	if !r.run.TryLock() {
		return Report{}, domain.ErrSyncInProgress
	}
	defer r.run.Unlock()
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	r.begin(cancel)

	rep, err := r.driver.Run(runCtx, opts)
	r.finish(rep, err)
	return rep, err
}

// CatchUp starts a background run when the index is behind the source store.
// It reports whether a run was started.
func (r *Runner) CatchUp(ctx context.Context) (bool, error) {
	cursor, err := r.resolver.Resolve(ctx)
	if err != nil {
		return false, fmt.Errorf("resolve cursor: %w", err)
	}
	target, err := r.source.MaxID(ctx)
	if err != nil {
		return false, fmt.Errorf("source max id: %w: %w", domain.ErrUnavailable, err)
	}
	if cursor >= target {
		r.logger.Info("Index is up to date",
			zap.Int64("cursor", cursor),
			zap.Int64("target", target),
		)
		return false, nil
	}

	r.logger.Info("Index is behind, starting catch-up sync",
		zap.Int64("cursor", cursor),
		zap.Int64("target", target),
		zap.Int64("lag", target-cursor),
	)
	if err := r.Start(ctx, Options{}); err != nil {
		return false, err
	}
	return true, nil
}

// Status returns the current runner state.
func (r *Runner) Status() Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	return Status{
		Running:   r.running,
		StartedAt: r.startedAt,
		Last:      r.last,
		LastErr:   r.lastErr,
	}
}

// Wait blocks until the background run, if any, returns.
func (r *Runner) Wait() {
	r.wg.Wait()
}

// Shutdown cancels an in-flight run and waits for it or for ctx.
func (r *Runner) Shutdown(ctx context.Context) error {
	r.mu.Lock()
	if r.cancel != nil {
		r.cancel()
	}
	r.mu.Unlock()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("sync shutdown: %w", ctx.Err())
	}
}

func (r *Runner) begin(cancel context.CancelFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.running = true
	r.startedAt = time.Now()
	r.cancel = cancel
}

func (r *Runner) finish(rep Report, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.running = false
	r.last = &rep
	r.lastErr = err
	r.cancel = nil
}
