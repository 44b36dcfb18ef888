package ingest

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/kailas-cloud/candex/internal/db"
	"github.com/kailas-cloud/candex/internal/domain"
)

// Cursor search defaults.
const (
	DefaultCursorUpperBound int64 = 2_000_000
	DefaultCursorWindow           = 100
)

// Resolver rederives the highest indexed profile id by probing the vector store.
// The result is a lower bound and is never cached.
type Resolver struct {
	prober     db.Prober
	upperBound int64
	window     int
	logger     *zap.Logger
}

// NewResolver creates a cursor resolver. Non-positive bounds use the defaults.
func NewResolver(prober db.Prober, upperBound int64, window int, logger *zap.Logger) *Resolver {
	if upperBound <= 0 {
		upperBound = DefaultCursorUpperBound
	}
	if window <= 0 {
		window = DefaultCursorWindow
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{prober: prober, upperBound: upperBound, window: window, logger: logger}
}

// Resolve returns 0 for a missing or empty collection, otherwise the maximum id found by
// a binary search over [0, upperBound] followed by a window scan at the last present offset.
func (r *Resolver) Resolve(ctx context.Context) (int64, error) {
	exists, err := r.prober.CollectionExists(ctx)
	if err != nil {
		return 0, fmt.Errorf("collection exists: %w: %w", domain.ErrUnavailable, err)
	}
	if !exists {
		return 0, nil
	}

	nonEmpty, err := r.present(ctx, 0)
	if err != nil {
		return 0, err
	}
	if !nonEmpty {
		return 0, nil
	}

	beyond, err := r.present(ctx, r.upperBound+1)
	if err != nil {
		return 0, err
	}
	if beyond {
		return 0, fmt.Errorf("%w: points exist above %d", domain.ErrCursorBoundExceeded, r.upperBound)
	}

	low, high := int64(0), r.upperBound
	var last int64
	probes := 0
	for low <= high {
		mid := low + (high-low)/2
		ok, err := r.present(ctx, mid)
		if err != nil {
			return 0, err
		}
		probes++
		if ok {
			last = mid
			low = mid + 1
		} else {
			high = mid - 1
		}
	}

	ids, err := r.prober.ScrollIDs(ctx, last, r.window)
	if err != nil {
		return 0, fmt.Errorf("scroll window at %d: %w: %w", last, domain.ErrUnavailable, err)
	}
	maxID := last
	for _, id := range ids {
		maxID = max(maxID, id)
	}

	r.logger.Debug("Cursor resolved",
		zap.Int64("cursor", maxID),
		zap.Int64("offset", last),
		zap.Int("probes", probes),
	)
	return maxID, nil
}

func (r *Resolver) present(ctx context.Context, offset int64) (bool, error) {
	ids, err := r.prober.ScrollIDs(ctx, offset, 1)
	if err != nil {
		return false, fmt.Errorf("probe offset %d: %w: %w", offset, domain.ErrUnavailable, err)
	}
	return len(ids) > 0, nil
}
