package db

import (
	"context"
	"time"

	"github.com/kailas-cloud/candex/internal/domain"
	"github.com/kailas-cloud/candex/internal/domain/search/result"
)

// VectorStore is the port every vector index backend implements.
type VectorStore interface {
	Pinger
	Prober
	EnsureCollection(ctx context.Context, schema *CollectionSchema) error
	Upsert(ctx context.Context, points []domain.IndexPoint, wait bool) error
	Query(ctx context.Context, q *Query) ([]result.Hit, error)
	WaitForReady(ctx context.Context, timeout time.Duration) error
	Close()
}

// Prober is the read-only view the cursor resolver needs.
type Prober interface {
	CollectionExists(ctx context.Context) (bool, error)
	// ScrollIDs returns ids of points with id >= offset in ascending order, at most limit.
	ScrollIDs(ctx context.Context, offset int64, limit int) ([]int64, error)
}

// Pinger checks database connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// KVStore provides simple key-value operations.
type KVStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
}
