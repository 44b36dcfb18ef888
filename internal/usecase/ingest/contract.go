package ingest

import (
	"context"

	"github.com/kailas-cloud/candex/internal/db"
	"github.com/kailas-cloud/candex/internal/domain"
)

// Source reads profiles from the authoritative store.
type Source interface {
	MaxID(ctx context.Context) (int64, error)
	FetchPage(ctx context.Context, cursor int64, limit int) ([]domain.Profile, error)
}

// Index is the vector store view the sync driver writes through.
type Index interface {
	db.Prober
	EnsureCollection(ctx context.Context, schema *db.CollectionSchema) error
	Upsert(ctx context.Context, points []domain.IndexPoint, wait bool) error
}

// CursorResolver rederives the sync watermark from the index.
type CursorResolver interface {
	Resolve(ctx context.Context) (int64, error)
}
