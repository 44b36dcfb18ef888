package search

import (
	"context"

	"github.com/kailas-cloud/candex/internal/db"
	"github.com/kailas-cloud/candex/internal/domain"
	"github.com/kailas-cloud/candex/internal/domain/search/result"
)

// Querier runs a planned query against the vector store.
type Querier interface {
	Query(ctx context.Context, q *db.Query) ([]result.Hit, error)
}

// RowReader loads fresh display rows from the source store. Missing ids are absent from the map.
type RowReader interface {
	FetchByIDs(ctx context.Context, ids []int64) (map[int64]domain.DisplayFields, error)
}
