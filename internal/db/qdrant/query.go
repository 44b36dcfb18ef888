package qdrant

import (
	"context"
	"fmt"

	"github.com/qdrant/go-client/qdrant"

	"github.com/kailas-cloud/candex/internal/db"
	"github.com/kailas-cloud/candex/internal/domain/search/fusion"
	"github.com/kailas-cloud/candex/internal/domain/search/request"
	"github.com/kailas-cloud/candex/internal/domain/search/result"
)

// Query runs the probes as server-side prefetches fused by Qdrant. With fusion
// "none" the first probe is issued as a plain nearest-neighbour query.
func (s *Store) Query(ctx context.Context, q *db.Query) ([]result.Hit, error) {
	if len(q.Vector) == 0 {
		return nil, fmt.Errorf("vector is required")
	}
	if len(q.Probes) == 0 {
		return nil, fmt.Errorf("at least one probe is required")
	}

	limit := uint64(q.Limit)
	req := &qdrant.QueryPoints{
		CollectionName: s.collection,
		Limit:          &limit,
		WithPayload:    withPayload(true),
	}

	if q.Fusion == fusion.None || len(q.Probes) == 1 {
		p := q.Probes[0]
		req.Query = nearest(q.Vector)
		req.Using = using(p)
		req.Filter = toFilter(p.Must(), s.schema.TextField, p.Text())
	} else {
		prefetch := uint64(q.PrefetchLimit)
		if prefetch == 0 {
			prefetch = request.DefaultPrefetchLimit
		}
		for _, p := range q.Probes {
			req.Prefetch = append(req.Prefetch, &qdrant.PrefetchQuery{
				Query:  nearest(q.Vector),
				Using:  using(p),
				Filter: toFilter(p.Must(), s.schema.TextField, p.Text()),
				Limit:  &prefetch,
			})
		}
		req.Query = fusionQuery(q.Fusion)
	}

	resp, err := s.points.Query(ctx, req)
	if err != nil {
		return nil, &db.Error{Op: db.OpQdrantQuery, Err: err}
	}

	hits := make([]result.Hit, 0, len(resp.GetResult()))
	for _, sp := range resp.GetResult() {
		hits = append(hits, result.NewHit(int64(sp.GetId().GetNum()), float64(sp.GetScore()), fromPayload(sp.GetPayload())))
	}
	return hits, nil
}

func nearest(v []float32) *qdrant.Query {
	return &qdrant.Query{
		Variant: &qdrant.Query_Nearest{
			Nearest: &qdrant.VectorInput{Variant: &qdrant.VectorInput_Dense{Dense: &qdrant.DenseVector{Data: v}}},
		},
	}
}

func fusionQuery(s fusion.Strategy) *qdrant.Query {
	f := qdrant.Fusion_RRF
	if s == fusion.DBSF {
		f = qdrant.Fusion_DBSF
	}
	return &qdrant.Query{Variant: &qdrant.Query_Fusion{Fusion: f}}
}

func using(p request.Probe) *string {
	if p.Using() == "" {
		return nil
	}
	name := p.Using()
	return &name
}
