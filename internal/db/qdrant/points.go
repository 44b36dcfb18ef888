package qdrant

import (
	"context"
	"fmt"

	"github.com/qdrant/go-client/qdrant"

	"github.com/kailas-cloud/candex/internal/db"
	"github.com/kailas-cloud/candex/internal/domain"
)

// Upsert writes whole points in one call. With wait the call returns after the
// write is applied, otherwise once it is acknowledged.
func (s *Store) Upsert(ctx context.Context, points []domain.IndexPoint, wait bool) error {
	if len(points) == 0 {
		return nil
	}

	structs := make([]*qdrant.PointStruct, len(points))
	for i := range points {
		structs[i] = &qdrant.PointStruct{
			Id:      pointID(points[i].ID),
			Vectors: toVectors(points[i].Vectors),
			Payload: toPayload(&points[i].Payload, s.schema.IsList),
		}
	}

	resp, err := s.points.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: s.collection,
		Wait:           &wait,
		Points:         structs,
	})
	if err != nil {
		return &db.Error{Op: db.OpQdrantUpsert, Err: err}
	}
	switch st := resp.GetResult().GetStatus(); st {
	case qdrant.UpdateStatus_Completed, qdrant.UpdateStatus_Acknowledged:
		return nil
	default:
		return &db.Error{Op: db.OpQdrantUpsert, Err: fmt.Errorf("unexpected update status %s", st)}
	}
}

// ScrollIDs returns ids >= offset in ascending order. Numeric ids scroll in id order.
func (s *Store) ScrollIDs(ctx context.Context, offset int64, limit int) ([]int64, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be positive")
	}
	lim := uint32(limit)
	resp, err := s.points.Scroll(ctx, &qdrant.ScrollPoints{
		CollectionName: s.collection,
		Offset:         pointID(max(offset, 0)),
		Limit:          &lim,
		WithPayload:    withPayload(false),
	})
	if err != nil {
		return nil, &db.Error{Op: db.OpQdrantScroll, Err: err}
	}

	ids := make([]int64, 0, len(resp.GetResult()))
	for _, p := range resp.GetResult() {
		ids = append(ids, int64(p.GetId().GetNum()))
	}
	return ids, nil
}
