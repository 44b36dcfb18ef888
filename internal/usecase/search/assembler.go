package search

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/kailas-cloud/candex/internal/domain/labels"
	"github.com/kailas-cloud/candex/internal/domain/search/result"
	"github.com/kailas-cloud/candex/internal/metrics"
)

// Assembler joins vector hits with fresh source rows.
type Assembler struct {
	rows   RowReader
	skills labels.Dictionary
	logger *zap.Logger
}

// NewAssembler creates an assembler. skills maps skill ids to labels and may be nil.
func NewAssembler(rows RowReader, skills labels.Dictionary, logger *zap.Logger) *Assembler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Assembler{rows: rows, skills: skills, logger: logger}
}

// Assemble loads the rows of hits in one call and keeps hit order.
// Hits whose row is gone (deleted since indexing) are dropped.
func (a *Assembler) Assemble(ctx context.Context, hits []result.Hit) ([]result.Enriched, error) {
	if len(hits) == 0 {
		return []result.Enriched{}, nil
	}

	ids := make([]int64, len(hits))
	for i, h := range hits {
		ids[i] = h.ID()
	}
	rows, err := a.rows.FetchByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("fetch rows: %w", err)
	}

	out := make([]result.Enriched, 0, len(hits))
	dropped := 0
	for _, h := range hits {
		row, ok := rows[h.ID()]
		if !ok {
			dropped++
			continue
		}
		out = append(out, result.NewEnriched(h, row, a.skills.MapList(row.Skills)))
	}
	if dropped > 0 {
		metrics.SearchDroppedHitsTotal.Add(float64(dropped))
		a.logger.Debug("Dropped stale hits", zap.Int("dropped", dropped), zap.Int("hits", len(hits)))
	}
	return out, nil
}
