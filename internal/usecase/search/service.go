package search

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/candex/internal/db"
	"github.com/kailas-cloud/candex/internal/domain/search/facet"
	"github.com/kailas-cloud/candex/internal/domain/search/fusion"
	"github.com/kailas-cloud/candex/internal/domain/search/request"
	"github.com/kailas-cloud/candex/internal/domain/search/result"
	"github.com/kailas-cloud/candex/internal/metrics"
)

// Outcome is a finished search.
type Outcome struct {
	Query    string
	Expanded bool
	Results  []result.Enriched
}

// Service runs plan, query, re-rank and assembly for a search request.
type Service struct {
	planner   *Planner
	store     Querier
	assembler *Assembler
	logger    *zap.Logger
}

// New creates a search service.
func New(planner *Planner, store Querier, assembler *Assembler, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{planner: planner, store: store, assembler: assembler, logger: logger}
}

// Search returns the enriched results of query under the facet selection.
func (s *Service) Search(ctx context.Context, query string, sel facet.Selection) ([]result.Enriched, error) {
	out, err := s.Run(ctx, query, sel)
	if err != nil {
		return nil, err
	}
	return out.Results, nil
}

// Run is Search with the plan details the HTTP layer reports.
// A blank query returns no results without embedding.
func (s *Service) Run(ctx context.Context, query string, sel facet.Selection) (Outcome, error) {
	start := time.Now()
	query = strings.TrimSpace(query)
	if query == "" {
		metrics.SearchRequestsTotal.WithLabelValues("empty").Inc()
		return Outcome{Results: []result.Enriched{}}, nil
	}

	out, err := s.run(ctx, query, sel)
	metrics.SearchDuration.WithLabelValues("total").Observe(time.Since(start).Seconds())
	switch {
	case err != nil:
		metrics.SearchRequestsTotal.WithLabelValues("error").Inc()
	case len(out.Results) == 0:
		metrics.SearchRequestsTotal.WithLabelValues("empty").Inc()
	default:
		metrics.SearchRequestsTotal.WithLabelValues("ok").Inc()
	}
	return out, err
}

func (s *Service) run(ctx context.Context, query string, sel facet.Selection) (Outcome, error) {
	stage := time.Now()
	plan, err := s.planner.Plan(ctx, query, sel)
	if err != nil {
		return Outcome{}, fmt.Errorf("plan: %w", err)
	}
	metrics.SearchDuration.WithLabelValues("plan").Observe(time.Since(stage).Seconds())

	stage = time.Now()
	q := db.QueryFromRetrieval(&plan)
	if plan.Fusion() == fusion.None && plan.Filters().HasOptional() {
		q.Limit = plan.PrefetchLimit()
	}
	hits, err := s.store.Query(ctx, q)
	if err != nil {
		return Outcome{}, fmt.Errorf("query vector store: %w", err)
	}
	metrics.SearchDuration.WithLabelValues("query").Observe(time.Since(stage).Seconds())

	if plan.Fusion() == fusion.None {
		hits = rerankByOptional(hits, &plan)
	}
	if len(hits) > plan.Limit() {
		hits = hits[:plan.Limit()]
	}

	stage = time.Now()
	results, err := s.assembler.Assemble(ctx, hits)
	if err != nil {
		return Outcome{}, fmt.Errorf("assemble: %w", err)
	}
	metrics.SearchDuration.WithLabelValues("assemble").Observe(time.Since(stage).Seconds())

	s.logger.Debug("Search finished",
		zap.String("query", query),
		zap.Bool("expanded", plan.Expanded()),
		zap.Int("probes", len(q.Probes)),
		zap.Int("hits", len(hits)),
		zap.Int("results", len(results)),
	)
	return Outcome{Query: query, Expanded: plan.Expanded(), Results: results}, nil
}

// rerankByOptional orders hits by satisfied optional predicates, then score. The sort is stable.
func rerankByOptional(hits []result.Hit, plan *request.Retrieval) []result.Hit {
	spec := plan.Filters()
	if !spec.HasOptional() || len(hits) < 2 {
		return hits
	}
	matched := make(map[int64]int, len(hits))
	for _, h := range hits {
		payload := h.Payload()
		matched[h.ID()] = spec.OptionalHits(payload.Ints)
	}
	sort.SliceStable(hits, func(i, j int) bool {
		mi, mj := matched[hits[i].ID()], matched[hits[j].ID()]
		if mi != mj {
			return mi > mj
		}
		return hits[i].Score() > hits[j].Score()
	})
	return hits
}
