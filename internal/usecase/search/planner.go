package search

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/kailas-cloud/candex/internal/domain"
	"github.com/kailas-cloud/candex/internal/domain/search/facet"
	"github.com/kailas-cloud/candex/internal/domain/search/filter"
	"github.com/kailas-cloud/candex/internal/domain/search/fusion"
	"github.com/kailas-cloud/candex/internal/domain/search/request"
	"github.com/kailas-cloud/candex/internal/metrics"
)

// DefaultMaxExpansionTokens is the longest query, in words, that still gets expanded.
const DefaultMaxExpansionTokens = 8

// PlannerConfig holds the search settings read from configuration.
type PlannerConfig struct {
	Layout             domain.VectorLayout
	Fusion             fusion.Strategy
	Limit              int
	PrefetchLimit      int
	Policy             facet.Policy
	Lexical            bool
	Expansion          bool
	MaxExpansionTokens int
}

// Planner turns a raw query and facet selection into a retrieval plan.
type Planner struct {
	embedder domain.Embedder
	expander domain.Expander
	cfg      PlannerConfig
	logger   *zap.Logger
}

// NewPlanner creates a planner. expander may be nil when expansion is disabled.
func NewPlanner(embedder domain.Embedder, expander domain.Expander, cfg PlannerConfig, logger *zap.Logger) *Planner {
	if !cfg.Layout.IsValid() {
		cfg.Layout = domain.LayoutNamed
	}
	if cfg.Fusion == "" {
		cfg.Fusion = fusion.RRF
	}
	if cfg.MaxExpansionTokens <= 0 {
		cfg.MaxExpansionTokens = DefaultMaxExpansionTokens
	}
	if expander == nil {
		cfg.Expansion = false
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Planner{embedder: embedder, expander: expander, cfg: cfg, logger: logger}
}

// Plan builds the retrieval for query. The query must not be blank.
func (p *Planner) Plan(ctx context.Context, query string, sel facet.Selection) (request.Retrieval, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return request.Retrieval{}, errors.New("query is required")
	}

	spec, err := p.filterSpec(sel)
	if err != nil {
		return request.Retrieval{}, err
	}

	text, expanded := p.expand(ctx, query)

	emb, err := p.embedder.Embed(ctx, text)
	if err != nil {
		return request.Retrieval{}, fmt.Errorf("embed query: %w", err)
	}

	return request.New(request.Params{
		Query:         query,
		EmbeddedText:  text,
		Expanded:      expanded,
		Vector:        emb.Embedding,
		Probes:        p.probes(spec, query),
		Filters:       spec,
		Fusion:        p.cfg.Fusion,
		Limit:         p.cfg.Limit,
		PrefetchLimit: p.cfg.PrefetchLimit,
	})
}

// filterSpec splits the selected facets into required and optional predicates.
func (p *Planner) filterSpec(sel facet.Selection) (filter.Spec, error) {
	var required, optional []filter.Predicate
	for _, name := range sel.Names() {
		vals := sel.Values(name)
		var (
			pred filter.Predicate
			err  error
		)
		if len(vals) == 1 {
			pred, err = filter.NewEquals(string(name), vals[0])
		} else {
			pred, err = filter.NewAnyOf(string(name), vals...)
		}
		if err != nil {
			return filter.Spec{}, fmt.Errorf("%w: %w", domain.ErrInvalidFacet, err)
		}
		if p.cfg.Policy.ModeOf(name) == facet.Optional {
			optional = append(optional, pred)
		} else {
			required = append(required, pred)
		}
	}
	spec, err := filter.NewSpec(required, optional)
	if err != nil {
		return filter.Spec{}, fmt.Errorf("%w: %w", domain.ErrInvalidFacet, err)
	}
	return spec, nil
}

// probes returns base probes per space, boost probes when optional predicates exist,
// and the lexical probe last. Without fusion there is a single base probe on the
// content space, the vector that embeds the full normalized text.
func (p *Planner) probes(spec filter.Spec, query string) []request.Probe {
	if p.cfg.Fusion == fusion.None {
		return []request.Probe{request.NewProbe(request.KindBase, p.cfg.Layout.ContentSpace(), spec.Required())}
	}
	spaces := p.cfg.Layout.Spaces()
	out := make([]request.Probe, 0, 2*len(spaces)+1)
	for _, space := range spaces {
		out = append(out, request.NewProbe(request.KindBase, space, spec.Required()))
	}
	if spec.HasOptional() {
		for _, space := range spaces {
			out = append(out, request.NewProbe(request.KindBoost, space, spec.Boosted()))
		}
	}
	if p.cfg.Lexical {
		out = append(out, request.NewLexicalProbe(p.cfg.Layout.ContentSpace(), spec.Required(), query))
	}
	return out
}

// expand returns the text to embed and whether it was expanded.
// Failures fall back to the raw query.
func (p *Planner) expand(ctx context.Context, query string) (string, bool) {
	if !p.cfg.Expansion {
		return query, false
	}
	if len(strings.Fields(query)) > p.cfg.MaxExpansionTokens {
		metrics.QueryExpansionTotal.WithLabelValues("skipped").Inc()
		return query, false
	}

	extra, err := p.expander.Expand(ctx, query)
	extra = strings.TrimSpace(extra)
	if err != nil || extra == "" {
		metrics.QueryExpansionTotal.WithLabelValues("fallback").Inc()
		p.logger.Warn("Query expansion failed, using raw query",
			zap.String("query", query),
			zap.Error(err),
		)
		return query, false
	}

	metrics.QueryExpansionTotal.WithLabelValues("expanded").Inc()
	return query + " " + extra, true
}
