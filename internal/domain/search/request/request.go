package request

import (
	"fmt"

	"github.com/kailas-cloud/candex/internal/domain/search/filter"
	"github.com/kailas-cloud/candex/internal/domain/search/fusion"
)

// Retrieval parameter limits.
const (
	// MaxQueryLength is the maximum allowed search query length.
	MaxQueryLength       = 4096
	DefaultLimit         = 30
	MaxLimit             = 500
	DefaultPrefetchLimit = 100
)

// Kind labels the role of a probe in the plan.
type Kind string

// Probe kinds.
const (
	KindBase    Kind = "base"
	KindBoost   Kind = "boost"
	KindLexical Kind = "lexical"
)

// Probe is one sub-query: nearest neighbours in a vector space restricted by
// must predicates, optionally with a full-text match on the content field.
type Probe struct {
	kind  Kind
	using string
	must  []filter.Predicate
	text  string
}

// NewProbe creates a vector probe over the given space.
func NewProbe(kind Kind, using string, must []filter.Predicate) Probe {
	return Probe{kind: kind, using: using, must: must}
}

// NewLexicalProbe creates a probe that additionally requires a text match.
func NewLexicalProbe(using string, must []filter.Predicate, text string) Probe {
	return Probe{kind: KindLexical, using: using, must: must, text: text}
}

// Kind returns the probe role.
func (p Probe) Kind() Kind { return p.kind }

// Using returns the vector space name ("" for the unnamed vector).
func (p Probe) Using() string { return p.using }

// Must returns the predicates every candidate of this probe satisfies.
func (p Probe) Must() []filter.Predicate { return p.must }

// Text returns the full-text term, empty for pure vector probes.
func (p Probe) Text() string { return p.text }

// Retrieval is a planned search: one query vector, several probes and a fusion rule.
type Retrieval struct {
	query        string
	embeddedText string
	expanded     bool
	vector       []float32
	probes       []Probe
	filters      filter.Spec
	fusion       fusion.Strategy
	limit        int
	prefetch     int
}

// Params groups the inputs of New.
type Params struct {
	Query         string
	EmbeddedText  string
	Expanded      bool
	Vector        []float32
	Probes        []Probe
	Filters       filter.Spec
	Fusion        fusion.Strategy
	Limit         int
	PrefetchLimit int
}

// New validates and normalizes a retrieval plan.
// Defaults: fusion=rrf, limit=30, prefetch=100. Prefetch is raised to limit.
func New(p Params) (Retrieval, error) {
	if p.Query == "" {
		return Retrieval{}, fmt.Errorf("query is required")
	}
	if len(p.Query) > MaxQueryLength {
		return Retrieval{}, fmt.Errorf("query too long (max %d chars)", MaxQueryLength)
	}
	if len(p.Vector) == 0 {
		return Retrieval{}, fmt.Errorf("query vector is required")
	}
	if len(p.Probes) == 0 {
		return Retrieval{}, fmt.Errorf("at least one probe is required")
	}
	if p.Fusion == "" {
		p.Fusion = fusion.RRF
	}
	if !p.Fusion.IsValid() {
		return Retrieval{}, fmt.Errorf("invalid fusion strategy: %q", p.Fusion)
	}
	if p.Limit <= 0 {
		p.Limit = DefaultLimit
	}
	if p.Limit > MaxLimit {
		p.Limit = MaxLimit
	}
	if p.PrefetchLimit <= 0 {
		p.PrefetchLimit = DefaultPrefetchLimit
	}
	if p.PrefetchLimit < p.Limit {
		p.PrefetchLimit = p.Limit
	}
	if p.EmbeddedText == "" {
		p.EmbeddedText = p.Query
	}

	return Retrieval{
		query:        p.Query,
		embeddedText: p.EmbeddedText,
		expanded:     p.Expanded,
		vector:       p.Vector,
		probes:       p.Probes,
		filters:      p.Filters,
		fusion:       p.Fusion,
		limit:        p.Limit,
		prefetch:     p.PrefetchLimit,
	}, nil
}

// Query returns the raw user query.
func (r *Retrieval) Query() string { return r.query }

// EmbeddedText returns the text that produced the query vector.
func (r *Retrieval) EmbeddedText() string { return r.embeddedText }

// Expanded reports whether the query was expanded before embedding.
func (r *Retrieval) Expanded() bool { return r.expanded }

// Vector returns the query vector shared by every probe.
func (r *Retrieval) Vector() []float32 { return r.vector }

// Probes returns the sub-queries in plan order.
func (r *Retrieval) Probes() []Probe { return r.probes }

// Filters returns the filter specification the probes were derived from.
func (r *Retrieval) Filters() filter.Spec { return r.filters }

// Fusion returns the fusion strategy.
func (r *Retrieval) Fusion() fusion.Strategy { return r.fusion }

// Limit returns the maximum results to return.
func (r *Retrieval) Limit() int { return r.limit }

// PrefetchLimit returns the per-probe candidate count.
func (r *Retrieval) PrefetchLimit() int { return r.prefetch }
