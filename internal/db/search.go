package db

import (
	"github.com/kailas-cloud/candex/internal/domain/search/fusion"
	"github.com/kailas-cloud/candex/internal/domain/search/request"
)

// Query is the input of VectorStore.Query.
type Query struct {
	Vector        []float32
	Probes        []request.Probe
	Fusion        fusion.Strategy
	Limit         int
	PrefetchLimit int
}

// QueryFromRetrieval converts a planned retrieval into a store query.
// With fusion "none" only the first probe is kept.
func QueryFromRetrieval(r *request.Retrieval) *Query {
	probes := r.Probes()
	if r.Fusion() == fusion.None && len(probes) > 1 {
		probes = probes[:1]
	}
	return &Query{
		Vector:        r.Vector(),
		Probes:        probes,
		Fusion:        r.Fusion(),
		Limit:         r.Limit(),
		PrefetchLimit: r.PrefetchLimit(),
	}
}
