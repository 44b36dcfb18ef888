// Package fusion merges several ranked hit lists into one.
package fusion

import (
	"fmt"
	"math"
	"sort"

	"github.com/kailas-cloud/candex/internal/domain/search/result"
)

// Strategy selects how probe results are combined.
type Strategy string

// Supported strategies.
const (
	RRF  Strategy = "rrf"
	DBSF Strategy = "dbsf"
	None Strategy = "none"
)

// rrfK is the Reciprocal Rank Fusion constant (standard value from Cormack et al. 2009).
const rrfK = 60

// IsValid reports whether the strategy is known.
func (s Strategy) IsValid() bool {
	switch s {
	case RRF, DBSF, None:
		return true
	}
	return false
}

// Parse converts a config value into a Strategy. Empty means RRF.
func Parse(s string) (Strategy, error) {
	if s == "" {
		return RRF, nil
	}
	st := Strategy(s)
	if !st.IsValid() {
		return "", fmt.Errorf("unknown fusion strategy %q", s)
	}
	return st, nil
}

// Fuse combines lists with the given strategy and caps the output at limit.
// With None only the first list is used.
func Fuse(s Strategy, lists [][]result.Hit, limit int) []result.Hit {
	switch s {
	case DBSF:
		return DistributionBased(lists, limit)
	case None:
		if len(lists) == 0 {
			return nil
		}
		return capHits(lists[0], limit)
	default:
		return Reciprocal(lists, limit)
	}
}

// Reciprocal merges lists via Reciprocal Rank Fusion.
// score(d) = sum of 1/(k + rank_i(d) + 1) for each list where d appears.
// The first occurrence of a point keeps its payload.
func Reciprocal(lists [][]result.Hit, limit int) []result.Hit {
	return accumulate(lists, limit, func(list []result.Hit) []float64 {
		out := make([]float64, len(list))
		for rank := range list {
			out[rank] = 1.0 / float64(rrfK+rank+1)
		}
		return out
	})
}

// DistributionBased merges lists via Distribution-Based Score Fusion: each list's
// scores are normalized against mean ± 3 standard deviations, then summed.
func DistributionBased(lists [][]result.Hit, limit int) []result.Hit {
	return accumulate(lists, limit, func(list []result.Hit) []float64 {
		out := make([]float64, len(list))
		if len(list) == 0 {
			return out
		}
		var sum float64
		for _, h := range list {
			sum += h.Score()
		}
		mean := sum / float64(len(list))
		var variance float64
		for _, h := range list {
			d := h.Score() - mean
			variance += d * d
		}
		std := math.Sqrt(variance / float64(len(list)))
		if std == 0 {
			for i := range out {
				out[i] = 0.5
			}
			return out
		}
		lo, hi := mean-3*std, mean+3*std
		for i, h := range list {
			n := (h.Score() - lo) / (hi - lo)
			out[i] = math.Max(0, math.Min(1, n))
		}
		return out
	})
}

func accumulate(lists [][]result.Hit, limit int, scoreList func([]result.Hit) []float64) []result.Hit {
	type scored struct {
		hit   result.Hit
		score float64
		order int
	}

	merged := make(map[int64]*scored)
	order := 0
	for _, list := range lists {
		scores := scoreList(list)
		for i, h := range list {
			if existing, ok := merged[h.ID()]; ok {
				existing.score += scores[i]
				continue
			}
			merged[h.ID()] = &scored{hit: h, score: scores[i], order: order}
			order++
		}
	}

	all := make([]*scored, 0, len(merged))
	for _, s := range merged {
		all = append(all, s)
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].score != all[j].score {
			return all[i].score > all[j].score
		}
		return all[i].order < all[j].order
	})

	out := make([]result.Hit, 0, len(all))
	for _, s := range all {
		out = append(out, s.hit.WithScore(s.score))
	}
	return capHits(out, limit)
}

func capHits(hits []result.Hit, limit int) []result.Hit {
	if limit > 0 && len(hits) > limit {
		return hits[:limit]
	}
	return hits
}
