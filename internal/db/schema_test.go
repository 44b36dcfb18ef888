package db

import (
	"errors"
	"testing"

	"github.com/kailas-cloud/candex/internal/domain"
	"github.com/kailas-cloud/candex/internal/domain/search/filter"
	"github.com/kailas-cloud/candex/internal/domain/search/fusion"
	"github.com/kailas-cloud/candex/internal/domain/search/request"
)

func TestProfileSchema(t *testing.T) {
	s := ProfileSchema(domain.LayoutNamed, 384)
	if err := s.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !s.IsList(domain.FieldProfessions) {
		t.Error("professions must be a list field")
	}
	if s.IsList(domain.FieldSalary) {
		t.Error("salary must be a scalar field")
	}
	if s.TextField != domain.FieldContent {
		t.Errorf("TextField = %q", s.TextField)
	}
}

func TestCollectionSchema_Validate(t *testing.T) {
	s := ProfileSchema("bogus", 384)
	if err := s.Validate(); err == nil {
		t.Error("expected error for bad layout")
	}
	s = ProfileSchema(domain.LayoutSingle, 0)
	if err := s.Validate(); err == nil {
		t.Error("expected error for zero dims")
	}
	s = ProfileSchema(domain.LayoutSingle, 4)
	s.ScalarFields = append(s.ScalarFields, domain.FieldCityID)
	if err := s.Validate(); err == nil {
		t.Error("expected error for duplicate field")
	}
}

func TestQueryFromRetrieval(t *testing.T) {
	city, _ := filter.NewEquals(domain.FieldCityID, 5)
	probes := []request.Probe{
		request.NewProbe(request.KindBase, domain.VectorPosition, []filter.Predicate{city}),
		request.NewProbe(request.KindBase, domain.VectorContent, []filter.Predicate{city}),
	}

	for _, tc := range []struct {
		fusion fusion.Strategy
		probes int
	}{
		{fusion.RRF, 2},
		{fusion.None, 1},
	} {
		r, err := request.New(request.Params{
			Query:  "go",
			Vector: []float32{1},
			Probes: probes,
			Fusion: tc.fusion,
			Limit:  10,
		})
		if err != nil {
			t.Fatalf("request.New: %v", err)
		}
		q := QueryFromRetrieval(&r)
		if len(q.Probes) != tc.probes {
			t.Errorf("%s: probes = %d, want %d", tc.fusion, len(q.Probes), tc.probes)
		}
		if q.Limit != 10 || q.PrefetchLimit != request.DefaultPrefetchLimit {
			t.Errorf("%s: limit/prefetch = %d/%d", tc.fusion, q.Limit, q.PrefetchLimit)
		}
	}
}

func TestError_Unwrap(t *testing.T) {
	inner := errors.New("boom")
	err := &Error{Op: OpQdrantUpsert, Err: inner}
	if !errors.Is(err, inner) {
		t.Error("errors.Is must see the wrapped error")
	}
	if err.Error() != "qdrant.Upsert: boom" {
		t.Errorf("Error() = %q", err.Error())
	}
}

func TestCollectionSchema_NegativeHNSW(t *testing.T) {
	s := ProfileSchema(domain.LayoutSingle, 4).WithHNSW(HNSWParams{M: -1})
	if err := s.Validate(); err == nil {
		t.Error("expected error for negative M")
	}
}

func TestCollectionSchema_Matches(t *testing.T) {
	base := ProfileSchema(domain.LayoutNamed, 384)

	if err := base.Matches(ProfileSchema(domain.LayoutNamed, 384).WithHNSW(HNSWParams{M: 32})); err != nil {
		t.Errorf("HNSW params must not affect matching: %v", err)
	}

	l2 := ProfileSchema(domain.LayoutNamed, 384)
	l2.Distance = DistanceL2
	noText := ProfileSchema(domain.LayoutNamed, 384)
	noText.TextField = ""

	tests := []struct {
		name  string
		other *CollectionSchema
	}{
		{"layout", ProfileSchema(domain.LayoutSingle, 384)},
		{"dimensions", ProfileSchema(domain.LayoutNamed, 768)},
		{"distance", l2},
		{"text field", noText},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := base.Matches(tt.other); !errors.Is(err, ErrSchemaMismatch) {
				t.Errorf("expected ErrSchemaMismatch, got %v", err)
			}
		})
	}
}
