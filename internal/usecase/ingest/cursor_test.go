package ingest

import (
	"context"
	"errors"
	"testing"

	"github.com/kailas-cloud/candex/internal/domain"
)

func indexWithIDs(ids ...int64) *fakeIndex {
	idx := newFakeIndex()
	idx.created = true
	for _, id := range ids {
		idx.points[id] = domain.IndexPoint{ID: id}
	}
	return idx
}

func TestResolver_BinarySearch(t *testing.T) {
	r := NewResolver(indexWithIDs(3, 7, 42, 1000), 0, 0, nil)

	got, err := r.Resolve(context.Background())
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got != 1000 {
		t.Errorf("cursor = %d, want 1000", got)
	}
}

func TestResolver_ColdStart(t *testing.T) {
	t.Run("missing collection", func(t *testing.T) {
		r := NewResolver(newFakeIndex(), 0, 0, nil)
		got, err := r.Resolve(context.Background())
		if err != nil || got != 0 {
			t.Errorf("Resolve = %d, %v; want 0, nil", got, err)
		}
	})
	t.Run("empty collection", func(t *testing.T) {
		r := NewResolver(indexWithIDs(), 0, 0, nil)
		got, err := r.Resolve(context.Background())
		if err != nil || got != 0 {
			t.Errorf("Resolve = %d, %v; want 0, nil", got, err)
		}
	})
}

func TestResolver_DenseRange(t *testing.T) {
	ids := make([]int64, 0, 250)
	for id := int64(1); id <= 250; id++ {
		ids = append(ids, id)
	}
	r := NewResolver(indexWithIDs(ids...), 10_000, 10, nil)

	got, err := r.Resolve(context.Background())
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got != 250 {
		t.Errorf("cursor = %d, want 250", got)
	}
}

func TestResolver_BoundExceeded(t *testing.T) {
	r := NewResolver(indexWithIDs(5, 3_000), 1_000, 0, nil)

	_, err := r.Resolve(context.Background())
	if !errors.Is(err, domain.ErrCursorBoundExceeded) {
		t.Errorf("err = %v, want ErrCursorBoundExceeded", err)
	}
}

func TestResolver_AtBound(t *testing.T) {
	r := NewResolver(indexWithIDs(5, 1_000), 1_000, 0, nil)

	got, err := r.Resolve(context.Background())
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got != 1_000 {
		t.Errorf("cursor = %d, want 1000", got)
	}
}

func TestResolver_ProbeError(t *testing.T) {
	idx := indexWithIDs(1, 2)
	idx.scrollErr = errors.New("timeout")
	r := NewResolver(idx, 0, 0, nil)

	_, err := r.Resolve(context.Background())
	if !errors.Is(err, domain.ErrUnavailable) {
		t.Errorf("err = %v, want ErrUnavailable", err)
	}
}
