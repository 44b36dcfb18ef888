package facet

import (
	"errors"
	"reflect"
	"testing"

	"github.com/kailas-cloud/candex/internal/domain"
)

func TestNewSelection(t *testing.T) {
	s, err := NewSelection(map[Name][]int64{
		City:        {5},
		Professions: {3, 1, 3},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(s.Values(Professions), []int64{1, 3}) {
		t.Errorf("expected deduped sorted professions, got %v", s.Values(Professions))
	}
	if !reflect.DeepEqual(s.Names(), []Name{City, Professions}) {
		t.Errorf("unexpected names order: %v", s.Names())
	}
}

func TestNewSelection_SingleValuedFacet(t *testing.T) {
	_, err := NewSelection(map[Name][]int64{Salary: {1, 2}})
	if !errors.Is(err, domain.ErrInvalidFacet) {
		t.Fatalf("expected ErrInvalidFacet, got %v", err)
	}
}

func TestNewSelection_UnknownFacet(t *testing.T) {
	_, err := NewSelection(map[Name][]int64{"height": {180}})
	if !errors.Is(err, domain.ErrInvalidFacet) {
		t.Fatalf("expected ErrInvalidFacet, got %v", err)
	}
}

func TestNewSelection_EmptyValuesIgnored(t *testing.T) {
	s, err := NewSelection(map[Name][]int64{City: nil})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !s.IsEmpty() {
		t.Error("expected empty selection")
	}
}

func TestPolicy(t *testing.T) {
	p, err := NewPolicy(map[string]string{"salary": "optional", "city_id": "required"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.ModeOf(Salary) != Optional {
		t.Errorf("expected salary optional")
	}
	if p.ModeOf(Gender) != Required {
		t.Errorf("expected default required")
	}

	if _, err := NewPolicy(map[string]string{"salary": "maybe"}); err == nil {
		t.Error("expected error for invalid mode")
	}
	if _, err := NewPolicy(map[string]string{"height": "optional"}); err == nil {
		t.Error("expected error for unknown facet")
	}
}
