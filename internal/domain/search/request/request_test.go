package request

import (
	"strings"
	"testing"

	"github.com/kailas-cloud/candex/internal/domain/search/filter"
	"github.com/kailas-cloud/candex/internal/domain/search/fusion"
)

func baseParams() Params {
	return Params{
		Query:  "golang developer",
		Vector: []float32{0.1, 0.2},
		Probes: []Probe{NewProbe(KindBase, "", nil)},
	}
}

func TestNew_Defaults(t *testing.T) {
	r, err := New(baseParams())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Fusion() != fusion.RRF {
		t.Errorf("Fusion() = %q, want rrf", r.Fusion())
	}
	if r.Limit() != DefaultLimit {
		t.Errorf("Limit() = %d, want %d", r.Limit(), DefaultLimit)
	}
	if r.PrefetchLimit() != DefaultPrefetchLimit {
		t.Errorf("PrefetchLimit() = %d, want %d", r.PrefetchLimit(), DefaultPrefetchLimit)
	}
	if r.EmbeddedText() != "golang developer" {
		t.Errorf("EmbeddedText() = %q", r.EmbeddedText())
	}
	if r.Expanded() {
		t.Error("Expanded() = true")
	}
}

func TestNew_Validation(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Params)
	}{
		{"empty query", func(p *Params) { p.Query = "" }},
		{"long query", func(p *Params) { p.Query = strings.Repeat("a", MaxQueryLength+1) }},
		{"no vector", func(p *Params) { p.Vector = nil }},
		{"no probes", func(p *Params) { p.Probes = nil }},
		{"bad fusion", func(p *Params) { p.Fusion = "linear" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := baseParams()
			tt.modify(&p)
			if _, err := New(p); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestNew_Clamping(t *testing.T) {
	p := baseParams()
	p.Limit = MaxLimit + 10
	p.PrefetchLimit = 5
	r, err := New(p)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Limit() != MaxLimit {
		t.Errorf("Limit() = %d, want %d", r.Limit(), MaxLimit)
	}
	if r.PrefetchLimit() != MaxLimit {
		t.Errorf("PrefetchLimit() = %d, want raised to %d", r.PrefetchLimit(), MaxLimit)
	}
}

func TestProbes(t *testing.T) {
	city, _ := filter.NewEquals("city_id", 5)
	base := NewProbe(KindBase, "content", []filter.Predicate{city})
	lex := NewLexicalProbe("content", []filter.Predicate{city}, "golang")

	if base.Kind() != KindBase || base.Using() != "content" || len(base.Must()) != 1 || base.Text() != "" {
		t.Errorf("unexpected base probe: %+v", base)
	}
	if lex.Kind() != KindLexical || lex.Text() != "golang" {
		t.Errorf("unexpected lexical probe: %+v", lex)
	}
}
