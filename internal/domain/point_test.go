package domain

import (
	"reflect"
	"testing"
)

func TestParseIDList(t *testing.T) {
	tests := []struct {
		in   string
		want []int64
	}{
		{"", nil},
		{"   ", nil},
		{"1,2,3", []int64{1, 2, 3}},
		{" 4 , x, 5,,", []int64{4, 5}},
		{"abc", []int64{}},
	}
	for _, tc := range tests {
		got := ParseIDList(tc.in)
		if len(got) == 0 && len(tc.want) == 0 {
			continue
		}
		if !reflect.DeepEqual(got, tc.want) {
			t.Errorf("ParseIDList(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestFormatIDList(t *testing.T) {
	if got := FormatIDList([]int64{7, 42}); got != "7,42" {
		t.Errorf("expected 7,42, got %q", got)
	}
	if got := FormatIDList(nil); got != "" {
		t.Errorf("expected empty string, got %q", got)
	}
}

func TestPayload_IntsRoundTrip(t *testing.T) {
	var p Payload
	p.SetInts(FieldCityID, []int64{1, 5})
	p.SetInts(FieldSalary, []int64{2})
	p.SetInts(FieldLevel, nil)

	if !reflect.DeepEqual(p.Ints(FieldCityID), []int64{1, 5}) {
		t.Errorf("unexpected city ids: %v", p.Ints(FieldCityID))
	}
	if !reflect.DeepEqual(p.Ints(FieldSalary), []int64{2}) {
		t.Errorf("unexpected salary: %v", p.Ints(FieldSalary))
	}
	if p.Ints(FieldLevel) != nil {
		t.Errorf("expected no level, got %v", p.Ints(FieldLevel))
	}
	if p.Ints("unknown") != nil {
		t.Error("unknown key must have no values")
	}
}

func TestVectorLayout(t *testing.T) {
	if !LayoutSingle.IsValid() || !LayoutNamed.IsValid() || VectorLayout("multi").IsValid() {
		t.Error("unexpected layout validity")
	}
	if got := LayoutNamed.Spaces(); !reflect.DeepEqual(got, []string{VectorPosition, VectorContent}) {
		t.Errorf("unexpected named spaces: %v", got)
	}
	if got := LayoutSingle.Spaces(); !reflect.DeepEqual(got, []string{VectorDefault}) {
		t.Errorf("unexpected single spaces: %v", got)
	}
	if LayoutNamed.ContentSpace() != VectorContent || LayoutSingle.ContentSpace() != VectorDefault {
		t.Error("unexpected content space")
	}
}

func TestIndexPoint_Validate(t *testing.T) {
	ok := IndexPoint{ID: 1, Vectors: map[string][]float32{"": {0.1, 0.2}}}
	if err := ok.Validate(2); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	bad := []IndexPoint{
		{ID: 0, Vectors: map[string][]float32{"": {0.1}}},
		{ID: 1},
		{ID: 1, Vectors: map[string][]float32{"content": {0.1}}},
	}
	for i, p := range bad {
		if err := p.Validate(2); err == nil {
			t.Errorf("case %d: expected error", i)
		}
	}
}
