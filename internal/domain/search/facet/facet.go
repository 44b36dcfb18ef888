// Package facet describes the structured search facets and the deployment policy
// that decides whether a facet eliminates candidates or only influences ranking.
package facet

import (
	"fmt"
	"sort"

	"github.com/kailas-cloud/candex/internal/domain"
)

// Name is a facet name; it equals the payload key it filters on.
type Name string

// Supported facets.
const (
	City        Name = domain.FieldCityID
	Salary      Name = domain.FieldSalary
	Experience  Name = domain.FieldExperience
	WorkType    Name = domain.FieldWorkType
	Level       Name = domain.FieldLevel
	Gender      Name = domain.FieldGender
	Professions Name = domain.FieldProfessions
)

// Definition binds a facet to its query parameter.
type Definition struct {
	Name  Name
	Param string
	Multi bool
}

// Definitions lists every facet in request order.
var Definitions = []Definition{
	{Name: City, Param: "city_id"},
	{Name: Salary, Param: "s"},
	{Name: Experience, Param: "e"},
	{Name: WorkType, Param: "t"},
	{Name: Level, Param: "k"},
	{Name: Gender, Param: "g"},
	{Name: Professions, Param: "c", Multi: true},
}

// IsValid reports whether n is a known facet.
func (n Name) IsValid() bool {
	for _, d := range Definitions {
		if d.Name == n {
			return true
		}
	}
	return false
}

// Mode decides how a selected facet participates in retrieval.
type Mode string

// Facet modes.
const (
	Required Mode = "required"
	Optional Mode = "optional"
)

// IsValid reports whether the mode is supported.
func (m Mode) IsValid() bool { return m == Required || m == Optional }

// Policy maps facets to modes. Facets without an entry are required.
type Policy map[Name]Mode

// ModeOf returns the mode of a facet.
func (p Policy) ModeOf(n Name) Mode {
	if m, ok := p[n]; ok && m.IsValid() {
		return m
	}
	return Required
}

// NewPolicy validates a name -> mode table read from configuration.
func NewPolicy(raw map[string]string) (Policy, error) {
	p := make(Policy, len(raw))
	for k, v := range raw {
		n, m := Name(k), Mode(v)
		if !n.IsValid() {
			return nil, fmt.Errorf("unknown facet %q", k)
		}
		if !m.IsValid() {
			return nil, fmt.Errorf("facet %q: mode must be %q or %q, got %q", k, Required, Optional, v)
		}
		p[n] = m
	}
	return p, nil
}

// Selection holds the values picked for each facet.
type Selection struct {
	values map[Name][]int64
}

// NewSelection validates the picked values. Single-valued facets accept one value.
func NewSelection(values map[Name][]int64) (Selection, error) {
	out := make(map[Name][]int64, len(values))
	for _, d := range Definitions {
		vals, ok := values[d.Name]
		if !ok || len(vals) == 0 {
			continue
		}
		if !d.Multi && len(vals) > 1 {
			return Selection{}, fmt.Errorf("%w: %s accepts a single value", domain.ErrInvalidFacet, d.Param)
		}
		out[d.Name] = dedupe(vals)
	}
	for n := range values {
		if !n.IsValid() {
			return Selection{}, fmt.Errorf("%w: unknown facet %q", domain.ErrInvalidFacet, n)
		}
	}
	return Selection{values: out}, nil
}

// Values returns the picked values of a facet.
func (s Selection) Values(n Name) []int64 { return s.values[n] }

// IsEmpty reports whether no facet was picked.
func (s Selection) IsEmpty() bool { return len(s.values) == 0 }

// Names returns the picked facets in definition order.
func (s Selection) Names() []Name {
	out := make([]Name, 0, len(s.values))
	for _, d := range Definitions {
		if _, ok := s.values[d.Name]; ok {
			out = append(out, d.Name)
		}
	}
	return out
}

func dedupe(vals []int64) []int64 {
	seen := make(map[int64]struct{}, len(vals))
	out := make([]int64, 0, len(vals))
	for _, v := range vals {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
