package filter

import (
	"fmt"
	"slices"
)

// MaxConditionsPerGroup is the maximum number of predicates per group.
const MaxConditionsPerGroup = 32

// Spec is a Filter Specification: required predicates eliminate candidates,
// optional predicates only influence ranking.
type Spec struct {
	required []Predicate
	optional []Predicate
}

// NewSpec validates and creates a Spec.
func NewSpec(required, optional []Predicate) (Spec, error) {
	if len(required) > MaxConditionsPerGroup {
		return Spec{}, fmt.Errorf("too many required predicates (max %d)", MaxConditionsPerGroup)
	}
	if len(optional) > MaxConditionsPerGroup {
		return Spec{}, fmt.Errorf("too many optional predicates (max %d)", MaxConditionsPerGroup)
	}
	return Spec{required: required, optional: optional}, nil
}

// Required returns the eliminating predicates.
func (s Spec) Required() []Predicate { return s.required }

// Optional returns the ranking-only predicates.
func (s Spec) Optional() []Predicate { return s.optional }

// IsEmpty reports whether the filter has no predicates.
func (s Spec) IsEmpty() bool { return len(s.required) == 0 && len(s.optional) == 0 }

// HasOptional reports whether any ranking-only predicate is present.
func (s Spec) HasOptional() bool { return len(s.optional) > 0 }

// Boosted returns required and optional predicates combined into one must group.
func (s Spec) Boosted() []Predicate {
	out := make([]Predicate, 0, len(s.required)+len(s.optional))
	out = append(out, s.required...)
	return append(out, s.optional...)
}

// Admits reports whether a point with the given field values satisfies every required predicate.
func (s Spec) Admits(values func(key string) []int64) bool {
	for _, p := range s.required {
		if !p.Matches(values(p.Key())) {
			return false
		}
	}
	return true
}

// OptionalHits counts the optional predicates satisfied by a point.
func (s Spec) OptionalHits(values func(key string) []int64) int {
	n := 0
	for _, p := range s.optional {
		if p.Matches(values(p.Key())) {
			n++
		}
	}
	return n
}

// Predicate is an equality (one value) or set-membership (several values) test
// over an integer payload field. Array fields match when any element matches.
type Predicate struct {
	key    string
	values []int64
}

// NewEquals creates an equality predicate.
func NewEquals(key string, value int64) (Predicate, error) {
	if key == "" {
		return Predicate{}, fmt.Errorf("filter key is required")
	}
	return Predicate{key: key, values: []int64{value}}, nil
}

// NewAnyOf creates a set-membership predicate.
func NewAnyOf(key string, values ...int64) (Predicate, error) {
	if key == "" {
		return Predicate{}, fmt.Errorf("filter key is required")
	}
	if len(values) == 0 {
		return Predicate{}, fmt.Errorf("at least one value is required for key %q", key)
	}
	return Predicate{key: key, values: slices.Clone(values)}, nil
}

// Key returns the payload field name.
func (p Predicate) Key() string { return p.key }

// Values returns the accepted values.
func (p Predicate) Values() []int64 { return p.values }

// IsEquality reports whether the predicate accepts exactly one value.
func (p Predicate) IsEquality() bool { return len(p.values) == 1 }

// Matches reports whether any of the field values is accepted.
func (p Predicate) Matches(fieldValues []int64) bool {
	for _, v := range fieldValues {
		if slices.Contains(p.values, v) {
			return true
		}
	}
	return false
}
