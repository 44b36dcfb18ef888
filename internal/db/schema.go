package db

import (
	"errors"
	"fmt"
	"slices"

	"github.com/kailas-cloud/candex/internal/domain"
)

// CollectionSchema is the backend-neutral description of the profile collection.
type CollectionSchema struct {
	Layout     domain.VectorLayout
	Dimensions int
	Distance   DistanceMetric
	// ListFields are multi-valued integer payload keys.
	ListFields []string
	// ScalarFields are single-valued integer payload keys.
	ScalarFields []string
	// TextField carries a full-text index.
	TextField string
	HNSW      HNSWParams
}

// ProfileSchema returns the schema of the candidate profile collection.
func ProfileSchema(layout domain.VectorLayout, dims int) *CollectionSchema {
	return &CollectionSchema{
		Layout:       layout,
		Dimensions:   dims,
		Distance:     DistanceCosine,
		ListFields:   []string{domain.FieldCityID, domain.FieldProfessions, domain.FieldWorkType},
		ScalarFields: []string{domain.FieldSalary, domain.FieldExperience, domain.FieldGender, domain.FieldLevel},
		TextField:    domain.FieldContent,
	}
}

// WithHNSW sets the vector graph parameters.
func (s *CollectionSchema) WithHNSW(p HNSWParams) *CollectionSchema {
	s.HNSW = p
	return s
}

// Validate checks that the schema is well-formed.
func (s *CollectionSchema) Validate() error {
	if !s.Layout.IsValid() {
		return fmt.Errorf("invalid vector layout %q", s.Layout)
	}
	if s.Dimensions <= 0 {
		return errors.New("vector dimensions must be positive")
	}
	if s.HNSW.M < 0 || s.HNSW.EFConstruct < 0 {
		return errors.New("hnsw parameters must not be negative")
	}
	seen := make(map[string]bool)
	for _, f := range append(append([]string{}, s.ListFields...), s.ScalarFields...) {
		if !IsValidIdentifier(f) {
			return fmt.Errorf("invalid field name %q", f)
		}
		if seen[f] {
			return errors.New("duplicate field name: " + f)
		}
		seen[f] = true
	}
	return nil
}

// IsList reports whether key is a multi-valued field of the schema.
func (s *CollectionSchema) IsList(key string) bool {
	for _, f := range s.ListFields {
		if f == key {
			return true
		}
	}
	return false
}

// Matches fails with ErrSchemaMismatch when other describes a collection of a
// different shape. Build-only settings such as HNSW are not compared.
func (s *CollectionSchema) Matches(other *CollectionSchema) error {
	switch {
	case s.Layout != other.Layout:
		return fmt.Errorf("%w: layout %q, store has %q", ErrSchemaMismatch, other.Layout, s.Layout)
	case s.Dimensions != other.Dimensions:
		return fmt.Errorf("%w: %d dimensions, store has %d", ErrSchemaMismatch, other.Dimensions, s.Dimensions)
	case s.Distance != other.Distance:
		return fmt.Errorf("%w: distance %s, store has %s", ErrSchemaMismatch, other.Distance, s.Distance)
	case s.TextField != other.TextField,
		!slices.Equal(s.ListFields, other.ListFields),
		!slices.Equal(s.ScalarFields, other.ScalarFields):
		return fmt.Errorf("%w: payload fields differ", ErrSchemaMismatch)
	}
	return nil
}
