package db

import "fmt"

// StorageHash is the only FT storage candex uses: one hash per point.
const StorageHash = "HASH"

// DistanceMetric used by vector similarity queries.
type DistanceMetric string

const (
	// DistanceL2 is Euclidean distance.
	DistanceL2 DistanceMetric = "L2"
	// DistanceIP is inner product distance.
	DistanceIP DistanceMetric = "IP"
	// DistanceCosine is cosine distance.
	DistanceCosine DistanceMetric = "COSINE"
)

// HNSWParams are graph build parameters passed through to the backend. Zero keeps its default.
type HNSWParams struct {
	M           int
	EFConstruct int
}

// IndexFieldType enumerates supported FT index field types.
type IndexFieldType int

const (
	// IndexFieldNumeric is a numeric field.
	IndexFieldNumeric IndexFieldType = iota
	// IndexFieldTag is a tag field.
	IndexFieldTag
	// IndexFieldText is a text field.
	IndexFieldText
	// IndexFieldVector is an HNSW vector field.
	IndexFieldVector
)

// IndexField describes a single field in an FT index schema.
type IndexField struct {
	Name     string
	Type     IndexFieldType
	Sortable bool // NUMERIC only; needed for SORTBY scans

	TagSeparator string

	VectorDim      int
	VectorDistance DistanceMetric
	HNSW           HNSWParams
}

// IndexDefinition is a complete FT index definition used by FT.CREATE.
type IndexDefinition struct {
	Name   string
	Prefix string
	Fields []IndexField
}

// Validate checks the definition before it reaches FT.CREATE. Every
// failure wraps ErrInvalidIndex.
func (idx *IndexDefinition) Validate() error {
	switch {
	case idx.Name == "":
		return fmt.Errorf("%w: name is required", ErrInvalidIndex)
	case !IsValidIdentifier(idx.Name):
		return fmt.Errorf("%w: name %q has invalid characters", ErrInvalidIndex, idx.Name)
	case len(idx.Fields) == 0:
		return fmt.Errorf("%w: no fields", ErrInvalidIndex)
	}

	seen := make(map[string]struct{}, len(idx.Fields))
	for i, f := range idx.Fields {
		if f.Name == "" {
			return fmt.Errorf("%w: field %d has no name", ErrInvalidIndex, i)
		}
		if _, dup := seen[f.Name]; dup {
			return fmt.Errorf("%w: duplicate field %s", ErrInvalidIndex, f.Name)
		}
		seen[f.Name] = struct{}{}

		if f.Type == IndexFieldVector && f.VectorDim <= 0 {
			return fmt.Errorf("%w: vector field %s needs a positive dimension", ErrInvalidIndex, f.Name)
		}
		if f.Sortable && f.Type != IndexFieldNumeric {
			return fmt.Errorf("%w: only numeric fields can be sortable, got %s", ErrInvalidIndex, f.Name)
		}
	}
	return nil
}

// IsValidIdentifier returns true if s matches [a-zA-Z0-9_:-]+.
func IsValidIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		isAlpha := (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
		isDigit := r >= '0' && r <= '9'
		isSpecial := r == '_' || r == ':' || r == '-'
		if !isAlpha && !isDigit && !isSpecial {
			return false
		}
	}
	return true
}
