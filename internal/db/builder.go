package db

import "strings"

// IndexBuilder assembles the FT index definition for a collection schema.
type IndexBuilder struct {
	def IndexDefinition
}

// NewIndex starts building an FT index over hashes whose keys start with prefix.
func NewIndex(name, prefix string) *IndexBuilder {
	return &IndexBuilder{def: IndexDefinition{Name: name, Prefix: prefix}}
}

// IndexFromSchema maps a collection schema onto FT fields: a sortable numeric
// id, TAG list fields, NUMERIC scalars, an optional TEXT field and one vector
// field per space named by vectorField.
func IndexFromSchema(name, prefix, idField string, schema *CollectionSchema, vectorField func(space string) string) (*IndexDefinition, error) {
	b := NewIndex(name, prefix).SortableNumeric(idField)
	for _, f := range schema.ListFields {
		b.Tag(f, ",")
	}
	for _, f := range schema.ScalarFields {
		b.Numeric(f)
	}
	if schema.TextField != "" {
		b.Text(schema.TextField)
	}
	for _, space := range schema.Layout.Spaces() {
		b.Vector(vectorField(space), schema.Dimensions, schema.Distance, schema.HNSW)
	}
	return b.Build()
}

// Numeric adds a NUMERIC field.
func (b *IndexBuilder) Numeric(name string) *IndexBuilder {
	b.def.Fields = append(b.def.Fields, IndexField{Name: name, Type: IndexFieldNumeric})
	return b
}

// SortableNumeric adds a NUMERIC SORTABLE field.
func (b *IndexBuilder) SortableNumeric(name string) *IndexBuilder {
	b.def.Fields = append(b.def.Fields, IndexField{Name: name, Type: IndexFieldNumeric, Sortable: true})
	return b
}

// Tag adds a case-insensitive TAG field split on separator.
func (b *IndexBuilder) Tag(name, separator string) *IndexBuilder {
	b.def.Fields = append(b.def.Fields, IndexField{Name: name, Type: IndexFieldTag, TagSeparator: separator})
	return b
}

// Text adds a TEXT field.
func (b *IndexBuilder) Text(name string) *IndexBuilder {
	b.def.Fields = append(b.def.Fields, IndexField{Name: name, Type: IndexFieldText})
	return b
}

// Vector adds an HNSW FLOAT32 vector field.
func (b *IndexBuilder) Vector(name string, dim int, distance DistanceMetric, hnsw HNSWParams) *IndexBuilder {
	b.def.Fields = append(b.def.Fields, IndexField{
		Name:           name,
		Type:           IndexFieldVector,
		VectorDim:      dim,
		VectorDistance: distance,
		HNSW:           hnsw,
	})
	return b
}

// Build validates and returns the index definition.
func (b *IndexBuilder) Build() (*IndexDefinition, error) {
	if err := b.def.Validate(); err != nil {
		return nil, err
	}
	return &b.def, nil
}

// String returns a debug representation resembling the FT.CREATE command.
func (idx *IndexDefinition) String() string {
	parts := []string{"FT.CREATE", idx.Name, "ON", StorageHash}
	if idx.Prefix != "" {
		parts = append(parts, "PREFIX", idx.Prefix)
	}
	parts = append(parts, "SCHEMA")
	for i := range idx.Fields {
		f := &idx.Fields[i]
		parts = append(parts, f.Name)
		switch f.Type {
		case IndexFieldTag:
			parts = append(parts, "TAG")
		case IndexFieldNumeric:
			parts = append(parts, "NUMERIC")
			if f.Sortable {
				parts = append(parts, "SORTABLE")
			}
		case IndexFieldText:
			parts = append(parts, "TEXT")
		case IndexFieldVector:
			parts = append(parts, "VECTOR", "HNSW")
		}
	}
	return strings.Join(parts, " ")
}
