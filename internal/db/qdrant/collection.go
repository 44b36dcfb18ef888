package qdrant

import (
	"context"
	"fmt"
	"strings"

	"github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/kailas-cloud/candex/internal/db"
)

// CollectionExists reports whether the profile collection exists.
func (s *Store) CollectionExists(ctx context.Context) (bool, error) {
	resp, err := s.collections.CollectionExists(ctx, &qdrant.CollectionExistsRequest{
		CollectionName: s.collection,
	})
	if err != nil {
		return false, &db.Error{Op: db.OpQdrantCollectionExists, Err: err}
	}
	return resp.GetResult().GetExists(), nil
}

// EnsureCollection creates the collection and its payload indexes when missing.
func (s *Store) EnsureCollection(ctx context.Context, schema *db.CollectionSchema) error {
	if err := schema.Validate(); err != nil {
		return fmt.Errorf("invalid schema: %w", err)
	}
	if err := s.schema.Matches(schema); err != nil {
		return fmt.Errorf("ensure %s: %w", s.collection, err)
	}

	exists, err := s.CollectionExists(ctx)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	_, err = s.collections.Create(ctx, &qdrant.CreateCollection{
		CollectionName: s.collection,
		VectorsConfig:  vectorsConfig(schema),
	})
	if err != nil && !isAlreadyExists(err) {
		return &db.Error{Op: db.OpQdrantCreateCollection, Err: err}
	}

	for _, field := range append(append([]string{}, schema.ListFields...), schema.ScalarFields...) {
		if err := s.createFieldIndex(ctx, field, qdrant.FieldType_FieldTypeInteger, nil); err != nil {
			return err
		}
	}
	if schema.TextField != "" {
		lowercase := true
		params := &qdrant.PayloadIndexParams{
			IndexParams: &qdrant.PayloadIndexParams_TextIndexParams{
				TextIndexParams: &qdrant.TextIndexParams{
					Tokenizer: qdrant.TokenizerType_Multilingual,
					Lowercase: &lowercase,
				},
			},
		}
		if err := s.createFieldIndex(ctx, schema.TextField, qdrant.FieldType_FieldTypeText, params); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) createFieldIndex(
	ctx context.Context, field string, ft qdrant.FieldType, params *qdrant.PayloadIndexParams,
) error {
	wait := true
	_, err := s.points.CreateFieldIndex(ctx, &qdrant.CreateFieldIndexCollection{
		CollectionName:   s.collection,
		Wait:             &wait,
		FieldName:        field,
		FieldType:        &ft,
		FieldIndexParams: params,
	})
	if err != nil && !isAlreadyExists(err) {
		return &db.Error{Op: db.OpQdrantCreateFieldIndex, Err: fmt.Errorf("field %s: %w", field, err)}
	}
	return nil
}

func vectorsConfig(schema *db.CollectionSchema) *qdrant.VectorsConfig {
	params := func() *qdrant.VectorParams {
		return &qdrant.VectorParams{
			Size:       uint64(schema.Dimensions),
			Distance:   distance(schema.Distance),
			HnswConfig: hnswConfig(schema.HNSW),
		}
	}

	spaces := schema.Layout.Spaces()
	if len(spaces) == 1 && spaces[0] == "" {
		return &qdrant.VectorsConfig{Config: &qdrant.VectorsConfig_Params{Params: params()}}
	}
	m := make(map[string]*qdrant.VectorParams, len(spaces))
	for _, name := range spaces {
		m[name] = params()
	}
	return &qdrant.VectorsConfig{
		Config: &qdrant.VectorsConfig_ParamsMap{ParamsMap: &qdrant.VectorParamsMap{Map: m}},
	}
}

func hnswConfig(p db.HNSWParams) *qdrant.HnswConfigDiff {
	if p.M <= 0 && p.EFConstruct <= 0 {
		return nil
	}
	cfg := &qdrant.HnswConfigDiff{}
	if p.M > 0 {
		m := uint64(p.M)
		cfg.M = &m
	}
	if p.EFConstruct > 0 {
		ef := uint64(p.EFConstruct)
		cfg.EfConstruct = &ef
	}
	return cfg
}

func distance(d db.DistanceMetric) qdrant.Distance {
	switch d {
	case db.DistanceL2:
		return qdrant.Distance_Euclid
	case db.DistanceIP:
		return qdrant.Distance_Dot
	default:
		return qdrant.Distance_Cosine
	}
}

func isAlreadyExists(err error) bool {
	st, ok := status.FromError(err)
	if !ok {
		return false
	}
	return st.Code() == codes.AlreadyExists || strings.Contains(strings.ToLower(st.Message()), "already exists")
}
