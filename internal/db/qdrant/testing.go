package qdrant

import "github.com/qdrant/go-client/qdrant"

// NewStoreForTest creates a Store over the provided gRPC clients (test-only).
func NewStoreForTest(
	points qdrant.PointsClient, collections qdrant.CollectionsClient, health qdrant.QdrantClient, cfg Config,
) *Store {
	return newStore(points, collections, health, cfg)
}
