// Package qdrant implements the vector store port over the Qdrant gRPC API.
package qdrant

import (
	"context"
	"crypto/tls"
	"fmt"
	"time"

	"github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"

	"github.com/kailas-cloud/candex/internal/db"
	"github.com/kailas-cloud/candex/internal/domain"
)

// Compile-time check: Store implements db.VectorStore.
var _ db.VectorStore = (*Store)(nil)

// DefaultCollection is the collection name used when none is configured.
const DefaultCollection = "candex_profiles"

// Config holds connection parameters for a Qdrant store.
type Config struct {
	// Addr is the gRPC endpoint, host:port (default port 6334).
	Addr       string
	APIKey     string
	UseTLS     bool
	Collection string
	Layout     domain.VectorLayout
	Dimensions int
}

// Store implements db.VectorStore over the Qdrant gRPC services.
type Store struct {
	conn        *grpc.ClientConn
	points      qdrant.PointsClient
	collections qdrant.CollectionsClient
	health      qdrant.QdrantClient
	collection  string
	schema      *db.CollectionSchema
}

// NewStore dials Qdrant. The connection is established lazily by gRPC.
func NewStore(cfg Config) (*Store, error) {
	if cfg.Addr == "" {
		return nil, fmt.Errorf("addr is required")
	}

	creds := insecure.NewCredentials()
	if cfg.UseTLS {
		creds = credentials.NewTLS(&tls.Config{MinVersion: tls.VersionTLS12})
	}
	opts := []grpc.DialOption{grpc.WithTransportCredentials(creds)}
	if cfg.APIKey != "" {
		opts = append(opts, grpc.WithUnaryInterceptor(apiKeyInterceptor(cfg.APIKey)))
	}

	conn, err := grpc.NewClient(cfg.Addr, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create grpc client: %w", err)
	}

	s := newStore(qdrant.NewPointsClient(conn), qdrant.NewCollectionsClient(conn), qdrant.NewQdrantClient(conn), cfg)
	s.conn = conn
	return s, nil
}

func newStore(
	points qdrant.PointsClient, collections qdrant.CollectionsClient, health qdrant.QdrantClient, cfg Config,
) *Store {
	if cfg.Collection == "" {
		cfg.Collection = DefaultCollection
	}
	if cfg.Layout == "" {
		cfg.Layout = domain.LayoutSingle
	}
	if cfg.Dimensions <= 0 {
		cfg.Dimensions = domain.DefaultDimensions
	}
	return &Store{
		points:      points,
		collections: collections,
		health:      health,
		collection:  cfg.Collection,
		schema:      db.ProfileSchema(cfg.Layout, cfg.Dimensions),
	}
}

func apiKeyInterceptor(key string) grpc.UnaryClientInterceptor {
	return func(
		ctx context.Context, method string, req, reply any,
		cc *grpc.ClientConn, invoker grpc.UnaryInvoker, opts ...grpc.CallOption,
	) error {
		ctx = metadata.AppendToOutgoingContext(ctx, "api-key", key)
		return invoker(ctx, method, req, reply, cc, opts...)
	}
}

// Ping checks connectivity via the Qdrant health check RPC.
func (s *Store) Ping(ctx context.Context) error {
	if _, err := s.health.HealthCheck(ctx, &qdrant.HealthCheckRequest{}); err != nil {
		return &db.Error{Op: db.OpQdrantHealth, Err: err}
	}
	return nil
}

// Close releases the gRPC connection.
func (s *Store) Close() {
	if s.conn != nil {
		_ = s.conn.Close()
	}
}

// WaitForReady polls Ping until the store responds or timeout expires.
func (s *Store) WaitForReady(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("timeout waiting for qdrant: %w", ctx.Err())
		case <-ticker.C:
			if err := s.Ping(ctx); err == nil {
				return nil
			}
		}
	}
}
