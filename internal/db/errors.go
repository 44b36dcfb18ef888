package db

import "errors"

// Sentinel errors for database operations.
var (
	ErrKeyNotFound    = errors.New("db: key not found")
	ErrIndexExists    = errors.New("db: index already exists")
	ErrInvalidIndex   = errors.New("db: invalid index definition")
	// ErrSchemaMismatch means a schema differs from the one the store was opened with.
	ErrSchemaMismatch = errors.New("db: schema does not match the store")
)

// Op constants name the backend command for error context.
const (
	OpCreateIndex = "FT.CREATE"
	OpIndexInfo   = "FT.INFO"
	OpSearch      = "FT.SEARCH"
	OpHSet        = "HSET"
	OpGet         = "GET"
	OpSet         = "SET"

	OpQdrantHealth           = "qdrant.HealthCheck"
	OpQdrantCollectionExists = "qdrant.CollectionExists"
	OpQdrantCreateCollection = "qdrant.CreateCollection"
	OpQdrantCreateFieldIndex = "qdrant.CreateFieldIndex"
	OpQdrantUpsert           = "qdrant.Upsert"
	OpQdrantScroll           = "qdrant.Scroll"
	OpQdrantQuery            = "qdrant.Query"

	OpPgPing       = "pg.Ping"
	OpPgMaxID      = "pg.MaxID"
	OpPgFetchPage  = "pg.FetchPage"
	OpPgFetchPrefs = "pg.FetchPreferences"
	OpPgFetchByIDs = "pg.FetchByIDs"
)

// Error wraps an underlying error with the operation name for diagnostics.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string { return e.Op + ": " + e.Err.Error() }
func (e *Error) Unwrap() error { return e.Err }
