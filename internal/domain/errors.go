package domain

import "errors"

var (
	// ErrNotFound signals a missing resource.
	ErrNotFound = errors.New("not found")
	// ErrUnavailable signals that a remote store could not be reached.
	ErrUnavailable = errors.New("store unavailable")
	// ErrCursorBoundExceeded signals that indexed ids run past the cursor search bound.
	ErrCursorBoundExceeded = errors.New("cursor upper bound exceeded")
	// ErrUpsertFailed signals that a batch upsert exhausted its retries.
	ErrUpsertFailed = errors.New("batch upsert failed")
	// ErrCollectionBootstrap signals that the vector collection could not be created.
	ErrCollectionBootstrap = errors.New("collection bootstrap failed")
	// ErrSyncInProgress signals that a sync run is already in flight.
	ErrSyncInProgress = errors.New("sync already in progress")
	// ErrInvalidFacet signals a malformed facet selection.
	ErrInvalidFacet = errors.New("invalid facet")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
	// ErrExpansionFailed signals a query expansion failure (never surfaced to callers).
	ErrExpansionFailed = errors.New("query expansion failed")
)
