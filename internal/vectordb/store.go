package vectordb

import (
	"context"
	"errors"
)

var (
	// ErrInvalidArgument is returned for malformed queries or entries.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrCorruptStore is returned by Load when the on-disk data does not
	// match the expected schema. Callers treat the store as empty.
	ErrCorruptStore = errors.New("corrupt vector store")
)

// VectorStore defines durable storage of index entries with nearest-neighbour search.
type VectorStore interface {
	// Upsert adds entries, replacing any entry with the same chunk identity.
	Upsert(ctx context.Context, entries []Entry) error

	// DeleteByDocument removes all entries of the named document.
	DeleteByDocument(ctx context.Context, name string) error

	// ReplaceDocument atomically swaps every entry of a document for entries.
	ReplaceDocument(ctx context.Context, name string, entries []Entry) error

	// Query returns the k entries closest to vector, closest first.
	Query(ctx context.Context, vector []float32, k int) ([]SearchResult, error)

	// Documents returns the distinct document names present in the store.
	Documents() []string

	// Persist saves the store's data to its directory.
	Persist(ctx context.Context) error

	// Load restores the store's data from its directory.
	Load(ctx context.Context) error

	// Count returns the total number of entries in the store.
	Count() int
}
