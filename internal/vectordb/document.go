package vectordb

import "github.com/ziadkadry99/regqa/internal/chunker"

// SchemaVersion is the version of the on-disk layout. Stores written with
// another version fail to load with ErrCorruptStore.
const SchemaVersion = 1

// Entry pairs a chunk with its embedding.
type Entry struct {
	Chunk     chunker.Chunk
	Embedding []float32
}

// SearchResult is an entry returned by Query with its distance to the query.
// Distance is the cosine distance 1 - cos(query, entry), in [0, 2].
type SearchResult struct {
	Chunk    chunker.Chunk
	Distance float32
	// Seq is the insertion sequence number used to break distance ties.
	Seq int64
}

// manifest describes a persisted store.
type manifest struct {
	SchemaVersion  int    `json:"schema_version"`
	Dimensions     int    `json:"dimensions"`
	NextSeq        int64  `json:"next_seq"`
	Count          int    `json:"count"`
	EmbeddingModel string `json:"embedding_model"`
}
