package indexer

import (
	"context"

	"github.com/ziadkadry99/regqa/internal/loader"
	"github.com/ziadkadry99/regqa/internal/vectordb"
)

// PageSource extracts per-page text from a document file.
type PageSource interface {
	ExtractPages(path string) ([]loader.Page, error)
}

// Prepared is a document that has been extracted, chunked and embedded but
// not yet written to the store.
type Prepared struct {
	File    loader.FileInfo
	Entries []vectordb.Entry
}

// CommitFunc stores a prepared document. It is called from worker
// goroutines and must be safe for concurrent use.
type CommitFunc func(ctx context.Context, p *Prepared) error

// ProgressFunc is called during batch processing to report progress.
type ProgressFunc func(processed int, total int, currentFile string)

// BatchResult summarizes a batch: committed documents and per-document failures.
type BatchResult struct {
	Committed []string
	Chunks    int
	Failed    map[string]error
}
