package indexer

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/ziadkadry99/regqa/internal/chunker"
	"github.com/ziadkadry99/regqa/internal/embeddings"
	"github.com/ziadkadry99/regqa/internal/loader"
	"github.com/ziadkadry99/regqa/internal/vectordb"
)

// Pipeline turns a document file into store entries: extract -> chunk -> embed.
// It never touches the store; committing is left to the caller.
type Pipeline struct {
	source   PageSource
	chunker  *chunker.Chunker
	embedder embeddings.Embedder
}

// NewPipeline creates a new Pipeline.
func NewPipeline(source PageSource, ch *chunker.Chunker, embedder embeddings.Embedder) *Pipeline {
	return &Pipeline{source: source, chunker: ch, embedder: embedder}
}

// Prepare extracts, chunks and embeds a single document. A document without
// extractable text yields no entries.
func (p *Pipeline) Prepare(ctx context.Context, file loader.FileInfo) (*Prepared, error) {
	pages, err := p.source.ExtractPages(file.Path)
	if err != nil {
		return nil, fmt.Errorf("extract %s: %w", file.Name, err)
	}

	var chunks []chunker.Chunk
	for _, c := range p.chunker.Split(file.Name, pages) {
		if c.HasText() {
			chunks = append(chunks, c)
		}
	}
	if len(chunks) == 0 {
		log.Warn().Str("component", "indexer").Str("document", file.Name).
			Int("pages", len(pages)).Msg("no text extracted")
		return &Prepared{File: file}, nil
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	vectors, err := p.embedder.Embed(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embed %s: %w", file.Name, err)
	}
	if len(vectors) != len(chunks) {
		return nil, fmt.Errorf("embed %s: got %d vectors for %d chunks", file.Name, len(vectors), len(chunks))
	}

	entries := make([]vectordb.Entry, len(chunks))
	for i, c := range chunks {
		entries[i] = vectordb.Entry{Chunk: c, Embedding: vectors[i]}
	}

	log.Debug().Str("component", "indexer").Str("document", file.Name).
		Int("pages", len(pages)).Int("chunks", len(chunks)).Msg("document prepared")
	return &Prepared{File: file, Entries: entries}, nil
}
