// Package chunker splits extracted page text into overlapping fixed-size
// segments that keep their source document and page.
package chunker

import (
	"fmt"
	"sort"
	"strings"
	"unicode"

	"github.com/ziadkadry99/regqa/internal/config"
	"github.com/ziadkadry99/regqa/internal/loader"
)

// Chunk is an immutable text segment of one document page.
// Start and End are rune offsets into the document text, with pages
// concatenated in order and no separator.
type Chunk struct {
	Source string
	Page   int
	Index  int
	Start  int
	End    int
	Text   string
}

// ID is the stable identity of the chunk. Re-chunking the same document
// with the same parameters yields the same IDs.
func (c Chunk) ID() string {
	return fmt.Sprintf("%s#p%d#%d", c.Source, c.Page, c.Start)
}

// Chunker produces sliding-window chunks of at most Size runes, each
// starting Size-Overlap runes after the previous one.
type Chunker struct {
	size    int
	overlap int
}

// New returns a Chunker, failing with config.ErrInvalidConfig unless
// 0 <= overlap < size.
func New(size, overlap int) (*Chunker, error) {
	if err := config.ValidateChunking(size, overlap); err != nil {
		return nil, err
	}
	return &Chunker{size: size, overlap: overlap}, nil
}

// Size returns the maximum chunk length in runes.
func (c *Chunker) Size() int { return c.size }

// Overlap returns the number of runes shared by consecutive chunks of a page.
func (c *Chunker) Overlap() int { return c.overlap }

// Split chunks every page of the named document independently, so a chunk
// never spans two pages. Chunks cover the whole document, including pages
// that hold only whitespace; use HasText to skip those before embedding.
func (c *Chunker) Split(source string, pages []loader.Page) []Chunk {
	var chunks []Chunk
	stride := c.size - c.overlap
	offset := 0

	for _, page := range pages {
		runes := []rune(page.Text)
		n := len(runes)

		if n > 0 {
			for start := 0; ; start += stride {
				end := min(start+c.size, n)
				chunks = append(chunks, Chunk{
					Source: source,
					Page:   page.Number,
					Index:  len(chunks),
					Start:  offset + start,
					End:    offset + end,
					Text:   string(runes[start:end]),
				})
				if end == n {
					break
				}
			}
		}
		offset += n
	}
	return chunks
}

// HasText reports whether the chunk holds anything besides whitespace.
func (c Chunk) HasText() bool {
	return strings.TrimFunc(c.Text, unicode.IsSpace) != ""
}

// Reconstruct returns the text covered by chunks with overlaps removed.
// For all chunks of a document this is the original document text.
func Reconstruct(chunks []Chunk) string {
	sorted := make([]Chunk, len(chunks))
	copy(sorted, chunks)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Start < sorted[j].Start })

	var b strings.Builder
	covered := 0
	for _, ch := range sorted {
		if ch.End <= covered {
			continue
		}
		runes := []rune(ch.Text)
		skip := max(covered-ch.Start, 0)
		b.WriteString(string(runes[skip:]))
		covered = ch.End
	}
	return b.String()
}
