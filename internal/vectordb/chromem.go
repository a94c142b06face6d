package vectordb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strconv"
	"sync"

	chromem "github.com/philippgille/chromem-go"
	"github.com/ziadkadry99/regqa/internal/chunker"
)

const (
	collectionName = "regulations"
	dataFile       = "chromem.gob.gz"
	manifestFile   = "manifest.json"
)

// Options configures a ChromemStore.
type Options struct {
	// Dir is where Persist writes and Load reads.
	Dir string
	// EmbeddingModel is recorded in the manifest; loading a store built with
	// another model fails with ErrCorruptStore.
	EmbeddingModel string
	// EmbeddingFunc is handed to chromem for text queries. Entries always
	// carry their own embeddings.
	EmbeddingFunc chromem.EmbeddingFunc
}

// ChromemStore implements VectorStore using chromem-go. Similarity is cosine;
// chromem normalizes every vector on insert so distances are comparable.
//
// A RWMutex serializes writers; queries share the read lock, so a
// ReplaceDocument is observed either entirely or not at all.
type ChromemStore struct {
	opts Options

	mu         sync.RWMutex
	db         *chromem.DB
	collection *chromem.Collection
	dims       int
	nextSeq    int64
	seqs       map[string]int64               // entry ID -> insertion sequence
	bySource   map[string]map[string]struct{} // document name -> entry IDs
}

// NewChromemStore creates a new empty in-memory ChromemStore.
func NewChromemStore(opts Options) (*ChromemStore, error) {
	s := &ChromemStore{opts: opts}
	if err := s.reset(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *ChromemStore) reset() error {
	db := chromem.NewDB()
	col, err := db.GetOrCreateCollection(collectionName, nil, s.opts.EmbeddingFunc)
	if err != nil {
		return fmt.Errorf("create collection: %w", err)
	}
	s.db = db
	s.collection = col
	s.dims = 0
	s.nextSeq = 0
	s.seqs = make(map[string]int64)
	s.bySource = make(map[string]map[string]struct{})
	return nil
}

func (s *ChromemStore) Upsert(ctx context.Context, entries []Entry) error {
	if len(entries) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.validate(entries); err != nil {
		return err
	}
	return s.add(ctx, entries)
}

func (s *ChromemStore) DeleteByDocument(ctx context.Context, name string) error {
	if name == "" {
		return fmt.Errorf("%w: empty document name", ErrInvalidArgument)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deleteDocument(ctx, name)
}

// ReplaceDocument deletes every entry of name and adds entries under a
// single write lock. Entries already present keep their insertion sequence.
// An empty entries slice removes the document.
func (s *ChromemStore) ReplaceDocument(ctx context.Context, name string, entries []Entry) error {
	if name == "" {
		return fmt.Errorf("%w: empty document name", ErrInvalidArgument)
	}
	for _, e := range entries {
		if e.Chunk.Source != name {
			return fmt.Errorf("%w: entry %s does not belong to %s", ErrInvalidArgument, e.Chunk.ID(), name)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Validate before deleting so a bad batch cannot leave the document half-replaced.
	if err := s.validate(entries); err != nil {
		return err
	}

	kept := make(map[string]int64)
	for id := range s.bySource[name] {
		kept[id] = s.seqs[id]
	}
	if err := s.deleteDocument(ctx, name); err != nil {
		return err
	}
	for id, seq := range kept {
		s.seqs[id] = seq
	}
	err := s.add(ctx, entries)

	// Drop sequence numbers of entries that did not come back.
	for id := range kept {
		if _, ok := s.bySource[name][id]; !ok {
			delete(s.seqs, id)
		}
	}
	return err
}

// Query returns the k nearest entries ordered by distance, then insertion
// order. Fewer than k results are returned when the store is smaller.
func (s *ChromemStore) Query(ctx context.Context, vector []float32, k int) ([]SearchResult, error) {
	if k <= 0 {
		return nil, fmt.Errorf("%w: k must be positive, got %d", ErrInvalidArgument, k)
	}
	if !nonZero(vector) {
		return nil, fmt.Errorf("%w: query vector is empty or zero", ErrInvalidArgument)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	count := s.collection.Count()
	if count == 0 {
		return nil, nil
	}
	if len(vector) != s.dims {
		return nil, fmt.Errorf("%w: query has %d dimensions, store has %d", ErrInvalidArgument, len(vector), s.dims)
	}

	// chromem leaves the order of equal similarities undefined, so rank the
	// whole collection and apply the tie-break here.
	results, err := s.collection.QueryEmbedding(ctx, vector, count, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("chromem query: %w", err)
	}

	out := make([]SearchResult, len(results))
	for i, r := range results {
		out[i] = SearchResult{
			Chunk:    resultToChunk(r),
			Distance: max(1-r.Similarity, 0),
			Seq:      s.seqs[r.ID],
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Distance != out[j].Distance {
			return out[i].Distance < out[j].Distance
		}
		return out[i].Seq < out[j].Seq
	})
	if len(out) > k {
		out = out[:k]
	}
	return out, nil
}

func (s *ChromemStore) Documents() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.bySource))
	for name := range s.bySource {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (s *ChromemStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.collection.Count()
}

// Dimensions returns the embedding dimensionality, or 0 for an empty store.
func (s *ChromemStore) Dimensions() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dims
}

// Persist writes the collection and then the manifest, each through a
// temporary file renamed into place.
func (s *ChromemStore) Persist(ctx context.Context) error {
	if s.opts.Dir == "" {
		return fmt.Errorf("%w: no store directory configured", ErrInvalidArgument)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := os.MkdirAll(s.opts.Dir, 0755); err != nil {
		return fmt.Errorf("create store dir: %w", err)
	}

	dataPath := filepath.Join(s.opts.Dir, dataFile)
	if err := s.db.ExportToFile(dataPath+".tmp", true, ""); err != nil {
		return fmt.Errorf("export collection: %w", err)
	}
	if err := os.Rename(dataPath+".tmp", dataPath); err != nil {
		return fmt.Errorf("replace collection file: %w", err)
	}

	m := manifest{
		SchemaVersion:  SchemaVersion,
		Dimensions:     s.dims,
		NextSeq:        s.nextSeq,
		Count:          s.collection.Count(),
		EmbeddingModel: s.opts.EmbeddingModel,
	}
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}
	manifestPath := filepath.Join(s.opts.Dir, manifestFile)
	if err := os.WriteFile(manifestPath+".tmp", data, 0644); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	if err := os.Rename(manifestPath+".tmp", manifestPath); err != nil {
		return fmt.Errorf("replace manifest: %w", err)
	}
	return nil
}

// Load replaces the in-memory contents with the persisted store. A directory
// without a manifest or data file yields an error wrapping fs.ErrNotExist;
// any other mismatch yields ErrCorruptStore. On error the store is left empty.
func (s *ChromemStore) Load(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.load(ctx); err != nil {
		if resetErr := s.reset(); resetErr != nil {
			return resetErr
		}
		return err
	}
	return nil
}

func (s *ChromemStore) load(ctx context.Context) error {
	manifestPath := filepath.Join(s.opts.Dir, manifestFile)
	dataPath := filepath.Join(s.opts.Dir, dataFile)

	raw, err := os.ReadFile(manifestPath)
	if errors.Is(err, fs.ErrNotExist) {
		if _, statErr := os.Stat(dataPath); errors.Is(statErr, fs.ErrNotExist) {
			return fmt.Errorf("vector store %s: %w", s.opts.Dir, fs.ErrNotExist)
		}
		return fmt.Errorf("%w: manifest missing in %s", ErrCorruptStore, s.opts.Dir)
	}
	if err != nil {
		return fmt.Errorf("%w: read manifest: %v", ErrCorruptStore, err)
	}

	var m manifest
	if err := json.Unmarshal(raw, &m); err != nil {
		return fmt.Errorf("%w: parse manifest: %v", ErrCorruptStore, err)
	}
	if m.SchemaVersion != SchemaVersion {
		return fmt.Errorf("%w: schema version %d, expected %d", ErrCorruptStore, m.SchemaVersion, SchemaVersion)
	}
	if s.opts.EmbeddingModel != "" && m.EmbeddingModel != s.opts.EmbeddingModel {
		return fmt.Errorf("%w: built with embedding model %q, configured %q", ErrCorruptStore, m.EmbeddingModel, s.opts.EmbeddingModel)
	}

	db := chromem.NewDB()
	if err := db.ImportFromFile(dataPath, ""); err != nil {
		return fmt.Errorf("%w: import: %v", ErrCorruptStore, err)
	}
	col := db.GetCollection(collectionName, s.opts.EmbeddingFunc)
	if col == nil {
		return fmt.Errorf("%w: collection %q not found after import", ErrCorruptStore, collectionName)
	}
	if col.Count() != m.Count {
		return fmt.Errorf("%w: manifest lists %d entries, found %d", ErrCorruptStore, m.Count, col.Count())
	}

	s.db = db
	s.collection = col
	s.dims = m.Dimensions
	s.nextSeq = m.NextSeq
	s.seqs = make(map[string]int64)
	s.bySource = make(map[string]map[string]struct{})
	return s.rebuildIndex(ctx)
}

// rebuildIndex restores the sequence and per-document maps from entry metadata.
func (s *ChromemStore) rebuildIndex(ctx context.Context) error {
	count := s.collection.Count()
	if count == 0 {
		return nil
	}
	if s.dims <= 0 {
		return fmt.Errorf("%w: manifest has no dimensions for %d entries", ErrCorruptStore, count)
	}

	// Any unit vector ranks every entry; only the metadata is used.
	probe := make([]float32, s.dims)
	probe[0] = 1
	results, err := s.collection.QueryEmbedding(ctx, probe, count, nil, nil)
	if err != nil {
		return fmt.Errorf("%w: scan entries: %v", ErrCorruptStore, err)
	}
	for _, r := range results {
		if len(r.Embedding) != s.dims {
			return fmt.Errorf("%w: entry %s has %d dimensions, expected %d", ErrCorruptStore, r.ID, len(r.Embedding), s.dims)
		}
		seq, err := strconv.ParseInt(r.Metadata["seq"], 10, 64)
		if err != nil || r.Metadata["source"] == "" {
			return fmt.Errorf("%w: entry %s has malformed metadata", ErrCorruptStore, r.ID)
		}
		s.index(r.ID, r.Metadata["source"], seq)
		if seq >= s.nextSeq {
			s.nextSeq = seq + 1
		}
	}
	return nil
}

// validate checks entries against the store; the caller holds the write lock.
func (s *ChromemStore) validate(entries []Entry) error {
	dims := s.dims
	seen := make(map[string]bool, len(entries))
	for _, e := range entries {
		if e.Chunk.Source == "" || e.Chunk.Text == "" {
			return fmt.Errorf("%w: entry %s has no chunk content", ErrInvalidArgument, e.Chunk.ID())
		}
		if !nonZero(e.Embedding) {
			return fmt.Errorf("%w: entry %s has no embedding", ErrInvalidArgument, e.Chunk.ID())
		}
		if dims == 0 {
			dims = len(e.Embedding)
		}
		if len(e.Embedding) != dims {
			return fmt.Errorf("%w: entry %s has %d dimensions, expected %d", ErrInvalidArgument, e.Chunk.ID(), len(e.Embedding), dims)
		}
		if seen[e.Chunk.ID()] {
			return fmt.Errorf("%w: duplicate entry %s", ErrInvalidArgument, e.Chunk.ID())
		}
		seen[e.Chunk.ID()] = true
	}
	return nil
}

// add inserts validated entries; the caller holds the write lock.
func (s *ChromemStore) add(ctx context.Context, entries []Entry) error {
	if len(entries) == 0 {
		return nil
	}

	docs := make([]chromem.Document, len(entries))
	seqs := make([]int64, len(entries))
	next := s.nextSeq
	for i, e := range entries {
		id := e.Chunk.ID()
		seq, ok := s.seqs[id]
		if !ok {
			seq = next
			next++
		}
		seqs[i] = seq
		docs[i] = chromem.Document{
			ID:        id,
			Content:   e.Chunk.Text,
			Embedding: e.Embedding,
			Metadata:  chunkToMetadata(e.Chunk, seq),
		}
	}

	if err := s.collection.AddDocuments(ctx, docs, runtime.NumCPU()); err != nil {
		return fmt.Errorf("chromem add: %w", err)
	}

	if s.dims == 0 {
		s.dims = len(entries[0].Embedding)
	}
	s.nextSeq = next
	for i, e := range entries {
		s.index(docs[i].ID, e.Chunk.Source, seqs[i])
	}
	return nil
}

// deleteDocument removes a document; the caller holds the write lock.
func (s *ChromemStore) deleteDocument(ctx context.Context, name string) error {
	ids, ok := s.bySource[name]
	if !ok {
		return nil
	}
	if err := s.collection.Delete(ctx, map[string]string{"source": name}, nil); err != nil {
		return fmt.Errorf("chromem delete %s: %w", name, err)
	}
	for id := range ids {
		delete(s.seqs, id)
	}
	delete(s.bySource, name)
	if s.collection.Count() == 0 {
		s.dims = 0
	}
	return nil
}

func (s *ChromemStore) index(id, source string, seq int64) {
	s.seqs[id] = seq
	ids, ok := s.bySource[source]
	if !ok {
		ids = make(map[string]struct{})
		s.bySource[source] = ids
	}
	ids[id] = struct{}{}
}

func nonZero(v []float32) bool {
	for _, x := range v {
		if x != 0 && !math.IsNaN(float64(x)) {
			return true
		}
	}
	return false
}

// chunkToMetadata converts a chunk to a flat map[string]string for chromem.
func chunkToMetadata(c chunker.Chunk, seq int64) map[string]string {
	return map[string]string{
		"source": c.Source,
		"page":   strconv.Itoa(c.Page),
		"index":  strconv.Itoa(c.Index),
		"start":  strconv.Itoa(c.Start),
		"end":    strconv.Itoa(c.End),
		"seq":    strconv.FormatInt(seq, 10),
	}
}

// resultToChunk converts a chromem result back to a chunk.
func resultToChunk(r chromem.Result) chunker.Chunk {
	page, _ := strconv.Atoi(r.Metadata["page"])
	index, _ := strconv.Atoi(r.Metadata["index"])
	start, _ := strconv.Atoi(r.Metadata["start"])
	end, _ := strconv.Atoi(r.Metadata["end"])
	return chunker.Chunk{
		Source: r.Metadata["source"],
		Page:   page,
		Index:  index,
		Start:  start,
		End:    end,
		Text:   r.Content,
	}
}
