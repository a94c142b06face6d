// Package knowledge is the pipeline orchestrator: it owns the ingestion
// state machine and answers questions once the corpus is ready.
package knowledge

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"

	"github.com/ziadkadry99/regqa/internal/answer"
	"github.com/ziadkadry99/regqa/internal/catalog"
	"github.com/ziadkadry99/regqa/internal/chunker"
	"github.com/ziadkadry99/regqa/internal/embeddings"
	"github.com/ziadkadry99/regqa/internal/indexer"
	"github.com/ziadkadry99/regqa/internal/loader"
	"github.com/ziadkadry99/regqa/internal/retriever"
	"github.com/ziadkadry99/regqa/internal/vectordb"
)

// Options holds the injected dependencies and settings of a Service.
type Options struct {
	DocumentsDir   string
	Include        []string
	Exclude        []string
	TopK           int
	MaxConcurrency int

	// Source extracts page text; nil uses the PDF extractor.
	Source      indexer.PageSource
	Chunker     *chunker.Chunker
	Embedder    embeddings.Embedder
	Store       vectordb.VectorStore
	Catalog     *catalog.Store
	Synthesizer *answer.Synthesizer

	// OnProgress is called as documents finish during Initialize.
	OnProgress indexer.ProgressFunc
}

// Service is the single orchestrator instance of a process.
type Service struct {
	opts      Options
	pipeline  *indexer.Pipeline
	retriever *retriever.Retriever
	group     singleflight.Group

	mu         sync.RWMutex
	state      State
	refreshing bool // Initializing from Ready; the committed index keeps serving
	dirty      bool // committed entries not yet persisted
	lastReport *IngestReport
	lastRun    time.Time
	failures   map[string]string
}

// New creates a Service and loads the persisted vector store. A missing or
// corrupt store starts empty and the catalog is reset so every document is
// ingested again.
func New(ctx context.Context, opts Options) (*Service, error) {
	if opts.Chunker == nil || opts.Embedder == nil || opts.Store == nil || opts.Catalog == nil || opts.Synthesizer == nil {
		return nil, errors.New("knowledge: chunker, embedder, store, catalog and synthesizer are required")
	}
	if opts.Source == nil {
		opts.Source = loader.PDFExtractor{}
	}

	s := &Service{
		opts:      opts,
		pipeline:  indexer.NewPipeline(opts.Source, opts.Chunker, opts.Embedder),
		retriever: retriever.New(opts.Embedder, opts.Store, opts.TopK),
		state:     Uninitialized,
	}

	logger := log.With().Str("component", "knowledge").Logger()
	err := opts.Store.Load(ctx)
	switch {
	case err == nil:
		logger.Info().Int("entries", opts.Store.Count()).Msg("vector store loaded")
	case errors.Is(err, fs.ErrNotExist):
		logger.Info().Msg("no vector store on disk; starting empty")
		if err := opts.Catalog.Reset(ctx); err != nil {
			return nil, err
		}
	case errors.Is(err, vectordb.ErrCorruptStore):
		logger.Warn().Err(err).Msg("vector store unusable; every document will be re-ingested")
		if err := opts.Catalog.Reset(ctx); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("loading vector store: %w", err)
	}
	return s, nil
}

// State returns the current lifecycle state.
func (s *Service) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Initialize brings the index in line with the documents directory.
// Concurrent calls share one run: later callers block and receive the
// result of the run in flight. When the service is ready and force is
// false it returns immediately.
func (s *Service) Initialize(ctx context.Context, force bool) (*IngestReport, error) {
	v, err, shared := s.group.Do("initialize", func() (any, error) {
		return s.initialize(ctx, force)
	})
	if shared {
		log.Debug().Str("component", "knowledge").Msg("joined in-flight initialize")
	}
	report, _ := v.(*IngestReport)
	return report, err
}

func (s *Service) initialize(ctx context.Context, force bool) (report *IngestReport, err error) {
	s.mu.Lock()
	prev := s.state
	if prev == Ready && !force && !s.dirty {
		s.mu.Unlock()
		return &IngestReport{}, nil
	}
	s.state = Initializing
	s.refreshing = prev == Ready
	s.mu.Unlock()

	logger := log.With().Str("component", "knowledge").Bool("force", force).Logger()
	start := time.Now()
	report = &IngestReport{}
	var failed map[string]error

	defer func() {
		report.Duration = time.Since(start)
		s.mu.Lock()
		defer s.mu.Unlock()
		switch {
		case err == nil:
			s.state = Ready
		case prev == Ready:
			// The last committed index keeps serving queries.
			s.state = Ready
		default:
			s.state = Uninitialized
		}
		s.refreshing = false
		s.lastReport = report
		s.lastRun = time.Now()
		s.failures = make(map[string]string, len(failed))
		for name, ferr := range failed {
			s.failures[name] = ferr.Error()
		}
	}()

	run, err := s.opts.Catalog.StartRun(ctx, force)
	if err != nil {
		return report, err
	}
	report.RunID = run.ID
	logger = logger.With().Str("run", run.ID).Logger()
	logger.Info().Str("dir", s.opts.DocumentsDir).Msg("ingestion started")

	failed, err = s.ingest(ctx, force, report)
	if err == nil && len(failed) > 0 {
		err = &IngestError{Failed: failed}
	}

	run.Processed, run.Skipped, run.Removed, run.Failed = report.Processed, report.Skipped, report.Removed, report.Failed
	if err != nil {
		run.Error = err.Error()
	}
	// Record the run even if the caller gave up.
	if ferr := s.opts.Catalog.FinishRun(context.WithoutCancel(ctx), run); ferr != nil {
		logger.Error().Err(ferr).Msg("recording ingestion run")
	}

	if err != nil {
		logger.Error().Err(err).Int("processed", report.Processed).Int("failed", report.Failed).Msg("ingestion finished with errors")
		return report, err
	}
	logger.Info().Int("processed", report.Processed).Int("skipped", report.Skipped).
		Int("removed", report.Removed).Int("chunks", report.Chunks).
		Dur("elapsed", time.Since(start)).Msg("ingestion finished")
	return report, nil
}

// ingest applies one plan. Per-document failures are returned in the map;
// the error is reserved for failures that stop the whole run.
func (s *Service) ingest(ctx context.Context, force bool, report *IngestReport) (map[string]error, error) {
	scan, err := loader.Scan(loader.ScanConfig{
		RootDir: s.opts.DocumentsDir,
		Include: s.opts.Include,
		Exclude: s.opts.Exclude,
	})
	if err != nil {
		return nil, fmt.Errorf("scanning documents: %w", err)
	}
	known, err := s.opts.Catalog.List(ctx)
	if err != nil {
		return nil, err
	}

	plan := indexer.NewPlan(scan, known, s.opts.Store.Documents(), force)
	report.Skipped = len(plan.Unchanged)

	failed := make(map[string]error, len(plan.Unreadable))
	for name, rerr := range plan.Unreadable {
		log.Warn().Str("component", "knowledge").Str("document", name).Err(rerr).Msg("document unreadable; keeping its index entries")
		failed[name] = fmt.Errorf("reading %s: %w", name, rerr)
	}

	if !plan.Empty() {
		if err := s.apply(ctx, plan, report, failed); err != nil {
			return failed, err
		}
	}
	report.Failed = len(failed)

	if !s.isDirty() {
		return failed, nil
	}
	if err := s.opts.Store.Persist(ctx); err != nil {
		return failed, fmt.Errorf("persisting vector store: %w", err)
	}
	s.setDirty(false)
	return failed, nil
}

// apply removes and re-ingests the documents of plan. Per-document
// failures are added to failed.
func (s *Service) apply(ctx context.Context, plan *indexer.Plan, report *IngestReport, failed map[string]error) error {
	for _, name := range plan.Removed {
		s.setDirty(true)
		if err := s.opts.Store.DeleteByDocument(ctx, name); err != nil {
			return fmt.Errorf("removing %s: %w", name, err)
		}
		if err := s.opts.Catalog.Delete(ctx, name); err != nil {
			return err
		}
		log.Info().Str("component", "knowledge").Str("document", name).Msg("document removed")
		report.Removed++
	}

	batcher := indexer.NewBatcher(s.opts.MaxConcurrency, s.pipeline, s.commit, s.opts.OnProgress)
	result := batcher.ProcessFiles(ctx, plan.Changed)
	report.Processed = len(result.Committed)
	report.Chunks = result.Chunks

	for name, ferr := range result.Failed {
		failed[name] = ferr
		log.Warn().Str("component", "knowledge").Str("document", name).Err(ferr).Msg("document failed")
		if err := s.opts.Catalog.MarkFailed(context.WithoutCancel(ctx), name, ferr); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) isDirty() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dirty
}

func (s *Service) setDirty(v bool) {
	s.mu.Lock()
	s.dirty = v
	s.mu.Unlock()
}

// commit swaps one prepared document into the store and records it.
func (s *Service) commit(ctx context.Context, p *indexer.Prepared) error {
	s.setDirty(true)
	if err := s.opts.Store.ReplaceDocument(ctx, p.File.Name, p.Entries); err != nil {
		return err
	}
	return s.opts.Catalog.Upsert(ctx, catalog.Document{
		Name:       p.File.Name,
		Checksum:   p.File.Checksum,
		Size:       p.File.Size,
		ModTime:    p.File.ModTime,
		ChunkCount: len(p.Entries),
	})
}

// serving reports whether queries may run. A refresh of a ready service
// keeps answering from the committed index; each document swap is atomic.
func (s *Service) serving() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state == Ready || s.refreshing
}

// Query answers question from the indexed documents.
func (s *Service) Query(ctx context.Context, question string) (*answer.Answer, error) {
	if !s.serving() {
		return nil, ErrNotReady
	}
	results, err := s.retriever.Retrieve(ctx, question, 0)
	if err != nil {
		return nil, err
	}
	return s.opts.Synthesizer.Synthesize(ctx, question, results)
}

// Search returns the k chunks closest to question without synthesizing an
// answer. k <= 0 uses the configured top_k.
func (s *Service) Search(ctx context.Context, question string, k int) ([]vectordb.SearchResult, error) {
	if !s.serving() {
		return nil, ErrNotReady
	}
	return s.retriever.Retrieve(ctx, question, k)
}

// ListDocuments returns the names of successfully ingested documents,
// sorted, in any state.
func (s *Service) ListDocuments(ctx context.Context) ([]string, error) {
	docs, err := s.opts.Catalog.ListIngested(ctx)
	if err != nil {
		return nil, err
	}
	names := make([]string, len(docs))
	for i, d := range docs {
		names[i] = d.Name
	}
	return names, nil
}

// Status reports the state and size of the knowledge base.
func (s *Service) Status(ctx context.Context) (*Status, error) {
	docs, err := s.opts.Catalog.ListIngested(ctx)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	st := &Status{
		State:      s.state,
		Documents:  len(docs),
		Chunks:     s.opts.Store.Count(),
		LastReport: s.lastReport,
	}
	if !s.lastRun.IsZero() {
		t := s.lastRun
		st.LastIngestion = &t
	}
	if len(s.failures) > 0 {
		st.Failures = make(map[string]string, len(s.failures))
		for k, v := range s.failures {
			st.Failures[k] = v
		}
	}
	return st, nil
}
