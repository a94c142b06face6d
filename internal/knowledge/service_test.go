package knowledge

import (
	"context"
	"errors"
	"hash/fnv"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ziadkadry99/regqa/internal/answer"
	"github.com/ziadkadry99/regqa/internal/catalog"
	"github.com/ziadkadry99/regqa/internal/chunker"
	"github.com/ziadkadry99/regqa/internal/db"
	"github.com/ziadkadry99/regqa/internal/embeddings"
	"github.com/ziadkadry99/regqa/internal/llm"
	"github.com/ziadkadry99/regqa/internal/loader"
	"github.com/ziadkadry99/regqa/internal/provider"
	"github.com/ziadkadry99/regqa/internal/vectordb"
)

// --- Mock page source ---

type pageSource struct {
	mu    sync.Mutex
	pages map[string][]loader.Page // keyed by base name
	errs  map[string]error
}

func (p *pageSource) ExtractPages(path string) ([]loader.Page, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	name := filepath.Base(path)
	if err := p.errs[name]; err != nil {
		return nil, err
	}
	return p.pages[name], nil
}

// --- Mock embedder: bag of hashed words ---

type wordEmbedder struct {
	calls atomic.Int64
	delay time.Duration
	fail  func(call int64) error
}

func (w *wordEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	n := w.calls.Add(1)
	if w.delay > 0 {
		select {
		case <-time.After(w.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if w.fail != nil {
		if err := w.fail(n); err != nil {
			return nil, err
		}
	}
	out := make([][]float32, len(texts))
	for i, text := range texts {
		v := make([]float32, 64)
		for _, word := range strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
			return !(r >= 'a' && r <= 'z' || r == '\'')
		}) {
			h := fnv.New32a()
			h.Write([]byte(word))
			v[h.Sum32()%63]++
		}
		v[63] = 0.01
		out[i] = v
	}
	return out, nil
}

func (w *wordEmbedder) Dimensions() int { return 64 }
func (w *wordEmbedder) Name() string    { return "words" }

// --- Mock completion provider ---

type stubLLM struct {
	calls atomic.Int64
	err   error
}

func (s *stubLLM) Name() string { return "stub" }

func (s *stubLLM) Complete(_ context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	s.calls.Add(1)
	if s.err != nil {
		return nil, s.err
	}
	return &llm.CompletionResponse{Content: "Answer based on " + firstSource(req), Model: "stub"}, nil
}

func firstSource(req llm.CompletionRequest) string {
	prompt := req.Messages[len(req.Messages)-1].Content
	start := strings.Index(prompt, "(source: ")
	if start < 0 {
		return "nothing"
	}
	rest := prompt[start+len("(source: "):]
	return rest[:strings.Index(rest, ",")]
}

// --- Test environment ---

type testEnv struct {
	t        *testing.T
	docsDir  string
	dataDir  string
	source   *pageSource
	embedder *wordEmbedder
	llm      *stubLLM
	retry    provider.Policy
}

func newEnv(t *testing.T) *testEnv {
	t.Helper()
	root := t.TempDir()
	return &testEnv{
		t:        t,
		docsDir:  filepath.Join(root, "documents"),
		dataDir:  filepath.Join(root, "vector_db"),
		source:   &pageSource{pages: map[string][]loader.Page{}, errs: map[string]error{}},
		embedder: &wordEmbedder{},
		llm:      &stubLLM{},
		retry:    provider.Policy{MaxAttempts: 2, BaseDelay: time.Millisecond, RateLimitDelay: time.Millisecond, Multiplier: 1},
	}
}

func (e *testEnv) writeDoc(name, content string, pages ...loader.Page) {
	e.t.Helper()
	path := filepath.Join(e.docsDir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		e.t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		e.t.Fatal(err)
	}
	e.source.mu.Lock()
	e.source.pages[filepath.Base(name)] = pages
	e.source.mu.Unlock()
}

func (e *testEnv) failDoc(name string, err error) {
	e.source.mu.Lock()
	defer e.source.mu.Unlock()
	if err == nil {
		delete(e.source.errs, name)
		return
	}
	e.source.errs[name] = err
}

func (e *testEnv) service(embedder embeddings.Embedder) *Service {
	e.t.Helper()
	if embedder == nil {
		embedder = e.embedder
	}
	database, err := db.Open(filepath.Join(e.dataDir, db.FileName))
	if err != nil {
		e.t.Fatalf("db.Open: %v", err)
	}
	e.t.Cleanup(func() { database.Close() })

	store, err := vectordb.NewChromemStore(vectordb.Options{Dir: e.dataDir, EmbeddingModel: "words"})
	if err != nil {
		e.t.Fatal(err)
	}
	ch, err := chunker.New(1000, 100)
	if err != nil {
		e.t.Fatal(err)
	}

	svc, err := New(context.Background(), Options{
		DocumentsDir:   e.docsDir,
		Include:        []string{"**/*.pdf"},
		TopK:           4,
		MaxConcurrency: 2,
		Source:         e.source,
		Chunker:        ch,
		Embedder:       embedder,
		Store:          store,
		Catalog:        catalog.NewStore(database),
		Synthesizer:    answer.New(e.llm, answer.Options{Model: "stub", SystemPrompt: "sys", Retry: e.retry}),
	})
	if err != nil {
		e.t.Fatalf("New: %v", err)
	}
	return svc
}

func guidePage() loader.Page {
	return loader.Page{Number: 1, Text: "Arm's length principle requires..."}
}

func TestGuideScenario(t *testing.T) {
	env := newEnv(t)
	env.writeDoc("guide.pdf", "%PDF guide", guidePage())
	svc := env.service(nil)
	ctx := context.Background()

	report, err := svc.Initialize(ctx, false)
	if err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if report.Processed != 1 || report.Chunks != 1 || report.RunID == "" {
		t.Errorf("report: %+v", report)
	}
	if svc.State() != Ready {
		t.Fatalf("state: %v", svc.State())
	}

	ans, err := svc.Query(ctx, "What is the arm's length principle?")
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(ans.Sources) != 1 {
		t.Fatalf("expected 1 source, got %d", len(ans.Sources))
	}
	if ans.Sources[0].Source != "guide.pdf" || ans.Sources[0].Page != 1 {
		t.Errorf("source metadata: %+v", ans.Sources[0])
	}
	if ans.Text != "Answer based on guide.pdf" {
		t.Errorf("answer: %q", ans.Text)
	}

	docs, err := svc.ListDocuments(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(docs) != 1 || docs[0] != "guide.pdf" {
		t.Errorf("documents: %v", docs)
	}
}

func TestQueryBeforeInitialize(t *testing.T) {
	env := newEnv(t)
	env.writeDoc("guide.pdf", "x", guidePage())
	svc := env.service(nil)
	ctx := context.Background()

	if _, err := svc.Query(ctx, "anything"); !errors.Is(err, ErrNotReady) {
		t.Errorf("Query: expected ErrNotReady, got %v", err)
	}
	if _, err := svc.Search(ctx, "anything", 2); !errors.Is(err, ErrNotReady) {
		t.Errorf("Search: expected ErrNotReady, got %v", err)
	}
	docs, err := svc.ListDocuments(ctx)
	if err != nil || docs == nil || len(docs) != 0 {
		t.Errorf("ListDocuments before ingestion: %v, %v", docs, err)
	}
	if env.embedder.calls.Load() != 0 || env.llm.calls.Load() != 0 {
		t.Error("no provider should be called before initialize")
	}
}

func TestInitializeWithoutDocuments(t *testing.T) {
	for _, tc := range []struct {
		name   string
		create bool
	}{
		{"empty directory", true},
		{"missing directory", false},
	} {
		t.Run(tc.name, func(t *testing.T) {
			env := newEnv(t)
			if tc.create {
				if err := os.MkdirAll(env.docsDir, 0o755); err != nil {
					t.Fatal(err)
				}
			}
			svc := env.service(nil)
			ctx := context.Background()

			if _, err := svc.Initialize(ctx, false); err != nil {
				t.Fatalf("Initialize: %v", err)
			}
			if svc.State() != Ready {
				t.Fatalf("state: %v", svc.State())
			}
			docs, _ := svc.ListDocuments(ctx)
			if len(docs) != 0 {
				t.Errorf("documents: %v", docs)
			}

			ans, err := svc.Query(ctx, "anything?")
			if err != nil {
				t.Fatalf("Query on empty corpus: %v", err)
			}
			if ans.Text != answer.NotFound || len(ans.Sources) != 0 {
				t.Errorf("answer: %+v", ans)
			}
			if env.llm.calls.Load() != 0 {
				t.Error("provider called without context")
			}
		})
	}
}

func TestInitializeIsIdempotent(t *testing.T) {
	env := newEnv(t)
	env.writeDoc("a.pdf", "a", loader.Page{Number: 1, Text: "Transfer pricing documentation requirements"})
	env.writeDoc("b.pdf", "b", loader.Page{Number: 1, Text: "Value added tax registration thresholds"},
		loader.Page{Number: 2, Text: "Customs duties on imported goods"})
	svc := env.service(nil)
	ctx := context.Background()

	if _, err := svc.Initialize(ctx, false); err != nil {
		t.Fatal(err)
	}
	count := env.embedder.calls.Load()
	before, err := svc.Search(ctx, "tax registration", 10)
	if err != nil {
		t.Fatal(err)
	}

	// Ready and not forced: nothing happens.
	report, err := svc.Initialize(ctx, false)
	if err != nil {
		t.Fatal(err)
	}
	if !report.UpToDate() || env.embedder.calls.Load() != count {
		t.Errorf("expected a no-op, got %+v", report)
	}

	report, err = svc.Initialize(ctx, true)
	if err != nil {
		t.Fatalf("forced Initialize: %v", err)
	}
	if report.Processed != 2 {
		t.Errorf("forced run processed %d", report.Processed)
	}
	after, err := svc.Search(ctx, "tax registration", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(before) != len(after) {
		t.Fatalf("result count changed: %d -> %d", len(before), len(after))
	}
	for i := range before {
		if before[i].Chunk != after[i].Chunk {
			t.Errorf("result %d changed: %+v -> %+v", i, before[i].Chunk, after[i].Chunk)
		}
	}
}

func TestRestartDetectsChangesAndRemovals(t *testing.T) {
	env := newEnv(t)
	env.writeDoc("keep.pdf", "keep", loader.Page{Number: 1, Text: "Withholding tax on dividends"})
	env.writeDoc("edit.pdf", "v1", loader.Page{Number: 1, Text: "Old guidance on royalties"})
	env.writeDoc("old.pdf", "old", loader.Page{Number: 1, Text: "Superseded permanent establishment rules"})
	ctx := context.Background()

	first := env.service(nil)
	if _, err := first.Initialize(ctx, false); err != nil {
		t.Fatal(err)
	}

	env.writeDoc("edit.pdf", "v2", loader.Page{Number: 1, Text: "New guidance on royalties"})
	if err := os.Remove(filepath.Join(env.docsDir, "old.pdf")); err != nil {
		t.Fatal(err)
	}

	second := env.service(nil)
	report, err := second.Initialize(ctx, false)
	if err != nil {
		t.Fatalf("Initialize after restart: %v", err)
	}
	if report.Processed != 1 || report.Skipped != 1 || report.Removed != 1 {
		t.Errorf("report: %+v", report)
	}

	results, err := second.Search(ctx, "superseded permanent establishment rules", 10)
	if err != nil {
		t.Fatal(err)
	}
	for _, r := range results {
		if r.Chunk.Source == "old.pdf" {
			t.Errorf("removed document still retrievable: %+v", r.Chunk)
		}
		if r.Chunk.Source == "edit.pdf" && !strings.Contains(r.Chunk.Text, "New") {
			t.Errorf("stale content for edit.pdf: %q", r.Chunk.Text)
		}
	}
	docs, _ := second.ListDocuments(ctx)
	if strings.Join(docs, ",") != "edit.pdf,keep.pdf" {
		t.Errorf("documents: %v", docs)
	}
}

// blockPersist makes the next store export fail until the returned func runs.
func (e *testEnv) blockPersist() (unblock func()) {
	e.t.Helper()
	tmp := filepath.Join(e.dataDir, "chromem.gob.gz.tmp")
	if err := os.MkdirAll(filepath.Join(tmp, "x"), 0o755); err != nil {
		e.t.Fatal(err)
	}
	return func() {
		if err := os.RemoveAll(tmp); err != nil {
			e.t.Fatal(err)
		}
	}
}

func hasSource(results []vectordb.SearchResult, name string) bool {
	for _, r := range results {
		if r.Chunk.Source == name {
			return true
		}
	}
	return false
}

func TestPersistFailureIsRetried(t *testing.T) {
	env := newEnv(t)
	env.writeDoc("a.pdf", "a", guidePage())
	ctx := context.Background()
	svc := env.service(nil)
	if _, err := svc.Initialize(ctx, false); err != nil {
		t.Fatal(err)
	}

	env.writeDoc("b.pdf", "b", loader.Page{Number: 1, Text: "Advance pricing agreements"})
	unblock := env.blockPersist()
	if _, err := svc.Initialize(ctx, true); err == nil || !strings.Contains(err.Error(), "persisting vector store") {
		t.Fatalf("expected a persist error, got %v", err)
	}
	unblock()

	report, err := svc.Initialize(ctx, false)
	if err != nil {
		t.Fatalf("retry: %v", err)
	}
	if report.UpToDate() {
		t.Fatal("retry must persist the unsaved entries instead of returning early")
	}

	restarted := env.service(nil)
	if _, err := restarted.Initialize(ctx, false); err != nil {
		t.Fatal(err)
	}
	results, err := restarted.Search(ctx, "advance pricing agreements", 4)
	if err != nil {
		t.Fatal(err)
	}
	if !hasSource(results, "b.pdf") {
		t.Errorf("b.pdf lost after restart: %+v", results)
	}
}

func TestRestartReingestsDocumentsMissingFromStore(t *testing.T) {
	env := newEnv(t)
	env.writeDoc("a.pdf", "a", guidePage())
	ctx := context.Background()
	first := env.service(nil)
	if _, err := first.Initialize(ctx, false); err != nil {
		t.Fatal(err)
	}

	// The catalog records b.pdf but the process stops before the store is saved.
	env.writeDoc("b.pdf", "b", loader.Page{Number: 1, Text: "Advance pricing agreements"})
	unblock := env.blockPersist()
	if _, err := first.Initialize(ctx, true); err == nil {
		t.Fatal("expected a persist error")
	}
	unblock()

	second := env.service(nil)
	report, err := second.Initialize(ctx, false)
	if err != nil {
		t.Fatalf("Initialize after restart: %v", err)
	}
	if report.Processed != 1 || report.Skipped != 1 {
		t.Errorf("expected b.pdf to be re-ingested: %+v", report)
	}
	results, err := second.Search(ctx, "advance pricing agreements", 4)
	if err != nil {
		t.Fatal(err)
	}
	if !hasSource(results, "b.pdf") {
		t.Errorf("b.pdf not retrievable: %+v", results)
	}
}

func TestPartialFailureIsReported(t *testing.T) {
	env := newEnv(t)
	env.writeDoc("good.pdf", "good", loader.Page{Number: 1, Text: "Good content"})
	env.writeDoc("bad.pdf", "bad", loader.Page{Number: 1, Text: "Bad content"})
	env.failDoc("bad.pdf", errors.New("malformed xref table"))
	svc := env.service(nil)
	ctx := context.Background()

	report, err := svc.Initialize(ctx, false)
	var ingestErr *IngestError
	if !errors.As(err, &ingestErr) {
		t.Fatalf("expected *IngestError, got %v", err)
	}
	if names := ingestErr.Names(); len(names) != 1 || names[0] != "bad.pdf" {
		t.Errorf("failed documents: %v", names)
	}
	if report.Processed != 1 || report.Failed != 1 {
		t.Errorf("report: %+v", report)
	}
	if svc.State() != Uninitialized {
		t.Errorf("state after failed first run: %v", svc.State())
	}

	// Committed documents stay committed.
	docs, _ := svc.ListDocuments(ctx)
	if len(docs) != 1 || docs[0] != "good.pdf" {
		t.Errorf("documents: %v", docs)
	}
	status, err := svc.Status(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if status.Failures["bad.pdf"] == "" {
		t.Errorf("status should list the failure: %+v", status)
	}

	// A retry only reprocesses the failed document.
	env.failDoc("bad.pdf", nil)
	report, err = svc.Initialize(ctx, false)
	if err != nil {
		t.Fatalf("retry: %v", err)
	}
	if report.Processed != 1 || report.Skipped != 1 {
		t.Errorf("retry report: %+v", report)
	}
	if svc.State() != Ready {
		t.Errorf("state: %v", svc.State())
	}
	status, _ = svc.Status(ctx)
	if status.Documents != 2 || len(status.Failures) != 0 {
		t.Errorf("status after retry: %+v", status)
	}
}

func TestFailedRefreshKeepsServing(t *testing.T) {
	env := newEnv(t)
	env.writeDoc("guide.pdf", "v1", guidePage())
	svc := env.service(nil)
	ctx := context.Background()
	if _, err := svc.Initialize(ctx, false); err != nil {
		t.Fatal(err)
	}

	env.failDoc("guide.pdf", errors.New("unreadable"))
	if _, err := svc.Initialize(ctx, true); err == nil {
		t.Fatal("expected forced refresh to fail")
	}
	if svc.State() != Ready {
		t.Fatalf("state: %v", svc.State())
	}
	ans, err := svc.Query(ctx, "What is the arm's length principle?")
	if err != nil {
		t.Fatalf("Query after failed refresh: %v", err)
	}
	if len(ans.Sources) != 1 {
		t.Errorf("previous index should still answer: %+v", ans)
	}
}

func TestQueryDuringForcedRefresh(t *testing.T) {
	env := newEnv(t)
	env.writeDoc("guide.pdf", "v1", guidePage())
	svc := env.service(nil)
	ctx := context.Background()
	if _, err := svc.Initialize(ctx, false); err != nil {
		t.Fatal(err)
	}

	// Hold the refresh inside its document embedding; later calls pass.
	refreshCall := env.embedder.calls.Load() + 1
	release := make(chan struct{})
	env.embedder.fail = func(n int64) error {
		if n == refreshCall {
			<-release
		}
		return nil
	}
	done := make(chan error, 1)
	go func() {
		_, err := svc.Initialize(ctx, true)
		done <- err
	}()

	deadline := time.Now().Add(2 * time.Second)
	for env.embedder.calls.Load() < refreshCall {
		if time.Now().After(deadline) {
			t.Fatal("refresh never started embedding")
		}
		time.Sleep(time.Millisecond)
	}
	if svc.State() != Initializing {
		t.Fatalf("state during refresh: %v", svc.State())
	}

	ans, err := svc.Query(ctx, "arm's length")
	if err != nil {
		t.Fatalf("query during refresh: %v", err)
	}
	if len(ans.Sources) != 1 || ans.Sources[0].Source != "guide.pdf" {
		t.Errorf("expected the committed index to answer: %+v", ans)
	}

	close(release)
	if err := <-done; err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if svc.State() != Ready {
		t.Errorf("state after refresh: %v", svc.State())
	}
}

func TestRateLimitedTwiceThenSucceeds(t *testing.T) {
	env := newEnv(t)
	env.writeDoc("guide.pdf", "x", guidePage())
	env.embedder.fail = func(call int64) error {
		if call <= 2 {
			return provider.FromStatus("words", http.StatusTooManyRequests, "rate limited")
		}
		return nil
	}

	var mu sync.Mutex
	var delays []time.Duration
	policy := provider.Policy{
		MaxAttempts:    5,
		BaseDelay:      time.Millisecond,
		RateLimitDelay: 5 * time.Millisecond,
		MaxDelay:       time.Second,
		Multiplier:     2,
		OnRetry: func(_ error, d time.Duration) {
			mu.Lock()
			delays = append(delays, d)
			mu.Unlock()
		},
	}
	svc := env.service(embeddings.NewResilient(env.embedder, 100, policy))

	report, err := svc.Initialize(context.Background(), false)
	if err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if report.Processed != 1 {
		t.Errorf("report: %+v", report)
	}
	if len(delays) != 2 || delays[0] != 5*time.Millisecond || delays[1] != 10*time.Millisecond {
		t.Errorf("expected two backoff delays of 5ms and 10ms, got %v", delays)
	}
	if report.Duration < 15*time.Millisecond {
		t.Errorf("duration %v does not include the backoff", report.Duration)
	}
}

func TestCorruptStoreForcesReingestion(t *testing.T) {
	env := newEnv(t)
	env.writeDoc("guide.pdf", "x", guidePage())
	ctx := context.Background()

	first := env.service(nil)
	if _, err := first.Initialize(ctx, false); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(env.dataDir, "manifest.json"), []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}

	second := env.service(nil)
	docs, _ := second.ListDocuments(ctx)
	if len(docs) != 0 {
		t.Errorf("catalog should be reset after a corrupt store, got %v", docs)
	}
	report, err := second.Initialize(ctx, false)
	if err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if report.Processed != 1 {
		t.Errorf("expected full re-ingestion, got %+v", report)
	}
	ans, err := second.Query(ctx, "arm's length")
	if err != nil || len(ans.Sources) != 1 {
		t.Errorf("Query after recovery: %+v, %v", ans, err)
	}
}

func TestConcurrentInitializeCollapses(t *testing.T) {
	env := newEnv(t)
	env.writeDoc("guide.pdf", "x", guidePage())
	env.embedder.delay = 50 * time.Millisecond
	svc := env.service(nil)

	var wg sync.WaitGroup
	reports := make([]*IngestReport, 5)
	errs := make([]error, 5)
	for i := range reports {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			reports[i], errs[i] = svc.Initialize(context.Background(), false)
		}(i)
	}
	wg.Wait()

	runs := map[string]bool{}
	for i, r := range reports {
		if errs[i] != nil {
			t.Fatalf("caller %d: %v", i, errs[i])
		}
		if !r.UpToDate() {
			runs[r.RunID] = true
		}
	}
	if len(runs) != 1 {
		t.Errorf("expected exactly one ingestion run, got %d", len(runs))
	}
	if env.embedder.calls.Load() != 1 {
		t.Errorf("document embedded %d times", env.embedder.calls.Load())
	}
	if svc.State() != Ready {
		t.Errorf("state: %v", svc.State())
	}
}

func TestQuerySynthesisUnavailable(t *testing.T) {
	env := newEnv(t)
	env.writeDoc("guide.pdf", "x", guidePage())
	env.llm.err = provider.FromStatus("stub", http.StatusServiceUnavailable, "overloaded")
	svc := env.service(nil)
	ctx := context.Background()
	if _, err := svc.Initialize(ctx, false); err != nil {
		t.Fatal(err)
	}

	_, err := svc.Query(ctx, "arm's length")
	if !errors.Is(err, answer.ErrSynthesisUnavailable) {
		t.Fatalf("expected ErrSynthesisUnavailable, got %v", err)
	}
}

func TestStatus(t *testing.T) {
	env := newEnv(t)
	env.writeDoc("guide.pdf", "x", guidePage())
	svc := env.service(nil)
	ctx := context.Background()

	status, err := svc.Status(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if status.State != Uninitialized || status.LastIngestion != nil {
		t.Errorf("initial status: %+v", status)
	}

	if _, err := svc.Initialize(ctx, false); err != nil {
		t.Fatal(err)
	}
	status, _ = svc.Status(ctx)
	if status.State != Ready || status.Documents != 1 || status.Chunks != 1 {
		t.Errorf("status: %+v", status)
	}
	if status.LastIngestion == nil || status.LastReport == nil || status.LastReport.Processed != 1 {
		t.Errorf("last run missing: %+v", status)
	}
}

func TestIngestErrorMessage(t *testing.T) {
	err := &IngestError{Failed: map[string]error{
		"b.pdf": provider.FromStatus("x", http.StatusUnauthorized, "bad key"),
		"a.pdf": errors.New("unreadable"),
	}}
	msg := err.Error()
	if !strings.HasPrefix(msg, "ingestion failed for 2 documents: a.pdf: unreadable; b.pdf:") {
		t.Errorf("message: %s", msg)
	}
	if !errors.Is(err, provider.ErrAuth) {
		t.Error("per-document causes should be reachable with errors.Is")
	}
}
