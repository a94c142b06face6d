package cmd

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/ziadkadry99/regqa/internal/answer"
	"github.com/ziadkadry99/regqa/internal/catalog"
	"github.com/ziadkadry99/regqa/internal/chunker"
	"github.com/ziadkadry99/regqa/internal/config"
	"github.com/ziadkadry99/regqa/internal/db"
	"github.com/ziadkadry99/regqa/internal/embeddings"
	"github.com/ziadkadry99/regqa/internal/indexer"
	"github.com/ziadkadry99/regqa/internal/knowledge"
	"github.com/ziadkadry99/regqa/internal/llm"
	"github.com/ziadkadry99/regqa/internal/logging"
	"github.com/ziadkadry99/regqa/internal/vectordb"
)

// loadConfig loads and validates the config, providing a user-friendly error.
// It also configures logging from the loaded settings.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w\nRun `regqa init` to create a config file", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	level := cfg.Log.Level
	if verbose {
		level = "debug"
	}
	logging.Setup(level, cfg.Log.Format, nil)
	return cfg, nil
}

// app bundles the orchestrator with the resources it holds open.
type app struct {
	cfg     *config.Config
	service *knowledge.Service
	db      *db.DB
}

func (a *app) Close() error {
	return a.db.Close()
}

// buildApp wires every pipeline component from cfg. onProgress may be nil.
func buildApp(ctx context.Context, cfg *config.Config, onProgress indexer.ProgressFunc) (*app, error) {
	rawEmbedder, err := embeddings.NewFromConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("creating embedder: %w", err)
	}
	embedder := embeddings.NewResilient(rawEmbedder, cfg.EmbeddingBatchSize, cfg.RetryPolicy())

	llmProvider, err := llm.NewProvider(cfg)
	if err != nil {
		return nil, fmt.Errorf("creating LLM provider: %w", err)
	}
	synth := answer.New(llmProvider, answer.Options{
		Model:        cfg.Model,
		SystemPrompt: cfg.SystemPrompt,
		Temperature:  cfg.Temperature,
		MaxTokens:    cfg.MaxTokens,
		Retry:        cfg.RetryPolicy(),
	})

	ch, err := chunker.New(cfg.ChunkSize, cfg.ChunkOverlap)
	if err != nil {
		return nil, err
	}

	store, err := vectordb.NewChromemStore(vectordb.Options{
		Dir:            cfg.DataDir,
		EmbeddingModel: embedder.Name(),
		EmbeddingFunc:  embeddings.ToChromemFunc(embedder),
	})
	if err != nil {
		return nil, fmt.Errorf("creating vector store: %w", err)
	}

	database, err := db.Open(filepath.Join(cfg.DataDir, db.FileName))
	if err != nil {
		return nil, err
	}

	service, err := knowledge.New(ctx, knowledge.Options{
		DocumentsDir:   cfg.DocumentsDir,
		Include:        cfg.Include,
		Exclude:        cfg.Exclude,
		TopK:           cfg.TopK,
		MaxConcurrency: cfg.MaxConcurrency,
		Chunker:        ch,
		Embedder:       embedder,
		Store:          store,
		Catalog:        catalog.NewStore(database),
		Synthesizer:    synth,
		OnProgress:     onProgress,
	})
	if err != nil {
		database.Close()
		return nil, err
	}

	return &app{cfg: cfg, service: service, db: database}, nil
}

// openApp loads the config and builds the app in one step.
func openApp(ctx context.Context, onProgress indexer.ProgressFunc) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return buildApp(ctx, cfg, onProgress)
}

// ensureReady brings the knowledge base up to date before a one-shot command.
func ensureReady(ctx context.Context, a *app) error {
	report, err := a.service.Initialize(ctx, false)
	if err != nil {
		return fmt.Errorf("initializing knowledge base: %w", err)
	}
	if !report.UpToDate() {
		logger := logging.Component("cli")
		logger.Info().Str("report", report.String()).Msg("knowledge base refreshed")
	}
	return nil
}
