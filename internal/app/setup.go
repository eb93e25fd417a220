// Package app wires the assistant together: Genkit and its model plugin,
// the vector index handle, the RAG pipeline, chat-history persistence, and
// the scrape-metadata registry.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"github.com/firebase/genkit/go/plugins/googlegenai"
	"github.com/jackc/pgx/v5/pgxpool"
	chromem "github.com/philippgille/chromem-go"

	"github.com/tewou-sn/tewou/db"
	"github.com/tewou-sn/tewou/internal/config"
	"github.com/tewou-sn/tewou/internal/database"
	"github.com/tewou-sn/tewou/internal/knowledge"
	"github.com/tewou-sn/tewou/internal/metadata"
	"github.com/tewou-sn/tewou/internal/rag"
	"github.com/tewou-sn/tewou/internal/session"
)

// App holds the assembled application.
type App struct {
	Config   *config.Config
	Logger   *slog.Logger
	Genkit   *genkit.Genkit
	Handle   *knowledge.Handle
	Pipeline *rag.Pipeline
	History  session.History
	Registry *metadata.Registry

	embedding chromem.EmbeddingFunc
	pool      *pgxpool.Pool // nil when the file backend is active
}

// New assembles the application from cfg. The chat-history backend is
// chosen here, once: PostgreSQL when DATABASE_URL is set and reachable,
// the JSON file store otherwise.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	g := genkit.Init(ctx, genkit.WithPlugins(&googlegenai.GoogleAI{}))
	if g == nil {
		return nil, errors.New("initializing genkit")
	}

	a := &App{
		Config: cfg,
		Logger: logger,
		Genkit: g,
	}

	// The embedding function is built lazily by the handle so a missing
	// index directory never touches the embedder at all.
	a.Handle = knowledge.NewHandle(
		knowledge.DirOpener(cfg.IndexDir, a.Embedding, logger),
		logger,
	)

	pipeline, err := rag.New(rag.Config{
		Genkit:      g,
		Handle:      a.Handle,
		ModelName:   cfg.FullModelName(),
		TopK:        cfg.TopK,
		Temperature: cfg.Temperature,
		Logger:      logger,
	})
	if err != nil {
		return nil, fmt.Errorf("building pipeline: %w", err)
	}
	a.Pipeline = pipeline

	a.History = a.selectHistory(ctx)

	registry, err := metadata.New(cfg.MetadataFile)
	if err != nil {
		return nil, fmt.Errorf("opening metadata registry: %w", err)
	}
	a.Registry = registry

	return a, nil
}

// selectHistory picks the chat-history backend. A configured but
// unreachable database degrades to the file store with a warning instead
// of refusing to start.
func (a *App) selectHistory(ctx context.Context) session.History {
	cfg, logger := a.Config, a.Logger

	if cfg.DatabaseURL != "" {
		if store, err := a.openPostgresHistory(ctx); err == nil {
			logger.Info("chat history backend", "store", "postgres")
			return store
		} else {
			logger.Warn("database unreachable, falling back to file history", "error", err)
		}
	}

	store, err := session.NewFileStore(cfg.HistoryFile, logger)
	if err != nil {
		// The file store creates its own directory; failing here means
		// the filesystem itself is broken. Run without persistence.
		logger.Error("opening file history, chats will not persist", "error", err)
		return nil
	}
	logger.Info("chat history backend", "store", "file", "path", cfg.HistoryFile)
	return store
}

func (a *App) openPostgresHistory(ctx context.Context) (session.History, error) {
	if err := db.Migrate(a.Config.DatabaseURL, a.Logger); err != nil {
		return nil, fmt.Errorf("migrating schema: %w", err)
	}
	pool, err := database.Connect(ctx, a.Config.DatabaseURL, a.Logger)
	if err != nil {
		return nil, err
	}
	a.pool = pool
	return session.NewPostgresStore(pool, a.Logger), nil
}

// Embedding returns the chromem embedding function, building it on first
// use.
func (a *App) Embedding() (chromem.EmbeddingFunc, error) {
	if a.embedding == nil {
		embedder := googlegenai.GoogleAIEmbedder(a.Genkit, a.Config.EmbedderModel)
		if embedder == nil {
			return nil, fmt.Errorf("embedder %q not available", a.Config.EmbedderModel)
		}
		a.embedding = knowledge.NewEmbeddingFunc(embedder)
	}
	return a.embedding, nil
}

// Embedder exposes the raw Genkit embedder.
func (a *App) Embedder() ai.Embedder {
	return googlegenai.GoogleAIEmbedder(a.Genkit, a.Config.EmbedderModel)
}

// BuildIndex runs the ingestion pipeline against the configured data
// directory and resets the handle so the next query sees the new index.
func (a *App) BuildIndex(ctx context.Context) (*rag.IndexStats, error) {
	embedding, err := a.Embedding()
	if err != nil {
		return nil, err
	}

	store, err := knowledge.OpenStore(a.Config.IndexDir, embedding, a.Logger)
	if err != nil {
		return nil, fmt.Errorf("opening index: %w", err)
	}

	splitter, err := rag.NewSplitter(a.Config.ChunkSize, a.Config.ChunkOverlap)
	if err != nil {
		return nil, err
	}

	stats, err := rag.NewIndexer(store, splitter, a.Logger).BuildFromDir(ctx, a.Config.DataDir)
	if err != nil {
		return nil, err
	}

	a.Handle.Reset()
	a.recordIngest(ctx, stats)
	return stats, nil
}

// recordIngest appends a rebuild record to the scrape-metadata registry,
// next to the entries the scraping layer writes for collected files. A
// registry failure is logged, not fatal: the index itself is already
// rebuilt.
func (a *App) recordIngest(ctx context.Context, stats *rag.IndexStats) {
	if a.Registry == nil {
		return
	}
	err := a.Registry.Add(ctx, metadata.Entry{
		"event":     "index_rebuild",
		"data_dir":  a.Config.DataDir,
		"documents": stats.Documents,
		"chunks":    stats.Chunks,
	})
	if err != nil {
		a.Logger.Warn("recording index rebuild", "error", err)
	}
}

// Close releases held resources.
func (a *App) Close() {
	if a.pool != nil {
		a.pool.Close()
	}
}
