package rag

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/tewou-sn/tewou/internal/knowledge"
)

// IndexerStore is the storage surface the ingestion pipeline needs.
// knowledge.Store satisfies it.
type IndexerStore interface {
	// Rebuild replaces the whole collection with the given chunks.
	Rebuild(ctx context.Context, docs []knowledge.Document) error
}

// IndexStats summarizes one ingestion run.
type IndexStats struct {
	Documents int
	Chunks    int
	Duration  time.Duration
}

// Indexer drives the ingestion pipeline: load the corpus, split it into
// chunks, and rebuild the vector index from scratch.
type Indexer struct {
	store    IndexerStore
	splitter *Splitter
	logger   *slog.Logger
}

// NewIndexer creates an ingestion pipeline over the given store.
func NewIndexer(store IndexerStore, splitter *Splitter, logger *slog.Logger) *Indexer {
	return &Indexer{store: store, splitter: splitter, logger: logger}
}

// BuildFromDir loads every document under dataDir, splits it, and rebuilds
// the index. Returns knowledge.ErrNoDocuments when the data directory
// yields nothing usable; the previous index is left untouched in that case.
func (ix *Indexer) BuildFromDir(ctx context.Context, dataDir string) (*IndexStats, error) {
	start := time.Now()

	docs, err := LoadDocuments(dataDir, ix.logger)
	if err != nil {
		return nil, fmt.Errorf("loading documents: %w", err)
	}
	if len(docs) == 0 {
		return nil, fmt.Errorf("no usable documents under %s: %w", dataDir, knowledge.ErrNoDocuments)
	}

	chunks := ix.splitter.SplitDocuments(docs)
	ix.logger.Info("split corpus", "documents", len(docs), "chunks", len(chunks))

	if err := ix.store.Rebuild(ctx, chunks); err != nil {
		return nil, fmt.Errorf("rebuilding index: %w", err)
	}

	return &IndexStats{
		Documents: len(docs),
		Chunks:    len(chunks),
		Duration:  time.Since(start),
	}, nil
}
