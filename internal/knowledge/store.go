package knowledge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	chromem "github.com/philippgille/chromem-go"
)

// CollectionName is the single chromem collection holding the corpus.
// There is exactly one index per process; no multi-tenant collections.
const CollectionName = "agro_knowledge"

// addConcurrency bounds parallel embedding calls during a rebuild.
const addConcurrency = 4

// ErrNoDocuments indicates a rebuild was attempted with an empty corpus.
var ErrNoDocuments = errors.New("no documents to index")

// Store manages the persistent vector index. It wraps a chromem-go
// database persisted under a single directory, with embeddings computed
// through the provided EmbeddingFunc.
//
// Store is safe for concurrent readers once built; Rebuild must not run
// concurrently with Search.
type Store struct {
	db        *chromem.DB
	embedding chromem.EmbeddingFunc
	logger    *slog.Logger
}

// OpenStore opens (or creates) the persistent index at dir.
//
// Opening does not validate that an index has been built; use Count to
// check, or go through Handle for the load-once query path.
func OpenStore(dir string, embedding chromem.EmbeddingFunc, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}

	db, err := chromem.NewPersistentDB(dir, false)
	if err != nil {
		return nil, fmt.Errorf("opening vector store at %s: %w", dir, err)
	}

	return &Store{
		db:        db,
		embedding: embedding,
		logger:    logger,
	}, nil
}

// Rebuild replaces the persisted index with embeddings of docs. The
// previous collection is dropped first, so a failed rebuild leaves an
// empty index rather than a stale one. Rebuilds run out-of-band (the
// ingest command), never per-query.
func (s *Store) Rebuild(ctx context.Context, docs []Document) error {
	if len(docs) == 0 {
		return ErrNoDocuments
	}

	if err := s.db.DeleteCollection(CollectionName); err != nil {
		return fmt.Errorf("dropping previous collection: %w", err)
	}

	col, err := s.db.CreateCollection(CollectionName, nil, s.embedding)
	if err != nil {
		return fmt.Errorf("creating collection: %w", err)
	}

	chromemDocs := make([]chromem.Document, 0, len(docs))
	for _, doc := range docs {
		chromemDocs = append(chromemDocs, chromem.Document{
			ID:       doc.ID,
			Content:  doc.Content,
			Metadata: doc.Metadata,
		})
	}

	start := time.Now()
	if err := col.AddDocuments(ctx, chromemDocs, addConcurrency); err != nil {
		return fmt.Errorf("embedding documents: %w", err)
	}

	s.logger.Info("vector index rebuilt",
		"chunks", len(docs),
		"duration", time.Since(start))
	return nil
}

// Search embeds query with the store's embedding model and returns the k
// nearest chunks by cosine similarity, best first. k is clamped to the
// collection size; an empty collection returns no results.
func (s *Store) Search(ctx context.Context, query string, k int) ([]Result, error) {
	col := s.db.GetCollection(CollectionName, s.embedding)
	if col == nil {
		return nil, fmt.Errorf("collection %q not found", CollectionName)
	}

	if count := col.Count(); k > count {
		k = count
	}
	if k <= 0 {
		return nil, nil
	}

	rows, err := col.Query(ctx, query, k, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}

	results := make([]Result, 0, len(rows))
	for _, row := range rows {
		results = append(results, Result{
			Document: Document{
				ID:       row.ID,
				Content:  row.Content,
				Metadata: row.Metadata,
			},
			Similarity: row.Similarity,
		})
	}

	s.logger.Debug("search complete", "query_length", len(query), "results", len(results))
	return results, nil
}

// Count returns the number of chunks in the persisted collection, or 0
// when no index has been built yet.
func (s *Store) Count() int {
	col := s.db.GetCollection(CollectionName, s.embedding)
	if col == nil {
		return 0
	}
	return col.Count()
}
