package knowledge

import (
	"log/slog"
	"os"
	"sync"

	chromem "github.com/philippgille/chromem-go"
)

// Opener loads a ready-to-query Store. It returns *UnavailableError when
// no usable index exists on disk.
type Opener func() (*Store, error)

// Handle caches the query-side Store for the lifetime of the process.
//
// The first Get runs the Opener exactly once, also under concurrent first
// callers, and every later Get returns the same outcome without touching
// disk or re-initializing the embedding model. A load failure is cached as
// unavailable until Reset: an operator rebuilds the index and restarts
// rather than having every request retry a broken load.
type Handle struct {
	mu     sync.Mutex
	open   Opener
	logger *slog.Logger

	loaded bool
	store  *Store // nil when unavailable
}

// NewHandle creates a Handle around open.
func NewHandle(open Opener, logger *slog.Logger) *Handle {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handle{open: open, logger: logger}
}

// Get returns the cached Store. ok is false when the index is
// unavailable; Get never returns an error past this boundary.
func (h *Handle) Get() (store *Store, ok bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.loaded {
		return h.store, h.store != nil
	}
	h.loaded = true

	s, err := h.open()
	if err != nil {
		h.logger.Warn("vector index unavailable", "error", err)
		return nil, false
	}

	h.store = s
	h.logger.Info("vector index loaded", "chunks", s.Count())
	return s, true
}

// Reset drops the cached store so the next Get reloads from disk.
// Intended for tests and for out-of-band invalidation after a rebuild.
func (h *Handle) Reset() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.loaded = false
	h.store = nil
}

// DirOpener returns an Opener that loads the index persisted at dir,
// reporting it unavailable when the directory is missing or holds no
// built collection. The embedding function is constructed lazily so the
// model initializes only when an index actually exists.
func DirOpener(dir string, embedding func() (chromem.EmbeddingFunc, error), logger *slog.Logger) Opener {
	return func() (*Store, error) {
		if _, err := os.Stat(dir); err != nil {
			return nil, &UnavailableError{Reason: "index directory not found: " + dir}
		}

		emb, err := embedding()
		if err != nil {
			return nil, err
		}

		store, err := OpenStore(dir, emb, logger)
		if err != nil {
			return nil, err
		}
		if store.Count() == 0 {
			return nil, &UnavailableError{Reason: "index is empty: " + dir}
		}
		return store, nil
	}
}

// UnavailableError reports a missing or empty persisted index.
type UnavailableError struct {
	Reason string
}

func (e *UnavailableError) Error() string { return "vector index unavailable: " + e.Reason }
