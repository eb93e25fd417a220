// Package metadata keeps the append-only registry of collected sources.
// Each ingested page or file gets one record in a JSON array on disk, so
// the provenance of the knowledge base can be audited without the index.
package metadata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"
)

// TimestampKey is stamped on every entry that does not carry its own.
const TimestampKey = "timestamp"

// Entry is one collection record: free-form keys describing where a piece
// of the corpus came from.
type Entry map[string]any

// Registry is an append-only list of entries backed by a JSON file.
//
// Safe for concurrent use within a process and locked against other
// processes during writes.
type Registry struct {
	mu   sync.Mutex
	path string
	lock *flock.Flock
}

// New creates a registry at path, initializing an empty file as needed.
func New(path string) (*Registry, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating metadata directory: %w", err)
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		if err := os.WriteFile(path, []byte("[]"), 0o644); err != nil {
			return nil, fmt.Errorf("initializing metadata file: %w", err)
		}
	} else if err != nil {
		return nil, fmt.Errorf("checking metadata file: %w", err)
	}

	return &Registry{
		path: path,
		lock: flock.New(path + ".lock"),
	}, nil
}

// Add appends one entry, stamping TimestampKey (RFC 3339) when the entry
// does not set it. Existing records are never modified.
func (r *Registry) Add(ctx context.Context, entry Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	locked, err := r.lock.TryLockContext(ctx, 50*time.Millisecond)
	if err != nil {
		return fmt.Errorf("locking metadata file: %w", err)
	}
	if !locked {
		return errors.New("metadata file is locked by another process")
	}
	defer func() { _ = r.lock.Unlock() }()

	entries, err := r.read()
	if err != nil {
		return err
	}

	stamped := make(Entry, len(entry)+1)
	for k, v := range entry {
		stamped[k] = v
	}
	if _, ok := stamped[TimestampKey]; !ok {
		stamped[TimestampKey] = time.Now().Format(time.RFC3339)
	}
	entries = append(entries, stamped)

	raw, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding metadata: %w", err)
	}
	tmp := r.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return fmt.Errorf("writing metadata file: %w", err)
	}
	if err := os.Rename(tmp, r.path); err != nil {
		return fmt.Errorf("replacing metadata file: %w", err)
	}
	return nil
}

// All returns every record in insertion order. A missing file is an empty
// registry.
func (r *Registry) All(ctx context.Context) ([]Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	locked, err := r.lock.TryLockContext(ctx, 50*time.Millisecond)
	if err != nil {
		return nil, fmt.Errorf("locking metadata file: %w", err)
	}
	if !locked {
		return nil, errors.New("metadata file is locked by another process")
	}
	defer func() { _ = r.lock.Unlock() }()

	return r.read()
}

func (r *Registry) read() ([]Entry, error) {
	raw, err := os.ReadFile(r.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading metadata file: %w", err)
	}

	var entries []Entry
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &entries); err != nil {
			return nil, fmt.Errorf("decoding metadata file: %w", err)
		}
	}
	return entries, nil
}
