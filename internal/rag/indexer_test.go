package rag

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/tewou-sn/tewou/internal/knowledge"
	"github.com/tewou-sn/tewou/internal/log"
)

// recordingStore captures what the indexer asked to persist.
type recordingStore struct {
	chunks []knowledge.Document
	err    error
}

func (r *recordingStore) Rebuild(_ context.Context, docs []knowledge.Document) error {
	if r.err != nil {
		return r.err
	}
	r.chunks = docs
	return nil
}

func TestBuildFromDir(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, textDirName, "mil.txt"),
		strings.Repeat("Le mil se sème dès les premières pluies de l'hivernage. ", 5))
	writeFile(t, filepath.Join(dir, webDirName, "sol.json"),
		`{"content": "Les sols dior conviennent à l'arachide.", "source_url": "https://exemple.sn/sols"}`)

	splitter, err := NewSplitter(120, 20)
	if err != nil {
		t.Fatal(err)
	}
	store := &recordingStore{}
	ix := NewIndexer(store, splitter, log.NewNop())

	stats, err := ix.BuildFromDir(context.Background(), dir)
	if err != nil {
		t.Fatalf("BuildFromDir() error = %v", err)
	}
	if stats.Documents != 2 {
		t.Errorf("stats.Documents = %d, want 2", stats.Documents)
	}
	if stats.Chunks != len(store.chunks) {
		t.Errorf("stats.Chunks = %d, store got %d", stats.Chunks, len(store.chunks))
	}
	if len(store.chunks) < 3 {
		t.Errorf("expected the text file to split into multiple chunks, got %d total", len(store.chunks))
	}
}

func TestBuildFromDirEmptyCorpus(t *testing.T) {
	splitter, err := NewSplitter(1000, 100)
	if err != nil {
		t.Fatal(err)
	}
	ix := NewIndexer(&recordingStore{}, splitter, log.NewNop())

	_, err = ix.BuildFromDir(context.Background(), t.TempDir())
	if !errors.Is(err, knowledge.ErrNoDocuments) {
		t.Fatalf("BuildFromDir() error = %v, want ErrNoDocuments", err)
	}
}

func TestBuildFromDirStoreFailure(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, textDirName, "a.txt"), "contenu")

	splitter, err := NewSplitter(1000, 100)
	if err != nil {
		t.Fatal(err)
	}
	storeErr := errors.New("embedding backend down")
	ix := NewIndexer(&recordingStore{err: storeErr}, splitter, log.NewNop())

	_, err = ix.BuildFromDir(context.Background(), dir)
	if !errors.Is(err, storeErr) {
		t.Fatalf("BuildFromDir() error = %v, want wrapped store error", err)
	}
}
