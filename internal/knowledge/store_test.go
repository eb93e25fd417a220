package knowledge

import (
	"context"
	"errors"
	"strings"
	"testing"

	chromem "github.com/philippgille/chromem-go"

	"github.com/tewou-sn/tewou/internal/log"
)

// keywordEmbedding maps each known crop keyword to its own axis, making
// similarity deterministic without a real model.
func keywordEmbedding() chromem.EmbeddingFunc {
	axes := []string{"mil", "arachide", "riz"}
	return func(_ context.Context, text string) ([]float32, error) {
		vec := make([]float32, len(axes)+1)
		lower := strings.ToLower(text)
		hit := false
		for i, kw := range axes {
			if strings.Contains(lower, kw) {
				vec[i] = 1
				hit = true
			}
		}
		if !hit {
			vec[len(axes)] = 1
		}
		return vec, nil
	}
}

func testDocs() []Document {
	return []Document{
		{
			ID:      "doc1#0",
			Content: "Le mil se sème au début de l'hivernage, entre juin et juillet.",
			Metadata: map[string]string{
				MetaSource: "calendrier_cultural.txt",
				MetaType:   "txt",
			},
		},
		{
			ID:      "doc2#0",
			Content: "L'arachide préfère les sols sablonneux du bassin arachidier.",
			Metadata: map[string]string{
				MetaSource: "https://example.sn/arachide",
				MetaType:   "json",
				MetaRegion: "Kaolack",
			},
		},
		{
			ID:      "doc3#0",
			Content: "Le riz irrigué domine dans la vallée du fleuve Sénégal.",
			Metadata: map[string]string{
				MetaSource: "riz_irrigue.txt",
				MetaType:   "txt",
			},
		},
	}
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := OpenStore(t.TempDir(), keywordEmbedding(), log.NewNop())
	if err != nil {
		t.Fatalf("OpenStore() error = %v", err)
	}
	return store
}

func TestRebuildAndSearch(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	if err := store.Rebuild(ctx, testDocs()); err != nil {
		t.Fatalf("Rebuild() error = %v", err)
	}
	if got := store.Count(); got != 3 {
		t.Fatalf("Count() = %d, want 3", got)
	}

	results, err := store.Search(ctx, "Quand semer le mil ?", 1)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("Search() returned %d results, want 1", len(results))
	}
	if results[0].Document.ID != "doc1#0" {
		t.Errorf("top result = %s, want doc1#0", results[0].Document.ID)
	}
	if got := results[0].Document.Metadata[MetaSource]; got != "calendrier_cultural.txt" {
		t.Errorf("metadata source = %q", got)
	}
}

func TestSearchClampsK(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	if err := store.Rebuild(ctx, testDocs()); err != nil {
		t.Fatalf("Rebuild() error = %v", err)
	}

	// Asking for more results than stored chunks must not fail.
	results, err := store.Search(ctx, "arachide", 10)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(results) != 3 {
		t.Errorf("Search() returned %d results, want all 3", len(results))
	}
}

func TestRebuildEmptyCorpus(t *testing.T) {
	store := newTestStore(t)

	err := store.Rebuild(context.Background(), nil)
	if !errors.Is(err, ErrNoDocuments) {
		t.Fatalf("Rebuild(nil) error = %v, want ErrNoDocuments", err)
	}
}

func TestRebuildIsDestructive(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	if err := store.Rebuild(ctx, testDocs()); err != nil {
		t.Fatalf("first Rebuild() error = %v", err)
	}

	replacement := []Document{{
		ID:       "new#0",
		Content:  "Le riz pluvial gagne du terrain en Casamance.",
		Metadata: map[string]string{MetaSource: "riz_casamance.txt", MetaType: "txt"},
	}}
	if err := store.Rebuild(ctx, replacement); err != nil {
		t.Fatalf("second Rebuild() error = %v", err)
	}

	if got := store.Count(); got != 1 {
		t.Fatalf("Count() after rebuild = %d, want 1 (old corpus replaced)", got)
	}

	results, err := store.Search(ctx, "mil", 1)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(results) == 1 && results[0].Document.ID == "doc1#0" {
		t.Error("old chunk survived a destructive rebuild")
	}
}

func TestDirOpenerLoadsBuiltIndex(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	store, err := OpenStore(dir, keywordEmbedding(), log.NewNop())
	if err != nil {
		t.Fatalf("OpenStore() error = %v", err)
	}
	if err := store.Rebuild(ctx, testDocs()); err != nil {
		t.Fatalf("Rebuild() error = %v", err)
	}

	open := DirOpener(dir, func() (chromem.EmbeddingFunc, error) {
		return keywordEmbedding(), nil
	}, log.NewNop())

	loaded, err := open()
	if err != nil {
		t.Fatalf("open() error = %v", err)
	}
	if got := loaded.Count(); got != 3 {
		t.Errorf("loaded Count() = %d, want 3", got)
	}
}
