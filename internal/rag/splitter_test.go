package rag

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/tewou-sn/tewou/internal/knowledge"
)

func TestNewSplitterValidation(t *testing.T) {
	tests := []struct {
		name    string
		size    int
		overlap int
		wantErr error
	}{
		{name: "valid", size: 1000, overlap: 100},
		{name: "zero overlap", size: 100, overlap: 0},
		{name: "zero size", size: 0, overlap: 0, wantErr: ErrInvalidChunkSize},
		{name: "negative size", size: -1, overlap: 0, wantErr: ErrInvalidChunkSize},
		{name: "negative overlap", size: 100, overlap: -1, wantErr: ErrInvalidOverlap},
		{name: "overlap equals size", size: 100, overlap: 100, wantErr: ErrInvalidOverlap},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewSplitter(tt.size, tt.overlap)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("NewSplitter(%d, %d) error = %v, want %v", tt.size, tt.overlap, err, tt.wantErr)
			}
		})
	}
}

func TestSplitShortTextIsSingleChunk(t *testing.T) {
	s, err := NewSplitter(1000, 100)
	if err != nil {
		t.Fatal(err)
	}

	text := "Le mil est une céréale résistante à la sécheresse."
	chunks := s.Split(text)
	if len(chunks) != 1 {
		t.Fatalf("Split() produced %d chunks, want 1", len(chunks))
	}
	if chunks[0] != text {
		t.Errorf("chunk = %q, want source text unchanged", chunks[0])
	}
}

func TestSplitBlankTextYieldsNothing(t *testing.T) {
	s, err := NewSplitter(100, 10)
	if err != nil {
		t.Fatal(err)
	}

	for _, text := range []string{"", "   ", "\n\n\t"} {
		if chunks := s.Split(text); len(chunks) != 0 {
			t.Errorf("Split(%q) = %v, want no chunks", text, chunks)
		}
	}
}

func TestSplitInvariants(t *testing.T) {
	const chunkSize = 80
	s, err := NewSplitter(chunkSize, 20)
	if err != nil {
		t.Fatal(err)
	}

	// Unique sentences keep every chunk distinct so source positions can
	// be checked for ordering.
	var sb strings.Builder
	for i := 0; i < 20; i++ {
		fmt.Fprintf(&sb, "Campagne %d: le rendement du mil progresse dans la zone %d. ", 2000+i, i)
	}
	sb.WriteString("\n\n")
	for i := 0; i < 20; i++ {
		fmt.Fprintf(&sb, "Parcelle %d: l'hivernage a livré %d mm de pluies utiles. ", i, 300+i)
	}
	text := sb.String()

	chunks := s.Split(text)
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}

	lastIdx := -1
	for i, chunk := range chunks {
		if strings.TrimSpace(chunk) == "" {
			t.Fatalf("chunk %d is blank", i)
		}
		if n := utf8.RuneCountInString(chunk); n > chunkSize {
			t.Errorf("chunk %d is %d runes, exceeds limit %d", i, n, chunkSize)
		}
		idx := strings.Index(text, chunk)
		if idx < 0 {
			t.Fatalf("chunk %d is not a substring of the source: %q", i, chunk)
		}
		if idx <= lastIdx {
			t.Errorf("chunk %d starts at %d, before previous chunk at %d; order not preserved", i, idx, lastIdx)
		}
		lastIdx = idx
	}
}

func TestSplitRoundTripExact(t *testing.T) {
	// With zero overlap the chunks partition the source, separators
	// included, so joining them must reproduce it byte for byte.
	tests := []struct {
		name      string
		chunkSize int
		text      string
	}{
		{
			name:      "newline separated, tiny chunks",
			chunkSize: 5,
			text:      "aaa\nbbb\nccc",
		},
		{
			name:      "lines of prose",
			chunkSize: 50,
			text: "Le sémis du mil débute avec les premières pluies utiles.\n" +
				"Dans le bassin arachidier les sols dior dominent.\n" +
				"La rotation mil arachide préserve la fertilité du sol sur plusieurs campagnes.",
		},
		{
			name:      "paragraph breaks and trailing newline",
			chunkSize: 12,
			text:      "premier bloc\n\nsecond bloc\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := NewSplitter(tt.chunkSize, 0)
			if err != nil {
				t.Fatal(err)
			}

			chunks := s.Split(tt.text)
			if got := strings.Join(chunks, ""); got != tt.text {
				t.Errorf("chunks do not reconstruct the source:\ngot  %q\nwant %q", got, tt.text)
			}
		})
	}
}

func TestSplitOverlapCarriesContext(t *testing.T) {
	s, err := NewSplitter(40, 15)
	if err != nil {
		t.Fatal(err)
	}

	text := strings.Repeat("mot ", 60)
	chunks := s.Split(text)
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}

	for i := 1; i < len(chunks); i++ {
		prevWords := strings.Fields(chunks[i-1])
		tail := prevWords[len(prevWords)-1]
		if !strings.HasPrefix(strings.TrimLeft(chunks[i], " "), tail) {
			t.Errorf("chunk %d does not repeat trailing context of chunk %d", i, i-1)
		}
	}
}

func TestSplitIndivisibleRun(t *testing.T) {
	// A run with no separators at all degrades to rune-level splitting
	// rather than producing an oversized chunk.
	s, err := NewSplitter(10, 2)
	if err != nil {
		t.Fatal(err)
	}

	chunks := s.Split(strings.Repeat("x", 35))
	for i, chunk := range chunks {
		if n := utf8.RuneCountInString(chunk); n > 10 {
			t.Errorf("chunk %d is %d runes, exceeds limit", i, n)
		}
	}
}

func TestSplitDocuments(t *testing.T) {
	s, err := NewSplitter(60, 10)
	if err != nil {
		t.Fatal(err)
	}

	docs := []knowledge.Document{
		{
			ID:      "doc_abc",
			Content: strings.Repeat("Le niébé enrichit le sol en azote. ", 10),
			Metadata: map[string]string{
				knowledge.MetaSource: "niebe.txt",
				knowledge.MetaType:   "txt",
			},
		},
	}

	chunks := s.SplitDocuments(docs)
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}

	seen := make(map[string]bool)
	for i, chunk := range chunks {
		if seen[chunk.ID] {
			t.Errorf("duplicate chunk ID %q", chunk.ID)
		}
		seen[chunk.ID] = true
		if !strings.HasPrefix(chunk.ID, "doc_abc#") {
			t.Errorf("chunk %d ID = %q, want parent prefix", i, chunk.ID)
		}
		if chunk.Metadata[knowledge.MetaSource] != "niebe.txt" {
			t.Errorf("chunk %d lost source metadata", i)
		}
	}

	// Metadata maps must be independent copies.
	chunks[0].Metadata[knowledge.MetaSource] = "mutated"
	if docs[0].Metadata[knowledge.MetaSource] != "niebe.txt" {
		t.Error("chunk metadata shares storage with the parent document")
	}
}
