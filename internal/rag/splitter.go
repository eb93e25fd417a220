package rag

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/tewou-sn/tewou/internal/knowledge"
)

// Sentinel errors for splitter construction.
var (
	ErrInvalidChunkSize = errors.New("chunk size must be positive")
	ErrInvalidOverlap   = errors.New("chunk overlap must be non-negative and smaller than chunk size")
)

// defaultSeparators orders boundaries from coarsest to finest: paragraph
// breaks, line breaks, word breaks, then single runes as a last resort.
var defaultSeparators = []string{"\n\n", "\n", " ", ""}

// Splitter cuts document content into overlapping chunks small enough to
// embed. It prefers the coarsest separator that keeps pieces under the
// chunk size and only degrades to finer boundaries for oversized pieces.
type Splitter struct {
	chunkSize    int
	chunkOverlap int
	separators   []string
}

// NewSplitter creates a splitter with the given chunk size and overlap,
// both in runes.
func NewSplitter(chunkSize, chunkOverlap int) (*Splitter, error) {
	if chunkSize <= 0 {
		return nil, ErrInvalidChunkSize
	}
	if chunkOverlap < 0 || chunkOverlap >= chunkSize {
		return nil, ErrInvalidOverlap
	}
	return &Splitter{
		chunkSize:    chunkSize,
		chunkOverlap: chunkOverlap,
		separators:   defaultSeparators,
	}, nil
}

// Split cuts text into chunks. Every returned chunk is non-empty, at most
// chunkSize runes long (except a single indivisible run longer than the
// chunk size), and chunks appear in source order. Adjacent chunks share up
// to chunkOverlap runes of trailing context. Separator runes stay in the
// chunks, so with zero overlap the chunks concatenate back to the exact
// source text.
func (s *Splitter) Split(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	return s.split(text, s.separators)
}

// SplitDocuments splits each document and returns one document per chunk.
// Chunk IDs extend the parent ID with the chunk ordinal so rebuilds remain
// deterministic; metadata is copied onto every chunk.
func (s *Splitter) SplitDocuments(docs []knowledge.Document) []knowledge.Document {
	var chunks []knowledge.Document
	for _, doc := range docs {
		for i, piece := range s.Split(doc.Content) {
			metadata := make(map[string]string, len(doc.Metadata))
			for k, v := range doc.Metadata {
				metadata[k] = v
			}
			chunks = append(chunks, knowledge.Document{
				ID:       fmt.Sprintf("%s#%d", doc.ID, i),
				Content:  piece,
				Metadata: metadata,
				CreateAt: doc.CreateAt,
			})
		}
	}
	return chunks
}

// split recursively partitions text on the coarsest separator present,
// merging small pieces back together and descending to finer separators
// for pieces that still exceed the chunk size.
func (s *Splitter) split(text string, separators []string) []string {
	separator := separators[len(separators)-1]
	var next []string
	for i, cand := range separators {
		if cand == "" {
			separator = cand
			break
		}
		if strings.Contains(text, cand) {
			separator = cand
			next = separators[i+1:]
			break
		}
	}

	pieces := splitKeepSeparator(text, separator)

	var chunks []string
	var pending []string
	for _, piece := range pieces {
		if utf8.RuneCountInString(piece) < s.chunkSize {
			pending = append(pending, piece)
			continue
		}
		if len(pending) > 0 {
			chunks = append(chunks, s.merge(pending)...)
			pending = nil
		}
		if len(next) == 0 {
			// No finer separator left; emit the oversized run as-is.
			chunks = append(chunks, piece)
		} else {
			chunks = append(chunks, s.split(piece, next)...)
		}
	}
	if len(pending) > 0 {
		chunks = append(chunks, s.merge(pending)...)
	}
	return chunks
}

// merge greedily packs consecutive pieces into chunks of at most chunkSize
// runes, sliding a window so each new chunk retains up to chunkOverlap
// runes from the previous one.
func (s *Splitter) merge(pieces []string) []string {
	var chunks []string
	var window []string
	total := 0

	flush := func() {
		if len(window) == 0 {
			return
		}
		chunks = append(chunks, strings.Join(window, ""))
	}

	for _, piece := range pieces {
		n := utf8.RuneCountInString(piece)
		if total+n > s.chunkSize && len(window) > 0 {
			flush()
			// Shrink the window to the overlap budget before starting
			// the next chunk.
			for total > s.chunkOverlap || (total+n > s.chunkSize && total > 0) {
				total -= utf8.RuneCountInString(window[0])
				window = window[1:]
			}
		}
		window = append(window, piece)
		total += n
	}
	flush()
	return chunks
}

// splitKeepSeparator splits text on sep, attaching each separator to the
// piece that follows it so no content is lost. An empty separator splits
// into individual runes. Empty pieces are dropped.
func splitKeepSeparator(text, sep string) []string {
	if sep == "" {
		runes := []rune(text)
		pieces := make([]string, len(runes))
		for i, r := range runes {
			pieces[i] = string(r)
		}
		return pieces
	}

	parts := strings.Split(text, sep)
	pieces := make([]string, 0, len(parts))
	if parts[0] != "" {
		pieces = append(pieces, parts[0])
	}
	for _, part := range parts[1:] {
		pieces = append(pieces, sep+part)
	}
	return pieces
}
