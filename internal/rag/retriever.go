package rag

import (
	"context"
	"fmt"
	"strings"

	"github.com/tewou-sn/tewou/internal/knowledge"
)

// Retriever fetches the chunks most similar to a question from the vector
// index.
type Retriever struct {
	topK int
}

// NewRetriever creates a retriever returning at most topK chunks per
// question. Non-positive values use DefaultTopK.
func NewRetriever(topK int) *Retriever {
	if topK <= 0 {
		topK = DefaultTopK
	}
	return &Retriever{topK: topK}
}

// Retrieve runs a similarity search for question against store.
func (r *Retriever) Retrieve(ctx context.Context, store *knowledge.Store, question string) ([]knowledge.Result, error) {
	results, err := store.Search(ctx, question, r.topK)
	if err != nil {
		return nil, fmt.Errorf("searching index: %w", err)
	}
	return results, nil
}

// FormatContext renders retrieved chunks as the context block of the
// answer prompt, one chunk per paragraph.
func FormatContext(results []knowledge.Result) string {
	parts := make([]string, len(results))
	for i, res := range results {
		parts[i] = res.Document.Content
	}
	return strings.Join(parts, "\n\n")
}
